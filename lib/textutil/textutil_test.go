package textutil

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

var urlSafeOutput = regexp.MustCompile(`^[a-z0-9-]*$`)

func TestUrlSafeName(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"Intro Quiz", "intro-quiz"},
		{"  Algebra   Basics  ", "algebra-basics"},
		{"What's New? (2024)", "whats-new-2024"},
		{"already-safe", "already-safe"},
		{"Tabs\tand\nnewlines", "tabs-and-newlines"},
		{"ÜbungÄöü", "bung"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tc := range testCases {
		got := UrlSafeName(tc.input)
		require.Equal(t, tc.expected, got, "input: %q", tc.input)
		require.True(t, urlSafeOutput.MatchString(got))
		// idempotence
		require.Equal(t, got, UrlSafeName(got))
	}
}

func TestFolderSafeName(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"Math", "Math"},
		{`A/B\C`, "A_B_C"},
		{`Quiz: "Basics"?`, `Quiz_ _Basics__`},
		{"  trailing.  ", "trailing"},
		{"<|>*", "____"},
	}
	for _, tc := range testCases {
		got := FolderSafeName(tc.input)
		require.Equal(t, tc.expected, got, "input: %q", tc.input)
		require.NotRegexp(t, `[<>:"/\\|?*]`, got)
	}
}

func TestMatchName(t *testing.T) {
	require.True(t, MatchName("Download (.h5p)", []string{"download"}))
	require.True(t, MatchName("  Export\tpackage ", []string{"export"}))
	require.False(t, MatchName("Open activity", []string{"download", "export"}))
}
