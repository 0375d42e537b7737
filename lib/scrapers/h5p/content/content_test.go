package content

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"h5p-downloader/lib/scrapers/h5p/core"
	"h5p-downloader/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func TestExtractId(t *testing.T) {
	testCases := []struct {
		url      string
		expected string
		ok       bool
	}{
		{"https://myorg.h5p.com/content/12345", "12345", true},
		{"https://myorg.h5p.com/content/12345/embed", "12345", true},
		{"https://myorg.h5p.com/content/abc", "", false},
		{"https://myorg.h5p.com/about", "", false},
		{"", "", false},
	}
	for _, tc := range testCases {
		id, ok := ExtractId(tc.url)
		require.Equal(t, tc.ok, ok, "url: %q", tc.url)
		require.Equal(t, tc.expected, id, "url: %q", tc.url)
	}
}

func TestExportUrlAndFilename(t *testing.T) {
	require.Equal(t, "intro-quiz-12345.h5p", Filename("12345", "intro-quiz"))
	require.Equal(t, "content-12345-12345.h5p", Filename("12345", ""))
	require.Equal(
		t,
		"https://myorg.h5p.com/media/exports/12345/intro-quiz-12345.h5p",
		ExportUrl("https://myorg.h5p.com/", "12345", "intro-quiz"),
	)
}

func TestFallbackUrls(t *testing.T) {
	base := "https://myorg.h5p.com"
	expected := []string{
		"https://myorg.h5p.com/wp-content/uploads/h5p/exports/intro-quiz-12345.h5p",
		"https://myorg.h5p.com/h5p/exports/intro-quiz-12345.h5p",
		"https://myorg.h5p.com/export/12345",
		"https://myorg.h5p.com/content/12345/download",
	}
	require.Len(t, Fallbacks, len(expected))
	for i, strategy := range Fallbacks {
		require.Equal(t, expected[i], strategy.Build(base, "12345", "intro-quiz"))
	}
}

func serveResolver(t testing.TB, page string, status int) Resolver {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /content/12345", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, page)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := core.NewClient(context.Background(), core.ClientOptions{
		BaseUrl: server.URL,
	})
	require.NoError(t, err)
	return NewResolver(client)
}

func TestResolveDownloadAnchor(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/h5p/content")
	defer cleanup()

	resolver := serveResolver(t, `<html><body>
<a href="/media/exports/12345/intro-quiz-12345.h5p">Download this content</a>
</body></html>`, http.StatusOK)

	url, ok := resolver.Resolve(context.Background(), resolver.Core.BaseUrl.String()+"/content/12345")
	require.True(t, ok)
	require.Equal(t, "/media/exports/12345/intro-quiz-12345.h5p", url)
}

func TestResolveDataUrlButton(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/h5p/content")
	defer cleanup()

	resolver := serveResolver(t, `<html><body>
<a href="/help">Help</a>
<button data-url="/exports/intro-quiz-12345.h5p">Get package</button>
</body></html>`, http.StatusOK)

	url, ok := resolver.Resolve(context.Background(), resolver.Core.BaseUrl.String()+"/content/12345")
	require.True(t, ok)
	require.Equal(t, "/exports/intro-quiz-12345.h5p", url)
}

func TestResolveIntegrationConfig(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/h5p/content")
	defer cleanup()

	resolver := serveResolver(t, `<html><body>
<script>
var H5PIntegration = {"baseUrl":"https://myorg.h5p.com","contents":{"cid-12345":{"exportUrl":"/media/exports/12345/intro-quiz-12345.h5p"}}};
</script>
</body></html>`, http.StatusOK)

	url, ok := resolver.Resolve(context.Background(), resolver.Core.BaseUrl.String()+"/content/12345")
	require.True(t, ok)
	require.Equal(t, "/media/exports/12345/intro-quiz-12345.h5p", url)
}

func TestResolveNothingFound(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/h5p/content")
	defer cleanup()

	resolver := serveResolver(t, `<html><body>
<a href="/help">Help</a>
<script>var unrelated = 1;</script>
</body></html>`, http.StatusOK)

	_, ok := resolver.Resolve(context.Background(), resolver.Core.BaseUrl.String()+"/content/12345")
	require.False(t, ok)
}

func TestResolveServerError(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/h5p/content")
	defer cleanup()

	resolver := serveResolver(t, "internal error", http.StatusInternalServerError)

	_, ok := resolver.Resolve(context.Background(), resolver.Core.BaseUrl.String()+"/content/12345")
	require.False(t, ok)
}
