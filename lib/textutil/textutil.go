package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)
var urlUnsafeRegex = regexp.MustCompile(`[^a-z0-9-]`)
var folderUnsafeRegex = regexp.MustCompile(`[<>:"/\\|?*]`)

// UrlSafeName converts a free-text content name into a lowercase,
// dash-separated slug containing only [a-z0-9-].
func UrlSafeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, " ")
	name = strings.ReplaceAll(name, " ", "-")
	name = urlUnsafeRegex.ReplaceAllString(name, "")
	return name
}

// FolderSafeName formats a name for use as a path segment. Case is
// preserved, characters that are invalid in folder names become
// underscores, and leading/trailing spaces and periods are trimmed.
func FolderSafeName(name string) string {
	name = strings.Trim(name, " \n\t")
	name = folderUnsafeRegex.ReplaceAllString(name, "_")
	name = strings.Trim(name, ". ")
	return name
}

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}
