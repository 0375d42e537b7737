package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"h5p-downloader/lib/htmlutil"
	"h5p-downloader/lib/scrapers/h5p/core"
	"h5p-downloader/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("scrapers/h5p/content")

var contentIdRegex = regexp.MustCompile(`/content/(\d+)`)

// ExtractId pulls the numeric content id out of a content URL. A record
// without one cannot be downloaded at all.
func ExtractId(contentUrl string) (string, bool) {
	groups := contentIdRegex.FindStringSubmatch(contentUrl)
	if len(groups) < 2 {
		return "", false
	}
	return groups[1], true
}

// Filename is the canonical export package name for a content item.
func Filename(contentId, formattedName string) string {
	if formattedName == "" {
		formattedName = "content-" + contentId
	}
	return fmt.Sprintf("%s-%s.h5p", formattedName, contentId)
}

// ExportUrl builds the canonical export path for a content item, used when
// page resolution comes up empty.
func ExportUrl(baseUrl, contentId, formattedName string) string {
	return fmt.Sprintf(
		"%s/media/exports/%s/%s",
		strings.TrimSuffix(baseUrl, "/"), contentId, Filename(contentId, formattedName),
	)
}

// FallbackStrategy deterministically constructs a candidate export URL.
// Strategies are pure, the list below is tried in order after the primary
// download attempt fails.
type FallbackStrategy struct {
	Name  string
	Build func(baseUrl, contentId, formattedName string) string
}

// known export path families across H5P platform flavors, best-effort
// guesses that change with platform versions
var Fallbacks = []FallbackStrategy{
	{
		Name: "wordpress exports",
		Build: func(baseUrl, contentId, formattedName string) string {
			return fmt.Sprintf("%s/wp-content/uploads/h5p/exports/%s", baseUrl, Filename(contentId, formattedName))
		},
	},
	{
		Name: "plain exports",
		Build: func(baseUrl, contentId, formattedName string) string {
			return fmt.Sprintf("%s/h5p/exports/%s", baseUrl, Filename(contentId, formattedName))
		},
	},
	{
		Name: "export endpoint",
		Build: func(baseUrl, contentId, formattedName string) string {
			return fmt.Sprintf("%s/export/%s", baseUrl, contentId)
		},
	},
	{
		Name: "content download endpoint",
		Build: func(baseUrl, contentId, formattedName string) string {
			return fmt.Sprintf("%s/content/%s/download", baseUrl, contentId)
		},
	},
}

type Resolver struct {
	Core *core.Client
}

func NewResolver(client *core.Client) Resolver {
	return Resolver{Core: client}
}

// a single page-scrape heuristic, first non-empty result wins
type linkFinder struct {
	name string
	find func(ctx context.Context, doc *goquery.Document) string
}

var downloadWords = []string{"download", "export"}

var linkFinders = []linkFinder{
	{
		name: "download anchor",
		find: func(ctx context.Context, doc *goquery.Document) string {
			anchors := htmlutil.GetAnchors(ctx, doc.Find("a"))
			for _, a := range anchors {
				if textutil.MatchName(a.Name, downloadWords) ||
					textutil.MatchName(a.Href, downloadWords) {
					return a.Href
				}
			}
			return ""
		},
	},
	{
		name: "data-url control",
		find: func(ctx context.Context, doc *goquery.Document) string {
			result := ""
			doc.Find("button[data-url]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
				target := sel.AttrOr("data-url", "")
				if strings.HasSuffix(strings.ToLower(target), ".h5p") {
					result = target
					return false
				}
				return true
			})
			return result
		},
	},
	{
		name: "download styled anchor",
		find: func(ctx context.Context, doc *goquery.Document) string {
			result := ""
			doc.Find("a[class]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
				if textutil.MatchName(sel.AttrOr("class", ""), []string{"download"}) {
					result = sel.AttrOr("href", "")
					return result == ""
				}
				return true
			})
			return result
		},
	},
	{
		name: "integration config",
		find: func(ctx context.Context, doc *goquery.Document) string {
			return findIntegrationExportUrl(ctx, doc)
		},
	},
}

var integrationRegex = regexp.MustCompile(`(?s)H5PIntegration\s*=\s*(\{.*?\});`)

// findIntegrationExportUrl digs the exportUrl out of the H5PIntegration
// config object the platform embeds for its javascript player.
func findIntegrationExportUrl(ctx context.Context, doc *goquery.Document) string {
	for _, script := range doc.Find("script").Nodes {
		text := htmlutil.GetText(script)
		if !strings.Contains(text, "H5PIntegration") {
			continue
		}
		groups := integrationRegex.FindStringSubmatch(text)
		if len(groups) < 2 {
			continue
		}

		var cfg struct {
			Contents map[string]struct {
				ExportUrl string `json:"exportUrl"`
			} `json:"contents"`
		}
		err := json.Unmarshal([]byte(groups[1]), &cfg)
		if err != nil {
			continue
		}
		for _, entry := range cfg.Contents {
			if entry.ExportUrl != "" {
				return entry.ExportUrl
			}
		}
	}
	return ""
}

// Resolve fetches the content page and tries each heuristic in order to
// find the real download URL. An empty result is not an error, the caller
// falls back to constructed export paths. The returned URL may be relative
// and must be rebased onto the platform base URL before use.
func (r Resolver) Resolve(ctx context.Context, contentUrl string) (string, bool) {
	ctx, span := tracer.Start(ctx, "resolver:Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("content_url", contentUrl))

	res, err := r.Core.Http.R().
		SetContext(ctx).
		Get(contentUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch content page")
		return "", false
	}
	if res.StatusCode() != http.StatusOK {
		span.SetStatus(codes.Error, "content page returned a non-200 status")
		return "", false
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse content page html")
		return "", false
	}

	for _, finder := range linkFinders {
		target := finder.find(ctx, doc)
		if target == "" {
			continue
		}
		span.AddEvent("resolved download url", trace.WithAttributes(
			attribute.String("finder", finder.name),
			attribute.String("url", target),
		))
		return target, true
	}

	return "", false
}
