package downloader

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"h5p-downloader/lib/records"
	"h5p-downloader/lib/scrapers/h5p/content"
	"h5p-downloader/lib/scrapers/h5p/core"
	"h5p-downloader/lib/textutil"
	"h5p-downloader/services/downloader/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("services/downloader")

type Service struct {
	core       *core.Client
	resolver   content.Resolver
	retriever  Retriever
	qry        *db.Queries
	outputRoot string
}

type Options struct {
	Core *core.Client
	// report database, optional
	DB         *sql.DB
	OutputRoot string
}

func NewService(opts Options) Service {
	s := Service{
		core:       opts.Core,
		resolver:   content.NewResolver(opts.Core),
		retriever:  Retriever{Core: opts.Core},
		outputRoot: opts.OutputRoot,
	}
	if opts.DB != nil {
		s.qry = db.New(opts.DB)
	}
	return s
}

type Tally struct {
	Total      int
	Successful int
	Failed     int
}

const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

type recordResult struct {
	contentId     string
	destination   string
	outcome       string
	detail        string
	attemptedUrls []string
	bytesWritten  int64
}

// Run processes every record in order: build the destination folder,
// resolve the download URL (scrape first, constructed export path second),
// download with the fallback path patterns as a last resort, and tally the
// outcome. No record failure aborts the batch, cancellation is honored
// between records.
func (s Service) Run(ctx context.Context, recordList []records.ContentRecord) (Tally, error) {
	ctx, span := tracer.Start(ctx, "service:Run")
	defer span.End()

	var runId int64
	if s.qry != nil {
		var err error
		runId, err = s.qry.CreateRun(ctx, time.Now())
		if err != nil {
			slog.WarnContext(ctx, "failed to create report run", "err", err)
			s.qry = nil
		}
	}

	tally := Tally{Total: len(recordList)}
	for idx, record := range recordList {
		if ctx.Err() != nil {
			span.AddEvent("run canceled")
			s.finishRun(ctx, runId, tally)
			return tally, ctx.Err()
		}

		slog.InfoContext(
			ctx, "processing record",
			"index", idx+1,
			"total", tally.Total,
			"name", record.ContentName(),
			"url", record.ContentUrl,
		)

		result := s.processRecord(ctx, record)
		if result.outcome == OutcomeSuccess {
			tally.Successful++
		} else {
			tally.Failed++
			slog.WarnContext(
				ctx, "record failed",
				"index", idx+1,
				"name", record.ContentName(),
				"reason", result.detail,
			)
		}

		if s.qry != nil {
			err := s.qry.NoteRecordResult(ctx, db.NoteRecordResultParams{
				RunID:         runId,
				Idx:           int64(idx),
				ContentName:   record.ContentName(),
				ContentUrl:    record.ContentUrl,
				ContentID:     result.contentId,
				Destination:   result.destination,
				Outcome:       result.outcome,
				Detail:        result.detail,
				AttemptedUrls: result.attemptedUrls,
				BytesWritten:  result.bytesWritten,
			})
			if err != nil {
				slog.WarnContext(ctx, "failed to note record result", "err", err)
			}
		}
	}

	s.finishRun(ctx, runId, tally)
	span.SetAttributes(
		attribute.Int("total", tally.Total),
		attribute.Int("successful", tally.Successful),
		attribute.Int("failed", tally.Failed),
	)
	return tally, nil
}

func (s Service) finishRun(ctx context.Context, runId int64, tally Tally) {
	if s.qry == nil {
		return
	}
	err := s.qry.FinishRun(ctx, db.FinishRunParams{
		RunID:      runId,
		FinishedAt: time.Now(),
		Total:      int64(tally.Total),
		Successful: int64(tally.Successful),
		Failed:     int64(tally.Failed),
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to finish report run", "err", err)
	}
}

func (s Service) processRecord(ctx context.Context, record records.ContentRecord) recordResult {
	ctx, span := tracer.Start(ctx, "service:processRecord")
	defer span.End()

	result := recordResult{outcome: OutcomeFailed}

	destination, err := BuildPath(record.Course, record.Module, record.Section, s.outputRoot)
	if err != nil {
		result.detail = "failed to create destination folder: " + err.Error()
		return result
	}
	result.destination = destination

	if record.ContentUrl == "" {
		result.detail = "no content url"
		return result
	}
	contentId, ok := content.ExtractId(record.ContentUrl)
	if !ok {
		result.detail = "cannot extract a numeric content id from the url"
		return result
	}
	result.contentId = contentId

	formattedName := textutil.UrlSafeName(record.ContentName())
	filename := content.Filename(contentId, formattedName)
	baseUrl := s.core.BaseUrl.String()

	downloadUrl := ""
	resolved, found := s.resolver.Resolve(ctx, record.ContentUrl)
	if found {
		downloadUrl = s.core.ResolveUrl(resolved)
	} else {
		slog.InfoContext(ctx, "page scrape found no download url, using constructed export path")
		downloadUrl = content.ExportUrl(baseUrl, contentId, formattedName)
	}

	result.attemptedUrls = append(result.attemptedUrls, downloadUrl)
	written, err := s.retriever.Download(ctx, downloadUrl, filename, destination)
	if err == nil {
		result.outcome = OutcomeSuccess
		result.bytesWritten = written
		return result
	}

	slog.WarnContext(ctx, "primary download url failed, trying fallback patterns", "err", err)
	for _, strategy := range content.Fallbacks {
		if ctx.Err() != nil {
			break
		}
		alternate := strategy.Build(baseUrl, contentId, formattedName)
		slog.InfoContext(ctx, "trying fallback", "strategy", strategy.Name, "url", alternate)

		result.attemptedUrls = append(result.attemptedUrls, alternate)
		written, err = s.retriever.Download(ctx, alternate, filename, destination)
		if err == nil {
			result.outcome = OutcomeSuccess
			result.bytesWritten = written
			result.detail = "used fallback: " + strategy.Name
			return result
		}
	}

	result.detail = "every download attempt failed"
	return result
}
