package downloader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"h5p-downloader/lib/scrapers/h5p/core"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Retriever struct {
	Core *core.Client
}

// Download transfers one export package to destinationFolder/filename,
// overwriting an existing file. The returned error is a per-attempt failure
// signal for the caller's fallback logic, it never aborts the batch.
func (r Retriever) Download(ctx context.Context, url, filename, destinationFolder string) (int64, error) {
	ctx, span := tracer.Start(ctx, "retriever:Download")
	defer span.End()
	span.SetAttributes(
		attribute.String("url", url),
		attribute.String("filename", filename),
	)

	fail := func(err error) (int64, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "download failed")
		return 0, err
	}

	// existence probe, cheaper than failing mid-body
	head, err := r.Core.Http.R().
		SetContext(ctx).
		Head(url)
	if err != nil {
		return fail(err)
	}
	if head.StatusCode() == http.StatusNotFound {
		return fail(fmt.Errorf("file not found (404)"))
	}

	res, err := r.Core.Http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return fail(err)
	}
	body := res.RawBody()
	defer body.Close()

	if res.StatusCode() != http.StatusOK {
		return fail(fmt.Errorf("download failed (HTTP %d)", res.StatusCode()))
	}
	contentType := res.Header().Get("Content-Type")
	if strings.Contains(contentType, "text/html") {
		// the platform serves an html page instead of the package when the
		// session expired or the export path is wrong
		return fail(fmt.Errorf("received html instead of a file, session may have expired"))
	}

	outputPath := filepath.Join(destinationFolder, filename)
	out, err := os.Create(outputPath)
	if err != nil {
		return fail(err)
	}

	written, err := io.Copy(out, body)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(outputPath)
		return fail(err)
	}

	slog.InfoContext(
		ctx, "saved file",
		"path", outputPath,
		"bytes", written,
		"content_type", contentType,
	)
	return written, nil
}
