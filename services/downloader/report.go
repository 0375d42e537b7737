package downloader

import (
	"context"
	"io"
	"strconv"

	"h5p-downloader/services/downloader/db"

	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderReport prints the per-record outcomes of the latest run followed by
// the tally.
func (s Service) RenderReport(ctx context.Context, out io.Writer, tally Tally) error {
	t := table.NewWriter()
	t.SetOutputMirror(out)

	if s.qry != nil {
		results, err := s.latestRunResults(ctx)
		if err != nil {
			return err
		}

		t.AppendHeader(table.Row{"#", "Name", "Outcome", "Bytes", "Detail"})
		for _, r := range results {
			t.AppendRow(table.Row{
				r.Idx + 1, r.ContentName, r.Outcome, r.BytesWritten, r.Detail,
			})
		}
		t.AppendSeparator()
	}

	t.AppendFooter(table.Row{
		"", "total: " + strconv.Itoa(tally.Total),
		"ok: " + strconv.Itoa(tally.Successful),
		"", "failed: " + strconv.Itoa(tally.Failed),
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}

func (s Service) latestRunResults(ctx context.Context) ([]db.RecordResult, error) {
	runId, err := s.qry.LatestRun(ctx)
	if err != nil {
		return nil, err
	}
	return s.qry.GetRecordResults(ctx, runId)
}
