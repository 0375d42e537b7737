package db

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

type Queries struct {
	db *sql.DB
}

func New(database *sql.DB) *Queries {
	return &Queries{db: database}
}

func (q *Queries) CreateRun(ctx context.Context, startedAt time.Time) (int64, error) {
	res, err := q.db.ExecContext(
		ctx,
		`INSERT INTO run (started_at) VALUES (?)`,
		startedAt.Unix(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

type FinishRunParams struct {
	RunID      int64
	FinishedAt time.Time
	Total      int64
	Successful int64
	Failed     int64
}

func (q *Queries) FinishRun(ctx context.Context, params FinishRunParams) error {
	_, err := q.db.ExecContext(
		ctx,
		`UPDATE run SET finished_at = ?, total = ?, successful = ?, failed = ? WHERE id = ?`,
		params.FinishedAt.Unix(),
		params.Total,
		params.Successful,
		params.Failed,
		params.RunID,
	)
	return err
}

type NoteRecordResultParams struct {
	RunID         int64
	Idx           int64
	ContentName   string
	ContentUrl    string
	ContentID     string
	Destination   string
	Outcome       string
	Detail        string
	AttemptedUrls []string
	BytesWritten  int64
}

func (q *Queries) NoteRecordResult(ctx context.Context, params NoteRecordResultParams) error {
	_, err := q.db.ExecContext(
		ctx,
		`INSERT INTO record_result
			(run_id, idx, content_name, content_url, content_id,
			destination, outcome, detail, attempted_urls, bytes_written)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		params.RunID,
		params.Idx,
		params.ContentName,
		params.ContentUrl,
		params.ContentID,
		params.Destination,
		params.Outcome,
		params.Detail,
		strings.Join(params.AttemptedUrls, "\n"),
		params.BytesWritten,
	)
	return err
}

func (q *Queries) LatestRun(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, `SELECT id FROM run ORDER BY id DESC LIMIT 1`)
	var id int64
	err := row.Scan(&id)
	return id, err
}

type RecordResult struct {
	Idx          int64
	ContentName  string
	ContentUrl   string
	ContentID    string
	Destination  string
	Outcome      string
	Detail       string
	BytesWritten int64
}

func (q *Queries) GetRecordResults(ctx context.Context, runId int64) ([]RecordResult, error) {
	rows, err := q.db.QueryContext(
		ctx,
		`SELECT idx, content_name, content_url, content_id,
			destination, outcome, detail, bytes_written
		FROM record_result WHERE run_id = ? ORDER BY idx`,
		runId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RecordResult
	for rows.Next() {
		var r RecordResult
		err = rows.Scan(
			&r.Idx, &r.ContentName, &r.ContentUrl, &r.ContentID,
			&r.Destination, &r.Outcome, &r.Detail, &r.BytesWritten,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
