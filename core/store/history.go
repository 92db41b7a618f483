package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tristendillon/diagify/core/models"
)

const DefaultHistoryLimit = 20

// Record inserts or replaces a run. A missing ID is generated and returned.
func (d *DB) Record(ctx context.Context, run models.RunRecord) (string, error) {
	if err := d.ready(); err != nil {
		return "", err
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	_, err := d.db.ExecContext(ctx, `
INSERT OR REPLACE INTO runs(id, description, provider, model, state, flagged, unfixable, corrections,
  source_path, artifact_path, error, started_at_unix_ms, finished_at_unix_ms)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		run.ID,
		run.Description,
		run.Provider,
		run.Model,
		string(run.State),
		run.Flagged,
		run.Unfixable,
		run.Corrections,
		run.SourcePath,
		run.ArtifactPath,
		run.Error,
		run.StartedAt.UnixMilli(),
		unixMilliOrZero(run.FinishedAt),
	)
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

// List returns the most recent runs, newest first.
func (d *DB) List(ctx context.Context, limit int) ([]models.RunRecord, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := d.db.QueryContext(ctx, `
SELECT id, description, provider, model, state, flagged, unfixable, corrections,
  source_path, artifact_path, error, started_at_unix_ms, finished_at_unix_ms
FROM runs
ORDER BY started_at_unix_ms DESC, rowid DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RunRecord
	for rows.Next() {
		var (
			r                 models.RunRecord
			state             string
			started, finished int64
		)
		if err := rows.Scan(
			&r.ID,
			&r.Description,
			&r.Provider,
			&r.Model,
			&state,
			&r.Flagged,
			&r.Unfixable,
			&r.Corrections,
			&r.SourcePath,
			&r.ArtifactPath,
			&r.Error,
			&started,
			&finished,
		); err != nil {
			return nil, err
		}
		r.State = models.RunState(state)
		r.StartedAt = time.UnixMilli(started)
		if finished > 0 {
			r.FinishedAt = time.UnixMilli(finished)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func unixMilliOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
