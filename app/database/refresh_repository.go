package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/callatispress/presscomb/app/cms"
)

type RefreshRunRepository struct {
	db *DB
}

func NewRefreshRunRepository(db *DB) *RefreshRunRepository {
	return &RefreshRunRepository{db: db}
}

func (r *RefreshRunRepository) RecordRun(ctx context.Context, run RefreshRun) error {
	finishedAt := run.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_runs (source, outcome, post_count, message, finished_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.Source, string(run.Outcome), run.PostCount, run.Message, finishedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to record refresh run: %w", err)
	}
	return nil
}

// LastRun returns the most recent refresh run, or nil when none was recorded.
func (r *RefreshRunRepository) LastRun(ctx context.Context) (*RefreshRun, error) {
	var (
		run        RefreshRun
		outcome    string
		finishedAt int64
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, source, outcome, post_count, message, finished_at
		FROM refresh_runs
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&run.ID, &run.Source, &outcome, &run.PostCount, &run.Message, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last refresh run: %w", err)
	}

	run.Outcome = cms.OutcomeKind(outcome)
	run.FinishedAt = time.Unix(finishedAt, 0)
	return &run, nil
}
