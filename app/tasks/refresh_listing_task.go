package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/callatispress/presscomb/app/cms"
	"github.com/callatispress/presscomb/app/database"
)

// SnapshotPageSize is how many live posts each refresh copies into the
// snapshot store.
const SnapshotPageSize = 50

// RefreshListingTask copies the current live listing into the snapshot store
// so single-post pages survive upstream outages.
type RefreshListingTask struct {
	Task
	source ContentSource
	posts  database.PostStore
	runs   database.RefreshRunStore
}

func NewRefreshListingTask(source ContentSource, posts database.PostStore, runs database.RefreshRunStore) *RefreshListingTask {
	return &RefreshListingTask{
		Task:   NewTask(KindRefreshListing, "live"),
		source: source,
		posts:  posts,
		runs:   runs,
	}
}

func (t *RefreshListingTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	outcome := t.source.ListPosts(ctx, cms.ListOptions{PageSize: SnapshotPageSize})
	run := database.RefreshRun{
		Source:  t.Target,
		Outcome: outcome.Kind,
		Message: outcome.Message,
	}

	if !outcome.IsOK() {
		t.record(ctx, run)
		return fmt.Errorf("failed to refresh listing: %w", outcome.Err())
	}

	written, err := t.posts.SavePosts(ctx, outcome.Value)
	if err != nil {
		run.Outcome = cms.KindError
		run.Message = err.Error()
		t.record(ctx, run)
		return fmt.Errorf("failed to store snapshot: %w", err)
	}

	run.PostCount = written
	t.record(ctx, run)

	slog.Info("Listing snapshot refreshed", "posts", written, "duration", t.Elapsed())
	return nil
}

func (t *RefreshListingTask) record(ctx context.Context, run database.RefreshRun) {
	if t.runs == nil {
		return
	}
	run.FinishedAt = time.Now()
	if err := t.runs.RecordRun(ctx, run); err != nil {
		slog.Warn("Failed to record refresh run", "error", err)
	}
}
