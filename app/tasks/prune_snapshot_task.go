package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/callatispress/presscomb/app/database"
)

const DefaultSnapshotRetention = 7 * 24 * time.Hour

// PruneSnapshotTask drops snapshot posts the live listing has not returned
// for longer than the retention window.
type PruneSnapshotTask struct {
	Task
	posts     database.PostStore
	retention time.Duration
}

func NewPruneSnapshotTask(posts database.PostStore, retention time.Duration) *PruneSnapshotTask {
	if retention <= 0 {
		retention = DefaultSnapshotRetention
	}
	return &PruneSnapshotTask{
		Task:      NewTask(KindPruneSnapshot, "snapshot"),
		posts:     posts,
		retention: retention,
	}
}

func (t *PruneSnapshotTask) Execute(ctx context.Context) error {
	removed, err := t.posts.PruneOlderThan(ctx, time.Now().Add(-t.retention))
	if err != nil {
		return fmt.Errorf("failed to prune snapshot: %w", err)
	}

	if removed > 0 {
		slog.Info("Snapshot pruned", "removed", removed, "retention", t.retention.String())
	}
	return nil
}
