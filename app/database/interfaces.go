package database

import (
	"context"
	"time"

	"github.com/callatispress/presscomb/app/cms"
)

// RefreshRun records one background refresh of the live listing.
type RefreshRun struct {
	ID         int64
	Source     string
	Outcome    cms.OutcomeKind
	PostCount  int
	Message    string
	FinishedAt time.Time
}

type PostStore interface {
	SavePosts(ctx context.Context, posts []cms.Post) (int, error)
	GetPost(ctx context.Context, slug string) (*cms.Post, error)
	CountPosts(ctx context.Context) (int, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type RefreshRunStore interface {
	RecordRun(ctx context.Context, run RefreshRun) error
	LastRun(ctx context.Context) (*RefreshRun, error)
}

var (
	_ PostStore       = (*PostRepository)(nil)
	_ RefreshRunStore = (*RefreshRunRepository)(nil)
)
