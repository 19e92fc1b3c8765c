package tasks

import (
	"context"

	"github.com/callatispress/presscomb/app/cms"
)

// TaskSchedulerInterface is what main needs from the revalidation scheduler.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(job Job) error
}

// ContentSource is the part of the CMS client the background tasks read from.
type ContentSource interface {
	ListPosts(ctx context.Context, opts cms.ListOptions) cms.Outcome[[]cms.Post]
	ListCategories(ctx context.Context) cms.Outcome[[]cms.Category]
}

// NavigationWarmer refreshes one navigation cache key synchronously.
type NavigationWarmer interface {
	Refresh(ctx context.Context, slug string, limit int) (cms.OutcomeKind, bool)
}
