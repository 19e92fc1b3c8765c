package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/callatispress/presscomb/app/cms"
)

// WarmNavigationTask refreshes the navigation cache for every category so
// menu reads are served from memory.
type WarmNavigationTask struct {
	Task
	source      ContentSource
	warmer      NavigationWarmer
	limit       int
	concurrency int
}

func NewWarmNavigationTask(source ContentSource, warmer NavigationWarmer, limit, concurrency int) *WarmNavigationTask {
	return &WarmNavigationTask{
		Task:        NewTask(KindWarmNavigation, "menu"),
		source:      source,
		warmer:      warmer,
		limit:       limit,
		concurrency: max(concurrency, 1),
	}
}

func (t *WarmNavigationTask) Execute(ctx context.Context) error {
	categories := t.source.ListCategories(ctx)
	if !categories.IsOK() {
		return fmt.Errorf("failed to list categories: %w", categories.Err())
	}

	var warmed, skipped, failed atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.concurrency)

	for _, category := range categories.Value {
		slug := category.Slug
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			kind, ran := t.warmer.Refresh(gctx, slug, t.limit)
			switch {
			case !ran:
				skipped.Add(1)
			case kind == cms.KindError:
				failed.Add(1)
			default:
				warmed.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("Navigation cache warmed", "categories", len(categories.Value), "warmed", warmed.Load(), "skipped", skipped.Load(), "failed", failed.Load(), "duration", t.Elapsed())

	if n := failed.Load(); n > 0 && n == int32(len(categories.Value)) {
		return fmt.Errorf("navigation refresh failed for all %d categories", n)
	}
	return nil
}
