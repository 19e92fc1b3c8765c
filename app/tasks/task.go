package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Kind identifies a background job in logs.
type Kind string

const (
	KindRefreshListing Kind = "refresh_listing"
	KindWarmNavigation Kind = "warm_navigation"
	KindPruneSnapshot  Kind = "prune_snapshot"
)

const DefaultMaxRetries = 3

// Job is a unit of work the scheduler queues and retries. Embedding Task
// provides Info.
type Job interface {
	Execute(ctx context.Context) error
	Info() *Task
}

// Task is the bookkeeping every job carries between attempts.
type Task struct {
	ID         string
	Kind       Kind
	Target     string
	Retries    int
	MaxRetries int
	started    time.Time
}

func NewTask(kind Kind, target string) Task {
	return Task{
		ID:         uuid.NewString(),
		Kind:       kind,
		Target:     target,
		MaxRetries: DefaultMaxRetries,
	}
}

func (t *Task) Info() *Task { return t }

func (t *Task) begin() { t.started = time.Now() }

// Elapsed is the time since the current attempt began, zero before the first.
func (t *Task) Elapsed() time.Duration {
	if t.started.IsZero() {
		return 0
	}
	return time.Since(t.started)
}

// retry counts a failed attempt. It returns false once the budget is spent.
func (t *Task) retry() bool {
	if t.Retries >= t.MaxRetries {
		return false
	}
	t.Retries++
	return true
}

func (t *Task) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", t.ID),
		slog.String("kind", string(t.Kind)),
		slog.String("target", t.Target),
		slog.Int("retries", t.Retries),
	)
}
