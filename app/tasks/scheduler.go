package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/callatispress/presscomb/app/database"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	defaultQueueSize   = 300
	defaultPruneEvery  = time.Hour
	taskTimeout        = 5 * time.Minute
	maxRetryDelay      = 30 * time.Second
	defaultWorkerCount = 2
)

type SchedulerOptions struct {
	Interval     time.Duration
	WorkerCount  int
	NavLimit     int
	NavWorkers   int
	Retention    time.Duration
	PruneEvery   time.Duration
	QueueSize    int
	BaseRetryGap time.Duration
}

// Scheduler runs the revalidation timer: every interval it refreshes the live
// listing snapshot and warms the navigation cache on a small worker pool.
type Scheduler struct {
	source    ContentSource
	posts     database.PostStore
	runs      database.RefreshRunStore
	warmer    NavigationWarmer
	opts      SchedulerOptions
	lastPrune time.Time
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	taskQueue chan Job
}

func NewScheduler(source ContentSource, posts database.PostStore, runs database.RefreshRunStore,
	warmer NavigationWarmer, opts SchedulerOptions) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = defaultWorkerCount
	}
	if opts.PruneEvery <= 0 {
		opts.PruneEvery = defaultPruneEvery
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.BaseRetryGap <= 0 {
		opts.BaseRetryGap = time.Second
	}

	return &Scheduler{
		source:    source,
		posts:     posts,
		runs:      runs,
		warmer:    warmer,
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		taskQueue: make(chan Job, opts.QueueSize),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.opts.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.opts.Interval)
		defer ticker.Stop()

		s.enqueueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(job Job) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- job:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueTasks() {
	if s.posts != nil {
		if err := s.EnqueueTask(NewRefreshListingTask(s.source, s.posts, s.runs)); err != nil {
			slog.Warn("Failed to enqueue RefreshListingTask", "error", err)
		}

		if now := time.Now(); now.Sub(s.lastPrune) >= s.opts.PruneEvery {
			s.lastPrune = now
			if err := s.EnqueueTask(NewPruneSnapshotTask(s.posts, s.opts.Retention)); err != nil {
				slog.Warn("Failed to enqueue PruneSnapshotTask", "error", err)
			}
		}
	}

	if s.warmer != nil {
		if err := s.EnqueueTask(NewWarmNavigationTask(s.source, s.warmer, s.opts.NavLimit, s.opts.NavWorkers)); err != nil {
			slog.Warn("Failed to enqueue WarmNavigationTask", "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case job := <-s.taskQueue:
			s.executeTask(id, job)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, job Job) {
	task := job.Info()
	task.begin()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := job.Execute(taskCtx)
	if err == nil {
		slog.Debug("Task completed", "worker_id", workerID, "task", task, "duration", task.Elapsed())
		return
	}

	if !task.retry() {
		slog.Error("Task gave up", "worker_id", workerID, "task", task, "max_retries", task.MaxRetries, "error", err)
		return
	}

	delay := s.retryDelay(task.Retries)
	slog.Warn("Task failed, retrying", "worker_id", workerID, "task", task, "delay", delay.String(), "error", err)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, dropping retry", "task", task)
		case <-timer.C:
			if err := s.EnqueueTask(job); err != nil {
				slog.Error("Failed to requeue task", "task", task, "error", err)
			}
		}
	}()
}

func (s *Scheduler) retryDelay(retryCount int) time.Duration {
	delay := s.opts.BaseRetryGap << uint(retryCount-1)
	return min(delay, maxRetryDelay)
}
