package fallback

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// CorpusSource yields the corpus currently in effect.
type CorpusSource interface {
	Current() *Corpus
}

func (c *Corpus) Current() *Corpus {
	return c
}

// Store holds a corpus that can be swapped while readers use it.
type Store struct {
	corpus atomic.Pointer[Corpus]
	path   string
	now    func() time.Time
}

// NewStore builds the corpus from path, or from the embedded definition when
// path is empty.
func NewStore(path string, now func() time.Time) (*Store, error) {
	if now == nil {
		now = time.Now
	}

	s := &Store{path: path, now: now}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Current() *Corpus {
	return s.corpus.Load()
}

// Reload rebuilds the corpus from the definition file. On error the previous
// corpus stays in place.
func (s *Store) Reload() error {
	def, err := LoadDefinition(s.path)
	if err != nil {
		return err
	}

	corpus := Build(def, s.now())
	s.corpus.Store(corpus)

	slog.Info("Fallback corpus loaded", "source", cmpPath(s.path), "posts", corpus.Len(), "categories", len(corpus.categories))
	return nil
}

// Watch reloads the corpus whenever the definition file changes, until ctx
// is cancelled. It returns immediately when the corpus is the embedded one.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors replace files on save, so watch the directory and filter by name.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if err := s.Reload(); err != nil {
				slog.Warn("Failed to reload fallback corpus, keeping previous", "path", s.path, "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Fallback corpus watcher error", "path", s.path, "error", err)
		}
	}
}

func cmpPath(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}
