package fallback

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/callatispress/presscomb/app/cms"
)

const smallDefinition = `
seed: 7
count: %d
categories:
  - slug: sport
    name: Sport
title_seeds: [Titlu]
images: [https://img.test/a.jpg]
videos: [https://video.test/a.mp4]
`

func writeDefinition(t *testing.T, path string, count int) {
	t.Helper()
	data := []byte(fmt.Sprintf(smallDefinition, count))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		t.Fatalf("Failed to write definition: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("Failed to replace definition: %v", err)
	}
}

func TestNewStore_Embedded(t *testing.T) {
	store, err := NewStore("", func() time.Time { return baseTime })
	if err != nil {
		t.Fatalf("Expected embedded corpus, got: %v", err)
	}
	if store.Current().Len() != 50 {
		t.Errorf("Expected 50 posts, got: %d", store.Current().Len())
	}
	if err := store.Watch(context.Background()); err != nil {
		t.Errorf("Expected Watch to return immediately for embedded corpus, got: %v", err)
	}
}

func TestNewStore_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.yml")
	os.WriteFile(path, []byte("categories: []\n"), 0o644)

	if _, err := NewStore(path, nil); err == nil {
		t.Error("Expected error for invalid definition")
	}
}

func TestStore_ReloadKeepsPreviousOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.yml")
	writeDefinition(t, path, 3)

	store, err := NewStore(path, func() time.Time { return baseTime })
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	os.WriteFile(path, []byte("not: [valid"), 0o644)
	if err := store.Reload(); err == nil {
		t.Error("Expected reload error")
	}
	if store.Current().Len() != 3 {
		t.Errorf("Expected previous corpus to remain, got %d posts", store.Current().Len())
	}
}

func TestStore_WatchReloads(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "corpus.yml")
	writeDefinition(t, path, 3)

	store, err := NewStore(path, func() time.Time { return baseTime })
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- store.Watch(ctx) }()

	// Give the watcher time to register before the file changes.
	time.Sleep(100 * time.Millisecond)
	writeDefinition(t, path, 5)

	deadline := time.Now().Add(3 * time.Second)
	for store.Current().Len() != 5 {
		if time.Now().After(deadline) {
			cancel()
			<-done
			t.Fatalf("Expected corpus to reload to 5 posts, got %d", store.Current().Len())
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Expected clean watcher shutdown, got: %v", err)
	}
}

func TestPolicy_UsesStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.yml")
	writeDefinition(t, path, 4)

	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	policy := NewPolicy(store, 0)
	if got := policy.Choose(cms.Ok(livePosts(1))); len(got.Posts) != 4 || got.Source != SourceFallback {
		t.Errorf("Expected 4 fallback posts, got %d from %s", len(got.Posts), got.Source)
	}
}
