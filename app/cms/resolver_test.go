package cms

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestResolver_CachesAnswers(t *testing.T) {
	f := newFakeWP(t)
	c := f.client()
	r := c.resolver
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id, ok := r.ResolveCategoryID(ctx, "Politica ")
		if !ok || id != 7 {
			t.Fatalf("Expected id 7, got %d (%v)", id, ok)
		}
	}
	if n := f.categoryLookup.Load(); n != 1 {
		t.Errorf("Expected 1 upstream lookup, got: %d", n)
	}

	for i := 0; i < 3; i++ {
		if got := r.Lookup(ctx, "missing"); !got.IsNotFound() {
			t.Fatalf("Expected NotFound, got: %s", got.Kind)
		}
	}
	if n := f.categoryLookup.Load(); n != 2 {
		t.Errorf("Expected absent answers to be cached too, got %d lookups", n)
	}
}

func TestResolver_ExpiresEntries(t *testing.T) {
	f := newFakeWP(t)
	c := f.client()
	r := c.resolver
	ctx := context.Background()

	now := time.Now()
	r.now = func() time.Time { return now }

	r.ResolveCategoryID(ctx, "politica")
	now = now.Add(DefaultCategoryTTL + time.Second)
	r.ResolveCategoryID(ctx, "politica")

	if n := f.categoryLookup.Load(); n != 2 {
		t.Errorf("Expected a second lookup after expiry, got: %d", n)
	}
}

func TestResolver_ConcurrentLookups(t *testing.T) {
	f := newFakeWP(t)
	c := f.client()
	r := c.resolver

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if id, ok := r.ResolveCategoryID(context.Background(), "politica"); !ok || id != 7 {
				t.Errorf("Expected id 7, got %d (%v)", id, ok)
			}
		}()
	}
	wg.Wait()

	if n := f.categoryLookup.Load(); n < 1 || n > 20 {
		t.Errorf("Unexpected lookup count: %d", n)
	}
}

func TestResolver_EmptySlug(t *testing.T) {
	f := newFakeWP(t)
	r := f.client().resolver

	if got := r.Lookup(context.Background(), "  "); !got.IsNotFound() {
		t.Errorf("Expected NotFound for empty slug, got: %s", got.Kind)
	}
	if f.categoryLookup.Load() != 0 {
		t.Error("Expected no upstream call for empty slug")
	}
}

func TestResolver_SharedLookupIgnoresCallerCancel(t *testing.T) {
	f := newFakeWP(t)
	r := f.client().resolver

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := r.Lookup(ctx, "politica")
	if !got.IsOK() || got.Value.ID != 7 {
		t.Fatalf("Expected politica to resolve despite a cancelled caller, got: %s", got.Kind)
	}

	// The answer is cached for callers that joined or arrive later.
	if id, ok := r.ResolveCategoryID(context.Background(), "politica"); !ok || id != 7 {
		t.Errorf("Expected cached id 7, got %d (%v)", id, ok)
	}
	if n := f.categoryLookup.Load(); n != 1 {
		t.Errorf("Expected 1 upstream lookup, got: %d", n)
	}
}
