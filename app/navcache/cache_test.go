package navcache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/callatispress/presscomb/app/cms"
)

type stubFetcher struct {
	calls   atomic.Int32
	release chan struct{}
	mu      sync.Mutex
	outcome cms.Outcome[[]cms.NavPost]
	slugs   []string
}

func newStubFetcher(items ...cms.NavPost) *stubFetcher {
	return &stubFetcher{outcome: cms.Ok(items)}
}

func (s *stubFetcher) LatestByCategory(ctx context.Context, slug string, limit int) cms.Outcome[[]cms.NavPost] {
	s.calls.Add(1)
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return cms.Failed[[]cms.NavPost](0, ctx.Err().Error())
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.slugs = append(s.slugs, slug)
	return s.outcome
}

func (s *stubFetcher) set(o cms.Outcome[[]cms.NavPost]) {
	s.mu.Lock()
	s.outcome = o
	s.mu.Unlock()
}

// cached reads an entry without scheduling a refresh.
func cached(c *Cache, slug string, limit int) ([]cms.NavPost, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key{slug: foldSlug(slug), limit: clampLimit(limit)}]
	if !ok || !e.populated {
		return []cms.NavPost{}, false
	}
	return cloneItems(e.items), true
}

func waitUpdate(t *testing.T, updates <-chan Update) Update {
	t.Helper()
	select {
	case u, ok := <-updates:
		if !ok {
			t.Fatal("Subscription closed unexpectedly")
		}
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for navigation update")
	}
	return Update{}
}

func TestCache_EmptyReadStartsRefresh(t *testing.T) {
	defer goleak.VerifyNone(t)

	fetcher := newStubFetcher(cms.NavPost{Slug: "a", Title: "A"})
	cache := New(fetcher, Options{})
	defer cache.Close()

	updates, unsubscribe := cache.Subscribe()
	defer unsubscribe()

	if items := cache.Get("politica", 5); items == nil || len(items) != 0 {
		t.Fatalf("Expected empty non-nil items on first read, got: %v", items)
	}

	u := waitUpdate(t, updates)
	if u.Slug != "politica" || u.Limit != 5 || len(u.Items) != 1 {
		t.Errorf("Unexpected update: %+v", u)
	}

	items := cache.Get("politica", 5)
	if len(items) != 1 || items[0].Slug != "a" {
		t.Errorf("Expected cached items, got: %v", items)
	}
	if n := fetcher.calls.Load(); n != 1 {
		t.Errorf("Expected fresh read to skip the upstream, got %d calls", n)
	}
}

func TestCache_ConcurrentReadsShareOneFetch(t *testing.T) {
	defer goleak.VerifyNone(t)

	fetcher := newStubFetcher(cms.NavPost{Slug: "a"})
	fetcher.release = make(chan struct{})
	cache := New(fetcher, Options{})
	defer cache.Close()

	updates, unsubscribe := cache.Subscribe()
	defer unsubscribe()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cache.Get("Politica", 5)
		}()
	}
	wg.Wait()

	close(fetcher.release)
	waitUpdate(t, updates)

	if n := fetcher.calls.Load(); n != 1 {
		t.Errorf("Expected exactly 1 upstream call, got: %d", n)
	}
}

func TestCache_StaleReadRefreshesOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	fetcher := newStubFetcher(cms.NavPost{Slug: "old"})
	cache := New(fetcher, Options{TTL: time.Minute})
	defer cache.Close()

	var mu sync.Mutex
	now := time.Now()
	cache.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	updates, unsubscribe := cache.Subscribe()
	defer unsubscribe()

	cache.Get("sport", 0)
	waitUpdate(t, updates)

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()

	fetcher.set(cms.Ok([]cms.NavPost{{Slug: "new"}}))
	fetcher.release = make(chan struct{})

	for i := 0; i < 5; i++ {
		items := cache.Get("sport", 0)
		if len(items) != 1 || items[0].Slug != "old" {
			t.Fatalf("Expected stale items while refreshing, got: %v", items)
		}
	}

	close(fetcher.release)
	u := waitUpdate(t, updates)
	if len(u.Items) != 1 || u.Items[0].Slug != "new" {
		t.Errorf("Expected subscribers to observe new items, got: %+v", u.Items)
	}
	if n := fetcher.calls.Load(); n != 2 {
		t.Errorf("Expected 2 upstream calls, got: %d", n)
	}
	if u.Limit != DefaultLimit {
		t.Errorf("Expected default limit %d, got: %d", DefaultLimit, u.Limit)
	}
}

func TestCache_FailureKeepsItems(t *testing.T) {
	defer goleak.VerifyNone(t)

	fetcher := newStubFetcher(cms.NavPost{Slug: "kept"})
	cache := New(fetcher, Options{})
	defer cache.Close()

	updates, unsubscribe := cache.Subscribe()
	defer unsubscribe()

	cache.Get("sport", 3)
	waitUpdate(t, updates)

	fetcher.set(cms.Failed[[]cms.NavPost](503, "upstream returned HTTP 503"))
	if n := cache.Invalidate("SPORT"); n != 1 {
		t.Errorf("Expected 1 invalidated entry, got: %d", n)
	}
	cache.Get("sport", 3)

	u := waitUpdate(t, updates)
	if u.Kind != cms.KindError {
		t.Errorf("Expected error kind in update, got: %s", u.Kind)
	}
	if len(u.Items) != 1 || u.Items[0].Slug != "kept" {
		t.Errorf("Expected prior items to survive failure, got: %v", u.Items)
	}

	items, ok := cached(cache, "sport", 3)
	if !ok || len(items) != 1 {
		t.Errorf("Expected populated entry, got %v (%v)", items, ok)
	}
}

func TestCache_NotFoundClearsItems(t *testing.T) {
	defer goleak.VerifyNone(t)

	fetcher := newStubFetcher(cms.NavPost{Slug: "x"})
	cache := New(fetcher, Options{})
	defer cache.Close()

	updates, unsubscribe := cache.Subscribe()
	defer unsubscribe()

	cache.Get("gone", 3)
	waitUpdate(t, updates)

	fetcher.set(cms.NotFound[[]cms.NavPost]())
	if n := cache.InvalidateAll(); n != 1 {
		t.Errorf("Expected 1 invalidated entry, got: %d", n)
	}
	cache.Get("gone", 3)

	if u := waitUpdate(t, updates); len(u.Items) != 0 {
		t.Errorf("Expected empty items for unknown category, got: %v", u.Items)
	}
}

func TestCache_KeyFolding(t *testing.T) {
	defer goleak.VerifyNone(t)

	fetcher := newStubFetcher()
	cache := New(fetcher, Options{})
	defer cache.Close()

	updates, unsubscribe := cache.Subscribe()
	defer unsubscribe()

	cache.Get(" Știri ", 4)
	waitUpdate(t, updates)
	cache.Get("stiri", 4)

	if n := fetcher.calls.Load(); n != 1 {
		t.Errorf("Expected equivalent slugs to share an entry, got %d calls", n)
	}
	if fetcher.slugs[0] != "Știri" {
		t.Errorf("Expected the upstream to get the slug as written, got: %q", fetcher.slugs[0])
	}

	if items := cache.Get("   ", 4); len(items) != 0 {
		t.Errorf("Expected empty items for blank slug, got: %v", items)
	}
}

func TestCache_CloseStopsRefreshes(t *testing.T) {
	defer goleak.VerifyNone(t)

	fetcher := newStubFetcher()
	fetcher.release = make(chan struct{})
	cache := New(fetcher, Options{})

	updates, _ := cache.Subscribe()
	cache.Get("sport", 3)
	cache.Close()

	for range updates {
	}

	cache.Get("other", 3)
	if n := fetcher.calls.Load(); n > 1 {
		t.Errorf("Expected no refresh after Close, got %d calls", n)
	}
}

func TestFoldSlug(t *testing.T) {
	tests := map[string]string{
		"Politica":   "politica",
		" Știri ":    "stiri",
		"ECONOMIE":   "economie",
		"cultură":    "cultura",
		"":           "",
		"sport-auto": "sport-auto",
	}
	for in, want := range tests {
		if got := foldSlug(in); got != want {
			t.Errorf("foldSlug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCache_Refresh(t *testing.T) {
	defer goleak.VerifyNone(t)

	fetcher := newStubFetcher(cms.NavPost{Slug: "warm"})
	cache := New(fetcher, Options{})
	defer cache.Close()

	kind, ran := cache.Refresh(context.Background(), "sport", 4)
	if !ran || kind != cms.KindOK {
		t.Fatalf("Expected synchronous refresh, got %s (%v)", kind, ran)
	}

	items, ok := cached(cache, "sport", 4)
	if !ok || len(items) != 1 || items[0].Slug != "warm" {
		t.Errorf("Expected warmed entry, got %v (%v)", items, ok)
	}

	cache.Get("sport", 4)
	if n := fetcher.calls.Load(); n != 1 {
		t.Errorf("Expected warmed entry to be fresh, got %d calls", n)
	}

	if _, ran := cache.Refresh(context.Background(), " ", 4); ran {
		t.Error("Expected blank slug to be skipped")
	}
}

func TestCache_RefreshSkipsWhileLoading(t *testing.T) {
	defer goleak.VerifyNone(t)

	fetcher := newStubFetcher()
	fetcher.release = make(chan struct{})
	cache := New(fetcher, Options{})
	defer cache.Close()

	updates, unsubscribe := cache.Subscribe()
	defer unsubscribe()

	cache.Get("sport", 4)
	if _, ran := cache.Refresh(context.Background(), "sport", 4); ran {
		t.Error("Expected refresh to be skipped while another load is running")
	}

	close(fetcher.release)
	waitUpdate(t, updates)
}
