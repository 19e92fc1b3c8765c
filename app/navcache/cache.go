package navcache

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/callatispress/presscomb/app/cms"
)

const (
	DefaultTTL          = 60 * time.Second
	DefaultLimit        = 6
	MaxLimit            = 10
	defaultFetchTimeout = 20 * time.Second
	subscriberBuffer    = 16
)

// Fetcher loads the latest posts of a category. *cms.Client implements it.
type Fetcher interface {
	LatestByCategory(ctx context.Context, categorySlug string, limit int) cms.Outcome[[]cms.NavPost]
}

type FetcherFunc func(ctx context.Context, categorySlug string, limit int) cms.Outcome[[]cms.NavPost]

func (f FetcherFunc) LatestByCategory(ctx context.Context, categorySlug string, limit int) cms.Outcome[[]cms.NavPost] {
	return f(ctx, categorySlug, limit)
}

// Update is broadcast to subscribers every time a refresh completes.
type Update struct {
	Slug      string          `json:"slug"`
	Limit     int             `json:"limit"`
	Items     []cms.NavPost   `json:"items"`
	Kind      cms.OutcomeKind `json:"kind"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

type entry struct {
	// slug is the spelling sent upstream; the key holds the folded form.
	slug      string
	items     []cms.NavPost
	fetchedAt time.Time
	populated bool
	loading   bool
}

type Options struct {
	TTL          time.Duration
	FetchTimeout time.Duration
}

// Cache serves per-category navigation lists without ever blocking the
// caller on the upstream. Reads return whatever is cached and schedule at
// most one background refresh per key.
type Cache struct {
	fetcher      Fetcher
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	entries map[key]*entry
	subs    map[int]chan Update
	nextSub int
	closed  bool
}

func New(fetcher Fetcher, opts Options) *Cache {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	fetchTimeout := opts.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		fetcher:      fetcher,
		ttl:          ttl,
		fetchTimeout: fetchTimeout,
		now:          time.Now,
		ctx:          ctx,
		cancel:       cancel,
		entries:      make(map[key]*entry),
		subs:         make(map[int]chan Update),
	}
}

// Get returns the cached items for a category. An empty or stale entry
// triggers a background refresh unless one is already running; the caller
// gets the current (possibly empty) items immediately.
func (c *Cache) Get(slug string, limit int) []cms.NavPost {
	k := key{slug: foldSlug(slug), limit: clampLimit(limit)}
	if k.slug == "" {
		return []cms.NavPost{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(k, slug)
	if !c.closed && !e.loading && !c.fresh(e) {
		e.loading = true
		c.wg.Add(1)
		go c.refresh(k, e.slug)
	}

	return cloneItems(e.items)
}

// entryLocked returns the entry for k, creating it with the caller's spelling
// of the slug. c.mu must be held.
func (c *Cache) entryLocked(k key, slug string) *entry {
	e, ok := c.entries[k]
	if !ok {
		e = &entry{slug: strings.TrimSpace(slug)}
		c.entries[k] = e
	}
	return e
}

// Invalidate marks every entry of a category stale. Cached items are kept and
// served until the next refresh replaces them.
func (c *Cache) Invalidate(slug string) int {
	folded := foldSlug(slug)

	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.entries {
		if k.slug == folded {
			e.fetchedAt = time.Time{}
			n++
		}
	}
	return n
}

// InvalidateAll marks every entry stale and returns how many there were.
func (c *Cache) InvalidateAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.entries {
		e.fetchedAt = time.Time{}
	}
	return len(c.entries)
}

// Subscribe registers for refresh notifications. Slow subscribers miss
// updates rather than stall the cache. The returned func unsubscribes.
func (c *Cache) Subscribe() (<-chan Update, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Update, subscriberBuffer)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Close cancels in-flight refreshes, waits for them to finish and closes all
// subscriber channels.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

func (c *Cache) fresh(e *entry) bool {
	return e.populated && !e.fetchedAt.IsZero() && c.now().Sub(e.fetchedAt) < c.ttl
}

// Refresh loads a category synchronously and reports the outcome kind. It
// returns false without calling the upstream when a refresh for the same key
// is already running or the cache is closed.
func (c *Cache) Refresh(ctx context.Context, slug string, limit int) (cms.OutcomeKind, bool) {
	k := key{slug: foldSlug(slug), limit: clampLimit(limit)}
	if k.slug == "" {
		return "", false
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", false
	}
	e := c.entryLocked(k, slug)
	if e.loading {
		c.mu.Unlock()
		return "", false
	}
	e.loading = true
	c.wg.Add(1)
	c.mu.Unlock()

	defer c.wg.Done()
	return c.load(ctx, k, e.slug), true
}

func (c *Cache) refresh(k key, slug string) {
	defer c.wg.Done()
	c.load(c.ctx, k, slug)
}

func (c *Cache) load(parent context.Context, k key, slug string) cms.OutcomeKind {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, c.fetchTimeout)
	outcome := c.fetcher.LatestByCategory(ctx, slug, k.limit)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(k, slug)

	switch outcome.Kind {
	case cms.KindOK:
		e.items = cloneItems(outcome.Value)
	case cms.KindNotFound:
		e.items = []cms.NavPost{}
	default:
		slog.Warn("Navigation refresh failed, keeping cached items", "category", slug, "limit", k.limit, "cached", len(e.items), "error", outcome.Message)
	}
	e.fetchedAt = c.now()
	e.populated = true
	e.loading = false

	slog.Debug("Navigation refreshed", "key", k.String(), "kind", outcome.Kind, "items", len(e.items), "duration", time.Since(start))

	update := Update{
		Slug:      slug,
		Limit:     k.limit,
		Items:     cloneItems(e.items),
		Kind:      outcome.Kind,
		FetchedAt: e.fetchedAt,
	}
	for id, ch := range c.subs {
		select {
		case ch <- update:
		default:
			slog.Debug("Dropping navigation update for slow subscriber", "subscriber", id, "key", k.String())
		}
	}

	return outcome.Kind
}

func cloneItems(items []cms.NavPost) []cms.NavPost {
	if items == nil {
		return []cms.NavPost{}
	}
	return slices.Clone(items)
}
