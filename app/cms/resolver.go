package cms

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const DefaultCategoryTTL = 5 * time.Minute

type resolvedCategory struct {
	category Category
	found    bool
	expires  time.Time
}

// Resolver maps category slugs to upstream ids. Confirmed answers (found or
// absent) are kept for the revalidation window; failures are not cached.
// Concurrent lookups of the same slug share one upstream call.
type Resolver struct {
	client  *Client
	ttl     time.Duration
	mu      sync.Mutex
	entries map[string]resolvedCategory
	group   singleflight.Group
	now     func() time.Time
}

func NewResolver(client *Client, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = DefaultCategoryTTL
	}
	return &Resolver{
		client:  client,
		ttl:     ttl,
		entries: make(map[string]resolvedCategory),
		now:     time.Now,
	}
}

// ResolveCategoryID returns the upstream id for slug, or false when the
// upstream is unconfigured, unreachable, or has no such category.
func (r *Resolver) ResolveCategoryID(ctx context.Context, slug string) (int, bool) {
	outcome := r.Lookup(ctx, slug)
	if !outcome.IsOK() || outcome.Value.ID == 0 {
		return 0, false
	}
	return outcome.Value.ID, true
}

func (r *Resolver) Lookup(ctx context.Context, slug string) Outcome[Category] {
	if !r.client.Configured() {
		return failure[Category](ErrNotConfigured)
	}

	key := strings.ToLower(strings.TrimSpace(slug))
	if key == "" {
		return NotFound[Category]()
	}

	if cached, ok := r.cached(key); ok {
		if cached.found {
			return Ok(cached.category)
		}
		return NotFound[Category]()
	}

	// Joined callers share this fetch, so one caller's cancellation must not
	// fail the others. FetchWithRetry still bounds each attempt.
	fetchCtx := context.WithoutCancel(ctx)
	v, _, _ := r.group.Do(key, func() (interface{}, error) {
		return r.fetch(fetchCtx, key), nil
	})
	return v.(Outcome[Category])
}

func (r *Resolver) cached(key string) (resolvedCategory, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[key]
	if !ok || r.now().After(entry.expires) {
		return resolvedCategory{}, false
	}
	return entry, true
}

func (r *Resolver) fetch(ctx context.Context, key string) Outcome[Category] {
	q := url.Values{}
	q.Set("slug", key)
	q.Set("per_page", "1")

	var raw []wpCategory
	if err := r.client.getJSON(ctx, "categories", q, &raw); err != nil {
		slog.Warn("Category lookup failed", "category", key, "error", err)
		return failure[Category](err)
	}

	entry := resolvedCategory{expires: r.now().Add(r.ttl)}
	if len(raw) > 0 && raw[0].ID != 0 {
		entry.category = normalizeCategory(raw[0])
		entry.found = true
	}

	r.mu.Lock()
	r.entries[key] = entry
	r.mu.Unlock()

	if !entry.found {
		return NotFound[Category]()
	}
	return Ok(entry.category)
}
