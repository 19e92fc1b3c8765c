package cms

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPageSize  = 20
	MaxPageSize      = 100
	SearchPageSize   = 8
	DefaultTries     = 2
	DefaultTimeout   = 8 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (compatible; PressCombBot/1.0)"
)

// Categories that exist in every WordPress install but are never shown.
var excludedCategories = map[string]bool{
	"uncategorized": true,
}

type Options struct {
	BaseURL     string
	UserAgent   string
	Tries       int
	Timeout     time.Duration
	PageSize    int
	CategoryTTL time.Duration
	HTTPClient  *http.Client
}

// Client is the read-only gateway to the WordPress REST API. All entry points
// return an Outcome and never panic; an empty BaseURL turns every call into an
// Error outcome without touching the network.
type Client struct {
	baseURL    string
	httpClient *http.Client
	header     http.Header
	tries      int
	timeout    time.Duration
	pageSize   int
	resolver   *Resolver
}

type ListOptions struct {
	PageSize     int
	CategorySlug string
}

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	header := http.Header{}
	header.Set("Accept", "application/json")
	header.Set("User-Agent", userAgent)

	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		httpClient: httpClient,
		header:     header,
		tries:      cmp.Or(opts.Tries, DefaultTries),
		timeout:    cmp.Or(opts.Timeout, DefaultTimeout),
		pageSize:   clampPageSize(cmp.Or(opts.PageSize, DefaultPageSize)),
	}
	c.resolver = NewResolver(c, opts.CategoryTTL)

	return c
}

func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// Category looks slug up through the category resolver.
func (c *Client) Category(ctx context.Context, slug string) Outcome[Category] {
	return c.resolver.Lookup(ctx, slug)
}

// ListPosts returns one bounded page of posts in upstream order. A category
// slug the upstream does not know produces an unfiltered listing.
func (c *Client) ListPosts(ctx context.Context, opts ListOptions) Outcome[[]Post] {
	if !c.Configured() {
		return failure[[]Post](ErrNotConfigured)
	}

	q := url.Values{}
	q.Set("per_page", strconv.Itoa(c.resolvePageSize(opts.PageSize)))
	q.Set("_embed", "1")

	if slug := strings.TrimSpace(opts.CategorySlug); slug != "" {
		if id, ok := c.resolver.ResolveCategoryID(ctx, slug); ok {
			q.Set("categories", strconv.Itoa(id))
		} else {
			slog.Debug("Category not resolved, listing unfiltered", "category", slug)
		}
	}

	var raw []wpPost
	if err := c.getJSON(ctx, "posts", q, &raw); err != nil {
		slog.Warn("Upstream listing failed", "operation", "list_posts", "category", opts.CategorySlug, "error", err)
		return failure[[]Post](err)
	}

	return Ok(c.normalizeListing(raw))
}

// ListCategories returns every displayable category.
func (c *Client) ListCategories(ctx context.Context) Outcome[[]Category] {
	if !c.Configured() {
		return failure[[]Category](ErrNotConfigured)
	}

	q := url.Values{}
	q.Set("per_page", strconv.Itoa(MaxPageSize))
	q.Set("hide_empty", "false")

	var raw []wpCategory
	if err := c.getJSON(ctx, "categories", q, &raw); err != nil {
		slog.Warn("Upstream listing failed", "operation", "list_categories", "error", err)
		return failure[[]Category](err)
	}

	categories := make([]Category, 0, len(raw))
	for _, rc := range raw {
		cat := normalizeCategory(rc)
		if cat.Slug == "" || cat.Name == "" {
			continue
		}
		if excludedCategories[strings.ToLower(cat.Slug)] {
			continue
		}
		categories = append(categories, cat)
	}

	return Ok(categories)
}

// GetPostBySlug classifies a single-post lookup. Only a 2xx JSON answer with
// zero records is NotFound; configuration, transport, status and content-type
// problems are all Error.
func (c *Client) GetPostBySlug(ctx context.Context, slug string) Outcome[Post] {
	if !c.Configured() {
		return failure[Post](ErrNotConfigured)
	}

	slug = strings.TrimSpace(slug)
	if slug == "" {
		return NotFound[Post]()
	}

	q := url.Values{}
	q.Set("slug", slug)
	q.Set("_embed", "1")

	var raw []wpPost
	if err := c.getJSON(ctx, "posts", q, &raw); err != nil {
		slog.Warn("Upstream lookup failed", "operation", "get_post", "slug", slug, "error", err)
		return failure[Post](err)
	}

	if len(raw) == 0 {
		return NotFound[Post]()
	}

	post := normalizePost(raw[0])
	if post.Slug == "" {
		post.Slug = slug
	}
	return Ok(post)
}

// SearchPosts runs the upstream full-text search. An empty query is an empty
// result, not an error.
func (c *Client) SearchPosts(ctx context.Context, query string) Outcome[[]Post] {
	if !c.Configured() {
		return failure[[]Post](ErrNotConfigured)
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return Ok([]Post{})
	}

	q := url.Values{}
	q.Set("search", query)
	q.Set("per_page", strconv.Itoa(SearchPageSize))
	q.Set("_embed", "1")

	var raw []wpPost
	if err := c.getJSON(ctx, "posts", q, &raw); err != nil {
		slog.Warn("Upstream search failed", "operation", "search_posts", "error", err)
		return failure[[]Post](err)
	}

	posts := c.normalizeListing(raw)
	for i := range posts {
		posts[i].Featured = false
	}
	return Ok(posts)
}

// LatestByCategory feeds navigation menus. Unlike ListPosts an unknown
// category is NotFound rather than an unfiltered listing.
func (c *Client) LatestByCategory(ctx context.Context, categorySlug string, limit int) Outcome[[]NavPost] {
	if !c.Configured() {
		return failure[[]NavPost](ErrNotConfigured)
	}

	categorySlug = strings.TrimSpace(categorySlug)
	if categorySlug == "" {
		return Ok([]NavPost{})
	}

	lookup := c.resolver.Lookup(ctx, categorySlug)
	if !lookup.IsOK() {
		return Convert(lookup, func(Category) []NavPost { return nil })
	}

	q := url.Values{}
	q.Set("per_page", strconv.Itoa(c.resolvePageSize(limit)))
	q.Set("categories", strconv.Itoa(lookup.Value.ID))
	q.Set("_embed", "1")

	var raw []wpPost
	if err := c.getJSON(ctx, "posts", q, &raw); err != nil {
		slog.Warn("Upstream listing failed", "operation", "latest_by_category", "category", categorySlug, "error", err)
		return failure[[]NavPost](err)
	}

	items := make([]NavPost, 0, len(raw))
	for _, post := range c.normalizeListing(raw) {
		items = append(items, navPostFrom(post, categorySlug))
	}
	return Ok(items)
}

func (c *Client) normalizeListing(raw []wpPost) []Post {
	posts := make([]Post, 0, len(raw))
	for _, p := range raw {
		post := normalizePost(p)
		if post.Slug == "" {
			slog.Debug("Skipping upstream record without slug", "id", p.ID)
			continue
		}
		post.Featured = len(posts) == 0
		posts = append(posts, post)
	}
	return posts
}

func (c *Client) endpoint(resource string, q url.Values) string {
	return fmt.Sprintf("%s/wp-json/wp/v2/%s?%s", c.baseURL, resource, q.Encode())
}

// getJSON fetches resource and decodes the JSON body into v. Errors are
// ErrNotConfigured, *TransportError, *StatusError, or a decode error.
func (c *Client) getJSON(ctx context.Context, resource string, q url.Values, v any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	resp, err := FetchWithRetry(ctx, c.httpClient, c.endpoint(resource, q), FetchOptions{
		Header:  c.header,
		Tries:   c.tries,
		Timeout: c.timeout,
	})
	if err != nil {
		return err
	}

	if !resp.OK() || !resp.IsJSON() {
		return &StatusError{StatusCode: resp.StatusCode, ContentType: resp.Header.Get("Content-Type")}
	}

	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", resource, err)
	}
	return nil
}

func (c *Client) resolvePageSize(n int) int {
	if n <= 0 {
		return c.pageSize
	}
	return clampPageSize(n)
}

func clampPageSize(n int) int {
	return min(max(n, 1), MaxPageSize)
}
