package api

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/callatispress/presscomb/app/cms"
	"github.com/callatispress/presscomb/app/database"
	"github.com/callatispress/presscomb/app/fallback"
	"github.com/callatispress/presscomb/app/feed"
	"github.com/callatispress/presscomb/app/navcache"
	"github.com/callatispress/presscomb/app/page"
)

// sourceSnapshot marks a post served from the last-good SQLite snapshot.
const sourceSnapshot fallback.Source = "snapshot"

func NewHandler(content ContentService, policy *fallback.Policy, posts database.PostStore,
	runs database.RefreshRunStore, nav NavigationCache, site page.Site, version string) *Handler {
	return &Handler{
		content:   content,
		policy:    policy,
		posts:     posts,
		runs:      runs,
		nav:       nav,
		generator: feed.NewGenerator(),
		site:      site,
		version:   version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	ctx := c.Request.Context()

	health := map[string]interface{}{
		"timestamp":      time.Now().In(time.Local).Format(time.RFC3339),
		"version":        h.version,
		"cms_configured": h.content.Configured(),
		"fallback_posts": h.policy.Corpus().Len(),
	}

	if count, err := h.posts.CountPosts(ctx); err == nil {
		health["snapshot_posts"] = count
	} else {
		slog.Error("Database error", "operation", "count_posts", "error", err)
	}

	if run, err := h.runs.LastRun(ctx); err == nil && run != nil {
		health["last_refresh"] = map[string]interface{}{
			"outcome":     run.Outcome,
			"posts":       run.PostCount,
			"message":     run.Message,
			"finished_at": run.FinishedAt.In(time.Local).Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, health)
}

// ListPosts serves the home page listing: live when the upstream returned
// enough posts, the fallback corpus otherwise.
func (h *Handler) ListPosts(c *gin.Context) {
	listing := h.homeListing(c)

	c.JSON(http.StatusOK, listingResponse{
		Source: listing.Source,
		Posts:  listing.Posts,
		Total:  len(listing.Posts),
	})
}

func (h *Handler) ListCategories(c *gin.Context) {
	outcome := h.content.ListCategories(c.Request.Context())
	if outcome.IsOK() {
		c.JSON(http.StatusOK, cms.Items(outcome))
		return
	}

	slog.Warn("Serving fallback categories", "kind", outcome.Kind, "error", outcome.Err())
	c.JSON(http.StatusOK, h.policy.Corpus().Categories())
}

func (h *Handler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusOK, []compactPost{})
		return
	}

	outcome := h.content.SearchPosts(c.Request.Context(), query)
	if outcome.IsError() {
		slog.Error("Search failed", "query", query, "error", outcome.Err())
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Search is temporarily unavailable"})
		return
	}

	results := make([]compactPost, 0, len(cms.Items(outcome)))
	for _, post := range cms.Items(outcome) {
		results = append(results, compactPost{
			ID:      post.ID,
			Slug:    post.Slug,
			Title:   post.Title,
			Excerpt: post.Excerpt,
			Image:   post.Image,
		})
	}

	c.JSON(http.StatusOK, results)
}

func (h *Handler) Latest(c *gin.Context) {
	limit := queryLimit(c, defaultLatest, maxLatest)

	listing := h.homeListing(c)
	posts := listing.Posts
	fallback.SortNewest(posts)
	if len(posts) > limit {
		posts = posts[:limit]
	}

	results := make([]compactPost, 0, len(posts))
	for _, post := range posts {
		category := post.Category
		results = append(results, compactPost{
			ID:       post.ID,
			Slug:     post.Slug,
			Title:    post.Title,
			Category: &cms.Category{Slug: category.Slug, Name: category.Name},
		})
	}

	c.Header("Cache-Control", listingCacheCtl)
	c.JSON(http.StatusOK, results)
}

func (h *Handler) NavPosts(c *gin.Context) {
	category := strings.TrimSpace(c.Query("category"))
	limit := queryLimit(c, navcache.DefaultLimit, navcache.MaxLimit)

	c.Header("Cache-Control", listingCacheCtl)
	if category == "" {
		c.JSON(http.StatusOK, []cms.NavPost{})
		return
	}

	outcome := h.content.LatestByCategory(c.Request.Context(), category, limit)
	if outcome.IsError() {
		slog.Warn("Navigation posts unavailable", "category", category, "error", outcome.Err())
	}

	c.JSON(http.StatusOK, cms.Items(outcome))
}

func (h *Handler) CategoryPosts(c *gin.Context) {
	slug := strings.ToLower(strings.TrimSpace(c.Param("slug")))
	if slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing category slug"})
		return
	}
	ctx := c.Request.Context()

	lookup := h.content.Category(ctx, slug)
	if lookup.IsOK() {
		live := cms.Items(h.content.ListPosts(ctx, cms.ListOptions{PageSize: homePageSize, CategorySlug: slug}))
		if len(live) > 0 {
			category := lookup.Value
			c.JSON(http.StatusOK, listingResponse{Source: fallback.SourceLive, Category: &category, Posts: live, Total: len(live)})
			return
		}
	}

	corpus := h.policy.Corpus()
	if category, ok := corpus.Category(slug); ok {
		posts := corpus.ByCategory(slug)
		if lookup.IsOK() {
			category = lookup.Value
		}
		c.JSON(http.StatusOK, listingResponse{Source: fallback.SourceFallback, Category: &category, Posts: posts, Total: len(posts)})
		return
	}

	if lookup.IsOK() {
		category := lookup.Value
		c.JSON(http.StatusOK, listingResponse{Source: fallback.SourceLive, Category: &category, Posts: []cms.Post{}, Total: 0})
		return
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
}

func (h *Handler) GetPost(c *gin.Context) {
	slug := c.Param("slug")
	ctx := c.Request.Context()

	outcome := h.content.GetPostBySlug(ctx, slug)
	switch outcome.Kind {
	case cms.KindOK:
		post := outcome.Value
		post.Content = page.StripDuplicateFeaturedImage(post.Content, post.Image)
		c.JSON(http.StatusOK, postResponse{
			Source:  fallback.SourceLive,
			Post:    post,
			Popular: h.livePopular(c, post),
			Meta:    page.PostMeta(h.site, slug, outcome),
		})
		return

	case cms.KindNotFound:
		if post, ok := h.policy.Corpus().BySlug(slug); ok {
			h.writeFallbackPost(c, post)
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	slog.Warn("Post lookup failed", "slug", slug, "status", outcome.Status, "error", outcome.Err())

	snapshot, err := h.posts.GetPost(ctx, slug)
	if err != nil {
		slog.Error("Database error", "operation", "get_post", "slug", slug, "error", err)
	}
	if snapshot != nil {
		post := *snapshot
		post.Content = page.StripDuplicateFeaturedImage(post.Content, post.Image)
		c.JSON(http.StatusOK, postResponse{
			Source:  sourceSnapshot,
			Post:    post,
			Popular: h.policy.Corpus().Popular(post.Category.Slug, post.Slug, popularLimit),
			Meta:    page.PostMeta(h.site, slug, cms.Ok(post)),
		})
		return
	}

	if post, ok := h.policy.Corpus().BySlug(slug); ok {
		h.writeFallbackPost(c, post)
		return
	}

	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error": "Content is temporarily unavailable",
		"meta":  page.PostMeta(h.site, slug, outcome),
	})
}

func (h *Handler) GetPostMeta(c *gin.Context) {
	slug := c.Param("slug")
	outcome := h.content.GetPostBySlug(c.Request.Context(), slug)

	if outcome.IsNotFound() {
		if post, ok := h.policy.Corpus().BySlug(slug); ok {
			outcome = cms.Ok(post)
		}
	}

	c.JSON(http.StatusOK, page.PostMeta(h.site, slug, outcome))
}

func (h *Handler) GetMenu(c *gin.Context) {
	limit := queryLimit(c, navcache.DefaultLimit, navcache.MaxLimit)

	outcome := h.content.ListCategories(c.Request.Context())
	categories := cms.Items(outcome)
	if !outcome.IsOK() {
		categories = h.policy.Corpus().Categories()
	}

	menu := make([]menuEntry, 0, len(categories))
	for _, category := range categories {
		menu = append(menu, menuEntry{
			Category: category,
			Posts:    h.nav.Get(category.Slug, limit),
		})
	}

	c.JSON(http.StatusOK, menu)
}

// MenuEvents streams a server-sent event for every navigation cache refresh
// until the client disconnects.
func (h *Handler) MenuEvents(c *gin.Context) {
	updates, unsubscribe := h.nav.Subscribe()
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case update, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent(menuEventName, update)
			return true
		}
	})
}

func (h *Handler) InvalidateMenu(c *gin.Context) {
	slug := c.Param("slug")
	if strings.TrimSpace(slug) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing category slug"})
		return
	}

	count := h.nav.Invalidate(slug)
	slog.Info("Navigation cache invalidated", "category", slug, "entries", count)

	c.JSON(http.StatusOK, gin.H{
		"category":    slug,
		"invalidated": count,
	})
}

func (h *Handler) InvalidateAllMenus(c *gin.Context) {
	count := h.nav.InvalidateAll()
	slog.Info("Navigation cache invalidated", "category", "*", "entries", count)

	c.JSON(http.StatusOK, gin.H{"invalidated": count})
}

func (h *Handler) GetFeed(c *gin.Context) {
	listing := h.homeListing(c)
	posts := listing.Posts
	fallback.SortNewest(posts)

	channel := feed.Channel{
		Title:       h.site.Name,
		Link:        h.site.BaseURL,
		Description: h.site.Description,
		Language:    "ro",
		SelfLink:    h.site.URL("/feed.xml"),
		Version:     h.version,
		BuiltAt:     time.Now(),
	}

	rss, err := h.generator.Run(channel, posts)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/rss+xml; charset=utf-8")
	c.Header("Cache-Control", listingCacheCtl)
	c.Header("X-Feed-Items", strconv.Itoa(len(posts)))
	c.Header("X-Feed-Source", string(listing.Source))

	c.String(http.StatusOK, rss)
}

func (h *Handler) homeListing(c *gin.Context) fallback.Listing {
	live := h.content.ListPosts(c.Request.Context(), cms.ListOptions{PageSize: homePageSize})
	if live.IsError() {
		slog.Warn("Live listing unavailable", "status", live.Status, "error", live.Err())
	}
	return h.policy.Choose(live)
}

func (h *Handler) livePopular(c *gin.Context, post cms.Post) []cms.Post {
	outcome := h.content.ListPosts(c.Request.Context(), cms.ListOptions{
		PageSize:     popularPageSize,
		CategorySlug: post.Category.Slug,
	})

	popular := make([]cms.Post, 0, popularLimit)
	for _, p := range cms.Items(outcome) {
		if p.Slug == post.Slug || p.Category.Slug != post.Category.Slug {
			continue
		}
		popular = append(popular, p)
		if len(popular) == popularLimit {
			break
		}
	}
	if len(popular) == 0 {
		return h.policy.Corpus().Popular(post.Category.Slug, post.Slug, popularLimit)
	}
	return popular
}

func (h *Handler) writeFallbackPost(c *gin.Context, post cms.Post) {
	c.JSON(http.StatusOK, postResponse{
		Source:  fallback.SourceFallback,
		Post:    post,
		Popular: h.policy.Corpus().Popular(post.Category.Slug, post.Slug, popularLimit),
		Meta:    page.PostMeta(h.site, post.Slug, cms.Ok(post)),
	})
}

// queryLimit reads ?limit=, falling back to def for missing or invalid values
// and clamping to upper.
func queryLimit(c *gin.Context, def, upper int) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return def
	}
	if limit > upper {
		return upper
	}
	return limit
}
