package api

import (
	"context"

	"github.com/callatispress/presscomb/app/cms"
	"github.com/callatispress/presscomb/app/database"
	"github.com/callatispress/presscomb/app/fallback"
	"github.com/callatispress/presscomb/app/feed"
	"github.com/callatispress/presscomb/app/navcache"
	"github.com/callatispress/presscomb/app/page"
)

const (
	homePageSize     = 50
	popularPageSize  = 12
	popularLimit     = 6
	defaultLatest    = 4
	maxLatest        = 10
	listingCacheCtl  = "public, s-maxage=60, stale-while-revalidate=300"
	menuEventName    = "nav"
	apiKeyHeaderName = "X-API-Key"
)

// ContentService is the part of the CMS client the handlers read from.
type ContentService interface {
	Configured() bool
	ListPosts(ctx context.Context, opts cms.ListOptions) cms.Outcome[[]cms.Post]
	ListCategories(ctx context.Context) cms.Outcome[[]cms.Category]
	Category(ctx context.Context, slug string) cms.Outcome[cms.Category]
	GetPostBySlug(ctx context.Context, slug string) cms.Outcome[cms.Post]
	SearchPosts(ctx context.Context, query string) cms.Outcome[[]cms.Post]
	LatestByCategory(ctx context.Context, categorySlug string, limit int) cms.Outcome[[]cms.NavPost]
}

// NavigationCache is the read/invalidate surface of the menu cache.
type NavigationCache interface {
	Get(slug string, limit int) []cms.NavPost
	Invalidate(slug string) int
	InvalidateAll() int
	Subscribe() (<-chan navcache.Update, func())
}

type GeneratorInterface interface {
	Run(channel feed.Channel, posts []cms.Post) (string, error)
}

var (
	_ ContentService     = (*cms.Client)(nil)
	_ NavigationCache    = (*navcache.Cache)(nil)
	_ GeneratorInterface = (*feed.Generator)(nil)
)

type Handler struct {
	content   ContentService
	policy    *fallback.Policy
	posts     database.PostStore
	runs      database.RefreshRunStore
	nav       NavigationCache
	generator GeneratorInterface
	site      page.Site
	version   string
}

// compactPost is the shape of the search and latest-news endpoints.
type compactPost struct {
	ID       string        `json:"id"`
	Slug     string        `json:"slug"`
	Title    string        `json:"title"`
	Excerpt  string        `json:"excerpt,omitempty"`
	Image    string        `json:"image,omitempty"`
	Category *cms.Category `json:"category,omitempty"`
}

type listingResponse struct {
	Source   fallback.Source `json:"source"`
	Category *cms.Category   `json:"category,omitempty"`
	Posts    []cms.Post      `json:"posts"`
	Total    int             `json:"total"`
}

type postResponse struct {
	Source  fallback.Source `json:"source"`
	Post    cms.Post        `json:"post"`
	Popular []cms.Post      `json:"popular"`
	Meta    page.Meta       `json:"meta"`
}

type menuEntry struct {
	Category cms.Category  `json:"category"`
	Posts    []cms.NavPost `json:"posts"`
}
