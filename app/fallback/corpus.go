package fallback

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/callatispress/presscomb/app/cms"
)

// Corpus is the fixed set of demo posts used when the CMS is unavailable or
// thin. It is generated once from a seeded definition and never mutated.
type Corpus struct {
	posts      []cms.Post
	categories []cms.Category
	bySlug     map[string]int
}

// Default builds the corpus from the embedded definition.
func Default(now time.Time) (*Corpus, error) {
	def, err := DefaultDefinition()
	if err != nil {
		return nil, err
	}
	return Build(def, now), nil
}

// Build generates the corpus. The same definition and base time always yield
// the same posts.
func Build(def *Definition, now time.Time) *Corpus {
	rng := rand.New(rand.NewPCG(def.Seed, def.Seed^0x9e3779b97f4a7c15))

	categories := make([]cms.Category, 0, len(def.Categories))
	for _, c := range def.Categories {
		categories = append(categories, cms.Category{Slug: c.Slug, Name: c.Name})
	}

	maxAge := time.Duration(def.MaxAgeDays) * 24 * time.Hour

	corpus := &Corpus{
		posts:      make([]cms.Post, 0, def.Count),
		categories: categories,
		bySlug:     make(map[string]int, def.Count),
	}

	for i := 0; i < def.Count; i++ {
		n := i + 1
		image := def.Images[i%len(def.Images)]

		post := cms.Post{
			ID:       fmt.Sprintf("p_%d", n),
			Slug:     fmt.Sprintf("articol-demo-%d", n),
			Title:    fmt.Sprintf("%s #%d", pick(rng, def.TitleSeeds), n),
			Excerpt:  def.Excerpt,
			Content:  strings.TrimSpace(def.Content),
			Category: pick(rng, categories),
			Author:   pick(rng, def.Authors),
			Image:    image,
			Images: []string{
				image,
				def.Images[(i+1)%len(def.Images)],
				def.Images[(i+2)%len(def.Images)],
			},
			Featured: i == 0,
		}

		if maxAge > 0 {
			post.PublishedAt = now.Add(-time.Duration(rng.Int64N(int64(maxAge))))
		} else {
			post.PublishedAt = now
		}
		if def.MaxViews > 0 {
			post.Views = rng.IntN(def.MaxViews)
		}

		if def.VideoEvery > 0 && i%def.VideoEvery == 0 {
			post.Video = pick(rng, def.Videos)
			post.Content = fmt.Sprintf("<video controls src=%q></video>\n%s", post.Video, post.Content)
		}
		post.HasVideo = cms.DetectVideo(post.Content, post.Video)

		corpus.bySlug[post.Slug] = len(corpus.posts)
		corpus.posts = append(corpus.posts, post)
	}

	return corpus
}

func pick[T any](rng *rand.Rand, items []T) T {
	return items[rng.IntN(len(items))]
}

func clonePost(p cms.Post) cms.Post {
	p.Images = slices.Clone(p.Images)
	return p
}

func clonePosts(posts []cms.Post) []cms.Post {
	out := make([]cms.Post, 0, len(posts))
	for _, p := range posts {
		out = append(out, clonePost(p))
	}
	return out
}

// Posts returns every post in generation order.
func (c *Corpus) Posts() []cms.Post {
	return clonePosts(c.posts)
}

func (c *Corpus) Categories() []cms.Category {
	return slices.Clone(c.categories)
}

func (c *Corpus) Len() int {
	return len(c.posts)
}

func (c *Corpus) BySlug(slug string) (cms.Post, bool) {
	i, ok := c.bySlug[slug]
	if !ok {
		return cms.Post{}, false
	}
	return clonePost(c.posts[i]), true
}

// HasCategory reports whether slug names one of the corpus categories.
func (c *Corpus) HasCategory(slug string) bool {
	_, ok := c.Category(slug)
	return ok
}

func (c *Corpus) Category(slug string) (cms.Category, bool) {
	i := slices.IndexFunc(c.categories, func(cat cms.Category) bool {
		return cat.Slug == slug
	})
	if i < 0 {
		return cms.Category{}, false
	}
	return c.categories[i], true
}

// ByCategory returns the posts of a category, newest first.
func (c *Corpus) ByCategory(slug string) []cms.Post {
	var posts []cms.Post
	for _, p := range c.posts {
		if p.Category.Slug == slug {
			posts = append(posts, clonePost(p))
		}
	}
	SortNewest(posts)
	if posts == nil {
		return []cms.Post{}
	}
	return posts
}

// Popular returns up to limit posts of a category ordered by views, skipping
// excludeSlug.
func (c *Corpus) Popular(categorySlug, excludeSlug string, limit int) []cms.Post {
	posts := make([]cms.Post, 0)
	for _, p := range c.posts {
		if p.Category.Slug == categorySlug && p.Slug != excludeSlug {
			posts = append(posts, clonePost(p))
		}
	}
	slices.SortStableFunc(posts, func(a, b cms.Post) int {
		return b.Views - a.Views
	})
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts
}

// SortNewest orders posts by publication time, newest first.
func SortNewest(posts []cms.Post) {
	slices.SortStableFunc(posts, func(a, b cms.Post) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})
}
