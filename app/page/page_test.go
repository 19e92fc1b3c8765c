package page

import (
	"strings"
	"testing"
	"time"

	"github.com/callatispress/presscomb/app/cms"
)

func TestStripDuplicateFeaturedImage(t *testing.T) {
	featured := "https://cms.test/wp-content/uploads/2024/05/photo.jpg"

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "duplicate variant removed",
			content: `<figure class="wp-block-image"><img src="https://cms.test/wp-content/uploads/2024/05/photo-1024x683.jpg" alt=""/></figure><p>Body</p>`,
			want:    `<p>Body</p>`,
		},
		{
			name:    "whitespace inside figure",
			content: "<figure>\n  <img src=\"https://cms.test/wp-content/uploads/2024/05/photo.jpg\">\n</figure><p>Body</p>",
			want:    `<p>Body</p>`,
		},
		{
			name:    "different image kept",
			content: `<figure><img src="https://cms.test/other.jpg"/></figure><p>Body</p>`,
			want:    `<figure><img src="https://cms.test/other.jpg"/></figure><p>Body</p>`,
		},
		{
			name:    "figure with caption kept",
			content: `<figure><img src="https://cms.test/wp-content/uploads/2024/05/photo.jpg"/><figcaption>c</figcaption></figure>`,
			want:    `<figure><img src="https://cms.test/wp-content/uploads/2024/05/photo.jpg"/><figcaption>c</figcaption></figure>`,
		},
		{
			name:    "no figure",
			content: `<p>Body</p>`,
			want:    `<p>Body</p>`,
		},
		{
			name:    "only first duplicate removed",
			content: `<p>a</p><figure><img src="https://cms.test/wp-content/uploads/2024/05/photo-300x200.jpg"></figure><figure><img src="https://cms.test/wp-content/uploads/2024/05/photo.jpg"></figure>`,
			want:    `<p>a</p><figure><img src="https://cms.test/wp-content/uploads/2024/05/photo.jpg"/></figure>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripDuplicateFeaturedImage(tt.content, featured); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}

	if got := StripDuplicateFeaturedImage("<p>x</p>", ""); got != "<p>x</p>" {
		t.Errorf("Expected content unchanged without featured image, got: %q", got)
	}
}

func TestPostMeta(t *testing.T) {
	site := DefaultSite("https://news.test/")
	post := cms.Post{
		Slug:        "budget-vote",
		Title:       "Budget vote",
		Excerpt:     strings.Repeat("a", 200),
		Category:    cms.Category{Slug: "politica", Name: "Politica"},
		PublishedAt: time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC),
		Image:       "https://cms.test/a.webp",
		OGImage:     "https://cms.test/a.jpg",
	}

	ok := PostMeta(site, "budget-vote", cms.Ok(post))
	if ok.Title != "Budget vote | Știri Locale" {
		t.Errorf("Unexpected title: %s", ok.Title)
	}
	if ok.Robots != RobotsIndex || ok.OGType != "article" {
		t.Errorf("Expected indexable article, got %s %s", ok.Robots, ok.OGType)
	}
	if ok.Canonical != "https://news.test/stire/budget-vote" {
		t.Errorf("Unexpected canonical: %s", ok.Canonical)
	}
	if ok.OGImage.URL != "https://cms.test/a.jpg" {
		t.Errorf("Expected social-safe image, got: %s", ok.OGImage.URL)
	}
	if n := len([]rune(ok.Description)); n != descriptionLimit {
		t.Errorf("Expected description truncated to %d runes, got: %d", descriptionLimit, n)
	}
	if ok.Published != "2024-05-10T09:30:00Z" || ok.Section != "Politica" {
		t.Errorf("Unexpected article fields: %s %s", ok.Published, ok.Section)
	}

	missing := PostMeta(site, "gone", cms.NotFound[cms.Post]())
	if missing.Robots != RobotsNoIndex {
		t.Errorf("Expected noindex for missing post, got: %s", missing.Robots)
	}

	failed := PostMeta(site, "budget-vote", cms.Failed[cms.Post](503, "down"))
	if failed.Robots != RobotsIndex {
		t.Errorf("Expected indexable metadata on upstream error, got: %s", failed.Robots)
	}
	if failed.Title != site.Name || failed.Description != site.Description {
		t.Errorf("Expected neutral site metadata, got: %+v", failed)
	}
	if failed.Canonical != "https://news.test/stire/budget-vote" {
		t.Errorf("Expected canonical to keep the post URL, got: %s", failed.Canonical)
	}
	if failed.Kind != cms.KindError {
		t.Errorf("Expected error kind, got: %s", failed.Kind)
	}
}

func TestPostMeta_ImageFallbacks(t *testing.T) {
	site := DefaultSite("https://news.test")

	meta := PostMeta(site, "a", cms.Ok(cms.Post{Title: "A", Image: "https://cms.test/a.png"}))
	if meta.OGImage.URL != "https://cms.test/a.png" {
		t.Errorf("Expected display image fallback, got: %s", meta.OGImage.URL)
	}

	meta = PostMeta(site, "a", cms.Ok(cms.Post{Title: "A", Content: "<p>Only body</p>"}))
	if meta.OGImage.URL != site.OGImage {
		t.Errorf("Expected site image fallback, got: %s", meta.OGImage.URL)
	}
	if meta.Description != "Only body" {
		t.Errorf("Expected description from content, got: %s", meta.Description)
	}
}

func TestSiteMeta(t *testing.T) {
	site := DefaultSite("https://news.test")
	meta := SiteMeta(site, "", cms.KindOK)

	if meta.Canonical != "https://news.test/" {
		t.Errorf("Expected home canonical, got: %s", meta.Canonical)
	}
	if meta.Robots != RobotsIndex {
		t.Errorf("Expected indexable, got: %s", meta.Robots)
	}
}
