package page

import (
	"fmt"
	"unicode/utf8"

	"github.com/callatispress/presscomb/app/cms"
	"github.com/callatispress/presscomb/app/feed"
)

const (
	RobotsIndex   = "index, follow"
	RobotsNoIndex = "noindex, nofollow"

	descriptionLimit = 160
	ogImageWidth     = 1200
	ogImageHeight    = 630
)

type OGImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Alt    string `json:"alt,omitempty"`
}

// Meta is everything the document head of a page needs.
type Meta struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Canonical   string          `json:"canonical"`
	Robots      string          `json:"robots"`
	OGType      string          `json:"ogType"`
	OGImage     OGImage         `json:"ogImage"`
	SiteName    string          `json:"siteName"`
	Locale      string          `json:"locale"`
	TwitterCard string          `json:"twitterCard"`
	Published   string          `json:"published,omitempty"`
	Section     string          `json:"section,omitempty"`
	Kind        cms.OutcomeKind `json:"kind"`
}

// PostMeta builds the metadata of a post page from the lookup outcome. Ok
// yields full article metadata. NotFound yields a noindex page. Error yields
// neutral, indexable site metadata so an outage never deindexes the URL.
func PostMeta(site Site, slug string, outcome cms.Outcome[cms.Post]) Meta {
	canonical := feed.PostURL(site.BaseURL, slug)

	switch outcome.Kind {
	case cms.KindOK:
		post := outcome.Value
		title := fmt.Sprintf(site.TitleTemplate, post.Title)
		image := post.OGImage
		if image == "" {
			image = post.Image
		}
		if image == "" {
			image = site.OGImage
		}

		meta := Meta{
			Title:       title,
			Description: truncate(firstNonEmpty(post.Excerpt, cms.SanitizeText(post.Content), site.Description), descriptionLimit),
			Canonical:   canonical,
			Robots:      RobotsIndex,
			OGType:      "article",
			OGImage:     OGImage{URL: image, Width: ogImageWidth, Height: ogImageHeight, Alt: post.Title},
			SiteName:    site.Name,
			Locale:      site.Locale,
			TwitterCard: "summary_large_image",
			Section:     post.Category.Name,
			Kind:        outcome.Kind,
		}
		if !post.PublishedAt.IsZero() {
			meta.Published = post.PublishedAt.UTC().Format("2006-01-02T15:04:05Z")
		}
		return meta

	case cms.KindNotFound:
		return Meta{
			Title:       fmt.Sprintf(site.TitleTemplate, "Articol negăsit"),
			Description: site.Description,
			Canonical:   canonical,
			Robots:      RobotsNoIndex,
			OGType:      "website",
			OGImage:     OGImage{URL: site.OGImage, Width: ogImageWidth, Height: ogImageHeight},
			SiteName:    site.Name,
			Locale:      site.Locale,
			TwitterCard: "summary",
			Kind:        outcome.Kind,
		}

	default:
		return SiteMeta(site, canonical, outcome.Kind)
	}
}

// SiteMeta is the neutral metadata of the home page, also used when a page's
// own data is unavailable.
func SiteMeta(site Site, canonical string, kind cms.OutcomeKind) Meta {
	if canonical == "" {
		canonical = site.URL("/")
	}
	return Meta{
		Title:       site.Name,
		Description: site.Description,
		Canonical:   canonical,
		Robots:      RobotsIndex,
		OGType:      "website",
		OGImage:     OGImage{URL: site.OGImage, Width: ogImageWidth, Height: ogImageHeight},
		SiteName:    site.Name,
		Locale:      site.Locale,
		TwitterCard: "summary_large_image",
		Kind:        kind,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
