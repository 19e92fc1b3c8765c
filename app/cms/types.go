package cms

import (
	"time"
)

// Canonical content model. Everything outside this package consumes these
// types regardless of whether the data came from the CMS or the fallback corpus.

type Category struct {
	ID   int    `json:"id,omitempty"` // upstream id, zero when unknown
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// GeneralCategory is assigned to records that carry no category taxonomy.
var GeneralCategory = Category{Slug: "general", Name: "General"}

type Post struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Excerpt     string    `json:"excerpt"`
	Content     string    `json:"content"` // sanitized HTML fragment as served by the CMS
	Category    Category  `json:"category"`
	Author      string    `json:"author"`
	PublishedAt time.Time `json:"publishedAt"`
	Image       string    `json:"image"` // display URL or empty string
	OGImage     string    `json:"ogImage,omitempty"`
	Images      []string  `json:"images"`
	HasVideo    bool      `json:"hasVideo"`
	Video       string    `json:"video,omitempty"`
	Featured    bool      `json:"featured"`
	Views       int       `json:"views"`
}

// NavPost is the compact shape used by navigation menus.
type NavPost struct {
	Slug         string `json:"slug"`
	Title        string `json:"title"`
	CategorySlug string `json:"categorySlug"`
	Image        string `json:"image,omitempty"`
	DateLabel    string `json:"dateLabel,omitempty"`
}

// DateLabel formats t the way the site prints short dates (dd.mm.yyyy).
func DateLabel(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(time.Local).Format("02.01.2006")
}
