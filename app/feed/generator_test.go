package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/callatispress/presscomb/app/cms"
)

func samplePosts() []cms.Post {
	published := time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)
	return []cms.Post{
		{
			ID:          "42",
			Slug:        "budget-vote",
			Title:       "Budget & Vote",
			Excerpt:     "Short summary",
			Content:     "<p>Body</p>",
			Category:    cms.Category{Slug: "politica", Name: "Politica"},
			Author:      "Ana",
			PublishedAt: published,
			Image:       "https://cms.test/a.jpg?w=1600",
		},
		{
			ID:          "43",
			Slug:        "clip",
			Title:       "Clip",
			Content:     "<video src=\"https://cdn.test/clip.mp4\"></video><p>Watch</p>",
			Category:    cms.Category{Slug: "video", Name: "Video"},
			Author:      "Admin",
			PublishedAt: published.Add(-time.Hour),
			HasVideo:    true,
			Video:       "https://cdn.test/clip.mp4",
		},
	}
}

func TestGenerator_RoundTrip(t *testing.T) {
	generator := NewGenerator()
	channel := Channel{
		Title:       "Callatis Press",
		Link:        "https://news.test/",
		Description: "Ultimele știri",
		Language:    "ro",
		SelfLink:    "https://news.test/feed.xml",
		Version:     "1.2.3",
	}

	rss, err := generator.Run(channel, samplePosts())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(rss, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Error("RSS should contain XML declaration")
	}
	if !strings.Contains(rss, "<generator>PressComb/1.2.3</generator>") {
		t.Error("RSS should contain generator with version")
	}

	parsed, err := gofeed.NewParser().ParseString(rss)
	if err != nil {
		t.Fatalf("Generated RSS does not parse: %v", err)
	}

	if parsed.Title != "Callatis Press" || parsed.Language != "ro" {
		t.Errorf("Unexpected channel: %q %q", parsed.Title, parsed.Language)
	}
	if len(parsed.Items) != 2 {
		t.Fatalf("Expected 2 items, got: %d", len(parsed.Items))
	}

	first := parsed.Items[0]
	if first.Title != "Budget & Vote" {
		t.Errorf("Expected escaped title to round-trip, got: %q", first.Title)
	}
	if first.Link != "https://news.test/stire/budget-vote" {
		t.Errorf("Unexpected link: %s", first.Link)
	}
	if first.Description != "Short summary" {
		t.Errorf("Unexpected description: %q", first.Description)
	}
	if !strings.Contains(first.Content, "<p>Body</p>") {
		t.Errorf("Expected content to round-trip, got: %q", first.Content)
	}
	if first.PublishedParsed == nil || !first.PublishedParsed.Equal(samplePosts()[0].PublishedAt) {
		t.Errorf("Unexpected published date: %v", first.PublishedParsed)
	}
	if len(first.Categories) != 1 || first.Categories[0] != "Politica" {
		t.Errorf("Unexpected categories: %v", first.Categories)
	}
	if len(first.Enclosures) != 1 || first.Enclosures[0].Type != "image/jpeg" {
		t.Errorf("Expected image enclosure, got: %+v", first.Enclosures)
	}

	second := parsed.Items[1]
	if second.Description != "Watch" {
		t.Errorf("Expected description derived from content, got: %q", second.Description)
	}
	if len(second.Enclosures) != 1 || second.Enclosures[0].URL != "https://cdn.test/clip.mp4" || second.Enclosures[0].Type != "video/mp4" {
		t.Errorf("Expected video enclosure, got: %+v", second.Enclosures)
	}
}

func TestGenerator_Empty(t *testing.T) {
	built := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	rss, err := NewGenerator().Run(Channel{Title: "Empty", Link: "https://news.test", BuiltAt: built}, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	parsed, err := gofeed.NewParser().ParseString(rss)
	if err != nil {
		t.Fatalf("Generated RSS does not parse: %v", err)
	}
	if len(parsed.Items) != 0 {
		t.Errorf("Expected no items, got: %d", len(parsed.Items))
	}
	if parsed.Description != "Empty" {
		t.Errorf("Expected description to default to title, got: %q", parsed.Description)
	}
	if parsed.UpdatedParsed == nil || !parsed.UpdatedParsed.Equal(built) {
		t.Errorf("Expected lastBuildDate %v, got: %v", built, parsed.UpdatedParsed)
	}
}

func TestPostURL(t *testing.T) {
	tests := map[string]string{
		"https://news.test":  "https://news.test/stire/a",
		"https://news.test/": "https://news.test/stire/a",
		"":                   "/stire/a",
	}
	for base, want := range tests {
		if got := PostURL(base, "a"); got != want {
			t.Errorf("PostURL(%q) = %q, want %q", base, got, want)
		}
	}
}
