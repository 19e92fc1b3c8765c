package cms

import (
	"encoding/json"
)

// Upstream WordPress REST shapes. Every field is optional; records are
// converted into the canonical model right after decoding and never leave
// this package.

type wpRendered struct {
	Rendered string `json:"rendered"`
}

type wpPost struct {
	ID       int         `json:"id"`
	Slug     string      `json:"slug"`
	Date     string      `json:"date"`
	DateGMT  string      `json:"date_gmt"`
	Title    wpRendered  `json:"title"`
	Excerpt  wpRendered  `json:"excerpt"`
	Content  wpRendered  `json:"content"`
	Embedded *wpEmbedded `json:"_embedded"`
}

type wpEmbedded struct {
	Author        []wpAuthor `json:"author"`
	FeaturedMedia []wpMedia  `json:"wp:featuredmedia"`
	Terms         [][]wpTerm `json:"wp:term"`
}

type wpAuthor struct {
	Name string `json:"name"`
}

type wpMedia struct {
	SourceURL    string          `json:"source_url"`
	MediaDetails *wpMediaDetails `json:"media_details"`
}

type wpMediaDetails struct {
	File  string                 `json:"file"`
	Sizes map[string]wpMediaSize `json:"sizes"`
}

// WordPress serializes empty media details as [] for some attachment types.
func (d *wpMediaDetails) UnmarshalJSON(data []byte) error {
	type plain wpMediaDetails
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		*d = wpMediaDetails{}
		return nil
	}
	*d = wpMediaDetails(v)
	return nil
}

type wpMediaSize struct {
	SourceURL string `json:"source_url"`
}

type wpTerm struct {
	ID       int    `json:"id"`
	Taxonomy string `json:"taxonomy"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
}

type wpCategory struct {
	ID   int    `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}
