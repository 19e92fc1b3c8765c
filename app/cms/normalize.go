package cms

import (
	"net/url"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const defaultAuthor = "Admin"

var (
	reTag        = regexp.MustCompile(`<[^>]*>`)
	reSpace      = regexp.MustCompile(`\s+`)
	reVideo      = regexp.MustCompile(`(?i)<video|<source|<iframe|<embed|youtube\.com|youtu\.be|vimeo\.com`)
	reVideoSrc   = regexp.MustCompile(`(?is)<(?:video|source)\b[^>]*?\bsrc\s*=\s*["']([^"']+)["']`)
	reSizeSuffix = regexp.MustCompile(`-(?:\d+x\d+|scaled)(\.[A-Za-z0-9]+)$`)
)

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&quot;", `"`,
	"&#039;", "'",
	"&lt;", "<",
	"&gt;", ">",
	"&nbsp;", " ",
	"&hellip;", "…",
)

// Preferred display variants, largest reasonable first.
var imageSizePreference = []string{"large", "medium_large", "medium", "full"}

// Extensions some social crawlers refuse; the upstream pipeline publishes a
// .jpg sibling next to each of them.
var ogUnsupportedExt = map[string]bool{
	".webp": true,
	".avif": true,
	".heic": true,
	".heif": true,
}

const uploadsMarker = "/wp-content/uploads/"

// SanitizeText turns an HTML fragment into plain text in one pass: tags are
// removed, whitespace collapsed, then the fixed entity table decoded. Decoded
// text is never parsed for markup again, so "&lt;" in prose stays a literal "<".
func SanitizeText(s string) string {
	text := reTag.ReplaceAllString(s, "")
	text = strings.TrimSpace(reSpace.ReplaceAllString(text, " "))
	return entityReplacer.Replace(text)
}

// DetectVideo reports whether any fragment carries a recognized video marker.
func DetectVideo(fragments ...string) bool {
	for _, f := range fragments {
		if f != "" && reVideo.MatchString(f) {
			return true
		}
	}
	return false
}

func extractVideoURL(content string) string {
	if m := reVideoSrc.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func extractCategory(terms [][]wpTerm) Category {
	for _, group := range terms {
		for _, term := range group {
			if term.Taxonomy == "category" {
				return Category{ID: term.ID, Slug: term.Slug, Name: SanitizeText(term.Name)}
			}
		}
	}
	return GeneralCategory
}

func displayImage(media *wpMedia) string {
	if media == nil {
		return ""
	}

	if details := media.MediaDetails; details != nil && len(details.Sizes) > 0 {
		for _, key := range imageSizePreference {
			if size, ok := details.Sizes[key]; ok && size.SourceURL != "" {
				return size.SourceURL
			}
		}

		keys := make([]string, 0, len(details.Sizes))
		for key := range details.Sizes {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if src := details.Sizes[key].SourceURL; src != "" {
				return src
			}
		}
	}

	return media.SourceURL
}

func ogImage(media *wpMedia) string {
	if media == nil {
		return ""
	}

	src := media.SourceURL
	if src == "" && media.MediaDetails != nil {
		src = media.MediaDetails.Sizes["full"].SourceURL
	}
	if src == "" {
		return ""
	}

	original := src
	if details := media.MediaDetails; details != nil && details.File != "" {
		if i := strings.Index(src, uploadsMarker); i >= 0 {
			original = src[:i+len(uploadsMarker)] + strings.TrimPrefix(details.File, "/")
		}
	}

	return socialSafe(originalUpload(original))
}

// originalUpload removes the size suffix WordPress appends to generated
// variants (photo-1024x683.jpg, photo-scaled.jpg).
func originalUpload(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return reSizeSuffix.ReplaceAllString(rawURL, "$1")
	}
	u.Path = reSizeSuffix.ReplaceAllString(u.Path, "$1")
	return u.String()
}

func socialSafe(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	ext := path.Ext(u.Path)
	if !ogUnsupportedExt[strings.ToLower(ext)] {
		return rawURL
	}
	u.Path = strings.TrimSuffix(u.Path, ext) + ".jpg"
	return u.String()
}

func parsePublished(date, dateGMT string) time.Time {
	if dateGMT != "" {
		if t, err := time.ParseInLocation("2006-01-02T15:04:05", dateGMT, time.UTC); err == nil {
			return t
		}
	}
	if date == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, date); err == nil {
		return t
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", date, time.Local); err == nil {
		return t
	}
	return time.Time{}
}

func normalizePost(p wpPost) Post {
	content := p.Content.Rendered

	var (
		media  *wpMedia
		terms  [][]wpTerm
		author = defaultAuthor
	)
	if e := p.Embedded; e != nil {
		if len(e.FeaturedMedia) > 0 {
			media = &e.FeaturedMedia[0]
		}
		terms = e.Terms
		if len(e.Author) > 0 && strings.TrimSpace(e.Author[0].Name) != "" {
			author = strings.TrimSpace(e.Author[0].Name)
		}
	}

	image := displayImage(media)
	images := []string{}
	if image != "" {
		images = append(images, image)
	}

	video := extractVideoURL(content)

	return Post{
		ID:          strconv.Itoa(p.ID),
		Slug:        p.Slug,
		Title:       SanitizeText(p.Title.Rendered),
		Excerpt:     SanitizeText(p.Excerpt.Rendered),
		Content:     content,
		Category:    extractCategory(terms),
		Author:      author,
		PublishedAt: parsePublished(p.Date, p.DateGMT),
		Image:       image,
		OGImage:     ogImage(media),
		Images:      images,
		HasVideo:    DetectVideo(content, video),
		Video:       video,
		Views:       0,
	}
}

func normalizeCategory(c wpCategory) Category {
	return Category{
		ID:   c.ID,
		Slug: strings.TrimSpace(c.Slug),
		Name: SanitizeText(c.Name),
	}
}

func navPostFrom(p Post, categorySlug string) NavPost {
	return NavPost{
		Slug:         p.Slug,
		Title:        p.Title,
		CategorySlug: categorySlug,
		Image:        p.Image,
		DateLabel:    DateLabel(p.PublishedAt),
	}
}
