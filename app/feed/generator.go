package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/callatispress/presscomb/app/cms"
)

// PostPath is the public route of a single article.
const PostPath = "/stire/"

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// PostURL returns the public URL of a post under baseURL.
func PostURL(baseURL, slug string) string {
	return strings.TrimRight(baseURL, "/") + PostPath + slug
}

func (g *Generator) Run(channel Channel, posts []cms.Post) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", channel.Title, 4)
	g.writeElement(&buf, "link", channel.Link, 4)
	g.writeElement(&buf, "description", cmp.Or(channel.Description, channel.Title), 4)

	if channel.SelfLink != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(channel.SelfLink)))
	}

	lastBuildDate := cmp.Or(channel.BuiltAt, time.Now()).In(time.Local)
	if len(posts) > 0 && !posts[0].PublishedAt.IsZero() {
		lastBuildDate = posts[0].PublishedAt
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("PressComb/%s", cmp.Or(channel.Version, "dev")), 4)
	g.writeElement(&buf, "language", channel.Language, 4)

	for _, post := range posts {
		g.writeItem(&buf, channel.Link, post)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, baseURL string, post cms.Post) {
	buf.WriteString("    <item>\n")

	link := PostURL(baseURL, post.Slug)

	buf.WriteString("      <guid isPermaLink=\"true\">")
	xml.EscapeText(buf, []byte(link))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", post.Title, 6)
	g.writeElement(buf, "link", link, 6)
	g.writeElement(buf, "description", cmp.Or(post.Excerpt, cms.SanitizeText(post.Content), "No description available"), 6)

	if post.Content != "" {
		buf.WriteString("      <content:encoded><![CDATA[")
		buf.WriteString(strings.ReplaceAll(post.Content, "]]>", "]]]]><![CDATA[>"))
		buf.WriteString("]]></content:encoded>\n")
	}

	if !post.PublishedAt.IsZero() {
		g.writeElement(buf, "pubDate", post.PublishedAt.Format(time.RFC1123Z), 6)
	}

	g.writeElement(buf, "author", post.Author, 6)
	g.writeElement(buf, "category", post.Category.Name, 6)

	if url, mediaType := enclosure(post); url != "" {
		buf.WriteString(fmt.Sprintf("      <enclosure url=\"%s\" length=\"0\" type=\"%s\" />\n",
			html.EscapeString(url),
			html.EscapeString(mediaType)))
	}

	buf.WriteString("    </item>\n")
}

// enclosure picks the video of a post when it has one, otherwise its image.
func enclosure(post cms.Post) (string, string) {
	if post.Video != "" {
		return post.Video, mediaType(post.Video, "video/mp4")
	}
	if post.Image != "" {
		return post.Image, mediaType(post.Image, "image/jpeg")
	}
	return "", ""
}

func mediaType(rawURL, fallback string) string {
	p := rawURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if t := mime.TypeByExtension(path.Ext(p)); t != "" {
		return t
	}
	return fallback
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
