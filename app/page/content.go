package page

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var reVariantSuffix = regexp.MustCompile(`-\d+x\d+(\.\w+)$`)

// StripDuplicateFeaturedImage removes the first <figure> that wraps nothing
// but an <img> when that image is the featured image, ignoring WordPress size
// variants (photo-1024x683.jpg matches photo.jpg). Anything else is returned
// unchanged.
func StripDuplicateFeaturedImage(content, featured string) string {
	if content == "" || featured == "" {
		return content
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(content), body)
	if err != nil {
		return content
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}

	figure, src := firstImageFigure(body)
	if figure == nil || imageBase(src) != imageBase(featured) {
		return content
	}
	figure.Parent.RemoveChild(figure)

	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return content
		}
	}
	return buf.String()
}

func firstImageFigure(n *html.Node) (*html.Node, string) {
	if n.Type == html.ElementNode && n.DataAtom == atom.Figure {
		if src, ok := soleImage(n); ok {
			return n, src
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if figure, src := firstImageFigure(c); figure != nil {
			return figure, src
		}
	}
	return nil, ""
}

// soleImage reports the src of the only element child of figure when that
// child is an <img>; whitespace text is ignored.
func soleImage(figure *html.Node) (string, bool) {
	var img *html.Node
	for c := figure.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				return "", false
			}
		case html.ElementNode:
			if c.DataAtom != atom.Img || img != nil {
				return "", false
			}
			img = c
		case html.CommentNode:
		default:
			return "", false
		}
	}
	if img == nil {
		return "", false
	}
	for _, attr := range img.Attr {
		if attr.Key == "src" && attr.Val != "" {
			return attr.Val, true
		}
	}
	return "", false
}

func imageBase(src string) string {
	return reVariantSuffix.ReplaceAllString(strings.TrimSpace(src), "$1")
}
