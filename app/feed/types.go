package feed

import (
	"time"
)

// Channel describes the site-level fields of the generated RSS document.
type Channel struct {
	Title       string
	Link        string // public site URL, no trailing slash
	Description string
	Language    string
	SelfLink    string
	Version     string
	BuiltAt     time.Time
}
