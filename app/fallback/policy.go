package fallback

import (
	"log/slog"

	"github.com/callatispress/presscomb/app/cms"
)

const DefaultMinLive = 8

type Source string

const (
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
)

// Listing is the post list a page renders together with where it came from.
type Listing struct {
	Posts  []cms.Post
	Source Source
}

// Policy decides between a live listing and the demo corpus. The two are
// never mixed: a live listing shorter than MinLive is discarded entirely.
type Policy struct {
	MinLive int
	Source  CorpusSource
}

func NewPolicy(source CorpusSource, minLive int) *Policy {
	if minLive <= 0 {
		minLive = DefaultMinLive
	}
	return &Policy{MinLive: minLive, Source: source}
}

func (p *Policy) Corpus() *Corpus {
	return p.Source.Current()
}

func (p *Policy) Choose(live cms.Outcome[[]cms.Post]) Listing {
	posts := cms.Items(live)
	if live.IsOK() && len(posts) >= p.MinLive {
		return Listing{Posts: posts, Source: SourceLive}
	}

	slog.Debug("Using fallback corpus", "kind", live.Kind, "live_posts", len(posts), "min_live", p.MinLive)
	return Listing{Posts: p.Corpus().Posts(), Source: SourceFallback}
}
