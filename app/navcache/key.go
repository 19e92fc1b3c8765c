package navcache

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type key struct {
	slug  string
	limit int
}

func (k key) String() string {
	return fmt.Sprintf("%s#%d", k.slug, k.limit)
}

// foldSlug maps equivalent spellings of a category slug ("Știri ", "stiri")
// to one cache key.
func foldSlug(slug string) string {
	t := transform.Chain(cases.Fold(), norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.TrimSpace(slug))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(slug))
	}
	return folded
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}
