package page

import (
	"strings"
)

// Site holds the site-wide defaults used whenever a page has nothing more
// specific to say.
type Site struct {
	Name          string
	BaseURL       string
	Description   string
	TitleTemplate string
	Locale        string
	OGImage       string
}

func DefaultSite(baseURL string) Site {
	return Site{
		Name:          "Callatis Press",
		BaseURL:       strings.TrimRight(baseURL, "/"),
		Description:   "Știri din România: actualitate, local, politică, sport, ultimă oră.",
		TitleTemplate: "%s | Știri Locale",
		Locale:        "ro_RO",
		OGImage:       "https://cms.callatispress.ro/wp/wp-content/uploads/2025/12/og-home.jpg",
	}
}

// URL joins p to the site base URL.
func (s Site) URL(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return s.BaseURL + p
}
