package seo

import (
	"net/url"
)

type OpenGraph struct {
	Title       string
	Description string
	Image       string
	Type        string
	URL         string
	SiteName    string
	Locale      string
}

type Twitter struct {
	Card  string
	Site  string
	Image string
}

// Alternate is one hreflang link.
type Alternate struct {
	Href     string
	Hreflang string
}

type Meta struct {
	Title       string
	Description string
	Canonical   string
	OG          OpenGraph
	Twitter     Twitter
	Alternates  []Alternate
	JSONLD      []string
}

// Alternates links every language version of base via ?hl=, plus x-default.
func Alternates(base string, langs []string, fallback string) []Alternate {
	out := make([]Alternate, 0, len(langs)+1)
	for _, l := range langs {
		out = append(out, Alternate{Href: withLang(base, l), Hreflang: l})
	}
	if fallback != "" {
		out = append(out, Alternate{Href: withLang(base, fallback), Hreflang: "x-default"})
	}
	return out
}

func withLang(base, lang string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("hl", lang)
	u.RawQuery = q.Encode()
	return u.String()
}

// OGLocale maps a language code to an Open Graph locale.
func OGLocale(lang string) string {
	switch lang {
	case "hi":
		return "hi_IN"
	default:
		return "en_US"
	}
}
