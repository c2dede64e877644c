package handlers

import (
	"strconv"
	"strings"
	"time"

	"finitefield.org/fansite/internal/assets"
	"finitefield.org/fansite/internal/content"
	"finitefield.org/fansite/internal/i18n"
	"finitefield.org/fansite/internal/nav"
	"finitefield.org/fansite/internal/seo"
	"finitefield.org/fansite/internal/stats"
)

// Site bundles the read-only state every view model is built from.
type Site struct {
	Content *content.Store
	Bundle  *i18n.Bundle
	Images  *assets.Registry
	Map     MapSettings
	SiteURL string
}

// LangOption is one entry of the language switcher.
type LangOption struct {
	Code   string
	Label  string
	Href   string
	Active bool
}

// FooterView is the page footer.
type FooterView struct {
	Rights string
	Demo   string
}

// PageData is the view model of the home page.
type PageData struct {
	Lang      string
	Title     string
	Brand     string
	SEO       seo.Meta
	CSRFToken string
	Nav       []nav.RenderedItem
	Languages []LangOption
	Hero      HeroView
	Career    CareerView
	Stats     StatsView
	Gallery   GalleryView
	Connect   ConnectView
	Footer    FooterView
	Toast     *ToastView
}

// PageRequest carries the per-request inputs of the home page.
type PageRequest struct {
	Lang      string
	URL       string
	CSRFToken string
	Sort      stats.SortState
	Filter    content.CategoryKey
	Connect   ConnectState
	Now       time.Time
}

// T translates key in lang.
func (s *Site) T(lang, key string) string { return s.Bundle.T(lang, key) }

// BuildPage assembles the home page.
func (s *Site) BuildPage(req PageRequest) PageData {
	lang := req.Lang
	if req.Now.IsZero() {
		req.Now = time.Now()
	}
	pd := PageData{
		Lang:      lang,
		Title:     s.T(lang, "site.title"),
		Brand:     s.Content.Brand(),
		CSRFToken: req.CSRFToken,
		Nav:       nav.Build(s.Content.NavLinks(lang), ""),
		Languages: s.languages(lang),
		Hero:      s.BuildHero(lang),
		Career:    s.BuildCareer(lang),
		Stats:     s.BuildStats(lang, req.Sort),
		Gallery:   s.BuildGallery(lang, req.Filter),
		Connect:   s.BuildConnect(lang, req.Connect),
		Footer:    s.footer(lang, req.Now),
		Toast:     req.Connect.Toast,
	}
	pd.Connect.CSRFToken = req.CSRFToken
	pd.SEO = s.meta(lang, req.URL, pd.Hero)
	return pd
}

func (s *Site) languages(active string) []LangOption {
	codes := s.Bundle.Supported()
	out := make([]LangOption, 0, len(codes))
	for _, c := range codes {
		out = append(out, LangOption{
			Code:   c,
			Label:  s.T(c, "lang."+c),
			Href:   "/lang/" + c,
			Active: c == active,
		})
	}
	return out
}

func (s *Site) footer(lang string, now time.Time) FooterView {
	return FooterView{
		Rights: strings.ReplaceAll(s.T(lang, "footer.rights"), "{year}", strconv.Itoa(now.Year())),
		Demo:   s.T(lang, "footer.demo"),
	}
}

func (s *Site) meta(lang, pageURL string, hero HeroView) seo.Meta {
	m := seo.Meta{
		Title:       s.T(lang, "site.title"),
		Description: s.T(lang, "site.description"),
	}
	canonical := strings.TrimRight(s.SiteURL, "/") + "/"
	if s.SiteURL == "" {
		canonical = pageURL
	}
	m.Canonical = canonical
	m.OG = seo.OpenGraph{
		Title:       m.Title,
		Description: m.Description,
		Image:       hero.Image.ImageURL,
		Type:        "website",
		URL:         canonical,
		SiteName:    s.Content.Brand(),
		Locale:      seo.OGLocale(lang),
	}
	m.Twitter = seo.Twitter{Card: "summary_large_image", Image: hero.Image.ImageURL}
	if canonical != "" {
		m.Alternates = seo.Alternates(canonical, s.Bundle.Supported(), s.Bundle.Fallback())
	}
	links := s.Content.SocialLinks()
	m.JSONLD = []string{
		seo.JSON(seo.Person(hero.Name, hero.Description, canonical, hero.Image.ImageURL,
			[]string{links.Twitter, links.Instagram, links.Facebook})),
		seo.JSON(seo.WebSite(s.Content.Brand(), canonical, lang)),
	}
	return m
}
