package nav

import (
	"strings"

	"finitefield.org/fansite/internal/content"
)

// DefaultSection is highlighted before the visitor scrolls.
const DefaultSection = "home"

// RenderedItem is a view model for templates.
type RenderedItem struct {
	Href    string
	Label   string
	Section string // anchor id without '#'
	Active  bool
}

// Build renders in-page navigation with the active section marked.
// An empty or unknown section marks the default one.
func Build(links []content.NavLink, active string) []RenderedItem {
	active = strings.TrimPrefix(strings.TrimSpace(active), "#")
	if active == "" || !hasSection(links, active) {
		active = DefaultSection
	}
	items := make([]RenderedItem, 0, len(links))
	for _, l := range links {
		sec := Section(l.Href)
		items = append(items, RenderedItem{
			Href:    l.Href,
			Label:   l.Label,
			Section: sec,
			Active:  sec == active,
		})
	}
	return items
}

// Section returns the anchor id of an in-page href ("#stats" => "stats").
func Section(href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		return href[i+1:]
	}
	return ""
}

func hasSection(links []content.NavLink, sec string) bool {
	for _, l := range links {
		if Section(l.Href) == sec {
			return true
		}
	}
	return false
}
