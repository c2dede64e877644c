package handlers

import (
	"fmt"
	"html/template"
	"net/url"
	"strconv"

	"finitefield.org/fansite/internal/assets"
	"finitefield.org/fansite/internal/content"
	"finitefield.org/fansite/internal/counter"
	"finitefield.org/fansite/internal/format"
	"finitefield.org/fansite/internal/gallery"
	"finitefield.org/fansite/internal/stats"
)

// CounterView renders an animated figure. Display is the final text; the script
// animates up to it from zero.
type CounterView struct {
	Label       string
	Target      int
	Approximate bool
	Display     string
	Lang        string
	DurationMs  int64
	Threshold   float64
}

func newCounter(label string, target int, approximate bool, lang string) CounterView {
	return CounterView{
		Label:       label,
		Target:      target,
		Approximate: approximate,
		Display:     counter.Display(target, target, approximate, lang),
		Lang:        lang,
		DurationMs:  counter.Duration.Milliseconds(),
		Threshold:   counter.Threshold,
	}
}

type HeroView struct {
	Name        string
	Description string
	Button      string
	Image       assets.Image
	HasImage    bool
	Stats       []CounterView
}

func (s *Site) BuildHero(lang string) HeroView {
	h := s.Content.Hero(lang)
	img, ok := s.Images.Lookup("hero")
	v := HeroView{
		Name:        h.Name,
		Description: h.Description,
		Button:      h.Button,
		Image:       img,
		HasImage:    ok,
	}
	for _, st := range h.Stats {
		v.Stats = append(v.Stats, newCounter(st.Label, st.Value, st.IsApproximate, lang))
	}
	return v
}

// EventView is a timeline entry. Image is only set when the registry knows it.
type EventView struct {
	Index       int
	Title       string
	Year        string
	Location    string
	Description template.HTML
	Image       assets.Image
	HasImage    bool
	Left        bool
}

type CareerView struct {
	Copy       content.SectionCopy
	MapTitle   string
	MarkersURL string
	Events     []EventView
}

func (s *Site) BuildCareer(lang string) CareerView {
	events := s.Content.Timeline(lang)
	v := CareerView{
		Copy:       s.Content.Sections(lang).Career,
		MapTitle:   s.T(lang, "timeline.map"),
		MarkersURL: "/api/v1/timeline/markers?hl=" + url.QueryEscape(lang),
		Events:     make([]EventView, 0, len(events)),
	}
	for i := range events {
		v.Events = append(v.Events, s.eventView(events, i))
	}
	return v
}

// BuildEvent returns the timeline entry at index.
func (s *Site) BuildEvent(lang string, index int) (EventView, bool) {
	events := s.Content.Timeline(lang)
	if index < 0 || index >= len(events) {
		return EventView{}, false
	}
	return s.eventView(events, index), true
}

func (s *Site) eventView(events []content.TimelineEvent, i int) EventView {
	e := events[i]
	img, ok := s.Images.Lookup(e.ImageID)
	return EventView{
		Index:       i,
		Title:       e.Title,
		Year:        e.Year,
		Location:    e.Location,
		Description: e.DescriptionHTML,
		Image:       img,
		HasImage:    ok,
		Left:        i%2 == 0,
	}
}

// ColumnView is a sortable table header.
type ColumnView struct {
	Key      stats.Column
	Label    string
	Active   bool
	Dir      stats.Direction
	AriaSort string
	Href     string
	FragURL  string
}

type RowView struct {
	Format  string
	Matches string
	Runs    string
	HS      string
	Avg     string
}

type BarView struct {
	Year    string
	Runs    int
	Display string
	Percent int
}

type StatsView struct {
	Copy         content.StatsCopy
	Sort         stats.SortState
	Columns      []ColumnView
	Rows         []RowView
	Bars         []BarView
	Achievements []content.Achievement
}

func (s *Site) BuildStats(lang string, state stats.SortState) StatsView {
	if state.Key == "" {
		state = stats.DefaultSort()
	}
	data := s.Content.Stats(lang)
	cp := s.Content.Sections(lang).Stats
	v := StatsView{Copy: cp, Sort: state, Achievements: data.Achievements}

	labels := map[stats.Column]string{
		stats.ColFormat:  cp.ColFormat,
		stats.ColMatches: cp.ColMatches,
		stats.ColRuns:    cp.ColRuns,
		stats.ColHS:      cp.ColHS,
		stats.ColAvg:     cp.ColAvg,
	}
	for _, col := range stats.Columns {
		next := state.Next(col)
		q := url.Values{}
		q.Set("sort", string(next.Key))
		q.Set("dir", string(next.Dir))
		q.Set("hl", lang)
		cv := ColumnView{
			Key:      col,
			Label:    labels[col],
			AriaSort: "none",
			Href:     "/?" + q.Encode() + "#stats",
			FragURL:  "/fragments/stats?" + q.Encode(),
		}
		if col == state.Key {
			cv.Active = true
			cv.Dir = state.Dir
			cv.AriaSort = map[stats.Direction]string{stats.Asc: "ascending", stats.Desc: "descending"}[state.Dir]
		}
		v.Columns = append(v.Columns, cv)
	}

	for _, r := range stats.Sort(data.Summary, state, lang) {
		v.Rows = append(v.Rows, RowView{
			Format:  r.Format,
			Matches: format.Number(r.Matches, lang),
			Runs:    format.Number(r.Runs, lang),
			HS:      r.HS,
			Avg:     strconv.FormatFloat(r.Avg, 'f', 2, 64),
		})
	}

	maxRuns := 0
	for _, y := range data.RunsByYear {
		maxRuns = max(maxRuns, y.Runs)
	}
	for _, y := range data.RunsByYear {
		pct := 0
		if maxRuns > 0 {
			pct = y.Runs * 100 / maxRuns
		}
		v.Bars = append(v.Bars, BarView{Year: y.Year, Runs: y.Runs, Display: format.Number(y.Runs, lang), Percent: pct})
	}
	return v
}

type FilterView struct {
	Key     content.CategoryKey
	Label   string
	Active  bool
	FragURL string
}

type GalleryView struct {
	Copy    content.SectionCopy
	Active  content.CategoryKey
	Filters []FilterView
	Tiles   []gallery.Tile
	Empty   string
	Lang    string
}

func (s *Site) BuildGallery(lang string, key content.CategoryKey) GalleryView {
	if !key.Valid() {
		key = content.CategoryAll
	}
	media := s.Content.Media(lang)
	v := GalleryView{
		Copy:   s.Content.Sections(lang).Media,
		Active: key,
		Tiles:  gallery.Tiles(gallery.Filter(media.Items, key), s.Images),
		Empty:  s.T(lang, "gallery.empty"),
		Lang:   lang,
	}
	for _, f := range media.Filters {
		v.Filters = append(v.Filters, FilterView{
			Key:     f.Key,
			Label:   f.Label,
			Active:  f.Key == key,
			FragURL: fmt.Sprintf("/fragments/gallery?filter=%s&hl=%s", url.QueryEscape(string(f.Key)), url.QueryEscape(lang)),
		})
	}
	return v
}

// ModalView is the enlarged gallery item.
type ModalView struct {
	gallery.Modal
	Close string
}

// BuildModal resolves one gallery item; ok is false when nothing should be shown.
func (s *Site) BuildModal(lang, id string) (ModalView, bool) {
	m, ok := gallery.Open(s.Content.Media(lang).Items, id, s.Images)
	if !ok {
		return ModalView{}, false
	}
	return ModalView{Modal: m, Close: s.T(lang, "gallery.close")}, true
}
