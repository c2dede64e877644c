// Package content holds the bilingual site content. It is parsed once from the embedded
// YAML files and never mutated; accessors hand out copies.
package content

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Fallback is the language used for unsupported codes.
const Fallback = "en"

const siteFile = "site.yaml"

//go:embed data/*.yaml
var embedded embed.FS

// Store is the immutable, process-wide content tree keyed by language code.
type Store struct {
	site  site
	langs map[string]*document
}

var (
	defaultOnce  sync.Once
	defaultStore *Store
	defaultErr   error
)

// Default returns the store parsed from the embedded files. The embedded files are part of
// the binary, so a parse failure is a build defect and panics.
func Default() *Store {
	defaultOnce.Do(func() {
		defaultStore, defaultErr = Load()
	})
	if defaultErr != nil {
		panic(defaultErr)
	}
	return defaultStore
}

// Load parses the embedded content files.
func Load() (*Store, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, err
	}
	return LoadFS(sub)
}

// LoadFS parses site.yaml plus one <lang>.yaml per language from fsys.
func LoadFS(fsys fs.FS) (*Store, error) {
	s := &Store{langs: map[string]*document{}}

	raw, err := fs.ReadFile(fsys, siteFile)
	if err != nil {
		return nil, fmt.Errorf("content: read %s: %w", siteFile, err)
	}
	if err := yaml.Unmarshal(raw, &s.site); err != nil {
		return nil, fmt.Errorf("content: parse %s: %w", siteFile, err)
	}

	names, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, err
	}
	md := newMarkdown()
	for _, name := range names {
		if name == siteFile {
			continue
		}
		lang := strings.TrimSuffix(path.Base(name), ".yaml")
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("content: read %s: %w", name, err)
		}
		doc := &document{}
		dec := yaml.NewDecoder(strings.NewReader(string(raw)))
		dec.KnownFields(true)
		if err := dec.Decode(doc); err != nil {
			return nil, fmt.Errorf("content: parse %s: %w", name, err)
		}
		for i := range doc.Timeline {
			html, err := md.render(doc.Timeline[i].Description)
			if err != nil {
				return nil, fmt.Errorf("content: %s timeline[%d]: %w", lang, i, err)
			}
			doc.Timeline[i].DescriptionHTML = html
		}
		s.langs[lang] = doc
	}
	if _, ok := s.langs[Fallback]; !ok {
		return nil, fmt.Errorf("content: fallback language %q missing", Fallback)
	}
	if err := s.checkShape(); err != nil {
		return nil, err
	}
	return s, nil
}

// Languages returns the loaded language codes, fallback first.
func (s *Store) Languages() []string {
	out := make([]string, 0, len(s.langs))
	for l := range s.langs {
		if l != Fallback {
			out = append(out, l)
		}
	}
	sort.Strings(out)
	return append([]string{Fallback}, out...)
}

// Brand is the site name shown in the header.
func (s *Store) Brand() string { return s.site.Brand }

func (s *Store) doc(lang string) *document {
	if d, ok := s.langs[lang]; ok {
		return d
	}
	return s.langs[Fallback]
}

func (s *Store) NavLinks(lang string) []NavLink {
	return append([]NavLink(nil), s.doc(lang).Nav...)
}

func (s *Store) Hero(lang string) Hero {
	h := s.doc(lang).Hero
	h.Stats = append([]HeroStat(nil), h.Stats...)
	return h
}

func (s *Store) Timeline(lang string) []TimelineEvent {
	return append([]TimelineEvent(nil), s.doc(lang).Timeline...)
}

// Stats returns the career tables with achievements paired to icons by position.
func (s *Store) Stats(lang string) Stats {
	d := s.doc(lang)
	out := Stats{
		Summary:      append([]StatRow(nil), d.Stats.Summary...),
		RunsByYear:   append([]YearRuns(nil), d.Stats.RunsByYear...),
		Achievements: make([]Achievement, 0, len(d.Stats.Achievements)),
	}
	for i, text := range d.Stats.Achievements {
		out.Achievements = append(out.Achievements, Achievement{
			Icon: achievementIcons[i%len(achievementIcons)],
			Text: text,
		})
	}
	return out
}

// Media returns gallery items with their localized category label filled in.
func (s *Store) Media(lang string) Media {
	d := s.doc(lang)
	labels := make(map[CategoryKey]string, len(d.Media.Filters))
	for _, f := range d.Media.Filters {
		labels[f.Key] = f.Label
	}
	items := make([]MediaItem, len(d.Media.Items))
	for i, it := range d.Media.Items {
		it.Category = labels[it.CategoryKey]
		items[i] = it
	}
	return Media{
		Items:   items,
		Filters: append([]MediaFilter(nil), d.Media.Filters...),
	}
}

func (s *Store) SocialFeed(lang string) []SocialPost {
	return append([]SocialPost(nil), s.doc(lang).Social...)
}

func (s *Store) SocialLinks() SocialLinks { return s.site.Links }

func (s *Store) Sections(lang string) Sections { return s.doc(lang).Sections }

// checkShape verifies every language carries the same records: equal counts and equal
// language independent fields (numbers, ids, keys, coordinates).
func (s *Store) checkShape() error {
	ref := s.langs[Fallback]
	var errs []error
	for lang, d := range s.langs {
		if lang == Fallback {
			continue
		}
		fail := func(format string, args ...any) {
			errs = append(errs, fmt.Errorf("content: %s differs from %s: "+format, append([]any{lang, Fallback}, args...)...))
		}
		if len(d.Nav) != len(ref.Nav) {
			fail("nav count %d != %d", len(d.Nav), len(ref.Nav))
		} else {
			for i := range d.Nav {
				if d.Nav[i].Href != ref.Nav[i].Href {
					fail("nav[%d] href %q", i, d.Nav[i].Href)
				}
			}
		}
		if len(d.Hero.Stats) != len(ref.Hero.Stats) {
			fail("hero stats count")
		} else {
			for i := range d.Hero.Stats {
				a, b := d.Hero.Stats[i], ref.Hero.Stats[i]
				if a.Value != b.Value || a.IsApproximate != b.IsApproximate {
					fail("hero stat %d", i)
				}
			}
		}
		if len(d.Timeline) != len(ref.Timeline) {
			fail("timeline count")
		} else {
			for i := range d.Timeline {
				a, b := d.Timeline[i], ref.Timeline[i]
				if a.ImageID != b.ImageID || a.Coords != b.Coords {
					fail("timeline[%d] image or coords", i)
				}
			}
		}
		if len(d.Stats.Summary) != len(ref.Stats.Summary) {
			fail("summary count")
		} else {
			for i := range d.Stats.Summary {
				a, b := d.Stats.Summary[i], ref.Stats.Summary[i]
				if a.Matches != b.Matches || a.Runs != b.Runs || a.HS != b.HS || a.Avg != b.Avg {
					fail("summary[%d] figures", i)
				}
			}
		}
		if len(d.Stats.RunsByYear) != len(ref.Stats.RunsByYear) {
			fail("runs by year count")
		} else {
			for i := range d.Stats.RunsByYear {
				if d.Stats.RunsByYear[i] != ref.Stats.RunsByYear[i] {
					fail("runs by year[%d]", i)
				}
			}
		}
		if len(d.Stats.Achievements) != len(ref.Stats.Achievements) {
			fail("achievements count")
		}
		if len(d.Media.Filters) != len(ref.Media.Filters) {
			fail("media filters count")
		} else {
			for i := range d.Media.Filters {
				if d.Media.Filters[i].Key != ref.Media.Filters[i].Key {
					fail("media filter[%d] key", i)
				}
			}
		}
		if len(d.Media.Items) != len(ref.Media.Items) {
			fail("media items count")
		} else {
			for i := range d.Media.Items {
				a, b := d.Media.Items[i], ref.Media.Items[i]
				if a.ID != b.ID || a.Year != b.Year || a.CategoryKey != b.CategoryKey {
					fail("media item[%d]", i)
				}
			}
		}
		if len(d.Social) != len(ref.Social) {
			fail("social count")
		} else {
			for i := range d.Social {
				a, b := d.Social[i], ref.Social[i]
				if a.ID != b.ID || a.Likes != b.Likes || a.Retweets != b.Retweets {
					fail("social[%d]", i)
				}
			}
		}
	}
	for _, it := range ref.Media.Items {
		if !it.CategoryKey.Valid() || it.CategoryKey == CategoryAll {
			errs = append(errs, fmt.Errorf("content: media item %s has invalid category %q", it.ID, it.CategoryKey))
		}
	}
	return errors.Join(errs...)
}
