// Package gallery filters media items and resolves them against the image registry.
package gallery

import (
	"strings"

	"finitefield.org/fansite/internal/assets"
	"finitefield.org/fansite/internal/content"
)

// Lookup resolves an image id.
type Lookup interface {
	Lookup(id string) (assets.Image, bool)
}

// ParseFilter maps a query value to a category key. Matching ignores case; unknown
// values select All.
func ParseFilter(v string) content.CategoryKey {
	v = strings.TrimSpace(v)
	for _, k := range content.Categories {
		if strings.EqualFold(string(k), v) {
			return k
		}
	}
	return content.CategoryAll
}

// Filter returns the items in key's category, preserving order. All returns every item.
func Filter(items []content.MediaItem, key content.CategoryKey) []content.MediaItem {
	out := make([]content.MediaItem, 0, len(items))
	for _, it := range items {
		if key == content.CategoryAll || it.CategoryKey == key {
			out = append(out, it)
		}
	}
	return out
}

// Tile is a grid cell: a media item with its image.
type Tile struct {
	Item  content.MediaItem
	Image assets.Image
}

// Tiles pairs items with registered images. Items without an image are left out.
func Tiles(items []content.MediaItem, images Lookup) []Tile {
	out := make([]Tile, 0, len(items))
	for _, it := range items {
		if img, ok := images.Lookup(it.ID); ok {
			out = append(out, Tile{Item: it, Image: img})
		}
	}
	return out
}

// Modal is the enlarged view of one item.
type Modal struct {
	Item  content.MediaItem
	Image assets.Image
}

// Open finds id among items and resolves its image. ok is false when either is missing,
// in which case nothing should be shown.
func Open(items []content.MediaItem, id string, images Lookup) (Modal, bool) {
	for _, it := range items {
		if it.ID != id {
			continue
		}
		img, ok := images.Lookup(id)
		if !ok {
			return Modal{}, false
		}
		return Modal{Item: it, Image: img}, true
	}
	return Modal{}, false
}
