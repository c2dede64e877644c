package gallery

import (
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/fansite/internal/assets"
	"finitefield.org/fansite/internal/content"
)

type images map[string]assets.Image

func (m images) Lookup(id string) (assets.Image, bool) {
	img, ok := m[id]
	return img, ok
}

func ids(items []content.MediaItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestFilter(t *testing.T) {
	t.Parallel()

	items := content.Default().Media("en").Items

	all := Filter(items, content.CategoryAll)
	require.Equal(t, []string{"gallery-2", "gallery-6", "gallery-5", "gallery-3", "gallery-1", "gallery-4"}, ids(all))

	require.Equal(t, []string{"gallery-2"}, ids(Filter(items, content.CategoryBatting)))
	require.Equal(t, []string{"gallery-5"}, ids(Filter(items, content.CategoryAward)))
	require.Empty(t, Filter(items, content.CategoryKey("Bowling")))

	for _, k := range content.Categories[1:] {
		for _, it := range Filter(items, k) {
			require.Equal(t, k, it.CategoryKey)
		}
	}
}

func TestFilterIgnoresLanguage(t *testing.T) {
	t.Parallel()

	s := content.Default()
	require.Equal(t,
		ids(Filter(s.Media("en").Items, content.CategoryTraining)),
		ids(Filter(s.Media("hi").Items, content.CategoryTraining)))
}

func TestParseFilter(t *testing.T) {
	t.Parallel()

	require.Equal(t, content.CategoryBatting, ParseFilter("batting"))
	require.Equal(t, content.CategoryInterview, ParseFilter(" Interview "))
	require.Equal(t, content.CategoryAll, ParseFilter(""))
	require.Equal(t, content.CategoryAll, ParseFilter("bowling"))
}

func TestOpen(t *testing.T) {
	t.Parallel()

	items := content.Default().Media("en").Items
	reg := images{"gallery-2": {ID: "gallery-2", ImageURL: "https://example.com/2.jpg"}}

	m, ok := Open(items, "gallery-2", reg)
	require.True(t, ok)
	require.Equal(t, "gallery-2", m.Item.ID)
	require.Equal(t, "https://example.com/2.jpg", m.Image.ImageURL)

	_, ok = Open(items, "gallery-6", reg)
	require.False(t, ok, "item without an image")

	_, ok = Open(items, "gallery-99", reg)
	require.False(t, ok, "unknown item")
}

func TestTilesSkipMissingImages(t *testing.T) {
	t.Parallel()

	items := content.Default().Media("en").Items
	reg := images{"gallery-1": {ID: "gallery-1"}, "gallery-4": {ID: "gallery-4"}}
	tiles := Tiles(items, reg)
	require.Len(t, tiles, 2)
	require.Equal(t, "gallery-1", tiles[0].Item.ID)
	require.Equal(t, "gallery-4", tiles[1].Item.ID)
}
