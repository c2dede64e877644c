package nav

import (
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/fansite/internal/content"
)

func TestBuildMarksActiveSection(t *testing.T) {
	links := content.Default().NavLinks("en")

	items := Build(links, "")
	require.Len(t, items, 5)
	require.True(t, items[0].Active)
	require.Equal(t, "home", items[0].Section)

	items = Build(links, "#stats")
	for _, it := range items {
		require.Equal(t, it.Section == "stats", it.Active, it.Href)
	}

	items = Build(links, "nowhere")
	require.True(t, items[0].Active)
}

func TestSection(t *testing.T) {
	require.Equal(t, "gallery", Section("#gallery"))
	require.Equal(t, "connect", Section("/#connect"))
	require.Equal(t, "", Section("/about"))
}
