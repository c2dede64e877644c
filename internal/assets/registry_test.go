package assets

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbeddedRegistry(t *testing.T) {
	t.Parallel()

	reg, err := Embedded()
	require.NoError(t, err)
	require.Equal(t, 12, reg.Len())

	for _, id := range []string{"hero", "gallery-1", "gallery-6", "timeline-1", "timeline-5"} {
		img, ok := reg.Lookup(id)
		require.Truef(t, ok, "missing %s", id)
		require.NotEmpty(t, img.ImageURL)
		require.NotEmpty(t, img.Description)
	}

	_, ok := reg.Lookup("timeline-6")
	require.False(t, ok)
}

func TestLoadEmptySourceUsesEmbedded(t *testing.T) {
	t.Parallel()

	reg, err := Load(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, "hero", reg.IDs()[0])
}

func TestParseRejectsBadManifests(t *testing.T) {
	t.Parallel()

	_, err := Parse(strings.NewReader(`{"placeholderImages":[{"id":""}]}`))
	require.Error(t, err)

	_, err = Parse(strings.NewReader(`{"placeholderImages":[{"id":"a"},{"id":"a"}]}`))
	require.ErrorContains(t, err, "duplicate")

	_, err = Parse(strings.NewReader(`not json`))
	require.Error(t, err)
}

func TestNilRegistry(t *testing.T) {
	t.Parallel()

	var reg *Registry
	_, ok := reg.Lookup("hero")
	require.False(t, ok)
	require.Zero(t, reg.Len())
}

func TestParseGCSURI(t *testing.T) {
	t.Parallel()

	b, o, err := parseGCSURI("gs://fansite-assets/manifests/images.json")
	require.NoError(t, err)
	require.Equal(t, "fansite-assets", b)
	require.Equal(t, "manifests/images.json", o)

	for _, bad := range []string{"https://example.com/x.json", "gs://bucket", "gs:///obj", "gs://bucket/"} {
		_, _, err := parseGCSURI(bad)
		require.ErrorIs(t, err, errInvalidURI, bad)
	}
}
