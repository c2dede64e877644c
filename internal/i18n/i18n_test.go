package i18n

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func loadBundle(t *testing.T) *Bundle {
	t.Helper()
	b, err := Load("../../locales", "en", []string{"en", "hi"})
	require.NoError(t, err)
	return b
}

func TestResolveHonorsQValues(t *testing.T) {
	b := loadBundle(t)
	require.Equal(t, "hi", b.Resolve("en;q=0.8, hi;q=0.9"))
	require.Equal(t, "en", b.Resolve("hi;q=0.5, en"))
}

func TestResolveRegionalAndUnknown(t *testing.T) {
	b := loadBundle(t)
	require.Equal(t, "hi", b.Resolve("hi-IN"))
	require.Equal(t, "en", b.Resolve("en-GB,en;q=0.9"))
	require.Equal(t, "en", b.Resolve("ja"))
	require.Equal(t, "en", b.Resolve(""))
	require.Equal(t, "en", b.Resolve(";;;"))
}

func TestNormalize(t *testing.T) {
	b := loadBundle(t)
	require.Equal(t, "hi", b.Normalize("hi"))
	require.Equal(t, "hi", b.Normalize(" HI "))
	require.Equal(t, "hi", b.Normalize("hi-IN"))
	require.Equal(t, "en", b.Normalize("fr"))
	require.Equal(t, "en", b.Normalize(""))
	require.Equal(t, []string{"en", "hi"}, b.Supported())
	require.True(t, b.IsSupported("hi"))
	require.False(t, b.IsSupported("fr"))
}

func TestTranslateFallsBack(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en.json"), []byte(`{"a":"A","b":"B"}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hi.json"), []byte(`{"a":"अ"}`), 0o600))

	b, err := Load(dir, "en", []string{"en", "hi"})
	require.NoError(t, err)
	require.Equal(t, "अ", b.T("hi", "a"))
	require.Equal(t, "B", b.T("hi", "b"))
	require.Equal(t, "missing", b.T("hi", "missing"))
	require.Equal(t, "A", b.T("fr", "a"))
}

func TestLoadRequiresFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hi.json"), []byte(`{}`), 0o600))
	_, err := Load(dir, "en", []string{"en", "hi"})
	require.Error(t, err)
}

func TestLocalesShareKeys(t *testing.T) {
	b := loadBundle(t)
	for key := range b.dict["en"] {
		_, ok := b.dict["hi"][key]
		require.Truef(t, ok, "hi.json is missing %q", key)
	}
	require.Equal(t, "Sending...", b.T("en", "connect.sending"))
}

func TestContextLang(t *testing.T) {
	require.Equal(t, "", FromContext(context.Background()))
	require.Equal(t, "hi", FromContext(WithLang(context.Background(), "hi")))
}
