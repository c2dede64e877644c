package seo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAlternates(t *testing.T) {
	alts := Alternates("https://fans.example.com/?hl=en", []string{"en", "hi"}, "en")
	require.Equal(t, []Alternate{
		{Href: "https://fans.example.com/?hl=en", Hreflang: "en"},
		{Href: "https://fans.example.com/?hl=hi", Hreflang: "hi"},
		{Href: "https://fans.example.com/?hl=en", Hreflang: "x-default"},
	}, alts)
}

func TestPersonJSONLD(t *testing.T) {
	raw := JSON(Person("VK Global", "", "https://fans.example.com/", "", []string{"https://twitter.com/x"}))
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	require.Equal(t, "Person", m["@type"])
	require.NotContains(t, m, "description")
	require.Len(t, m["sameAs"], 1)
}
