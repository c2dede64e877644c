package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompact(t *testing.T) {
	cases := map[int]string{
		0:        "0",
		950:      "950",
		999:      "999",
		1000:     "1.0K",
		45100:    "45.1K",
		84300:    "84.3K",
		982000:   "982.0K",
		764500:   "764.5K",
		1000000:  "1.0M",
		1250000:  "1.3M",
		12345678: "12.3M",
	}
	for in, want := range cases {
		require.Equalf(t, want, Compact(in), "Compact(%d)", in)
	}
}

func TestNumber(t *testing.T) {
	require.Equal(t, "26,000", Number(26000, "en"))
	require.Equal(t, "522", Number(522, "hi"))
	require.Equal(t, "13,848", Comma(13848))
}
