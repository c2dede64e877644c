package format

import (
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Compact shortens social counts: 1250000 => "1.3M", 84300 => "84.3K", 950 => "950".
// One decimal is always kept above a thousand, halves round up.
func Compact(n int) string {
	abs := math.Abs(float64(n))
	switch {
	case abs >= 1_000_000:
		return oneDecimal(float64(n)/1_000_000) + "M"
	case abs >= 1_000:
		return oneDecimal(float64(n)/1_000) + "K"
	default:
		return strconv.Itoa(n)
	}
}

func oneDecimal(v float64) string {
	return humanize.FormatFloat("#.#", math.Round(v*10)/10)
}

// Number formats n with the grouping rules of lang.
// Example: Number(26000, "en") => "26,000"
func Number(n int, lang string) string {
	p := message.NewPrinter(language.Make(lang))
	return p.Sprint(number.Decimal(n))
}

// Comma is a locale-independent thousands separator, used in JSON and logs.
func Comma(n int) string {
	return humanize.Comma(int64(n))
}
