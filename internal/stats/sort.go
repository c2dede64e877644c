// Package stats orders the career summary table.
package stats

import (
	"cmp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"finitefield.org/fansite/internal/content"
)

// Column names a sortable column of the career summary.
type Column string

const (
	ColFormat  Column = "format"
	ColMatches Column = "matches"
	ColRuns    Column = "runs"
	ColHS      Column = "hs"
	ColAvg     Column = "avg"
)

// Columns lists the table columns in display order.
var Columns = []Column{ColFormat, ColMatches, ColRuns, ColHS, ColAvg}

// Direction is asc or desc.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortState is the active column and direction.
type SortState struct {
	Key Column
	Dir Direction
}

// DefaultSort is runs, highest first.
func DefaultSort() SortState { return SortState{Key: ColRuns, Dir: Desc} }

// ParseSort reads a state from query values. An unknown column yields the default state;
// an unknown direction on a known column means ascending.
func ParseSort(key, dir string) SortState {
	col := Column(strings.ToLower(strings.TrimSpace(key)))
	if !col.valid() {
		return DefaultSort()
	}
	if Direction(strings.ToLower(strings.TrimSpace(dir))) == Desc {
		return SortState{Key: col, Dir: Desc}
	}
	return SortState{Key: col, Dir: Asc}
}

func (c Column) valid() bool {
	for _, col := range Columns {
		if c == col {
			return true
		}
	}
	return false
}

// RequestSort returns the state after clicking column key: the same column while
// ascending flips to descending, anything else sorts ascending.
func RequestSort(current SortState, key Column) SortState {
	if current.Key == key && current.Dir == Asc {
		return SortState{Key: key, Dir: Desc}
	}
	return SortState{Key: key, Dir: Asc}
}

// Next is the state a header link for col should request.
func (s SortState) Next(col Column) SortState { return RequestSort(s, col) }

// Sort returns a stably sorted copy of rows. Format labels are collated for lang.
func Sort(rows []content.StatRow, state SortState, lang string) []content.StatRow {
	out := append([]content.StatRow(nil), rows...)
	if !state.Key.valid() {
		state = DefaultSort()
	}

	var compare func(a, b content.StatRow) int
	switch state.Key {
	case ColFormat:
		col := collate.New(language.Make(lang))
		compare = func(a, b content.StatRow) int { return col.CompareString(a.Format, b.Format) }
	case ColMatches:
		compare = func(a, b content.StatRow) int { return cmp.Compare(a.Matches, b.Matches) }
	case ColRuns:
		compare = func(a, b content.StatRow) int { return cmp.Compare(a.Runs, b.Runs) }
	case ColHS:
		compare = func(a, b content.StatRow) int { return cmp.Compare(HighScore(a.HS), HighScore(b.HS)) }
	case ColAvg:
		compare = func(a, b content.StatRow) int { return cmp.Compare(a.Avg, b.Avg) }
	}

	sort.SliceStable(out, func(i, j int) bool {
		c := compare(out[i], out[j])
		if state.Dir == Desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

// HighScore parses a highest-score label, ignoring a "not out" marker on either side
// ("254*", "*254"). Unparseable values count as 0.
func HighScore(hs string) int {
	digits := strings.TrimFunc(strings.TrimSpace(hs), func(r rune) bool { return !unicode.IsDigit(r) })
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}
