package features

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultReleaseYear and DefaultReleaseMonth stand in when the dataset has
	// no usable release dates.
	DefaultReleaseYear  = 2000
	DefaultReleaseMonth = 1
	// DefaultExplicit is the Explicit fallback regardless of the dataset.
	DefaultExplicit = 0
)

// Source records where a median table entry came from.
type Source string

const (
	SourceMedian  Source = "median"
	SourceDefault Source = "default"
)

// Entry is one fallback value.
type Entry struct {
	Value  float64 `json:"value"`
	Source Source  `json:"source"`
}

// MedianTable maps feature names to the values substituted for missing or
// malformed request fields. It is read only once built.
type MedianTable struct {
	entries map[string]Entry
}

// NewMedianTable builds a table from explicit values, all marked as medians.
func NewMedianTable(values map[string]float64) MedianTable {
	entries := make(map[string]Entry, len(values))
	for name, v := range values {
		entries[name] = Entry{Value: v, Source: SourceMedian}
	}
	return MedianTable{entries: entries}
}

// Get returns the stored fallback for name.
func (m MedianTable) Get(name string) (float64, bool) {
	e, ok := m.entries[name]
	return e.Value, ok
}

// Fallback returns the stored fallback for name, or 0 when the table has none.
func (m MedianTable) Fallback(name string) float64 {
	return m.entries[name].Value
}

// Len is the number of stored entries.
func (m MedianTable) Len() int {
	return len(m.entries)
}

// Entries returns a copy of every stored entry.
func (m MedianTable) Entries() map[string]Entry {
	out := make(map[string]Entry, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}

// Map returns a copy of the fallback values.
func (m MedianTable) Map() map[string]float64 {
	out := make(map[string]float64, len(m.entries))
	for k, v := range m.entries {
		out[k] = v.Value
	}
	return out
}

// BuildMedians computes the fallback table from the reference dataset.
//
// Numeric columns contribute their median when present and fully numeric;
// otherwise they are left out and lookups return 0. Explicit is pinned to 0.
// Release year and month are derived from the release date column, ignoring
// rows whose date does not parse, and default to 2000 and 1 when no date is
// usable.
func BuildMedians(table *ReferenceTable) MedianTable {
	entries := make(map[string]Entry, NumFeatures)

	for _, spec := range Table {
		if spec.Kind != KindFloat {
			continue
		}
		cells, ok := table.Column(spec.Name)
		if !ok {
			continue
		}
		values, numeric := numericColumn(cells)
		if !numeric {
			continue
		}
		if m, ok := median(values); ok {
			entries[spec.Name] = Entry{Value: m, Source: SourceMedian}
		}
	}

	entries[Explicit] = Entry{Value: DefaultExplicit, Source: SourceDefault}

	year := Entry{Value: DefaultReleaseYear, Source: SourceDefault}
	month := Entry{Value: DefaultReleaseMonth, Source: SourceDefault}
	if cells, ok := table.Column(ReleaseDateColumn); ok {
		years, months := releaseParts(cells)
		if m, ok := median(years); ok {
			year = Entry{Value: m, Source: SourceMedian}
		}
		if m, ok := median(months); ok {
			month = Entry{Value: m, Source: SourceMedian}
		}
	}
	entries[ReleaseYear] = year
	entries[ReleaseMonth] = month

	return MedianTable{entries: entries}
}

// ExplicitRate reports the share of explicit rows after coercing the column
// to 0/1. It does not feed the fallback table.
func ExplicitRate(table *ReferenceTable) (float64, bool) {
	cells, ok := table.Column(Explicit)
	if !ok || len(cells) == 0 {
		return 0, false
	}
	var sum float64
	for _, c := range cells {
		sum += coerceFlagCell(c)
	}
	return sum / float64(len(cells)), true
}

func coerceFlagCell(cell string) float64 {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "true", "1", "1.0":
		return 1
	}
	return 0
}

var missingMarkers = map[string]bool{
	"":     true,
	"nan":  true,
	"na":   true,
	"n/a":  true,
	"null": true,
	"none": true,
	"nat":  true,
}

func isMissing(cell string) bool {
	return missingMarkers[strings.ToLower(strings.TrimSpace(cell))]
}

// numericColumn parses every non-missing cell. A single non-numeric cell
// makes the whole column non-numeric.
func numericColumn(cells []string) ([]float64, bool) {
	values := make([]float64, 0, len(cells))
	for _, c := range cells {
		if isMissing(c) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		if err != nil {
			return nil, false
		}
		if math.IsNaN(v) {
			continue
		}
		values = append(values, v)
	}
	return values, true
}

func median(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], true
	}
	return (sorted[mid-1] + sorted[mid]) / 2, true
}

var referenceDateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"2006-01",
	"2006",
}

func parseReferenceDate(cell string) (time.Time, bool) {
	cell = strings.TrimSpace(cell)
	if isMissing(cell) {
		return time.Time{}, false
	}
	for _, layout := range referenceDateLayouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func releaseParts(cells []string) (years, months []float64) {
	years = make([]float64, 0, len(cells))
	months = make([]float64, 0, len(cells))
	for _, c := range cells {
		t, ok := parseReferenceDate(c)
		if !ok {
			continue
		}
		years = append(years, float64(t.Year()))
		months = append(months, float64(t.Month()))
	}
	return years, months
}
