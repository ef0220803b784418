package features

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMedians() MedianTable {
	return NewMedianTable(map[string]float64{
		Danceability:     0.6,
		Energy:           0.7,
		Key:              5,
		Loudness:         -6.5,
		Mode:             1,
		Speechiness:      0.05,
		Acousticness:     0.2,
		Instrumentalness: 0,
		Liveness:         0.15,
		Valence:          0.5,
		Tempo:            120,
		Duration:         210000,
		Explicit:         0,
		ReleaseYear:      2018,
		ReleaseMonth:     6,
	})
}

func decode(t *testing.T, body string) map[string]any {
	t.Helper()
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	return raw
}

func TestNormalizeEmptyRequestIsTotal(t *testing.T) {
	medians := testMedians()
	vec, notices := Normalize(map[string]any{}, medians)

	for i, spec := range Table {
		assert.Equal(t, medians.Fallback(spec.Name), vec[i], spec.Name)
	}
	assert.Len(t, notices, NumFeatures)
	for _, n := range notices {
		assert.Equal(t, ReasonMissing, n.Reason)
	}

	vec, _ = Normalize(nil, medians)
	assert.Equal(t, medians.Fallback(Tempo), vec[10])
}

func TestNormalizeImputationEquivalence(t *testing.T) {
	medians := testMedians()
	omitted, _ := Normalize(map[string]any{}, medians)

	for _, spec := range Table {
		t.Run(spec.Name, func(t *testing.T) {
			supplied, _ := Normalize(map[string]any{spec.Name: medians.Fallback(spec.Name)}, medians)
			assert.Equal(t, omitted, supplied)
		})
	}
}

func TestNormalizeFractionalIntMedianIsTruncatedWhenSupplied(t *testing.T) {
	medians := NewMedianTable(map[string]float64{ReleaseYear: 2010.5, ReleaseMonth: 6.5})

	omitted, _ := Normalize(map[string]any{}, medians)
	year, _ := omitted.Get(ReleaseYear)
	month, _ := omitted.Get(ReleaseMonth)
	assert.Equal(t, 2010.5, year)
	assert.Equal(t, 6.5, month)

	supplied, notices := Normalize(map[string]any{ReleaseYear: 2010.5, ReleaseMonth: 6.5}, medians)
	year, _ = supplied.Get(ReleaseYear)
	month, _ = supplied.Get(ReleaseMonth)
	assert.Equal(t, 2010.0, year)
	assert.Equal(t, 6.0, month)
	for _, n := range notices {
		assert.NotEqual(t, ReleaseYear, n.Feature)
		assert.NotEqual(t, ReleaseMonth, n.Feature)
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	raw := decode(t, `{"Danceability": "0.8", "Tempo": "abc", "Explicit": true, "release_date": "2021-07-15"}`)
	a, an := Normalize(raw, testMedians())
	b, bn := Normalize(raw, testMedians())
	assert.Equal(t, a, b)
	assert.Equal(t, an, bn)
}

func TestNormalizeCanonicalOrder(t *testing.T) {
	raw := map[string]any{}
	for i, spec := range Table {
		if spec.Kind == KindFlag {
			continue
		}
		raw[spec.Name] = float64(i + 1)
	}
	raw[Explicit] = "true"

	vec, notices := Normalize(raw, testMedians())
	assert.Empty(t, notices)
	for i, spec := range Table {
		if spec.Kind == KindFlag {
			assert.Equal(t, 1.0, vec[i])
			continue
		}
		assert.Equal(t, float64(i+1), vec[i], spec.Name)
	}
}

func TestNormalizeExplicit(t *testing.T) {
	cases := []struct {
		name string
		raw  any
		want float64
	}{
		{"lower string", "true", 1},
		{"title string", "True", 1},
		{"upper string", "TRUE", 1},
		{"json bool", true, 1},
		{"false string", "false", 0},
		{"no", "no", 0},
		{"json false", false, 0},
		{"number one", 1.0, 0},
		{"garbage", "yes please", 0},
		{"object", map[string]any{"a": 1}, 0},
	}
	idx, _ := Index(Explicit)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			vec, _ := Normalize(map[string]any{Explicit: tc.raw}, testMedians())
			assert.Equal(t, tc.want, vec[idx])
		})
	}

	vec, _ := Normalize(map[string]any{}, testMedians())
	assert.Equal(t, 0.0, vec[idx], "omitted")
}

func TestNormalizeMalformedNumericFallsBack(t *testing.T) {
	medians := testMedians()
	vec, notices := Normalize(decode(t, `{"Tempo": "abc", "Energy": [1, 2], "Danceability": " 0.9 "}`), medians)

	tempo, _ := vec.Get(Tempo)
	energy, _ := vec.Get(Energy)
	dance, _ := vec.Get(Danceability)
	assert.Equal(t, medians.Fallback(Tempo), tempo)
	assert.Equal(t, medians.Fallback(Energy), energy)
	assert.Equal(t, 0.9, dance)

	invalid := map[string]bool{}
	for _, n := range notices {
		if n.Reason == ReasonInvalid {
			invalid[n.Feature] = true
		}
	}
	assert.Equal(t, map[string]bool{Tempo: true, Energy: true}, invalid)
}

func TestNormalizeFloatStrings(t *testing.T) {
	medians := testMedians()
	cases := []struct {
		in   string
		want float64
	}{
		{"0x1p4", medians.Fallback(Tempo)},
		{"-0X10p0", medians.Fallback(Tempo)},
		{"1e400", math.Inf(1)},
		{"-1e400", math.Inf(-1)},
		{"1.5e2", 150},
		{"+7", 7},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			vec, _ := Normalize(map[string]any{Tempo: tc.in}, medians)
			tempo, _ := vec.Get(Tempo)
			assert.Equal(t, tc.want, tempo)
		})
	}
}

func TestNormalizeIntegerFeatures(t *testing.T) {
	medians := testMedians()
	cases := []struct {
		name string
		raw  any
		want float64
	}{
		{"number", 2021.0, 2021},
		{"fraction truncates", 2021.9, 2021},
		{"string", "2019", 2019},
		{"padded string", " 2019 ", 2019},
		{"decimal string", "2019.5", medians.Fallback(ReleaseYear)},
		{"text", "last year", medians.Fallback(ReleaseYear)},
		{"json number", json.Number("2015"), 2015},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			vec, _ := Normalize(map[string]any{ReleaseYear: tc.raw}, medians)
			got, _ := vec.Get(ReleaseYear)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeReleaseDateFallback(t *testing.T) {
	vec, notices := Normalize(decode(t, `{"release_date": "2021-07-15"}`), testMedians())
	year, _ := vec.Get(ReleaseYear)
	month, _ := vec.Get(ReleaseMonth)
	assert.Equal(t, 2021.0, year)
	assert.Equal(t, 7.0, month)
	for _, n := range notices {
		assert.NotEqual(t, ReleaseYear, n.Feature)
		assert.NotEqual(t, ReleaseMonth, n.Feature)
	}

	vec, _ = Normalize(decode(t, `{"release_date": "2021-7-5"}`), testMedians())
	month, _ = vec.Get(ReleaseMonth)
	assert.Equal(t, 7.0, month)
}

func TestNormalizeReleaseDateDoesNotOverrideDirectKeys(t *testing.T) {
	vec, _ := Normalize(decode(t, `{"Release_Year": 1999, "release_date": "2021-07-15"}`), testMedians())
	year, _ := vec.Get(ReleaseYear)
	month, _ := vec.Get(ReleaseMonth)
	assert.Equal(t, 1999.0, year)
	assert.Equal(t, 6.0, month, "month stays at its median when year came from a direct key")

	vec, _ = Normalize(decode(t, `{"Release_Month": 3, "release_date": "2021-07-15"}`), testMedians())
	year, _ = vec.Get(ReleaseYear)
	month, _ = vec.Get(ReleaseMonth)
	assert.Equal(t, 2021.0, year)
	assert.Equal(t, 3.0, month)
}

func TestNormalizeReleaseDateUsedWhenYearMalformed(t *testing.T) {
	vec, _ := Normalize(decode(t, `{"Release_Year": "soon", "release_date": "2010-02-01"}`), testMedians())
	year, _ := vec.Get(ReleaseYear)
	assert.Equal(t, 2010.0, year)
}

func TestNormalizeBadReleaseDateKeepsMedians(t *testing.T) {
	medians := testMedians()
	for _, body := range []string{`{"release_date": "15/07/2021"}`, `{"release_date": 2021}`, `{"release_date": null}`} {
		vec, notices := Normalize(decode(t, body), medians)
		year, _ := vec.Get(ReleaseYear)
		month, _ := vec.Get(ReleaseMonth)
		assert.Equal(t, medians.Fallback(ReleaseYear), year, body)
		assert.Equal(t, medians.Fallback(ReleaseMonth), month, body)
		assert.Equal(t, ReasonBadReleaseDate, notices[len(notices)-1].Reason, body)
	}
}

func TestNormalizeDurationAlias(t *testing.T) {
	vec, _ := Normalize(map[string]any{"Duration(ms)": 199000.0}, testMedians())
	d, _ := vec.Get(Duration)
	assert.Equal(t, 199000.0, d)
}

func TestNormalizeAbsentMedianFallsBackToZero(t *testing.T) {
	vec, _ := Normalize(map[string]any{}, NewMedianTable(nil))
	assert.Equal(t, Vector{}, vec)
}

func TestNormalizeIgnoresUnknownKeys(t *testing.T) {
	a, _ := Normalize(map[string]any{"Artist": "someone"}, testMedians())
	b, _ := Normalize(map[string]any{}, testMedians())
	assert.Equal(t, a, b)
}
