package features

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Reason explains why a slot fell back to its median.
type Reason string

const (
	ReasonMissing        Reason = "missing"
	ReasonInvalid        Reason = "invalid"
	ReasonBadReleaseDate Reason = "bad_release_date"
)

// year-month-day, zero padding optional
const releaseDateLayout = "2006-1-2"

// Imputation is a non-fatal notice that a slot was filled from the median
// table instead of the request.
type Imputation struct {
	Feature string  `json:"feature"`
	Reason  Reason  `json:"reason"`
	Value   float64 `json:"value"`
	Raw     any     `json:"raw,omitempty"`
}

func (i Imputation) String() string {
	if i.Reason == ReasonMissing {
		return fmt.Sprintf("feature %q not provided, imputing %v", i.Feature, i.Value)
	}
	return fmt.Sprintf("feature %q value %v unusable (%s), imputing %v", i.Feature, i.Raw, i.Reason, i.Value)
}

type coercer func(raw any) (float64, bool)

var coercers = map[Kind]coercer{
	KindFloat: coerceFloat,
	KindInt:   coerceInt,
	KindFlag:  coerceFlag,
}

// Normalize turns a decoded JSON object into a complete model input. Every
// slot is populated: absent, null or unparseable values take the median
// fallback and are reported as imputations. The release_date key fills the
// release year and month when no usable Release_Year was sent.
func Normalize(raw map[string]any, medians MedianTable) (Vector, []Imputation) {
	var (
		vec     Vector
		notices []Imputation
		direct  [NumFeatures]bool
	)

	for i, feat := range Table {
		value, ok := lookup(raw, feat)
		if !ok {
			vec[i] = medians.Fallback(feat.Name)
			notices = append(notices, Imputation{Feature: feat.Name, Reason: ReasonMissing, Value: vec[i]})
			continue
		}
		v, ok := coercers[feat.Kind](value)
		if !ok {
			vec[i] = medians.Fallback(feat.Name)
			notices = append(notices, Imputation{Feature: feat.Name, Reason: ReasonInvalid, Value: vec[i], Raw: value})
			continue
		}
		vec[i] = v
		direct[i] = true
	}

	yearIdx, _ := Index(ReleaseYear)
	monthIdx, _ := Index(ReleaseMonth)
	dateRaw, hasDate := raw[ReleaseDateKey]
	if hasDate && !direct[yearIdx] {
		if t, ok := parseReleaseDate(dateRaw); ok {
			vec[yearIdx] = float64(t.Year())
			resolved := []string{ReleaseYear}
			if !direct[monthIdx] {
				vec[monthIdx] = float64(t.Month())
				resolved = append(resolved, ReleaseMonth)
			}
			notices = dropImputations(notices, resolved...)
		} else {
			notices = append(notices, Imputation{Feature: ReleaseDateKey, Reason: ReasonBadReleaseDate, Value: vec[yearIdx], Raw: dateRaw})
		}
	}

	return vec, notices
}

func lookup(raw map[string]any, feat Feature) (any, bool) {
	if v, ok := raw[feat.Name]; ok && v != nil {
		return v, true
	}
	for _, alias := range feat.Aliases {
		if v, ok := raw[alias]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func dropImputations(notices []Imputation, names ...string) []Imputation {
	out := notices[:0]
	for _, n := range notices {
		drop := false
		for _, name := range names {
			if n.Feature == name {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, n)
		}
	}
	return out
}

func parseReleaseDate(raw any) (time.Time, bool) {
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(releaseDateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func coerceFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case bool:
		return boolToFloat(v), true
	case string:
		return parseDecimal(v)
	}
	return 0, false
}

// coerceInt truncates numbers toward zero and requires strings to be whole
// integers.
func coerceInt(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return truncate(v)
	case float32:
		return truncate(float64(v))
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return float64(n), true
		}
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return truncate(f)
	case bool:
		return boolToFloat(v), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return float64(n), err == nil
	}
	return 0, false
}

// coerceFlag compares the textual form of the value against "true" without
// regard to case. Numbers never count as true.
func coerceFlag(raw any) (float64, bool) {
	if strings.ToLower(fmt.Sprint(raw)) == "true" {
		return 1, true
	}
	return 0, true
}

// parseDecimal accepts decimal text only. Out of range values become
// infinities instead of failing.
func parseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	digits := strings.TrimLeft(s, "+-")
	if len(digits) > 1 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && numErr.Err == strconv.ErrRange {
			return f, true
		}
		return 0, false
	}
	return f, true
}

func truncate(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return math.Trunc(f), true
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
