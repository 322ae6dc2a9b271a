// Package recordset compares query results without regard to order.
package recordset

import (
	"math"
	"reflect"
)

// CompareUnorderedLists reports whether a and b hold the same elements
// the same number of times, in any order.
//
//	[1 2 3] matches [3 2 1]; ["a" "a"] does not match ["a"]
func CompareUnorderedLists[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[T]int, len(a))
	for _, v := range a {
		counts[v]++
	}
	for _, v := range b {
		counts[v]--
		if counts[v] < 0 {
			return false
		}
	}
	return true
}

// CompareRecordsets reports whether two lists of records match ignoring
// record order. Duplicate records count separately. Numbers compare by
// value, so rows read back from the database (int64) match literals
// written in tests (int) and 1 matches 1.0.
//
// Quadratic in the number of records; meant for small result sets.
func CompareRecordsets(a, b []map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	remaining := make([]map[string]any, len(b))
	for i, rec := range b {
		remaining[i] = normalizeRecord(rec)
	}

outer:
	for _, rec := range a {
		want := normalizeRecord(rec)
		for i, candidate := range remaining {
			if reflect.DeepEqual(want, candidate) {
				remaining = append(remaining[:i], remaining[i+1:]...)
				continue outer
			}
		}
		return false
	}
	return true
}

func normalizeRecord(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = normalize(v)
	}
	return out
}

func normalize(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		if t <= math.MaxInt64 {
			return int64(t)
		}
		return float64(t)
	case float32:
		return integral(float64(t))
	case float64:
		return integral(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case map[string]any:
		return normalizeRecord(t)
	default:
		return v
	}
}

// integral turns whole floats that fit an int64 into one.
func integral(f float64) any {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f)
	}
	return f
}
