// Package statmath provides numeric helpers for working with raw stat bags.
// Ingestion delivers stats as loosely typed JSON maps under two naming
// conventions (camelCase and snake_case), so extraction is alias-tolerant
// and missing fields default to zero.
package statmath

import (
	"encoding/json"
	"math"
	"strconv"
)

// Num returns the first alias present in the bag as a float64.
// Missing or non-numeric values yield 0.
func Num(bag map[string]interface{}, aliases ...string) float64 {
	for _, key := range aliases {
		if raw, ok := bag[key]; ok {
			if v, ok := toFloat(raw); ok {
				return v
			}
		}
	}
	return 0
}

// Has reports whether any alias is present in the bag, numeric or not
func Has(bag map[string]interface{}, aliases ...string) bool {
	for _, key := range aliases {
		if _, ok := bag[key]; ok {
			return true
		}
	}
	return false
}

// Round3 rounds to 3 decimal places, the precision every derived metric
// is stored at.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Clamp bounds v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func toFloat(raw interface{}) (float64, bool) {
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
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
