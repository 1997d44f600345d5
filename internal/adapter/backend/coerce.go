package backend

import (
	"math"
	"strconv"
	"strings"
)

// parse reads a user-typed number. Blank or malformed input reports false.
func parse(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// zeroIfMissing coerces blank or malformed input to 0.
func zeroIfMissing(s string) float64 {
	v, _ := parse(s)
	return v
}

// nullIfMissing coerces blank or malformed input to JSON null.
func nullIfMissing(s string) *float64 {
	v, ok := parse(s)
	if !ok {
		return nil
	}
	return &v
}

// orDefault falls back to def for blank, malformed or zero input.
func orDefault(s string, def float64) float64 {
	v, ok := parse(s)
	if !ok || v == 0 {
		return def
	}
	return v
}
