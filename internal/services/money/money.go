package money

import "math"

const minorUnits = 100

// Format converts minor currency units to the decimal amount used in
// JSON payloads.
func Format(amount int64) float64 {
	return float64(amount) / minorUnits
}

// Convert converts a decimal amount to minor currency units,
// rounding half up.
func Convert(amount float64) int64 {
	return int64(math.Floor(amount*minorUnits + 0.5))
}
