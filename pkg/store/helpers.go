package store

import "math"

// finite maps infinite bounds to the largest representable magnitude, SQLite REAL has no infinities.
func finite(value float64) float64 {
	switch {
	case math.IsInf(value, 1):
		return math.MaxFloat64
	case math.IsInf(value, -1):
		return -math.MaxFloat64
	default:
		return value
	}
}
