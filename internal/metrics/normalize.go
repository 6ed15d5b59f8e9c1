package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// scaleMidpoint is the value a min-max scaled metric takes when the table
// offers no spread (min == max). Dividing by zero is never an option.
const scaleMidpoint = 50.0

// minMaxScale maps v from [min, max] onto [0, 100]. Degenerate ranges
// collapse to the fixed midpoint.
func minMaxScale(v, min, max float64) float64 {
	if max <= min {
		return scaleMidpoint
	}
	scaled := (v - min) / (max - min) * 100.0
	return clamp(scaled, 0, 100)
}

// rangeOf returns the min and max of vals, ignoring non-finite entries.
// An empty or all-non-finite input yields (0, 0).
func rangeOf(vals []float64) (float64, float64) {
	finite := vals[:0:0]
	for _, v := range vals {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return 0, 0
	}
	return floats.Min(finite), floats.Max(finite)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
