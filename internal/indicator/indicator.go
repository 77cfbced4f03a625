// Package indicator provides technical indicator calculations over price series.
//
// Every function is pure and total: it never panics on short, empty or
// malformed input and always returns a series the same length as its input.
// When there is not enough data the documented neutral value is returned
// instead of an error, so callers never need to special-case failures.
package indicator

import "math"

// NeutralRSI is the RSI value reported where RSI is undefined.
const NeutralRSI = 50.0

// Last returns the final element of series, or NaN if series is empty.
func Last(series []float64) float64 {
	if len(series) == 0 {
		return math.NaN()
	}
	return series[len(series)-1]
}

// finite reports whether every value in series is a finite number.
func finite(series []float64) bool {
	for _, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func fill(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func clone(series []float64) []float64 {
	out := make([]float64, len(series))
	copy(out, series)
	return out
}
