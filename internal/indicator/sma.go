package indicator

import "math"

// SMA calculates the Simple Moving Average over a rolling window.
// Outputs before the first full window hold the input price.
func SMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return clone(prices)
	}
	out := clone(prices)
	sum := 0.0
	for i, p := range prices {
		sum += p
		if i >= period {
			sum -= prices[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// rollingStdDev returns the sample standard deviation (n-1) of each full
// window. Outputs before the first full window, and every output when
// period < 2, are zero.
func rollingStdDev(prices []float64, period int) []float64 {
	out := make([]float64, len(prices))
	if period < 2 || len(prices) < period {
		return out
	}
	for i := period - 1; i < len(prices); i++ {
		window := prices[i-period+1 : i+1]
		mean := 0.0
		for _, p := range window {
			mean += p
		}
		mean /= float64(period)
		ss := 0.0
		for _, p := range window {
			d := p - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(period-1))
	}
	return out
}
