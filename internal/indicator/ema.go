package indicator

// EMA calculates the Exponential Moving Average with alpha = 2/(period+1),
// seeded with the first price. A non-positive period returns a copy of the
// input. NaN prices propagate so callers can detect them on the latest value.
func EMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) == 0 {
		return clone(prices)
	}
	alpha := 2.0 / float64(period+1)
	out := make([]float64, len(prices))
	out[0] = prices[0]
	for i := 1; i < len(prices); i++ {
		out[i] = alpha*prices[i] + (1-alpha)*out[i-1]
	}
	return out
}
