package indicator

// smmaStep applies one step of Wilder-style smoothing:
// SMMA = (prev*(period-1) + x) / period.
func smmaStep(prev, x float64, period int) float64 {
	p := float64(period)
	return (prev*(p-1) + x) / p
}

// SMMA calculates the Smoothed Moving Average. The first period-1 outputs
// hold the input price; output period-1 is the SMA seed.
func SMMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return clone(prices)
	}
	out := clone(prices)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	out[period-1] = sum / float64(period)
	for i := period; i < len(prices); i++ {
		out[i] = smmaStep(out[i-1], prices[i], period)
	}
	return out
}
