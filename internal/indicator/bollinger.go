package indicator

// BollingerBands returns upper, middle and lower bands: the SMA over period
// plus/minus k times the rolling sample standard deviation. Before the
// first full window all three bands equal the input price; a non-positive
// period or a series shorter than period returns the input three times.
func BollingerBands(prices []float64, period int, k float64) (upper, middle, lower []float64) {
	if period <= 0 || len(prices) < period || !finite(prices) {
		return clone(prices), clone(prices), clone(prices)
	}
	middle = SMA(prices, period)
	std := rollingStdDev(prices, period)
	upper = make([]float64, len(prices))
	lower = make([]float64, len(prices))
	for i := range prices {
		upper[i] = middle[i] + k*std[i]
		lower[i] = middle[i] - k*std[i]
	}
	return upper, middle, lower
}
