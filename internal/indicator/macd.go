package indicator

// MACD returns the MACD line (EMA fast - EMA slow) and its signal line
// (EMA of the MACD line). Any non-positive period or empty input yields
// zero series.
func MACD(prices []float64, fast, slow, signal int) (macd, signalLine []float64) {
	n := len(prices)
	if fast <= 0 || slow <= 0 || signal <= 0 || n == 0 {
		return make([]float64, n), make([]float64, n)
	}
	fastEMA := EMA(prices, fast)
	slowEMA := EMA(prices, slow)
	macd = make([]float64, n)
	for i := range prices {
		macd[i] = fastEMA[i] - slowEMA[i]
	}
	return macd, EMA(macd, signal)
}
