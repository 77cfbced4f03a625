package indicator

import "math"

// rsiEpsilon replaces a zero average loss so the ratio stays finite while
// RSI still tends to 100.
const rsiEpsilon = 1e-10

// RSI calculates the Relative Strength Index using Wilder's smoothing.
//
// Outputs before index period are NeutralRSI. At index period the averages
// are seeded with the simple mean of the first period gains/losses, then
// smoothed. Results are clamped to [0,100]. Series shorter than period+1,
// a non-positive period, or non-finite prices yield all NeutralRSI.
func RSI(prices []float64, period int) []float64 {
	n := len(prices)
	if period <= 0 || n <= period || !finite(prices) {
		return fill(n, NeutralRSI)
	}

	gains := make([]float64, n-1)
	losses := make([]float64, n-1)
	for i := 1; i < n; i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gains[i-1] = delta
		} else {
			losses[i-1] = -delta
		}
	}

	out := fill(n, NeutralRSI)

	avgGain, avgLoss := 0.0, 0.0
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	if avgLoss == 0 {
		avgLoss = rsiEpsilon
	}
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < n; i++ {
		avgGain = smmaStep(avgGain, gains[i-1], period)
		avgLoss = smmaStep(avgLoss, losses[i-1], period)
		if avgLoss == 0 {
			avgLoss = rsiEpsilon
		}
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	rs := avgGain / avgLoss
	v := 100.0 - (100.0 / (1.0 + rs))
	if math.IsNaN(v) {
		return NeutralRSI
	}
	return math.Max(0, math.Min(100, v))
}
