package marketdata

import (
	"math"
	"math/rand"
	"strings"
	"time"

	"scalper/internal/model"
	"scalper/internal/stablehash"
)

// DefaultWindow is the number of bars the generator produces.
const DefaultWindow = 50

// Generator produces random-walk OHLCV windows. The walk for a symbol is
// fully determined by the symbol and the wall-clock minute, so every call
// within the same minute returns the same window.
type Generator struct {
	Bars     int
	Interval time.Duration
}

// NewGenerator creates a generator with 50 one-minute bars.
func NewGenerator() *Generator {
	return &Generator{Bars: DefaultWindow, Interval: time.Minute}
}

// Seed returns the RNG seed used for symbol at now.
func Seed(symbol string, now time.Time) int64 {
	return int64(stablehash.Symbol(symbol)%1000) + now.Unix()/60
}

// Generate returns a window ending at now for the listing.
func (g *Generator) Generate(l Listing, now time.Time) []model.Bar {
	n := g.Bars
	if n <= 0 {
		n = DefaultWindow
	}
	rng := rand.New(rand.NewSource(Seed(l.Symbol, now)))

	vol := 0.012
	if strings.Contains(l.Symbol, "BTC") {
		vol = 0.008
	}

	prices := make([]float64, n)
	prices[0] = l.BasePrice
	for i := 1; i < n; i++ {
		drift := 0.0002 * (1 + float64(i)/float64(n)*0.1)
		ret := drift + rng.NormFloat64()*vol
		prices[i] = math.Max(0.01, prices[i-1]*(1+ret))
	}

	bars := make([]model.Bar, n)
	start := now.Add(-time.Duration(n-1) * g.Interval).UTC()
	for i, p := range prices {
		high := p * (1 + math.Abs(0.01+rng.NormFloat64()*0.004))
		low := p * (1 - math.Abs(0.01+rng.NormFloat64()*0.004))
		cls := p * (1 + rng.NormFloat64()*0.005)
		volume := math.Exp(10+rng.NormFloat64()*1.2) * 1000

		high = math.Max(high, math.Max(p, cls))
		low = math.Min(low, math.Min(p, cls))
		bars[i] = model.Bar{
			TS:     start.Add(time.Duration(i) * g.Interval),
			Open:   p,
			High:   high,
			Low:    low,
			Close:  cls,
			Volume: volume,
		}
	}
	return bars
}
