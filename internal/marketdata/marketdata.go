// Package marketdata supplies the markets the bot scans each cycle.
//
// The Filter keeps the symbols of a fixed universe that pass the volume,
// spread, allow-list and stablecoin criteria, and attaches a synthetic
// OHLCV window to each. No exchange is contacted.
package marketdata

import (
	"context"
	"time"

	"scalper/internal/model"
)

// Source is the market-filter collaborator consumed by the bot.
type Source interface {
	// FilteredMarkets returns the markets tradable this cycle, each with a
	// time-ordered OHLCV window.
	FilteredMarkets(ctx context.Context) ([]model.Market, error)
}

// Listing is the static description of a symbol in the universe.
type Listing struct {
	Symbol    string  `json:"symbol"`
	Volume24h float64 `json:"volume_24h"`
	Spread    float64 `json:"spread"`
	BasePrice float64 `json:"base_price"`
}

// DefaultUniverse returns the five pairs the simulator knows about.
func DefaultUniverse() []Listing {
	return []Listing{
		{Symbol: "BTC/USDT", Volume24h: 25_000_000, Spread: 0.0002, BasePrice: 45000},
		{Symbol: "ETH/USDT", Volume24h: 15_000_000, Spread: 0.0005, BasePrice: 3000},
		{Symbol: "ADA/USDT", Volume24h: 500_000, Spread: 0.001, BasePrice: 0.45},
		{Symbol: "BNB/USDT", Volume24h: 8_000_000, Spread: 0.0003, BasePrice: 350},
		{Symbol: "SOL/USDT", Volume24h: 12_000_000, Spread: 0.0006, BasePrice: 120},
	}
}

// FromCloses builds a market whose window has the given closes, one bar per
// minute ending at end. Each bar opens at the previous close and its
// high/low bracket open and close, so the bar invariant always holds.
func FromCloses(l Listing, closes []float64, end time.Time) model.Market {
	bars := make([]model.Bar, len(closes))
	start := end.Add(-time.Duration(len(closes)-1) * time.Minute)
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		hi, lo := open, c
		if c > hi {
			hi, lo = c, open
		}
		bars[i] = model.Bar{
			TS:     start.Add(time.Duration(i) * time.Minute),
			Open:   open,
			High:   hi * 1.001,
			Low:    lo * 0.999,
			Close:  c,
			Volume: 1000,
		}
	}
	m := model.Market{
		Symbol:    l.Symbol,
		Volume24h: l.Volume24h,
		Spread:    l.Spread,
		BasePrice: l.BasePrice,
		OHLCV:     bars,
	}
	if len(closes) > 0 {
		m.CurrentPrice = closes[len(closes)-1]
	}
	return m
}
