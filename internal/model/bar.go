package model

import "time"

// Bar is one OHLCV interval for a single symbol.
// Prices are quote-currency floats; the simulator never settles real money.
type Bar struct {
	TS     time.Time `json:"ts"` // interval start (UTC)
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Consistent reports whether low <= {open, close} <= high holds.
func (b *Bar) Consistent() bool {
	return b.Low <= b.Open && b.Low <= b.Close && b.Open <= b.High && b.Close <= b.High
}

