// Package strategy turns one market's OHLCV window into a trading signal.
//
// An Analyzer is total: whatever the input, it returns a Signal. Missing
// data, NaN indicators and recovered faults all surface as a hold signal
// whose Reason says what happened.
package strategy

import (
	"context"

	"scalper/internal/model"
)

// Analyzer is the interface the cycle orchestrator drives.
// Implementations must be safe for concurrent Analyze calls.
type Analyzer interface {
	// Name returns the unique name of the strategy.
	Name() string

	// Analyze returns the signal for market. It never fails.
	Analyze(ctx context.Context, market model.Market) model.Signal
}

// Config holds the strategy tunables.
type Config struct {
	RSIPeriod     int     `json:"rsi_period"`
	RSIOverbought float64 `json:"rsi_overbought"`
	RSIOversold   float64 `json:"rsi_oversold"`
	EMAFast       int     `json:"ema_fast"`
	EMASlow       int     `json:"ema_slow"`
	MinConfidence float64 `json:"min_confidence"`
	Timeframe     string  `json:"timeframe"` // informational, e.g. "1m"
}

// DefaultConfig returns the fast-scalping defaults.
func DefaultConfig() Config {
	return Config{
		RSIPeriod:     9,
		RSIOverbought: 75,
		RSIOversold:   25,
		EMAFast:       5,
		EMASlow:       12,
		MinConfidence: 0.55,
		Timeframe:     "1m",
	}
}
