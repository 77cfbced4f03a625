package marketdata

import (
	"context"
	"log/slog"
	"time"

	"scalper/internal/model"
)

// stablecoins are excluded as base assets when ExcludeStablecoins is set.
var stablecoins = map[string]bool{
	"USDT": true, "USDC": true, "BUSD": true, "DAI": true, "TUSD": true, "FDUSD": true,
}

// FilterConfig holds the market filter criteria.
type FilterConfig struct {
	MinVolume24h       float64  `json:"min_volume_24h"`
	MaxSpread          float64  `json:"max_spread"`
	AllowedPairs       []string `json:"allowed_pairs"` // empty = all pairs
	ExcludeStablecoins bool     `json:"exclude_stablecoins"`
}

// Filter is the synthetic Source: it filters a fixed universe and attaches
// generated OHLCV windows.
type Filter struct {
	cfg      FilterConfig
	universe []Listing
	allowed  map[string]bool
	gen      *Generator
	now      func() time.Time
	logger   *slog.Logger
}

// NewFilter creates a Filter over universe. A nil universe uses DefaultUniverse.
func NewFilter(cfg FilterConfig, universe []Listing, logger *slog.Logger) *Filter {
	if universe == nil {
		universe = DefaultUniverse()
	}
	if logger == nil {
		logger = slog.Default()
	}
	allowed := make(map[string]bool, len(cfg.AllowedPairs))
	for _, p := range cfg.AllowedPairs {
		allowed[p] = true
	}
	return &Filter{
		cfg:      cfg,
		universe: universe,
		allowed:  allowed,
		gen:      NewGenerator(),
		now:      time.Now,
		logger:   logger.With(slog.String("component", "market_filter")),
	}
}

// SetClock overrides the wall clock used to seed generated windows.
func (f *Filter) SetClock(now func() time.Time) { f.now = now }

// Passes reports whether the listing satisfies every filter criterion.
func (f *Filter) Passes(l Listing) bool {
	if l.Volume24h < f.cfg.MinVolume24h {
		return false
	}
	if l.Spread > f.cfg.MaxSpread {
		return false
	}
	if len(f.allowed) > 0 && !f.allowed[l.Symbol] {
		return false
	}
	if f.cfg.ExcludeStablecoins {
		m := model.Market{Symbol: l.Symbol}
		if stablecoins[m.BaseAsset()] {
			return false
		}
	}
	return true
}

// FilteredMarkets implements Source.
func (f *Filter) FilteredMarkets(ctx context.Context) ([]model.Market, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := f.now()
	out := make([]model.Market, 0, len(f.universe))
	for _, l := range f.universe {
		if !f.Passes(l) {
			continue
		}
		bars := f.gen.Generate(l, now)
		out = append(out, model.Market{
			Symbol:       l.Symbol,
			Volume24h:    l.Volume24h,
			Spread:       l.Spread,
			BasePrice:    l.BasePrice,
			CurrentPrice: bars[len(bars)-1].Close,
			OHLCV:        bars,
		})
	}
	f.logger.Debug("markets filtered", slog.Int("universe", len(f.universe)), slog.Int("passed", len(out)))
	return out, nil
}
