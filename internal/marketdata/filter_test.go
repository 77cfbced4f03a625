package marketdata

import (
	"context"
	"testing"
	"time"
)

func defaultFilterConfig() FilterConfig {
	return FilterConfig{
		MinVolume24h:       500000,
		MaxSpread:          0.001,
		AllowedPairs:       []string{"BTC/USDT", "ETH/USDT", "ADA/USDT", "BNB/USDT", "SOL/USDT"},
		ExcludeStablecoins: true,
	}
}

func TestFilter_BTCPasses(t *testing.T) {
	f := NewFilter(defaultFilterConfig(), nil, nil)
	btc := Listing{Symbol: "BTC/USDT", Volume24h: 25_000_000, Spread: 0.0002}
	if !f.Passes(btc) {
		t.Fatal("BTC/USDT should pass default filters")
	}
}

func TestFilter_Rejections(t *testing.T) {
	f := NewFilter(defaultFilterConfig(), nil, nil)
	cases := []struct {
		name string
		l    Listing
	}{
		{"low volume", Listing{Symbol: "BTC/USDT", Volume24h: 100, Spread: 0.0002}},
		{"wide spread", Listing{Symbol: "BTC/USDT", Volume24h: 25_000_000, Spread: 0.01}},
		{"not allowed", Listing{Symbol: "DOGE/USDT", Volume24h: 25_000_000, Spread: 0.0002}},
	}
	for _, tc := range cases {
		if f.Passes(tc.l) {
			t.Errorf("%s: expected rejection", tc.name)
		}
	}
}

func TestFilter_ExcludesStablecoinBase(t *testing.T) {
	cfg := defaultFilterConfig()
	cfg.AllowedPairs = nil
	f := NewFilter(cfg, nil, nil)
	if f.Passes(Listing{Symbol: "USDC/USDT", Volume24h: 1e9, Spread: 0.0001}) {
		t.Error("USDC/USDT should be excluded as a stablecoin pair")
	}
	cfg.ExcludeStablecoins = false
	f = NewFilter(cfg, nil, nil)
	if !f.Passes(Listing{Symbol: "USDC/USDT", Volume24h: 1e9, Spread: 0.0001}) {
		t.Error("USDC/USDT should pass when stablecoins are allowed")
	}
}

func TestFilter_EmptyAllowListAllowsAll(t *testing.T) {
	cfg := defaultFilterConfig()
	cfg.AllowedPairs = nil
	f := NewFilter(cfg, nil, nil)
	if !f.Passes(Listing{Symbol: "XRP/USDT", Volume24h: 1e7, Spread: 0.0001}) {
		t.Error("empty allow-list should not restrict symbols")
	}
}

func TestFilteredMarkets_DefaultUniverse(t *testing.T) {
	f := NewFilter(defaultFilterConfig(), nil, nil)
	now := time.Date(2026, 3, 2, 10, 15, 30, 0, time.UTC)
	f.SetClock(func() time.Time { return now })

	markets, err := f.FilteredMarkets(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(markets) != 5 {
		t.Fatalf("expected 5 markets, got %d", len(markets))
	}
	for _, m := range markets {
		if len(m.OHLCV) != DefaultWindow {
			t.Errorf("%s: window = %d bars", m.Symbol, len(m.OHLCV))
		}
		if m.CurrentPrice != m.OHLCV[len(m.OHLCV)-1].Close {
			t.Errorf("%s: current price should be last close", m.Symbol)
		}
	}
}

func TestFilteredMarkets_CancelledContext(t *testing.T) {
	f := NewFilter(defaultFilterConfig(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.FilteredMarkets(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
