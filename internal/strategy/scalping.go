package strategy

import (
	"context"
	"log/slog"
	"math"
	"sync/atomic"

	"scalper/internal/indicator"
	"scalper/internal/model"
	"scalper/internal/stablehash"
)

const (
	windowBars    = 30 // analysis uses at most the last 30 bars
	minBars       = 15 // below this the market is not analysed
	momentumBack  = 5  // momentum compares against the 5th most recent close
	maxConfidence = 0.85
)

// Scalping combines RSI, EMA and momentum conditions with a per-cycle
// variation term into a confidence-scored buy/sell/hold decision.
//
// Buy/sell requires |score| >= 2 and both quality gates:
// |RSI-50| > 10 and |EMAfast-EMAslow|/EMAslow > 0.2%.
type Scalping struct {
	cfg    Config
	calls  atomic.Uint64
	logger *slog.Logger
}

// NewScalping creates the scalping strategy. A nil logger uses slog.Default().
func NewScalping(cfg Config, logger *slog.Logger) *Scalping {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scalping{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "strategy")),
	}
}

func (s *Scalping) Name() string { return "scalping" }

// Calls returns how many times Analyze has been invoked.
func (s *Scalping) Calls() uint64 { return s.calls.Load() }

// Analyze implements Analyzer.
func (s *Scalping) Analyze(ctx context.Context, market model.Market) (sig model.Signal) {
	call := s.calls.Add(1)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("analysis failed", slog.String("symbol", market.Symbol), slog.Any("panic", r))
			sig = model.Hold(market.Symbol, model.ReasonAnalysisFault)
		}
	}()

	market = market.Tail(windowBars)
	if len(market.OHLCV) < minBars {
		return model.Hold(market.Symbol, model.ReasonInsufficientData)
	}

	closes := market.Closes()
	rsi := indicator.Last(indicator.RSI(closes, s.cfg.RSIPeriod))
	emaFast := indicator.Last(indicator.EMA(closes, s.cfg.EMAFast))
	emaSlow := indicator.Last(indicator.EMA(closes, s.cfg.EMASlow))
	if !finite(rsi) || !finite(emaFast) || !finite(emaSlow) {
		return model.Hold(market.Symbol, model.ReasonInvalidIndicator)
	}

	return s.decide(market.Symbol, closes, rsi, emaFast, emaSlow, call)
}

func (s *Scalping) decide(symbol string, closes []float64, rsi, emaFast, emaSlow float64, call uint64) model.Signal {
	last := closes[len(closes)-1]

	rsiCond := 0
	switch {
	case rsi >= 20 && rsi <= s.cfg.RSIOversold:
		rsiCond = 1
	case rsi >= s.cfg.RSIOverbought && rsi <= 80:
		rsiCond = -1
	}

	emaCond := 0
	vsFast := ratio(last, emaFast)
	vsSlow := ratio(last, emaSlow)
	switch {
	case vsFast > 1.002 && vsSlow > 1.001:
		emaCond = 1
	case vsFast < 0.998 && vsSlow < 0.999:
		emaCond = -1
	}

	momentumCond := 0
	priceChange := 0.0
	if len(closes) >= momentumBack {
		priceChange = (ratio(last, closes[len(closes)-momentumBack]) - 1) * 100
		if priceChange > 0.5 {
			momentumCond = 1
		} else if priceChange < -0.5 {
			momentumCond = -1
		}
	}

	score := rsiCond + emaCond + momentumCond + CycleVariation(call, symbol)

	rsiDecisive := math.Abs(rsi-50) > 10
	emasApart := math.Abs(ratio(emaFast, emaSlow)-1) > 0.002

	sig := model.Signal{
		Symbol: symbol,
		Action: model.ActionHold,
		Reason: model.ReasonNoEdge,
		Indicators: map[string]float64{
			"rsi":          rsi,
			"ema_fast":     emaFast,
			"ema_slow":     emaSlow,
			"score":        float64(score),
			"price_change": priceChange,
		},
	}
	if !rsiDecisive || !emasApart {
		return sig
	}
	switch {
	case score >= 2:
		sig.Action = model.ActionBuy
		sig.Confidence = math.Min(maxConfidence, 0.5+float64(score)*0.1)
		sig.Reason = model.ReasonScored
	case score <= -2:
		sig.Action = model.ActionSell
		sig.Confidence = math.Min(maxConfidence, 0.5+float64(-score)*0.1)
		sig.Reason = model.ReasonScored
	}
	return sig
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// ratio returns a/b, or 1 (no change) when the quotient is not finite,
// e.g. against a zero close. Snapshot values must stay JSON-encodable.
func ratio(a, b float64) float64 {
	r := a / b
	if !finite(r) {
		return 1
	}
	return r
}

// CycleVariation returns the deterministic perturbation in {-1,0,1} applied
// on the given call number for symbol: ((call + hash(symbol) mod 10) mod 3) - 1.
// It rotates every call so the same symbol does not repeat the same
// decision on consecutive cycles.
func CycleVariation(call uint64, symbol string) int {
	h := uint64(stablehash.Symbol(symbol) % 10)
	return int((call+h)%3) - 1
}
