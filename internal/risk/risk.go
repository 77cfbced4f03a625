// Package risk gates and sizes trades: daily trade and loss limits, a
// per-symbol cooldown, confidence-scaled position sizing and protective
// stop/target levels.
package risk

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"scalper/internal/execution"
	"scalper/internal/model"
	"scalper/internal/tradingday"
)

// Reasons reported when a trade is refused.
const (
	ReasonDailyTrades = "daily_trade_limit"
	ReasonDailyLoss   = "daily_loss_limit"
	ReasonCooldown    = "cooldown"
	ReasonSize        = "size"
	ReasonExecution   = "execution_failed"
)

const baseSizeFraction = 0.08

// Limits defines configurable risk thresholds.
type Limits struct {
	MaxDailyTrades  int           `json:"max_daily_trades"`
	MaxPositionSize float64       `json:"max_position_size"`
	DailyLossLimit  float64       `json:"daily_loss_limit"` // negative
	RiskPerTrade    float64       `json:"risk_per_trade"`
	QuickMode       bool          `json:"quick_mode"`
	Cooldown        time.Duration `json:"cooldown"`
}

// DefaultLimits returns the quick-mode scalping limits.
func DefaultLimits() Limits {
	return Limits{
		MaxDailyTrades:  20,
		MaxPositionSize: 500,
		DailyLossLimit:  -300,
		RiskPerTrade:    0.01,
		QuickMode:       true,
		Cooldown:        30 * time.Second,
	}
}

// Status is a point-in-time snapshot of the manager's state.
type Status struct {
	DailyTrades   int                  `json:"daily_trades"`
	DailyPnL      float64              `json:"daily_pnl"`
	ResetDate     string               `json:"reset_date"`
	OpenPositions int                  `json:"open_positions"`
	LastTrades    map[string]time.Time `json:"last_trades"`
	Limits        Limits               `json:"limits"`
}

// Manager validates trades against the limits and records executed ones.
type Manager struct {
	mu     sync.Mutex
	limits Limits
	loc    *time.Location
	now    func() time.Time

	dailyTrades int
	dailyPnL    float64
	resetDate   time.Time
	lastTrade   map[string]time.Time
	positions   []model.Position

	onReject func(symbol, reason string)
	logger   *slog.Logger
}

// NewManager creates a Manager whose day boundary is midnight in loc.
func NewManager(limits Limits, loc *time.Location, logger *slog.Logger) *Manager {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		limits:    limits,
		loc:       loc,
		now:       time.Now,
		lastTrade: make(map[string]time.Time),
		logger:    logger.With(slog.String("component", "risk")),
	}
	m.resetDate = tradingday.Today(loc, m.now())
	return m
}

// SetClock overrides the wall clock and re-anchors the reset date.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
	m.resetDate = tradingday.Today(m.loc, now())
}

// OnReject registers a callback invoked whenever a trade is refused.
func (m *Manager) OnReject(fn func(symbol, reason string)) { m.onReject = fn }

// Limits returns the configured limits.
func (m *Manager) Limits() Limits { return m.limits }

// CanTrade reports whether the daily limits still allow trading. The daily
// counters are reset first when the calendar day has advanced.
func (m *Manager) CanTrade() (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetIfNewDay()
	if m.dailyTrades >= m.limits.MaxDailyTrades {
		return false, ReasonDailyTrades
	}
	if m.dailyPnL <= m.limits.DailyLossLimit {
		return false, ReasonDailyLoss
	}
	return true, ""
}

func (m *Manager) resetIfNewDay() {
	now := m.now()
	if !tradingday.After(m.loc, m.resetDate, now) {
		return
	}
	m.logger.Info("daily risk counters reset",
		slog.Int("trades", m.dailyTrades),
		slog.Float64("pnl", m.dailyPnL),
		slog.String("day", tradingday.Key(m.loc, now)),
	)
	m.dailyTrades = 0
	m.dailyPnL = 0
	m.resetDate = tradingday.Today(m.loc, now)
}

// PositionSize returns the order amount for a signal of the given confidence.
func (m *Manager) PositionSize(confidence float64) float64 {
	mult := 1.0
	switch {
	case confidence > 0.8:
		mult = 1.5
	case confidence > 0.7:
		mult = 1.3
	}
	return math.Min(m.limits.MaxPositionSize*baseSizeFraction*mult, m.limits.MaxPositionSize)
}

// ProtectiveLevels returns the stop-loss and take-profit for an entry at price.
func ProtectiveLevels(side model.Action, price float64) (stop, target float64) {
	if side == model.ActionBuy {
		return price * 0.992, price * 1.015
	}
	return price * 1.008, price * 0.985
}

// ExecuteTrade sizes and places a market order for an actionable signal.
// It returns nil when the trade is refused or fails; a returned order has
// always been fully recorded. Failures never propagate to the caller.
func (m *Manager) ExecuteTrade(ctx context.Context, market model.Market, sig model.Signal, exec execution.Executor) (order *model.OrderResult) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("trade execution panicked", slog.String("symbol", market.Symbol), slog.Any("panic", r))
			m.reject(market.Symbol, ReasonExecution)
			order = nil
		}
	}()

	m.mu.Lock()
	now := m.now()
	if last, ok := m.lastTrade[market.Symbol]; ok && now.Sub(last) < m.limits.Cooldown {
		m.mu.Unlock()
		m.logger.Debug("symbol in cooldown", slog.String("symbol", market.Symbol), slog.Duration("since_last", now.Sub(last)))
		m.reject(market.Symbol, ReasonCooldown)
		return nil
	}
	m.mu.Unlock()

	size := m.PositionSize(sig.Confidence)
	if !(size > 0) {
		m.logger.Warn("computed position size not positive", slog.String("symbol", market.Symbol), slog.Float64("size", size))
		m.reject(market.Symbol, ReasonSize)
		return nil
	}

	result, err := exec.PlaceMarketOrder(ctx, market.Symbol, sig.Action, size)
	if err != nil || result == nil {
		m.logger.Error("order placement failed",
			slog.String("symbol", market.Symbol),
			slog.String("side", string(sig.Action)),
			slog.Float64("size", size),
			slog.Any("error", err),
		)
		m.reject(market.Symbol, ReasonExecution)
		return nil
	}

	stop, target := ProtectiveLevels(sig.Action, market.CurrentPrice)

	m.mu.Lock()
	m.dailyTrades++
	m.lastTrade[market.Symbol] = now
	m.positions = append(m.positions, model.Position{
		Trade:      *result,
		StopLoss:   stop,
		TakeProfit: target,
		OpenedAt:   now,
	})
	trades := m.dailyTrades
	m.mu.Unlock()

	m.logger.Info("trade executed",
		slog.String("order_id", result.ID),
		slog.String("symbol", market.Symbol),
		slog.String("side", string(sig.Action)),
		slog.Float64("amount", result.Amount),
		slog.Float64("price", result.Price),
		slog.Float64("stop_loss", stop),
		slog.Float64("take_profit", target),
		slog.Float64("confidence", sig.Confidence),
		slog.Int("daily_trades", trades),
	)
	return result
}

func (m *Manager) reject(symbol, reason string) {
	if m.onReject != nil {
		m.onReject(symbol, reason)
	}
}

// RecordPnL adds realized P&L to the daily total. Nothing in the loop
// computes P&L; this is for operators and tests.
func (m *Manager) RecordPnL(pnl float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetIfNewDay()
	m.dailyPnL += pnl
	m.logger.Info("pnl recorded", slog.Float64("pnl", pnl), slog.Float64("daily_pnl", m.dailyPnL))
}

// DailyTrades returns the number of trades executed today.
func (m *Manager) DailyTrades() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dailyTrades
}

// DailyPnL returns today's recorded P&L.
func (m *Manager) DailyPnL() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dailyPnL
}

// Positions returns a copy of every recorded position.
func (m *Manager) Positions() []model.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Position, len(m.positions))
	copy(out, m.positions)
	return out
}

// Status returns a snapshot for the status endpoint.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	last := make(map[string]time.Time, len(m.lastTrade))
	for k, v := range m.lastTrade {
		last[k] = v
	}
	return Status{
		DailyTrades:   m.dailyTrades,
		DailyPnL:      m.dailyPnL,
		ResetDate:     m.resetDate.Format("2006-01-02"),
		OpenPositions: len(m.positions),
		LastTrades:    last,
		Limits:        m.limits,
	}
}

func (s Status) String() string {
	return fmt.Sprintf("trades=%d/%d pnl=%.2f positions=%d", s.DailyTrades, s.Limits.MaxDailyTrades, s.DailyPnL, s.OpenPositions)
}
