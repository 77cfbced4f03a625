// Package notification provides alert delivery to external channels
// (Telegram, webhooks, logs) for trading events.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"scalper/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// AlertKind identifies which trading event an alert reports.
type AlertKind string

const (
	KindTrade      AlertKind = "trade"
	KindDailyLimit AlertKind = "daily_limit"
	KindFatal      AlertKind = "fatal"
)

// Alert represents a notification to be sent. Trade and Limit carry the
// structured event for backends that render more than the message.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Kind    AlertKind  `json:"kind,omitempty"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
	Trade   *TradeInfo `json:"trade,omitempty"`
	Limit   *LimitInfo `json:"limit,omitempty"`
}

// TradeInfo describes an executed order.
type TradeInfo struct {
	OrderID    string       `json:"order_id"`
	Symbol     string       `json:"symbol"`
	Side       model.Action `json:"side"`
	Amount     float64      `json:"amount"`
	Price      float64      `json:"price"`
	Notional   float64      `json:"notional"`
	Confidence float64      `json:"confidence"`
}

// LimitInfo describes the risk state when trading paused for the day.
type LimitInfo struct {
	Reason      string  `json:"reason"`
	DailyTrades int     `json:"daily_trades"`
	DailyPnL    float64 `json:"daily_pnl"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// TradeAlert describes an executed order.
func TradeAlert(o *model.OrderResult, confidence float64) Alert {
	return Alert{
		Level: AlertInfo,
		Kind:  KindTrade,
		Title: fmt.Sprintf("%s %s", o.Side, o.Symbol),
		Message: fmt.Sprintf("order %s filled %.4f @ %.6g, notional %.2f (confidence %.2f)",
			o.ID, o.Amount, o.Price, o.Notional(), confidence),
		Trade: &TradeInfo{
			OrderID:    o.ID,
			Symbol:     o.Symbol,
			Side:       o.Side,
			Amount:     o.Amount,
			Price:      o.Price,
			Notional:   o.Notional(),
			Confidence: confidence,
		},
	}
}

// DailyLimitAlert reports that trading stopped for the day.
func DailyLimitAlert(reason string, trades int, pnl float64) Alert {
	return Alert{
		Level:   AlertWarning,
		Kind:    KindDailyLimit,
		Title:   "Daily limit reached",
		Message: fmt.Sprintf("trading paused (%s): trades=%d pnl=%.2f", reason, trades, pnl),
		Limit:   &LimitInfo{Reason: reason, DailyTrades: trades, DailyPnL: pnl},
	}
}

// FatalAlert reports that the trading loop stopped on an error.
func FatalAlert(err error) Alert {
	return Alert{
		Level:   AlertCritical,
		Kind:    KindFatal,
		Title:   "Trading loop stopped",
		Message: err.Error(),
	}
}

// LogNotifier is a simple notifier that logs alerts (useful for development).
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With(slog.String("component", "notify"))}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	level := slog.LevelInfo
	switch alert.Level {
	case AlertWarning:
		level = slog.LevelWarn
	case AlertCritical:
		level = slog.LevelError
	}
	n.logger.Log(ctx, level, alert.Title, slog.String("message", alert.Message))
	return nil
}

// Multi fans an alert out to several notifiers. Every notifier is tried;
// the returned error joins all failures.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
