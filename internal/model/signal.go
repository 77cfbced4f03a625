package model

import (
	"encoding/json"
	"fmt"
)

// Action is the trade direction a signal recommends.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// SignalReason tells why a signal has the action it has. Neutral outcomes
// carry a reason instead of an error so analysis stays total.
type SignalReason string

const (
	ReasonScored           SignalReason = "scored"            // score passed the gates
	ReasonNoEdge           SignalReason = "no_edge"           // score or gates too weak
	ReasonInsufficientData SignalReason = "insufficient_data" // fewer bars than required
	ReasonInvalidIndicator SignalReason = "invalid_indicator" // NaN in latest indicator
	ReasonAnalysisFault    SignalReason = "analysis_fault"    // recovered failure
)

// Signal is the strategy's decision for one market in one cycle.
// It is never mutated after being returned.
type Signal struct {
	Symbol     string             `json:"symbol"`
	Action     Action             `json:"action"`
	Confidence float64            `json:"confidence"` // [0,1]
	Indicators map[string]float64 `json:"indicators,omitempty"`
	Reason     SignalReason       `json:"reason"`
}

// Hold returns the neutral {hold, 0} signal for symbol.
func Hold(symbol string, reason SignalReason) Signal {
	return Signal{Symbol: symbol, Action: ActionHold, Confidence: 0, Reason: reason}
}

// Actionable reports whether the signal is a buy/sell at or above minConfidence.
func (s *Signal) Actionable(minConfidence float64) bool {
	return s.Action != ActionHold && s.Confidence >= minConfidence
}

// JSON returns the JSON-encoded signal.
func (s *Signal) JSON() ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode signal %s: %w", s.Symbol, err)
	}
	return b, nil
}
