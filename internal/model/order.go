package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Order statuses reported by the execution backend.
const (
	OrderStatusFilled    = "filled"
	OrderStatusCancelled = "cancelled"
)

// Order types.
const (
	OrderTypeMarket = "market"
	OrderTypeLimit  = "limit"
)

// OrderResult is what the execution backend reports for a placed order.
type OrderResult struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Side      Action    `json:"side"` // buy, sell
	Type      string    `json:"type"` // market, limit
	Amount    float64   `json:"amount"`
	Price     float64   `json:"price"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Notional returns amount × price.
func (o *OrderResult) Notional() float64 {
	return o.Amount * o.Price
}

// JSON returns the JSON-encoded order result.
func (o *OrderResult) JSON() ([]byte, error) {
	b, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("encode order %s: %w", o.ID, err)
	}
	return b, nil
}
