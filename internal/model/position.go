package model

import "time"

// Position records an executed trade with its protective levels.
// Levels are informational; nothing closes positions automatically.
type Position struct {
	Trade      OrderResult `json:"trade"`
	StopLoss   float64     `json:"stop_loss"`
	TakeProfit float64     `json:"take_profit"`
	OpenedAt   time.Time   `json:"opened_at"`
}
