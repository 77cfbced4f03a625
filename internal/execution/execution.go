// Package execution places orders on behalf of the risk manager.
//
// Only a paper executor ships: it fills every order immediately at a
// simulated price. Live exchange connectivity is out of scope.
package execution

import (
	"context"
	"errors"

	"scalper/internal/model"
)

var (
	// ErrInvalidAmount is returned for non-positive order amounts.
	ErrInvalidAmount = errors.New("execution: amount must be positive")
	// ErrInvalidSide is returned for an order side other than buy or sell.
	ErrInvalidSide = errors.New("execution: side must be buy or sell")
	// ErrUnknownOrder is returned when cancelling an order that does not exist.
	ErrUnknownOrder = errors.New("execution: unknown order")
)

// Executor is the order execution collaborator.
type Executor interface {
	PlaceOrder(ctx context.Context, symbol string, side model.Action, amount, price float64) (*model.OrderResult, error)
	PlaceMarketOrder(ctx context.Context, symbol string, side model.Action, amount float64) (*model.OrderResult, error)
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
	AccountBalance(ctx context.Context) (map[string]float64, error)
	CancelOrder(ctx context.Context, id string) (bool, error)
}

func validate(side model.Action, amount float64) error {
	if side != model.ActionBuy && side != model.ActionSell {
		return ErrInvalidSide
	}
	if !(amount > 0) {
		return ErrInvalidAmount
	}
	return nil
}
