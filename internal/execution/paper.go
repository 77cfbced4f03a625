package execution

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"scalper/internal/model"
)

// quote is the simulated price centre and jitter range for a symbol.
type quote struct {
	base, jitter float64
}

var defaultQuotes = map[string]quote{
	"BTC/USDT": {45000, 500},
	"ETH/USDT": {3000, 50},
	"ADA/USDT": {0.45, 0.025},
	"BNB/USDT": {350, 5},
	"SOL/USDT": {120, 2.5},
}

var fallbackQuote = quote{100, 5}

// Fill is a simulated order fill.
type Fill struct {
	Order    model.OrderResult `json:"order"`
	Slippage float64           `json:"slippage"` // price units
}

// FillSink receives every fill; the SQLite Journal implements it.
type FillSink interface {
	RecordFill(Fill) error
}

// CancelSink is implemented by sinks that also track cancellations.
type CancelSink interface {
	RecordCancel(orderID string) error
}

// PaperExecutor simulates order execution without exchange calls.
// Every order fills immediately; market orders fill at a jittered price
// adjusted by slippage against the trader.
type PaperExecutor struct {
	mu       sync.Mutex
	fills    []Fill
	orders   map[string]int // order id -> index in fills
	balances map[string]float64
	rng      *rand.Rand

	slippageBps float64 // basis points (5 = 0.05%)
	sink        FillSink
	now         func() time.Time
	logger      *slog.Logger
}

// NewPaperExecutor creates a paper executor with the default balances.
func NewPaperExecutor(slippageBps float64, logger *slog.Logger) *PaperExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaperExecutor{
		fills:       make([]Fill, 0, 64),
		orders:      make(map[string]int),
		balances:    map[string]float64{"USDT": 10000, "BTC": 0.1, "ETH": 2.5},
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		slippageBps: slippageBps,
		now:         time.Now,
		logger:      logger.With(slog.String("component", "paper_executor")),
	}
}

// SetSink attaches a fill sink such as the trade journal.
func (p *PaperExecutor) SetSink(s FillSink) { p.sink = s }

// SetClock overrides the timestamp source.
func (p *PaperExecutor) SetClock(now func() time.Time) { p.now = now }

// Fills returns a snapshot of all fills.
func (p *PaperExecutor) Fills() []Fill {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]Fill, len(p.fills))
	copy(cp, p.fills)
	return cp
}

// PlaceOrder fills a limit order at exactly price.
func (p *PaperExecutor) PlaceOrder(ctx context.Context, symbol string, side model.Action, amount, price float64) (*model.OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validate(side, amount); err != nil {
		return nil, err
	}
	if !(price > 0) {
		return nil, fmt.Errorf("execution: limit price must be positive, got %v", price)
	}
	return p.fill(symbol, side, model.OrderTypeLimit, amount, price, 0), nil
}

// PlaceMarketOrder fills at the current simulated price plus slippage.
func (p *PaperExecutor) PlaceMarketOrder(ctx context.Context, symbol string, side model.Action, amount float64) (*model.OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validate(side, amount); err != nil {
		return nil, err
	}
	price, err := p.CurrentPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}
	slippage := price * p.slippageBps / 10000
	if side == model.ActionBuy {
		price += slippage // buy higher
	} else {
		price -= slippage // sell lower
	}
	return p.fill(symbol, side, model.OrderTypeMarket, amount, price, slippage), nil
}

func (p *PaperExecutor) fill(symbol string, side model.Action, typ string, amount, price, slippage float64) *model.OrderResult {
	order := &model.OrderResult{
		ID:        "paper-" + uuid.NewString(),
		Symbol:    symbol,
		Side:      side,
		Type:      typ,
		Amount:    amount,
		Price:     price,
		Status:    model.OrderStatusFilled,
		Timestamp: p.now().UTC(),
	}
	f := Fill{Order: *order, Slippage: slippage}

	p.mu.Lock()
	p.orders[order.ID] = len(p.fills)
	p.fills = append(p.fills, f)
	p.mu.Unlock()

	p.logger.Info("paper fill",
		slog.String("order_id", order.ID),
		slog.String("symbol", symbol),
		slog.String("side", string(side)),
		slog.String("type", typ),
		slog.Float64("amount", amount),
		slog.Float64("price", price),
		slog.Float64("slippage", slippage),
	)

	if p.sink != nil {
		if err := p.sink.RecordFill(f); err != nil {
			p.logger.Error("journal write failed", slog.String("order_id", order.ID), slog.Any("error", err))
		}
	}
	cp := *order
	return &cp
}

// CurrentPrice returns a jittered price around the symbol's reference price.
func (p *PaperExecutor) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	q, ok := defaultQuotes[symbol]
	if !ok {
		q = fallbackQuote
	}
	p.mu.Lock()
	u := p.rng.Float64()
	p.mu.Unlock()
	return q.base + (u*2-1)*q.jitter, nil
}

// AccountBalance returns a copy of the simulated balances.
func (p *PaperExecutor) AccountBalance(ctx context.Context) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]float64, len(p.balances))
	for k, v := range p.balances {
		out[k] = v
	}
	return out, nil
}

// CancelOrder marks a known order cancelled. Paper orders are already filled,
// so cancellation only changes the recorded status.
func (p *PaperExecutor) CancelOrder(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p.mu.Lock()
	i, ok := p.orders[id]
	if ok {
		p.fills[i].Order.Status = model.OrderStatusCancelled
	}
	p.mu.Unlock()
	if !ok {
		return false, ErrUnknownOrder
	}
	p.logger.Info("paper order cancelled", slog.String("order_id", id))

	if cs, ok := p.sink.(CancelSink); ok {
		if err := cs.RecordCancel(id); err != nil {
			p.logger.Error("journal cancel failed", slog.String("order_id", id), slog.Any("error", err))
		}
	}
	return true, nil
}
