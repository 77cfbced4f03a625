package execution

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scalper/internal/model"
)

func TestPaperExecutor_MarketOrderFills(t *testing.T) {
	p := NewPaperExecutor(0, nil)
	o, err := p.PlaceMarketOrder(context.Background(), "BTC/USDT", model.ActionBuy, 40)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(o.ID, "paper-") {
		t.Errorf("id = %q, want paper- prefix", o.ID)
	}
	if o.Status != model.OrderStatusFilled || o.Type != model.OrderTypeMarket {
		t.Errorf("status/type = %s/%s", o.Status, o.Type)
	}
	if o.Price < 44500 || o.Price > 45500 {
		t.Errorf("price %v outside BTC jitter band", o.Price)
	}
	if o.Amount != 40 {
		t.Errorf("amount = %v", o.Amount)
	}
	if len(p.Fills()) != 1 {
		t.Errorf("fills = %d, want 1", len(p.Fills()))
	}
}

func TestPaperExecutor_UniqueIDs(t *testing.T) {
	p := NewPaperExecutor(0, nil)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		o, err := p.PlaceMarketOrder(context.Background(), "ETH/USDT", model.ActionSell, 1)
		if err != nil {
			t.Fatal(err)
		}
		if seen[o.ID] {
			t.Fatalf("duplicate id %s", o.ID)
		}
		seen[o.ID] = true
	}
}

func TestPaperExecutor_SlippageAgainstTrader(t *testing.T) {
	p := NewPaperExecutor(10, nil)
	buy, _ := p.PlaceMarketOrder(context.Background(), "DOGE/USDT", model.ActionBuy, 1)
	sell, _ := p.PlaceMarketOrder(context.Background(), "DOGE/USDT", model.ActionSell, 1)
	fills := p.Fills()
	if fills[0].Slippage <= 0 || fills[1].Slippage <= 0 {
		t.Fatal("expected positive slippage")
	}
	// Unknown symbols quote 100 ± 5; slippage is 10 bps of the raw price.
	if buy.Price-fills[0].Slippage < 95 || buy.Price-fills[0].Slippage > 105 {
		t.Errorf("buy raw price out of band: %v", buy.Price)
	}
	if sell.Price+fills[1].Slippage < 95 || sell.Price+fills[1].Slippage > 105 {
		t.Errorf("sell raw price out of band: %v", sell.Price)
	}
}

func TestPaperExecutor_Rejections(t *testing.T) {
	p := NewPaperExecutor(0, nil)
	ctx := context.Background()
	if _, err := p.PlaceMarketOrder(ctx, "BTC/USDT", model.ActionBuy, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amount: %v", err)
	}
	if _, err := p.PlaceMarketOrder(ctx, "BTC/USDT", model.ActionHold, 1); !errors.Is(err, ErrInvalidSide) {
		t.Errorf("hold side: %v", err)
	}
	if _, err := p.PlaceOrder(ctx, "BTC/USDT", model.ActionBuy, 1, 0); err == nil {
		t.Error("zero limit price should fail")
	}
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := p.PlaceMarketOrder(cctx, "BTC/USDT", model.ActionBuy, 1); err == nil {
		t.Error("cancelled context should fail")
	}
	if len(p.Fills()) != 0 {
		t.Errorf("rejected orders must not fill, got %d", len(p.Fills()))
	}
}

func TestPaperExecutor_LimitAndCancel(t *testing.T) {
	p := NewPaperExecutor(0, nil)
	ctx := context.Background()
	o, err := p.PlaceOrder(ctx, "SOL/USDT", model.ActionBuy, 2, 119.5)
	if err != nil {
		t.Fatal(err)
	}
	if o.Price != 119.5 || o.Type != model.OrderTypeLimit {
		t.Errorf("limit fill = %+v", o)
	}
	ok, err := p.CancelOrder(ctx, o.ID)
	if !ok || err != nil {
		t.Fatalf("cancel: %v %v", ok, err)
	}
	if fills := p.Fills(); len(fills) != 1 || fills[0].Order.Status != model.OrderStatusCancelled {
		t.Errorf("fills after cancel = %+v", fills)
	}
	if o.Status != model.OrderStatusFilled {
		t.Error("returned order must not change after cancel")
	}
	if _, err := p.CancelOrder(ctx, "paper-missing"); !errors.Is(err, ErrUnknownOrder) {
		t.Errorf("unknown cancel: %v", err)
	}
}

func TestPaperExecutor_Balances(t *testing.T) {
	p := NewPaperExecutor(0, nil)
	b, err := p.AccountBalance(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if b["USDT"] != 10000 || b["BTC"] != 0.1 || b["ETH"] != 2.5 {
		t.Errorf("balances = %v", b)
	}
	b["USDT"] = 0
	again, _ := p.AccountBalance(context.Background())
	if again["USDT"] != 10000 {
		t.Error("AccountBalance must return a copy")
	}
}

func TestJournal_RecordsFills(t *testing.T) {
	j, err := NewJournal(filepath.Join(t.TempDir(), "trades.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer j.Close()

	p := NewPaperExecutor(5, nil)
	p.SetSink(j)
	p.SetClock(func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) })

	ctx := context.Background()
	first, _ := p.PlaceMarketOrder(ctx, "BTC/USDT", model.ActionBuy, 40)
	second, _ := p.PlaceMarketOrder(ctx, "ETH/USDT", model.ActionSell, 52)

	trades, err := j.GetTrades(10)
	if err != nil {
		t.Fatalf("GetTrades: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("trades = %d, want 2", len(trades))
	}
	if trades[0].OrderID != second.ID || trades[1].OrderID != first.ID {
		t.Error("trades should be newest first")
	}
	if trades[0].Side != "sell" || trades[0].Amount != 52 {
		t.Errorf("row = %+v", trades[0])
	}

	if _, err := p.CancelOrder(ctx, first.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	trades, err = j.GetTrades(10)
	if err != nil {
		t.Fatal(err)
	}
	if trades[1].Status != model.OrderStatusCancelled || trades[0].Status != model.OrderStatusFilled {
		t.Errorf("statuses after cancel = %s, %s", trades[0].Status, trades[1].Status)
	}
	if err := j.Ping(); err != nil {
		t.Errorf("ping: %v", err)
	}
}
