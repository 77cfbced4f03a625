package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"scalper/internal/model"
)

type published struct {
	channel string
	payload []byte
}

type fakeRedis struct {
	pubs []published
	sets map[string][]byte
	ttl  time.Duration
	err  error
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message interface{}) *goredis.IntCmd {
	if f.err != nil {
		return goredis.NewIntResult(0, f.err)
	}
	f.pubs = append(f.pubs, published{channel, message.([]byte)})
	return goredis.NewIntResult(1, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, exp time.Duration) *goredis.StatusCmd {
	if f.err != nil {
		return goredis.NewStatusResult("", f.err)
	}
	if f.sets == nil {
		f.sets = map[string][]byte{}
	}
	f.sets[key] = value.([]byte)
	f.ttl = exp
	return goredis.NewStatusResult("OK", nil)
}

func TestPublisher_Signal(t *testing.T) {
	fr := &fakeRedis{}
	p := newPublisher(fr, nil, nil)

	sig := model.Signal{Symbol: "BTC/USDT", Action: model.ActionBuy, Confidence: 0.7, Reason: model.ReasonScored}
	if err := p.PublishSignal(context.Background(), sig); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(fr.pubs) != 1 || fr.pubs[0].channel != "pub:signal:BTC/USDT" {
		t.Fatalf("pubs = %+v", fr.pubs)
	}
	var got model.Signal
	if err := json.Unmarshal(fr.sets["latest:signal:BTC/USDT"], &got); err != nil {
		t.Fatalf("latest key: %v", err)
	}
	if got.Action != model.ActionBuy || got.Confidence != 0.7 {
		t.Errorf("latest = %+v", got)
	}
	if fr.ttl != defaultLatestTTL {
		t.Errorf("ttl = %v", fr.ttl)
	}
}

func TestPublisher_TradeAndCycle(t *testing.T) {
	fr := &fakeRedis{}
	p := newPublisher(fr, nil, nil)
	ctx := context.Background()

	p.PublishTrade(ctx, &model.OrderResult{ID: "paper-1", Symbol: "ETH/USDT", Side: model.ActionSell})
	p.PublishCycle(ctx, model.CycleReport{Cycle: 3, Markets: 5})

	if len(fr.pubs) != 2 {
		t.Fatalf("pubs = %d", len(fr.pubs))
	}
	if fr.pubs[0].channel != "pub:trade:ETH/USDT" || fr.pubs[1].channel != "pub:cycle" {
		t.Errorf("channels = %s, %s", fr.pubs[0].channel, fr.pubs[1].channel)
	}
}

func TestPublisher_BreakerOpensOnFailures(t *testing.T) {
	fr := &fakeRedis{err: errors.New("connection refused")}
	cb := NewCircuitBreaker(2, time.Minute)
	p := newPublisher(fr, cb, nil)
	errCount := 0
	p.OnError(func() { errCount++ })

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := p.PublishCycle(ctx, model.CycleReport{Cycle: uint64(i)}); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}
	if cb.CurrentState() != StateOpen {
		t.Errorf("breaker = %v, want open", cb.CurrentState())
	}
	if err := p.PublishCycle(ctx, model.CycleReport{}); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if errCount != 4 {
		t.Errorf("error callbacks = %d, want 4", errCount)
	}
}

func TestPublisher_UnencodableSignalIsNotSent(t *testing.T) {
	fr := &fakeRedis{}
	p := newPublisher(fr, nil, nil)
	errCount := 0
	p.OnError(func() { errCount++ })

	sig := model.Signal{Symbol: "BTC/USDT", Indicators: map[string]float64{"price_change": math.Inf(1)}}
	if err := p.PublishSignal(context.Background(), sig); err == nil {
		t.Fatal("expected encode error")
	}
	if len(fr.pubs) != 0 || len(fr.sets) != 0 {
		t.Errorf("nothing should reach redis: pubs=%d sets=%d", len(fr.pubs), len(fr.sets))
	}
	if errCount != 1 {
		t.Errorf("error callbacks = %d, want 1", errCount)
	}
}
