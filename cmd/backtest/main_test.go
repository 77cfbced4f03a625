package main

import (
	"context"
	"testing"
	"time"

	"scalper/internal/bot"
	"scalper/internal/execution"
	"scalper/internal/marketdata"
	"scalper/internal/risk"
	"scalper/internal/strategy"
)

func TestSimulate_MeasuresWallTime(t *testing.T) {
	clock := &simClock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}

	filter := marketdata.NewFilter(marketdata.FilterConfig{
		MinVolume24h: 500000,
		MaxSpread:    0.001,
	}, marketdata.DefaultUniverse(), nil)
	filter.SetClock(clock.Now)
	rm := risk.NewManager(risk.DefaultLimits(), time.UTC, nil)
	rm.SetClock(clock.Now)
	paper := execution.NewPaperExecutor(0, nil)
	paper.SetClock(clock.Now)

	b, err := bot.New(bot.DefaultConfig(), bot.Deps{
		Source:   filter,
		Analyzer: strategy.NewScalping(strategy.DefaultConfig(), nil),
		Risk:     rm,
		Executor: paper,
	})
	if err != nil {
		t.Fatal(err)
	}
	b.SetClock(clock.Now)

	sum, err := simulate(context.Background(), b, clock, 5, 3*time.Second)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if sum.Cycles != 5 || sum.SimTime != 15*time.Second {
		t.Errorf("cycles = %d, sim time = %v", sum.Cycles, sum.SimTime)
	}
	if sum.Wall <= 0 {
		t.Errorf("wall time = %v, want > 0", sum.Wall)
	}
	if sum.Analyzed == 0 {
		t.Error("no markets analysed")
	}
}
