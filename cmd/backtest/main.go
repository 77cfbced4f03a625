// cmd/backtest drives the trading loop through a fixed number of cycles on a
// simulated clock, back to back without sleeping, against the synthetic
// market source and a fresh paper executor.
//
// Usage:
//
//	go run ./cmd/backtest --cycles=500 --step=3s --db=data/backtest.db
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"scalper/config"
	"scalper/internal/bot"
	"scalper/internal/execution"
	"scalper/internal/logger"
	"scalper/internal/marketdata"
	"scalper/internal/risk"
	"scalper/internal/strategy"
	"scalper/internal/tradingday"
)

// simClock is a manually advanced clock shared by every component.
type simClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *simClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *simClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func main() {
	cycles := flag.Int("cycles", 200, "Number of cycles to run")
	step := flag.Duration("step", 0, "Simulated time per cycle (0 = SCAN_INTERVAL_SEC)")
	startStr := flag.String("start", "", "Simulated start time, RFC3339 (default: now)")
	dbPath := flag.String("db", "", "Optional SQLite journal for simulated fills")
	verbose := flag.Bool("v", false, "Log every cycle")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	log := logger.Init("scalper-backtest", level)

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Error("dotenv load failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if *step <= 0 {
		*step = cfg.ScanInterval
	}

	start := time.Now()
	if *startStr != "" {
		if start, err = time.Parse(time.RFC3339, *startStr); err != nil {
			log.Error("invalid --start", slog.Any("error", err))
			os.Exit(1)
		}
	}
	clock := &simClock{t: start}

	loc, err := tradingday.LoadLocation(cfg.RiskTimezone)
	if err != nil {
		log.Error("invalid timezone", slog.Any("error", err))
		os.Exit(1)
	}

	paper := execution.NewPaperExecutor(cfg.PaperSlippageBps, log)
	paper.SetClock(clock.Now)
	if *dbPath != "" {
		j, err := execution.NewJournal(*dbPath)
		if err != nil {
			log.Error("journal open failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer j.Close()
		paper.SetSink(j)
	}

	filter := marketdata.NewFilter(cfg.FilterConfig(), marketdata.DefaultUniverse(), log)
	filter.SetClock(clock.Now)
	riskMgr := risk.NewManager(cfg.RiskLimits(), loc, log)
	riskMgr.SetClock(clock.Now)

	b, err := bot.New(cfg.BotConfig(), bot.Deps{
		Source:   filter,
		Analyzer: strategy.NewScalping(cfg.StrategyConfig(), log),
		Risk:     riskMgr,
		Executor: paper,
		Logger:   log,
	})
	if err != nil {
		log.Error("bot init failed", slog.Any("error", err))
		os.Exit(1)
	}
	b.SetClock(clock.Now)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	sum, err := simulate(ctx, b, clock, *cycles, *step)
	if err != nil {
		log.Error("cycle failed", slog.Any("error", err))
		os.Exit(1)
	}

	st := riskMgr.Status()
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║        BACKTEST COMPLETE             ║")
	fmt.Println("╠══════════════════════════════════════╣")
	fmt.Printf("║  Cycles run:        %-16d ║\n", sum.Cycles)
	fmt.Printf("║  Analyses:          %-16d ║\n", sum.Analyzed)
	fmt.Printf("║  Cache hits:        %-16d ║\n", sum.Cached)
	fmt.Printf("║  Actionable:        %-16d ║\n", sum.Actionable)
	fmt.Printf("║  Trades:            %-16d ║\n", sum.Trades)
	fmt.Printf("║  Blocked:           %-16d ║\n", sum.Blocked)
	fmt.Printf("║  Open positions:    %-16d ║\n", st.OpenPositions)
	fmt.Printf("║  Sim time:          %-16s ║\n", sum.SimTime.String())
	fmt.Printf("║  Wall time:         %-16s ║\n", sum.Wall.Round(time.Microsecond).String())
	fmt.Println("╚══════════════════════════════════════╝")
}

// summary aggregates the cycle reports of a run.
type summary struct {
	Cycles, Analyzed, Cached, Actionable, Trades, Blocked int

	SimTime time.Duration // simulated clock advance
	Wall    time.Duration // real time spent inside RunCycle
}

// simulate runs up to n cycles, advancing clock by step after each one.
// Report elapsed times come from the simulated clock, so wall time is
// measured here.
func simulate(ctx context.Context, b *bot.Bot, clock *simClock, n int, step time.Duration) (summary, error) {
	var sum summary
	for i := 0; i < n && ctx.Err() == nil; i++ {
		began := time.Now()
		report, err := b.RunCycle(ctx)
		sum.Wall += time.Since(began)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return sum, fmt.Errorf("cycle %d: %w", report.Cycle, err)
		}
		sum.Cycles++
		sum.Analyzed += report.Analyzed
		sum.Cached += report.Cached
		sum.Actionable += report.Actionable
		sum.Trades += report.Trades
		sum.Blocked += report.Blocked
		if report.Trades > 0 && (sum.Trades <= 10 || sum.Trades%50 == 0) {
			fmt.Printf("  [%s] cycle=%d trades=%d actionable=%d\n",
				report.StartedAt.Format("15:04:05"), report.Cycle, report.Trades, report.Actionable)
		}
		clock.Advance(step)
		sum.SimTime += step
	}
	return sum, nil
}
