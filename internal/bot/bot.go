// Package bot runs the scan-and-trade loop: fetch filtered markets, analyse
// the uncached ones concurrently, then trade actionable signals through the
// risk manager, once per scan interval.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"scalper/internal/execution"
	"scalper/internal/logger"
	"scalper/internal/marketdata"
	"scalper/internal/metrics"
	"scalper/internal/model"
	"scalper/internal/notification"
	"scalper/internal/risk"
	"scalper/internal/strategy"
)

// ErrAlreadyRunning is returned by Run when the loop is already active.
var ErrAlreadyRunning = errors.New("bot: already running")

// Config holds the loop timing and concurrency settings.
type Config struct {
	ScanInterval  time.Duration // target cadence between cycle starts
	CacheTTL      time.Duration // analysis cache bucket width
	MaxWorkers    int           // concurrent analyses per cycle
	MinConfidence float64       // signals below this are not traded
	EmptySleep    time.Duration // pause when no market passes the filter
	MinSleep      time.Duration // floor on the end-of-cycle sleep
}

// DefaultConfig returns a 3s cadence with a 3s cache and 10 workers.
func DefaultConfig() Config {
	return Config{
		ScanInterval:  3 * time.Second,
		CacheTTL:      3 * time.Second,
		MaxWorkers:    10,
		MinConfidence: 0.55,
		EmptySleep:    time.Second,
		MinSleep:      100 * time.Millisecond,
	}
}

// Deps are the bot's collaborators. Source, Analyzer, Risk and Executor
// are required; the rest default to no-op or private instances.
type Deps struct {
	Source   marketdata.Source
	Analyzer strategy.Analyzer
	Risk     *risk.Manager
	Executor execution.Executor

	Metrics  *metrics.Metrics
	Health   *metrics.HealthStatus
	Notifier notification.Notifier
	Sink     EventSink
	Logger   *slog.Logger
}

// Status is the bot snapshot served on /status.
type Status struct {
	Running      bool              `json:"running"`
	Cycles       uint64            `json:"cycles"`
	CacheEntries int               `json:"cache_entries"`
	LastCycle    model.CycleReport `json:"last_cycle"`
	Risk         risk.Status       `json:"risk"`
}

// Bot is the cycle orchestrator.
type Bot struct {
	cfg      Config
	source   marketdata.Source
	analyzer strategy.Analyzer
	risk     *risk.Manager
	exec     execution.Executor
	cache    *AnalysisCache

	metrics  *metrics.Metrics
	health   *metrics.HealthStatus
	notifier notification.Notifier
	sink     EventSink
	logger   *slog.Logger
	now      func() time.Time

	running atomic.Bool
	cycles  atomic.Uint64

	mu           sync.Mutex
	cancel       context.CancelFunc
	lastReport   model.CycleReport
	limitAlerted string // reset date of the last daily-limit alert
}

// New creates a bot.
func New(cfg Config, d Deps) (*Bot, error) {
	if d.Source == nil || d.Analyzer == nil || d.Risk == nil || d.Executor == nil {
		return nil, errors.New("bot: source, analyzer, risk and executor are required")
	}
	if cfg.ScanInterval <= 0 {
		return nil, fmt.Errorf("bot: scan interval must be positive, got %s", cfg.ScanInterval)
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 10
	}
	if cfg.MinSleep <= 0 {
		cfg.MinSleep = 100 * time.Millisecond
	}
	if cfg.EmptySleep <= 0 {
		cfg.EmptySleep = time.Second
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewMetrics()
	}
	if d.Health == nil {
		d.Health = metrics.NewHealthStatus(0)
	}
	if d.Notifier == nil {
		d.Notifier = notification.NewLogNotifier(d.Logger)
	}
	if d.Sink == nil {
		d.Sink = Sinks(nil)
	}

	b := &Bot{
		cfg:      cfg,
		source:   d.Source,
		analyzer: d.Analyzer,
		risk:     d.Risk,
		exec:     d.Executor,
		cache:    NewAnalysisCache(),
		metrics:  d.Metrics,
		health:   d.Health,
		notifier: d.Notifier,
		sink:     d.Sink,
		logger:   d.Logger.With(slog.String("component", "bot")),
		now:      time.Now,
	}
	d.Risk.OnReject(func(_, reason string) {
		b.metrics.TradesBlocked.WithLabelValues(reason).Inc()
	})
	return b, nil
}

// SetClock overrides the clock used for cache buckets and timing.
func (b *Bot) SetClock(now func() time.Time) { b.now = now }

// Cache exposes the analysis cache.
func (b *Bot) Cache() *AnalysisCache { return b.cache }

// Running reports whether Run is active.
func (b *Bot) Running() bool { return b.running.Load() }

// Status returns a snapshot for the status endpoint.
func (b *Bot) Status() Status {
	b.mu.Lock()
	last := b.lastReport
	b.mu.Unlock()
	return Status{
		Running:      b.running.Load(),
		Cycles:       b.cycles.Load(),
		CacheEntries: b.cache.Len(),
		LastCycle:    last,
		Risk:         b.risk.Status(),
	}
}

// Run executes cycles until ctx is cancelled or Stop is called, both of
// which return nil. An error fetching markets or a panic in the cycle
// body stops the loop and is returned.
func (b *Bot) Run(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()
	defer func() {
		cancel()
		b.running.Store(false)
		b.health.SetRunning(false)
	}()

	b.health.SetRunning(true)
	b.logger.Info("trading loop started",
		slog.Duration("scan_interval", b.cfg.ScanInterval),
		slog.Duration("cache_ttl", b.cfg.CacheTTL),
		slog.Int("workers", b.cfg.MaxWorkers),
		slog.String("strategy", b.analyzer.Name()),
	)

	for b.running.Load() {
		report, err := b.RunCycle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			b.logger.Error("trading loop stopped on error", slog.Uint64("cycle", report.Cycle), slog.Any("error", err))
			if nerr := b.notifier.Send(context.Background(), notification.FatalAlert(err)); nerr != nil {
				b.logger.Warn("fatal alert not delivered", slog.Any("error", nerr))
			}
			return err
		}

		wait := b.cfg.EmptySleep
		if report.Markets > 0 {
			wait = b.cfg.ScanInterval - report.Elapsed
			if wait < b.cfg.MinSleep {
				wait = b.cfg.MinSleep
			}
		}
		if !sleep(ctx, wait) {
			break
		}
	}

	b.logger.Info("trading loop stopped", slog.Uint64("cycles", b.cycles.Load()))
	return nil
}

// Stop ends the loop at its next suspension point and abandons in-flight
// analyses. It is safe to call more than once.
func (b *Bot) Stop() {
	b.running.Store(false)
	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	b.mu.Unlock()
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// RunCycle performs one fetch-analyse-trade pass without the trailing sleep.
func (b *Bot) RunCycle(ctx context.Context) (report model.CycleReport, err error) {
	start := b.now()
	report.Cycle = b.cycles.Add(1)
	report.StartedAt = start
	report.TraceID = logger.GenerateTraceID("cycle", start)
	ctx = logger.WithTraceID(ctx, report.TraceID)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle %d panicked: %v", report.Cycle, r)
		}
	}()

	markets, err := b.source.FilteredMarkets(ctx)
	if err != nil {
		return report, fmt.Errorf("fetch markets: %w", err)
	}
	report.Markets = len(markets)
	b.metrics.MarketsScanned.Set(float64(len(markets)))
	if len(markets) == 0 {
		b.logger.Info("no markets passed the filter", logger.LogWithTrace(ctx)...)
		report.Elapsed = b.now().Sub(start)
		b.finishCycle(ctx, report, 0)
		return report, nil
	}

	bucket := BucketOf(start, b.cfg.CacheTTL)
	signals, fresh, err := b.analyzeAll(ctx, markets, bucket)
	if err != nil {
		return report, err
	}

	for i, sig := range signals {
		if !fresh[i] {
			report.Cached++
			continue
		}
		report.Analyzed++
		if sig.Reason == model.ReasonAnalysisFault {
			report.Failed++
		}
		b.cache.Put(sig.Symbol, bucket, sig)
		b.metrics.SignalsTotal.WithLabelValues(string(sig.Action)).Inc()
		if perr := b.sink.PublishSignal(ctx, sig); perr != nil {
			b.logger.Debug("signal not published", slog.String("symbol", sig.Symbol), slog.Any("error", perr))
		}
	}
	pruned := b.cache.Prune(bucket)
	b.metrics.CacheHits.Add(float64(report.Cached))
	b.metrics.CacheMisses.Add(float64(report.Analyzed))
	b.metrics.CacheEntries.Set(float64(b.cache.Len()))

	b.trade(ctx, markets, signals, &report)

	report.Elapsed = b.now().Sub(start)
	b.finishCycle(ctx, report, pruned)
	return report, nil
}

// analyzeAll returns one signal per market, index-aligned with markets.
// fresh[i] is false when signals[i] came from the cache.
func (b *Bot) analyzeAll(ctx context.Context, markets []model.Market, bucket int64) ([]model.Signal, []bool, error) {
	signals := make([]model.Signal, len(markets))
	fresh := make([]bool, len(markets))

	var g errgroup.Group
	g.SetLimit(b.cfg.MaxWorkers)
	for i := range markets {
		if sig, ok := b.cache.Get(markets[i].Symbol, bucket); ok {
			signals[i] = sig
			continue
		}
		fresh[i] = true
		i := i
		g.Go(func() error {
			signals[i] = b.analyze(ctx, markets[i])
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		g.Wait()
		close(done)
	}()
	select {
	case <-done:
		return signals, fresh, nil
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

// analyze never fails: a panic becomes a hold signal.
func (b *Bot) analyze(ctx context.Context, m model.Market) (sig model.Signal) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("analysis task failed",
				append(logger.LogWithTrace(ctx), slog.String("symbol", m.Symbol), slog.Any("panic", r))...)
			sig = model.Hold(m.Symbol, model.ReasonAnalysisFault)
		}
		if sig.Reason == model.ReasonAnalysisFault {
			b.metrics.AnalysisFailures.Inc()
		}
		b.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	}()
	sig = b.analyzer.Analyze(ctx, m)
	if sig.Symbol == "" {
		sig.Symbol = m.Symbol
	}
	return sig
}

func (b *Bot) trade(ctx context.Context, markets []model.Market, signals []model.Signal, report *model.CycleReport) {
	for i, sig := range signals {
		if !sig.Actionable(b.cfg.MinConfidence) {
			continue
		}
		report.Actionable++

		if ok, reason := b.risk.CanTrade(); !ok {
			report.Blocked++
			b.metrics.TradesBlocked.WithLabelValues(reason).Inc()
			b.logger.Info("trade skipped by risk limits",
				append(logger.LogWithTrace(ctx),
					slog.String("symbol", sig.Symbol),
					slog.String("action", string(sig.Action)),
					slog.String("reason", reason))...)
			b.alertDailyLimit(ctx, reason)
			continue
		}

		order := b.risk.ExecuteTrade(ctx, markets[i], sig, b.exec)
		if order == nil {
			report.Blocked++
			continue
		}
		report.Trades++
		b.metrics.TradesTotal.WithLabelValues(string(order.Side)).Inc()
		b.metrics.DailyTrades.Set(float64(b.risk.DailyTrades()))
		if err := b.sink.PublishTrade(ctx, order); err != nil {
			b.logger.Debug("trade not published", slog.String("order_id", order.ID), slog.Any("error", err))
		}
		if err := b.notifier.Send(ctx, notification.TradeAlert(order, sig.Confidence)); err != nil {
			b.logger.Warn("trade alert not delivered", slog.String("order_id", order.ID), slog.Any("error", err))
		}
	}
}

// alertDailyLimit sends at most one alert per risk day.
func (b *Bot) alertDailyLimit(ctx context.Context, reason string) {
	st := b.risk.Status()
	b.mu.Lock()
	if b.limitAlerted == st.ResetDate {
		b.mu.Unlock()
		return
	}
	b.limitAlerted = st.ResetDate
	b.mu.Unlock()

	if err := b.notifier.Send(ctx, notification.DailyLimitAlert(reason, st.DailyTrades, st.DailyPnL)); err != nil {
		b.logger.Warn("daily limit alert not delivered", slog.Any("error", err))
	}
}

func (b *Bot) finishCycle(ctx context.Context, report model.CycleReport, pruned int) {
	b.mu.Lock()
	b.lastReport = report
	b.mu.Unlock()

	b.metrics.CyclesTotal.Inc()
	b.metrics.CycleDuration.Observe(report.Elapsed.Seconds())
	b.health.MarkCycle(report.Cycle, b.now())

	if err := b.sink.PublishCycle(ctx, report); err != nil {
		b.logger.Debug("cycle not published", slog.Any("error", err))
	}
	b.logger.Info("cycle complete",
		append(logger.LogWithTrace(ctx),
			slog.Uint64("cycle", report.Cycle),
			slog.Int("markets", report.Markets),
			slog.Int("analyzed", report.Analyzed),
			slog.Int("cached", report.Cached),
			slog.Int("actionable", report.Actionable),
			slog.Int("trades", report.Trades),
			slog.Int("pruned", pruned),
			slog.Duration("elapsed", report.Elapsed))...)
}
