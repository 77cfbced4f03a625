// Package redis publishes trading events to Redis pub/sub for external
// consumers (dashboards, loggers, other bots).
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"scalper/internal/model"
)

const (
	defaultLatestTTL = 5 * time.Minute
	defaultTimeout   = 500 * time.Millisecond
)

// Channel and key layout.
const (
	ChannelSignalPrefix = "pub:signal:"
	ChannelTradePrefix  = "pub:trade:"
	ChannelCycle        = "pub:cycle"
	KeyLatestSignal     = "latest:signal:"
)

// Config configures the Redis connection.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
}

// commander is the subset of *goredis.Client the publisher uses.
type commander interface {
	Publish(ctx context.Context, channel string, message interface{}) *goredis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
}

// Publisher writes signals, trades and cycle reports to Redis. Every call
// goes through a circuit breaker so an unavailable Redis costs the loop
// nothing beyond a log line.
type Publisher struct {
	client    commander
	rdb       *goredis.Client
	cb        *CircuitBreaker
	latestTTL time.Duration
	timeout   time.Duration
	onError   func()
	logger    *slog.Logger
}

// Dial connects to Redis and pings the server.
func Dial(ctx context.Context, cfg Config) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// NewPublisher wraps an established client.
func NewPublisher(rdb *goredis.Client, cb *CircuitBreaker, logger *slog.Logger) *Publisher {
	p := newPublisher(rdb, cb, logger)
	p.rdb = rdb
	return p
}

func newPublisher(c commander, cb *CircuitBreaker, logger *slog.Logger) *Publisher {
	if cb == nil {
		cb = NewCircuitBreaker(5, 10*time.Second)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		client:    c,
		cb:        cb,
		latestTTL: defaultLatestTTL,
		timeout:   defaultTimeout,
		logger:    logger.With(slog.String("component", "redis_publisher")),
	}
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.rdb }

// Breaker returns the publisher's circuit breaker.
func (p *Publisher) Breaker() *CircuitBreaker { return p.cb }

// OnError registers a callback run for every failed publication.
func (p *Publisher) OnError(fn func()) { p.onError = fn }

// PublishSignal publishes the signal and stores it as the symbol's latest.
func (p *Publisher) PublishSignal(ctx context.Context, sig model.Signal) error {
	payload, err := sig.JSON()
	if err != nil {
		return p.fail("encode", err)
	}
	return p.do(ctx, "signal", func(ctx context.Context) error {
		if err := p.client.Publish(ctx, ChannelSignalPrefix+sig.Symbol, payload).Err(); err != nil {
			return err
		}
		return p.client.Set(ctx, KeyLatestSignal+sig.Symbol, payload, p.latestTTL).Err()
	})
}

// PublishTrade publishes an executed order.
func (p *Publisher) PublishTrade(ctx context.Context, o *model.OrderResult) error {
	payload, err := o.JSON()
	if err != nil {
		return p.fail("encode", err)
	}
	return p.do(ctx, "trade", func(ctx context.Context) error {
		return p.client.Publish(ctx, ChannelTradePrefix+o.Symbol, payload).Err()
	})
}

// PublishCycle publishes a cycle summary.
func (p *Publisher) PublishCycle(ctx context.Context, r model.CycleReport) error {
	payload, err := r.JSON()
	if err != nil {
		return p.fail("encode", err)
	}
	return p.do(ctx, "cycle", func(ctx context.Context) error {
		return p.client.Publish(ctx, ChannelCycle, payload).Err()
	})
}

func (p *Publisher) do(ctx context.Context, kind string, fn func(context.Context) error) error {
	err := p.cb.Execute(func() error {
		cctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return fn(cctx)
	})
	if err != nil {
		return p.fail(kind, err)
	}
	return nil
}

func (p *Publisher) fail(kind string, err error) error {
	if p.onError != nil {
		p.onError()
	}
	if err == ErrCircuitOpen {
		p.logger.Debug("publish skipped, circuit open", slog.String("kind", kind))
	} else {
		p.logger.Warn("publish failed", slog.String("kind", kind), slog.Any("error", err))
	}
	return fmt.Errorf("publish %s: %w", kind, err)
}

// Close closes the underlying client when the publisher owns one.
func (p *Publisher) Close() error {
	if p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}
