// cmd/bot runs the paper-trading scalper: a scan-and-trade loop over the
// synthetic market universe, with metrics, a trade journal, an optional
// Redis publisher and a WebSocket event stream.
//
// Usage:
//
//	go run ./cmd/bot --env=.env
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"scalper/config"
	"scalper/internal/bot"
	"scalper/internal/execution"
	"scalper/internal/gateway"
	"scalper/internal/logger"
	"scalper/internal/marketdata"
	"scalper/internal/metrics"
	"scalper/internal/notification"
	"scalper/internal/risk"
	redisstore "scalper/internal/store/redis"
	"scalper/internal/strategy"
	"scalper/internal/tradingday"
)

func main() {
	envFile := flag.String("env", ".env", "Optional dotenv file")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		slog.Error("dotenv load failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	log := logger.Init("scalper", level)
	if err != nil {
		log.Warn("unknown LOG_LEVEL, using info", slog.String("value", cfg.LogLevel))
	}

	if err := run(cfg, log); err != nil {
		log.Error("exiting with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus(3 * cfg.ScanInterval)

	// ---- Trade journal (optional) ----
	paper := execution.NewPaperExecutor(cfg.PaperSlippageBps, log)
	var journal *execution.Journal
	if cfg.SQLitePath != "" {
		j, err := execution.NewJournal(cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer j.Close()
		journal = j
		paper.SetSink(journal)
		health.EnableSQLite()
	}

	// ---- Event sinks: gateway hub + Redis publisher (optional) ----
	hub := gateway.NewHub(1024, log)
	defer hub.Close()
	hub.OnClientsChanged(func(n int) { prom.GatewayClients.Set(float64(n)) })
	sinks := bot.Sinks{hub}

	var publisher *redisstore.Publisher
	if cfg.RedisAddr != "" {
		rdb, err := redisstore.Dial(ctx, redisstore.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err != nil {
			log.Warn("redis unavailable, continuing without publisher", slog.Any("error", err))
		} else {
			cb := redisstore.NewCircuitBreaker(5, 10*time.Second)
			cb.OnStateChange = func(from, to redisstore.State) {
				prom.RedisCircuitBreakerState.Set(float64(to))
				if to == redisstore.StateOpen {
					prom.RedisCircuitBreakerTrips.Inc()
				}
				log.Warn("redis circuit breaker transition", slog.String("from", from.String()), slog.String("to", to.String()))
			}
			publisher = redisstore.NewPublisher(rdb, cb, log)
			publisher.OnError(prom.PublishErrors.Inc)
			defer publisher.Close()
			sinks = append(sinks, publisher)
			health.EnableRedis()
			log.Info("redis publisher ready", slog.String("addr", cfg.RedisAddr))
		}
	}

	var (
		rdbClient *goredis.Client
		sqlDB     *sql.DB
	)
	if publisher != nil {
		rdbClient = publisher.Client()
	}
	if journal != nil {
		sqlDB = journal.DB()
	}
	health.StartLivenessChecker(ctx, rdbClient, sqlDB, 10*time.Second)

	// ---- Notifications ----
	notifiers := notification.Multi{notification.NewLogNotifier(log)}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	if cfg.TelegramBotToken != "" {
		notifiers = append(notifiers, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}

	// ---- Trading core ----
	loc, err := tradingday.LoadLocation(cfg.RiskTimezone)
	if err != nil {
		return err
	}
	filter := marketdata.NewFilter(cfg.FilterConfig(), marketdata.DefaultUniverse(), log)
	analyzer := strategy.NewScalping(cfg.StrategyConfig(), log)
	riskMgr := risk.NewManager(cfg.RiskLimits(), loc, log)

	b, err := bot.New(cfg.BotConfig(), bot.Deps{
		Source:   filter,
		Analyzer: analyzer,
		Risk:     riskMgr,
		Executor: paper,
		Metrics:  prom,
		Health:   health,
		Notifier: notifiers,
		Sink:     sinks,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	// ---- HTTP: /metrics, /healthz, /status, /ws, /api/* ----
	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr, prom, health, func() any { return b.Status() })
		srv.Handle("/ws", hub)
		srv.Handle("/api/missed", hub.MissedHandler())
		srv.Handle("/api/trades", tradesHandler(journal, paper, log))
		srv.Start()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			srv.Stop(shutdownCtx)
		}()
	}

	// ---- Startup banner ----
	sc := cfg.StrategyConfig()
	limits := cfg.RiskLimits()
	log.Info("scalper starting",
		slog.String("exchange", cfg.ExchangeName),
		slog.Bool("sandbox", cfg.ExchangeSandbox),
		slog.String("mode", "paper"),
	)
	log.Info("strategy",
		slog.String("name", analyzer.Name()),
		slog.Int("ema_fast", sc.EMAFast),
		slog.Int("ema_slow", sc.EMASlow),
		slog.Int("rsi_period", sc.RSIPeriod),
		slog.Float64("min_confidence", sc.MinConfidence),
		slog.Duration("scan_interval", cfg.ScanInterval),
		slog.Int("pairs", len(cfg.AllowedPairs)),
	)
	log.Info("risk limits",
		slog.Int("max_daily_trades", limits.MaxDailyTrades),
		slog.Float64("max_position_size", limits.MaxPositionSize),
		slog.Float64("daily_loss_limit", limits.DailyLossLimit),
		slog.Duration("cooldown", limits.Cooldown),
		slog.String("timezone", loc.String()),
	)

	// ---- Signals ----
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case s := <-sigCh:
			log.Info("shutdown signal received", slog.String("signal", s.String()))
			b.Stop()
		case <-ctx.Done():
		}
	}()

	err = b.Run(ctx)
	log.Info("final status", slog.String("risk", riskMgr.Status().String()))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// tradesHandler serves recent trades from the journal, or from the paper
// executor's in-memory fills when no journal is configured.
func tradesHandler(j *execution.Journal, paper *execution.PaperExecutor, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Content-Type", "application/json")

		limit := 100
		if s := r.URL.Query().Get("limit"); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}

		var body any
		if j != nil {
			trades, err := j.GetTrades(limit)
			if err != nil {
				log.Error("journal query failed", slog.Any("error", err))
				http.Error(w, `{"error":"journal unavailable"}`, http.StatusInternalServerError)
				return
			}
			body = trades
		} else {
			fills := paper.Fills()
			if len(fills) > limit {
				fills = fills[len(fills)-limit:]
			}
			body = fills
		}
		if err := json.NewEncoder(w).Encode(body); err != nil {
			log.Warn("trades encode failed", slog.Any("error", err))
		}
	})
}
