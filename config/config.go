// Package config loads the bot's configuration from environment variables,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"scalper/internal/bot"
	"scalper/internal/marketdata"
	"scalper/internal/risk"
	"scalper/internal/strategy"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Exchange identity; opaque to the trading core and never logged.
	ExchangeName    string
	ExchangeAPIKey  string
	ExchangeSecret  string
	ExchangeSandbox bool

	// Risk
	MaxDailyTrades  int
	MaxPositionSize float64
	DailyLossLimit  float64
	RiskPerTrade    float64
	QuickMode       bool
	Cooldown        time.Duration
	RiskTimezone    string

	// Strategy
	RSIPeriod     int
	RSIOverbought float64
	RSIOversold   float64
	EMAFast       int
	EMASlow       int
	MinConfidence float64
	Timeframe     string

	// Market filter
	MinVolume24h       float64
	MaxSpread          float64
	AllowedPairs       []string
	ExcludeStablecoins bool

	// Loop
	ScanInterval    time.Duration
	CacheTTL        time.Duration
	AnalysisWorkers int

	// Infrastructure
	MetricsAddr      string // empty disables the HTTP server
	SQLitePath       string // empty disables the trade journal
	RedisAddr        string // empty disables the publisher
	RedisPassword    string
	LogLevel         string
	WebhookURL       string
	TelegramBotToken string
	TelegramChatID   string
	PaperSlippageBps float64
}

// LoadDotEnv loads variables from path without overriding ones already set.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from environment variables with defaults.
// Malformed values are reported, not replaced by defaults.
func Load() (*Config, error) {
	e := &env{}
	c := &Config{
		ExchangeName:    e.str("EXCHANGE_NAME", "binance"),
		ExchangeAPIKey:  e.str("EXCHANGE_API_KEY", ""),
		ExchangeSecret:  e.str("EXCHANGE_SECRET", ""),
		ExchangeSandbox: e.boolean("EXCHANGE_SANDBOX", true),

		MaxDailyTrades:  e.integer("RISK_MAX_DAILY_TRADES", 20),
		MaxPositionSize: e.float("RISK_MAX_POSITION_SIZE", 500),
		DailyLossLimit:  e.float("RISK_DAILY_LOSS_LIMIT", -300),
		RiskPerTrade:    e.float("RISK_PER_TRADE", 0.01),
		QuickMode:       e.boolean("RISK_QUICK_MODE", true),
		Cooldown:        e.seconds("RISK_COOLDOWN_SEC", 30),
		RiskTimezone:    e.str("RISK_TIMEZONE", "Local"),

		RSIPeriod:     e.integer("STRATEGY_RSI_PERIOD", 9),
		RSIOverbought: e.float("STRATEGY_RSI_OVERBOUGHT", 75),
		RSIOversold:   e.float("STRATEGY_RSI_OVERSOLD", 25),
		EMAFast:       e.integer("STRATEGY_EMA_FAST", 5),
		EMASlow:       e.integer("STRATEGY_EMA_SLOW", 12),
		MinConfidence: e.float("STRATEGY_MIN_CONFIDENCE", 0.55),
		Timeframe:     e.str("STRATEGY_TIMEFRAME", "1m"),

		MinVolume24h:       e.float("FILTER_MIN_VOLUME_24H", 500000),
		MaxSpread:          e.float("FILTER_MAX_SPREAD", 0.001),
		AllowedPairs:       e.list("FILTER_ALLOWED_PAIRS", "BTC/USDT,ETH/USDT,ADA/USDT,BNB/USDT,SOL/USDT"),
		ExcludeStablecoins: e.boolean("FILTER_EXCLUDE_STABLECOINS", true),

		ScanInterval:    e.seconds("SCAN_INTERVAL_SEC", 3),
		CacheTTL:        e.seconds("CACHE_TTL_SEC", 3),
		AnalysisWorkers: e.integer("ANALYSIS_WORKERS", 10),

		MetricsAddr:      e.str("METRICS_ADDR", ":9090"),
		SQLitePath:       e.str("SQLITE_PATH", ""),
		RedisAddr:        e.str("REDIS_ADDR", ""),
		RedisPassword:    e.str("REDIS_PASSWORD", ""),
		LogLevel:         e.str("LOG_LEVEL", "info"),
		WebhookURL:       e.str("WEBHOOK_URL", ""),
		TelegramBotToken: e.str("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   e.str("TELEGRAM_CHAT_ID", ""),
		PaperSlippageBps: e.float("PAPER_SLIPPAGE_BPS", 0),
	}
	if err := errors.Join(e.errs...); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks value ranges and cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("config: "+format, args...))
		}
	}
	check(c.MaxDailyTrades >= 0, "RISK_MAX_DAILY_TRADES must be >= 0, got %d", c.MaxDailyTrades)
	check(c.MaxPositionSize > 0, "RISK_MAX_POSITION_SIZE must be > 0, got %v", c.MaxPositionSize)
	check(c.DailyLossLimit <= 0, "RISK_DAILY_LOSS_LIMIT must be <= 0, got %v", c.DailyLossLimit)
	check(c.Cooldown >= 0, "RISK_COOLDOWN_SEC must be >= 0")
	check(c.RSIPeriod > 0, "STRATEGY_RSI_PERIOD must be > 0, got %d", c.RSIPeriod)
	check(c.RSIOversold < c.RSIOverbought, "STRATEGY_RSI_OVERSOLD (%v) must be below STRATEGY_RSI_OVERBOUGHT (%v)", c.RSIOversold, c.RSIOverbought)
	check(c.EMAFast > 0 && c.EMASlow > 0, "EMA periods must be > 0")
	check(c.EMAFast < c.EMASlow, "STRATEGY_EMA_FAST (%d) must be below STRATEGY_EMA_SLOW (%d)", c.EMAFast, c.EMASlow)
	check(c.MinConfidence >= 0 && c.MinConfidence <= 1, "STRATEGY_MIN_CONFIDENCE must be in [0,1], got %v", c.MinConfidence)
	check(c.ScanInterval > 0, "SCAN_INTERVAL_SEC must be > 0")
	check(c.CacheTTL > 0, "CACHE_TTL_SEC must be > 0")
	check(c.AnalysisWorkers > 0, "ANALYSIS_WORKERS must be > 0, got %d", c.AnalysisWorkers)
	check(c.PaperSlippageBps >= 0, "PAPER_SLIPPAGE_BPS must be >= 0")
	check((c.TelegramBotToken == "") == (c.TelegramChatID == ""), "TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
	return errors.Join(errs...)
}

// RiskLimits returns the risk manager limits.
func (c *Config) RiskLimits() risk.Limits {
	return risk.Limits{
		MaxDailyTrades:  c.MaxDailyTrades,
		MaxPositionSize: c.MaxPositionSize,
		DailyLossLimit:  c.DailyLossLimit,
		RiskPerTrade:    c.RiskPerTrade,
		QuickMode:       c.QuickMode,
		Cooldown:        c.Cooldown,
	}
}

// StrategyConfig returns the strategy parameters.
func (c *Config) StrategyConfig() strategy.Config {
	return strategy.Config{
		RSIPeriod:     c.RSIPeriod,
		RSIOverbought: c.RSIOverbought,
		RSIOversold:   c.RSIOversold,
		EMAFast:       c.EMAFast,
		EMASlow:       c.EMASlow,
		MinConfidence: c.MinConfidence,
		Timeframe:     c.Timeframe,
	}
}

// FilterConfig returns the market filter criteria.
func (c *Config) FilterConfig() marketdata.FilterConfig {
	return marketdata.FilterConfig{
		MinVolume24h:       c.MinVolume24h,
		MaxSpread:          c.MaxSpread,
		AllowedPairs:       c.AllowedPairs,
		ExcludeStablecoins: c.ExcludeStablecoins,
	}
}

// BotConfig returns the loop settings.
func (c *Config) BotConfig() bot.Config {
	cfg := bot.DefaultConfig()
	cfg.ScanInterval = c.ScanInterval
	cfg.CacheTTL = c.CacheTTL
	cfg.MaxWorkers = c.AnalysisWorkers
	cfg.MinConfidence = c.MinConfidence
	return cfg
}

// env reads typed variables and collects parse errors.
type env struct {
	errs []error
}

func (e *env) str(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func (e *env) integer(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s: invalid integer %q", key, v))
		return fallback
	}
	return n
}

func (e *env) float(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s: invalid number %q", key, v))
		return fallback
	}
	return f
}

func (e *env) boolean(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s: invalid boolean %q", key, v))
		return fallback
	}
	return b
}

// seconds parses a possibly fractional number of seconds.
func (e *env) seconds(key string, fallback float64) time.Duration {
	return time.Duration(e.float(key, fallback) * float64(time.Second))
}

// list splits a comma-separated value; "*" or an explicit empty value
// yields nil (no restriction).
func (e *env) list(key, fallback string) []string {
	v, ok := os.LookupEnv(key)
	if !ok {
		v = fallback
	}
	if strings.TrimSpace(v) == "*" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
