package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scalper"

// Metrics holds all Prometheus metrics for the trading loop. Each instance
// owns its registry so several can coexist in one process.
type Metrics struct {
	Registry *prometheus.Registry

	CyclesTotal      prometheus.Counter
	CycleDuration    prometheus.Histogram
	AnalysisDuration prometheus.Histogram
	MarketsScanned   prometheus.Gauge

	// Analysis cache
	CacheHits    prometheus.Counter
	CacheMisses  prometheus.Counter
	CacheEntries prometheus.Gauge

	SignalsTotal     *prometheus.CounterVec // labels: action
	AnalysisFailures prometheus.Counter

	// Risk and execution
	TradesTotal   *prometheus.CounterVec // labels: side
	TradesBlocked *prometheus.CounterVec // labels: reason
	DailyTrades   prometheus.Gauge

	// Publisher circuit breaker
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter
	PublishErrors            prometheus.Counter

	GatewayClients prometheus.Gauge
}

// NewMetrics creates all metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,

		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Total scan cycles completed",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Processing time of a scan cycle, excluding the sleep",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Strategy analysis latency per market",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
		MarketsScanned: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "markets_scanned",
			Help:      "Markets returned by the filter in the last cycle",
		}),

		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Signals served from the analysis cache",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Markets that required a fresh analysis",
		}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Entries in the analysis cache after pruning",
		}),

		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_total",
			Help:      "Signals produced (by action)",
		}, []string{"action"}),
		AnalysisFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_failures_total",
			Help:      "Analyses that failed and were replaced by hold",
		}),

		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Executed trades (by side)",
		}, []string{"side"}),
		TradesBlocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_blocked_total",
			Help:      "Actionable signals not traded (by reason)",
		}, []string{"reason"}),
		DailyTrades: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "daily_trades",
			Help:      "Trades executed since the last daily reset",
		}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "redis_circuit_breaker_state",
			Help:      "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redis_circuit_breaker_trips_total",
			Help:      "Times the Redis circuit breaker tripped open",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Event publications that failed or were short-circuited",
		}),

		GatewayClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gateway_clients",
			Help:      "Connected WebSocket clients",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.CyclesTotal,
		m.CycleDuration,
		m.AnalysisDuration,
		m.MarketsScanned,
		m.CacheHits,
		m.CacheMisses,
		m.CacheEntries,
		m.SignalsTotal,
		m.AnalysisFailures,
		m.TradesTotal,
		m.TradesBlocked,
		m.DailyTrades,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.PublishErrors,
		m.GatewayClients,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	Mu sync.RWMutex

	Running       bool      `json:"running"`
	LastCycleAt   time.Time `json:"last_cycle_at"`
	LastCycle     uint64    `json:"last_cycle"`
	StaleAfter    time.Duration
	RedisEnabled  bool `json:"redis_enabled"`
	RedisOK       bool `json:"redis_ok"`
	SQLiteEnabled bool `json:"sqlite_enabled"`
	SQLiteOK      bool `json:"sqlite_ok"`

	// Liveness check results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status. The loop is reported
// stale when no cycle completed within staleAfter.
func NewHealthStatus(staleAfter time.Duration) *HealthStatus {
	return &HealthStatus{
		StartedAt:  time.Now(),
		StaleAfter: staleAfter,
	}
}

func (h *HealthStatus) SetRunning(v bool) {
	h.Mu.Lock()
	h.Running = v
	h.Mu.Unlock()
}

// MarkCycle records a completed cycle.
func (h *HealthStatus) MarkCycle(n uint64, at time.Time) {
	h.Mu.Lock()
	h.LastCycle = n
	h.LastCycleAt = at
	h.Mu.Unlock()
}

// EnableRedis marks Redis as a configured dependency.
func (h *HealthStatus) EnableRedis() {
	h.Mu.Lock()
	h.RedisEnabled = true
	h.Mu.Unlock()
}

// EnableSQLite marks SQLite as a configured dependency.
func (h *HealthStatus) EnableSQLite() {
	h.Mu.Lock()
	h.SQLiteEnabled = true
	h.Mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.Mu.Lock()
	h.RedisOK = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.Mu.Unlock()
}

// CheckSQLite pings the database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.Mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.Mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks. Nil dependencies
// are skipped.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	check := func() {
		checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if rdb != nil {
			h.CheckRedis(checkCtx, rdb)
		}
		if sqlDB != nil {
			h.CheckSQLite(checkCtx, sqlDB)
		}
	}
	go func() {
		check()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				check()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Mu.RLock()
	defer h.Mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	stale := h.StaleAfter > 0 && !h.LastCycleAt.IsZero() && time.Since(h.LastCycleAt) > h.StaleAfter
	if (h.RedisEnabled && !h.RedisOK) || (h.SQLiteEnabled && !h.SQLiteOK) || stale {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.Running {
		overallStatus = "unhealthy"
		httpCode = http.StatusServiceUnavailable
	}

	cycleAge := ""
	if !h.LastCycleAt.IsZero() {
		cycleAge = time.Since(h.LastCycleAt).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		Running         bool    `json:"running"`
		LastCycle       uint64  `json:"last_cycle"`
		LastCycleAt     string  `json:"last_cycle_at"`
		CycleAge        string  `json:"cycle_age"`
		RedisEnabled    bool    `json:"redis_enabled"`
		RedisOK         bool    `json:"redis_ok"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteEnabled   bool    `json:"sqlite_enabled"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		Running:         h.Running,
		LastCycle:       h.LastCycle,
		LastCycleAt:     h.LastCycleAt.Format(time.RFC3339),
		CycleAge:        cycleAge,
		RedisEnabled:    h.RedisEnabled,
		RedisOK:         h.RedisOK,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteEnabled:   h.SQLiteEnabled,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// StatusFunc returns a JSON-serializable snapshot for /status.
type StatusFunc func() any

// Server runs an HTTP server exposing /metrics, /healthz and /status.
type Server struct {
	health *HealthStatus
	addr   string
	mux    *http.ServeMux
	srv    *http.Server
}

// NewServer creates a metrics and health server. status may be nil.
func NewServer(addr string, m *Metrics, health *HealthStatus, status StatusFunc) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", health.ServeHTTP)
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		if status == nil {
			http.Error(w, "status unavailable", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status()); err != nil {
			slog.Error("status encode failed", slog.Any("error", err))
		}
	})

	return &Server{
		health: health,
		addr:   addr,
		mux:    mux,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handle mounts an extra handler, e.g. the WebSocket gateway.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// Handler returns the server's mux for in-process testing.
func (s *Server) Handler() http.Handler { return s.mux }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		slog.Info("metrics server listening", slog.String("addr", s.addr))
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("metrics server error", slog.Any("error", err))
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
