package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func TestNewMetrics_IndependentRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	a := NewMetrics()
	b := NewMetrics()
	a.CyclesTotal.Inc()
	if a.Registry == b.Registry {
		t.Fatal("registries should be distinct")
	}
}

func TestServer_MetricsEndpoint(t *testing.T) {
	m := NewMetrics()
	m.CyclesTotal.Inc()
	m.SignalsTotal.WithLabelValues("buy").Add(2)

	h := NewHealthStatus(time.Minute)
	srv := httptest.NewServer(NewServer(":0", m, h, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"scalper_cycles_total 1", `scalper_signals_total{action="buy"} 2`} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestHealth_States(t *testing.T) {
	m := NewMetrics()
	h := NewHealthStatus(time.Minute)
	srv := httptest.NewServer(NewServer(":0", m, h, nil).Handler())
	defer srv.Close()

	get := func() (int, map[string]any) {
		t.Helper()
		resp, err := http.Get(srv.URL + "/healthz")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		var out map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatal(err)
		}
		return resp.StatusCode, out
	}

	if code, body := get(); code != http.StatusServiceUnavailable || body["status"] != "unhealthy" {
		t.Errorf("not running: %d %v", code, body["status"])
	}

	h.SetRunning(true)
	h.MarkCycle(1, time.Now())
	if code, body := get(); code != http.StatusOK || body["status"] != "healthy" {
		t.Errorf("running: %d %v", code, body["status"])
	}

	h.EnableRedis() // enabled but never checked
	if code, body := get(); code != http.StatusServiceUnavailable || body["status"] != "degraded" {
		t.Errorf("redis down: %d %v", code, body["status"])
	}
}

func TestServer_StatusEndpoint(t *testing.T) {
	m := NewMetrics()
	h := NewHealthStatus(0)
	status := func() any { return map[string]int{"daily_trades": 3} }
	srv := httptest.NewServer(NewServer(":0", m, h, status).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]int
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["daily_trades"] != 3 {
		t.Errorf("status = %v", out)
	}
}

func TestLivenessChecker_ChecksImmediately(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	h := NewHealthStatus(time.Minute)
	h.EnableSQLite()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.StartLivenessChecker(ctx, nil, db, time.Hour)

	deadline := time.Now().Add(2 * time.Second)
	for {
		h.Mu.RLock()
		ok := h.SQLiteOK
		h.Mu.RUnlock()
		if ok {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("sqlite not checked before the first tick")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
