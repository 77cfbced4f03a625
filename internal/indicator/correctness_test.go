package indicator

import (
	"math"
	"testing"
)

// ────────────────────────────────────────────────────────────
// Helper
// ────────────────────────────────────────────────────────────

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

func ramp(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

// ────────────────────────────────────────────────────────────
// RSI
// ────────────────────────────────────────────────────────────

func TestRSI_ShortSeriesIsNeutral(t *testing.T) {
	for n := 0; n <= 9; n++ {
		out := RSI(ramp(100, 1, n), 9)
		if len(out) != n {
			t.Fatalf("n=%d: len=%d", n, len(out))
		}
		for i, v := range out {
			if v != NeutralRSI {
				t.Errorf("n=%d rsi[%d] = %v, want 50", n, i, v)
			}
		}
	}
}

func TestRSI_WarmupIsNeutral(t *testing.T) {
	out := RSI(ramp(100, 1, 30), 14)
	for i := 0; i < 14; i++ {
		if out[i] != NeutralRSI {
			t.Errorf("rsi[%d] = %v, want 50 during warmup", i, out[i])
		}
	}
}

func TestRSI_Bounded(t *testing.T) {
	prices := []float64{100, 103, 99, 98, 104, 110, 90, 91, 93, 92, 97, 101, 100, 85, 120, 119, 118, 130}
	for _, v := range RSI(prices, 5) {
		if v < 0 || v > 100 || math.IsNaN(v) {
			t.Fatalf("rsi out of range: %v", v)
		}
	}
}

func TestRSI_MonotonicUpTrendsTo100(t *testing.T) {
	out := RSI(ramp(100, 1, 40), 9)
	if last := Last(out); last < 99.99 {
		t.Errorf("uptrend RSI = %.4f, want ~100", last)
	}
}

func TestRSI_MonotonicDownTrendsTo0(t *testing.T) {
	out := RSI(ramp(200, -1, 40), 9)
	if last := Last(out); last > 0.01 {
		t.Errorf("downtrend RSI = %.4f, want ~0", last)
	}
}

func TestRSI_HandCalculatedSeed(t *testing.T) {
	// period 2, prices 10, 11, 10.5, 11.5
	// deltas: +1, -0.5, +1
	// seed at i=2: avgGain = 0.5, avgLoss = 0.25 → RS 2 → RSI 66.6667
	// i=3: avgGain = (0.5*1 + 1)/2 = 0.75, avgLoss = (0.25*1 + 0)/2 = 0.125 → RS 6 → 85.7143
	out := RSI([]float64{10, 11, 10.5, 11.5}, 2)
	assertClose(t, "RSI seed", out[2], 66.666667, 0.0001)
	assertClose(t, "RSI smoothed", out[3], 85.714286, 0.0001)
}

func TestRSI_NonFiniteIsNeutral(t *testing.T) {
	prices := ramp(100, 1, 20)
	prices[7] = math.NaN()
	for i, v := range RSI(prices, 5) {
		if v != NeutralRSI {
			t.Errorf("rsi[%d] = %v, want 50 for NaN input", i, v)
		}
	}
}

func TestRSI_BadPeriod(t *testing.T) {
	for _, v := range RSI(ramp(1, 1, 10), 0) {
		if v != NeutralRSI {
			t.Fatalf("period 0 should be neutral, got %v", v)
		}
	}
}

// ────────────────────────────────────────────────────────────
// EMA
// ────────────────────────────────────────────────────────────

func TestEMA_ConstantSeries(t *testing.T) {
	prices := []float64{42, 42, 42, 42, 42, 42, 42}
	for i, v := range EMA(prices, 5) {
		if v != 42 {
			t.Errorf("ema[%d] = %v, want 42", i, v)
		}
	}
}

func TestEMA_Correctness_Period3(t *testing.T) {
	// alpha = 0.5, seeded with the first price
	// 100 → 100, 102 → 101, 104 → 102.5, 103 → 102.75
	out := EMA([]float64{100, 102, 104, 103}, 3)
	want := []float64{100, 101, 102.5, 102.75}
	for i := range want {
		assertClose(t, "EMA(3)", out[i], want[i], 1e-9)
	}
}

func TestEMA_InvalidPeriodIsIdentity(t *testing.T) {
	in := []float64{1, 2, 3}
	out := EMA(in, 0)
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("ema[%d] = %v, want %v", i, out[i], in[i])
		}
	}
	out[0] = 99
	if in[0] != 1 {
		t.Error("EMA must not alias its input")
	}
}

func TestEMA_Empty(t *testing.T) {
	if out := EMA(nil, 5); len(out) != 0 {
		t.Errorf("expected empty output, got %v", out)
	}
}

// ────────────────────────────────────────────────────────────
// SMA / SMMA
// ────────────────────────────────────────────────────────────

func TestSMA_Correctness_Period3(t *testing.T) {
	out := SMA([]float64{100, 102, 104, 103, 105}, 3)
	want := []float64{100, 102, 102, 103, 104}
	for i := range want {
		assertClose(t, "SMA(3)", out[i], want[i], 1e-9)
	}
}

func TestSMMA_SeedThenSmooth(t *testing.T) {
	// seed (10+20)/2 = 15, then (15*1 + 30)/2 = 22.5
	out := SMMA([]float64{10, 20, 30}, 2)
	assertClose(t, "SMMA seed", out[1], 15, 1e-9)
	assertClose(t, "SMMA step", out[2], 22.5, 1e-9)
}

// ────────────────────────────────────────────────────────────
// MACD
// ────────────────────────────────────────────────────────────

func TestMACD_ConstantSeriesIsZero(t *testing.T) {
	prices := []float64{10, 10, 10, 10, 10, 10, 10, 10}
	macd, sig := MACD(prices, 3, 6, 2)
	for i := range prices {
		if macd[i] != 0 || sig[i] != 0 {
			t.Errorf("[%d] macd=%v signal=%v, want 0", i, macd[i], sig[i])
		}
	}
}

func TestMACD_UptrendPositive(t *testing.T) {
	macd, _ := MACD(ramp(100, 1, 40), 12, 26, 9)
	if Last(macd) <= 0 {
		t.Errorf("uptrend MACD = %v, want > 0", Last(macd))
	}
}

func TestMACD_InvalidIsZero(t *testing.T) {
	macd, sig := MACD(ramp(1, 1, 5), 0, 26, 9)
	if len(macd) != 5 || len(sig) != 5 {
		t.Fatalf("length mismatch")
	}
	for i := range macd {
		if macd[i] != 0 || sig[i] != 0 {
			t.Fatalf("expected zeros, got %v %v", macd, sig)
		}
	}
}

// ────────────────────────────────────────────────────────────
// Bollinger Bands
// ────────────────────────────────────────────────────────────

func TestBollinger_KnownWindow(t *testing.T) {
	// window 2,4,4,4,5,5,7,9 → mean 5, sample std = sqrt(32/7)
	prices := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	upper, mid, lower := BollingerBands(prices, 8, 2)
	std := math.Sqrt(32.0 / 7.0)
	assertClose(t, "middle", mid[7], 5, 1e-9)
	assertClose(t, "upper", upper[7], 5+2*std, 1e-9)
	assertClose(t, "lower", lower[7], 5-2*std, 1e-9)
	// before the first full window the bands collapse onto the price
	if upper[3] != prices[3] || lower[3] != prices[3] || mid[3] != prices[3] {
		t.Errorf("warmup bands should equal price: %v %v %v", upper[3], mid[3], lower[3])
	}
}

func TestBollinger_ShortSeriesReturnsInput(t *testing.T) {
	prices := []float64{1, 2, 3}
	upper, mid, lower := BollingerBands(prices, 20, 2)
	for i := range prices {
		if upper[i] != prices[i] || mid[i] != prices[i] || lower[i] != prices[i] {
			t.Fatalf("expected input passthrough at %d", i)
		}
	}
}

func TestLast_Empty(t *testing.T) {
	if !math.IsNaN(Last(nil)) {
		t.Error("Last(nil) should be NaN")
	}
}
