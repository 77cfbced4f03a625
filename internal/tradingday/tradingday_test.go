package tradingday

import (
	"testing"
	"time"
)

func TestToday(t *testing.T) {
	now := time.Date(2026, 3, 2, 23, 59, 59, 0, time.UTC)
	got := Today(time.UTC, now)
	want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Today = %v, want %v", got, want)
	}
}

func TestAfter(t *testing.T) {
	a := time.Date(2026, 3, 2, 23, 59, 0, 0, time.UTC)
	sameDay := time.Date(2026, 3, 2, 0, 1, 0, 0, time.UTC)
	nextDay := time.Date(2026, 3, 3, 0, 0, 1, 0, time.UTC)

	if After(time.UTC, a, sameDay) {
		t.Error("same day should not be after")
	}
	if !After(time.UTC, a, nextDay) {
		t.Error("next day should be after")
	}
	if After(time.UTC, nextDay, a) {
		t.Error("earlier day should not be after")
	}
}

func TestAfter_RespectsLocation(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+30*60)
	// 20:00 UTC on Mar 2 is already Mar 3 in IST.
	a := time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC)
	b := time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC)
	if After(time.UTC, a, b) {
		t.Error("same UTC day")
	}
	if !After(ist, a, b) {
		t.Error("crosses midnight in IST")
	}
}

func TestKeyAndNextReset(t *testing.T) {
	now := time.Date(2026, 12, 31, 12, 0, 0, 0, time.UTC)
	if k := Key(time.UTC, now); k != "2026-12-31" {
		t.Errorf("Key = %s", k)
	}
	want := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := NextReset(time.UTC, now); !got.Equal(want) {
		t.Errorf("NextReset = %v, want %v", got, want)
	}
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("Local")
	if err != nil || loc != time.Local {
		t.Fatalf("Local: %v %v", loc, err)
	}
	if _, err := LoadLocation("UTC"); err != nil {
		t.Fatalf("UTC: %v", err)
	}
	if _, err := LoadLocation("Not/AZone"); err == nil {
		t.Fatal("expected error for unknown zone")
	}
}
