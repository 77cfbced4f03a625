package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// CycleReport summarizes one scan cycle.
type CycleReport struct {
	Cycle      uint64        `json:"cycle"`
	TraceID    string        `json:"trace_id"`
	StartedAt  time.Time     `json:"started_at"`
	Markets    int           `json:"markets"`
	Analyzed   int           `json:"analyzed"`
	Cached     int           `json:"cached"`
	Failed     int           `json:"failed"`
	Actionable int           `json:"actionable"`
	Trades     int           `json:"trades"`
	Blocked    int           `json:"blocked"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

// JSON returns the JSON-encoded report.
func (r *CycleReport) JSON() ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode cycle %d: %w", r.Cycle, err)
	}
	return b, nil
}
