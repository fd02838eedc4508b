package service

import "time"

// LogFilter supports history filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "SUCCESS", "FAILURE", "SKIPPED"
}

// TickResult is the outcome of one refresh attempt.
type TickResult string

const (
	TickSucceeded TickResult = "succeeded"
	TickFailed    TickResult = "failed"
	TickSkipped   TickResult = "skipped" // a fetch was already in flight
)

// RefreshStats counts tick outcomes since start.
type RefreshStats struct {
	Succeeded uint64 `json:"succeeded"`
	Failed    uint64 `json:"failed"`
	Skipped   uint64 `json:"skipped"`
	InFlight  bool   `json:"in_flight"`
	Running   bool   `json:"running"`
}
