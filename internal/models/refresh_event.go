package models

import "time"

// Refresh event types.
const (
	EventRefreshSuccess = "SUCCESS"
	EventRefreshFailure = "FAILURE"
	EventRefreshSkipped = "SKIPPED"
)

// RefreshEvent is a single refresh log entry.
type RefreshEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // SUCCESS | FAILURE | SKIPPED
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
