package models

import "time"

// SensorReading is one point-in-time measurement. Always replaced as a whole.
type SensorReading struct {
	CO2Level    float64 `json:"co2_level"`    // ppm, >= 0
	CO2Detected bool    `json:"co2_detected"` // abnormal level flag
}

// CacheState tracks freshness of the cached reading.
type CacheState string

const (
	StateDefault CacheState = "DEFAULT" // no successful fetch yet
	StateFresh   CacheState = "FRESH"   // last fetch succeeded
	StateStale   CacheState = "STALE"   // last fetch failed, older reading kept
)

// ErrorKind classifies a refresh failure. Empty means no error.
type ErrorKind string

const ErrFetchFailed ErrorKind = "FETCH_FAILED"

// SensorSnapshot is the cache entry as exposed to readers.
type SensorSnapshot struct {
	Reading          SensorReading `json:"reading"`
	State            CacheState    `json:"state"`
	UpdatedAt        time.Time     `json:"updated_at,omitempty"`         // zero until first success
	LastError        ErrorKind     `json:"last_error,omitempty"`         // cleared on success
	LastErrorMessage string        `json:"last_error_message,omitempty"` // underlying cause
	LastAttemptAt    time.Time     `json:"last_attempt_at,omitempty"`
}
