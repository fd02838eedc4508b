package service

import (
	"sync/atomic"
	"time"

	"co2_sensor_proxy/internal/models"
)

// SensorCache holds the last known good reading. The snapshot pointer is
// swapped as a whole; a stored snapshot is never modified.
type SensorCache struct {
	current atomic.Pointer[models.SensorSnapshot]
}

// NewSensorCache starts in the DEFAULT state with a zero reading.
func NewSensorCache() *SensorCache {
	c := &SensorCache{}
	c.current.Store(&models.SensorSnapshot{State: models.StateDefault})
	return c
}

func (c *SensorCache) CO2Level() float64 { return c.current.Load().Reading.CO2Level }

func (c *SensorCache) CO2Detected() bool { return c.current.Load().Reading.CO2Detected }

// Snapshot returns a copy of the current entry.
func (c *SensorCache) Snapshot() models.SensorSnapshot { return *c.current.Load() }

// replace stores a fresh reading and clears the last error.
func (c *SensorCache) replace(r models.SensorReading, at time.Time) {
	c.current.Store(&models.SensorSnapshot{
		Reading:       r,
		State:         models.StateFresh,
		UpdatedAt:     at,
		LastAttemptAt: at,
	})
}

// markFailed keeps the reading and records the failure. A cache that never
// saw a successful fetch stays DEFAULT.
func (c *SensorCache) markFailed(kind models.ErrorKind, msg string, at time.Time) {
	next := *c.current.Load()
	next.LastError = kind
	next.LastErrorMessage = msg
	next.LastAttemptAt = at
	if next.State != models.StateDefault {
		next.State = models.StateStale
	}
	c.current.Store(&next)
}
