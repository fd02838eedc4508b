package handlers

import (
	"context"
	"sync/atomic"
	"time"

	"co2_sensor_proxy"
	"co2_sensor_proxy/internal/models"
	"co2_sensor_proxy/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockSensor struct {
	snap models.SensorSnapshot
}

func (m *mockSensor) CO2Level() float64               { return m.snap.Reading.CO2Level }
func (m *mockSensor) CO2Detected() bool               { return m.snap.Reading.CO2Detected }
func (m *mockSensor) Snapshot() models.SensorSnapshot { return m.snap }

type mockRefresher struct {
	result    service.TickResult
	stats     service.RefreshStats
	tickCalls atomic.Int32
	lastCtx   context.Context
}

func (m *mockRefresher) Start(ctx context.Context) error { return nil }
func (m *mockRefresher) Stop()                           {}
func (m *mockRefresher) Tick(ctx context.Context) service.TickResult {
	m.tickCalls.Add(1)
	m.lastCtx = ctx
	return m.result
}
func (m *mockRefresher) Stats() service.RefreshStats { return m.stats }

type mockEventLog struct {
	resp     []models.RefreshEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
	calls    int
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.RefreshEvent, error) {
	m.calls++
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

func (m *mockEventLog) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}

type mockAccessory struct {
	info models.AccessoryInfo
}

func (m *mockAccessory) Info() models.AccessoryInfo { return m.info }

type mockSimulator struct {
	payload co2_sensor_proxy.SensorPayload
}

func (m *mockSimulator) Run(ctx context.Context, tick time.Duration) {}
func (m *mockSimulator) Payload() co2_sensor_proxy.SensorPayload     { return m.payload }

// ---- Shared Test Helpers ----

func freshSnapshot(level float64, detected bool) models.SensorSnapshot {
	at := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	return models.SensorSnapshot{
		Reading:       models.SensorReading{CO2Level: level, CO2Detected: detected},
		State:         models.StateFresh,
		UpdatedAt:     at,
		LastAttemptAt: at,
	}
}

func newTestRouter(s *service.Service, opts ...Option) *gin.Engine {
	h := NewHandler(s, nil, opts...)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}
