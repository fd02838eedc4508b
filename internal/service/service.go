package service

import (
	"context"
	"time"

	"co2_sensor_proxy"
	"co2_sensor_proxy/internal/fetcher"
	"co2_sensor_proxy/internal/logger"
	"co2_sensor_proxy/internal/models"
	"co2_sensor_proxy/internal/repository"
)

// Sensor answers pull queries from the cache. Never blocks on I/O.
type Sensor interface {
	CO2Level() float64
	CO2Detected() bool
	Snapshot() models.SensorSnapshot
}

// Refresher owns the periodic refresh cycle.
type Refresher interface {
	Start(ctx context.Context) error
	Stop()
	Tick(ctx context.Context) TickResult
	Stats() RefreshStats
}

// EventLog exposes the refresh history.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.RefreshEvent, error)
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Accessory describes what is exposed to the accessory runtime.
type Accessory interface {
	Info() models.AccessoryInfo
}

// Simulator produces a fake upstream reading for local development.
type Simulator interface {
	Run(ctx context.Context, tick time.Duration)
	Payload() co2_sensor_proxy.SensorPayload
}

// Service aggregates all sub-services.
type Service struct {
	Sensor
	Refresher
	EventLog
	Accessory
	Simulator
}

// Config carries the values the services need from configuration.
type Config struct {
	Endpoint  string
	Interval  time.Duration
	Accessory models.AccessoryInfo
	Simulator bool
	Observer  RefreshObserver // optional
}

// NewService wires the cache, refresher and event log together. The caller
// starts the refresher.
func NewService(repos *repository.Repository, f fetcher.Fetcher, n Notifier, cfg Config, log *logger.Logger) *Service {
	cache := NewSensorCache()
	refresher := NewRefresherService(cache, f, n, repos.EventRepo, log, RefresherConfig{
		Endpoint: cfg.Endpoint,
		Interval: cfg.Interval,
	})
	if cfg.Observer != nil {
		refresher.SetObserver(cfg.Observer)
	}

	s := &Service{
		Sensor:    cache,
		Refresher: refresher,
		EventLog:  NewEventLogService(repos.EventRepo),
		Accessory: NewAccessoryService(cfg.Accessory),
	}
	if cfg.Simulator {
		s.Simulator = NewSimulatorService()
	}
	return s
}
