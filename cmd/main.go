package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"co2_sensor_proxy/internal/config"
	"co2_sensor_proxy/internal/fetcher"
	"co2_sensor_proxy/internal/handlers"
	"co2_sensor_proxy/internal/logger"
	"co2_sensor_proxy/internal/metrics"
	"co2_sensor_proxy/internal/models"
	"co2_sensor_proxy/internal/mqtt"
	"co2_sensor_proxy/internal/repository"
	"co2_sensor_proxy/internal/repository/db"
	"co2_sensor_proxy/internal/server"
	"co2_sensor_proxy/internal/service"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultSimTick  = 1 * time.Second
	retentionEvery  = time.Hour
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatalw("invalid config", "err", err)
	}

	sqlDB, err := openDB(cfg.DBPath, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	f, err := fetcher.NewHTTPFetcher(fetcher.WithLogger(log), fetcher.WithTimeout(cfg.FetchTimeout))
	if err != nil {
		log.Fatalw("failed to build fetcher", "err", err)
	}

	reg := prometheus.NewRegistry()
	collector, err := metrics.New(reg)
	if err != nil {
		log.Fatalw("failed to register metrics", "err", err)
	}

	hub := handlers.NewHub(log)
	sinks := service.MultiNotifier{hub, collector}

	if cfg.MQTT.Broker != "" {
		pub, err := mqtt.Connect(mqtt.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
		}, log)
		if err != nil {
			log.Fatalw("failed to connect mqtt", "broker", cfg.MQTT.Broker, "err", err)
		}
		defer pub.Close()
		sinks = append(sinks, pub)
		log.Infow("mqtt_connected", "broker", cfg.MQTT.Broker, "topic", cfg.MQTT.Topic)
	}

	// wire dependencies
	repos := repository.NewRepository(sqlDB)
	services := service.NewService(repos, f, sinks, service.Config{
		Endpoint: cfg.Endpoint,
		Interval: cfg.RefreshInterval,
		Accessory: models.AccessoryInfo{
			Name:         cfg.Accessory.Name,
			Manufacturer: cfg.Accessory.Manufacturer,
			Model:        cfg.Accessory.Model,
			SerialNumber: cfg.Accessory.SerialNumber,
		},
		Simulator: cfg.SimulatorEnabled,
		Observer:  collector,
	}, log)
	apiHandler := handlers.NewHandler(services, log,
		handlers.WithHub(hub),
		handlers.WithMetrics(metrics.Handler(reg)),
		handlers.WithManualRefreshRate(cfg.ManualRefreshRate),
	)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if services.Simulator != nil {
		go services.Simulator.Run(ctx, defaultSimTick)
	}
	if cfg.EventRetention > 0 {
		go service.RunRetention(ctx, services.EventLog, retentionEvery, cfg.EventRetention, log)
	}

	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	if err := services.Refresher.Start(ctx); err != nil {
		log.Fatalw("failed to start refresher", "err", err)
	}

	waitForShutdown(cancel, srv, services.Refresher, log)
}

func openDB(path string, log *logger.Logger) (*sql.DB, error) {
	if path == "" {
		log.Infow("db.path not set in config; using default file", "default", "co2.db")
		path = "co2.db"
	}
	return db.InitDB(path)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
	log.Infow("http_server_started", "port", port)
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, refresher service.Refresher, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	refresher.Stop()
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
