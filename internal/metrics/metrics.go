// Package metrics exports the cached reading and refresh outcomes to Prometheus.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"co2_sensor_proxy/internal/models"
	"co2_sensor_proxy/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "co2_proxy"

// Collector is both a push sink and a refresh observer.
type Collector struct {
	co2Level        prometheus.Gauge
	co2Detected     prometheus.Gauge
	refreshes       *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	lastSuccess     prometheus.Gauge

	now func() time.Time
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		co2Level: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "co2_level_ppm",
			Help:      "Last cached CO2 concentration in parts per million.",
		}),
		co2Detected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "co2_detected",
			Help:      "1 when the last cached reading reports abnormal CO2, else 0.",
		}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Refresh ticks by result.",
		}, []string{"result"}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of upstream fetches.",
			Buckets:   prometheus.DefBuckets,
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful refresh.",
		}),
		now: time.Now,
	}

	for _, col := range []prometheus.Collector{c.co2Level, c.co2Detected, c.refreshes, c.refreshDuration, c.lastSuccess} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return c, nil
}

// UpdateCharacteristic mirrors a pushed value into the gauges.
func (c *Collector) UpdateCharacteristic(_ context.Context, ch models.Characteristic, value any) error {
	switch ch {
	case models.CharCO2Level:
		v, ok := value.(float64)
		if !ok {
			return fmt.Errorf("metrics: %s value %T is not float64", ch, value)
		}
		c.co2Level.Set(v)
	case models.CharCO2Detected:
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("metrics: %s value %T is not bool", ch, value)
		}
		if v {
			c.co2Detected.Set(1)
		} else {
			c.co2Detected.Set(0)
		}
	default:
		return fmt.Errorf("metrics: unknown characteristic %q", ch)
	}
	return nil
}

func (c *Collector) ObserveRefresh(result service.TickResult, took time.Duration) {
	c.refreshes.WithLabelValues(string(result)).Inc()
	if result == service.TickSkipped {
		return
	}
	c.refreshDuration.Observe(took.Seconds())
	if result == service.TickSucceeded {
		c.lastSuccess.Set(float64(c.now().Unix()))
	}
}

// Handler serves the registry in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
