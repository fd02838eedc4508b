package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"co2_sensor_proxy/internal/fetcher"
	"co2_sensor_proxy/internal/logger"
	"co2_sensor_proxy/internal/models"
	"co2_sensor_proxy/internal/repository"
)

// DefaultRefreshInterval is the period between two refresh ticks.
const DefaultRefreshInterval = 10 * time.Second

// event log writes must not hold up a tick for long
const eventWriteTimeout = 2 * time.Second

var (
	ErrRefresherRunning = errors.New("refresher already running")
	ErrNoEndpoint       = errors.New("refresher: endpoint is required")
)

// Ticker is the subset of *time.Ticker the refresh loop uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func newTimeTicker(d time.Duration) Ticker { return timeTicker{t: time.NewTicker(d)} }

// RefreshObserver is told about every tick outcome, e.g. for metrics.
type RefreshObserver interface {
	ObserveRefresh(result TickResult, took time.Duration)
}

type RefresherConfig struct {
	Endpoint string
	Interval time.Duration // DefaultRefreshInterval when zero
}

// RefresherService drives the cache from the upstream endpoint. It is the
// only writer of the cache.
type RefresherService struct {
	cache    *SensorCache
	fetcher  fetcher.Fetcher
	notifier Notifier
	events   repository.EventRepo
	observer RefreshObserver
	log      *logger.Logger

	endpoint string
	interval time.Duration

	newTicker func(time.Duration) Ticker
	now       func() time.Time

	inFlight  atomic.Bool
	succeeded atomic.Uint64
	failed    atomic.Uint64
	skipped   atomic.Uint64

	mu     sync.Mutex // guards cancel/done
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRefresherService builds a stopped refresher. events and notifier may be nil.
func NewRefresherService(cache *SensorCache, f fetcher.Fetcher, n Notifier, events repository.EventRepo, log *logger.Logger, cfg RefresherConfig) *RefresherService {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRefreshInterval
	}
	return &RefresherService{
		cache:     cache,
		fetcher:   f,
		notifier:  n,
		events:    events,
		log:       log,
		endpoint:  cfg.Endpoint,
		interval:  cfg.Interval,
		newTicker: newTimeTicker,
		now:       time.Now,
	}
}

// SetObserver registers o for tick outcomes. Call before Start.
func (r *RefresherService) SetObserver(o RefreshObserver) { r.observer = o }

// Start launches the ticker loop. The first tick fires one interval after
// Start; until then readers see the default reading.
func (r *RefresherService) Start(ctx context.Context) error {
	if r.endpoint == "" {
		return ErrNoEndpoint
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return ErrRefresherRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	t := r.newTicker(r.interval)
	go r.loop(loopCtx, t, r.done)

	r.log.Infow("refresher_started", "endpoint", r.endpoint, "interval", r.interval.String())
	return nil
}

// Stop halts the ticker and waits for the loop to exit. A fetch already in
// flight is left to finish on its own.
func (r *RefresherService) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	r.log.Infow("refresher_stopped")
}

func (r *RefresherService) loop(ctx context.Context, t Ticker, done chan<- struct{}) {
	defer close(done)
	defer t.Stop()

	// fetches outlive Stop; only the schedule is cancelled
	fetchCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			if !r.inFlight.CompareAndSwap(false, true) {
				r.skip()
				continue
			}
			go func() {
				defer r.inFlight.Store(false)
				r.refresh(fetchCtx)
			}()
		}
	}
}

// Tick runs one refresh synchronously unless a fetch is already in flight.
func (r *RefresherService) Tick(ctx context.Context) TickResult {
	if !r.inFlight.CompareAndSwap(false, true) {
		r.skip()
		return TickSkipped
	}
	defer r.inFlight.Store(false)
	return r.refresh(ctx)
}

func (r *RefresherService) Stats() RefreshStats {
	r.mu.Lock()
	running := r.cancel != nil
	r.mu.Unlock()
	return RefreshStats{
		Succeeded: r.succeeded.Load(),
		Failed:    r.failed.Load(),
		Skipped:   r.skipped.Load(),
		InFlight:  r.inFlight.Load(),
		Running:   running,
	}
}

func (r *RefresherService) skip() {
	r.skipped.Add(1)
	r.log.Warnw("refresh_tick_skipped", "reason", "fetch in flight", "endpoint", r.endpoint)
	r.observe(TickSkipped, 0)
	r.appendEvent(context.Background(), models.RefreshEvent{
		Type:        models.EventRefreshSkipped,
		Description: "tick skipped: previous fetch still in flight",
	})
}

// refresh must only run while inFlight is held.
func (r *RefresherService) refresh(ctx context.Context) TickResult {
	started := r.now()
	reading, err := r.fetcher.Fetch(ctx, r.endpoint)
	finished := r.now()
	took := finished.Sub(started)

	if err != nil {
		kind := models.ErrFetchFailed
		var fe *fetcher.FetchError
		if errors.As(err, &fe) && fe.Kind != "" {
			kind = fe.Kind
		}
		r.cache.markFailed(kind, err.Error(), finished)
		r.failed.Add(1)

		r.log.Warnw("refresh_failed", "kind", kind, "endpoint", r.endpoint, "err", err,
			"kept_co2", r.cache.CO2Level(), "kept_co2_detected", r.cache.CO2Detected())
		r.observe(TickFailed, took)
		r.appendEvent(ctx, models.RefreshEvent{
			OccurredAt:  finished,
			Type:        models.EventRefreshFailure,
			Description: "fetch failed; cached reading kept",
			Metadata:    map[string]any{"kind": string(kind), "error": err.Error()},
		})
		return TickFailed
	}

	r.cache.replace(reading, finished)
	r.succeeded.Add(1)
	r.log.Infow("refresh_succeeded", "co2", reading.CO2Level, "co2_detected", reading.CO2Detected, "took", took.String())

	r.push(ctx, models.CharCO2Detected, reading.CO2Detected)
	r.push(ctx, models.CharCO2Level, reading.CO2Level)

	r.observe(TickSucceeded, took)
	r.appendEvent(ctx, models.RefreshEvent{
		OccurredAt:  finished,
		Type:        models.EventRefreshSuccess,
		Description: "reading refreshed",
		Metadata:    map[string]any{"co2": reading.CO2Level, "co2_detected": reading.CO2Detected},
	})
	return TickSucceeded
}

func (r *RefresherService) push(ctx context.Context, c models.Characteristic, value any) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.UpdateCharacteristic(ctx, c, value); err != nil {
		r.log.Errorw("characteristic_push_failed", "characteristic", c, "err", err)
	}
}

func (r *RefresherService) observe(result TickResult, took time.Duration) {
	if r.observer != nil {
		r.observer.ObserveRefresh(result, took)
	}
}

// appendEvent is best effort; the cache never depends on it.
func (r *RefresherService) appendEvent(ctx context.Context, e models.RefreshEvent) {
	if r.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()
	if err := r.events.Append(ctx, e); err != nil {
		r.log.Errorw("refresh_event_append_failed", "type", e.Type, "err", err)
	}
}
