// Package fetcher performs single-attempt reads of the upstream CO2 endpoint.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"co2_sensor_proxy"
	"co2_sensor_proxy/internal/logger"
	"co2_sensor_proxy/internal/models"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxBodyBytes caps how much of the upstream body is read.
const maxBodyBytes = 1 << 16

// ErrFetchFailed matches every error returned by Fetch.
var ErrFetchFailed = errors.New("fetch failed")

// Fetcher retrieves one reading per call. No retries.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string) (models.SensorReading, error)
}

// FetchError carries the underlying cause of a failed fetch. Transport,
// status and decode failures all share the same Kind.
type FetchError struct {
	Kind     models.ErrorKind
	Endpoint string
	Cause    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Endpoint, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// Is reports ErrFetchFailed as a match so callers can use errors.Is.
func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }

func fetchFailed(endpoint string, cause error) *FetchError {
	return &FetchError{Kind: models.ErrFetchFailed, Endpoint: endpoint, Cause: cause}
}

type HTTPFetcher struct {
	client  *http.Client
	log     *logger.Logger
	timeout time.Duration // 0 leaves the transport default in place
}

type Option func(f *HTTPFetcher) error

// NewHTTPFetcher builds a fetcher with an otelhttp-instrumented default client.
func NewHTTPFetcher(opts ...Option) (*HTTPFetcher, error) {
	f := &HTTPFetcher{
		client: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		log:    logger.Nop(),
	}
	for _, o := range opts {
		if err := o(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func WithHTTPClient(c *http.Client) Option {
	return func(f *HTTPFetcher) error {
		if c == nil {
			return errors.New("nil http client")
		}
		f.client = c
		return nil
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(f *HTTPFetcher) error {
		if l != nil {
			f.log = l
		}
		return nil
	}
}

// WithTimeout bounds a single fetch. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) error {
		if d < 0 {
			return fmt.Errorf("negative fetch timeout %s", d)
		}
		f.timeout = d
		return nil
	}
}

// Fetch performs one GET against endpoint and decodes the payload.
func (f *HTTPFetcher) Fetch(ctx context.Context, endpoint string) (models.SensorReading, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.SensorReading{}, fetchFailed(endpoint, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return models.SensorReading{}, fetchFailed(endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return models.SensorReading{}, fetchFailed(endpoint, fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.SensorReading{}, fetchFailed(endpoint, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	reading, err := decodeReading(body)
	if err != nil {
		return models.SensorReading{}, fetchFailed(endpoint, err)
	}
	f.log.Debugw("fetch_decoded", "endpoint", endpoint, "co2", reading.CO2Level, "co2_detected", reading.CO2Detected)
	return reading, nil
}

// decodeReading parses the upstream object. Missing fields take the payload
// defaults; a negative level is rejected.
func decodeReading(body []byte) (models.SensorReading, error) {
	var p co2_sensor_proxy.SensorPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return models.SensorReading{}, fmt.Errorf("decode body: %w", err)
	}
	if p.Level() < 0 {
		return models.SensorReading{}, fmt.Errorf("negative co2 level %v", p.Level())
	}
	return models.SensorReading{
		CO2Level:    p.Level(),
		CO2Detected: p.Detected(),
	}, nil
}
