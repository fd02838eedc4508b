package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"co2_sensor_proxy/internal/logger"
	"co2_sensor_proxy/internal/models"
	"co2_sensor_proxy/internal/repository"
)

type EventLogService struct {
	eventRepo repository.EventRepo
	now       func() time.Time
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo, now: time.Now}
}

// ErrInvalidFilter is wrapped by every List validation error.
var ErrInvalidFilter = errors.New("invalid log filter")

var (
	errInvalidTimeRange = fmt.Errorf("%w: From must be <= To", ErrInvalidFilter)
	errInvalidEventType = fmt.Errorf("%w: want SUCCESS, FAILURE or SKIPPED", ErrInvalidFilter)
	errInvalidRetention = errors.New("retention must be positive")
)

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeEventType trims spaces and uppercases the event type filter.
func normalizeEventType(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

func validEventType(s string) bool {
	switch s {
	case "", models.EventRefreshSuccess, models.EventRefreshFailure, models.EventRefreshSkipped:
		return true
	}
	return false
}

// normalizeAndValidateFilter prepares query parameters and validates them.
func normalizeAndValidateFilter(f LogFilter) (time.Time, time.Time, string, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, "", errInvalidTimeRange
	}

	eventType := normalizeEventType(f.Type)
	if !validEventType(eventType) {
		return time.Time{}, time.Time{}, "", errInvalidEventType
	}
	return from, to, eventType, nil
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.RefreshEvent, error) {
	from, to, typ, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, from, to, typ)
}

// Prune deletes events older than olderThan.
func (s *EventLogService) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errInvalidRetention
	}
	return s.eventRepo.DeleteBefore(ctx, s.now().Add(-olderThan))
}

// RunRetention prunes every interval until ctx is canceled.
func RunRetention(ctx context.Context, events EventLog, every, keep time.Duration, l *logger.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := events.Prune(ctx, keep)
			if err != nil {
				l.Errorw("refresh_events_prune_failed", "err", err)
				continue
			}
			if n > 0 {
				l.Infow("refresh_events_pruned", "deleted", n, "keep", keep.String())
			}
		}
	}
}
