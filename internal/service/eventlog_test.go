package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"co2_sensor_proxy/internal/logger"
	"co2_sensor_proxy/internal/models"
)

// fakeEventRepo is a minimal stub that satisfies the repository.EventRepo interface.
type fakeEventRepo struct {
	mu sync.Mutex

	// captured inputs
	gotFrom   time.Time
	gotTo     time.Time
	gotType   string
	gotBefore time.Time
	appended  []models.RefreshEvent

	// configured outputs
	events    []models.RefreshEvent
	err       error
	appendErr error
	deleted   int64

	calls       int
	deleteCalls int
}

func (f *fakeEventRepo) List(ctx context.Context, from, to time.Time, typ string) ([]models.RefreshEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotFrom = from
	f.gotTo = to
	f.gotType = typ
	return f.events, f.err
}

func (f *fakeEventRepo) Append(ctx context.Context, e models.RefreshEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, e)
	return f.appendErr
}

func (f *fakeEventRepo) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	f.gotBefore = before
	return f.deleted, f.err
}

func (f *fakeEventRepo) appendedTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.appended))
	for _, e := range f.appended {
		out = append(out, e.Type)
	}
	return out
}

func mustTimeIn(loc *time.Location, y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, loc)
}

func Test_normalizeToUTC(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   time.Time
		want func(time.Time) bool
	}{
		{
			name: "zero time remains zero",
			in:   time.Time{},
			want: func(out time.Time) bool { return out.IsZero() },
		},
		{
			name: "non-UTC converted to UTC preserving instant",
			in:   mustTimeIn(time.FixedZone("UTC+3", 3*3600), 2025, time.August, 1, 12, 34, 56),
			want: func(out time.Time) bool {
				exp := time.Date(2025, time.August, 1, 9, 34, 56, 0, time.UTC)
				return out.Location() == time.UTC && out.Equal(exp)
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := normalizeToUTC(tc.in)
			if !tc.want(got) {
				t.Fatalf("unexpected normalizeToUTC result: %v (loc=%v)", got, got.Location())
			}
		})
	}
}

func Test_normalizeAndValidateFilter(t *testing.T) {
	t.Parallel()

	fromLocal := mustTimeIn(time.FixedZone("UTC+2", 2*3600), 2025, time.September, 10, 10, 0, 0)
	toUTC := time.Date(2025, time.September, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		in       LogFilter
		wantFrom time.Time
		wantTo   time.Time
		wantType string
		wantErr  error
	}{
		{
			name:    "all zero/empty ok",
			in:      LogFilter{},
			wantErr: nil,
		},
		{
			name: "from after to -> error",
			in: LogFilter{
				From: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
				To:   time.Date(2025, 1, 1, 23, 0, 0, 0, time.UTC),
			},
			wantErr: errInvalidTimeRange,
		},
		{
			name:    "unknown type -> error",
			in:      LogFilter{Type: "start"},
			wantErr: errInvalidEventType,
		},
		{
			name: "normalize tz and type",
			in: LogFilter{
				From: fromLocal,
				To:   toUTC,
				Type: " failure ",
			},
			wantFrom: time.Date(2025, time.September, 10, 8, 0, 0, 0, time.UTC),
			wantTo:   toUTC,
			wantType: models.EventRefreshFailure,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			gotFrom, gotTo, gotType, err := normalizeAndValidateFilter(tc.in)

			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected err %v; got %v", tc.wantErr, err)
			}
			if !tc.wantFrom.IsZero() && !gotFrom.Equal(tc.wantFrom) {
				t.Fatalf("from: got %v; want %v", gotFrom, tc.wantFrom)
			}
			if !tc.wantTo.IsZero() && !gotTo.Equal(tc.wantTo) {
				t.Fatalf("to: got %v; want %v", gotTo, tc.wantTo)
			}
			if tc.wantType != "" && gotType != tc.wantType {
				t.Fatalf("type: got %q; want %q", gotType, tc.wantType)
			}
		})
	}
}

func TestEventLogService_List_DelegatesNormalizedParams(t *testing.T) {
	t.Parallel()

	frepo := &fakeEventRepo{events: []models.RefreshEvent{{EventID: "1"}}}
	svc := NewEventLogService(frepo)

	fromLocal := mustTimeIn(time.FixedZone("UTC+5", 5*3600), 2025, time.October, 1, 10, 0, 0)
	toLocal := mustTimeIn(time.FixedZone("UTC-2", -2*3600), 2025, time.October, 1, 12, 30, 0)

	out, err := svc.List(context.Background(), LogFilter{From: fromLocal, To: toLocal, Type: "  skipped "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].EventID != "1" {
		t.Fatalf("unexpected events: %+v", out)
	}
	if frepo.calls != 1 {
		t.Fatalf("repo List should be called once, got %d", frepo.calls)
	}

	wantFrom := time.Date(2025, time.October, 1, 5, 0, 0, 0, time.UTC)
	wantTo := time.Date(2025, time.October, 1, 14, 30, 0, 0, time.UTC)
	if !frepo.gotFrom.Equal(wantFrom) || !frepo.gotTo.Equal(wantTo) {
		t.Fatalf("repo got from=%v to=%v; want %v %v", frepo.gotFrom, frepo.gotTo, wantFrom, wantTo)
	}
	if frepo.gotType != models.EventRefreshSkipped {
		t.Fatalf("repo gotType=%q; want %q", frepo.gotType, models.EventRefreshSkipped)
	}
}

func TestEventLogService_List_ValidationErrorSkipsRepo(t *testing.T) {
	t.Parallel()

	frepo := &fakeEventRepo{}
	svc := NewEventLogService(frepo)

	_, err := svc.List(context.Background(), LogFilter{
		From: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 1, 1, 23, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, errInvalidTimeRange) {
		t.Fatalf("expected errInvalidTimeRange; got %v", err)
	}
	if frepo.calls != 0 {
		t.Fatalf("repo should not be called on validation error, calls=%d", frepo.calls)
	}
}

func TestEventLogService_List_RepoErrorPropagation(t *testing.T) {
	t.Parallel()

	frepo := &fakeEventRepo{err: errors.New("db down")}
	svc := NewEventLogService(frepo)

	if _, err := svc.List(context.Background(), LogFilter{}); !errors.Is(err, frepo.err) {
		t.Fatalf("expected repo error to propagate; got %v", err)
	}
}

func TestEventLogService_Prune(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)
	frepo := &fakeEventRepo{deleted: 4}
	svc := NewEventLogService(frepo)
	svc.now = func() time.Time { return now }

	n, err := svc.Prune(context.Background(), 24*time.Hour)
	if err != nil || n != 4 {
		t.Fatalf("Prune: n=%d err=%v", n, err)
	}
	if !frepo.gotBefore.Equal(now.Add(-24 * time.Hour)) {
		t.Fatalf("cutoff: got %v", frepo.gotBefore)
	}

	if _, err := svc.Prune(context.Background(), 0); !errors.Is(err, errInvalidRetention) {
		t.Fatalf("expected errInvalidRetention, got %v", err)
	}
	if frepo.deleteCalls != 1 {
		t.Fatalf("invalid retention must not hit repo, calls=%d", frepo.deleteCalls)
	}
}

func TestRunRetention_PrunesUntilCanceled(t *testing.T) {
	t.Parallel()

	frepo := &fakeEventRepo{deleted: 1}
	svc := NewEventLogService(frepo)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		RunRetention(ctx, svc, 5*time.Millisecond, time.Hour, logger.Nop())
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		frepo.mu.Lock()
		calls := frepo.deleteCalls
		frepo.mu.Unlock()
		if calls >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("retention did not run, calls=%d", calls)
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("RunRetention did not return after cancel")
	}
}
