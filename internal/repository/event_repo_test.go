package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"co2_sensor_proxy/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return c
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestAppend_Success_WithDefaults(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewEventSQLite(db)

	mock.ExpectExec(regexp.QuoteMeta(insertEventSQL)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(),
			"SUCCESS", "refreshed",
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Append(ctx(t), models.RefreshEvent{
		// EventID empty -> repo generates
		// OccurredAt zero -> repo sets now
		Type:        "  success ",
		Description: "refreshed",
		Metadata:    map[string]any{"co2": 612},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestAppend_KeepsGivenIDAndFormatsUTC(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewEventSQLite(db)

	at := time.Date(2025, 3, 4, 12, 0, 0, 500_000_000, time.FixedZone("X", 2*3600))
	mock.ExpectExec(regexp.QuoteMeta(insertEventSQL)).
		WithArgs("evt-1", "2025-03-04T10:00:00.500000Z", "FAILURE", "boom", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Append(ctx(t), models.RefreshEvent{
		EventID:     "evt-1",
		OccurredAt:  at,
		Type:        "failure",
		Description: "boom",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestAppend_DBError(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewEventSQLite(db)

	mock.ExpectExec("INSERT INTO refresh_events").
		WillReturnError(errors.New("down"))

	err := repo.Append(ctx(t), models.RefreshEvent{
		Type:        "failure",
		Description: "x",
		Metadata:    map[string]string{"k": "v"},
	})
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("expected error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestAppend_UnmarshalableMetadata(t *testing.T) {
	t.Parallel()

	db, _ := newMock(t)
	repo := NewEventSQLite(db)

	err := repo.Append(ctx(t), models.RefreshEvent{Type: "success", Metadata: make(chan int)})
	if err == nil {
		t.Fatalf("expected marshal error")
	}
}

func TestList_NoFilters_And_MetadataParsing(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewEventSQLite(db)

	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	js, _ := json.Marshal(map[string]any{"co2": 612.0})

	rows := sqlmock.NewRows([]string{"id", "occurred_at", "type", "message", "meta"}).
		AddRow("1", formatOccurredAt(now), "SUCCESS", "m1", string(js)).
		AddRow("2", now.Add(time.Hour).Format(time.RFC3339Nano), "FAILURE", "m2", nil).
		AddRow("3", formatOccurredAt(now.Add(2*time.Hour)), "FAILURE", "m3", "not json")

	mock.ExpectQuery(regexp.QuoteMeta(selectEventSQL + ` ORDER BY occurred_at ASC`)).
		WillReturnRows(rows)

	got, err := repo.List(ctx(t), time.Time{}, time.Time{}, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3, got %d", len(got))
	}
	if !got[0].OccurredAt.Equal(now) || !got[1].OccurredAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected timestamps: %v, %v", got[0].OccurredAt, got[1].OccurredAt)
	}
	b1, _ := json.Marshal(got[0].Metadata)
	if string(b1) != string(js) {
		t.Fatalf("metadata mismatch: %s vs %s", string(b1), string(js))
	}
	if got[1].Metadata != nil {
		t.Fatalf("expected nil meta, got %#v", got[1].Metadata)
	}
	if got[2].Metadata != "not json" {
		t.Fatalf("expected raw meta, got %#v", got[2].Metadata)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestList_WithFilters_OrderAndArgs(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewEventSQLite(db)

	from := time.Date(2025, 1, 1, 11, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	query := selectEventSQL + ` WHERE occurred_at >= ? AND occurred_at <= ? AND type = ? ORDER BY occurred_at ASC`

	rows := sqlmock.NewRows([]string{"id", "occurred_at", "type", "message", "meta"}).
		AddRow("2", formatOccurredAt(from), "FAILURE", "b", nil).
		AddRow("3", formatOccurredAt(to), "FAILURE", "c", nil)

	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs("2025-01-01T11:00:00.000000Z", "2025-01-01T12:00:00.000000Z", "FAILURE").
		WillReturnRows(rows)

	got, err := repo.List(ctx(t), from, to, " failure ")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].EventID != "2" || got[1].EventID != "3" {
		t.Fatalf("unexpected results: %+v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestList_BadTimestamp(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewEventSQLite(db)

	rows := sqlmock.NewRows([]string{"id", "occurred_at", "type", "message", "meta"}).
		AddRow("x", "yesterday", "SUCCESS", "msg", nil)

	mock.ExpectQuery(regexp.QuoteMeta(selectEventSQL)).
		WillReturnRows(rows)

	if _, err := repo.List(ctx(t), time.Time{}, time.Time{}, ""); err == nil {
		t.Fatalf("expected timestamp error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestList_QueryError(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewEventSQLite(db)

	mock.ExpectQuery(regexp.QuoteMeta(selectEventSQL)).WillReturnError(errors.New("locked"))

	if _, err := repo.List(ctx(t), time.Time{}, time.Time{}, ""); err == nil {
		t.Fatalf("expected query error")
	}
}

func TestDeleteBefore(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewEventSQLite(db)

	before := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(deleteEventSQL)).
		WithArgs("2025-06-01T00:00:00.000000Z").
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := repo.DeleteBefore(ctx(t), before)
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if n != 7 {
		t.Fatalf("want 7 deleted, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}
