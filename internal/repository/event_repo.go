package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"co2_sensor_proxy/internal/models"

	"github.com/google/uuid"
)

// occurredAtLayout is fixed-width so stored values sort lexicographically.
const occurredAtLayout = "2006-01-02T15:04:05.000000Z"

const (
	insertEventSQL = `INSERT INTO refresh_events (id, occurred_at, type, message, meta) VALUES (?, ?, ?, ?, ?)`
	selectEventSQL = `SELECT id, occurred_at, type, message, meta FROM refresh_events`
	deleteEventSQL = `DELETE FROM refresh_events WHERE occurred_at < ?`
)

type EventSQLite struct {
	db *sql.DB
}

func NewEventSQLite(db *sql.DB) *EventSQLite { return &EventSQLite{db: db} }

func formatOccurredAt(t time.Time) string {
	return t.UTC().Format(occurredAtLayout)
}

func parseOccurredAt(s string) (time.Time, error) {
	for _, layout := range []string{occurredAtLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid occurred_at %q", s)
}

// Append inserts a new event. Missing EventID and OccurredAt are filled in.
func (r *EventSQLite) Append(ctx context.Context, e models.RefreshEvent) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	var meta sql.NullString
	if e.Metadata != nil {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal event metadata: %w", err)
		}
		meta = sql.NullString{String: string(b), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, insertEventSQL,
		e.EventID,
		formatOccurredAt(e.OccurredAt),
		strings.ToUpper(strings.TrimSpace(e.Type)),
		e.Description,
		meta,
	)
	return err
}

// List returns events filtered by [from, to] (inclusive) and/or type, oldest first.
func (r *EventSQLite) List(ctx context.Context, from, to time.Time, typ string) ([]models.RefreshEvent, error) {
	var (
		conds []string
		args  []any
	)

	if !from.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, formatOccurredAt(from))
	}
	if !to.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, formatOccurredAt(to))
	}
	if typ = strings.ToUpper(strings.TrimSpace(typ)); typ != "" {
		conds = append(conds, "type = ?")
		args = append(args, typ)
	}

	q := selectEventSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.RefreshEvent, 0, 64)
	for rows.Next() {
		var (
			ev         models.RefreshEvent
			occurredAt string
			metaStr    sql.NullString
		)
		if err := rows.Scan(&ev.EventID, &occurredAt, &ev.Type, &ev.Description, &metaStr); err != nil {
			return nil, err
		}
		if ev.OccurredAt, err = parseOccurredAt(occurredAt); err != nil {
			return nil, err
		}

		if metaStr.Valid && metaStr.String != "" {
			var v any
			if err := json.Unmarshal([]byte(metaStr.String), &v); err == nil {
				ev.Metadata = v
			} else {
				ev.Metadata = metaStr.String // keep raw if malformed
			}
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteBefore removes events older than before and reports how many went.
func (r *EventSQLite) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, deleteEventSQL, formatOccurredAt(before))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
