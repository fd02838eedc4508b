package repository

import (
	"context"
	"database/sql"
	"time"

	"co2_sensor_proxy/internal/models"
)

// EventRepo stores the refresh history. It never feeds the sensor cache.
type EventRepo interface {
	Append(ctx context.Context, e models.RefreshEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.RefreshEvent, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

type Repository struct {
	EventRepo EventRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		EventRepo: NewEventSQLite(db),
	}
}
