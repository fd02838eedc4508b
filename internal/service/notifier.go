package service

import (
	"context"
	"errors"
	"fmt"

	"co2_sensor_proxy/internal/models"
)

// Notifier is the push channel towards the accessory runtime.
type Notifier interface {
	UpdateCharacteristic(ctx context.Context, c models.Characteristic, value any) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, c models.Characteristic, value any) error

func (f NotifierFunc) UpdateCharacteristic(ctx context.Context, c models.Characteristic, value any) error {
	return f(ctx, c, value)
}

// MultiNotifier delivers each update to every sink. A failing sink does not
// stop delivery to the others; all failures are joined.
type MultiNotifier []Notifier

func (m MultiNotifier) UpdateCharacteristic(ctx context.Context, c models.Characteristic, value any) error {
	var errs []error
	for i, n := range m {
		if n == nil {
			continue
		}
		if err := n.UpdateCharacteristic(ctx, c, value); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
