package booking

import (
	"context"
	"errors"
	"fmt"

	"vilo/internal/config"
	"vilo/internal/database"
	"vilo/internal/models"
	"vilo/internal/stay"
)

// SetOverride pins the price of one night of a room. Existing bookings keep their
// stored prices.
func (s *Service) SetOverride(ctx context.Context, tenant *config.TenantConfig, o models.RateOverride) (*models.RateOverride, error) {
	ve := newValidationError()
	if o.Date.IsZero() {
		ve.add("date", "date is required")
	}
	if o.Price < 0 {
		ve.add("price", "price must not be negative")
	}
	if err := ve.orNil(); err != nil {
		return nil, err
	}

	if _, err := s.Room(ctx, tenant, o.RoomID); err != nil {
		return nil, err
	}

	o.UpdatedAt = s.now()
	if err := s.db.SetRateOverride(ctx, &o); err != nil {
		return nil, fmt.Errorf("set override: %w", err)
	}

	s.logger.Info().
		Str("tenant", tenant.ID).
		Int64("room_id", o.RoomID).
		Str("date", o.Date.String()).
		Float64("price", o.Price).
		Msg("Rate override set")
	return &o, nil
}

// DeleteOverride removes a night's manual price.
func (s *Service) DeleteOverride(ctx context.Context, tenant *config.TenantConfig, roomID int64, date stay.Date) error {
	if _, err := s.Room(ctx, tenant, roomID); err != nil {
		return err
	}
	err := s.db.DeleteRateOverride(ctx, roomID, date)
	if errors.Is(err, database.ErrNotFound) {
		return ErrOverrideNotFound
	}
	return err
}
