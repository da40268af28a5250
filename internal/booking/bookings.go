package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"vilo/internal/config"
	"vilo/internal/database"
	"vilo/internal/events"
	"vilo/internal/metrics"
	"vilo/internal/models"
	"vilo/internal/stay"
)

// BookingRequest is a quote request plus guest details.
type BookingRequest struct {
	QuoteRequest
	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email"`
	GuestPhone string `json:"guest_phone"`
	Comment    string `json:"comment"`
}

// newReference returns a short human-friendly booking reference.
func newReference() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "VL-" + strings.ToUpper(id[:10])
}

// CreateBooking prices the stay, stores it with its nightly snapshot and announces it.
// A stay touching a held or blocked night yields ErrDatesUnavailable.
func (s *Service) CreateBooking(ctx context.Context, tenant *config.TenantConfig, req BookingRequest) (*models.Booking, error) {
	req.GuestName = strings.TrimSpace(req.GuestName)
	if req.GuestName == "" {
		ve := newValidationError()
		ve.add("guest_name", "guest_name is required")
		return nil, ve
	}

	q, room, err := s.quote(ctx, tenant, &req.QuoteRequest)
	if err != nil {
		return nil, err
	}

	b := &models.Booking{
		Reference:   newReference(),
		TenantID:    tenant.ID,
		RoomID:      room.ID,
		RoomName:    room.Name,
		GuestName:   req.GuestName,
		GuestEmail:  strings.TrimSpace(req.GuestEmail),
		GuestPhone:  strings.TrimSpace(req.GuestPhone),
		Guests:      q.Guests,
		Stay:        q.Stay,
		Status:      models.StatusConfirmed,
		Currency:    tenant.Currency,
		RoomTotal:   q.RoomTotal,
		AddOnsTotal: q.AddOnsTotal,
		Total:       q.Total,
		Comment:     req.Comment,
		Nights:      models.NightsFromRates(q.Rates),
		AddOns:      q.AddOns,
	}

	if err := s.db.CreateBooking(ctx, b); err != nil {
		if errors.Is(err, database.ErrNotAvailable) {
			return nil, ErrDatesUnavailable
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.invalidate(ctx, room.ID)
	metrics.IncBooking(tenant.ID, b.Status)
	s.publish(ctx, events.BookingCreated, b)

	s.logger.Info().
		Str("tenant", tenant.ID).
		Str("reference", b.Reference).
		Int64("room_id", b.RoomID).
		Str("check_in", b.Stay.Start.String()).
		Str("check_out", b.Stay.End.String()).
		Float64("total", b.Total).
		Msg("Booking created")
	return b, nil
}

// GetBooking returns one of the tenant's bookings by reference.
func (s *Service) GetBooking(ctx context.Context, tenant *config.TenantConfig, reference string) (*models.Booking, error) {
	b, err := s.db.GetBooking(ctx, tenant.ID, reference)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// CancelBooking cancels a booking and frees its nights. Stored prices are kept.
func (s *Service) CancelBooking(ctx context.Context, tenant *config.TenantConfig, reference string) (*models.Booking, error) {
	b, err := s.db.CancelBooking(ctx, tenant.ID, reference)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return nil, ErrBookingNotFound
	case errors.Is(err, database.ErrAlreadyCancelled):
		return nil, ErrAlreadyCancelled
	case err != nil:
		return nil, fmt.Errorf("cancel booking: %w", err)
	}

	s.invalidate(ctx, b.RoomID)
	metrics.IncBooking(tenant.ID, b.Status)
	s.publish(ctx, events.BookingCancelled, b)

	s.logger.Info().
		Str("tenant", tenant.ID).
		Str("reference", b.Reference).
		Int64("room_id", b.RoomID).
		Msg("Booking cancelled")
	return b, nil
}

// ListBookings returns the tenant's bookings with a night inside window.
func (s *Service) ListBookings(ctx context.Context, tenant *config.TenantConfig, window stay.StayRange, status string) ([]models.Booking, error) {
	if !window.IsComplete() {
		return nil, ErrInvalidStay
	}
	return s.db.ListBookings(ctx, database.BookingFilter{TenantID: tenant.ID, Window: window, Status: status})
}

// AllBookings returns every tenant's bookings with a night inside window.
func (s *Service) AllBookings(ctx context.Context, window stay.StayRange) ([]models.Booking, error) {
	return s.db.ListBookings(ctx, database.BookingFilter{Window: window})
}

func (s *Service) publish(ctx context.Context, eventType string, b *models.Booking) {
	ev, err := events.NewEvent(eventType, b.TenantID, b.Reference, events.BookingPayload{
		Reference: b.Reference,
		RoomID:    b.RoomID,
		RoomName:  b.RoomName,
		Stay:      b.Stay,
		Nights:    b.NightCount(),
		Guests:    b.Guests,
		Status:    b.Status,
		Total:     b.Total,
		Currency:  b.Currency,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("type", eventType).Msg("Failed to build event")
		return
	}
	if failed := s.bus.Publish(ctx, ev); failed > 0 {
		s.logger.Warn().Str("type", eventType).Int("failed", failed).Msg("Some event handlers failed")
	}
}
