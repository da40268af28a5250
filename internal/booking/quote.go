package booking

import (
	"context"
	"fmt"
	"time"

	"vilo/internal/config"
	"vilo/internal/metrics"
	"vilo/internal/models"
	"vilo/internal/pricing"
	"vilo/internal/stay"
)

// AddOnRequest asks for quantity units of a catalog add-on.
type AddOnRequest struct {
	AddOnID  int64 `json:"addon_id"`
	Quantity int   `json:"quantity"`
}

// QuoteRequest describes a stay to price.
type QuoteRequest struct {
	RoomID   int64          `json:"room_id"`
	CheckIn  stay.Date      `json:"check_in"`
	CheckOut stay.Date      `json:"check_out"`
	Guests   int            `json:"guests"`
	AddOns   []AddOnRequest `json:"addons"`
}

// Stay returns the requested stay range.
func (r QuoteRequest) Stay() stay.StayRange {
	return stay.NewRange(r.CheckIn, r.CheckOut)
}

// QuoteResult is a priced stay plus the room it applies to.
type QuoteResult struct {
	pricing.Quote
	RoomID   int64  `json:"room_id"`
	RoomName string `json:"room_name"`
	Currency string `json:"currency"`
}

// checkRange rejects empty, reversed and overlong ranges.
func (s *Service) checkRange(r stay.StayRange) error {
	if !r.IsComplete() {
		return ErrInvalidStay
	}
	if n := r.Nights(); n > s.opts.MaxQuoteNights {
		return &StayLengthError{Err: ErrStayTooLong, Nights: n, Limit: s.opts.MaxQuoteNights}
	}
	return nil
}

func (s *Service) roomPricing(ctx context.Context, room *models.Room, r stay.StayRange) (pricing.RoomPricing, error) {
	overrides, err := s.db.ListRateOverrides(ctx, room.ID, r)
	if err != nil {
		return pricing.RoomPricing{}, err
	}
	return pricing.RoomPricing{
		BasePrice: room.BasePrice,
		Seasonal:  room.SeasonalRates,
		Overrides: overrides,
	}, nil
}

// Rates returns the nightly price breakdown of a stay. Stay-length rules of the
// room are not applied; only the general quote range limit is.
func (s *Service) Rates(ctx context.Context, tenant *config.TenantConfig, roomID int64, r stay.StayRange) ([]pricing.NightlyRate, error) {
	room, err := s.Room(ctx, tenant, roomID)
	if err != nil {
		return nil, err
	}
	if err := s.checkRange(r); err != nil {
		return nil, err
	}

	p, err := s.roomPricing(ctx, room, r)
	if err != nil {
		return nil, err
	}
	return pricing.ResolveNightlyRates(p, r), nil
}

// Quote validates and prices a stay with add-ons.
func (s *Service) Quote(ctx context.Context, tenant *config.TenantConfig, req QuoteRequest) (*QuoteResult, error) {
	started := time.Now()
	q, _, err := s.quote(ctx, tenant, &req)
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	metrics.ObserveQuote(result, time.Since(started))
	return q, err
}

func (s *Service) quote(ctx context.Context, tenant *config.TenantConfig, req *QuoteRequest) (*QuoteResult, *models.Room, error) {
	room, err := s.Room(ctx, tenant, req.RoomID)
	if err != nil {
		return nil, nil, err
	}
	if !room.IsActive {
		return nil, nil, ErrRoomInactive
	}

	if err := s.validateQuote(tenant, room, req); err != nil {
		return nil, nil, err
	}

	r := req.Stay()
	if err := s.checkRange(r); err != nil {
		return nil, nil, err
	}
	nights := r.Nights()
	rules := rulesFor(room)
	if minNights := max(rules.MinStayNights, 1); nights < minNights {
		return nil, nil, &StayLengthError{Err: ErrStayTooShort, Nights: nights, Limit: minNights}
	}
	if rules.MaxStayNights > 0 && nights > rules.MaxStayNights {
		return nil, nil, &StayLengthError{Err: ErrStayTooLong, Nights: nights, Limit: rules.MaxStayNights}
	}

	selections, err := s.selectAddOns(ctx, tenant, req.AddOns)
	if err != nil {
		return nil, nil, err
	}

	p, err := s.roomPricing(ctx, room, r)
	if err != nil {
		return nil, nil, err
	}

	return &QuoteResult{
		Quote:    pricing.BuildQuote(p, r, req.Guests, selections),
		RoomID:   room.ID,
		RoomName: room.Name,
		Currency: tenant.Currency,
	}, room, nil
}

// validateQuote checks the request fields. It defaults Guests to 1.
func (s *Service) validateQuote(tenant *config.TenantConfig, room *models.Room, req *QuoteRequest) error {
	ve := newValidationError()

	if req.CheckIn.IsZero() {
		ve.add("check_in", "check_in is required")
	}
	if req.CheckOut.IsZero() {
		ve.add("check_out", "check_out is required")
	}

	today := s.Today(tenant)
	if !req.CheckIn.IsZero() {
		if req.CheckIn.Before(today) {
			ve.add("check_in", "check_in cannot be in the past")
		}
		if limit := today.AddDays(s.opts.MaxAdvanceDays); req.CheckIn.After(limit) {
			ve.add("check_in", fmt.Sprintf("check_in cannot be more than %d days ahead", s.opts.MaxAdvanceDays))
		}
	}

	if req.Guests == 0 {
		req.Guests = 1
	}
	if req.Guests < 0 {
		ve.add("guests", "guests must be positive")
	} else if room.Capacity > 0 && req.Guests > room.Capacity {
		ve.add("guests", fmt.Sprintf("room sleeps at most %d guests", room.Capacity))
	}

	return ve.orNil()
}

// selectAddOns resolves requested add-ons against the tenant's active catalog.
// Quantities are clamped to each add-on's maximum; a zero quantity drops the line.
func (s *Service) selectAddOns(ctx context.Context, tenant *config.TenantConfig, reqs []AddOnRequest) ([]pricing.AddOnSelection, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	catalog, err := s.db.ListAddOns(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]pricing.AddOn, len(catalog))
	for _, a := range catalog {
		byID[a.ID] = a
	}

	ve := newValidationError()
	var selections []pricing.AddOnSelection
	for _, r := range reqs {
		addon, ok := byID[r.AddOnID]
		if !ok {
			ve.add("addons", fmt.Sprintf("unknown add-on %d", r.AddOnID))
			continue
		}
		selections = pricing.SetQuantity(selections, addon, r.Quantity)
	}
	if err := ve.orNil(); err != nil {
		return nil, err
	}
	return selections, nil
}
