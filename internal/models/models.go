package models

import (
	"time"

	"vilo/internal/pricing"
	"vilo/internal/stay"
)

// Booking statuses.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// Room is a bookable unit of a tenant's property.
type Room struct {
	ID            int64                  `json:"id"`
	TenantID      string                 `json:"tenant_id"`
	Name          string                 `json:"name"`
	Description   string                 `json:"description,omitempty"`
	BasePrice     float64                `json:"base_price"`
	Capacity      int                    `json:"capacity"`
	MinStayNights int                    `json:"min_stay_nights"`
	MaxStayNights int                    `json:"max_stay_nights"`
	IsActive      bool                   `json:"is_active"`
	SeasonalRates []pricing.SeasonalRate `json:"seasonal_rates,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// RateOverride is a manual price for one night of a room.
type RateOverride struct {
	RoomID    int64     `json:"room_id"`
	Date      stay.Date `json:"date"`
	Price     float64   `json:"price"`
	Note      string    `json:"note,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BookingNight is the stored price of one booked night.
type BookingNight struct {
	Date           stay.Date `json:"date"`
	BasePrice      float64   `json:"base_price"`
	EffectivePrice float64   `json:"effective_price"`
	OverridePrice  *float64  `json:"override_price,omitempty"`
	FinalPrice     float64   `json:"final_price"`
}

// Booking is a confirmed or cancelled stay.
type Booking struct {
	ID          int64                    `json:"-"`
	Reference   string                   `json:"reference"`
	TenantID    string                   `json:"tenant_id"`
	RoomID      int64                    `json:"room_id"`
	RoomName    string                   `json:"room_name"`
	GuestName   string                   `json:"guest_name"`
	GuestEmail  string                   `json:"guest_email,omitempty"`
	GuestPhone  string                   `json:"guest_phone,omitempty"`
	Guests      int                      `json:"guests"`
	Stay        stay.StayRange           `json:"stay"`
	Status      string                   `json:"status"`
	Currency    string                   `json:"currency"`
	RoomTotal   float64                  `json:"room_total"`
	AddOnsTotal float64                  `json:"addons_total"`
	Total       float64                  `json:"total"`
	Comment     string                   `json:"comment,omitempty"`
	Nights      []BookingNight           `json:"nights,omitempty"`
	AddOns      []pricing.AddOnSelection `json:"addons,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
	CancelledAt *time.Time               `json:"cancelled_at,omitempty"`
	Version     int64                    `json:"version"`
}

// NightCount returns the number of nights in the stay.
func (b *Booking) NightCount() int {
	return b.Stay.Nights()
}

// IsActive reports whether the booking still holds its nights.
func (b *Booking) IsActive() bool {
	return b.Status != StatusCancelled
}

// OverlapsWith reports whether two bookings of the same room share a night.
// Check-out day is free for the next check-in.
func (b *Booking) OverlapsWith(other *Booking) bool {
	if b.RoomID != other.RoomID {
		return false
	}
	return b.Stay.Overlaps(other.Stay)
}

// ContainsNight reports whether the guest sleeps in the room on night d.
func (b *Booking) ContainsNight(d stay.Date) bool {
	return b.Stay.Contains(d)
}

// NightsFromRates converts resolved rates into storable nights.
func NightsFromRates(rates []pricing.NightlyRate) []BookingNight {
	out := make([]BookingNight, 0, len(rates))
	for _, r := range rates {
		out = append(out, BookingNight{
			Date:           r.Date,
			BasePrice:      r.BasePrice,
			EffectivePrice: r.EffectivePrice,
			OverridePrice:  r.OverridePrice,
			FinalPrice:     r.FinalPrice,
		})
	}
	return out
}
