// Package report exports booking analytics as Excel, CSV or a Google Sheet.
package report

import (
	"vilo/internal/models"
	"vilo/internal/pricing"
)

// Columns is the header shared by every export format.
var Columns = []string{
	"Reference", "Tenant", "Room", "Guest", "Check-in", "Check-out", "Nights", "Guests",
	"Status", "Room total", "Add-ons total", "Total", "Currency", "Created",
}

// Summary aggregates confirmed bookings.
type Summary struct {
	Bookings    int     `json:"bookings"`
	Cancelled   int     `json:"cancelled"`
	Nights      int     `json:"nights"`
	RoomRevenue float64 `json:"room_revenue"`
	Revenue     float64 `json:"revenue"`
	ADR         float64 `json:"adr"` // average daily rate: room revenue per sold night
}

// Summarize computes totals over bookings. Cancelled bookings are only counted.
func Summarize(bookings []models.Booking) Summary {
	var s Summary
	for i := range bookings {
		b := &bookings[i]
		if !b.IsActive() {
			s.Cancelled++
			continue
		}
		s.Bookings++
		s.Nights += b.NightCount()
		s.RoomRevenue += b.RoomTotal
		s.Revenue += b.Total
	}
	s.RoomRevenue = pricing.RoundMoney(s.RoomRevenue)
	s.Revenue = pricing.RoundMoney(s.Revenue)
	if s.Nights > 0 {
		s.ADR = pricing.RoundMoney(s.RoomRevenue / float64(s.Nights))
	}
	return s
}

func bookingRowValues(b *models.Booking) []interface{} {
	return []interface{}{
		b.Reference,
		b.TenantID,
		b.RoomName,
		b.GuestName,
		b.Stay.Start.String(),
		b.Stay.End.String(),
		b.NightCount(),
		b.Guests,
		b.Status,
		b.RoomTotal,
		b.AddOnsTotal,
		b.Total,
		b.Currency,
		b.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
