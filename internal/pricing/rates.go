// Package pricing computes nightly room rates, add-on charges and booking totals.
package pricing

import (
	"math"

	"vilo/internal/stay"
)

// SeasonalRate overrides the base nightly price for the dates Start..End inclusive.
type SeasonalRate struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Start         stay.Date `json:"start_date"`
	End           stay.Date `json:"end_date"`
	PricePerNight float64   `json:"price_per_night"`
}

// Covers reports whether the rate applies to d.
func (r SeasonalRate) Covers(d stay.Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// NightlyRate is the price of one stayed night.
type NightlyRate struct {
	Date           stay.Date     `json:"date"`
	BasePrice      float64       `json:"base_price"`
	EffectivePrice float64       `json:"effective_price"`
	OverridePrice  *float64      `json:"override_price,omitempty"`
	SeasonalRate   *SeasonalRate `json:"seasonal_rate,omitempty"`
	FinalPrice     float64       `json:"final_price"`
}

// RoomPricing is the pricing configuration of a room plus saved manual overrides.
type RoomPricing struct {
	BasePrice float64
	Seasonal  []SeasonalRate
	Overrides map[stay.Date]float64
}

// ResolveNightlyRates returns one rate per night of r in date order.
// An empty or reversed range yields no nights; rejecting such a stay is up to the caller.
func ResolveNightlyRates(p RoomPricing, r stay.StayRange) []NightlyRate {
	nights := r.NightDates()
	if len(nights) == 0 {
		return nil
	}

	rates := make([]NightlyRate, 0, len(nights))
	for _, d := range nights {
		rate := NightlyRate{
			Date:           d,
			BasePrice:      p.BasePrice,
			EffectivePrice: p.BasePrice,
		}
		if seasonal := seasonalFor(p.Seasonal, d); seasonal != nil {
			rate.SeasonalRate = seasonal
			rate.EffectivePrice = seasonal.PricePerNight
		}
		rate.FinalPrice = rate.EffectivePrice
		if override, ok := p.Overrides[d]; ok {
			price := override
			rate.OverridePrice = &price
			rate.FinalPrice = price
		}
		rates = append(rates, rate)
	}
	return rates
}

// Total sums the final nightly prices.
func Total(rates []NightlyRate) float64 {
	sum := 0.0
	for _, r := range rates {
		sum += r.FinalPrice
	}
	return RoundMoney(sum)
}

// seasonalFor picks the covering rate that starts latest; on equal starts the later entry wins.
func seasonalFor(rates []SeasonalRate, d stay.Date) *SeasonalRate {
	var best *SeasonalRate
	for i := range rates {
		r := rates[i]
		if !r.Covers(d) {
			continue
		}
		if best == nil || !r.Start.Before(best.Start) {
			best = &r
		}
	}
	return best
}

// SeasonalDates returns the dates in r covered by any seasonal rate.
func SeasonalDates(rates []SeasonalRate, r stay.StayRange) stay.DateSet {
	set := make(stay.DateSet)
	if len(rates) == 0 {
		return set
	}
	for _, d := range r.NightDates() {
		for _, rate := range rates {
			if rate.Covers(d) {
				set.Add(d)
				break
			}
		}
	}
	return set
}

// RoundMoney rounds an amount to cents.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
