package pricing

import "vilo/internal/stay"

// Quote is the full price breakdown of a stay.
type Quote struct {
	Stay        stay.StayRange   `json:"stay"`
	Nights      int              `json:"nights"`
	Guests      int              `json:"guests"`
	Rates       []NightlyRate    `json:"rates"`
	AddOns      []AddOnSelection `json:"addons"`
	RoomTotal   float64          `json:"room_total"`
	AddOnsTotal float64          `json:"addons_total"`
	Total       float64          `json:"total"`
}

// BuildQuote prices a stay: nightly rates plus add-on charges.
func BuildQuote(p RoomPricing, r stay.StayRange, guests int, selections []AddOnSelection) Quote {
	rates := ResolveNightlyRates(p, r)
	nights := len(rates)
	addons := PriceSelections(selections, nights, guests)

	q := Quote{
		Stay:        r,
		Nights:      nights,
		Guests:      guests,
		Rates:       rates,
		AddOns:      addons,
		RoomTotal:   Total(rates),
		AddOnsTotal: AddOnsTotal(addons),
	}
	q.Total = RoundMoney(q.RoomTotal + q.AddOnsTotal)
	return q
}
