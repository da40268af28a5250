package pricing

// Policy is the rule by which an add-on's unit price scales.
type Policy string

const (
	PolicyPerBooking       Policy = "per_booking"
	PolicyPerNight         Policy = "per_night"
	PolicyPerGuest         Policy = "per_guest"
	PolicyPerGuestPerNight Policy = "per_guest_per_night"
)

// Valid reports whether p is one of the known policies.
func (p Policy) Valid() bool {
	switch p {
	case PolicyPerBooking, PolicyPerNight, PolicyPerGuest, PolicyPerGuestPerNight:
		return true
	}
	return false
}

// AddOn is a catalog entry that can be attached to a booking.
type AddOn struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	UnitPrice   float64 `json:"unit_price"`
	Policy      Policy  `json:"pricing_policy"`
	MaxQuantity int     `json:"max_quantity"`
}

// AddOnTotal computes the charge for quantity units of an add-on.
// Unknown policies are charged per booking. Bounds on quantity are the caller's job.
func AddOnTotal(unitPrice float64, policy Policy, quantity, nights, guests int) float64 {
	base := unitPrice * float64(quantity)
	switch policy {
	case PolicyPerNight:
		return base * float64(nights)
	case PolicyPerGuest:
		return base * float64(guests)
	case PolicyPerGuestPerNight:
		return base * float64(guests) * float64(nights)
	default:
		return base
	}
}

// ClampQuantity limits q to [0, max]. A max of zero or less means no upper bound.
func ClampQuantity(q, max int) int {
	if q < 0 {
		return 0
	}
	if max > 0 && q > max {
		return max
	}
	return q
}

// AddOnSelection is a chosen add-on. Once attached to a booking it is a snapshot:
// name and price no longer follow the catalog.
type AddOnSelection struct {
	AddOnID   int64   `json:"addon_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Policy    Policy  `json:"pricing_policy"`
	Quantity  int     `json:"quantity"`
	Total     float64 `json:"total"`
}

// SetQuantity adds, updates or removes the selection for addon. A quantity of zero
// removes it. The quantity is clamped to the add-on's maximum.
func SetQuantity(selections []AddOnSelection, addon AddOn, quantity int) []AddOnSelection {
	quantity = ClampQuantity(quantity, addon.MaxQuantity)

	out := make([]AddOnSelection, 0, len(selections)+1)
	found := false
	for _, s := range selections {
		if s.AddOnID != addon.ID {
			out = append(out, s)
			continue
		}
		found = true
		if quantity > 0 {
			s.Quantity = quantity
			out = append(out, s)
		}
	}
	if !found && quantity > 0 {
		out = append(out, AddOnSelection{
			AddOnID:   addon.ID,
			Name:      addon.Name,
			UnitPrice: addon.UnitPrice,
			Policy:    addon.Policy,
			Quantity:  quantity,
		})
	}
	return out
}

// PriceSelections fills in the total of every selection for the given stay.
func PriceSelections(selections []AddOnSelection, nights, guests int) []AddOnSelection {
	out := make([]AddOnSelection, len(selections))
	for i, s := range selections {
		s.Total = RoundMoney(AddOnTotal(s.UnitPrice, s.Policy, s.Quantity, nights, guests))
		out[i] = s
	}
	return out
}

// AddOnsTotal sums selection totals.
func AddOnsTotal(selections []AddOnSelection) float64 {
	sum := 0.0
	for _, s := range selections {
		sum += s.Total
	}
	return RoundMoney(sum)
}
