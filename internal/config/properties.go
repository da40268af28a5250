package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"vilo/internal/pricing"
	"vilo/internal/stay"
)

// SeasonalRateConfig is a date-range price override for a room.
type SeasonalRateConfig struct {
	Name          string  `yaml:"name"`
	StartDate     string  `yaml:"start_date"` // "2024-12-20"
	EndDate       string  `yaml:"end_date"`   // inclusive
	PricePerNight float64 `yaml:"price_per_night"`
}

// RoomConfig represents a single bookable room.
type RoomConfig struct {
	ID            int64                `yaml:"id"`
	Name          string               `yaml:"name"`
	Description   string               `yaml:"description"`
	BasePrice     float64              `yaml:"base_price"`
	Capacity      int                  `yaml:"capacity"`
	MinStayNights int                  `yaml:"min_stay_nights"`
	MaxStayNights int                  `yaml:"max_stay_nights"`
	IsActive      bool                 `yaml:"is_active"`
	SeasonalRates []SeasonalRateConfig `yaml:"seasonal_rates"`
	BlockedDates  []string             `yaml:"blocked_dates"` // "2024-06-12"
}

// AddOnConfig is an extra the guest can add to a booking.
type AddOnConfig struct {
	ID          int64   `yaml:"id"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	UnitPrice   float64 `yaml:"unit_price"`
	Policy      string  `yaml:"pricing_policy"`
	MaxQuantity int     `yaml:"max_quantity"`
	IsActive    bool    `yaml:"is_active"`
}

// TenantConfig is one hospitality business and its catalog.
type TenantConfig struct {
	ID       string        `yaml:"id"`
	Name     string        `yaml:"name"`
	APIKeys  []string      `yaml:"api_keys"`
	Timezone string        `yaml:"timezone"`
	Currency string        `yaml:"currency"`
	Rooms    []RoomConfig  `yaml:"rooms"`
	AddOns   []AddOnConfig `yaml:"addons"`

	loc *time.Location
}

// DefaultsConfig represents global default settings.
type DefaultsConfig struct {
	MinStayNights int    `yaml:"min_stay_nights"`
	MaxStayNights int    `yaml:"max_stay_nights"`
	Capacity      int    `yaml:"capacity"`
	Currency      string `yaml:"currency"`
}

// PropertiesConfig is the root configuration for properties.yaml.
type PropertiesConfig struct {
	Tenants  []TenantConfig `yaml:"tenants"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// LoadPropertiesConfig loads and validates the property catalog from a YAML file.
func LoadPropertiesConfig(path string) (*PropertiesConfig, error) {
	if path == "" {
		path = "configs/properties.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read properties config: %w", err)
	}

	return ParsePropertiesConfig([]byte(os.ExpandEnv(string(data))))
}

// ParsePropertiesConfig parses, validates and applies defaults to raw YAML.
func ParsePropertiesConfig(data []byte) (*PropertiesConfig, error) {
	var cfg PropertiesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse properties config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate properties config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *PropertiesConfig) Validate() error {
	if len(c.Tenants) == 0 {
		return fmt.Errorf("no tenants defined")
	}

	tenantIDs := make(map[string]bool)
	apiKeys := make(map[string]bool)
	roomIDs := make(map[int64]bool)
	addonIDs := make(map[int64]bool)

	for i, t := range c.Tenants {
		prefix := fmt.Sprintf("tenant[%d]", i)
		if t.ID == "" {
			return fmt.Errorf("%s: id is required", prefix)
		}
		if tenantIDs[t.ID] {
			return fmt.Errorf("%s: duplicate id '%s'", prefix, t.ID)
		}
		tenantIDs[t.ID] = true

		if len(t.APIKeys) == 0 {
			return fmt.Errorf("%s: at least one api key is required", prefix)
		}
		for j, key := range t.APIKeys {
			if key == "" {
				return fmt.Errorf("%s.api_keys[%d]: empty key", prefix, j)
			}
			if apiKeys[key] {
				return fmt.Errorf("%s.api_keys[%d]: key already used", prefix, j)
			}
			apiKeys[key] = true
		}

		if t.Timezone != "" {
			if _, err := time.LoadLocation(t.Timezone); err != nil {
				return fmt.Errorf("%s: invalid timezone '%s'", prefix, t.Timezone)
			}
		}

		for j, room := range t.Rooms {
			if err := validateRoom(&room, fmt.Sprintf("%s.rooms[%d]", prefix, j), roomIDs); err != nil {
				return err
			}
		}

		for j, a := range t.AddOns {
			p := fmt.Sprintf("%s.addons[%d]", prefix, j)
			if a.ID <= 0 {
				return fmt.Errorf("%s: id must be positive, got %d", p, a.ID)
			}
			if addonIDs[a.ID] {
				return fmt.Errorf("%s: duplicate id %d", p, a.ID)
			}
			addonIDs[a.ID] = true
			if a.Name == "" {
				return fmt.Errorf("%s: name is required", p)
			}
			if a.UnitPrice < 0 {
				return fmt.Errorf("%s: unit_price cannot be negative", p)
			}
			if !pricing.Policy(a.Policy).Valid() {
				return fmt.Errorf("%s: unknown pricing_policy '%s'", p, a.Policy)
			}
			if a.MaxQuantity < 0 {
				return fmt.Errorf("%s: max_quantity cannot be negative", p)
			}
		}
	}

	if c.Defaults.MinStayNights < 0 || c.Defaults.MaxStayNights < 0 {
		return fmt.Errorf("defaults: stay limits cannot be negative")
	}

	return nil
}

func validateRoom(r *RoomConfig, prefix string, seen map[int64]bool) error {
	if r.ID <= 0 {
		return fmt.Errorf("%s: id must be positive, got %d", prefix, r.ID)
	}
	if seen[r.ID] {
		return fmt.Errorf("%s: duplicate id %d", prefix, r.ID)
	}
	seen[r.ID] = true

	if r.Name == "" {
		return fmt.Errorf("%s: name is required", prefix)
	}
	if r.BasePrice < 0 {
		return fmt.Errorf("%s: base_price cannot be negative", prefix)
	}
	if r.Capacity < 0 {
		return fmt.Errorf("%s: capacity cannot be negative", prefix)
	}
	if r.MinStayNights < 0 || r.MaxStayNights < 0 {
		return fmt.Errorf("%s: stay limits cannot be negative", prefix)
	}
	if r.MaxStayNights > 0 && r.MinStayNights > r.MaxStayNights {
		return fmt.Errorf("%s: min_stay_nights must not exceed max_stay_nights", prefix)
	}

	for i, s := range r.SeasonalRates {
		p := fmt.Sprintf("%s.seasonal_rates[%d]", prefix, i)
		start, err := stay.Parse(s.StartDate)
		if err != nil {
			return fmt.Errorf("%s.start_date: invalid format '%s', expected YYYY-MM-DD", p, s.StartDate)
		}
		end, err := stay.Parse(s.EndDate)
		if err != nil {
			return fmt.Errorf("%s.end_date: invalid format '%s', expected YYYY-MM-DD", p, s.EndDate)
		}
		if end.Before(start) {
			return fmt.Errorf("%s: end_date must not be before start_date", p)
		}
		if s.PricePerNight < 0 {
			return fmt.Errorf("%s: price_per_night cannot be negative", p)
		}
	}

	for i, b := range r.BlockedDates {
		if _, err := stay.Parse(b); err != nil {
			return fmt.Errorf("%s.blocked_dates[%d]: invalid date format '%s', expected YYYY-MM-DD", prefix, i, b)
		}
	}

	return nil
}

// applyDefaults applies default values to rooms without explicit configuration.
func (c *PropertiesConfig) applyDefaults() {
	for i := range c.Tenants {
		t := &c.Tenants[i]
		if t.Currency == "" {
			t.Currency = c.Defaults.Currency
		}
		if t.Currency == "" {
			t.Currency = "EUR"
		}
		t.loc = time.UTC
		if t.Timezone != "" {
			if loc, err := time.LoadLocation(t.Timezone); err == nil {
				t.loc = loc
			}
		}

		for j := range t.Rooms {
			r := &t.Rooms[j]
			if r.MinStayNights == 0 {
				r.MinStayNights = c.Defaults.MinStayNights
			}
			if r.MinStayNights == 0 {
				r.MinStayNights = 1
			}
			if r.MaxStayNights == 0 {
				r.MaxStayNights = c.Defaults.MaxStayNights
			}
			if r.Capacity == 0 {
				r.Capacity = c.Defaults.Capacity
			}
			if r.Capacity == 0 {
				r.Capacity = 2
			}
		}
	}
}

// TenantByAPIKey returns the tenant owning key.
func (c *PropertiesConfig) TenantByAPIKey(key string) *TenantConfig {
	if key == "" {
		return nil
	}
	for i := range c.Tenants {
		for _, k := range c.Tenants[i].APIKeys {
			if k == key {
				return &c.Tenants[i]
			}
		}
	}
	return nil
}

// TenantByID returns tenant config by ID.
func (c *PropertiesConfig) TenantByID(id string) *TenantConfig {
	for i := range c.Tenants {
		if c.Tenants[i].ID == id {
			return &c.Tenants[i]
		}
	}
	return nil
}

// String returns a summary of the configuration.
func (c *PropertiesConfig) String() string {
	rooms, active := 0, 0
	for _, t := range c.Tenants {
		for _, r := range t.Rooms {
			rooms++
			if r.IsActive {
				active++
			}
		}
	}
	return fmt.Sprintf("PropertiesConfig: %d tenants, %d rooms (%d active)", len(c.Tenants), rooms, active)
}

// Location returns the tenant's time zone, UTC when unset.
func (t *TenantConfig) Location() *time.Location {
	if t.loc == nil {
		return time.UTC
	}
	return t.loc
}

// Today returns the current date in the tenant's time zone.
func (t *TenantConfig) Today(now time.Time) stay.Date {
	return stay.FromTime(now.In(t.Location()))
}

// Room returns room config by ID.
func (t *TenantConfig) Room(id int64) *RoomConfig {
	for i := range t.Rooms {
		if t.Rooms[i].ID == id {
			return &t.Rooms[i]
		}
	}
	return nil
}

// AddOn returns the add-on config by ID.
func (t *TenantConfig) AddOn(id int64) *AddOnConfig {
	for i := range t.AddOns {
		if t.AddOns[i].ID == id {
			return &t.AddOns[i]
		}
	}
	return nil
}

// Seasons converts the room's configured seasons into pricing records.
// Dates were checked by Validate.
func (r *RoomConfig) Seasons() []pricing.SeasonalRate {
	out := make([]pricing.SeasonalRate, 0, len(r.SeasonalRates))
	for _, s := range r.SeasonalRates {
		start, _ := stay.Parse(s.StartDate)
		end, _ := stay.Parse(s.EndDate)
		out = append(out, pricing.SeasonalRate{
			Name:          s.Name,
			Start:         start,
			End:           end,
			PricePerNight: s.PricePerNight,
		})
	}
	return out
}

// ToAddOn converts an add-on config into a pricing catalog entry.
func (a *AddOnConfig) ToAddOn() pricing.AddOn {
	return pricing.AddOn{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		UnitPrice:   a.UnitPrice,
		Policy:      pricing.Policy(a.Policy),
		MaxQuantity: a.MaxQuantity,
	}
}
