package config

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vilo/internal/stay"
)

const validProperties = `
defaults:
  min_stay_nights: 1
  capacity: 2
tenants:
  - id: seaside
    name: Seaside B&B
    api_keys: ["${VILO_TEST_KEY}"]
    timezone: Europe/Lisbon
    addons:
      - id: 1
        name: Breakfast
        unit_price: 12.5
        pricing_policy: per_guest_per_night
        max_quantity: 2
        is_active: true
    rooms:
      - id: 101
        name: Garden Room
        base_price: 100
        min_stay_nights: 2
        max_stay_nights: 14
        is_active: true
        seasonal_rates:
          - name: Christmas
            start_date: "2024-12-20"
            end_date: "2024-12-31"
            price_per_night: 150
        blocked_dates: ["2024-06-12"]
      - id: 102
        name: Attic
        base_price: 70
        is_active: false
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "nested", "vilo.db")
	path := writeFile(t, dir, "config.yaml", "database:\n  path: "+dbPath+"\nhttp:\n  port: 9090\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "configs/properties.yaml", cfg.PropertiesPath)
	assert.Equal(t, "vilo.bookings", cfg.Kafka.Topic)
	assert.Equal(t, 30*time.Minute, cfg.SessionTimeout())
	assert.Equal(t, 90, cfg.MaxQuoteNights())
	assert.Equal(t, 365, cfg.MaxAdvanceDays())
	assert.Equal(t, 5*time.Minute, cfg.AvailabilityTTL())
	assert.Equal(t, 24*time.Hour, cfg.Backup.Interval())
	assert.DirExists(t, filepath.Join(dir, "nested"))
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("VILO_TEST_REDIS", "redis:6380")
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml",
		"database:\n  path: "+filepath.Join(dir, "v.db")+"\nredis:\n  address: ${VILO_TEST_REDIS}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis:6380", cfg.Redis.Address)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadPropertiesConfig(t *testing.T) {
	t.Setenv("VILO_TEST_KEY", "key-123")
	path := writeFile(t, t.TempDir(), "properties.yaml", validProperties)

	cfg, err := LoadPropertiesConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Tenants, 1)

	tenant := cfg.TenantByAPIKey("key-123")
	require.NotNil(t, tenant)
	assert.Equal(t, "seaside", tenant.ID)
	assert.Equal(t, "EUR", tenant.Currency)
	assert.Equal(t, "Europe/Lisbon", tenant.Location().String())
	assert.Nil(t, cfg.TenantByAPIKey("nope"))
	assert.Nil(t, cfg.TenantByAPIKey(""))
	assert.Same(t, tenant, cfg.TenantByID("seaside"))

	room := tenant.Room(101)
	require.NotNil(t, room)
	assert.Equal(t, 2, room.MinStayNights)
	assert.Equal(t, 2, room.Capacity)

	attic := tenant.Room(102)
	require.NotNil(t, attic)
	assert.Equal(t, 1, attic.MinStayNights)
	assert.Equal(t, 0, attic.MaxStayNights)
	assert.Nil(t, tenant.Room(999))

	seasons := room.Seasons()
	require.Len(t, seasons, 1)
	assert.Equal(t, stay.MustParse("2024-12-20"), seasons[0].Start)
	assert.Equal(t, 150.0, seasons[0].PricePerNight)

	addon := tenant.AddOn(1)
	require.NotNil(t, addon)
	assert.Equal(t, "per_guest_per_night", string(addon.ToAddOn().Policy))

	assert.Equal(t, "PropertiesConfig: 1 tenants, 2 rooms (1 active)", cfg.String())
}

func TestTenantToday(t *testing.T) {
	t.Setenv("VILO_TEST_KEY", "k")
	cfg, err := ParsePropertiesConfig([]byte(os.ExpandEnv(validProperties)))
	require.NoError(t, err)

	// 23:30 UTC on June 11 is already June 12 in Lisbon (UTC+1 in summer).
	now := time.Date(2024, 6, 11, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, stay.MustParse("2024-06-12"), cfg.Tenants[0].Today(now))
}

func TestPropertiesValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no tenants", "tenants: []", "no tenants defined"},
		{"missing key", `
tenants:
  - id: a
    rooms: []`, "tenant[0]: at least one api key is required"},
		{"duplicate key", `
tenants:
  - id: a
    api_keys: [k]
  - id: b
    api_keys: [k]`, "tenant[1].api_keys[0]: key already used"},
		{"bad timezone", `
tenants:
  - id: a
    api_keys: [k]
    timezone: Mars/Olympus`, "invalid timezone"},
		{"duplicate room", `
tenants:
  - id: a
    api_keys: [k]
    rooms:
      - {id: 1, name: A}
      - {id: 1, name: B}`, "tenant[0].rooms[1]: duplicate id 1"},
		{"min over max", `
tenants:
  - id: a
    api_keys: [k]
    rooms:
      - {id: 1, name: A, min_stay_nights: 5, max_stay_nights: 3}`, "min_stay_nights must not exceed max_stay_nights"},
		{"reversed season", `
tenants:
  - id: a
    api_keys: [k]
    rooms:
      - id: 1
        name: A
        seasonal_rates:
          - {start_date: "2024-08-01", end_date: "2024-07-01", price_per_night: 10}`, "end_date must not be before start_date"},
		{"bad blocked date", `
tenants:
  - id: a
    api_keys: [k]
    rooms:
      - {id: 1, name: A, blocked_dates: ["12/06/2024"]}`, "tenant[0].rooms[0].blocked_dates[0]: invalid date format"},
		{"bad policy", `
tenants:
  - id: a
    api_keys: [k]
    addons:
      - {id: 1, name: Spa, unit_price: 5, pricing_policy: per_hour}`, "unknown pricing_policy 'per_hour'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePropertiesConfig([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestWatchProperties(t *testing.T) {
	t.Setenv("VILO_TEST_KEY", "k")
	path := writeFile(t, t.TempDir(), "properties.yaml", validProperties)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	catalog := NewCatalog(nil)
	logger := zerolog.New(io.Discard)

	err := WatchProperties(ctx, path, 10*time.Millisecond, &logger, func(cfg *PropertiesConfig) {
		calls.Add(1)
		catalog.Set(cfg)
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	require.NotNil(t, catalog.Get())

	updated := validProperties + "\n  - id: mountain\n    api_keys: [other]\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	assert.Eventually(t, func() bool {
		cfg := catalog.Get()
		return cfg != nil && len(cfg.Tenants) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatchProperties_InvalidInitial(t *testing.T) {
	path := writeFile(t, t.TempDir(), "properties.yaml", "tenants: []")
	err := WatchProperties(context.Background(), path, time.Second, nil, nil)
	assert.Error(t, err)
}
