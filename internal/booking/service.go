// Package booking ties the pricing and calendar core to storage, cache and events.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"vilo/internal/cache"
	"vilo/internal/calendar"
	"vilo/internal/config"
	"vilo/internal/database"
	"vilo/internal/events"
	"vilo/internal/metrics"
	"vilo/internal/models"
	"vilo/internal/pricing"
	"vilo/internal/selection"
	"vilo/internal/stay"
)

// Options bound what clients may ask for.
type Options struct {
	MaxQuoteNights int
	MaxAdvanceDays int
	SessionTimeout time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Service is the booking application service. Every call takes the tenant explicitly.
type Service struct {
	db           *database.DB
	availability *cache.AvailabilityCache
	bus          *events.EventBus
	sessions     *selection.SessionStore
	logger       *zerolog.Logger
	opts         Options
	now          func() time.Time
}

// NewService wires the service. availability and bus may be nil.
func NewService(db *database.DB, availability *cache.AvailabilityCache, bus *events.EventBus, logger *zerolog.Logger, opts Options) *Service {
	if opts.MaxQuoteNights <= 0 {
		opts.MaxQuoteNights = 90
	}
	if opts.MaxAdvanceDays <= 0 {
		opts.MaxAdvanceDays = 365
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		db:           db,
		availability: availability,
		bus:          bus,
		sessions:     selection.NewSessionStore(opts.SessionTimeout),
		logger:       logger,
		opts:         opts,
		now:          now,
	}
}

// Today returns the current date at the tenant's property.
func (s *Service) Today(tenant *config.TenantConfig) stay.Date {
	return tenant.Today(s.now())
}

// ListRooms returns the tenant's bookable rooms.
func (s *Service) ListRooms(ctx context.Context, tenant *config.TenantConfig) ([]models.Room, error) {
	return s.db.ListRooms(ctx, tenant.ID, true)
}

// Room returns one of the tenant's rooms, inactive ones included.
func (s *Service) Room(ctx context.Context, tenant *config.TenantConfig, roomID int64) (*models.Room, error) {
	room, err := s.db.GetRoom(ctx, tenant.ID, roomID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return room, nil
}

// Availability returns the unavailable dates of a room in window: nights held by
// active bookings plus blocked dates. Results are cached per room and window.
func (s *Service) Availability(ctx context.Context, tenant *config.TenantConfig, roomID int64, window stay.StayRange) (stay.DateSet, error) {
	if _, err := s.Room(ctx, tenant, roomID); err != nil {
		return nil, err
	}

	set, err := s.availability.Get(ctx, roomID, window)
	switch {
	case err == nil:
		metrics.IncCache("hit")
		return set, nil
	case errors.Is(err, cache.ErrCacheMiss):
		metrics.IncCache("miss")
	default:
		metrics.IncCache("error")
		s.logger.Warn().Err(err).Int64("room_id", roomID).Msg("Availability cache read failed")
	}

	set, err = s.loadUnavailable(ctx, roomID, window)
	if err != nil {
		return nil, err
	}
	if err := s.availability.Set(ctx, roomID, window, set); err != nil {
		s.logger.Warn().Err(err).Int64("room_id", roomID).Msg("Availability cache write failed")
	}
	return set, nil
}

func (s *Service) loadUnavailable(ctx context.Context, roomID int64, window stay.StayRange) (stay.DateSet, error) {
	blocked, err := s.db.ListBlockedDates(ctx, roomID, window)
	if err != nil {
		return nil, err
	}
	occupied, err := s.db.ListOccupiedNights(ctx, roomID, window)
	if err != nil {
		return nil, err
	}
	for d := range occupied {
		blocked.Add(d)
	}
	return blocked, nil
}

func (s *Service) invalidate(ctx context.Context, roomID int64) {
	if _, err := s.availability.InvalidateRoom(ctx, roomID); err != nil {
		s.logger.Warn().Err(err).Int64("room_id", roomID).Msg("Availability cache invalidation failed")
	}
}

// CalendarView is a room's month grid.
type CalendarView struct {
	RoomID int64              `json:"room_id"`
	Today  stay.Date          `json:"today"`
	Rules  selection.Rules    `json:"rules"`
	Grid   calendar.MonthGrid `json:"grid"`
}

// Calendar renders the month grid of a room with live availability, seasonal
// highlighting and an optional selected stay.
func (s *Service) Calendar(ctx context.Context, tenant *config.TenantConfig, roomID int64, year int, month time.Month, selected stay.StayRange) (*CalendarView, error) {
	room, err := s.Room(ctx, tenant, roomID)
	if err != nil {
		return nil, err
	}

	window := calendar.MonthWindow(year, month)
	unavailable, err := s.Availability(ctx, tenant, roomID, window)
	if err != nil {
		return nil, err
	}

	today := s.Today(tenant)
	grid := calendar.Build(calendar.Input{
		Year:        year,
		Month:       month,
		Range:       selected,
		Unavailable: unavailable,
		Seasonal:    pricing.SeasonalDates(room.SeasonalRates, window),
		Today:       today,
	})

	return &CalendarView{
		RoomID: roomID,
		Today:  today,
		Rules:  rulesFor(room),
		Grid:   grid,
	}, nil
}

func rulesFor(room *models.Room) selection.Rules {
	return selection.Rules{MinStayNights: room.MinStayNights, MaxStayNights: room.MaxStayNights}
}

// SyncCatalog writes the property catalog to storage and drops cached availability
// of every synced room.
func (s *Service) SyncCatalog(ctx context.Context, cfg *config.PropertiesConfig) error {
	roomIDs, err := s.db.SyncCatalog(ctx, cfg)
	if err != nil {
		return fmt.Errorf("sync catalog: %w", err)
	}
	for _, id := range roomIDs {
		s.invalidate(ctx, id)
	}

	ev, err := events.NewEvent(events.CatalogSynced, "", "", map[string]int{"rooms": len(roomIDs)})
	if err == nil {
		s.bus.Publish(ctx, ev)
	}
	return nil
}

// CleanupSessions drops expired selection sessions.
func (s *Service) CleanupSessions() int {
	return s.sessions.Cleanup()
}

// Ping checks storage and cache connectivity.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := s.availability.Ping(ctx); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}
