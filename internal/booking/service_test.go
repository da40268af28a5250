package booking

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vilo/internal/cache"
	"vilo/internal/calendar"
	"vilo/internal/config"
	"vilo/internal/database"
	"vilo/internal/events"
	"vilo/internal/models"
	"vilo/internal/selection"
	"vilo/internal/stay"
)

const testCatalog = `
tenants:
  - id: seaside
    name: Seaside
    api_keys: [k1]
    currency: EUR
    addons:
      - {id: 1, name: Breakfast, unit_price: 12.5, pricing_policy: per_guest_per_night, max_quantity: 2, is_active: true}
      - {id: 2, name: Old spa, unit_price: 40, pricing_policy: per_booking, is_active: false}
      - {id: 3, name: Parking, unit_price: 10, pricing_policy: per_night, is_active: true}
    rooms:
      - id: 101
        name: Garden Room
        base_price: 100
        capacity: 2
        min_stay_nights: 2
        max_stay_nights: 14
        is_active: true
        seasonal_rates:
          - {name: Christmas, start_date: "2024-12-20", end_date: "2024-12-31", price_per_night: 150}
        blocked_dates: ["2024-06-12"]
      - {id: 102, name: Attic, base_price: 70, is_active: false}
  - id: mountain
    name: Mountain
    api_keys: [k2]
    rooms:
      - {id: 201, name: Chalet, base_price: 200, is_active: true}
`

func d(s string) stay.Date { return stay.MustParse(s) }

type fixture struct {
	svc     *Service
	cfg     *config.PropertiesConfig
	seaside *config.TenantConfig
	redis   *miniredis.Miniredis

	mu     sync.Mutex
	events []events.Event
}

func (f *fixture) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]string, 0, len(f.events))
	for _, e := range f.events {
		types = append(types, e.Type)
	}
	return types
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.New(io.Discard)

	db, err := database.NewDB(filepath.Join(t.TempDir(), "vilo.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{redis: mr}
	bus := events.NewEventBus(&logger)
	bus.SubscribeAll(func(_ context.Context, e events.Event) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.events = append(f.events, e)
		return nil
	}, events.BookingCreated, events.BookingCancelled, events.CatalogSynced)

	f.svc = NewService(db, cache.NewAvailabilityCache(client, time.Minute), bus, &logger, Options{MaxQuoteNights: 30, MaxAdvanceDays: 365})
	f.svc.now = func() time.Time { return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC) }

	f.cfg, err = config.ParsePropertiesConfig([]byte(testCatalog))
	require.NoError(t, err)
	require.NoError(t, f.svc.SyncCatalog(context.Background(), f.cfg))
	f.seaside = f.cfg.TenantByID("seaside")
	require.NotNil(t, f.seaside)
	return f
}

func quoteReq(start, end string, guests int, addons ...AddOnRequest) QuoteRequest {
	return QuoteRequest{RoomID: 101, CheckIn: d(start), CheckOut: d(end), Guests: guests, AddOns: addons}
}

func TestQuote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	q, err := f.svc.Quote(ctx, f.seaside, quoteReq("2024-06-20", "2024-06-23", 2,
		AddOnRequest{AddOnID: 1, Quantity: 1},
		AddOnRequest{AddOnID: 3, Quantity: 5},
	))
	require.NoError(t, err)

	assert.Equal(t, "Garden Room", q.RoomName)
	assert.Equal(t, "EUR", q.Currency)
	assert.Equal(t, 3, q.Nights)
	assert.Equal(t, 300.0, q.RoomTotal)
	require.Len(t, q.AddOns, 2)
	// breakfast 12.5 x 2 guests x 3 nights, parking has no max so 10 x 5 x 3
	assert.Equal(t, 75.0+150.0, q.AddOnsTotal)
	assert.Equal(t, 525.0, q.Total)
}

func TestQuote_ClampsAddOnQuantity(t *testing.T) {
	f := newFixture(t)

	q, err := f.svc.Quote(context.Background(), f.seaside, quoteReq("2024-06-20", "2024-06-22", 1,
		AddOnRequest{AddOnID: 1, Quantity: 9},
	))
	require.NoError(t, err)
	require.Len(t, q.AddOns, 1)
	assert.Equal(t, 2, q.AddOns[0].Quantity)
	assert.Equal(t, 50.0, q.AddOnsTotal)
}

func TestQuote_DefaultsGuestsToOne(t *testing.T) {
	f := newFixture(t)

	q, err := f.svc.Quote(context.Background(), f.seaside, quoteReq("2024-06-20", "2024-06-22", 0))
	require.NoError(t, err)
	assert.Equal(t, 1, q.Guests)
}

func TestQuote_SeasonalAndOverride(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetOverride(ctx, f.seaside, models.RateOverride{RoomID: 101, Date: d("2024-12-21"), Price: 99})
	require.NoError(t, err)

	q, err := f.svc.Quote(ctx, f.seaside, quoteReq("2024-12-19", "2024-12-22", 1))
	require.NoError(t, err)
	require.Len(t, q.Rates, 3)
	assert.Equal(t, 100.0, q.Rates[0].FinalPrice)
	assert.Equal(t, 150.0, q.Rates[1].FinalPrice)
	assert.Equal(t, 99.0, q.Rates[2].FinalPrice)
	require.NotNil(t, q.Rates[2].OverridePrice)
	assert.Equal(t, 349.0, q.Total)

	require.NoError(t, f.svc.DeleteOverride(ctx, f.seaside, 101, d("2024-12-21")))
	assert.ErrorIs(t, f.svc.DeleteOverride(ctx, f.seaside, 101, d("2024-12-21")), ErrOverrideNotFound)
}

func TestQuote_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   QuoteRequest
		err   error
		field string
	}{
		{name: "too short", req: quoteReq("2024-06-20", "2024-06-21", 1), err: ErrStayTooShort},
		{name: "too long", req: quoteReq("2024-06-01", "2024-06-20", 1), err: ErrStayTooLong},
		{name: "reversed", req: quoteReq("2024-06-22", "2024-06-20", 1), err: ErrInvalidStay},
		{name: "past check-in", req: quoteReq("2024-05-30", "2024-06-02", 1), field: "check_in"},
		{name: "too far ahead", req: quoteReq("2025-07-01", "2025-07-03", 1), field: "check_in"},
		{name: "over capacity", req: quoteReq("2024-06-20", "2024-06-22", 3), field: "guests"},
		{name: "missing dates", req: QuoteRequest{RoomID: 101}, field: "check_out"},
		{name: "inactive add-on", req: quoteReq("2024-06-20", "2024-06-22", 1, AddOnRequest{AddOnID: 2, Quantity: 1}), field: "addons"},
		{name: "unknown room", req: QuoteRequest{RoomID: 999}, err: ErrRoomNotFound},
		{name: "other tenant's room", req: QuoteRequest{RoomID: 201}, err: ErrRoomNotFound},
		{name: "inactive room", req: QuoteRequest{RoomID: 102}, err: ErrRoomInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Quote(ctx, f.seaside, tt.req)
			require.Error(t, err)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			ve := AsValidationError(err)
			require.NotNil(t, ve, "expected validation error, got %v", err)
			assert.Contains(t, ve.Fields(), tt.field)
		})
	}
}

func TestQuote_StayLengthErrorMessage(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Quote(context.Background(), f.seaside, quoteReq("2024-06-20", "2024-06-21", 1))
	var sle *StayLengthError
	require.ErrorAs(t, err, &sle)
	assert.Equal(t, 2, sle.Limit)
	assert.Equal(t, "minimum stay is 2 nights, got 1", err.Error())
}

func TestRates_IgnoresRoomStayRules(t *testing.T) {
	f := newFixture(t)

	rates, err := f.svc.Rates(context.Background(), f.seaside, 101, stay.NewRange(d("2024-12-31"), d("2025-01-01")))
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, 150.0, rates[0].FinalPrice)

	_, err = f.svc.Rates(context.Background(), f.seaside, 101, stay.NewRange(d("2024-06-01"), d("2024-08-01")))
	assert.ErrorIs(t, err, ErrStayTooLong)
}

func TestCreateBooking_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	june := calendar.MonthWindow(2024, time.June)

	before, err := f.svc.Availability(ctx, f.seaside, 101, june)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-12"}, before.Strings())
	assert.True(t, f.redis.Exists(cache.Key(101, june)))

	b, err := f.svc.CreateBooking(ctx, f.seaside, BookingRequest{
		QuoteRequest: quoteReq("2024-06-20", "2024-06-22", 2, AddOnRequest{AddOnID: 1, Quantity: 1}),
		GuestName:    "  Ana Silva ",
		GuestEmail:   "ana@example.com",
	})
	require.NoError(t, err)
	assert.Regexp(t, `^VL-[0-9A-F]{10}$`, b.Reference)
	assert.Equal(t, "Ana Silva", b.GuestName)
	assert.Equal(t, models.StatusConfirmed, b.Status)
	assert.Equal(t, 250.0, b.Total)
	assert.Len(t, b.Nights, 2)
	assert.False(t, f.redis.Exists(cache.Key(101, june)), "booking drops cached availability")

	after, err := f.svc.Availability(ctx, f.seaside, 101, june)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-12", "2024-06-20", "2024-06-21"}, after.Strings())

	_, err = f.svc.CreateBooking(ctx, f.seaside, BookingRequest{
		QuoteRequest: quoteReq("2024-06-21", "2024-06-24", 1),
		GuestName:    "Rui",
	})
	assert.ErrorIs(t, err, ErrDatesUnavailable)

	// check-out day is free for the next guest
	_, err = f.svc.CreateBooking(ctx, f.seaside, BookingRequest{
		QuoteRequest: quoteReq("2024-06-22", "2024-06-24", 1),
		GuestName:    "Rui",
	})
	require.NoError(t, err)

	got, err := f.svc.GetBooking(ctx, f.seaside, b.Reference)
	require.NoError(t, err)
	require.Len(t, got.AddOns, 1)
	assert.Equal(t, 50.0, got.AddOns[0].Total)

	_, err = f.svc.GetBooking(ctx, f.cfg.TenantByID("mountain"), b.Reference)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	cancelled, err := f.svc.CancelBooking(ctx, f.seaside, b.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, 250.0, cancelled.Total)

	_, err = f.svc.CancelBooking(ctx, f.seaside, b.Reference)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
	_, err = f.svc.CancelBooking(ctx, f.seaside, "VL-MISSING")
	assert.ErrorIs(t, err, ErrBookingNotFound)

	freed, err := f.svc.Availability(ctx, f.seaside, 101, june)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-12", "2024-06-22", "2024-06-23"}, freed.Strings())

	assert.Equal(t, []string{
		events.CatalogSynced,
		events.BookingCreated,
		events.BookingCreated,
		events.BookingCancelled,
	}, f.eventTypes())

	list, err := f.svc.ListBookings(ctx, f.seaside, june, "")
	require.NoError(t, err)
	assert.Len(t, list, 2)
	list, err = f.svc.ListBookings(ctx, f.seaside, june, models.StatusConfirmed)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreateBooking_RequiresGuestName(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateBooking(context.Background(), f.seaside, BookingRequest{
		QuoteRequest: quoteReq("2024-06-20", "2024-06-22", 1),
	})
	ve := AsValidationError(err)
	require.NotNil(t, ve)
	assert.Contains(t, ve.Fields(), "guest_name")
}

func TestCreateBooking_BlockedDate(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateBooking(context.Background(), f.seaside, BookingRequest{
		QuoteRequest: quoteReq("2024-06-11", "2024-06-14", 1),
		GuestName:    "Ana",
	})
	assert.ErrorIs(t, err, ErrDatesUnavailable)
}

func TestCreateBooking_ConcurrentSameNights(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 5
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CreateBooking(ctx, f.seaside, BookingRequest{
				QuoteRequest: quoteReq("2024-07-01", "2024-07-04", 1),
				GuestName:    "Guest",
			})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		}
	}
	assert.Equal(t, 1, ok)
}

func TestCalendar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateBooking(ctx, f.seaside, BookingRequest{
		QuoteRequest: quoteReq("2024-06-20", "2024-06-22", 1),
		GuestName:    "Ana",
	})
	require.NoError(t, err)

	view, err := f.svc.Calendar(ctx, f.seaside, 101, 2024, time.June, stay.NewRange(d("2024-06-03"), d("2024-06-06")))
	require.NoError(t, err)
	assert.Equal(t, d("2024-06-01"), view.Today)
	assert.Equal(t, 2, view.Rules.MinStayNights)
	require.Len(t, view.Grid.Weeks, 6)

	cells := make(map[stay.Date]calendar.Day)
	for _, week := range view.Grid.Weeks {
		for _, c := range week {
			cells[c.Date] = c
		}
	}
	assert.Len(t, cells, calendar.GridSize)
	assert.True(t, cells[d("2024-05-31")].IsPast)
	assert.False(t, cells[d("2024-05-31")].IsCurrentMonth)
	assert.True(t, cells[d("2024-06-12")].IsUnavailable)
	assert.True(t, cells[d("2024-06-21")].IsUnavailable)
	assert.False(t, cells[d("2024-06-22")].IsUnavailable)
	assert.True(t, cells[d("2024-06-03")].IsSelectedStart)
	assert.True(t, cells[d("2024-06-04")].IsInRange)
	assert.True(t, cells[d("2024-06-06")].IsSelectedEnd)

	dec, err := f.svc.Calendar(ctx, f.seaside, 101, 2024, time.December, stay.StayRange{})
	require.NoError(t, err)
	last := dec.Grid.Weeks[2][6]
	assert.Equal(t, d("2024-12-21"), last.Date)
	assert.True(t, last.IsSeasonal)
}

func TestSelect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.svc.Select(ctx, f.seaside, "", 101, d("2024-06-10"))
	require.NoError(t, err)
	require.NotEmpty(t, v.SessionID)
	assert.Equal(t, selection.OutcomeStarted, v.Outcome)
	assert.Equal(t, selection.StateAwaitingEnd, v.State)
	sid := v.SessionID

	v, err = f.svc.Select(ctx, f.seaside, sid, 101, d("2024-06-11"))
	require.NoError(t, err)
	assert.Equal(t, selection.OutcomeTooShort, v.Outcome)
	assert.Equal(t, d("2024-06-10"), v.Range.Start)

	v, err = f.svc.Select(ctx, f.seaside, sid, 101, d("2024-06-13"))
	require.NoError(t, err)
	assert.Equal(t, selection.OutcomeCrossedUnavailable, v.Outcome)
	assert.Equal(t, d("2024-06-13"), v.Range.Start)

	v, err = f.svc.Select(ctx, f.seaside, sid, 101, d("2024-06-15"))
	require.NoError(t, err)
	assert.Equal(t, selection.OutcomeCompleted, v.Outcome)
	assert.Equal(t, selection.StateComplete, v.State)
	assert.Equal(t, 2, v.Nights)
	require.NotNil(t, v.Quote)
	assert.Equal(t, 200.0, v.Quote.Total)

	current := f.svc.Selection(ctx, f.seaside, sid)
	require.NotNil(t, current)
	assert.Equal(t, v.Range, current.Range)

	// sessions are tenant scoped
	assert.Nil(t, f.svc.Selection(ctx, f.cfg.TenantByID("mountain"), sid))

	v, err = f.svc.Select(ctx, f.seaside, sid, 101, d("2024-05-20"))
	require.NoError(t, err)
	assert.Equal(t, selection.OutcomeIgnoredPast, v.Outcome)
	assert.Equal(t, selection.StateComplete, v.State)

	f.svc.ResetSelection(f.seaside, sid)
	assert.Nil(t, f.svc.Selection(ctx, f.seaside, sid))
}

func TestSelect_InactiveRoom(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Select(context.Background(), f.seaside, "", 102, d("2024-06-10"))
	assert.ErrorIs(t, err, ErrRoomInactive)
}

func TestPing(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.Ping(context.Background()))

	f.redis.Close()
	assert.Error(t, f.svc.Ping(context.Background()))
}
