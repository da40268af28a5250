package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vilo/internal/models"
	"vilo/internal/pricing"
	"vilo/internal/stay"
)

const roomColumns = `id, tenant_id, name, description, base_price, capacity,
	min_stay_nights, max_stay_nights, is_active, created_at, updated_at`

func scanRoom(scan func(dest ...any) error) (*models.Room, error) {
	var r models.Room
	var description sql.NullString
	err := scan(
		&r.ID, &r.TenantID, &r.Name, &description, &r.BasePrice, &r.Capacity,
		&r.MinStayNights, &r.MaxStayNights, &r.IsActive, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Description = description.String
	return &r, nil
}

// ListRooms returns the tenant's rooms with their seasonal rates.
func (db *DB) ListRooms(ctx context.Context, tenantID string, activeOnly bool) ([]models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE tenant_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY id`

	rows, err := db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []models.Room
	for rows.Next() {
		r, err := scanRoom(rows.Scan)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range rooms {
		rates, err := db.ListSeasonalRates(ctx, rooms[i].ID)
		if err != nil {
			return nil, err
		}
		rooms[i].SeasonalRates = rates
	}
	return rooms, nil
}

// GetRoom returns one of the tenant's rooms. Rooms of other tenants are not found.
func (db *DB) GetRoom(ctx context.Context, tenantID string, roomID int64) (*models.Room, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE id = ? AND tenant_id = ?`,
		roomID, tenantID,
	)
	r, err := scanRoom(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room %d: %w", roomID, err)
	}

	r.SeasonalRates, err = db.ListSeasonalRates(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListSeasonalRates returns a room's seasonal rates ordered by start date.
func (db *DB) ListSeasonalRates(ctx context.Context, roomID int64) ([]pricing.SeasonalRate, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, start_date, end_date, price_per_night
		FROM seasonal_rates WHERE room_id = ?
		ORDER BY start_date, id`,
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("list seasonal rates: %w", err)
	}
	defer rows.Close()

	var rates []pricing.SeasonalRate
	for rows.Next() {
		var s pricing.SeasonalRate
		var name sql.NullString
		if err := rows.Scan(&s.ID, &name, &s.Start, &s.End, &s.PricePerNight); err != nil {
			return nil, err
		}
		s.Name = name.String
		rates = append(rates, s)
	}
	return rates, rows.Err()
}

// ListAddOns returns the tenant's active add-on catalog.
func (db *DB) ListAddOns(ctx context.Context, tenantID string) ([]pricing.AddOn, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, description, unit_price, pricing_policy, max_quantity
		FROM addons WHERE tenant_id = ? AND is_active = 1
		ORDER BY id`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list addons: %w", err)
	}
	defer rows.Close()

	var addons []pricing.AddOn
	for rows.Next() {
		var a pricing.AddOn
		var description sql.NullString
		var policy string
		if err := rows.Scan(&a.ID, &a.Name, &description, &a.UnitPrice, &policy, &a.MaxQuantity); err != nil {
			return nil, err
		}
		a.Description = description.String
		a.Policy = pricing.Policy(policy)
		addons = append(addons, a)
	}
	return addons, rows.Err()
}

// SetRateOverride stores a manual price for one night, replacing any previous one.
func (db *DB) SetRateOverride(ctx context.Context, o *models.RateOverride) error {
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = time.Now()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO rate_overrides (room_id, date, price, note, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(room_id, date) DO UPDATE SET
			price = excluded.price,
			note = excluded.note,
			updated_at = excluded.updated_at`,
		o.RoomID, o.Date, o.Price, o.Note, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("set rate override: %w", err)
	}
	return nil
}

// DeleteRateOverride removes a manual price. Missing overrides yield ErrNotFound.
func (db *DB) DeleteRateOverride(ctx context.Context, roomID int64, date stay.Date) error {
	res, err := db.ExecContext(ctx, `DELETE FROM rate_overrides WHERE room_id = ? AND date = ?`, roomID, date)
	if err != nil {
		return fmt.Errorf("delete rate override: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRateOverrides returns the manual prices for nights in [window.Start, window.End).
func (db *DB) ListRateOverrides(ctx context.Context, roomID int64, window stay.StayRange) (map[stay.Date]float64, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT date, price FROM rate_overrides
		WHERE room_id = ? AND date >= ? AND date < ?`,
		roomID, window.Start, window.End,
	)
	if err != nil {
		return nil, fmt.Errorf("list rate overrides: %w", err)
	}
	defer rows.Close()

	overrides := make(map[stay.Date]float64)
	for rows.Next() {
		var d stay.Date
		var price float64
		if err := rows.Scan(&d, &price); err != nil {
			return nil, err
		}
		overrides[d] = price
	}
	return overrides, rows.Err()
}

// ListBlockedDates returns the room's blocked dates in [window.Start, window.End).
func (db *DB) ListBlockedDates(ctx context.Context, roomID int64, window stay.StayRange) (stay.DateSet, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT date FROM blocked_dates
		WHERE room_id = ? AND date >= ? AND date < ?`,
		roomID, window.Start, window.End,
	)
	if err != nil {
		return nil, fmt.Errorf("list blocked dates: %w", err)
	}
	defer rows.Close()

	set := make(stay.DateSet)
	for rows.Next() {
		var d stay.Date
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		set.Add(d)
	}
	return set, rows.Err()
}

// ListOccupiedNights returns the nights in [window.Start, window.End) held by active bookings.
func (db *DB) ListOccupiedNights(ctx context.Context, roomID int64, window stay.StayRange) (stay.DateSet, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT night FROM booking_nights
		WHERE room_id = ? AND active = 1 AND night >= ? AND night < ?`,
		roomID, window.Start, window.End,
	)
	if err != nil {
		return nil, fmt.Errorf("list occupied nights: %w", err)
	}
	defer rows.Close()

	set := make(stay.DateSet)
	for rows.Next() {
		var d stay.Date
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		set.Add(d)
	}
	return set, rows.Err()
}
