package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"vilo/internal/models"
	"vilo/internal/pricing"
	"vilo/internal/stay"
)

// BookingFilter selects bookings for listings and reports.
type BookingFilter struct {
	TenantID string         // empty matches every tenant
	Window   stay.StayRange // bookings with at least one night inside
	Status   string         // empty matches every status
}

// CreateBooking stores a booking with its nightly prices and add-on snapshot.
// The availability check and the insert share one transaction; a night already held
// by an active booking or a blocked date yields ErrNotAvailable.
func (db *DB) CreateBooking(ctx context.Context, b *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var conflicts int
	err = tx.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM booking_nights WHERE room_id = ? AND active = 1 AND night >= ? AND night < ?) +
			(SELECT COUNT(*) FROM blocked_dates WHERE room_id = ? AND date >= ? AND date < ?)`,
		b.RoomID, b.Stay.Start, b.Stay.End,
		b.RoomID, b.Stay.Start, b.Stay.End,
	).Scan(&conflicts)
	if err != nil {
		return fmt.Errorf("check availability: %w", err)
	}
	if conflicts > 0 {
		return ErrNotAvailable
	}

	now := time.Now()
	if b.Status == "" {
		b.Status = models.StatusConfirmed
	}
	b.CreatedAt, b.UpdatedAt, b.Version = now, now, 1

	result, err := tx.ExecContext(ctx, `
		INSERT INTO bookings (
			reference, tenant_id, room_id, room_name, guest_name, guest_email, guest_phone, guests,
			check_in, check_out, status, currency, room_total, addons_total, total, comment,
			created_at, updated_at, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Reference, b.TenantID, b.RoomID, b.RoomName, b.GuestName, b.GuestEmail, b.GuestPhone, b.Guests,
		b.Stay.Start, b.Stay.End, b.Status, b.Currency, b.RoomTotal, b.AddOnsTotal, b.Total, b.Comment,
		now, now, b.Version,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	b.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last id: %w", err)
	}

	for _, n := range b.Nights {
		var override sql.NullFloat64
		if n.OverridePrice != nil {
			override = sql.NullFloat64{Float64: *n.OverridePrice, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO booking_nights (booking_id, room_id, night, base_price, effective_price, override_price, final_price, active)
			VALUES (?, ?, ?, ?, ?, ?, ?, 1)`,
			b.ID, b.RoomID, n.Date, n.BasePrice, n.EffectivePrice, override, n.FinalPrice,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrNotAvailable
			}
			return fmt.Errorf("insert night %s: %w", n.Date, err)
		}
	}

	for _, a := range b.AddOns {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO booking_addons (booking_id, addon_id, name, unit_price, pricing_policy, quantity, total)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			b.ID, a.AddOnID, a.Name, a.UnitPrice, string(a.Policy), a.Quantity, a.Total,
		)
		if err != nil {
			return fmt.Errorf("insert addon %d: %w", a.AddOnID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return ErrNotAvailable
		}
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

const bookingColumns = `id, reference, tenant_id, room_id, room_name, guest_name, guest_email, guest_phone,
	guests, check_in, check_out, status, currency, room_total, addons_total, total, comment,
	created_at, updated_at, cancelled_at, version`

func scanBooking(scan func(dest ...any) error) (*models.Booking, error) {
	var b models.Booking
	var email, phone, comment sql.NullString
	var cancelledAt sql.NullTime
	err := scan(
		&b.ID, &b.Reference, &b.TenantID, &b.RoomID, &b.RoomName, &b.GuestName, &email, &phone,
		&b.Guests, &b.Stay.Start, &b.Stay.End, &b.Status, &b.Currency, &b.RoomTotal, &b.AddOnsTotal,
		&b.Total, &comment, &b.CreatedAt, &b.UpdatedAt, &cancelledAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	b.GuestEmail = email.String
	b.GuestPhone = phone.String
	b.Comment = comment.String
	if cancelledAt.Valid {
		t := cancelledAt.Time
		b.CancelledAt = &t
	}
	return &b, nil
}

// GetBooking returns a booking with its nights and add-ons.
func (db *DB) GetBooking(ctx context.Context, tenantID, reference string) (*models.Booking, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE reference = ? AND tenant_id = ?`,
		reference, tenantID,
	)
	b, err := scanBooking(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", reference, err)
	}

	if b.Nights, err = db.listBookingNights(ctx, b.ID); err != nil {
		return nil, err
	}
	if b.AddOns, err = db.listBookingAddOns(ctx, b.ID); err != nil {
		return nil, err
	}
	return b, nil
}

func (db *DB) listBookingNights(ctx context.Context, bookingID int64) ([]models.BookingNight, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT night, base_price, effective_price, override_price, final_price
		FROM booking_nights WHERE booking_id = ? ORDER BY night`,
		bookingID,
	)
	if err != nil {
		return nil, fmt.Errorf("list booking nights: %w", err)
	}
	defer rows.Close()

	var nights []models.BookingNight
	for rows.Next() {
		var n models.BookingNight
		var override sql.NullFloat64
		if err := rows.Scan(&n.Date, &n.BasePrice, &n.EffectivePrice, &override, &n.FinalPrice); err != nil {
			return nil, err
		}
		if override.Valid {
			v := override.Float64
			n.OverridePrice = &v
		}
		nights = append(nights, n)
	}
	return nights, rows.Err()
}

func (db *DB) listBookingAddOns(ctx context.Context, bookingID int64) ([]pricing.AddOnSelection, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT addon_id, name, unit_price, pricing_policy, quantity, total
		FROM booking_addons WHERE booking_id = ? ORDER BY addon_id`,
		bookingID,
	)
	if err != nil {
		return nil, fmt.Errorf("list booking addons: %w", err)
	}
	defer rows.Close()

	var addons []pricing.AddOnSelection
	for rows.Next() {
		var a pricing.AddOnSelection
		var policy string
		if err := rows.Scan(&a.AddOnID, &a.Name, &a.UnitPrice, &policy, &a.Quantity, &a.Total); err != nil {
			return nil, err
		}
		a.Policy = pricing.Policy(policy)
		addons = append(addons, a)
	}
	return addons, rows.Err()
}

// CancelBooking marks a booking cancelled and releases its nights.
func (db *DB) CancelBooking(ctx context.Context, tenantID, reference string) (*models.Booking, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT id, status FROM bookings WHERE reference = ? AND tenant_id = ?`,
		reference, tenantID,
	).Scan(&id, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if status == models.StatusCancelled {
		return nil, ErrAlreadyCancelled
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		UPDATE bookings
		SET status = ?, cancelled_at = ?, updated_at = ?, version = version + 1
		WHERE id = ?`,
		models.StatusCancelled, now, now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE booking_nights SET active = 0 WHERE booking_id = ?`, id); err != nil {
		return nil, fmt.Errorf("release nights: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return db.GetBooking(ctx, tenantID, reference)
}

// ListBookings returns bookings with at least one night inside the filter window,
// ordered by check-in. Nights and add-on lines are not loaded.
func (db *DB) ListBookings(ctx context.Context, f BookingFilter) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE check_in < ? AND check_out > ?`
	args := []any{f.Window.End, f.Window.Start}
	if f.TenantID != "" {
		query += ` AND tenant_id = ?`
		args = append(args, f.TenantID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	query += ` ORDER BY check_in, id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}
