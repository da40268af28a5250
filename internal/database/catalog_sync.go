package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"vilo/internal/config"
	"vilo/internal/stay"
)

// SyncCatalog applies properties.yaml to the database.
// It upserts rooms and add-ons, replaces seasonal rates and config-sourced blocked dates,
// and marks rooms and add-ons missing from the config inactive. Bookings and manual
// overrides are left untouched. It returns the IDs of every synced room.
func (db *DB) SyncCatalog(ctx context.Context, cfg *config.PropertiesConfig) ([]int64, error) {
	if cfg == nil {
		return nil, fmt.Errorf("properties config is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	seenRooms := make(map[int64]struct{})
	seenAddOns := make(map[int64]struct{})
	var roomIDs []int64

	for _, tenant := range cfg.Tenants {
		for i := range tenant.Rooms {
			room := &tenant.Rooms[i]
			if err := syncRoom(ctx, tx, tenant.ID, room, now); err != nil {
				return nil, fmt.Errorf("sync room %d: %w", room.ID, err)
			}
			seenRooms[room.ID] = struct{}{}
			roomIDs = append(roomIDs, room.ID)
		}

		for _, a := range tenant.AddOns {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO addons (id, tenant_id, name, description, unit_price, pricing_policy, max_quantity, is_active, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, COALESCE((SELECT created_at FROM addons WHERE id = ?), ?), ?)
				ON CONFLICT(id) DO UPDATE SET
					tenant_id = excluded.tenant_id,
					name = excluded.name,
					description = excluded.description,
					unit_price = excluded.unit_price,
					pricing_policy = excluded.pricing_policy,
					max_quantity = excluded.max_quantity,
					is_active = excluded.is_active,
					updated_at = excluded.updated_at`,
				a.ID, tenant.ID, a.Name, a.Description, a.UnitPrice, a.Policy, a.MaxQuantity,
				boolToInt(a.IsActive), a.ID, now, now,
			)
			if err != nil {
				return nil, fmt.Errorf("sync addon %d: %w", a.ID, err)
			}
			seenAddOns[a.ID] = struct{}{}
		}
	}

	if err := deactivateMissing(ctx, tx, "rooms", seenRooms, now); err != nil {
		return nil, err
	}
	if err := deactivateMissing(ctx, tx, "addons", seenAddOns, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	if db.logger != nil {
		db.logger.Info().Int("rooms", len(seenRooms)).Int("addons", len(seenAddOns)).Msg("Catalog synced")
	}
	return roomIDs, nil
}

func syncRoom(ctx context.Context, tx *sql.Tx, tenantID string, room *config.RoomConfig, now time.Time) error {
	// Preserve created_at if the room already exists.
	_, err := tx.ExecContext(ctx, `
		INSERT INTO rooms (id, tenant_id, name, description, base_price, capacity, min_stay_nights, max_stay_nights, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, COALESCE((SELECT created_at FROM rooms WHERE id = ?), ?), ?)
		ON CONFLICT(id) DO UPDATE SET
			tenant_id = excluded.tenant_id,
			name = excluded.name,
			description = excluded.description,
			base_price = excluded.base_price,
			capacity = excluded.capacity,
			min_stay_nights = excluded.min_stay_nights,
			max_stay_nights = excluded.max_stay_nights,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`,
		room.ID, tenantID, room.Name, room.Description, room.BasePrice, room.Capacity,
		room.MinStayNights, room.MaxStayNights, boolToInt(room.IsActive), room.ID, now, now,
	)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM seasonal_rates WHERE room_id = ?`, room.ID); err != nil {
		return fmt.Errorf("clear seasonal rates: %w", err)
	}
	for _, s := range room.Seasons() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO seasonal_rates (room_id, name, start_date, end_date, price_per_night)
			VALUES (?, ?, ?, ?, ?)`,
			room.ID, s.Name, s.Start, s.End, s.PricePerNight,
		)
		if err != nil {
			return fmt.Errorf("insert seasonal rate %q: %w", s.Name, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM blocked_dates WHERE room_id = ? AND source = 'config'`, room.ID); err != nil {
		return fmt.Errorf("clear blocked dates: %w", err)
	}
	for _, raw := range room.BlockedDates {
		d, err := stay.Parse(raw)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO blocked_dates (room_id, date, reason, source)
			VALUES (?, ?, ?, 'config')`,
			room.ID, d, "blocked in properties config",
		)
		if err != nil {
			return fmt.Errorf("insert blocked date %s: %w", raw, err)
		}
	}

	return nil
}

func deactivateMissing(ctx context.Context, tx *sql.Tx, table string, seen map[int64]struct{}, now time.Time) error {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`SELECT id FROM %s WHERE is_active = 1`, table))
	if err != nil {
		return err
	}

	var stale []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		if _, ok := seen[id]; !ok {
			stale = append(stale, id)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, id := range stale {
		q := fmt.Sprintf(`UPDATE %s SET is_active = 0, updated_at = ? WHERE id = ?`, table)
		if _, err := tx.ExecContext(ctx, q, now, id); err != nil {
			return fmt.Errorf("deactivate %s %d: %w", table, id, err)
		}
	}
	return nil
}
