package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB wraps sql.DB for the booking service.
type DB struct {
	*sql.DB
	path   string
	logger *zerolog.Logger
}

var (
	ErrNotFound         = errors.New("not found")
	ErrNotAvailable     = errors.New("not available")
	ErrAlreadyCancelled = errors.New("booking already cancelled")
)

// NewDB opens the database at path and runs migrations.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if logger != nil {
		logger.Info().Str("path", path).Msg("Database initialized")
	}
	return &DB{DB: db, path: path, logger: logger}, nil
}

// Path returns the database file location.
func (db *DB) Path() string {
	return db.path
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			id INTEGER PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			base_price REAL NOT NULL DEFAULT 0,
			capacity INTEGER NOT NULL DEFAULT 2,
			min_stay_nights INTEGER NOT NULL DEFAULT 1,
			max_stay_nights INTEGER NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS seasonal_rates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id INTEGER NOT NULL,
			name TEXT,
			start_date TEXT NOT NULL,
			end_date TEXT NOT NULL,
			price_per_night REAL NOT NULL,
			FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS rate_overrides (
			room_id INTEGER NOT NULL,
			date TEXT NOT NULL,
			price REAL NOT NULL,
			note TEXT,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (room_id, date),
			FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS addons (
			id INTEGER PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			unit_price REAL NOT NULL DEFAULT 0,
			pricing_policy TEXT NOT NULL DEFAULT 'per_booking',
			max_quantity INTEGER NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS blocked_dates (
			room_id INTEGER NOT NULL,
			date TEXT NOT NULL,
			reason TEXT,
			source TEXT NOT NULL DEFAULT 'config',
			PRIMARY KEY (room_id, date),
			FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			reference TEXT UNIQUE NOT NULL,
			tenant_id TEXT NOT NULL,
			room_id INTEGER NOT NULL,
			room_name TEXT NOT NULL,
			guest_name TEXT NOT NULL,
			guest_email TEXT,
			guest_phone TEXT,
			guests INTEGER NOT NULL DEFAULT 1,
			check_in TEXT NOT NULL,
			check_out TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'confirmed',
			currency TEXT NOT NULL DEFAULT 'EUR',
			room_total REAL NOT NULL DEFAULT 0,
			addons_total REAL NOT NULL DEFAULT 0,
			total REAL NOT NULL DEFAULT 0,
			comment TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			cancelled_at DATETIME,
			version INTEGER NOT NULL DEFAULT 1,
			FOREIGN KEY (room_id) REFERENCES rooms(id)
		)`,

		`CREATE TABLE IF NOT EXISTS booking_nights (
			booking_id INTEGER NOT NULL,
			room_id INTEGER NOT NULL,
			night TEXT NOT NULL,
			base_price REAL NOT NULL,
			effective_price REAL NOT NULL,
			override_price REAL,
			final_price REAL NOT NULL,
			active BOOLEAN NOT NULL DEFAULT 1,
			PRIMARY KEY (booking_id, night),
			FOREIGN KEY (booking_id) REFERENCES bookings(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS booking_addons (
			booking_id INTEGER NOT NULL,
			addon_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			unit_price REAL NOT NULL,
			pricing_policy TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			total REAL NOT NULL,
			PRIMARY KEY (booking_id, addon_id),
			FOREIGN KEY (booking_id) REFERENCES bookings(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_rooms_tenant ON rooms(tenant_id, is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_seasonal_rates_room ON seasonal_rates(room_id, start_date)`,
		`CREATE INDEX IF NOT EXISTS idx_addons_tenant ON addons(tenant_id, is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_tenant_dates ON bookings(tenant_id, check_in, check_out)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_room_status ON bookings(room_id, status)`,
		// One active booking per room and night.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_booking_nights_room_night ON booking_nights(room_id, night) WHERE active = 1`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func (db *DB) Close() error {
	return db.DB.Close()
}
