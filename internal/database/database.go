package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// sqlite allows a single writer; one pooled connection avoids
	// SQLITE_BUSY under concurrent confirms and keeps :memory: databases
	// from splitting across connections.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{DB: db, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS campgrounds (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            owner_id INTEGER NOT NULL,
            name TEXT NOT NULL,
            location TEXT,
            description TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS campsites (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            campground_id INTEGER NOT NULL,
            name TEXT NOT NULL,
            nightly_price_cents INTEGER NOT NULL,
            capacity INTEGER NOT NULL DEFAULT 1,
            is_available BOOLEAN NOT NULL DEFAULT 1,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS safety_alerts (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            target_type TEXT NOT NULL,
            target_id INTEGER NOT NULL,
            title TEXT NOT NULL,
            severity TEXT NOT NULL DEFAULT 'info',
            starts_at DATETIME NOT NULL,
            ends_at DATETIME NOT NULL,
            is_public BOOLEAN NOT NULL DEFAULT 1,
            requires_ack BOOLEAN NOT NULL DEFAULT 0,
            created_by INTEGER NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS alert_acks (
            alert_id INTEGER NOT NULL,
            user_id INTEGER NOT NULL,
            acked_at DATETIME NOT NULL,
            PRIMARY KEY (alert_id, user_id)
        )`,
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id INTEGER NOT NULL,
            campground_id INTEGER NOT NULL,
            campsite_id INTEGER,
            start_date DATETIME NOT NULL,
            end_date DATETIME NOT NULL,
            total_days INTEGER NOT NULL,
            total_price_cents INTEGER NOT NULL,
            guest_count INTEGER NOT NULL DEFAULT 1,
            payment_session_id TEXT,
            paid BOOLEAN NOT NULL DEFAULT 0,
            status TEXT NOT NULL DEFAULT 'pending',
            version INTEGER NOT NULL DEFAULT 1,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS reconcile_jobs (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            session_id TEXT NOT NULL,
            user_id INTEGER NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            processed_at DATETIME,
            next_retry_at DATETIME
        )`,

		// One booking per checkout session, enforced by the store.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_payment_session
            ON bookings(payment_session_id) WHERE payment_session_id IS NOT NULL`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_campsite_dates ON bookings(campsite_id, start_date, end_date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_campground_id ON bookings(campground_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_user_id ON bookings(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_campsites_campground_id ON campsites(campground_id)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_target ON safety_alerts(target_type, target_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reconcile_status ON reconcile_jobs(status, next_retry_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}
