package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"campnest/internal/models"
)

func (db *DB) CreateCampsite(ctx context.Context, cs *models.Campsite) error {
	query := `INSERT INTO campsites (campground_id, name, nightly_price_cents, capacity, is_available, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		cs.CampgroundID, cs.Name, cs.NightlyPriceCents, cs.Capacity, cs.IsAvailable, now, now)
	if err != nil {
		return fmt.Errorf("failed to create campsite: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	cs.ID = id
	cs.CreatedAt = now
	cs.UpdatedAt = now

	return nil
}

// UpsertCampsite inserts or refreshes a campsite with a fixed id.
// Used by the seed loader.
func (db *DB) UpsertCampsite(ctx context.Context, cs *models.Campsite) error {
	query := `INSERT INTO campsites (id, campground_id, name, nightly_price_cents, capacity, is_available, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                  campground_id = excluded.campground_id,
                  name = excluded.name,
                  nightly_price_cents = excluded.nightly_price_cents,
                  capacity = excluded.capacity,
                  is_available = excluded.is_available,
                  updated_at = excluded.updated_at`
	now := time.Now()
	if _, err := db.ExecContext(ctx, query,
		cs.ID, cs.CampgroundID, cs.Name, cs.NightlyPriceCents, cs.Capacity, cs.IsAvailable, now, now); err != nil {
		return fmt.Errorf("failed to upsert campsite %d: %w", cs.ID, err)
	}
	return nil
}

func (db *DB) GetCampsite(ctx context.Context, id int64) (*models.Campsite, error) {
	var cs models.Campsite
	query := `SELECT id, campground_id, name, nightly_price_cents, capacity, is_available, created_at, updated_at
              FROM campsites WHERE id = ?`
	err := db.QueryRowContext(ctx, query, id).Scan(
		&cs.ID, &cs.CampgroundID, &cs.Name, &cs.NightlyPriceCents, &cs.Capacity, &cs.IsAvailable,
		&cs.CreatedAt, &cs.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campsite: %w", err)
	}
	return &cs, nil
}

func (db *DB) ListCampsitesByCampground(ctx context.Context, campgroundID int64) ([]*models.Campsite, error) {
	query := `SELECT id, campground_id, name, nightly_price_cents, capacity, is_available, created_at, updated_at
              FROM campsites WHERE campground_id = ? ORDER BY id ASC`
	rows, err := db.QueryContext(ctx, query, campgroundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list campsites: %w", err)
	}
	defer rows.Close()

	var campsites []*models.Campsite
	for rows.Next() {
		cs := &models.Campsite{}
		err := rows.Scan(&cs.ID, &cs.CampgroundID, &cs.Name, &cs.NightlyPriceCents, &cs.Capacity,
			&cs.IsAvailable, &cs.CreatedAt, &cs.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campsite: %w", err)
		}
		campsites = append(campsites, cs)
	}
	return campsites, rows.Err()
}

func (db *DB) SetCampsiteAvailability(ctx context.Context, id int64, available bool) error {
	query := `UPDATE campsites SET is_available = ?, updated_at = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query, available, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update campsite availability: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
