package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"campnest/internal/models"
)

func (db *DB) CreateCampground(ctx context.Context, cg *models.Campground) error {
	query := `INSERT INTO campgrounds (owner_id, name, location, description, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query, cg.OwnerID, cg.Name, cg.Location, cg.Description, now, now)
	if err != nil {
		return fmt.Errorf("failed to create campground: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	cg.ID = id
	cg.CreatedAt = now
	cg.UpdatedAt = now

	return nil
}

// UpsertCampground inserts or refreshes a campground with a fixed id.
// Used by the seed loader; runtime creation goes through CreateCampground.
func (db *DB) UpsertCampground(ctx context.Context, cg *models.Campground) error {
	query := `INSERT INTO campgrounds (id, owner_id, name, location, description, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                  owner_id = excluded.owner_id,
                  name = excluded.name,
                  location = excluded.location,
                  description = excluded.description,
                  updated_at = excluded.updated_at`
	now := time.Now()
	if _, err := db.ExecContext(ctx, query, cg.ID, cg.OwnerID, cg.Name, cg.Location, cg.Description, now, now); err != nil {
		return fmt.Errorf("failed to upsert campground %d: %w", cg.ID, err)
	}
	return nil
}

func (db *DB) GetCampground(ctx context.Context, id int64) (*models.Campground, error) {
	var cg models.Campground
	query := `SELECT id, owner_id, name, location, description, created_at, updated_at
              FROM campgrounds WHERE id = ?`
	err := db.QueryRowContext(ctx, query, id).Scan(
		&cg.ID, &cg.OwnerID, &cg.Name, &cg.Location, &cg.Description, &cg.CreatedAt, &cg.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campground: %w", err)
	}
	return &cg, nil
}

func (db *DB) ListCampgrounds(ctx context.Context) ([]*models.Campground, error) {
	query := `SELECT id, owner_id, name, location, description, created_at, updated_at
              FROM campgrounds ORDER BY name ASC`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list campgrounds: %w", err)
	}
	defer rows.Close()

	var campgrounds []*models.Campground
	for rows.Next() {
		cg := &models.Campground{}
		err := rows.Scan(&cg.ID, &cg.OwnerID, &cg.Name, &cg.Location, &cg.Description, &cg.CreatedAt, &cg.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campground: %w", err)
		}
		campgrounds = append(campgrounds, cg)
	}
	return campgrounds, rows.Err()
}
