package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"campnest/internal/models"
)

func (db *DB) CreateAlert(ctx context.Context, alert *models.SafetyAlert) error {
	query := `INSERT INTO safety_alerts (target_type, target_id, title, severity, starts_at, ends_at,
                  is_public, requires_ack, created_by, created_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		alert.TargetType, alert.TargetID, alert.Title, alert.Severity,
		alert.StartsAt, alert.EndsAt, alert.IsPublic, alert.RequiresAck, alert.CreatedBy, now)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	alert.ID = id
	alert.CreatedAt = now

	return nil
}

func (db *DB) GetAlert(ctx context.Context, id int64) (*models.SafetyAlert, error) {
	var a models.SafetyAlert
	query := `SELECT id, target_type, target_id, title, severity, starts_at, ends_at,
                     is_public, requires_ack, created_by, created_at
              FROM safety_alerts WHERE id = ?`
	err := db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.TargetType, &a.TargetID, &a.Title, &a.Severity, &a.StartsAt, &a.EndsAt,
		&a.IsPublic, &a.RequiresAck, &a.CreatedBy, &a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return &a, nil
}

func (db *DB) ListAlertsByTarget(ctx context.Context, targetType string, targetID int64) ([]*models.SafetyAlert, error) {
	query := `SELECT id, target_type, target_id, title, severity, starts_at, ends_at,
                     is_public, requires_ack, created_by, created_at
              FROM safety_alerts WHERE target_type = ? AND target_id = ? ORDER BY starts_at ASC`
	rows, err := db.QueryContext(ctx, query, targetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.SafetyAlert
	for rows.Next() {
		a := &models.SafetyAlert{}
		err := rows.Scan(&a.ID, &a.TargetType, &a.TargetID, &a.Title, &a.Severity, &a.StartsAt, &a.EndsAt,
			&a.IsPublic, &a.RequiresAck, &a.CreatedBy, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// AcknowledgeAlert records that a user has read an alert. Returns false
// when the acknowledgement was already present; repeat calls are harmless.
func (db *DB) AcknowledgeAlert(ctx context.Context, alertID, userID int64) (bool, error) {
	query := `INSERT OR IGNORE INTO alert_acks (alert_id, user_id, acked_at) VALUES (?, ?, ?)`
	result, err := db.ExecContext(ctx, query, alertID, userID, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// ListUserAcknowledgements returns the ids of all alerts the user has
// acknowledged. Acknowledgements are keyed by user id alone.
func (db *DB) ListUserAcknowledgements(ctx context.Context, userID int64) (map[int64]time.Time, error) {
	query := `SELECT alert_id, acked_at FROM alert_acks WHERE user_id = ?`
	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list acknowledgements: %w", err)
	}
	defer rows.Close()

	acked := make(map[int64]time.Time)
	for rows.Next() {
		var alertID int64
		var at time.Time
		if err := rows.Scan(&alertID, &at); err != nil {
			return nil, fmt.Errorf("failed to scan acknowledgement: %w", err)
		}
		acked[alertID] = at
	}
	return acked, rows.Err()
}
