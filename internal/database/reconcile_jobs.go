package database

import (
	"context"
	"fmt"
	"time"

	"campnest/internal/models"
)

func (db *DB) CreateReconcileJob(ctx context.Context, job *models.ReconcileJob) error {
	query := `INSERT INTO reconcile_jobs (session_id, user_id, status, retry_count, last_error, created_at, next_retry_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		job.SessionID,
		job.UserID,
		job.Status,
		job.RetryCount,
		job.LastError,
		now,
		job.NextRetryAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reconcile job: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	job.ID = id
	job.CreatedAt = now

	return nil
}

func (db *DB) GetPendingReconcileJobs(ctx context.Context, limit int) ([]models.ReconcileJob, error) {
	query := `SELECT id, session_id, user_id, status, retry_count, last_error, created_at, processed_at, next_retry_at
              FROM reconcile_jobs
              WHERE status IN ('pending', 'retry') AND (next_retry_at IS NULL OR next_retry_at <= ?)
              ORDER BY created_at ASC LIMIT ?`
	rows, err := db.QueryContext(ctx, query, time.Now(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending reconcile jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.ReconcileJob
	for rows.Next() {
		var j models.ReconcileJob
		err := rows.Scan(
			&j.ID, &j.SessionID, &j.UserID, &j.Status, &j.RetryCount, &j.LastError, &j.CreatedAt, &j.ProcessedAt, &j.NextRetryAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reconcile job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (db *DB) UpdateReconcileJobStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error {
	var query string
	var args []interface{}
	now := time.Now()

	switch status {
	case models.JobRetry:
		query = `UPDATE reconcile_jobs SET status = ?, last_error = ?, next_retry_at = ?, retry_count = retry_count + 1 WHERE id = ?`
		args = []interface{}{status, errMsg, nextRetryAt, id}
	case models.JobCompleted, models.JobFailed:
		query = `UPDATE reconcile_jobs SET status = ?, last_error = ?, next_retry_at = ?, processed_at = ? WHERE id = ?`
		args = []interface{}{status, errMsg, nextRetryAt, &now, id}
	default:
		query = `UPDATE reconcile_jobs SET status = ?, last_error = ?, next_retry_at = ? WHERE id = ?`
		args = []interface{}{status, errMsg, nextRetryAt, id}
	}

	_, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update reconcile job status: %w", err)
	}
	return nil
}

func (db *DB) GetFailedReconcileJobs(ctx context.Context) ([]models.ReconcileJob, error) {
	query := `SELECT id, session_id, user_id, status, retry_count, last_error, created_at, processed_at, next_retry_at
              FROM reconcile_jobs WHERE status = 'failed' ORDER BY created_at DESC`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get failed reconcile jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.ReconcileJob
	for rows.Next() {
		var j models.ReconcileJob
		err := rows.Scan(
			&j.ID, &j.SessionID, &j.UserID, &j.Status, &j.RetryCount, &j.LastError, &j.CreatedAt, &j.ProcessedAt, &j.NextRetryAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reconcile job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
