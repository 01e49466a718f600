package models

import "time"

// ReconcileJob tracks a checkout session the reconciliation worker has
// to settle: sessions whose redirect never came back are re-checked
// against the provider after a delay.
type ReconcileJob struct {
	ID          int64      `json:"id"`
	SessionID   string     `json:"session_id"`
	UserID      int64      `json:"user_id"`
	Status      string     `json:"status"`
	RetryCount  int        `json:"retry_count"`
	LastError   *string    `json:"last_error"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
	NextRetryAt *time.Time `json:"next_retry_at"`
}
