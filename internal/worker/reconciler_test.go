package worker

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"campnest/internal/config"
	"campnest/internal/database"
	"campnest/internal/domain"
	"campnest/internal/models"
	"campnest/internal/payments"
	"campnest/internal/service"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "worker.db"), &logger)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type fakeProvider struct {
	sessions map[string]*payments.Session
	getErr   error
	getCalls int
}

func (p *fakeProvider) CreateCheckoutSession(ctx context.Context, params payments.CreateSessionParams) (*payments.Session, error) {
	return nil, errors.New("not used")
}

func (p *fakeProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*payments.Session, error) {
	p.getCalls++
	if p.getErr != nil {
		return nil, p.getErr
	}
	session, ok := p.sessions[sessionID]
	if !ok {
		return nil, payments.ErrSessionNotFound
	}
	return session, nil
}

type fakeConfirmer struct {
	err   error
	calls int
	last  string
}

func (c *fakeConfirmer) ConfirmPayment(ctx context.Context, sessionID string, requestingUserID int64) (*models.Booking, error) {
	c.calls++
	c.last = sessionID
	if c.err != nil {
		return nil, c.err
	}
	return &models.Booking{ID: 1, UserID: requestingUserID, Status: models.StatusConfirmed}, nil
}

type fakeNotifier struct {
	deadLetters []string
}

func (n *fakeNotifier) NotifyPaymentConflict(sessionID string, userID int64, campsiteID *int64, start, end time.Time) error {
	return nil
}

func (n *fakeNotifier) NotifyDeadLetter(sessionID string, lastError string) error {
	n.deadLetters = append(n.deadLetters, sessionID)
	return nil
}

func newTestReconciler(db *database.DB, provider *fakeProvider, confirmer *fakeConfirmer, notifier domain.ConflictNotifier, redisClient *redis.Client, cfg config.WorkerConfig) *Reconciler {
	return NewReconciler(db, provider, confirmer, notifier, redisClient, cfg, nil)
}

func loadJobState(t *testing.T, db *database.DB, id int64) (status string, retryCount int, nextRetry sql.NullTime, lastError sql.NullString) {
	t.Helper()
	row := db.QueryRow(`SELECT status, retry_count, next_retry_at, last_error FROM reconcile_jobs WHERE id = ?`, id)
	if err := row.Scan(&status, &retryCount, &nextRetry, &lastError); err != nil {
		t.Fatalf("load job: %v", err)
	}
	return status, retryCount, nextRetry, lastError
}

func paidSession(id string) *payments.Session {
	return &payments.Session{
		ID:            id,
		Status:        payments.SessionStatusComplete,
		PaymentStatus: payments.PaymentStatusPaid,
	}
}

func TestEnqueueSessionPersistsJob(t *testing.T) {
	db := newTestDB(t)
	worker := newTestReconciler(db, &fakeProvider{}, &fakeConfirmer{}, nil, nil,
		config.WorkerConfig{SettleDelayMinutes: 60})

	ctx := context.Background()
	if err := worker.EnqueueSession(ctx, "cs_new", 42); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	job, ok := worker.tryLocalQueue()
	if !ok {
		t.Fatalf("expected job in local queue")
	}
	if job.SessionID != "cs_new" || job.UserID != 42 {
		t.Fatalf("unexpected job: %+v", job)
	}
	if job.NextRetryAt == nil || job.NextRetryAt.Before(time.Now().Add(30*time.Minute)) {
		t.Fatalf("expected settle delay on first run, got %v", job.NextRetryAt)
	}

	status, retryCount, _, _ := loadJobState(t, db, job.ID)
	if status != models.JobPending {
		t.Fatalf("expected status=pending, got %s", status)
	}
	if retryCount != 0 {
		t.Fatalf("expected retry_count=0, got %d", retryCount)
	}

	if err := worker.EnqueueSession(ctx, "", 42); err == nil {
		t.Fatalf("expected error for empty session id")
	}
}

func TestProcessJobSettlesPaidSession(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{sessions: map[string]*payments.Session{"cs_paid": paidSession("cs_paid")}}
	confirmer := &fakeConfirmer{}
	worker := newTestReconciler(db, provider, confirmer, nil, nil, config.WorkerConfig{})

	ctx := context.Background()
	if err := worker.EnqueueSession(ctx, "cs_paid", 42); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	job, _ := worker.tryLocalQueue()
	worker.processJob(ctx, &job)

	if confirmer.calls != 1 || confirmer.last != "cs_paid" {
		t.Fatalf("expected one confirm call for cs_paid, got %d (%s)", confirmer.calls, confirmer.last)
	}
	status, _, _, _ := loadJobState(t, db, job.ID)
	if status != models.JobCompleted {
		t.Fatalf("expected status=completed, got %s", status)
	}
}

func TestProcessJobPaymentConflictCompletes(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{sessions: map[string]*payments.Session{"cs_conflict": paidSession("cs_conflict")}}
	confirmer := &fakeConfirmer{err: service.ErrPaymentConflict}
	worker := newTestReconciler(db, provider, confirmer, nil, nil, config.WorkerConfig{})

	ctx := context.Background()
	worker.EnqueueSession(ctx, "cs_conflict", 42)
	job, _ := worker.tryLocalQueue()
	worker.processJob(ctx, &job)

	// Retrying a conflicted session cannot help; ops owns it now.
	status, _, _, lastError := loadJobState(t, db, job.ID)
	if status != models.JobCompleted {
		t.Fatalf("expected status=completed, got %s", status)
	}
	if !lastError.Valid || lastError.String == "" {
		t.Fatalf("expected conflict recorded in last_error")
	}
}

func TestProcessJobExpiredSessionCompletes(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{sessions: map[string]*payments.Session{
		"cs_expired": {ID: "cs_expired", Status: payments.SessionStatusExpired, PaymentStatus: payments.PaymentStatusUnpaid},
	}}
	confirmer := &fakeConfirmer{}
	worker := newTestReconciler(db, provider, confirmer, nil, nil, config.WorkerConfig{})

	ctx := context.Background()
	worker.EnqueueSession(ctx, "cs_expired", 42)
	job, _ := worker.tryLocalQueue()
	worker.processJob(ctx, &job)

	if confirmer.calls != 0 {
		t.Fatalf("expected no confirm call for expired session")
	}
	status, _, _, _ := loadJobState(t, db, job.ID)
	if status != models.JobCompleted {
		t.Fatalf("expected status=completed, got %s", status)
	}
}

func TestProcessJobOpenSessionReschedules(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{sessions: map[string]*payments.Session{
		"cs_open": {
			ID:            "cs_open",
			Status:        payments.SessionStatusOpen,
			PaymentStatus: payments.PaymentStatusUnpaid,
			ExpiresAt:     time.Now().Add(25 * time.Minute),
		},
	}}
	confirmer := &fakeConfirmer{}
	worker := newTestReconciler(db, provider, confirmer, nil, nil, config.WorkerConfig{})

	ctx := context.Background()
	worker.EnqueueSession(ctx, "cs_open", 42)
	job, _ := worker.tryLocalQueue()
	worker.processJob(ctx, &job)

	if confirmer.calls != 0 {
		t.Fatalf("expected no confirm call for open session")
	}
	status, retryCount, nextRetry, _ := loadJobState(t, db, job.ID)
	if status != models.JobPending {
		t.Fatalf("expected status=pending, got %s", status)
	}
	if retryCount != 0 {
		t.Fatalf("a waiting customer is not a retry, got retry_count=%d", retryCount)
	}
	if !nextRetry.Valid || nextRetry.Time.Before(time.Now().Add(20*time.Minute)) {
		t.Fatalf("expected recheck after session expiry, got %v", nextRetry)
	}
}

func TestProcessJobRetriesOnProviderError(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{getErr: payments.ErrUpstream}
	worker := newTestReconciler(db, provider, &fakeConfirmer{}, nil, nil,
		config.WorkerConfig{MaxRetries: 3, InitialDelaySeconds: 1})

	ctx := context.Background()
	worker.EnqueueSession(ctx, "cs_flaky", 42)
	job, _ := worker.tryLocalQueue()
	worker.processJob(ctx, &job)

	status, retryCount, nextRetry, _ := loadJobState(t, db, job.ID)
	if status != models.JobRetry {
		t.Fatalf("expected status=retry, got %s", status)
	}
	if retryCount != 1 {
		t.Fatalf("expected retry_count=1, got %d", retryCount)
	}
	if !nextRetry.Valid || nextRetry.Time.Before(time.Now()) {
		t.Fatalf("expected next_retry_at in future, got %v", nextRetry)
	}
}

func TestProcessJobFailsAfterMaxRetries(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{getErr: payments.ErrUpstream}
	notifier := &fakeNotifier{}
	worker := newTestReconciler(db, provider, &fakeConfirmer{}, notifier, nil,
		config.WorkerConfig{MaxRetries: 1})

	ctx := context.Background()
	worker.EnqueueSession(ctx, "cs_doomed", 42)
	job, _ := worker.tryLocalQueue()
	worker.processJob(ctx, &job)

	status, _, _, lastError := loadJobState(t, db, job.ID)
	if status != models.JobFailed {
		t.Fatalf("expected status=failed, got %s", status)
	}
	if !lastError.Valid {
		t.Fatalf("expected last_error recorded")
	}
	if len(notifier.deadLetters) != 1 || notifier.deadLetters[0] != "cs_doomed" {
		t.Fatalf("expected dead letter notification, got %v", notifier.deadLetters)
	}
}

func TestProcessJobSessionGoneFailsImmediately(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{sessions: map[string]*payments.Session{}}
	notifier := &fakeNotifier{}
	worker := newTestReconciler(db, provider, &fakeConfirmer{}, notifier, nil,
		config.WorkerConfig{MaxRetries: 5})

	ctx := context.Background()
	worker.EnqueueSession(ctx, "cs_gone", 42)
	job, _ := worker.tryLocalQueue()
	worker.processJob(ctx, &job)

	status, _, _, _ := loadJobState(t, db, job.ID)
	if status != models.JobFailed {
		t.Fatalf("expected status=failed for unknown session, got %s", status)
	}
	if len(notifier.deadLetters) != 1 {
		t.Fatalf("expected dead letter notification")
	}
}

func TestProcessJobSkipsJobsNotDue(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{}
	worker := newTestReconciler(db, provider, &fakeConfirmer{}, nil, nil,
		config.WorkerConfig{SettleDelayMinutes: 60})

	ctx := context.Background()
	worker.EnqueueSession(ctx, "cs_early", 42)
	job, _ := worker.tryLocalQueue()
	worker.processJob(ctx, &job)

	if provider.getCalls != 0 {
		t.Fatalf("job not due yet, provider should not be called")
	}
	status, _, _, _ := loadJobState(t, db, job.ID)
	if status != models.JobPending {
		t.Fatalf("expected job untouched, got %s", status)
	}
}

func TestEnqueueSessionPrefersRedis(t *testing.T) {
	db := newTestDB(t)
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	worker := newTestReconciler(db, &fakeProvider{}, &fakeConfirmer{}, nil, client, config.WorkerConfig{})

	ctx := context.Background()
	if err := worker.EnqueueSession(ctx, "cs_redis", 42); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if _, ok := worker.tryLocalQueue(); ok {
		t.Fatalf("job should ride redis, not the local queue")
	}

	job, ok := worker.tryRedis(ctx)
	if !ok {
		t.Fatalf("expected job in redis queue")
	}
	if job.SessionID != "cs_redis" {
		t.Fatalf("unexpected session id %s", job.SessionID)
	}
}

func TestDeadLetterLandsInRedis(t *testing.T) {
	db := newTestDB(t)
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	provider := &fakeProvider{getErr: payments.ErrUpstream}
	worker := newTestReconciler(db, provider, &fakeConfirmer{}, nil, client,
		config.WorkerConfig{MaxRetries: 1})

	ctx := context.Background()
	worker.EnqueueSession(ctx, "cs_dead", 42)
	job, ok := worker.tryRedis(ctx)
	if !ok {
		t.Fatalf("expected job in redis queue")
	}
	worker.processJob(ctx, &job)

	length, err := client.LLen(ctx, worker.deadLetterKey).Result()
	if err != nil {
		t.Fatalf("llen: %v", err)
	}
	if length != 1 {
		t.Fatalf("expected 1 dead letter, got %d", length)
	}
}

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, BackoffFactor: 2, MaxDelay: 5 * time.Second}
	d1 := policy.NextDelay(1)
	d2 := policy.NextDelay(2)
	d3 := policy.NextDelay(5)

	if d1 != time.Second {
		t.Fatalf("attempt1 expected 1s, got %s", d1)
	}
	if d2 != 2*time.Second {
		t.Fatalf("attempt2 expected 2s, got %s", d2)
	}
	if d3 != 5*time.Second {
		t.Fatalf("attempt5 expected capped 5s, got %s", d3)
	}

	zero := RetryPolicy{}
	if zero.NextDelay(0) <= 0 {
		t.Fatalf("zero policy must still return a positive delay")
	}
}
