// Package worker settles checkout sessions in the background. Every
// created session gets a reconcile job; the worker re-reads the session
// from the provider and confirms, expires or reschedules it. This is
// how paid sessions whose users never returned from the payment page
// still become bookings.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"campnest/internal/config"
	"campnest/internal/database"
	"campnest/internal/domain"
	"campnest/internal/metrics"
	"campnest/internal/models"
	"campnest/internal/payments"
	"campnest/internal/service"
)

// Reconciler drains reconcile jobs from a local queue, a Redis list and
// the database, in that order. Redis is optional; the database poll is
// the backstop that makes every job eventually run.
type Reconciler struct {
	db          *database.DB
	provider    domain.CheckoutProvider
	confirmer   domain.PaymentConfirmer
	notifier    domain.ConflictNotifier
	redis       *redis.Client
	retryPolicy RetryPolicy

	queue         chan models.ReconcileJob
	redisQueueKey string
	deadLetterKey string
	settleDelay   time.Duration
	pollInterval  time.Duration
	batchSize     int
	logger        *zerolog.Logger
}

func NewReconciler(
	db *database.DB,
	provider domain.CheckoutProvider,
	confirmer domain.PaymentConfirmer,
	notifier domain.ConflictNotifier,
	redisClient *redis.Client,
	cfg config.WorkerConfig,
	logger *zerolog.Logger,
) *Reconciler {
	retry := RetryPolicy{
		MaxRetries:    cfg.MaxRetries,
		InitialDelay:  time.Duration(cfg.InitialDelaySeconds) * time.Second,
		MaxDelay:      time.Duration(cfg.MaxDelaySeconds) * time.Second,
		BackoffFactor: cfg.BackoffFactor,
	}
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	pollInterval := time.Duration(cfg.PollIntervalSeconds) * time.Second
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 20
	}
	if logger == nil {
		l := zerolog.Nop()
		logger = &l
	}

	return &Reconciler{
		db:            db,
		provider:      provider,
		confirmer:     confirmer,
		notifier:      notifier,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan models.ReconcileJob, 128),
		redisQueueKey: "reconcile:queue",
		deadLetterKey: "reconcile:deadletter",
		settleDelay:   time.Duration(cfg.SettleDelayMinutes) * time.Minute,
		pollInterval:  pollInterval,
		batchSize:     batchSize,
		logger:        logger,
	}
}

// EnqueueSession persists a reconcile job for a checkout session and
// schedules it via Redis or the in-memory queue. The job first runs
// after the settle delay, giving the customer time to pay.
func (w *Reconciler) EnqueueSession(ctx context.Context, sessionID string, userID int64) error {
	if sessionID == "" {
		return errors.New("session id is required")
	}

	job := models.ReconcileJob{
		SessionID: sessionID,
		UserID:    userID,
		Status:    models.JobPending,
	}
	if w.settleDelay > 0 {
		due := time.Now().Add(w.settleDelay)
		job.NextRetryAt = &due
	}

	if err := w.db.CreateReconcileJob(ctx, &job); err != nil {
		return err
	}

	if w.redis != nil {
		if err := w.pushRedis(ctx, job); err != nil {
			w.logger.Warn().Err(err).Str("session_id", sessionID).Msg("redis push failed, falling back to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- job:
	default:
		// Queue full; the database poll picks the job up when due.
	}

	return nil
}

// Start runs the settle loop until ctx is cancelled.
func (w *Reconciler) Start(ctx context.Context) {
	w.logger.Info().Msg("reconcile worker started")
	defer w.logger.Info().Msg("reconcile worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if job, ok := w.tryLocalQueue(); ok {
			w.processJob(ctx, &job)
			continue
		}

		if job, ok := w.tryRedis(ctx); ok {
			w.processJob(ctx, &job)
			continue
		}

		jobs, err := w.db.GetPendingReconcileJobs(ctx, w.batchSize)
		if err != nil {
			w.logger.Error().Err(err).Msg("failed to fetch pending reconcile jobs")
			w.sleep(ctx)
			continue
		}
		if len(jobs) == 0 {
			w.sleep(ctx)
			continue
		}

		for i := range jobs {
			w.processJob(ctx, &jobs[i])
		}
	}
}

func (w *Reconciler) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.pollInterval):
	}
}

func (w *Reconciler) tryLocalQueue() (models.ReconcileJob, bool) {
	select {
	case job := <-w.queue:
		return job, true
	default:
		return models.ReconcileJob{}, false
	}
}

func (w *Reconciler) tryRedis(ctx context.Context) (models.ReconcileJob, bool) {
	if w.redis == nil {
		return models.ReconcileJob{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return models.ReconcileJob{}, false
		}
		w.logger.Error().Err(err).Msg("redis BRPOP error")
		return models.ReconcileJob{}, false
	}
	if len(res) != 2 {
		return models.ReconcileJob{}, false
	}
	var job models.ReconcileJob
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		w.logger.Error().Err(err).Msg("failed to decode queued reconcile job")
		return models.ReconcileJob{}, false
	}
	return job, true
}

// processJob settles one session. Queue entries may arrive before the
// job is due; those are left for the database poll.
func (w *Reconciler) processJob(ctx context.Context, job *models.ReconcileJob) {
	if job.NextRetryAt != nil && time.Now().Before(*job.NextRetryAt) {
		return
	}

	session, err := w.provider.GetCheckoutSession(ctx, job.SessionID)
	if err != nil {
		if errors.Is(err, payments.ErrSessionNotFound) {
			w.failJob(ctx, job, err)
			return
		}
		w.retryOrFail(ctx, job, err)
		return
	}

	switch {
	case session.Paid():
		w.settle(ctx, job)
	case session.Expired():
		w.completeJob(ctx, job, "session expired unpaid")
		metrics.IncReconcile("expired")
	default:
		// Still open; look again once the session can no longer change.
		next := time.Now().Add(w.pollInterval * 4)
		if !session.ExpiresAt.IsZero() {
			next = session.ExpiresAt.Add(time.Minute)
		}
		if err := w.db.UpdateReconcileJobStatus(ctx, job.ID, models.JobPending, "", &next); err != nil {
			w.logger.Error().Err(err).Int64("job_id", job.ID).Msg("failed to reschedule reconcile job")
		}
		metrics.IncReconcile("pending")
	}
}

func (w *Reconciler) settle(ctx context.Context, job *models.ReconcileJob) {
	_, err := w.confirmer.ConfirmPayment(ctx, job.SessionID, job.UserID)
	switch {
	case err == nil:
		w.completeJob(ctx, job, "")
		metrics.IncReconcile("settled")
		w.logger.Info().Str("session_id", job.SessionID).Msg("paid session settled into booking")
	case errors.Is(err, service.ErrPaymentConflict):
		// The confirmer already alerted ops; retrying cannot help.
		w.completeJob(ctx, job, err.Error())
		metrics.IncReconcile("conflict")
	default:
		w.retryOrFail(ctx, job, err)
	}
}

func (w *Reconciler) completeJob(ctx context.Context, job *models.ReconcileJob, note string) {
	if err := w.db.UpdateReconcileJobStatus(ctx, job.ID, models.JobCompleted, note, nil); err != nil {
		w.logger.Error().Err(err).Int64("job_id", job.ID).Msg("failed to mark reconcile job completed")
	}
}

func (w *Reconciler) retryOrFail(ctx context.Context, job *models.ReconcileJob, cause error) {
	attempt := job.RetryCount + 1
	if attempt >= w.retryPolicy.MaxRetries {
		w.failJob(ctx, job, cause)
		return
	}

	nextTime := time.Now().Add(w.retryPolicy.NextDelay(attempt))
	if err := w.db.UpdateReconcileJobStatus(ctx, job.ID, models.JobRetry, cause.Error(), &nextTime); err != nil {
		w.logger.Error().Err(err).Int64("job_id", job.ID).Msg("failed to mark reconcile job for retry")
	}
	metrics.IncReconcile("retry")
}

func (w *Reconciler) failJob(ctx context.Context, job *models.ReconcileJob, cause error) {
	if err := w.db.UpdateReconcileJobStatus(ctx, job.ID, models.JobFailed, cause.Error(), nil); err != nil {
		w.logger.Error().Err(err).Int64("job_id", job.ID).Msg("failed to mark reconcile job failed")
	}
	w.pushDeadLetter(ctx, job)
	metrics.IncReconcile("failed")

	if w.notifier != nil {
		if err := w.notifier.NotifyDeadLetter(job.SessionID, cause.Error()); err != nil {
			w.logger.Error().Err(err).Str("session_id", job.SessionID).Msg("failed to notify ops about dead letter")
		}
	}
	w.logger.Error().
		Err(cause).
		Str("session_id", job.SessionID).
		Int("retry_count", job.RetryCount).
		Msg("reconcile job dead-lettered")
}

func (w *Reconciler) pushRedis(ctx context.Context, job models.ReconcileJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, w.redisQueueKey, data).Err()
}

func (w *Reconciler) pushDeadLetter(ctx context.Context, job *models.ReconcileJob) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(job)
	if err != nil {
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Int64("job_id", job.ID).Msg("failed to push dead letter")
	}
}
