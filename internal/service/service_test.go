package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"campnest/internal/config"
	"campnest/internal/database"
	"campnest/internal/events"
	"campnest/internal/models"
	"campnest/internal/payments"
)

// stubProvider is an in-memory checkout provider.
type stubProvider struct {
	mu        sync.Mutex
	sessions  map[string]*payments.Session
	created   []payments.CreateSessionParams
	nextID    int
	createErr error
	getErr    error
}

func newStubProvider() *stubProvider {
	return &stubProvider{sessions: make(map[string]*payments.Session)}
}

func (p *stubProvider) CreateCheckoutSession(ctx context.Context, params payments.CreateSessionParams) (*payments.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return nil, p.createErr
	}
	p.created = append(p.created, params)
	p.nextID++
	session := &payments.Session{
		ID:               fmt.Sprintf("cs_test_%d", p.nextID),
		URL:              fmt.Sprintf("https://pay.test/cs_test_%d", p.nextID),
		Status:           payments.SessionStatusOpen,
		PaymentStatus:    payments.PaymentStatusUnpaid,
		AmountTotalCents: params.AmountCents,
		Currency:         params.Currency,
		Metadata:         params.Metadata,
	}
	p.sessions[session.ID] = session
	return session, nil
}

func (p *stubProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*payments.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.getErr != nil {
		return nil, p.getErr
	}
	session, ok := p.sessions[sessionID]
	if !ok {
		return nil, payments.ErrSessionNotFound
	}
	return session, nil
}

// addPaidSession registers a session that the provider reports as paid.
func (p *stubProvider) addPaidSession(sessionID string, quote *models.Quote) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[sessionID] = &payments.Session{
		ID:               sessionID,
		Status:           payments.SessionStatusComplete,
		PaymentStatus:    payments.PaymentStatusPaid,
		AmountTotalCents: quote.TotalPriceCents,
		Currency:         "usd",
		Metadata:         buildSessionMetadata(quote),
	}
}

func (p *stubProvider) markPaid(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if session, ok := p.sessions[sessionID]; ok {
		session.Status = payments.SessionStatusComplete
		session.PaymentStatus = payments.PaymentStatusPaid
	}
}

type stubScheduler struct {
	mu       sync.Mutex
	enqueued []string
	err      error
}

func (s *stubScheduler) EnqueueSession(ctx context.Context, sessionID string, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.enqueued = append(s.enqueued, sessionID)
	return nil
}

type stubNotifier struct {
	mu          sync.Mutex
	conflicts   []string
	deadLetters []string
}

func (n *stubNotifier) NotifyPaymentConflict(sessionID string, userID int64, campsiteID *int64, start, end time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.conflicts = append(n.conflicts, sessionID)
	return nil
}

func (n *stubNotifier) NotifyDeadLetter(sessionID string, lastError string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deadLetters = append(n.deadLetters, sessionID)
	return nil
}

type fixture struct {
	db           *database.DB
	provider     *stubProvider
	scheduler    *stubScheduler
	notifier     *stubNotifier
	bus          *events.EventBus
	alerts       *AlertService
	booking      *BookingService
	availability *AvailabilityService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.Nop()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	provider := newStubProvider()
	scheduler := &stubScheduler{}
	notifier := &stubNotifier{}
	bus := events.NewEventBus()
	alerts := NewAlertService(db, &logger)

	booking := NewBookingService(db, alerts, provider, bus, scheduler, notifier, nil, config.PaymentsConfig{
		SuccessURL: "https://campnest.test/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  "https://campnest.test/cancel",
		Currency:   "usd",
	}, &logger)

	return &fixture{
		db:           db,
		provider:     provider,
		scheduler:    scheduler,
		notifier:     notifier,
		bus:          bus,
		alerts:       alerts,
		booking:      booking,
		availability: NewAvailabilityService(db, nil, &logger),
	}
}

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse(models.DateFormat, value)
	require.NoError(t, err)
	return d
}

func seedCampground(t *testing.T, db *database.DB) *models.Campground {
	t.Helper()
	cg := &models.Campground{
		OwnerID:  1,
		Name:     "Pine Hollow",
		Location: "Bear Valley",
	}
	require.NoError(t, db.CreateCampground(context.Background(), cg))
	return cg
}

func seedCampsite(t *testing.T, db *database.DB, campgroundID, priceCents, capacity int64, available bool) *models.Campsite {
	t.Helper()
	site := &models.Campsite{
		CampgroundID:      campgroundID,
		Name:              fmt.Sprintf("Site %d-%d", campgroundID, priceCents),
		NightlyPriceCents: priceCents,
		Capacity:          capacity,
		IsAvailable:       available,
	}
	require.NoError(t, db.CreateCampsite(context.Background(), site))
	return site
}

func seedAlert(t *testing.T, db *database.DB, targetType string, targetID int64, title string, requiresAck bool) *models.SafetyAlert {
	t.Helper()
	now := time.Now().UTC()
	alert := &models.SafetyAlert{
		TargetType:  targetType,
		TargetID:    targetID,
		Title:       title,
		Severity:    "warning",
		StartsAt:    now.Add(-time.Hour),
		EndsAt:      now.Add(24 * time.Hour),
		IsPublic:    true,
		RequiresAck: requiresAck,
		CreatedBy:   1,
	}
	require.NoError(t, db.CreateAlert(context.Background(), alert))
	return alert
}

// seedConfirmedBooking persists a confirmed stay through the same path
// production uses.
func seedConfirmedBooking(t *testing.T, db *database.DB, userID, campgroundID int64, campsiteID *int64, start, end string, sessionID string) *models.Booking {
	t.Helper()
	startDate := mustDate(t, start)
	endDate := mustDate(t, end)
	nights, total, err := Price(5000, startDate, endDate)
	require.NoError(t, err)

	booking := &models.Booking{
		UserID:           userID,
		CampgroundID:     campgroundID,
		CampsiteID:       campsiteID,
		StartDate:        startDate,
		EndDate:          endDate,
		TotalDays:        int64(nights),
		TotalPriceCents:  total,
		GuestCount:       2,
		PaymentSessionID: &sessionID,
		Paid:             true,
		Status:           models.StatusConfirmed,
	}
	created, err := db.CreateConfirmedBooking(context.Background(), booking)
	require.NoError(t, err)
	require.True(t, created)
	return booking
}
