package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campnest/internal/database"
	"campnest/internal/events"
	"campnest/internal/models"
	"campnest/internal/payments"
)

func paidQuote(t *testing.T, cgID int64, siteID *int64, userID int64) *models.Quote {
	t.Helper()
	return &models.Quote{
		UserID:           userID,
		CampgroundID:     cgID,
		CampsiteID:       siteID,
		StartDate:        mustDate(t, "2024-06-01"),
		EndDate:          mustDate(t, "2024-06-04"),
		Nights:           3,
		NightlyRateCents: 5000,
		TotalPriceCents:  15000,
		GuestCount:       2,
	}
}

func TestConfirmPayment(t *testing.T) {
	f := newFixture(t)
	cg := seedCampground(t, f.db)
	site := seedCampsite(t, f.db, cg.ID, 5000, 4, true)
	f.provider.addPaidSession("cs_paid_1", paidQuote(t, cg.ID, &site.ID, 42))

	var confirmed []*events.Event
	f.bus.Subscribe(events.EventBookingConfirmed, func(event *events.Event) error {
		confirmed = append(confirmed, event)
		return nil
	})

	booking, err := f.booking.ConfirmPayment(context.Background(), "cs_paid_1", 42)
	require.NoError(t, err)

	assert.NotZero(t, booking.ID)
	assert.Equal(t, models.StatusConfirmed, booking.Status)
	assert.True(t, booking.Paid)
	require.NotNil(t, booking.PaymentSessionID)
	assert.Equal(t, "cs_paid_1", *booking.PaymentSessionID)
	assert.Equal(t, int64(15000), booking.TotalPriceCents)
	assert.Equal(t, int64(3), booking.TotalDays)

	stored, err := f.db.GetBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, stored.Status)

	assert.Len(t, confirmed, 1)
}

func TestConfirmPaymentIdempotent(t *testing.T) {
	f := newFixture(t)
	cg := seedCampground(t, f.db)
	site := seedCampsite(t, f.db, cg.ID, 5000, 4, true)
	f.provider.addPaidSession("cs_paid_1", paidQuote(t, cg.ID, &site.ID, 42))

	first, err := f.booking.ConfirmPayment(context.Background(), "cs_paid_1", 42)
	require.NoError(t, err)

	second, err := f.booking.ConfirmPayment(context.Background(), "cs_paid_1", 42)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	bookings, err := f.db.ListUserBookings(context.Background(), 42)
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
}

func TestConfirmPaymentSessionNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.booking.ConfirmPayment(context.Background(), "cs_unknown", 42)
	assert.ErrorIs(t, err, payments.ErrSessionNotFound)
}

func TestConfirmPaymentUnpaid(t *testing.T) {
	f := newFixture(t)
	cg := seedCampground(t, f.db)
	site := seedCampsite(t, f.db, cg.ID, 5000, 4, true)

	session, err := f.booking.CreateCheckout(context.Background(), QuoteRequest{
		UserID:       42,
		CampgroundID: cg.ID,
		CampsiteID:   &site.ID,
		StartDate:    mustDate(t, "2024-06-01"),
		EndDate:      mustDate(t, "2024-06-04"),
		GuestCount:   2,
	})
	require.NoError(t, err)

	_, err = f.booking.ConfirmPayment(context.Background(), session.SessionID, 42)
	assert.ErrorIs(t, err, ErrPaymentIncomplete)

	_, err = f.db.GetBookingByPaymentSession(context.Background(), session.SessionID)
	assert.ErrorIs(t, err, database.ErrNotFound, "an unpaid session never persists a booking")
}

func TestConfirmPaymentForbidden(t *testing.T) {
	f := newFixture(t)
	cg := seedCampground(t, f.db)
	site := seedCampsite(t, f.db, cg.ID, 5000, 4, true)
	f.provider.addPaidSession("cs_paid_1", paidQuote(t, cg.ID, &site.ID, 42))

	_, err := f.booking.ConfirmPayment(context.Background(), "cs_paid_1", 7)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.db.GetBookingByPaymentSession(context.Background(), "cs_paid_1")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestConfirmPaymentDateConflict(t *testing.T) {
	f := newFixture(t)
	cg := seedCampground(t, f.db)
	site := seedCampsite(t, f.db, cg.ID, 5000, 4, true)

	// Someone else settled an overlapping stay first.
	seedConfirmedBooking(t, f.db, 7, cg.ID, &site.ID, "2024-06-02", "2024-06-05", "cs_winner")
	f.provider.addPaidSession("cs_loser", paidQuote(t, cg.ID, &site.ID, 42))

	var conflicts []*events.Event
	f.bus.Subscribe(events.EventPaymentConflict, func(event *events.Event) error {
		conflicts = append(conflicts, event)
		return nil
	})

	_, err := f.booking.ConfirmPayment(context.Background(), "cs_loser", 42)
	assert.ErrorIs(t, err, ErrPaymentConflict)

	// The paid session is flagged for ops, never silently dropped.
	assert.Equal(t, []string{"cs_loser"}, f.notifier.conflicts)
	assert.Len(t, conflicts, 1)

	_, err = f.db.GetBookingByPaymentSession(context.Background(), "cs_loser")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestConfirmPaymentCampsiteDisabledAfterPayment(t *testing.T) {
	f := newFixture(t)
	cg := seedCampground(t, f.db)
	site := seedCampsite(t, f.db, cg.ID, 5000, 4, true)
	f.provider.addPaidSession("cs_paid_1", paidQuote(t, cg.ID, &site.ID, 42))

	require.NoError(t, f.db.SetCampsiteAvailability(context.Background(), site.ID, false))

	_, err := f.booking.ConfirmPayment(context.Background(), "cs_paid_1", 42)
	assert.ErrorIs(t, err, ErrPaymentConflict)
	assert.Equal(t, []string{"cs_paid_1"}, f.notifier.conflicts)
}

func TestConfirmPaymentReplayBeatsRevalidation(t *testing.T) {
	f := newFixture(t)
	cg := seedCampground(t, f.db)
	site := seedCampsite(t, f.db, cg.ID, 5000, 4, true)
	f.provider.addPaidSession("cs_paid_1", paidQuote(t, cg.ID, &site.ID, 42))

	first, err := f.booking.ConfirmPayment(context.Background(), "cs_paid_1", 42)
	require.NoError(t, err)

	// The campsite is disabled afterwards; replays still return the
	// settled booking rather than a conflict.
	require.NoError(t, f.db.SetCampsiteAvailability(context.Background(), site.ID, false))

	second, err := f.booking.ConfirmPayment(context.Background(), "cs_paid_1", 42)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Empty(t, f.notifier.conflicts)
}

func TestConfirmPaymentCampgroundOnly(t *testing.T) {
	f := newFixture(t)
	cg := seedCampground(t, f.db)
	seedCampsite(t, f.db, cg.ID, 5000, 4, true)
	f.provider.addPaidSession("cs_paid_1", paidQuote(t, cg.ID, nil, 42))

	booking, err := f.booking.ConfirmPayment(context.Background(), "cs_paid_1", 42)
	require.NoError(t, err)
	assert.Nil(t, booking.CampsiteID)
	assert.Equal(t, models.StatusConfirmed, booking.Status)
}

func TestConfirmPaymentWholeFlow(t *testing.T) {
	f := newFixture(t)
	cg := seedCampground(t, f.db)
	site := seedCampsite(t, f.db, cg.ID, 5000, 4, true)

	session, err := f.booking.CreateCheckout(context.Background(), QuoteRequest{
		UserID:       42,
		CampgroundID: cg.ID,
		CampsiteID:   &site.ID,
		StartDate:    mustDate(t, "2024-06-01"),
		EndDate:      mustDate(t, "2024-06-04"),
		GuestCount:   2,
	})
	require.NoError(t, err)

	f.provider.markPaid(session.SessionID)

	booking, err := f.booking.ConfirmPayment(context.Background(), session.SessionID, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), booking.UserID)
	assert.Equal(t, int64(15000), booking.TotalPriceCents)
	require.NotNil(t, booking.PaymentSessionID)
	assert.Equal(t, session.SessionID, *booking.PaymentSessionID)
}
