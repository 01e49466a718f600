package domain

import (
	"context"
	"time"

	"campnest/internal/models"
	"campnest/internal/payments"
)

// Repository is the persistence surface the services depend on.
// *database.DB satisfies it.
type Repository interface {
	GetCampground(ctx context.Context, id int64) (*models.Campground, error)
	ListCampgrounds(ctx context.Context) ([]*models.Campground, error)

	GetCampsite(ctx context.Context, id int64) (*models.Campsite, error)
	ListCampsitesByCampground(ctx context.Context, campgroundID int64) ([]*models.Campsite, error)

	GetAlert(ctx context.Context, id int64) (*models.SafetyAlert, error)
	ListAlertsByTarget(ctx context.Context, targetType string, targetID int64) ([]*models.SafetyAlert, error)
	AcknowledgeAlert(ctx context.Context, alertID, userID int64) (bool, error)
	ListUserAcknowledgements(ctx context.Context, userID int64) (map[int64]time.Time, error)

	CreateConfirmedBooking(ctx context.Context, booking *models.Booking) (bool, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingByPaymentSession(ctx context.Context, sessionID string) (*models.Booking, error)
	UpdateBookingStatusWithVersion(ctx context.Context, id, fromVersion int64, status string) error
	ListUserBookings(ctx context.Context, userID int64) ([]*models.Booking, error)
	ListCampgroundBookings(ctx context.Context, campgroundID int64, start, end time.Time) ([]*models.Booking, error)
	ListBookingsInRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error)
	CountOverlappingBookings(ctx context.Context, campsiteID int64, start, end time.Time) (int, error)
}

// EventPublisher fans booking events out to in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload any) error
}

// CheckoutProvider talks to the hosted payment provider.
type CheckoutProvider interface {
	CreateCheckoutSession(ctx context.Context, params payments.CreateSessionParams) (*payments.Session, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*payments.Session, error)
}

// ConflictNotifier alerts the operations channel when money moved but the
// range could not be reserved.
type ConflictNotifier interface {
	NotifyPaymentConflict(sessionID string, userID int64, campsiteID *int64, start, end time.Time) error
	NotifyDeadLetter(sessionID string, lastError string) error
}

// ReconcileScheduler queues a checkout session for background settlement.
type ReconcileScheduler interface {
	EnqueueSession(ctx context.Context, sessionID string, userID int64) error
}

// PaymentConfirmer settles a paid checkout session into a booking.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, sessionID string, requestingUserID int64) (*models.Booking, error)
}
