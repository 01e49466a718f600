// Package service implements the booking engine: quoting, hosted
// checkout, payment confirmation and the booking lifecycle. Services
// hold no state of their own; everything durable lives behind
// domain.Repository.
package service

import (
	"github.com/rs/zerolog"

	"campnest/internal/config"
	"campnest/internal/domain"
	"campnest/internal/events"
	"campnest/internal/models"
	"campnest/internal/repository"
)

// BookingService drives a booking from quote to completion.
type BookingService struct {
	repo      domain.Repository
	alerts    *AlertService
	provider  domain.CheckoutProvider
	eventBus  domain.EventPublisher
	scheduler domain.ReconcileScheduler
	notifier  domain.ConflictNotifier
	cache     *repository.AvailabilityCache
	payments  config.PaymentsConfig
	logger    *zerolog.Logger
}

func NewBookingService(
	repo domain.Repository,
	alerts *AlertService,
	provider domain.CheckoutProvider,
	eventBus domain.EventPublisher,
	scheduler domain.ReconcileScheduler,
	notifier domain.ConflictNotifier,
	cache *repository.AvailabilityCache,
	paymentsCfg config.PaymentsConfig,
	logger *zerolog.Logger,
) *BookingService {
	return &BookingService{
		repo:      repo,
		alerts:    alerts,
		provider:  provider,
		eventBus:  eventBus,
		scheduler: scheduler,
		notifier:  notifier,
		cache:     cache,
		payments:  paymentsCfg,
		logger:    logger,
	}
}

// SetScheduler attaches the reconcile scheduler after construction. The
// worker confirms payments through this service while the service
// enqueues sessions to the worker, so one of the two has to be wired
// late. Call before serving traffic.
func (s *BookingService) SetScheduler(scheduler domain.ReconcileScheduler) {
	s.scheduler = scheduler
}

func (s *BookingService) publishBookingEvent(eventType string, booking *models.Booking, changedBy int64) {
	if s.eventBus == nil {
		return
	}
	sessionID := ""
	if booking.PaymentSessionID != nil {
		sessionID = *booking.PaymentSessionID
	}
	payload := events.BookingEventPayload{
		BookingID:       booking.ID,
		UserID:          booking.UserID,
		CampgroundID:    booking.CampgroundID,
		CampsiteID:      booking.CampsiteID,
		StartDate:       booking.StartDate,
		EndDate:         booking.EndDate,
		TotalPriceCents: booking.TotalPriceCents,
		Status:          booking.Status,
		SessionID:       sessionID,
		ChangedBy:       changedBy,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}
