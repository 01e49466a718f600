package service

import (
	"context"
	"errors"

	"campnest/internal/database"
	"campnest/internal/events"
	"campnest/internal/metrics"
	"campnest/internal/models"
)

// ConfirmPayment turns a paid checkout session into a confirmed booking.
// It is the only code path that persists a booking, and it is idempotent
// per session: every successful call for the same session returns the
// same booking.
func (s *BookingService) ConfirmPayment(ctx context.Context, sessionID string, requestingUserID int64) (*models.Booking, error) {
	session, err := s.provider.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !session.Paid() {
		return nil, ErrPaymentIncomplete
	}

	quote, err := parseSessionMetadata(session.Metadata)
	if err != nil {
		return nil, err
	}
	if quote.UserID != requestingUserID {
		return nil, ErrForbidden
	}

	// Replays of an already settled session return the stored booking
	// before any re-validation: the money and the booking both exist.
	existing, err := s.repo.GetBookingByPaymentSession(ctx, sessionID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	if err := s.revalidateTargets(ctx, quote); err != nil {
		if errors.Is(err, ErrPaymentConflict) {
			s.reportConflict(ctx, sessionID, quote)
		}
		return nil, err
	}

	booking := &models.Booking{
		UserID:           quote.UserID,
		CampgroundID:     quote.CampgroundID,
		CampsiteID:       quote.CampsiteID,
		StartDate:        quote.StartDate,
		EndDate:          quote.EndDate,
		TotalDays:        quote.Nights,
		TotalPriceCents:  quote.TotalPriceCents,
		GuestCount:       quote.GuestCount,
		PaymentSessionID: &sessionID,
		Paid:             true,
		Status:           models.StatusConfirmed,
	}

	created, err := s.repo.CreateConfirmedBooking(ctx, booking)
	if err != nil {
		if errors.Is(err, database.ErrDateConflict) {
			s.reportConflict(ctx, sessionID, quote)
			return nil, ErrPaymentConflict
		}
		return nil, err
	}

	if created {
		s.cache.InvalidateCampground(ctx, booking.CampgroundID)
		s.publishBookingEvent(events.EventBookingConfirmed, booking, booking.UserID)
		metrics.IncBookingConfirmed()
		s.logger.Info().
			Int64("booking_id", booking.ID).
			Str("session_id", sessionID).
			Int64("user_id", booking.UserID).
			Msg("booking confirmed")
	}

	return booking, nil
}

// revalidateTargets re-checks what the quote checked, now that money has
// moved: the campground still exists and the campsite is still switched
// on. Date overlap is re-checked inside the booking insert transaction.
func (s *BookingService) revalidateTargets(ctx context.Context, quote *models.Quote) error {
	if quote.CampsiteID == nil {
		if _, err := s.repo.GetCampground(ctx, quote.CampgroundID); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return ErrPaymentConflict
			}
			return err
		}
		return nil
	}

	site, err := s.repo.GetCampsite(ctx, *quote.CampsiteID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrPaymentConflict
		}
		return err
	}
	if site.CampgroundID != quote.CampgroundID || !site.IsAvailable {
		return ErrPaymentConflict
	}
	return nil
}

// reportConflict records a paid session that cannot be honored. Nothing
// is refunded automatically; ops reconciles these by hand.
func (s *BookingService) reportConflict(ctx context.Context, sessionID string, quote *models.Quote) {
	logEvent := s.logger.Error().
		Str("session_id", sessionID).
		Int64("user_id", quote.UserID).
		Int64("campground_id", quote.CampgroundID).
		Time("start_date", quote.StartDate).
		Time("end_date", quote.EndDate).
		Int64("total_cents", quote.TotalPriceCents)
	if quote.CampsiteID != nil {
		logEvent = logEvent.Int64("campsite_id", *quote.CampsiteID)
	}
	logEvent.Msg("paid session cannot be honored, manual reconciliation required")

	if s.notifier != nil {
		if err := s.notifier.NotifyPaymentConflict(sessionID, quote.UserID, quote.CampsiteID, quote.StartDate, quote.EndDate); err != nil {
			s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to notify ops about payment conflict")
		}
	}

	if s.eventBus != nil {
		payload := events.ConflictEventPayload{
			SessionID:    sessionID,
			UserID:       quote.UserID,
			CampgroundID: quote.CampgroundID,
			CampsiteID:   quote.CampsiteID,
			StartDate:    quote.StartDate,
			EndDate:      quote.EndDate,
		}
		if err := s.eventBus.PublishJSON(events.EventPaymentConflict, payload); err != nil {
			s.logger.Error().Err(err).Str("session_id", sessionID).Msg("publish event error")
		}
	}
	metrics.IncPaymentConflict()
}
