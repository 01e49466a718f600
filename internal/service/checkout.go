package service

import (
	"context"
	"fmt"

	"campnest/internal/events"
	"campnest/internal/metrics"
	"campnest/internal/models"
	"campnest/internal/payments"
)

// CreateCheckout quotes the request and opens a hosted checkout session
// for it. The caller is redirected to the returned URL; the booking is
// persisted only when the payment confirms.
func (s *BookingService) CreateCheckout(ctx context.Context, req QuoteRequest) (*models.CheckoutSession, error) {
	quote, err := s.Quote(ctx, req)
	if err != nil {
		return nil, err
	}

	campground, err := s.repo.GetCampground(ctx, quote.CampgroundID)
	if err != nil {
		return nil, err
	}

	session, err := s.provider.CreateCheckoutSession(ctx, payments.CreateSessionParams{
		AmountCents: quote.TotalPriceCents,
		Currency:    s.payments.Currency,
		ProductName: fmt.Sprintf("%s, %d nights", campground.Name, quote.Nights),
		SuccessURL:  s.payments.SuccessURL,
		CancelURL:   s.payments.CancelURL,
		Metadata:    buildSessionMetadata(quote),
	})
	if err != nil {
		return nil, err
	}

	// The reconcile worker settles this session even if the user never
	// comes back from the payment page.
	if s.scheduler != nil {
		if err := s.scheduler.EnqueueSession(ctx, session.ID, quote.UserID); err != nil {
			s.logger.Warn().Err(err).Str("session_id", session.ID).Msg("failed to schedule session reconcile")
		}
	}

	if s.eventBus != nil {
		payload := events.CheckoutEventPayload{
			SessionID:    session.ID,
			UserID:       quote.UserID,
			CampgroundID: quote.CampgroundID,
			TotalCents:   quote.TotalPriceCents,
		}
		if err := s.eventBus.PublishJSON(events.EventCheckoutCreated, payload); err != nil {
			s.logger.Error().Err(err).Str("session_id", session.ID).Msg("publish event error")
		}
	}
	metrics.IncCheckoutSession()

	s.logger.Info().
		Str("session_id", session.ID).
		Int64("user_id", quote.UserID).
		Int64("campground_id", quote.CampgroundID).
		Int64("total_cents", quote.TotalPriceCents).
		Msg("checkout session created")

	return &models.CheckoutSession{SessionID: session.ID, SessionURL: session.URL}, nil
}
