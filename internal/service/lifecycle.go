package service

import (
	"context"
	"time"

	"campnest/internal/events"
	"campnest/internal/metrics"
	"campnest/internal/models"
)

// Cancel cancels a pending or confirmed booking whose stay has not yet
// begun. Only the owner or an admin may cancel. The cancelled range is
// released immediately. No money moves here: refunds are a manual ops
// process and the API response says so.
func (s *BookingService) Cancel(ctx context.Context, bookingID, byUserID int64, isAdmin bool) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != byUserID && !isAdmin {
		return nil, ErrForbidden
	}
	if !models.CanTransition(booking.Status, models.StatusCancelled) {
		return nil, ErrBookingNotCancellable
	}
	if !booking.StartDate.After(time.Now().UTC()) {
		return nil, ErrBookingStarted
	}

	if err := s.repo.UpdateBookingStatusWithVersion(ctx, booking.ID, booking.Version, models.StatusCancelled); err != nil {
		return nil, err
	}

	updated, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateCampground(ctx, updated.CampgroundID)
	s.publishBookingEvent(events.EventBookingCancelled, updated, byUserID)
	metrics.IncBookingCancelled()
	s.logger.Info().
		Int64("booking_id", updated.ID).
		Int64("changed_by", byUserID).
		Bool("admin", isAdmin).
		Msg("booking cancelled")

	return updated, nil
}

// Complete marks a confirmed booking as completed after the stay.
// Admin only.
func (s *BookingService) Complete(ctx context.Context, bookingID, byUserID int64, isAdmin bool) (*models.Booking, error) {
	if !isAdmin {
		return nil, ErrForbidden
	}
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(booking.Status, models.StatusCompleted) {
		return nil, ErrInvalidTransition
	}

	if err := s.repo.UpdateBookingStatusWithVersion(ctx, booking.ID, booking.Version, models.StatusCompleted); err != nil {
		return nil, err
	}

	updated, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	s.publishBookingEvent(events.EventBookingCompleted, updated, byUserID)
	return updated, nil
}

// GetBooking returns a booking to its owner or to an admin.
func (s *BookingService) GetBooking(ctx context.Context, bookingID, byUserID int64, isAdmin bool) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != byUserID && !isAdmin {
		return nil, ErrForbidden
	}
	return booking, nil
}

// ListUserBookings returns all bookings owned by the user, newest stay
// first.
func (s *BookingService) ListUserBookings(ctx context.Context, userID int64) ([]*models.Booking, error) {
	return s.repo.ListUserBookings(ctx, userID)
}

// ListCampgroundBookings returns the bookings that touch a campground
// within a date window.
func (s *BookingService) ListCampgroundBookings(ctx context.Context, campgroundID int64, start, end time.Time) ([]*models.Booking, error) {
	return s.repo.ListCampgroundBookings(ctx, campgroundID, start, end)
}
