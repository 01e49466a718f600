package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidRange means end is not strictly after start.
	ErrInvalidRange = errors.New("end date must be after start date")
	// ErrCapacityExceeded means the party does not fit the campsite.
	ErrCapacityExceeded = errors.New("guest count exceeds campsite capacity")
	// ErrForbidden means the caller may not act on this resource.
	ErrForbidden = errors.New("forbidden")
	// ErrPaymentIncomplete means the checkout session has not been paid.
	ErrPaymentIncomplete = errors.New("payment not completed")
	// ErrNoAvailableCampsites means a campground-level quote found no
	// campsite to derive a rate from.
	ErrNoAvailableCampsites = errors.New("campground has no available campsites")
	// ErrCampsiteUnavailable means the campsite is switched off by the
	// operator.
	ErrCampsiteUnavailable = errors.New("campsite is not available for booking")
	// ErrCampsiteMismatch means the campsite belongs to a different
	// campground than the one quoted.
	ErrCampsiteMismatch = errors.New("campsite does not belong to campground")
	// ErrBookingNotCancellable means the booking status permits no
	// cancellation.
	ErrBookingNotCancellable = errors.New("booking cannot be cancelled in its current status")
	// ErrBookingStarted means the stay has already begun.
	ErrBookingStarted = errors.New("booking has already started")
	// ErrInvalidTransition means the requested status change is not in
	// the lifecycle graph.
	ErrInvalidTransition = errors.New("invalid booking status transition")
	// ErrPaymentConflict means the money moved but the dates were taken
	// first. Ops reconciles these by hand.
	ErrPaymentConflict = errors.New("dates no longer available for paid session")
)

// UnacknowledgedAlertsError lists the safety alerts a user must
// acknowledge before booking. The titles go back to the client verbatim.
type UnacknowledgedAlertsError struct {
	Titles []string
}

func (e *UnacknowledgedAlertsError) Error() string {
	return fmt.Sprintf("safety alerts require acknowledgement: %s", strings.Join(e.Titles, "; "))
}
