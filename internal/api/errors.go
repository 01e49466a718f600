package api

import (
	"errors"
	"net/http"

	"campnest/internal/database"
	"campnest/internal/payments"
	"campnest/internal/service"
)

// writeServiceError maps domain errors onto HTTP statuses. Unrecognized
// errors become an opaque 500; their detail stays in the logs.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var alertsErr *service.UnacknowledgedAlertsError
	if errors.As(err, &alertsErr) {
		writeJSON(w, http.StatusPreconditionFailed, map[string]any{
			"error":  "safety alerts require acknowledgement",
			"alerts": alertsErr.Titles,
		})
		return
	}

	status := statusForError(err)
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, database.ErrNotFound),
		errors.Is(err, payments.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrCampsiteUnavailable),
		errors.Is(err, service.ErrNoAvailableCampsites):
		return http.StatusPreconditionFailed
	case errors.Is(err, service.ErrInvalidRange),
		errors.Is(err, service.ErrCapacityExceeded):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrCampsiteMismatch),
		errors.Is(err, service.ErrPaymentConflict),
		errors.Is(err, service.ErrBookingNotCancellable),
		errors.Is(err, service.ErrBookingStarted),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, database.ErrDateConflict),
		errors.Is(err, database.ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrPaymentIncomplete):
		return http.StatusPaymentRequired
	case errors.Is(err, payments.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
