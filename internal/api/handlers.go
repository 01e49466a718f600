package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"campnest/internal/models"
	"campnest/internal/service"
)

// Payments are never refunded automatically. The cancel response repeats
// that so clients cannot miss it.
const cancelNoRefundWarning = "cancelling does not refund the payment; refunds are handled manually by support"

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListCampgrounds(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	campgrounds, err := s.availability.ListCampgrounds(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"campgrounds": campgrounds})
}

func (s *Server) handleGetCampground(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := pathID(ps)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	campground, err := s.availability.GetCampground(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, campground)
}

func (s *Server) handleListCampsites(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := pathID(ps)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	campsites, err := s.availability.ListCampsites(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"campsites": campsites})
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := pathID(ps)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, end, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := s.availability.Snapshot(r.Context(), id, start, end)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"campground_id": id,
		"start":         start.Format(models.DateFormat),
		"end":           end.Format(models.DateFormat),
		"campsites":     rows,
	})
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := pathID(ps)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	identity := identityFrom(r.Context())
	alerts, err := s.alerts.VisibleAlerts(r.Context(), identity.UserID, identity.Admin, models.TargetCampground, id, time.Now().UTC())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (s *Server) handleCampgroundBookings(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := pathID(ps)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, end, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	campground, err := s.availability.GetCampground(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	identity := identityFrom(r.Context())
	if campground.OwnerID != identity.UserID && !identity.Admin {
		s.writeServiceError(w, r, service.ErrForbidden)
		return
	}
	bookings, err := s.booking.ListCampgroundBookings(r.Context(), id, start, end)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	req, err := s.decodeQuoteRequest(r, ps)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	quote, err := s.booking.Quote(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	req, err := s.decodeQuoteRequest(r, ps)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.booking.CreateCheckout(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// handlePaymentSuccess is where the payment provider redirects the
// customer after checkout. Confirming is idempotent, so reloading the
// page is harmless.
func (s *Server) handlePaymentSuccess(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	booking, err := s.booking.ConfirmPayment(r.Context(), sessionID, identityFrom(r.Context()).UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	bookings, err := s.booking.ListUserBookings(r.Context(), identityFrom(r.Context()).UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *Server) handleGetBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := pathID(ps)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	identity := identityFrom(r.Context())
	booking, err := s.booking.GetBooking(r.Context(), id, identity.UserID, identity.Admin)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *Server) handleCancelBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := pathID(ps)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	identity := identityFrom(r.Context())
	booking, err := s.booking.Cancel(r.Context(), id, identity.UserID, identity.Admin)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"booking": booking,
		"warning": cancelNoRefundWarning,
	})
}

func (s *Server) handleCompleteBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := pathID(ps)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	identity := identityFrom(r.Context())
	booking, err := s.booking.Complete(r.Context(), id, identity.UserID, identity.Admin)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *Server) handleAcknowledgeAlert(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := pathID(ps)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := s.alerts.Acknowledge(r.Context(), identityFrom(r.Context()).UserID, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	// false means the acknowledgement was already on file or the alert
	// never required one; either way the caller is clear to book.
	writeJSON(w, http.StatusOK, map[string]bool{"acknowledged": created})
}

func (s *Server) handleExportBookings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	start, end, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Build the workbook in memory so an error never leaves a half-sent
	// response behind.
	var buf bytes.Buffer
	if err := s.exports.WriteBookingsReport(r.Context(), &buf, start, end); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	filename := fmt.Sprintf("bookings_%s_to_%s.xlsx", start.Format(models.DateFormat), end.Format(models.DateFormat))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

type bookingRequest struct {
	CampsiteID *int64 `json:"campsite_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	GuestCount int64  `json:"guest_count"`
}

func (s *Server) decodeQuoteRequest(r *http.Request, ps httprouter.Params) (service.QuoteRequest, error) {
	campgroundID, err := pathID(ps)
	if err != nil {
		return service.QuoteRequest{}, err
	}

	var body bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return service.QuoteRequest{}, errors.New("invalid request body")
	}
	if body.GuestCount <= 0 {
		return service.QuoteRequest{}, errors.New("guest_count must be positive")
	}
	start, err := time.Parse(models.DateFormat, body.StartDate)
	if err != nil {
		return service.QuoteRequest{}, errors.New("invalid start_date, want YYYY-MM-DD")
	}
	end, err := time.Parse(models.DateFormat, body.EndDate)
	if err != nil {
		return service.QuoteRequest{}, errors.New("invalid end_date, want YYYY-MM-DD")
	}

	identity := identityFrom(r.Context())
	return service.QuoteRequest{
		UserID:       identity.UserID,
		IsAdmin:      identity.Admin,
		CampgroundID: campgroundID,
		CampsiteID:   body.CampsiteID,
		StartDate:    start,
		EndDate:      end,
		GuestCount:   body.GuestCount,
	}, nil
}

func pathID(ps httprouter.Params) (int64, error) {
	id, err := strconv.ParseInt(ps.ByName("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func dateRange(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	start, err := time.Parse(models.DateFormat, q.Get("start"))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid start date, want YYYY-MM-DD")
	}
	end, err := time.Parse(models.DateFormat, q.Get("end"))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid end date, want YYYY-MM-DD")
	}
	return start, end, nil
}
