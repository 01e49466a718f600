package service

import (
	"context"
	"time"

	"campnest/internal/metrics"
	"campnest/internal/models"
)

// QuoteRequest is a priced-booking request. CampsiteID nil means the
// user is booking the campground without picking a site.
type QuoteRequest struct {
	UserID       int64
	IsAdmin      bool
	CampgroundID int64
	CampsiteID   *int64
	StartDate    time.Time
	EndDate      time.Time
	GuestCount   int64
}

// Quote validates a booking request and prices it. Nothing is persisted
// and no date-overlap check happens here: availability is enforced once,
// at payment confirmation, where it is authoritative.
func (s *BookingService) Quote(ctx context.Context, req QuoteRequest) (*models.Quote, error) {
	quote, err := s.buildQuote(ctx, req)
	if err != nil {
		metrics.IncQuote("rejected")
		return nil, err
	}
	metrics.IncQuote("ok")
	return quote, nil
}

// buildQuote applies the checks in a fixed order so clients always see
// the most actionable failure first.
func (s *BookingService) buildQuote(ctx context.Context, req QuoteRequest) (*models.Quote, error) {
	if _, err := s.repo.GetCampground(ctx, req.CampgroundID); err != nil {
		return nil, err
	}

	pending, err := s.alerts.Unacknowledged(ctx, req.UserID, req.IsAdmin, req.CampgroundID, req.CampsiteID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if len(pending) > 0 {
		titles := make([]string, len(pending))
		for i, alert := range pending {
			titles[i] = alert.Title
		}
		return nil, &UnacknowledgedAlertsError{Titles: titles}
	}

	var nightlyRate int64
	if req.CampsiteID != nil {
		site, err := s.repo.GetCampsite(ctx, *req.CampsiteID)
		if err != nil {
			return nil, err
		}
		if site.CampgroundID != req.CampgroundID {
			return nil, ErrCampsiteMismatch
		}
		if !site.IsAvailable {
			return nil, ErrCampsiteUnavailable
		}
		if req.GuestCount > site.Capacity {
			return nil, ErrCapacityExceeded
		}
		nightlyRate = site.NightlyPriceCents
	} else {
		sites, err := s.repo.ListCampsitesByCampground(ctx, req.CampgroundID)
		if err != nil {
			return nil, err
		}
		rate, ok := MinNightlyRate(sites)
		if !ok {
			return nil, ErrNoAvailableCampsites
		}
		nightlyRate = rate
	}

	nights, total, err := Price(nightlyRate, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	return &models.Quote{
		UserID:           req.UserID,
		CampgroundID:     req.CampgroundID,
		CampsiteID:       req.CampsiteID,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		Nights:           int64(nights),
		NightlyRateCents: nightlyRate,
		TotalPriceCents:  total,
		GuestCount:       req.GuestCount,
	}, nil
}
