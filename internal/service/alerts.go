package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"campnest/internal/domain"
	"campnest/internal/models"
)

// AlertService handles safety alerts and the acknowledgement gate that
// fronts every booking quote.
type AlertService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewAlertService(repo domain.Repository, logger *zerolog.Logger) *AlertService {
	return &AlertService{
		repo:   repo,
		logger: logger,
	}
}

// VisibleAlerts returns the active alerts for a target that the user is
// allowed to see.
func (s *AlertService) VisibleAlerts(ctx context.Context, userID int64, isAdmin bool, targetType string, targetID int64, now time.Time) ([]*models.SafetyAlert, error) {
	alerts, err := s.repo.ListAlertsByTarget(ctx, targetType, targetID)
	if err != nil {
		return nil, err
	}
	visible := make([]*models.SafetyAlert, 0, len(alerts))
	for _, alert := range alerts {
		if alert.ActiveAt(now) && alert.VisibleTo(userID, isAdmin) {
			visible = append(visible, alert)
		}
	}
	return visible, nil
}

// Unacknowledged returns the alerts that block a booking attempt: active,
// requiring acknowledgement, visible to the user, covering the campground
// and the named campsite, and not yet acknowledged by this user. An alert
// the user cannot see never gates them.
func (s *AlertService) Unacknowledged(ctx context.Context, userID int64, isAdmin bool, campgroundID int64, campsiteID *int64, now time.Time) ([]*models.SafetyAlert, error) {
	alerts, err := s.repo.ListAlertsByTarget(ctx, models.TargetCampground, campgroundID)
	if err != nil {
		return nil, err
	}
	if campsiteID != nil {
		siteAlerts, err := s.repo.ListAlertsByTarget(ctx, models.TargetCampsite, *campsiteID)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, siteAlerts...)
	}

	acked, err := s.repo.ListUserAcknowledgements(ctx, userID)
	if err != nil {
		return nil, err
	}

	var pending []*models.SafetyAlert
	for _, alert := range alerts {
		if !alert.RequiresAck || !alert.ActiveAt(now) || !alert.VisibleTo(userID, isAdmin) {
			continue
		}
		if _, ok := acked[alert.ID]; ok {
			continue
		}
		pending = append(pending, alert)
	}
	return pending, nil
}

// Acknowledge records that the user has read an alert. Returns false
// when the acknowledgement was already on file, or when the alert never
// required one.
func (s *AlertService) Acknowledge(ctx context.Context, userID, alertID int64) (bool, error) {
	alert, err := s.repo.GetAlert(ctx, alertID)
	if err != nil {
		return false, err
	}
	if !alert.RequiresAck {
		return false, nil
	}
	created, err := s.repo.AcknowledgeAlert(ctx, alertID, userID)
	if err != nil {
		return false, err
	}
	if created {
		s.logger.Info().Int64("alert_id", alertID).Int64("user_id", userID).Msg("alert acknowledged")
	}
	return created, nil
}
