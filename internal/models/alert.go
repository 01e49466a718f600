package models

import "time"

// SafetyAlert is a time-bounded notice attached to a campground or a
// single campsite. Alerts that require acknowledgement gate booking
// attempts until the user confirms they have read them.
type SafetyAlert struct {
	ID          int64     `json:"id"`
	TargetType  string    `json:"target_type"` // campground, campsite
	TargetID    int64     `json:"target_id"`
	Title       string    `json:"title"`
	Severity    string    `json:"severity"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	IsPublic    bool      `json:"is_public"`
	RequiresAck bool      `json:"requires_ack"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// ActiveAt reports whether the alert window covers the given instant.
func (a *SafetyAlert) ActiveAt(now time.Time) bool {
	return !now.Before(a.StartsAt) && !now.After(a.EndsAt)
}

// VisibleTo reports whether the user may see the alert at all. Hidden
// alerts are visible to their creator and to admins only. Users are
// compared by id.
func (a *SafetyAlert) VisibleTo(userID int64, isAdmin bool) bool {
	return a.IsPublic || a.CreatedBy == userID || isAdmin
}

type AlertAcknowledgement struct {
	AlertID        int64     `json:"alert_id"`
	UserID         int64     `json:"user_id"`
	AcknowledgedAt time.Time `json:"acknowledged_at"`
}
