package models

import "time"

type Booking struct {
	ID               int64      `json:"id"`
	UserID           int64      `json:"user_id"`
	CampgroundID     int64      `json:"campground_id"`
	CampsiteID       *int64     `json:"campsite_id,omitempty"`
	StartDate        time.Time  `json:"start_date"`
	EndDate          time.Time  `json:"end_date"`
	TotalDays        int64      `json:"total_days"`
	TotalPriceCents  int64      `json:"total_price_cents"`
	GuestCount       int64      `json:"guest_count"`
	PaymentSessionID *string    `json:"payment_session_id,omitempty"`
	Paid             bool       `json:"paid"`
	Status           string     `json:"status"` // pending, confirmed, cancelled, completed
	Version          int64      `json:"version"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Quote is a priced, validated booking request. It is never persisted;
// the payment confirmation path turns it into a confirmed Booking.
type Quote struct {
	UserID           int64     `json:"user_id"`
	CampgroundID     int64     `json:"campground_id"`
	CampsiteID       *int64    `json:"campsite_id,omitempty"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	Nights           int64     `json:"nights"`
	NightlyRateCents int64     `json:"nightly_rate_cents"`
	TotalPriceCents  int64     `json:"total_price_cents"`
	GuestCount       int64     `json:"guest_count"`
}

// CheckoutSession is the client-facing handle for a hosted payment page.
type CheckoutSession struct {
	SessionID  string `json:"session_id"`
	SessionURL string `json:"session_url"`
}
