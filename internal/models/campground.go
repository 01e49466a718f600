package models

import "time"

type Campground struct {
	ID          int64     `yaml:"id" json:"id"`
	OwnerID     int64     `yaml:"owner_id" json:"owner_id"`
	Name        string    `yaml:"name" json:"name"`
	Location    string    `yaml:"location" json:"location"`
	Description string    `yaml:"description" json:"description"`
	CreatedAt   time.Time `yaml:"-" json:"created_at"`
	UpdatedAt   time.Time `yaml:"-" json:"updated_at"`
}

type Campsite struct {
	ID                int64     `yaml:"id" json:"id"`
	CampgroundID      int64     `yaml:"campground_id" json:"campground_id"`
	Name              string    `yaml:"name" json:"name"`
	NightlyPriceCents int64     `yaml:"nightly_price_cents" json:"nightly_price_cents"`
	Capacity          int64     `yaml:"capacity" json:"capacity"`
	IsAvailable       bool      `yaml:"is_available" json:"is_available"`
	CreatedAt         time.Time `yaml:"-" json:"created_at"`
	UpdatedAt         time.Time `yaml:"-" json:"updated_at"`
}

// CampsiteAvailability is one row of an availability snapshot for a
// date window: the operator flag plus whether the window is free of
// confirmed bookings.
type CampsiteAvailability struct {
	CampsiteID        int64  `json:"campsite_id"`
	Name              string `json:"name"`
	NightlyPriceCents int64  `json:"nightly_price_cents"`
	Capacity          int64  `json:"capacity"`
	Available         bool   `json:"available"`
}
