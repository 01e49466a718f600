package service

import (
	"math"
	"time"

	"campnest/internal/models"
)

// Nights returns the number of billable nights between start and end.
// The range is half-open: checkout day is not billed. Partial days
// round up, so the calculation is insensitive to timezones and DST.
func Nights(start, end time.Time) (int, error) {
	if !end.After(start) {
		return 0, ErrInvalidRange
	}
	nights := int(math.Ceil(end.Sub(start).Hours() / 24))
	if nights < 1 {
		nights = 1
	}
	return nights, nil
}

// Price computes the total for a stay at the given nightly rate.
func Price(nightlyRateCents int64, start, end time.Time) (int, int64, error) {
	nights, err := Nights(start, end)
	if err != nil {
		return 0, 0, err
	}
	return nights, nightlyRateCents * int64(nights), nil
}

// MinNightlyRate returns the cheapest rate among campsites that are
// switched on, and false when none are.
func MinNightlyRate(campsites []*models.Campsite) (int64, bool) {
	var min int64
	found := false
	for _, site := range campsites {
		if !site.IsAvailable {
			continue
		}
		if !found || site.NightlyPriceCents < min {
			min = site.NightlyPriceCents
			found = true
		}
	}
	return min, found
}
