package service

import (
	"fmt"
	"strconv"
	"time"

	"campnest/internal/models"
)

// Checkout session metadata keys. The full quote rides in provider
// metadata so confirmation rebuilds it from the provider response alone
// and never trusts client input.
const (
	metaUserID       = "user_id"
	metaCampground   = "campground_id"
	metaCampsite     = "campsite_id"
	metaStartDate    = "start_date"
	metaEndDate      = "end_date"
	metaNights       = "nights"
	metaGuestCount   = "guest_count"
	metaNightlyCents = "nightly_rate_cents"
	metaTotalCents   = "total_cents"
)

func buildSessionMetadata(quote *models.Quote) map[string]string {
	meta := map[string]string{
		metaUserID:       strconv.FormatInt(quote.UserID, 10),
		metaCampground:   strconv.FormatInt(quote.CampgroundID, 10),
		metaStartDate:    quote.StartDate.Format(models.DateFormat),
		metaEndDate:      quote.EndDate.Format(models.DateFormat),
		metaNights:       strconv.FormatInt(quote.Nights, 10),
		metaGuestCount:   strconv.FormatInt(quote.GuestCount, 10),
		metaNightlyCents: strconv.FormatInt(quote.NightlyRateCents, 10),
		metaTotalCents:   strconv.FormatInt(quote.TotalPriceCents, 10),
	}
	if quote.CampsiteID != nil {
		meta[metaCampsite] = strconv.FormatInt(*quote.CampsiteID, 10)
	}
	return meta
}

// parseSessionMetadata reconstructs the quote stored in a checkout
// session. A session we minted always parses; failure means the session
// was not created by this system.
func parseSessionMetadata(meta map[string]string) (*models.Quote, error) {
	quote := &models.Quote{}
	var err error

	if quote.UserID, err = parseMetaInt(meta, metaUserID); err != nil {
		return nil, err
	}
	if quote.CampgroundID, err = parseMetaInt(meta, metaCampground); err != nil {
		return nil, err
	}
	if raw, ok := meta[metaCampsite]; ok && raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid session metadata %s: %w", metaCampsite, err)
		}
		quote.CampsiteID = &id
	}
	if quote.StartDate, err = parseMetaDate(meta, metaStartDate); err != nil {
		return nil, err
	}
	if quote.EndDate, err = parseMetaDate(meta, metaEndDate); err != nil {
		return nil, err
	}
	if quote.Nights, err = parseMetaInt(meta, metaNights); err != nil {
		return nil, err
	}
	if quote.GuestCount, err = parseMetaInt(meta, metaGuestCount); err != nil {
		return nil, err
	}
	if quote.NightlyRateCents, err = parseMetaInt(meta, metaNightlyCents); err != nil {
		return nil, err
	}
	if quote.TotalPriceCents, err = parseMetaInt(meta, metaTotalCents); err != nil {
		return nil, err
	}
	return quote, nil
}

func parseMetaInt(meta map[string]string, key string) (int64, error) {
	raw, ok := meta[key]
	if !ok {
		return 0, fmt.Errorf("session metadata missing %s", key)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid session metadata %s: %w", key, err)
	}
	return v, nil
}

func parseMetaDate(meta map[string]string, key string) (time.Time, error) {
	raw, ok := meta[key]
	if !ok {
		return time.Time{}, fmt.Errorf("session metadata missing %s", key)
	}
	t, err := time.Parse(models.DateFormat, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid session metadata %s: %w", key, err)
	}
	return t, nil
}
