package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"campnest/internal/domain"
	"campnest/internal/metrics"
	"campnest/internal/models"
	"campnest/internal/repository"
)

// AvailabilityService serves the campground catalog and availability
// snapshots. Snapshots are informational: the confirmation transaction
// is the only authority on whether a range can be booked.
type AvailabilityService struct {
	repo   domain.Repository
	cache  *repository.AvailabilityCache
	logger *zerolog.Logger
}

func NewAvailabilityService(repo domain.Repository, cache *repository.AvailabilityCache, logger *zerolog.Logger) *AvailabilityService {
	return &AvailabilityService{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// ListCampgrounds returns the full catalog.
func (s *AvailabilityService) ListCampgrounds(ctx context.Context) ([]*models.Campground, error) {
	return s.repo.ListCampgrounds(ctx)
}

// GetCampground returns one campground.
func (s *AvailabilityService) GetCampground(ctx context.Context, id int64) (*models.Campground, error) {
	return s.repo.GetCampground(ctx, id)
}

// ListCampsites returns a campground's campsites.
func (s *AvailabilityService) ListCampsites(ctx context.Context, campgroundID int64) ([]*models.Campsite, error) {
	if _, err := s.repo.GetCampground(ctx, campgroundID); err != nil {
		return nil, err
	}
	return s.repo.ListCampsitesByCampground(ctx, campgroundID)
}

// Snapshot reports, per campsite, whether a date window is bookable:
// the operator flag is on and no confirmed stay overlaps. Snapshots are
// cached briefly, so a just-confirmed booking may lag here for a few
// seconds.
func (s *AvailabilityService) Snapshot(ctx context.Context, campgroundID int64, start, end time.Time) ([]models.CampsiteAvailability, error) {
	if !end.After(start) {
		return nil, ErrInvalidRange
	}
	if _, err := s.repo.GetCampground(ctx, campgroundID); err != nil {
		return nil, err
	}

	if snapshot, ok := s.cache.Get(ctx, campgroundID, start, end); ok {
		metrics.IncCacheHit()
		return snapshot, nil
	}
	metrics.IncCacheMiss()

	sites, err := s.repo.ListCampsitesByCampground(ctx, campgroundID)
	if err != nil {
		return nil, err
	}

	snapshot := make([]models.CampsiteAvailability, 0, len(sites))
	for _, site := range sites {
		row := models.CampsiteAvailability{
			CampsiteID:        site.ID,
			Name:              site.Name,
			NightlyPriceCents: site.NightlyPriceCents,
			Capacity:          site.Capacity,
			Available:         site.IsAvailable,
		}
		if row.Available {
			overlaps, err := s.repo.CountOverlappingBookings(ctx, site.ID, start, end)
			if err != nil {
				return nil, err
			}
			row.Available = overlaps == 0
		}
		snapshot = append(snapshot, row)
	}

	s.cache.Set(ctx, campgroundID, start, end, snapshot)
	return snapshot, nil
}

// IsCampsiteAvailable reports whether one campsite can host a stay.
func (s *AvailabilityService) IsCampsiteAvailable(ctx context.Context, campsiteID int64, start, end time.Time) (bool, error) {
	if !end.After(start) {
		return false, ErrInvalidRange
	}
	site, err := s.repo.GetCampsite(ctx, campsiteID)
	if err != nil {
		return false, err
	}
	if !site.IsAvailable {
		return false, nil
	}
	overlaps, err := s.repo.CountOverlappingBookings(ctx, campsiteID, start, end)
	if err != nil {
		return false, err
	}
	return overlaps == 0, nil
}
