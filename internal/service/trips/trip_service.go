package trips

import (
	"context"
	"fmt"
	"time"

	"github.com/pvoronin/busbooking/internal/domain"
	"github.com/pvoronin/busbooking/internal/repository"
)

type TripUseCase interface {
	Search(ctx context.Context, query SearchQuery) ([]domain.TripView, error)
	GetByID(ctx context.Context, id int64) (*domain.Trip, error)
}

type Cache interface {
	GetSearchResults(ctx context.Context, key string) ([]domain.TripView, error)
	SetSearchResults(ctx context.Context, key string, views []domain.TripView) error
}

type SearchQuery struct {
	Origin      string
	Destination string
	Date        *time.Time
	MinSeats    int
}

// TripService builds the read-only search view. It never mutates inventory;
// results are a snapshot at read time and re-running a query may differ.
type TripService struct {
	catalog repository.CatalogRepository
	trips   repository.TripRepository
	cache   Cache
	now     func() time.Time
}

func NewTripService(catalog repository.CatalogRepository, trips repository.TripRepository, cache Cache) *TripService {
	return &TripService{catalog: catalog, trips: trips, cache: cache, now: time.Now}
}

func (s *TripService) Search(ctx context.Context, query SearchQuery) ([]domain.TripView, error) {
	if query.MinSeats < 1 {
		query.MinSeats = 1
	}

	departAfter := s.now()
	if query.Date != nil {
		startOfDay := time.Date(query.Date.Year(), query.Date.Month(), query.Date.Day(), 0, 0, 0, 0, query.Date.Location())
		if startOfDay.After(departAfter) {
			departAfter = startOfDay
		}
	}

	key := cacheKey(query, departAfter)
	if s.cache != nil {
		if cached, err := s.cache.GetSearchResults(ctx, key); err == nil && cached != nil {
			return cached, nil
		}
	}

	views, err := s.catalog.SearchTrips(ctx, query.Origin, query.Destination, departAfter, query.MinSeats)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetSearchResults(ctx, key, views)
	}
	return views, nil
}

func (s *TripService) GetByID(ctx context.Context, id int64) (*domain.Trip, error) {
	return s.trips.GetByID(ctx, id)
}

func cacheKey(q SearchQuery, departAfter time.Time) string {
	// Truncated to the minute so near-simultaneous searches share an entry.
	return fmt.Sprintf("%s|%s|%s|%d", q.Origin, q.Destination, departAfter.Truncate(time.Minute).Format(time.RFC3339), q.MinSeats)
}

var _ TripUseCase = (*TripService)(nil)
