package app

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nayzeok/tourist-tour-back/internal/adapters/observability"
	"github.com/nayzeok/tourist-tour-back/internal/domain"
)

const geoKeyPrefix = "geo:cities:"

// GeoService serves the geography snapshot cache-first. The nightly sync
// refreshes it; request traffic only reaches upstream when the snapshot is
// missing entirely.
type GeoService struct {
	api   domain.InventoryClient
	cache domain.Cache
	ttl   time.Duration
}

func NewGeoService(api domain.InventoryClient, cache domain.Cache, ttl time.Duration) *GeoService {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &GeoService{api: api, cache: cache, ttl: ttl}
}

func geoKey(country string) string { return geoKeyPrefix + strings.ToUpper(country) }

func (s *GeoService) CitiesByCountry(ctx context.Context, country string) ([]domain.City, error) {
	var cities []domain.City
	if ok, err := s.cache.Get(ctx, geoKey(country), &cities); err == nil && ok {
		observability.ObserveCache("geo", "hit")
		return cities, nil
	}
	observability.ObserveCache("geo", "miss")
	return s.Refresh(ctx, country)
}

// Refresh fetches the country snapshot and overwrites the cache.
func (s *GeoService) Refresh(ctx context.Context, country string) ([]domain.City, error) {
	cities, err := s.api.ListCities(ctx, country)
	if err != nil {
		return nil, err
	}
	if cerr := s.cache.Set(ctx, geoKey(country), cities, int(s.ttl.Seconds())); cerr != nil {
		log.Warn().Err(cerr).Str("country", country).Msg("geo cache write failed")
	}
	return cities, nil
}
