package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"ridehail/internal/domain"
)

const cabLocationKey = "cabs:locations"

// CabLocation represents a cab's indexed position.
type CabLocation struct {
	CabID      string
	Point      domain.GeoPoint
	DistanceKm float64
}

// LocationStore maintains the cab geo index in Redis.
type LocationStore struct {
	client *redis.Client
}

// NewLocationStore creates a new LocationStore.
func NewLocationStore(client *redis.Client) *LocationStore {
	return &LocationStore{client: client}
}

// UpdateLocation stores a cab's location using GEOADD.
func (s *LocationStore) UpdateLocation(ctx context.Context, cabID string, point domain.GeoPoint) error {
	return s.client.GeoAdd(ctx, cabLocationKey, &redis.GeoLocation{
		Name:      cabID,
		Longitude: point.Lng,
		Latitude:  point.Lat,
	}).Err()
}

// FindNearby returns the cabs within radiusKm of center, nearest first.
func (s *LocationStore) FindNearby(ctx context.Context, center domain.GeoPoint, radiusKm float64) ([]CabLocation, error) {
	results, err := s.client.GeoRadius(ctx, cabLocationKey, center.Lng, center.Lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		WithDist:  true,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	locations := make([]CabLocation, 0, len(results))
	for _, r := range results {
		locations = append(locations, CabLocation{
			CabID:      r.Name,
			Point:      domain.GeoPoint{Lng: r.Longitude, Lat: r.Latitude},
			DistanceKm: r.Dist,
		})
	}

	return locations, nil
}

// Rebuild replaces the whole index with the given cabs in one transaction.
func (s *LocationStore) Rebuild(ctx context.Context, cabs []CabLocation) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, cabLocationKey)
		if len(cabs) == 0 {
			return nil
		}

		locations := make([]*redis.GeoLocation, 0, len(cabs))
		for _, cab := range cabs {
			locations = append(locations, &redis.GeoLocation{
				Name:      cab.CabID,
				Longitude: cab.Point.Lng,
				Latitude:  cab.Point.Lat,
			})
		}
		pipe.GeoAdd(ctx, cabLocationKey, locations...)
		return nil
	})
	return err
}
