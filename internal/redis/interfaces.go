package redis

import (
	"context"

	"ridehail/internal/domain"
)

// LocationIndex defines the cab geo index operations.
type LocationIndex interface {
	UpdateLocation(ctx context.Context, cabID string, point domain.GeoPoint) error
	FindNearby(ctx context.Context, center domain.GeoPoint, radiusKm float64) ([]CabLocation, error)
	Rebuild(ctx context.Context, cabs []CabLocation) error
}

// UserCache defines the user identity cache operations.
type UserCache interface {
	GetUser(ctx context.Context, userID string) (*CachedUser, error)
	SetUser(ctx context.Context, user *CachedUser) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationIndex = (*LocationStore)(nil)
	_ UserCache     = (*CacheStore)(nil)
)
