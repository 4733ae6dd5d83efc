package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultUserCacheTTL bounds how long a deleted or changed user can still authenticate.
const DefaultUserCacheTTL = 30 * time.Second

const userCachePrefix = "cache:user:"

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client  *redis.Client
	userTTL time.Duration
}

// NewCacheStore creates a new CacheStore. A non-positive ttl selects DefaultUserCacheTTL.
func NewCacheStore(client *redis.Client, userTTL time.Duration) *CacheStore {
	if userTTL <= 0 {
		userTTL = DefaultUserCacheTTL
	}
	return &CacheStore{client: client, userTTL: userTTL}
}

// CachedUser represents the cached identity of an authenticated user.
type CachedUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// GetUser retrieves a user from cache. A miss returns nil, nil.
func (s *CacheStore) GetUser(ctx context.Context, userID string) (*CachedUser, error) {
	data, err := s.client.Get(ctx, userCachePrefix+userID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var user CachedUser
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SetUser stores a user in cache.
func (s *CacheStore) SetUser(ctx context.Context, user *CachedUser) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, userCachePrefix+user.ID, data, s.userTTL).Err()
}
