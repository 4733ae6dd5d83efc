package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyPrefix  = "idempotency:"
	idempotencyLockTTL = 30 * time.Second
)

// StoredResponse is a response replayed for a repeated idempotency key.
type StoredResponse struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
	Headers    http.Header     `json:"headers"`
}

// IdempotencyStore keeps idempotent responses and in-flight locks in Redis.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore creates a store keeping responses for ttl.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Get returns the stored response for key. A miss returns nil, nil.
func (s *IdempotencyStore) Get(ctx context.Context, key string) (*StoredResponse, error) {
	data, err := s.client.Get(ctx, idempotencyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var stored StoredResponse
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// Save stores the response for key.
func (s *IdempotencyStore) Save(ctx context.Context, key string, response *StoredResponse) error {
	data, err := json.Marshal(response)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, idempotencyPrefix+key, data, s.ttl).Err()
}

// AcquireLock marks key as in flight.
// Returns true if the lock was acquired, false if already held.
func (s *IdempotencyStore) AcquireLock(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, lockKey(key), "1", idempotencyLockTTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// ReleaseLock releases the in-flight lock for key.
func (s *IdempotencyStore) ReleaseLock(ctx context.Context, key string) error {
	return s.client.Del(ctx, lockKey(key)).Err()
}

func lockKey(key string) string {
	return fmt.Sprintf("lock:%s%s", idempotencyPrefix, key)
}
