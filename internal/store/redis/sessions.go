package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store handles Redis operations for session revocation.
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store.
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// Revoke marks a session token ID as revoked for the token's remaining
// lifetime. Once the token would have expired anyway, the key lapses.
func (s *Store) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if err := s.client.Set(ctx, RevokedKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// IsRevoked reports whether a session token ID has been revoked.
func (s *Store) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := s.client.Get(ctx, RevokedKey(jti)).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return true, nil
}
