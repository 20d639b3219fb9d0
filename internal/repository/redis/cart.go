package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "cart:"

// CartStore implements repository.CartStore against the shared cart Redis.
// The cart service owns the key schema; this store only clears a user's cart
// once their order is durable.
type CartStore struct {
	client *redis.Client
}

// NewCartStore creates a Redis-backed cart store.
func NewCartStore(client *redis.Client) *CartStore {
	return &CartStore{client: client}
}

// Clear removes the user's cart. DEL on an absent key is a no-op, so clearing
// an already-empty cart succeeds.
func (s *CartStore) Clear(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, keyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}
	return nil
}
