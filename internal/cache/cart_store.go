package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"delegate-portal/internal/cart"
)

var _ cart.Updater = (*CartStore)(nil)

// CartStore keeps cart snapshots in Redis under cart:<owner>. Every save
// refreshes the TTL, so abandoned carts expire on their own.
type CartStore struct {
	redis *RedisClient
	ttl   time.Duration
}

func NewCartStore(r *RedisClient, ttl time.Duration) *CartStore {
	return &CartStore{redis: r, ttl: ttl}
}

func cartKey(owner string) string { return fmt.Sprintf("cart:%s", owner) }

func (s *CartStore) Load(ctx context.Context, owner string) ([]byte, error) {
	return s.redis.GetBytes(ctx, cartKey(owner))
}

func (s *CartStore) Save(ctx context.Context, owner string, snapshot []byte) error {
	return s.redis.Set(ctx, cartKey(owner), snapshot, s.ttl)
}

func (s *CartStore) Update(ctx context.Context, owner string, fn func([]byte) ([]byte, error)) error {
	err := s.redis.Update(ctx, cartKey(owner), s.ttl, fn)
	if errors.Is(err, ErrContended) {
		return cart.ErrContended
	}
	return err
}
