// Package redisstore backs the challenge store with Redis so the
// verification service can scale past one replica. Expiry is delegated to
// Redis key TTLs.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"nexus/internal/challenge/models"
	"nexus/internal/challenge/store"
)

const keyPrefix = "challenge:"

type Store struct {
	client redis.Cmdable
	now    func() time.Time
}

var _ store.Store = (*Store)(nil)

type Option func(*Store)

// WithClock overrides the time source used to compute key TTLs.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(client redis.Cmdable, opts ...Option) *Store {
	s := &Store{client: client, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Save(ctx context.Context, ch models.Challenge) error {
	payload, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}

	ttl := ch.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, keyPrefix+ch.ID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("save challenge: %w", err)
	}
	return nil
}

func (s *Store) Consume(ctx context.Context, id string) (models.Challenge, error) {
	raw, err := s.client.GetDel(ctx, keyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return models.Challenge{}, store.ErrNotFound
	}
	if err != nil {
		return models.Challenge{}, fmt.Errorf("consume challenge: %w", err)
	}

	var ch models.Challenge
	if err := json.Unmarshal([]byte(raw), &ch); err != nil {
		return models.Challenge{}, fmt.Errorf("decode challenge: %w", err)
	}
	return ch, nil
}
