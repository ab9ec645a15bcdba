// internal/pkg/session/redis_tier.go
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	xerrors "swiftel-client/internal/pkg/errors"

	"github.com/redis/go-redis/v9"
)

// RedisTier is a durable tier kept in Redis, for profiles shared between
// machines. A zero ttl keeps the token until it is deleted.
type RedisTier struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisTier(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisTier {
	if prefix == "" {
		prefix = "swiftel:session:"
	}
	return &RedisTier{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisTier) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", xerrors.ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("redis tier: get: %w", err)
	}
	return v, nil
}

func (r *RedisTier) Set(ctx context.Context, key, token string) error {
	if err := r.client.Set(ctx, r.prefix+key, token, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis tier: set: %w", err)
	}
	return nil
}

func (r *RedisTier) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis tier: del: %w", err)
	}
	return nil
}
