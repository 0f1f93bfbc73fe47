// Package cache memoizes positive revocation answers in Redis. The revoked
// flag is append-only on-chain, so a cached true never goes stale and entries
// carry no TTL. Negative answers always reach the oracle.
package cache

import (
	"context"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"pixelgenesis/internal/revocation"
)

const defaultKeyPrefix = "pixel:revoked:"

// Oracle is a revocation.Oracle backed by next with a Redis read-through cache.
type Oracle struct {
	next      revocation.Oracle
	client    *redis.Client
	keyPrefix string
	logger    *slog.Logger
}

// Option configures an Oracle.
type Option func(*Oracle)

func WithKeyPrefix(prefix string) Option {
	return func(o *Oracle) {
		if prefix != "" {
			o.keyPrefix = prefix
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Oracle) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func New(next revocation.Oracle, client *redis.Client, opts ...Option) *Oracle {
	o := &Oracle{
		next:      next,
		client:    client,
		keyPrefix: defaultKeyPrefix,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Oracle) Register(ctx context.Context, key revocation.Key) (string, error) {
	return o.next.Register(ctx, key)
}

// Revoke does not touch the cache. A submitted transaction may still revert,
// so only flags read back through IsRevoked are cached.
func (o *Oracle) Revoke(ctx context.Context, key revocation.Key) (string, error) {
	return o.next.Revoke(ctx, key)
}

// IsRevoked answers from the cache when possible. Cache errors fall through to
// the oracle.
func (o *Oracle) IsRevoked(ctx context.Context, key revocation.Key) (bool, error) {
	_, err := o.client.Get(ctx, o.cacheKey(key)).Result()
	switch {
	case err == nil:
		return true, nil
	case !errors.Is(err, redis.Nil):
		o.logger.WarnContext(ctx, "revocation cache read failed", "key", key.Hex(), "error", err)
	}

	revoked, err := o.next.IsRevoked(ctx, key)
	if err != nil {
		return false, err
	}
	if revoked {
		o.remember(ctx, key)
	}
	return revoked, nil
}

func (o *Oracle) remember(ctx context.Context, key revocation.Key) {
	if err := o.client.Set(ctx, o.cacheKey(key), "1", 0).Err(); err != nil {
		o.logger.WarnContext(ctx, "revocation cache write failed", "key", key.Hex(), "error", err)
	}
}

func (o *Oracle) cacheKey(key revocation.Key) string {
	return o.keyPrefix + key.Hex()
}
