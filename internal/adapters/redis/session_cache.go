package redis

// Package redis provides Redis-based adapters for the principal-auth service.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/target/principal-auth/internal/domain/auth"
	apperrors "github.com/target/principal-auth/internal/errors"
	"github.com/target/principal-auth/internal/ports"
)

var _ ports.SessionCache = (*SessionCache)(nil)

// SessionCache maps issued tokens to their owning principal id.
// Expiry is delegated to Redis: every entry is written with SET ... EX ttl.
type SessionCache struct {
	client redis.UniversalClient
	prefix string
}

// NewSessionCache creates a session cache whose keys are the raw token strings.
func NewSessionCache(client redis.UniversalClient) *SessionCache {
	return &SessionCache{client: client}
}

// NewSessionCacheWithPrefix creates a session cache that namespaces keys with prefix.
func NewSessionCacheWithPrefix(client redis.UniversalClient, prefix string) *SessionCache {
	return &SessionCache{
		client: client,
		prefix: prefix,
	}
}

func (c *SessionCache) key(token string) string {
	return c.prefix + token
}

// Put records token as live for ttl.
func (c *SessionCache) Put(ctx context.Context, token, principalID string, ttl time.Duration) error {
	if token == "" {
		return errors.New("token cannot be empty")
	}
	if principalID == "" {
		return errors.New("principal id cannot be empty")
	}
	if ttl < time.Second {
		return fmt.Errorf("session ttl %s below one second", ttl)
	}

	// go-redis sends PX for fractional seconds. Truncating keeps the write on EX and
	// never lets the entry outlive the token.
	ttl = ttl.Truncate(time.Second)
	if err := c.client.Set(ctx, c.key(token), principalID, ttl).Err(); err != nil {
		return backendError("set", err)
	}
	return nil
}

// Get returns the principal id stored for token, or ErrSessionNotFound.
func (c *SessionCache) Get(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", domainauth.ErrSessionNotFound
	}

	principalID, err := c.client.Get(ctx, c.key(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domainauth.ErrSessionNotFound
		}
		return "", backendError("get", err)
	}
	return principalID, nil
}

// Invalidate removes token from the cache. Removing an absent token is not an error.
func (c *SessionCache) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	if err := c.client.Del(ctx, c.key(token)).Err(); err != nil {
		return backendError("del", err)
	}
	return nil
}

// backendError tags a failed command as a session cache outage unless the
// caller's context ended first.
func backendError(cmd string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("redis %s: %w", cmd, err)
	}
	return apperrors.Unavailable("session cache", fmt.Errorf("redis %s: %w", cmd, err))
}
