package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/credential-service/internal/core/ports"
)

const defaultProfileTTL = 5 * time.Minute

// ProfileCache caches public user profiles backed by Redis.
// Key format: profile:<username>. Password hashes are never cached.
type ProfileCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewProfileCache creates a ProfileCache; ttl <= 0 selects defaultProfileTTL.
func NewProfileCache(client *redis.Client, ttl time.Duration) *ProfileCache {
	if ttl <= 0 {
		ttl = defaultProfileTTL
	}
	return &ProfileCache{client: client, ttl: ttl}
}

// Get returns the cached profile and whether it was present.
func (c *ProfileCache) Get(ctx context.Context, username string) (*ports.UserProfile, bool, error) {
	raw, err := c.client.Get(ctx, c.key(username)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("profile cache get: %w", err)
	}

	var p ports.UserProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false, fmt.Errorf("profile cache decode: %w", err)
	}
	return &p, true, nil
}

// Set stores a profile for the configured TTL.
func (c *ProfileCache) Set(ctx context.Context, p *ports.UserProfile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("profile cache encode: %w", err)
	}
	return c.client.Set(ctx, c.key(p.Username), raw, c.ttl).Err()
}

func (c *ProfileCache) key(username string) string {
	return "profile:" + username
}
