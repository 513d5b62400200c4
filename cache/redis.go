// Package cache provides a Redis backed cache for block statuses.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-tiltguard/blocking"
)

// DefaultPrefix namespaces every key written by the cache
const DefaultPrefix = "tiltguard:block:"

// RedisStatusCache implements blocking.StatusCache on Redis
type RedisStatusCache struct {
	client *redis.Client
	prefix string
}

var _ blocking.StatusCache = (*RedisStatusCache)(nil)

// NewRedisStatusCache connects to redisURL and checks the connection
func NewRedisStatusCache(ctx context.Context, redisURL string) (*RedisStatusCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid redis url")
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "failed to connect to redis")
	}

	return NewRedisStatusCacheWithClient(client), nil
}

// NewRedisStatusCacheWithClient creates a cache from an existing client
func NewRedisStatusCacheWithClient(client *redis.Client) *RedisStatusCache {
	return &RedisStatusCache{
		client: client,
		prefix: DefaultPrefix,
	}
}

// WithPrefix overrides the key prefix
func (c *RedisStatusCache) WithPrefix(prefix string) *RedisStatusCache {
	if prefix != "" {
		c.prefix = prefix
	}
	return c
}

func (c *RedisStatusCache) key(userID string) string {
	return c.prefix + userID
}

// Get returns the cached status for userID, if any
func (c *RedisStatusCache) Get(ctx context.Context, userID string) (blocking.Status, bool, error) {
	raw, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return blocking.Status{}, false, nil
		}
		return blocking.Status{}, false, c.wrap(err, "failed to read block status", userID)
	}

	var status blocking.Status
	if err := json.Unmarshal(raw, &status); err != nil {
		return blocking.Status{}, false, c.wrap(err, "failed to decode block status", userID)
	}
	return status, true, nil
}

// Set stores status for ttl. Non positive ttls are ignored.
func (c *RedisStatusCache) Set(ctx context.Context, userID string, status blocking.Status, ttl time.Duration) error {
	return c.write(ctx, userID, status, ttl, false)
}

// Add stores status for ttl unless an entry for userID already exists
func (c *RedisStatusCache) Add(ctx context.Context, userID string, status blocking.Status, ttl time.Duration) error {
	return c.write(ctx, userID, status, ttl, true)
}

func (c *RedisStatusCache) write(ctx context.Context, userID string, status blocking.Status, ttl time.Duration, onlyIfAbsent bool) error {
	if ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(status)
	if err != nil {
		return c.wrap(err, "failed to encode block status", userID)
	}

	if onlyIfAbsent {
		err = c.client.SetNX(ctx, c.key(userID), raw, ttl).Err()
	} else {
		err = c.client.Set(ctx, c.key(userID), raw, ttl).Err()
	}
	if err != nil {
		return c.wrap(err, "failed to write block status", userID)
	}
	return nil
}

// Delete drops the cached status for userID
func (c *RedisStatusCache) Delete(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, c.key(userID)).Err(); err != nil {
		return c.wrap(err, "failed to delete block status", userID)
	}
	return nil
}

func (c *RedisStatusCache) wrap(err error, msg, userID string) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg).
		WithMetadata(map[string]any{"user_id": userID, "key": c.key(userID)})
}

// Ping checks the Redis connection
func (c *RedisStatusCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (c *RedisStatusCache) Close() error {
	return c.client.Close()
}
