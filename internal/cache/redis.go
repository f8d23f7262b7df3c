// Package cache keeps rendered discovery feed pages in Redis.
//
// Pages are stored under a generation number. Any recipe write bumps the
// generation, so stale pages are never read again and simply expire.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/recipebook/recipebook-server/internal/config"
	"github.com/recipebook/recipebook-server/internal/domain"
)

const generationKey = "feed:gen"

// FeedCache caches feed pages. A nil *FeedCache is valid and caches nothing.
type FeedCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisClient initializes a Redis client from config.
// Only Addr is mandatory, Password/DB are optional. Returns nil when Addr is
// empty.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	opts := &redis.Options{
		Addr: cfg.Addr,
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	return redis.NewClient(opts)
}

// NewFeedCache wraps client. A nil client yields a nil cache.
func NewFeedCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *FeedCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &FeedCache{client: client, ttl: ttl, logger: logger}
}

// Ping checks connectivity.
func (c *FeedCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Close releases the client's connections.
func (c *FeedCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func (c *FeedCache) generation(ctx context.Context) (int64, error) {
	val, err := c.client.Get(ctx, generationKey).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

func pageKey(gen int64, key string) string {
	return fmt.Sprintf("feed:%d:%s", gen, key)
}

// Get decodes the cached page for key into dest. Returns false on a miss.
// Redis failures are logged and reported as a miss.
func (c *FeedCache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil {
		return false
	}

	gen, err := c.generation(ctx)
	if err != nil {
		c.warn("feed cache generation read failed", err)
		return false
	}

	raw, err := c.client.Get(ctx, pageKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		c.warn("feed cache read failed", err)
		return false
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		c.warn("feed cache decode failed", err)
		return false
	}
	return true
}

// Set stores value as the page for key in the current generation.
func (c *FeedCache) Set(ctx context.Context, key string, value any) {
	if c == nil {
		return
	}

	gen, err := c.generation(ctx)
	if err != nil {
		c.warn("feed cache generation read failed", err)
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		c.warn("feed cache encode failed", err)
		return
	}

	if err := c.client.Set(ctx, pageKey(gen, key), raw, c.ttl).Err(); err != nil {
		c.warn("feed cache write failed", err)
	}
}

// Invalidate moves to a new generation.
func (c *FeedCache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Incr(ctx, generationKey).Err()
}

// IndexRecipe invalidates the feed after a recipe write.
func (c *FeedCache) IndexRecipe(ctx context.Context, _ *domain.Recipe) error {
	return c.Invalidate(ctx)
}

// DeleteRecipe invalidates the feed after a recipe delete.
func (c *FeedCache) DeleteRecipe(ctx context.Context, _ string) error {
	return c.Invalidate(ctx)
}

func (c *FeedCache) warn(msg string, err error) {
	if c.logger != nil {
		c.logger.Warn(msg, "error", err)
	}
}
