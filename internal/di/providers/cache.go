package providers

import (
	"github.com/samber/do/v2"

	"github.com/recipebook/recipebook-server/internal/cache"
	"github.com/recipebook/recipebook-server/internal/config"
	"github.com/recipebook/recipebook-server/internal/logger"
)

// FeedCacheHandle wraps the discovery feed cache. Cache is nil when Redis is
// not configured.
type FeedCacheHandle struct {
	Cache *cache.FeedCache
}

// Shutdown implements do.Shutdownable.
func (h *FeedCacheHandle) Shutdown() error {
	return h.Cache.Close()
}

// ProvideFeedCache provides the Redis-backed feed cache and registers it
// for invalidation on recipe writes.
func ProvideFeedCache(i do.Injector) (*FeedCacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	client := cache.NewRedisClient(cfg.Redis)
	if client == nil {
		log.Info("Feed cache disabled, REDIS_ADDR not set")
		return &FeedCacheHandle{}, nil
	}

	fc := cache.NewFeedCache(client, cfg.Redis.FeedTTL, log.Logger)
	storeHandle.AddRecipeIndexer(fc)

	log.Info("Feed cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.FeedTTL)

	return &FeedCacheHandle{Cache: fc}, nil
}
