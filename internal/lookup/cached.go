// internal/lookup/cached.go
package lookup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"meal-estimator/internal/apperr"
	"meal-estimator/internal/cache"
	"meal-estimator/internal/models"
)

// FoodStore persists fetched foods. *storage.SQLiteStorage satisfies it.
type FoodStore interface {
	SaveFood(query string, food models.Food) error
	GetFood(query string) (*models.Food, error)
}

// Cached fronts a slow source with a TTL cache. Concurrent lookups of the same
// name share one upstream call, which is not cancelled by any single caller.
// Foods persisted by an earlier run are served from the store before the
// source is asked.
type Cached struct {
	source Source
	cache  *cache.TTLCache[models.Food]
	group  singleflight.Group
	store  FoodStore
	logger *zap.SugaredLogger
}

// NewCached wraps source. store may be nil.
func NewCached(source Source, ttl time.Duration, store FoodStore, logger *zap.SugaredLogger) *Cached {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Cached{
		source: source,
		cache:  cache.New[models.Food](ttl),
		store:  store,
		logger: logger,
	}
}

func (c *Cached) Lookup(ctx context.Context, name string) (models.Food, error) {
	key := normalize(name)
	if food, ok := c.cache.Get(key); ok {
		return food, nil
	}

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		if food, ok := c.cache.Get(key); ok {
			return food, nil
		}
		if food, ok := c.stored(key); ok {
			c.cache.Set(key, food)
			return food, nil
		}
		food, err := c.source.Lookup(context.WithoutCancel(ctx), name)
		if err != nil {
			return models.Food{}, err
		}
		c.cache.Set(key, food)
		if c.store != nil && food.Source != models.StaticFoodSource {
			if err := c.store.SaveFood(key, food); err != nil {
				// Persisting is best effort; the cached value is still good.
				c.logger.Warnw("failed to persist food", "food", key, "error", err)
			}
		}
		return food, nil
	})
	if err != nil {
		return models.Food{}, fmt.Errorf("lookup %q: %w", name, err)
	}
	c.logger.Debugw("food looked up", "food", key, "shared", shared)
	return v.(models.Food), nil
}

func (c *Cached) stored(key string) (models.Food, bool) {
	if c.store == nil {
		return models.Food{}, false
	}
	food, err := c.store.GetFood(key)
	if err != nil {
		if !apperr.IsNotFound(err) {
			c.logger.Warnw("failed to read stored food", "food", key, "error", err)
		}
		return models.Food{}, false
	}
	return *food, true
}

// NewSource picks the lookup chain for a configuration: the static table alone
// without an API key, otherwise USDA with the static table as fallback. Either
// way results are cached for ttl.
func NewSource(cfg USDAConfig, ttl time.Duration, store FoodStore, logger *zap.SugaredLogger) Source {
	static := DefaultStaticTable()
	if cfg.APIKey == "" {
		return NewCached(static, ttl, nil, logger)
	}
	return NewCached(NewUSDAClient(cfg, static, logger), ttl, store, logger)
}
