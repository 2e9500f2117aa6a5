// Package resultcache layers the Redis cache in front of the durable
// Firestore result cache.
package resultcache

import (
	"context"
	"time"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/search"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

const (
	redisKeyPrefix = "search_result:"
	redisTTL       = 24 * time.Hour
)

// tiered reads Redis first and falls back to the durable tier, refilling
// Redis on a durable hit.  Writes go to both; the durable write is the one
// that must succeed.
type tiered struct {
	hot     redis.Cache
	durable search.ResultCache
	log     logging.Logger
}

// NewTiered combines the Redis cache and the durable cache into one
// search.ResultCache.  hot may be nil when Redis is not configured.
func NewTiered(hot redis.Cache, durable search.ResultCache, log logging.Logger) search.ResultCache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &tiered{hot: hot, durable: durable, log: log.Named("resultcache")}
}

func (c *tiered) Lookup(ctx context.Context, key string) (*search.Result, error) {
	if c.hot != nil {
		var result search.Result
		err := c.hot.Get(ctx, redisKeyPrefix+key, &result)
		if err == nil {
			return &result, nil
		}
		if !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
			c.log.Warn("redis cache read failed, trying durable tier",
				logging.String("key", key), logging.Err(err))
		}
	}

	result, err := c.durable.Lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if c.hot != nil {
		if err := c.hot.Set(ctx, redisKeyPrefix+key, result, redisTTL); err != nil {
			c.log.Warn("redis cache refill failed",
				logging.String("key", key), logging.Err(err))
		}
	}
	return result, nil
}

func (c *tiered) Store(ctx context.Context, key string, result *search.Result) error {
	if err := c.durable.Store(ctx, key, result); err != nil {
		return err
	}
	if c.hot != nil {
		if err := c.hot.Set(ctx, redisKeyPrefix+key, result, redisTTL); err != nil {
			c.log.Warn("redis cache write failed",
				logging.String("key", key), logging.Err(err))
		}
	}
	return nil
}
