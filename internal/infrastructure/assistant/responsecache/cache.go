// Package responsecache layers the Redis cache in front of the durable
// Firestore assistant response cache.
package responsecache

import (
	"context"
	"time"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/analysis"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

const redisKeyPrefix = "analysis:"

type tiered struct {
	hot     redis.Cache
	durable analysis.ResponseCache
	ttl     time.Duration
	log     logging.Logger
}

// NewTiered combines the Redis cache and the durable cache into one
// analysis.ResponseCache.  hot may be nil when Redis is not configured.
func NewTiered(hot redis.Cache, durable analysis.ResponseCache, ttl time.Duration, log logging.Logger) analysis.ResponseCache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &tiered{hot: hot, durable: durable, ttl: ttl, log: log.Named("responsecache")}
}

func (c *tiered) Get(ctx context.Context, key string) (*analysis.Analysis, error) {
	if c.hot != nil {
		var a analysis.Analysis
		err := c.hot.Get(ctx, redisKeyPrefix+key, &a)
		if err == nil {
			return &a, nil
		}
		if !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
			c.log.Warn("redis cache read failed, trying durable tier",
				logging.String("key", key), logging.Err(err))
		}
	}

	a, err := c.durable.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if c.hot != nil {
		if err := c.hot.Set(ctx, redisKeyPrefix+key, a, c.ttl); err != nil {
			c.log.Warn("redis cache refill failed",
				logging.String("key", key), logging.Err(err))
		}
	}
	return a, nil
}

func (c *tiered) Put(ctx context.Context, key string, a *analysis.Analysis) error {
	if err := c.durable.Put(ctx, key, a); err != nil {
		return err
	}
	if c.hot != nil {
		if err := c.hot.Set(ctx, redisKeyPrefix+key, a, c.ttl); err != nil {
			c.log.Warn("redis cache write failed",
				logging.String("key", key), logging.Err(err))
		}
	}
	return nil
}
