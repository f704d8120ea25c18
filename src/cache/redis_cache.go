package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"stock-forecast/src/helpers"
	"stock-forecast/src/logger"
	"stock-forecast/src/models"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "forecast:history:"

// RedisHistoryCache keeps recent /api/stocks answers in Redis so repeated
// dashboard refreshes do not hit the upstream source.
type RedisHistoryCache struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// CacheStats is reported by /api/health.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// -----------------------------------------------------------------------------

// NewRedisHistoryCache connects to addr and pings it once.
func NewRedisHistoryCache(ctx context.Context, cfg models.MCacheConfig, log *logger.Logger) (*RedisHistoryCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, helpers.NewDatabaseError("failed to connect to Redis at "+cfg.RedisAddr, err)
	}

	log.Info("Connected to Redis at %s (db %d)", cfg.RedisAddr, cfg.RedisDB)
	return &RedisHistoryCache{
		Client: rdb,
		TTL:    time.Duration(cfg.TTLSeconds) * time.Second,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func cacheKey(sel models.MSelection) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, sel.Symbol, sel.Period)
}

// -----------------------------------------------------------------------------

// Get returns the cached series. Any Redis failure counts as a miss.
func (c *RedisHistoryCache) Get(ctx context.Context, sel models.MSelection) ([]models.MHistoricalPoint, bool) {
	raw, err := c.Client.Get(ctx, cacheKey(sel)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.Logger.Warning("Cache read for %s failed: %v", sel, err)
		}
		c.misses.Add(1)
		return nil, false
	}

	var points []models.MHistoricalPoint
	if err := json.Unmarshal(raw, &points); err != nil {
		c.Logger.Warning("Dropping corrupt cache entry for %s: %v", sel, err)
		c.Client.Del(ctx, cacheKey(sel))
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return points, true
}

// -----------------------------------------------------------------------------

func (c *RedisHistoryCache) Set(ctx context.Context, sel models.MSelection, points []models.MHistoricalPoint) error {
	raw, err := json.Marshal(points)
	if err != nil {
		return err
	}
	if err := c.Client.Set(ctx, cacheKey(sel), raw, c.TTL).Err(); err != nil {
		return helpers.NewDatabaseError("cache write for "+sel.String(), err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (c *RedisHistoryCache) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// -----------------------------------------------------------------------------

func (c *RedisHistoryCache) Close() error {
	return c.Client.Close()
}
