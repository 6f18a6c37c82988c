package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/tryout-backend/internal/config"
	"github.com/stemsi/tryout-backend/internal/model"
)

// RedisWindowCache caches package windows in Redis with a short TTL and falls
// back to PostgreSQL on a miss. Write acceptance never depends on it:
// SaveAnswer and Submit read the stored window and the answer upsert
// re-checks it in SQL.
type RedisWindowCache struct {
	rdb      *redis.Client
	packages PackageStore
	ttl      time.Duration
	log      zerolog.Logger
}

// NewRedisWindowCache creates a new RedisWindowCache.
func NewRedisWindowCache(rdb *redis.Client, packages PackageStore, ttl time.Duration, log zerolog.Logger) *RedisWindowCache {
	return &RedisWindowCache{
		rdb:      rdb,
		packages: packages,
		ttl:      ttl,
		log:      log.With().Str("component", "window_cache").Logger(),
	}
}

// Window returns the cached window or loads it from the database.
func (c *RedisWindowCache) Window(ctx context.Context, packageID int64) (model.PackageWindow, error) {
	key := config.CacheKey.PackageWindowKey(packageID)

	vals, err := c.rdb.HGetAll(ctx, key).Result()
	if err == nil && len(vals) == 2 {
		if w, perr := parseWindow(packageID, vals); perr == nil {
			return w, nil
		}
	} else if err != nil && !errors.Is(err, redis.Nil) {
		// Redis trouble must not block exam traffic.
		c.log.Warn().Err(err).Int64("package_id", packageID).Msg("Window cache read failed")
	}

	w, err := c.packages.GetWindow(ctx, packageID)
	if err != nil {
		return model.PackageWindow{}, err
	}

	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, key, "to_start", w.TOStart.UnixMicro(), "to_end", w.TOEnd.UnixMicro())
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn().Err(err).Int64("package_id", packageID).Msg("Window cache write failed")
	}

	return *w, nil
}

func parseWindow(packageID int64, vals map[string]string) (model.PackageWindow, error) {
	start, err := strconv.ParseInt(vals["to_start"], 10, 64)
	if err != nil {
		return model.PackageWindow{}, fmt.Errorf("invalid to_start in cache: %w", err)
	}
	end, err := strconv.ParseInt(vals["to_end"], 10, 64)
	if err != nil {
		return model.PackageWindow{}, fmt.Errorf("invalid to_end in cache: %w", err)
	}
	return model.PackageWindow{
		PackageID: packageID,
		TOStart:   time.UnixMicro(start),
		TOEnd:     time.UnixMicro(end),
	}, nil
}
