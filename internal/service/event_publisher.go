package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/tryout-backend/internal/config"
	"github.com/stemsi/tryout-backend/internal/model"
)

// RedisEventPublisher publishes session events on the package monitor channel
// and queues them for the audit worker.
type RedisEventPublisher struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisEventPublisher creates a new RedisEventPublisher.
func NewRedisEventPublisher(rdb *redis.Client, log zerolog.Logger) *RedisEventPublisher {
	return &RedisEventPublisher{
		rdb: rdb,
		log: log.With().Str("component", "event_publisher").Logger(),
	}
}

// Publish is fire-and-forget; failures are logged and never reach the caller.
func (p *RedisEventPublisher) Publish(ctx context.Context, ev model.SessionEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.log.Error().Err(err).Msg("Marshal session event")
		return
	}

	pipe := p.rdb.Pipeline()
	pipe.Publish(ctx, config.CacheKey.PackageMonitorChannel(ev.PackageID), payload)
	pipe.RPush(ctx, config.WorkerKey.PersistSessionEventsQueue, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		p.log.Warn().Err(err).
			Str("type", string(ev.Kind)).
			Int64("session_id", ev.SessionID).
			Msg("Publish session event failed")
	}
}
