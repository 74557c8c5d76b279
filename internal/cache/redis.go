package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/seenimoa/marketmap/pkg/models"
)

const (
	snapshotPrefix = "marketmap:snap:"
	seriesPrefix   = "marketmap:series:"
)

// Redis is a Store shared between server instances.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

var _ Store = (*Redis)(nil)

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, ttl: ttl, logger: logger}
}

// Snapshots fetches all symbols with one MGET.
func (r *Redis) Snapshots(ctx context.Context, symbols []string) map[string]models.Snapshot {
	out := make(map[string]models.Snapshot)
	if len(symbols) == 0 {
		return out
	}

	keys := make([]string, len(symbols))
	for i, sym := range symbols {
		keys[i] = snapshotPrefix + sym
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		r.logger.Warn("redis mget failed", zap.Error(err))
		return out
	}

	for i, val := range vals {
		payload, ok := val.(string)
		if !ok || payload == "" {
			continue
		}
		var s models.Snapshot
		if err := json.Unmarshal([]byte(payload), &s); err != nil {
			r.logger.Warn("bad cached snapshot", zap.String("symbol", symbols[i]), zap.Error(err))
			continue
		}
		out[symbols[i]] = s
	}
	return out
}

// PutSnapshots writes all snapshots in one pipeline.
func (r *Redis) PutSnapshots(ctx context.Context, snaps map[string]models.Snapshot) {
	if len(snaps) == 0 {
		return
	}
	pipe := r.client.Pipeline()
	for sym, s := range snaps {
		payload, err := json.Marshal(s)
		if err != nil {
			continue
		}
		pipe.Set(ctx, snapshotPrefix+sym, payload, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("redis snapshot write failed", zap.Error(err))
	}
}

func (r *Redis) Series(ctx context.Context, key string) ([]models.Bar, bool) {
	payload, err := r.client.Get(ctx, seriesPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		r.logger.Warn("redis get failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	var bars []models.Bar
	if err := json.Unmarshal(payload, &bars); err != nil {
		return nil, false
	}
	return bars, true
}

func (r *Redis) PutSeries(ctx context.Context, key string, bars []models.Bar) {
	payload, err := json.Marshal(bars)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, seriesPrefix+key, payload, r.ttl).Err(); err != nil {
		r.logger.Warn("redis set failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}
