package main

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/seenimoa/marketmap/internal/cache"
	"github.com/seenimoa/marketmap/internal/config"
	"github.com/seenimoa/marketmap/internal/events"
	"github.com/seenimoa/marketmap/internal/infra"
	"github.com/seenimoa/marketmap/internal/providers/yfinance"
	"github.com/seenimoa/marketmap/internal/quote"
	"github.com/seenimoa/marketmap/internal/refresh"
	"github.com/seenimoa/marketmap/internal/treemap"
	"github.com/seenimoa/marketmap/internal/universe"
)

// app holds the wired components shared by serve and refresh.
type app struct {
	Registry  *universe.Registry
	Market    cache.Upstream
	Engine    *quote.Engine
	Store     *treemap.FileStore
	Refresh   *refresh.Controller
	cache     cache.Store
	publisher events.Publisher
}

// build wires the pipeline from configuration. Redis and Kafka are used
// only when configured.
func build(cfg *config.Config, log *zap.Logger) *app {
	reg := universe.Default()
	gw := yfinance.New(yfinance.Options{
		BaseURL:     cfg.Provider.BaseURL,
		HTTPClient:  &http.Client{Timeout: cfg.Provider.Timeout},
		RateLimiter: infra.PerSecond(cfg.Provider.RateLimit),
		ChunkSize:   cfg.Refresh.ChunkSize,
		Concurrency: cfg.Refresh.Concurrency,
		Logger:      log.Named("yfinance"),
	})

	store := newCacheStore(cfg, log)

	var pub events.Publisher = events.Nop{}
	if len(cfg.Events.KafkaBrokers) > 0 {
		pub = events.NewKafka(cfg.Events.KafkaBrokers, cfg.Events.Topic, log.Named("events"))
		log.Info("publishing refresh events", zap.Strings("brokers", cfg.Events.KafkaBrokers), zap.String("topic", cfg.Events.Topic))
	}

	engine := quote.NewEngine(cfg.Data.PlaceholderCap)
	docs := treemap.NewFileStore(cfg.Data.Path)
	ctrl := refresh.New(refresh.Options{
		Registry:  reg,
		Source:    gw,
		Store:     docs,
		Engine:    engine,
		Publisher: pub,
		Lookback:  cfg.Data.Lookback,
		Timeout:   cfg.Refresh.Timeout,
		Path:      cfg.Data.Path,
		Logger:    log,
	})

	return &app{
		Registry:  reg,
		Market:    cache.Wrap(gw, store),
		Engine:    engine,
		Store:     docs,
		Refresh:   ctrl,
		cache:     store,
		publisher: pub,
	}
}

// Close releases the cache and event backends.
func (a *app) Close() {
	a.Refresh.Close()
	_ = a.cache.Close()
	_ = a.publisher.Close()
}

// newCacheStore connects to Redis when configured, falling back to the
// in-process cache if it is unreachable.
func newCacheStore(cfg *config.Config, log *zap.Logger) cache.Store {
	if cfg.Cache.RedisAddr == "" {
		return cache.NewMemory(cfg.Cache.TTL)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, using in-memory cache", zap.String("addr", cfg.Cache.RedisAddr), zap.Error(err))
		_ = rdb.Close()
		return cache.NewMemory(cfg.Cache.TTL)
	}
	log.Info("using redis cache", zap.String("addr", cfg.Cache.RedisAddr))
	return cache.NewRedis(rdb, cfg.Cache.TTL, log.Named("cache"))
}
