// Package cache keeps recently fetched snapshots and bar series for a short
// TTL so interactive quote and chart requests do not hit the provider on
// every poll. Two stores are provided: in-process and Redis.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/seenimoa/marketmap/internal/infra"
	"github.com/seenimoa/marketmap/pkg/models"
)

// DefaultTTL matches the client's polling cadence.
const DefaultTTL = time.Minute

// Store is a TTL cache for provider samples. Lookups never fail; a broken
// backend behaves as a miss.
type Store interface {
	Snapshots(ctx context.Context, symbols []string) map[string]models.Snapshot
	PutSnapshots(ctx context.Context, snaps map[string]models.Snapshot)
	Series(ctx context.Context, key string) ([]models.Bar, bool)
	PutSeries(ctx context.Context, key string, bars []models.Bar)
	Close() error
}

// SeriesKey identifies a bar series request.
func SeriesKey(symbol, period, interval string) string {
	return fmt.Sprintf("%s|%s|%s", symbol, period, interval)
}

// Memory is an in-process Store.
type Memory struct {
	snaps  *infra.Cache[models.Snapshot]
	series *infra.Cache[[]models.Bar]
}

var _ Store = (*Memory)(nil)

// NewMemory returns an in-process store.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		snaps:  infra.NewCache[models.Snapshot](ttl),
		series: infra.NewCache[[]models.Bar](ttl),
	}
}

func (m *Memory) Snapshots(_ context.Context, symbols []string) map[string]models.Snapshot {
	out := make(map[string]models.Snapshot)
	for _, s := range symbols {
		if v, ok := m.snaps.Get(s); ok {
			out[s] = v
		}
	}
	return out
}

func (m *Memory) PutSnapshots(_ context.Context, snaps map[string]models.Snapshot) {
	for k, v := range snaps {
		m.snaps.Set(k, v)
	}
}

func (m *Memory) Series(_ context.Context, key string) ([]models.Bar, bool) {
	return m.series.Get(key)
}

func (m *Memory) PutSeries(_ context.Context, key string, bars []models.Bar) {
	m.series.Set(key, bars)
}

// Close drops expired entries.
func (m *Memory) Close() error {
	m.snaps.Cleanup()
	m.series.Cleanup()
	return nil
}
