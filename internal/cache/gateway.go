package cache

import (
	"context"

	"github.com/seenimoa/marketmap/pkg/models"
)

// Upstream is the provider surface the interactive endpoints use.
type Upstream interface {
	FetchSnapshot(ctx context.Context, symbol string) (models.Snapshot, error)
	FetchSnapshots(ctx context.Context, symbols []string) (map[string]models.Snapshot, error)
	FetchSeries(ctx context.Context, symbol, period, interval string) ([]models.Bar, error)
}

// Gateway serves Upstream calls from a Store when it can. Errors are never
// cached.
type Gateway struct {
	up    Upstream
	store Store
}

var _ Upstream = (*Gateway)(nil)

// Wrap returns a caching Gateway over up.
func Wrap(up Upstream, store Store) *Gateway {
	return &Gateway{up: up, store: store}
}

func (g *Gateway) FetchSnapshot(ctx context.Context, symbol string) (models.Snapshot, error) {
	if hit, ok := g.store.Snapshots(ctx, []string{symbol})[symbol]; ok {
		return hit, nil
	}
	s, err := g.up.FetchSnapshot(ctx, symbol)
	if err != nil {
		return models.Snapshot{}, err
	}
	g.store.PutSnapshots(ctx, map[string]models.Snapshot{symbol: s})
	return s, nil
}

// FetchSnapshots asks upstream only for the symbols the store is missing.
func (g *Gateway) FetchSnapshots(ctx context.Context, symbols []string) (map[string]models.Snapshot, error) {
	out := g.store.Snapshots(ctx, symbols)
	var missing []string
	for _, s := range symbols {
		if _, ok := out[s]; !ok {
			missing = append(missing, s)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	fresh, err := g.up.FetchSnapshots(ctx, missing)
	if err != nil {
		return nil, err
	}
	g.store.PutSnapshots(ctx, fresh)
	for k, v := range fresh {
		out[k] = v
	}
	return out, nil
}

func (g *Gateway) FetchSeries(ctx context.Context, symbol, period, interval string) ([]models.Bar, error) {
	key := SeriesKey(symbol, period, interval)
	if bars, ok := g.store.Series(ctx, key); ok {
		return bars, nil
	}
	bars, err := g.up.FetchSeries(ctx, symbol, period, interval)
	if err != nil {
		return nil, err
	}
	g.store.PutSeries(ctx, key, bars)
	return bars, nil
}
