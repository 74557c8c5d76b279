package yfinance

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/marketmap/pkg/models"
)

// FetchBatchHistory downloads daily bars over lookback (a Yahoo range such
// as "5d") for every symbol. Symbols the provider cannot resolve are absent
// from the result. Any failed chunk fails the whole batch with
// ErrProviderUnavailable.
func (c *Client) FetchBatchHistory(ctx context.Context, symbols []string, lookback string) (map[string][]models.Bar, error) {
	symbols = dedup(symbols)
	if len(symbols) == 0 {
		return nil, errors.New("yfinance history: no symbols")
	}
	if lookback == "" {
		lookback = "5d"
	}

	var (
		mu  sync.Mutex
		out = make(map[string][]models.Bar, len(symbols))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, group := range chunk(symbols, c.chunkSize) {
		group := group
		g.Go(func() error {
			bars, err := c.fetchSpark(gctx, group, lookback)
			if err != nil {
				return err
			}
			mu.Lock()
			for sym, b := range bars {
				out[sym] = b
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, unavailable("history", err)
	}

	c.log.Debug("batch history fetched",
		zap.Int("requested", len(symbols)),
		zap.Int("resolved", len(out)),
		zap.String("range", lookback),
	)
	return out, nil
}

// fetchSpark fetches one chunk from /v7/finance/spark.
func (c *Client) fetchSpark(ctx context.Context, symbols []string, lookback string) (map[string][]models.Bar, error) {
	q := url.Values{}
	q.Set("symbols", strings.Join(symbols, ","))
	q.Set("range", lookback)
	q.Set("interval", "1d")

	var resp yfSparkResponse
	if err := c.fetchJSON(ctx, "/v7/finance/spark", q, &resp); err != nil {
		return nil, fmt.Errorf("spark %s: %w", strings.Join(symbols, ","), err)
	}
	if resp.Spark.Error != nil {
		return nil, fmt.Errorf("spark error: %s", resp.Spark.Error.Description)
	}

	out := make(map[string][]models.Bar, len(resp.Spark.Result))
	for _, r := range resp.Spark.Result {
		if len(r.Response) == 0 {
			c.log.Debug("no history", zap.String("symbol", r.Symbol))
			continue
		}
		bars := parseBars(r.Response[0])
		if len(bars) == 0 {
			c.log.Debug("empty history", zap.String("symbol", r.Symbol))
			continue
		}
		out[r.Symbol] = bars
	}
	return out, nil
}

// parseBars converts a chart result into bars, keeping nil for fields the
// provider left null.
func parseBars(result yfChartResult) []models.Bar {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}

	q := result.Indicators.Quote[0]
	bars := make([]models.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		b := models.Bar{Timestamp: time.Unix(ts, 0).UTC()}
		if i < len(q.Open) {
			b.Open = q.Open[i]
		}
		if i < len(q.High) {
			b.High = q.High[i]
		}
		if i < len(q.Low) {
			b.Low = q.Low[i]
		}
		if i < len(q.Close) {
			b.Close = q.Close[i]
		}
		if i < len(q.Volume) {
			b.Volume = q.Volume[i]
		}
		bars = append(bars, b)
	}
	return bars
}
