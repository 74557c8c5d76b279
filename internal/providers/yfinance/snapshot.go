package yfinance

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/marketmap/pkg/models"
)

// FetchSnapshot returns the live quote sample for one provider symbol.
func (c *Client) FetchSnapshot(ctx context.Context, symbol string) (models.Snapshot, error) {
	snaps, err := c.fetchQuotes(ctx, []string{symbol})
	if err != nil {
		return models.Snapshot{}, classify("quote", symbol, err)
	}
	s, ok := snaps[symbol]
	if !ok {
		return models.Snapshot{}, fmt.Errorf("yfinance quote %s: %w", symbol, ErrNotFound)
	}
	return s, nil
}

// FetchSnapshots returns live samples keyed by provider symbol. Unknown
// symbols are omitted; a failed call fails the whole request.
func (c *Client) FetchSnapshots(ctx context.Context, symbols []string) (map[string]models.Snapshot, error) {
	symbols = dedup(symbols)
	out := make(map[string]models.Snapshot, len(symbols))
	if len(symbols) == 0 {
		return out, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, group := range chunk(symbols, c.chunkSize) {
		group := group
		g.Go(func() error {
			snaps, err := c.fetchQuotes(gctx, group)
			if err != nil {
				return err
			}
			mu.Lock()
			for k, v := range snaps {
				out[k] = v
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, unavailable("quotes", err)
	}
	return out, nil
}

// FetchMarketCaps returns raw market capitalisations for the symbols that
// report one.
func (c *Client) FetchMarketCaps(ctx context.Context, symbols []string) (map[string]float64, error) {
	snaps, err := c.FetchSnapshots(ctx, symbols)
	if err != nil {
		return nil, err
	}
	caps := make(map[string]float64, len(snaps))
	for sym, s := range snaps {
		if s.MarketCap != nil {
			caps[sym] = *s.MarketCap
		}
	}
	return caps, nil
}

// fetchQuotes performs one /v7/finance/quote call. Result keys are the
// requested symbols.
func (c *Client) fetchQuotes(ctx context.Context, symbols []string) (map[string]models.Snapshot, error) {
	q := url.Values{}
	q.Set("symbols", strings.Join(symbols, ","))

	var resp yfQuoteResponse
	if err := c.fetchJSON(ctx, "/v7/finance/quote", q, &resp); err != nil {
		return nil, err
	}
	if resp.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("quote error: %s", resp.QuoteResponse.Error.Description)
	}

	requested := make(map[string]string, len(symbols))
	for _, s := range symbols {
		requested[strings.ToUpper(s)] = s
	}
	out := make(map[string]models.Snapshot, len(resp.QuoteResponse.Result))
	for _, r := range resp.QuoteResponse.Result {
		key, ok := requested[strings.ToUpper(r.Symbol)]
		if !ok {
			key = r.Symbol
		}
		out[key] = toSnapshot(r)
	}
	return out, nil
}

// toSnapshot resolves each semantic field from its ordered list of
// candidate provider fields.
func toSnapshot(r yfQuoteResult) models.Snapshot {
	s := models.Snapshot{
		Symbol:        r.Symbol,
		Name:          coalesce(r.LongName, r.ShortName, r.DisplayName),
		Price:         firstFloat(r.RegularMarketPrice, r.CurrentPrice, r.PostMarketPrice, r.PreMarketPrice),
		PreviousClose: firstFloat(r.RegularMarketPreviousClose, r.PreviousClose, r.ChartPreviousClose),
		Open:          firstFloat(r.RegularMarketOpen, r.Open),
		High:          firstFloat(r.RegularMarketDayHigh, r.DayHigh),
		Low:           firstFloat(r.RegularMarketDayLow, r.DayLow),
		Volume:        firstInt(r.RegularMarketVolume, r.Volume),
		MarketCap:     r.MarketCap,
	}
	if r.RegularMarketTime > 0 {
		s.Timestamp = time.Unix(r.RegularMarketTime, 0).UTC()
	}
	return s
}

func firstFloat(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstInt(vals ...*int64) *int64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
