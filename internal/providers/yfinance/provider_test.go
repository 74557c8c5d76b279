package yfinance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeYahoo serves canned spark, quote and chart responses. Symbols in
// closes resolve; everything else is unknown.
type fakeYahoo struct {
	closes     map[string][]any
	quotes     map[string]map[string]any
	failSpark  bool
	sparkCalls atomic.Int32
}

func (f *fakeYahoo) chartResult(sym string) map[string]any {
	closes := f.closes[sym]
	ts := make([]int64, len(closes))
	for i := range ts {
		ts[i] = 1772600000 + int64(i)*86400
	}
	return map[string]any{
		"meta":      map[string]any{"symbol": sym},
		"timestamp": ts,
		"indicators": map[string]any{
			"quote": []any{map[string]any{"close": closes, "open": closes}},
		},
	}
}

func (f *fakeYahoo) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/v7/finance/spark":
		f.sparkCalls.Add(1)
		if f.failSpark {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		var results []any
		for _, sym := range strings.Split(r.URL.Query().Get("symbols"), ",") {
			if _, ok := f.closes[sym]; ok {
				results = append(results, map[string]any{
					"symbol":   sym,
					"response": []any{f.chartResult(sym)},
				})
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"spark": map[string]any{"result": results}})

	case r.URL.Path == "/v7/finance/quote":
		var results []any
		for _, sym := range strings.Split(r.URL.Query().Get("symbols"), ",") {
			if q, ok := f.quotes[sym]; ok {
				q["symbol"] = sym
				results = append(results, q)
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"quoteResponse": map[string]any{"result": results}})

	case strings.HasPrefix(r.URL.Path, "/v8/finance/chart/"):
		sym := strings.TrimPrefix(r.URL.Path, "/v8/finance/chart/")
		if _, ok := f.closes[sym]; !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"chart": map[string]any{"result": []any{f.chartResult(sym)}}})

	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, f *fakeYahoo) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL, HTTPClient: srv.Client(), ChunkSize: 2, Concurrency: 2})
}

func TestFetchBatchHistory(t *testing.T) {
	f := &fakeYahoo{closes: map[string][]any{
		"AAPL":  {100.0, 101.0, nil, 102.0},
		"BRK.B": {400.0, 404.0},
		"SPY":   {500.0, 505.0},
	}}
	c := newTestClient(t, f)

	got, err := c.FetchBatchHistory(context.Background(), []string{"AAPL", "BRK.B", "NOPE", "SPY", "AAPL"}, "5d")
	require.NoError(t, err)

	assert.Len(t, got, 3)
	assert.NotContains(t, got, "NOPE")
	require.Len(t, got["AAPL"], 4)
	assert.Nil(t, got["AAPL"][2].Close, "null close is preserved")
	assert.Equal(t, 102.0, *got["AAPL"][3].Close)
	assert.Equal(t, int32(2), f.sparkCalls.Load(), "4 unique symbols in chunks of 2")
}

func TestFetchBatchHistoryFailure(t *testing.T) {
	f := &fakeYahoo{closes: map[string][]any{"AAPL": {1.0, 2.0}}, failSpark: true}
	c := newTestClient(t, f)

	_, err := c.FetchBatchHistory(context.Background(), []string{"AAPL", "MSFT", "NVDA"}, "5d")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProviderUnavailable))

	_, err = c.FetchBatchHistory(context.Background(), nil, "5d")
	assert.Error(t, err)
}

func TestFetchSnapshotFallbacks(t *testing.T) {
	f := &fakeYahoo{quotes: map[string]map[string]any{
		"AAPL": {"currentPrice": 150.0, "previousClose": 100.0, "longName": "Apple Inc.", "marketCap": 3.2e12},
		"MSFT": {"regularMarketPrice": 410.0, "currentPrice": 1.0, "regularMarketPreviousClose": 400.0, "regularMarketVolume": 123},
	}}
	c := newTestClient(t, f)

	s, err := c.FetchSnapshot(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 150.0, *s.Price)
	assert.Equal(t, 100.0, *s.PreviousClose)
	assert.Equal(t, "Apple Inc.", s.Name)
	assert.Equal(t, 3.2e12, *s.MarketCap)

	s, err = c.FetchSnapshot(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, 410.0, *s.Price, "regularMarketPrice wins over currentPrice")
	assert.Equal(t, int64(123), *s.Volume)
	assert.Nil(t, s.Open)

	_, err = c.FetchSnapshot(context.Background(), "ZZZZINVALID")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetchSnapshotsAndMarketCaps(t *testing.T) {
	f := &fakeYahoo{quotes: map[string]map[string]any{
		"AAPL": {"regularMarketPrice": 150.0, "marketCap": 3.2e12},
		"MSFT": {"regularMarketPrice": 410.0},
		"NVDA": {"regularMarketPrice": 900.0, "marketCap": 2.2e12},
	}}
	c := newTestClient(t, f)

	snaps, err := c.FetchSnapshots(context.Background(), []string{"AAPL", "MSFT", "NVDA", "ZZZZ"})
	require.NoError(t, err)
	assert.Len(t, snaps, 3)

	caps, err := c.FetchMarketCaps(context.Background(), []string{"AAPL", "MSFT", "NVDA"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"AAPL": 3.2e12, "NVDA": 2.2e12}, caps)
}

func TestFetchSeries(t *testing.T) {
	f := &fakeYahoo{closes: map[string][]any{"AAPL": {100.0, nil, 102.0}}}
	c := newTestClient(t, f)

	bars, err := c.FetchSeries(context.Background(), "AAPL", "", "")
	require.NoError(t, err)
	assert.Len(t, bars, 3)

	_, err = c.FetchSeries(context.Background(), "ZZZZ", "1mo", "1d")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChunk(t *testing.T) {
	got := chunk([]string{"a", "b", "c", "d", "e"}, 2)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, got)
	assert.Nil(t, chunk(nil, 2))
}
