// Package yfinance is the market data gateway over Yahoo Finance's public
// HTTP APIs: v7 spark for batch short history, v7 quote for live snapshots
// and v8 chart for per-symbol bar series.
//
// Yahoo Finance needs no API key. Every call is independent; the client
// holds no cursor state.
package yfinance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/seenimoa/marketmap/internal/infra"
)

// DefaultBaseURL is the public Yahoo Finance query host.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

var (
	// ErrNotFound means the provider has no data for the symbol.
	ErrNotFound = errors.New("symbol not found")
	// ErrProviderUnavailable wraps transport, HTTP and decoding failures of
	// a whole call.
	ErrProviderUnavailable = errors.New("market data provider unavailable")
)

// Options configures a Client. Zero values select defaults.
type Options struct {
	BaseURL     string
	HTTPClient  *http.Client
	RateLimiter *infra.RateLimiter // nil disables limiting
	ChunkSize   int                // symbols per batch call, default 20
	Concurrency int                // batch calls in flight, default 4
	Logger      *zap.Logger
}

// Client talks to Yahoo Finance. It is safe for concurrent use.
type Client struct {
	baseURL     string
	http        *http.Client
	limiter     *infra.RateLimiter
	chunkSize   int
	concurrency int
	log         *zap.Logger
}

// New creates a gateway client.
func New(opts Options) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		http:        opts.HTTPClient,
		limiter:     opts.RateLimiter,
		chunkSize:   opts.ChunkSize,
		concurrency: opts.Concurrency,
		log:         opts.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.chunkSize <= 0 {
		c.chunkSize = 20
	}
	if c.concurrency <= 0 {
		c.concurrency = 4
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

// fetchJSON rate-limits, performs a GET on path+query and decodes into dest.
func (c *Client) fetchJSON(ctx context.Context, path string, query url.Values, dest any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return infra.GetJSON(ctx, c.http, u, dest)
}

// unavailable wraps err as ErrProviderUnavailable.
func unavailable(op string, err error) error {
	return fmt.Errorf("yfinance %s: %w: %w", op, ErrProviderUnavailable, err)
}

// classify maps an upstream error for a single-symbol call. A 404 from
// Yahoo means the symbol does not exist.
func classify(op, symbol string, err error) error {
	var httpErr *infra.ErrHTTP
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("yfinance %s %s: %w", op, symbol, ErrNotFound)
	}
	return unavailable(op+" "+symbol, err)
}

// chunk splits symbols into groups of at most n.
func chunk(symbols []string, n int) [][]string {
	var out [][]string
	for len(symbols) > n {
		out = append(out, symbols[:n])
		symbols = symbols[n:]
	}
	if len(symbols) > 0 {
		out = append(out, symbols)
	}
	return out
}

// dedup drops blanks and repeats, keeping first-seen order.
func dedup(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// coalesce returns the first non-empty string.
func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
