package yfinance

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/seenimoa/marketmap/pkg/models"
)

// FetchSeries returns bars for symbol over period (e.g. "1mo") at interval
// (e.g. "1d"). An empty series is ErrNotFound.
func (c *Client) FetchSeries(ctx context.Context, symbol, period, interval string) ([]models.Bar, error) {
	if period == "" {
		period = "1mo"
	}
	if interval == "" {
		interval = "1d"
	}

	q := url.Values{}
	q.Set("range", period)
	q.Set("interval", interval)

	var resp yfChartResponse
	if err := c.fetchJSON(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), q, &resp); err != nil {
		return nil, classify("chart", symbol, err)
	}
	if e := resp.Chart.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return nil, fmt.Errorf("yfinance chart %s: %w", symbol, ErrNotFound)
		}
		return nil, unavailable("chart "+symbol, fmt.Errorf("%s", e.Description))
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("yfinance chart %s: %w", symbol, ErrNotFound)
	}

	bars := parseBars(resp.Chart.Result[0])
	if len(bars) == 0 {
		return nil, fmt.Errorf("yfinance chart %s: %w", symbol, ErrNotFound)
	}
	return bars, nil
}
