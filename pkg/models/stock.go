// Package models defines the core data structures shared by the market map
// packages: provider samples, client-facing quotes, the treemap document and
// the refresh status record.
package models

import "time"

// Ticker is a single index constituent as declared in the universe registry.
type Ticker struct {
	Symbol string `json:"ticker"` // registry form, e.g. "BRK-B"
	Name   string `json:"name"`   // display name, e.g. "Berkshire Hathaway"
	Sector string `json:"sector"` // e.g. "Financials"
}

// Bar represents one period of OHLCV data. Any field may be nil when the
// provider has no value for that period (halts, holidays, partial sessions).
type Bar struct {
	Timestamp time.Time
	Open      *float64
	High      *float64
	Low       *float64
	Close     *float64
	Volume    *int64
}

// Snapshot is a current-moment quote sample as returned by the provider.
// Every numeric field is optional.
type Snapshot struct {
	Symbol        string
	Name          string
	Price         *float64
	PreviousClose *float64
	Open          *float64
	High          *float64
	Low           *float64
	Volume        *int64
	MarketCap     *float64 // raw, in the listing currency
	Timestamp     time.Time
}

// Quote is the client-facing single-symbol quote returned by /api/quote and
// /api/quotes. Price, Change and ChangePercent are either all set or all nil.
type Quote struct {
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name,omitempty"`
	Price         *float64 `json:"price"`
	Change        *float64 `json:"change"`
	ChangePercent *float64 `json:"changePercent"`
	PreviousClose *float64 `json:"previousClose"`
	Open          *float64 `json:"open"`
	High          *float64 `json:"high"`
	Low           *float64 `json:"low"`
	Volume        *int64   `json:"volume"`
	MarketCap     float64  `json:"marketCap"` // billions
}

// ChartPoint is one row of the /api/chart series.
type ChartPoint struct {
	Date   string  `json:"date"` // RFC 3339
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Price  float64 `json:"price"` // same as Close; kept for the chart client
	Volume int64   `json:"volume"`
}

// Float returns a pointer to v. Handy for building optional fields.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int64) *int64 { return &v }
