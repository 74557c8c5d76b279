// Package quote derives price change and market-cap figures from raw
// provider samples. It performs no I/O.
package quote

import "github.com/seenimoa/marketmap/pkg/models"

// DefaultPlaceholderCap is the market cap, in billions, given to tickers
// with no known capitalisation so they keep a visible treemap area.
const DefaultPlaceholderCap = 10.0

// Derived is the result of a derivation. Price, Change and ChangePercent
// are either all set or all nil.
type Derived struct {
	Price         *float64
	Change        *float64 // absolute
	ChangePercent *float64
	MarketCap     float64 // billions, never zero
}

// Resolved reports whether the derivation produced a price.
func (d Derived) Resolved() bool { return d.Price != nil }

// Engine holds derivation settings.
type Engine struct {
	PlaceholderCap float64
}

// NewEngine returns an engine with the given placeholder; non-positive
// values select DefaultPlaceholderCap.
func NewEngine(placeholder float64) *Engine {
	if placeholder <= 0 {
		placeholder = DefaultPlaceholderCap
	}
	return &Engine{PlaceholderCap: placeholder}
}

// FromBars uses the last two non-nil closes by position. Fewer than two
// closes, or a zero previous close, yield an unresolved result.
func (e *Engine) FromBars(bars []models.Bar) Derived {
	var latest, previous *float64
	for i := len(bars) - 1; i >= 0 && previous == nil; i-- {
		c := bars[i].Close
		if c == nil {
			continue
		}
		if latest == nil {
			latest = c
		} else {
			previous = c
		}
	}
	return e.derive(latest, previous)
}

// FromSnapshot uses the snapshot's price and previous-close fields.
func (e *Engine) FromSnapshot(s models.Snapshot) Derived {
	d := e.derive(s.Price, s.PreviousClose)
	d.MarketCap = e.NormalizeMarketCap(s.MarketCap)
	return d
}

// NormalizeMarketCap converts a raw capitalisation to billions. Nil or
// zero yield the placeholder.
func (e *Engine) NormalizeMarketCap(raw *float64) float64 {
	if raw == nil || *raw <= 0 {
		return e.PlaceholderCap
	}
	return *raw / 1e9
}

// Quote builds the client-facing quote for symbol from a snapshot.
func (e *Engine) Quote(symbol string, s models.Snapshot) models.Quote {
	d := e.FromSnapshot(s)
	return models.Quote{
		Symbol:        symbol,
		Name:          s.Name,
		Price:         d.Price,
		Change:        d.Change,
		ChangePercent: d.ChangePercent,
		PreviousClose: s.PreviousClose,
		Open:          s.Open,
		High:          s.High,
		Low:           s.Low,
		Volume:        s.Volume,
		MarketCap:     d.MarketCap,
	}
}

func (e *Engine) derive(latest, previous *float64) Derived {
	d := Derived{MarketCap: e.PlaceholderCap}
	if latest == nil || previous == nil || *previous == 0 {
		return d
	}
	price := *latest
	change := price - *previous
	pct := change / *previous * 100
	d.Price = &price
	d.Change = &change
	d.ChangePercent = &pct
	return d
}
