package models

import "time"

// Document is the persisted treemap document: index summaries plus the
// sector → ticker hierarchy. Each refresh replaces it wholesale.
type Document struct {
	Name        string                  `json:"name"`
	LastUpdated time.Time               `json:"lastUpdated"`
	Indices     map[string]IndexSummary `json:"indices"`
	Children    []SectorNode            `json:"children"`
}

// SectorNode groups tickers in registry declaration order.
type SectorNode struct {
	Name     string       `json:"name"`
	Children []TickerNode `json:"children"`
}

// TickerNode is a treemap leaf. Price and Change are nil when the ticker
// could not be resolved; MarketCap is never zero.
type TickerNode struct {
	Ticker    string   `json:"ticker"`
	Name      string   `json:"name"`
	MarketCap float64  `json:"marketCap"` // billions
	Price     *float64 `json:"price"`
	Change    *float64 `json:"change"` // percent
}

// IndexSummary is the headline change of a tracked index symbol.
type IndexSummary struct {
	Name          string  `json:"name"`
	ChangePercent float64 `json:"changePercent"`
}

// Resolved reports whether the leaf carries live data.
func (t TickerNode) Resolved() bool { return t.Price != nil }

// Count returns the number of resolved and unresolved leaves.
func (d *Document) Count() (resolved, failed int) {
	for _, s := range d.Children {
		for _, t := range s.Children {
			if t.Resolved() {
				resolved++
			} else {
				failed++
			}
		}
	}
	return resolved, failed
}
