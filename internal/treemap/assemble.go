// Package treemap folds derived quotes into the sector hierarchy and
// persists the resulting document.
package treemap

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/seenimoa/marketmap/internal/quote"
	"github.com/seenimoa/marketmap/internal/universe"
	"github.com/seenimoa/marketmap/pkg/models"
	"github.com/seenimoa/marketmap/pkg/utils"
)

// DocumentName is the root label of the document.
const DocumentName = "S&P 500"

// Assemble builds the document in registry order. Every constituent gets a
// node; missing quotes leave price and change nil and the placeholder cap.
// Indices appear only when present in derived. Keys of derived are provider
// symbols.
func Assemble(reg *universe.Registry, derived map[string]quote.Derived, placeholder float64, now time.Time) *models.Document {
	if placeholder <= 0 {
		placeholder = quote.DefaultPlaceholderCap
	}
	doc := &models.Document{
		Name:        DocumentName,
		LastUpdated: now,
		Indices:     make(map[string]models.IndexSummary),
	}

	for _, idx := range reg.Indices() {
		d, ok := derived[utils.ToProviderSymbol(idx.Symbol)]
		if !ok || !d.Resolved() {
			continue
		}
		doc.Indices[idx.Symbol] = models.IndexSummary{
			Name:          idx.Name,
			ChangePercent: Round2(*d.ChangePercent),
		}
	}

	sectors := reg.Sectors()
	doc.Children = make([]models.SectorNode, 0, len(sectors))
	for _, s := range sectors {
		node := models.SectorNode{Name: s.Name, Children: make([]models.TickerNode, 0, len(s.Tickers))}
		for _, e := range s.Tickers {
			leaf := models.TickerNode{Ticker: e.Symbol, Name: e.Name, MarketCap: placeholder}
			if d, ok := derived[utils.ToProviderSymbol(e.Symbol)]; ok {
				leaf.MarketCap = RoundCap(d.MarketCap, placeholder)
				if d.Resolved() {
					leaf.Price = RoundPtr(d.Price)
					leaf.Change = RoundPtr(d.ChangePercent)
				}
			}
			node.Children = append(node.Children, leaf)
		}
		doc.Children = append(doc.Children, node)
	}
	return doc
}

// Round2 rounds half away from zero to 2 decimal places.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// RoundPtr is Round2 for optional values.
func RoundPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := Round2(*v)
	return &r
}

// RoundCap rounds a market cap in billions. Caps that round to zero take
// the placeholder so the leaf keeps a visible area.
func RoundCap(v, placeholder float64) float64 {
	if r := Round2(v); r > 0 {
		return r
	}
	return placeholder
}

// RoundQuote rounds every price field of q for the wire. A market cap that
// rounds to zero becomes placeholder.
func RoundQuote(q models.Quote, placeholder float64) models.Quote {
	q.Price = RoundPtr(q.Price)
	q.Change = RoundPtr(q.Change)
	q.ChangePercent = RoundPtr(q.ChangePercent)
	q.PreviousClose = RoundPtr(q.PreviousClose)
	q.Open = RoundPtr(q.Open)
	q.High = RoundPtr(q.High)
	q.Low = RoundPtr(q.Low)
	q.MarketCap = RoundCap(q.MarketCap, placeholder)
	return q
}
