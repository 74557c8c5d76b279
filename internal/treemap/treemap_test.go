package treemap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/marketmap/internal/quote"
	"github.com/seenimoa/marketmap/internal/universe"
	"github.com/seenimoa/marketmap/pkg/models"
)

var now = time.Date(2026, 3, 4, 16, 5, 0, 0, time.UTC)

func resolved(price, pct, capB float64) quote.Derived {
	change := price * pct / 100
	return quote.Derived{Price: &price, Change: &change, ChangePercent: &pct, MarketCap: capB}
}

func TestAssembleKeepsEveryTicker(t *testing.T) {
	reg := universe.Default()
	derived := map[string]quote.Derived{
		"AAPL":  resolved(187.456, 1.23456, 2900.123),
		"BRK.B": resolved(410, -0.5, 0),
		"SPY":   resolved(500, 0.756, 0),
	}

	doc := Assemble(reg, derived, 10, now)
	assert.Equal(t, "S&P 500", doc.Name)
	assert.Equal(t, now, doc.LastUpdated)

	sectors := reg.Sectors()
	require.Len(t, doc.Children, len(sectors))
	for i, s := range sectors {
		require.Len(t, doc.Children[i].Children, len(s.Tickers), s.Name)
		for j, e := range s.Tickers {
			assert.Equal(t, e.Symbol, doc.Children[i].Children[j].Ticker)
		}
	}

	resolvedN, failed := doc.Count()
	assert.Equal(t, 2, resolvedN)
	assert.Equal(t, reg.Len()-2, failed)

	aapl := doc.Children[0].Children[0]
	assert.Equal(t, 187.46, *aapl.Price)
	assert.Equal(t, 1.23, *aapl.Change)
	assert.Equal(t, 2900.12, aapl.MarketCap)

	msft := doc.Children[0].Children[1]
	assert.Nil(t, msft.Price)
	assert.Nil(t, msft.Change)
	assert.Equal(t, 10.0, msft.MarketCap)
}

func TestAssembleIndices(t *testing.T) {
	reg := universe.Default()
	doc := Assemble(reg, map[string]quote.Derived{"SPY": resolved(500, 0.756, 0)}, 10, now)

	require.Contains(t, doc.Indices, "SPY")
	assert.Equal(t, models.IndexSummary{Name: "S&P 500", ChangePercent: 0.76}, doc.Indices["SPY"])
	assert.NotContains(t, doc.Indices, "QQQ", "missing index gets no placeholder")

	unresolved := Assemble(reg, map[string]quote.Derived{"QQQ": {MarketCap: 10}}, 10, now)
	assert.Empty(t, unresolved.Indices)
}

func TestAssembleTinyCapKeepsArea(t *testing.T) {
	reg := universe.Default()
	doc := Assemble(reg, map[string]quote.Derived{"AAPL": resolved(100, 1, 3e6/1e9)}, 10, now)

	aapl := doc.Children[0].Children[0]
	require.NotNil(t, aapl.Price)
	assert.Equal(t, 10.0, aapl.MarketCap, "cap rounding to 0.00 takes the placeholder")
}

func TestRoundCap(t *testing.T) {
	assert.Equal(t, 2900.12, RoundCap(2900.123, 10))
	assert.Equal(t, 0.01, RoundCap(0.005, 10))
	assert.Equal(t, 10.0, RoundCap(0.003, 10))
	assert.Equal(t, 10.0, RoundCap(0, 10))

	q := RoundQuote(models.Quote{Price: models.Float(1.234), MarketCap: 0.004}, 10)
	assert.Equal(t, 1.23, *q.Price)
	assert.Equal(t, 10.0, q.MarketCap)
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1.23456, 1.23},
		{1.235, 1.24},
		{-1.235, -1.24},
		{2.0, 2.0},
		{0.004, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round2(tt.in), "Round2(%v)", tt.in)
	}
	assert.Nil(t, RoundPtr(nil))
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "sp500_data.json")
	s := NewFileStore(path)

	_, err := s.Load()
	assert.ErrorIs(t, err, ErrNoDocument)

	doc := Assemble(universe.Default(), map[string]quote.Derived{"AAPL": resolved(100, 1, 3000)}, 10, now)
	require.NoError(t, s.Save(doc))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, doc.Children[0].Children[0], got.Children[0].Children[0])
	assert.True(t, doc.LastUpdated.Equal(got.LastUpdated))

	// A second save replaces the document and leaves no temp files behind.
	doc.Name = "replaced"
	require.NoError(t, s.Save(doc))
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	got, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, "replaced", got.Name)
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err := NewFileStore(path).Load()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoDocument)
}
