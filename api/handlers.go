package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/seenimoa/marketmap/internal/providers/yfinance"
	"github.com/seenimoa/marketmap/internal/treemap"
	"github.com/seenimoa/marketmap/pkg/models"
	"github.com/seenimoa/marketmap/pkg/utils"
)

// RefreshResponse is the body of GET /api/refresh.
type RefreshResponse struct {
	Status  string `json:"status"` // "started" or "already_running"
	Message string `json:"message"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status       string `json:"status"`
	MarketStatus string `json:"marketStatus"`
	Time         string `json:"time"`
}

// ============================================================
// Refresh job
// ============================================================

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !s.refresh.Start() {
		writeJSON(w, http.StatusOK, RefreshResponse{Status: "already_running", Message: "Refresh already in progress"})
		return
	}
	writeJSON(w, http.StatusOK, RefreshResponse{Status: "started", Message: "Refresh started"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.refresh.Status())
}

// ============================================================
// Live lookups
// ============================================================

// handleQuote serves GET /api/quote?symbol=X.
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	symbol := utils.NormalizeTicker(r.URL.Query().Get("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol parameter required")
		return
	}

	snap, err := s.market.FetchSnapshot(r.Context(), utils.ToProviderSymbol(symbol))
	if err != nil {
		s.writeProviderError(w, symbol, err)
		return
	}

	q := s.buildQuote(symbol, snap)
	if q.Price == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no data for %s", symbol))
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// handleQuotes serves GET /api/quotes?symbols=X,Y,Z. Symbols that cannot be
// resolved are left out of the map.
func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	symbols := utils.SplitSymbols(r.URL.Query().Get("symbols"))
	if len(symbols) == 0 {
		writeError(w, http.StatusBadRequest, "symbols parameter required")
		return
	}

	provider := make([]string, len(symbols))
	for i, sym := range symbols {
		provider[i] = utils.ToProviderSymbol(sym)
	}
	snaps, err := s.market.FetchSnapshots(r.Context(), provider)
	if err != nil {
		s.writeProviderError(w, "", err)
		return
	}

	out := make(map[string]models.Quote, len(symbols))
	for i, sym := range symbols {
		snap, ok := snaps[provider[i]]
		if !ok {
			continue
		}
		q := s.buildQuote(sym, snap)
		if q.Price == nil {
			continue
		}
		out[sym] = q
	}
	writeJSON(w, http.StatusOK, out)
}

// handleChart serves GET /api/chart?symbol=X&period=P&interval=I.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbol := utils.NormalizeTicker(q.Get("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol parameter required")
		return
	}
	period, interval := chartParams(q.Get("period"), q.Get("interval"))

	bars, err := s.market.FetchSeries(r.Context(), utils.ToProviderSymbol(symbol), period, interval)
	if err != nil {
		s.writeProviderError(w, symbol, err)
		return
	}

	points := chartPoints(bars)
	if len(points) == 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no data for %s", symbol))
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// chartPresets maps the client's period buttons to a provider range and
// default interval.
var chartPresets = map[string][2]string{
	"1D": {"1d", "5m"},
	"1W": {"5d", "15m"},
	"1M": {"1mo", "1d"},
	"3M": {"3mo", "1d"},
	"1Y": {"1y", "1d"},
	"5Y": {"5y", "1wk"},
}

// chartParams resolves the period and interval query parameters. Presets
// are matched case-sensitively so provider ranges such as "1d" pass through.
func chartParams(period, interval string) (string, string) {
	if p, ok := chartPresets[period]; ok {
		period = p[0]
		if interval == "" {
			interval = p[1]
		}
	}
	if period == "" {
		period = "1mo"
	}
	if interval == "" {
		interval = "1d"
	}
	return period, interval
}

// buildQuote derives and rounds a quote, filling the name from the
// registry when the provider gave none.
func (s *Server) buildQuote(symbol string, snap models.Snapshot) models.Quote {
	q := s.engine.Quote(symbol, snap)
	if q.Name == "" {
		if t, ok := s.registry.Lookup(symbol); ok {
			q.Name = t.Name
		}
	}
	return treemap.RoundQuote(q, s.engine.PlaceholderCap)
}

// chartPoints drops bars without a close. Missing open/high/low fall back
// to the close.
func chartPoints(bars []models.Bar) []models.ChartPoint {
	out := make([]models.ChartPoint, 0, len(bars))
	for _, b := range bars {
		if b.Close == nil {
			continue
		}
		c := treemap.Round2(*b.Close)
		p := models.ChartPoint{
			Date:  b.Timestamp.UTC().Format(time.RFC3339),
			Open:  orDefault(b.Open, c),
			High:  orDefault(b.High, c),
			Low:   orDefault(b.Low, c),
			Close: c,
			Price: c,
		}
		if b.Volume != nil {
			p.Volume = *b.Volume
		}
		out = append(out, p)
	}
	return out
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return treemap.Round2(*v)
}

// writeProviderError maps gateway errors onto HTTP statuses.
func (s *Server) writeProviderError(w http.ResponseWriter, symbol string, err error) {
	if errors.Is(err, yfinance.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no data for %s", symbol))
		return
	}
	s.log.Warn("provider call failed", zap.String("symbol", symbol), zap.Error(err))
	writeError(w, http.StatusInternalServerError, err.Error())
}

// ============================================================
// Document and service info
// ============================================================

// handleData serves the last persisted document.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Load()
	if errors.Is(err, treemap.ErrNoDocument) {
		writeError(w, http.StatusNotFound, "no data yet, trigger /api/refresh")
		return
	}
	if err != nil {
		s.log.Error("load document", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:       "ok",
		MarketStatus: utils.MarketStatusAt(now),
		Time:         utils.FormatDateTimeET(now),
	})
}
