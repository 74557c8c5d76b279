package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seenimoa/marketmap/internal/config"
	"github.com/seenimoa/marketmap/internal/providers/yfinance"
	"github.com/seenimoa/marketmap/internal/quote"
	"github.com/seenimoa/marketmap/internal/refresh"
	"github.com/seenimoa/marketmap/internal/treemap"
	"github.com/seenimoa/marketmap/internal/universe"
	"github.com/seenimoa/marketmap/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

// fakeMarket implements cache.Upstream with canned snapshots and series.
type fakeMarket struct {
	snaps  map[string]models.Snapshot
	series map[string][]models.Bar
	err    error
}

func (f *fakeMarket) FetchSnapshot(_ context.Context, symbol string) (models.Snapshot, error) {
	if f.err != nil {
		return models.Snapshot{}, f.err
	}
	s, ok := f.snaps[symbol]
	if !ok {
		return models.Snapshot{}, fmt.Errorf("quote %s: %w", symbol, yfinance.ErrNotFound)
	}
	return s, nil
}

func (f *fakeMarket) FetchSnapshots(_ context.Context, symbols []string) (map[string]models.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]models.Snapshot)
	for _, s := range symbols {
		if v, ok := f.snaps[s]; ok {
			out[s] = v
		}
	}
	return out, nil
}

func (f *fakeMarket) FetchSeries(_ context.Context, symbol, period, interval string) ([]models.Bar, error) {
	if f.err != nil {
		return nil, f.err
	}
	bars, ok := f.series[symbol+"|"+period+"|"+interval]
	if !ok {
		return nil, fmt.Errorf("chart %s: %w", symbol, yfinance.ErrNotFound)
	}
	return bars, nil
}

// gatedSource blocks batch history until release is closed.
type gatedSource struct {
	release chan struct{}
	once    sync.Once
}

func (g *gatedSource) open() { g.once.Do(func() { close(g.release) }) }

func (g *gatedSource) FetchBatchHistory(ctx context.Context, symbols []string, _ string) (map[string][]models.Bar, error) {
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return map[string][]models.Bar{
		"AAPL": {{Close: models.Float(100)}, {Close: models.Float(102)}},
		"SPY":  {{Close: models.Float(500)}, {Close: models.Float(495)}},
	}, nil
}

func (g *gatedSource) FetchMarketCaps(context.Context, []string) (map[string]float64, error) {
	return map[string]float64{"AAPL": 3e12}, nil
}

type testEnv struct {
	srv    *Server
	market *fakeMarket
	source *gatedSource
	ctrl   *refresh.Controller
	dir    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		API:  config.APIConfig{StaticDir: dir, RequestTimeout: 5 * time.Second},
		Data: config.DataConfig{Path: filepath.Join(dir, "sp500_data.json"), PlaceholderCap: 10},
	}

	market := &fakeMarket{
		snaps: map[string]models.Snapshot{
			"AAPL": {
				Name:          "Apple Inc.",
				Price:         models.Float(150),
				PreviousClose: models.Float(100),
				Volume:        models.Int(1000),
				MarketCap:     models.Float(3.2e12),
			},
			"BRK.B": {Price: models.Float(412.345), PreviousClose: models.Float(410)},
			"HALT":  {PreviousClose: models.Float(10)}, // no price
			"TINY":  {Price: models.Float(2), PreviousClose: models.Float(2), MarketCap: models.Float(3e6)},
		},
		series: map[string][]models.Bar{
			"AAPL|1mo|1d": {
				{Timestamp: time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC), Open: models.Float(99), Close: models.Float(100), Volume: models.Int(5)},
				{Timestamp: time.Date(2026, 3, 3, 14, 30, 0, 0, time.UTC)}, // null close
				{Timestamp: time.Date(2026, 3, 4, 14, 30, 0, 0, time.UTC), Close: models.Float(101.456)},
			},
			"AAPL|5d|1h":   {{Timestamp: time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC), Close: models.Float(1)}},
			"AAPL|5d|15m":  {{Timestamp: time.Date(2026, 3, 4, 15, 15, 0, 0, time.UTC), Close: models.Float(2)}},
			"EMPTY|1mo|1d": {{Timestamp: time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC)}},
		},
	}

	source := &gatedSource{release: make(chan struct{})}
	store := treemap.NewFileStore(cfg.Data.Path)
	engine := quote.NewEngine(10)
	ctrl := refresh.New(refresh.Options{
		Registry: universe.Default(),
		Source:   source,
		Store:    store,
		Engine:   engine,
		Path:     cfg.Data.Path,
		Logger:   zap.NewNop(),
	})
	t.Cleanup(func() {
		source.open()
		ctrl.Close()
	})

	srv := NewServer(cfg, Deps{
		Refresh: ctrl,
		Market:  market,
		Engine:  engine,
		Store:   store,
		Logger:  zap.NewNop(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.Hub().Run(ctx)

	return &testEnv{srv: srv, market: market, source: source, ctrl: ctrl, dir: dir}
}

func (e *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

// ════════════════════════════════════════════════════════════════════
// Quotes
// ════════════════════════════════════════════════════════════════════

func TestHandleQuote(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/api/quote?symbol=aapl")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	q := decode[models.Quote](t, rec)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, "Apple Inc.", q.Name)
	assert.Equal(t, 150.0, *q.Price)
	assert.Equal(t, 50.0, *q.Change)
	assert.Equal(t, 50.0, *q.ChangePercent)
	assert.Equal(t, 3200.0, q.MarketCap)
}

func TestHandleQuoteClassShareAndRounding(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/api/quote?symbol=BRK-B")
	require.Equal(t, http.StatusOK, rec.Code)
	q := decode[models.Quote](t, rec)
	assert.Equal(t, "BRK-B", q.Symbol)
	assert.Equal(t, "Berkshire Hathaway", q.Name, "name falls back to the registry")
	assert.Equal(t, 412.35, *q.Price)
	assert.Equal(t, 0.57, *q.ChangePercent)
	assert.Equal(t, 10.0, q.MarketCap, "unknown cap uses the placeholder")
}

func TestHandleQuoteTinyCap(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/api/quote?symbol=TINY")
	require.Equal(t, http.StatusOK, rec.Code)
	q := decode[models.Quote](t, rec)
	assert.Equal(t, 10.0, q.MarketCap, "a cap that rounds to zero uses the placeholder")
}

func TestHandleQuoteErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"missing symbol", "/api/quote", http.StatusBadRequest},
		{"blank symbol", "/api/quote?symbol=%20", http.StatusBadRequest},
		{"unknown symbol", "/api/quote?symbol=ZZZZINVALID", http.StatusNotFound},
		{"no price", "/api/quote?symbol=HALT", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.get(t, tt.path)
			assert.Equal(t, tt.want, rec.Code)
			body := decode[map[string]string](t, rec)
			assert.NotEmpty(t, body["error"])
		})
	}

	env.market.err = fmt.Errorf("quote: %w", yfinance.ErrProviderUnavailable)
	rec := env.get(t, "/api/quote?symbol=AAPL")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleQuotes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/api/quotes?symbols=AAPL,ZZZZINVALID")
	require.Equal(t, http.StatusOK, rec.Code)

	raw := decode[map[string]json.RawMessage](t, rec)
	assert.Len(t, raw, 1)
	assert.Contains(t, raw, "AAPL")
	assert.NotContains(t, raw, "error")

	rec = env.get(t, "/api/quotes?symbols=AAPL,HALT,brk-b,AAPL")
	got := decode[map[string]models.Quote](t, rec)
	assert.Len(t, got, 2)
	assert.Contains(t, got, "BRK-B")

	rec = env.get(t, "/api/quotes?symbols=,")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.market.err = errors.New("provider down")
	rec = env.get(t, "/api/quotes?symbols=AAPL")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestChartParams(t *testing.T) {
	tests := []struct {
		period, interval         string
		wantPeriod, wantInterval string
	}{
		{"", "", "1mo", "1d"},
		{"1D", "", "1d", "5m"},
		{"5Y", "", "5y", "1wk"},
		{"1Y", "1wk", "1y", "1wk"},
		{"1d", "", "1d", "1d"},
		{"6mo", "1h", "6mo", "1h"},
	}
	for _, tt := range tests {
		p, i := chartParams(tt.period, tt.interval)
		assert.Equal(t, tt.wantPeriod, p, "period for %q", tt.period)
		assert.Equal(t, tt.wantInterval, i, "interval for %q", tt.period)
	}
}

func TestHandleChart(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/api/chart?symbol=AAPL")
	require.Equal(t, http.StatusOK, rec.Code)
	points := decode[[]models.ChartPoint](t, rec)
	require.Len(t, points, 2, "rows without a close are dropped")
	assert.Equal(t, "2026-03-02T14:30:00Z", points[0].Date)
	assert.Equal(t, 99.0, points[0].Open)
	assert.Equal(t, 100.0, points[0].Close)
	assert.Equal(t, 100.0, points[0].Price)
	assert.Equal(t, int64(5), points[0].Volume)
	assert.Equal(t, 101.46, points[1].Close)
	assert.Equal(t, 101.46, points[1].High, "missing high falls back to close")

	rec = env.get(t, "/api/chart?symbol=AAPL&period=5d&interval=1h")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.ChartPoint](t, rec), 1)

	rec = env.get(t, "/api/chart?symbol=AAPL&period=1W")
	require.Equal(t, http.StatusOK, rec.Code, "1W maps to 5d/15m")
	assert.Len(t, decode[[]models.ChartPoint](t, rec), 1)

	assert.Equal(t, http.StatusBadRequest, env.get(t, "/api/chart").Code)
	assert.Equal(t, http.StatusNotFound, env.get(t, "/api/chart?symbol=NOPE").Code)
	assert.Equal(t, http.StatusNotFound, env.get(t, "/api/chart?symbol=EMPTY").Code)
}

// ════════════════════════════════════════════════════════════════════
// Refresh job
// ════════════════════════════════════════════════════════════════════

func TestRefreshTwice(t *testing.T) {
	env := newTestEnv(t)

	first := decode[RefreshResponse](t, env.get(t, "/api/refresh"))
	assert.Equal(t, "started", first.Status)
	second := decode[RefreshResponse](t, env.get(t, "/api/refresh"))
	assert.Equal(t, "already_running", second.Status)

	st := decode[map[string]any](t, env.get(t, "/api/status"))
	assert.Equal(t, true, st["isRunning"])
	assert.Nil(t, st["lastCompletedAt"])
	for _, key := range []string{"progressPercent", "totalCount", "message"} {
		assert.Contains(t, st, key)
	}

	env.source.open()
	env.ctrl.Wait()

	status := decode[models.RefreshStatus](t, env.get(t, "/api/status"))
	assert.False(t, status.IsRunning)
	assert.Equal(t, 100, status.ProgressPercent)
	assert.Equal(t, "Done! 1 stocks updated.", status.Message)
	require.NotNil(t, status.LastCompletedAt)
}

func TestStatusProgressDuringRefresh(t *testing.T) {
	env := newTestEnv(t)
	require.True(t, env.ctrl.Start())

	allowed := map[int]bool{0: true, 50: true, 80: true, 100: true}
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				rec := env.get(t, "/api/status")
				st := decode[models.RefreshStatus](t, rec)
				assert.True(t, allowed[st.ProgressPercent], "progress %d", st.ProgressPercent)
			}
		}()
	}
	env.source.open()
	wg.Wait()
	env.ctrl.Wait()
}

func TestHandleData(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/api/data")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	env.source.open()
	_, err := env.ctrl.Run(context.Background())
	require.NoError(t, err)

	rec = env.get(t, "/api/data")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[models.Document](t, rec)
	assert.Equal(t, "S&P 500", doc.Name)
	assert.Len(t, doc.Children, len(universe.Default().Sectors()))
	assert.Equal(t, -1.0, doc.Indices["SPY"].ChangePercent)
	assert.NotContains(t, doc.Indices, "QQQ")
}

// ════════════════════════════════════════════════════════════════════
// Service info and static fallback
// ════════════════════════════════════════════════════════════════════

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t)
	env.srv.now = func() time.Time { return time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC) } // 10:00 ET

	h := decode[HealthResponse](t, env.get(t, "/api/health"))
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "OPEN", h.MarketStatus)
	assert.NotEmpty(t, h.Time)
}

func TestHandleGetConfigHidesSecrets(t *testing.T) {
	env := newTestEnv(t)
	env.srv.cfg.Cache.RedisPassword = "supersecretpassword"

	rec := env.get(t, "/api/config")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "supersecretpassword")
	assert.Contains(t, rec.Body.String(), "sup...ord")
}

func TestStaticFallback(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "index.html"), []byte("<html>treemap</html>"), 0o644))

	rec := env.get(t, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "treemap")

	assert.Equal(t, http.StatusNotFound, env.get(t, "/missing.js").Code)
}

// ════════════════════════════════════════════════════════════════════
// WebSocket
// ════════════════════════════════════════════════════════════════════

func TestWebSocketStatusStream(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.srv.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg struct {
		Type string              `json:"type"`
		Data models.RefreshStatus `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "status", msg.Type)
	assert.False(t, msg.Data.IsRunning)

	require.Eventually(t, func() bool { return env.srv.Hub().ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: "refresh"}))
	env.source.open()

	// Read until the completed status arrives.
	for {
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == "status" && msg.Data.ProgressPercent == 100 {
			break
		}
	}
	assert.Contains(t, msg.Data.Message, "Done!")
}
