// Package api provides the HTTP server for the market map.
//
// It exposes the refresh trigger and status endpoints, synchronous
// quote/quotes/chart lookups, the persisted treemap document, a WebSocket
// status stream, and falls back to static file serving for everything else.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/seenimoa/marketmap/internal/cache"
	"github.com/seenimoa/marketmap/internal/config"
	"github.com/seenimoa/marketmap/internal/quote"
	"github.com/seenimoa/marketmap/internal/refresh"
	"github.com/seenimoa/marketmap/internal/universe"
	"github.com/seenimoa/marketmap/pkg/models"
)

// DocumentReader loads the persisted treemap document.
type DocumentReader interface {
	Load() (*models.Document, error)
}

// Deps are the collaborators a Server routes to.
type Deps struct {
	Refresh  *refresh.Controller
	Market   cache.Upstream
	Engine   *quote.Engine
	Store    DocumentReader
	Registry *universe.Registry
	Logger   *zap.Logger
}

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	log      *zap.Logger
	refresh  *refresh.Controller
	market   cache.Upstream
	engine   *quote.Engine
	store    DocumentReader
	registry *universe.Registry
	wsHub    *WSHub
	now      func() time.Time
}

// NewServer creates a configured API server with all routes and middleware.
// Every refresh status change is pushed to WebSocket clients.
func NewServer(cfg *config.Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Engine == nil {
		deps.Engine = quote.NewEngine(cfg.Data.PlaceholderCap)
	}
	if deps.Registry == nil {
		deps.Registry = universe.Default()
	}

	s := &Server{
		cfg:      cfg,
		log:      deps.Logger.Named("api"),
		refresh:  deps.Refresh,
		market:   deps.Market,
		engine:   deps.Engine,
		store:    deps.Store,
		registry: deps.Registry,
		wsHub:    NewWSHub(deps.Logger),
		now:      time.Now,
	}
	s.refresh.OnChange(func(st models.RefreshStatus) {
		s.wsHub.Broadcast(WSMessage{Type: "status", Data: st})
	})
	s.router = s.buildRouter()
	return s
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WSHub {
	return s.wsHub
}

// ListenAndServe starts the HTTP server and blocks until SIGINT/SIGTERM,
// then shuts down gracefully.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go s.wsHub.Run(hubCtx)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(done)

	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-done:
	}
	s.log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err := httpSrv.Shutdown(ctx)
	s.refresh.Close()
	return err
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		// WebSocket stays outside the request timeout.
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			if t := s.cfg.API.RequestTimeout; t > 0 {
				r.Use(middleware.Timeout(t))
			}

			// Refresh job
			r.Get("/refresh", s.handleRefresh)
			r.Get("/status", s.handleStatus)

			// Live lookups
			r.Get("/quote", s.handleQuote)
			r.Get("/quotes", s.handleQuotes)
			r.Get("/chart", s.handleChart)

			// Document and service info
			r.Get("/data", s.handleData)
			r.Get("/health", s.handleHealth)
			r.Get("/config", s.handleGetConfig)
		})
	})

	// Everything else is a static asset.
	staticDir := s.cfg.API.StaticDir
	if staticDir == "" {
		staticDir = "."
	}
	r.Handle("/*", http.FileServer(http.Dir(staticDir)))

	return r
}

// ============================================================
// Helpers
// ============================================================

// errorBody is the JSON body of every error response.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
