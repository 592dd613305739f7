package server

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/morningreport/internal/dispatcher"
	"github.com/aristath/morningreport/internal/events"
	"github.com/aristath/morningreport/internal/scheduler"
)

// Config holds server configuration
type Config struct {
	Port        int
	Log         zerolog.Logger
	Dispatcher  *dispatcher.Dispatcher
	Bus         *events.Bus
	MarketHours *scheduler.MarketHoursService
	DevMode     bool
}

// Server exposes the dispatcher over HTTP. Fetch endpoints are
// fire-and-forget: they return 202 immediately and results arrive as
// events on the WebSocket stream.
type Server struct {
	router      *chi.Mux
	server      *http.Server
	log         zerolog.Logger
	dispatcher  *dispatcher.Dispatcher
	bus         *events.Bus
	marketHours *scheduler.MarketHoursService

	watchlistMu sync.Mutex
	watchlist   map[string]struct{}
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		log:         cfg.Log.With().Str("component", "server").Logger(),
		dispatcher:  cfg.Dispatcher,
		bus:         cfg.Bus,
		marketHours: cfg.MarketHours,
		watchlist:   make(map[string]struct{}),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.handleHealth)

	// Event stream for the presentation layer
	s.router.Get("/ws", s.handleWebSocket)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		r.Route("/market", func(r chi.Router) {
			r.Post("/fetch-all", s.handleFetchAll)
			r.Post("/watchlist", s.handleFetchWatchlist)
			r.Post("/constituents/{symbol}", s.handleFetchConstituents)
		})

		r.Route("/watchlist", func(r chi.Router) {
			r.Get("/", s.handleWatchlistGet)
			r.Post("/{symbol}", s.handleWatchlistAdd)
			r.Delete("/{symbol}", s.handleWatchlistRemove)
		})

		r.Route("/markets", func(r chi.Router) {
			r.Get("/status", s.handleMarketsStatus)
		})

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.handleSystemStatus)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// watchlistSymbols returns the current watchlist sorted for stable
// fetch order.
func (s *Server) watchlistSymbols() []string {
	s.watchlistMu.Lock()
	defer s.watchlistMu.Unlock()

	symbols := make([]string, 0, len(s.watchlist))
	for sym := range s.watchlist {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
