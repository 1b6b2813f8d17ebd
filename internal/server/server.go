// Package server provides the HTTP server and routing for tradecore.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/averros/tradecore/internal/database"
	"github.com/averros/tradecore/internal/events"
)

// RouteRegistrar is implemented by every module handler that mounts routes
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// Config holds server configuration
type Config struct {
	Log         zerolog.Logger
	Port        int
	DevMode     bool
	DataDir     string
	PortfolioDB *database.DB
	LedgerDB    *database.DB
	EventBus    *events.Bus
	Modules     []RouteRegistrar
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	portfolioDB    *database.DB
	ledgerDB       *database.DB
	systemHandlers *SystemHandlers
	eventsStream   *EventsStreamHandler
	modules        []RouteRegistrar
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		portfolioDB:    cfg.PortfolioDB,
		ledgerDB:       cfg.LedgerDB,
		systemHandlers: NewSystemHandlers(cfg.Log, cfg.DataDir, cfg.PortfolioDB, cfg.LedgerDB),
		eventsStream:   NewEventsStreamHandler(cfg.EventBus, cfg.Log),
		modules:        cfg.Modules,
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
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Live event stream (WebSocket); registered before module routes
		r.Get("/events/stream", s.eventsStream.ServeHTTP)

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
			r.Get("/database/stats", s.systemHandlers.HandleDatabaseStats)
			r.Get("/disk", s.systemHandlers.HandleDiskUsage)
		})

		for _, m := range s.modules {
			m.RegisterRoutes(r)
		}
	})
}

// handleHealth reports liveness plus a quick integrity check of both databases
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK

	databases := map[string]string{}
	for name, db := range map[string]*database.DB{"portfolio": s.portfolioDB, "ledger": s.ledgerDB} {
		if db == nil {
			continue
		}
		if err := db.QuickCheck(r.Context()); err != nil {
			databases[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
		} else {
			databases[name] = "ok"
		}
	}

	s.writeJSON(w, code, map[string]interface{}{
		"status":    status,
		"service":   "tradecore",
		"databases": databases,
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// Router exposes the router for tests
func (s *Server) Router() http.Handler {
	return s.router
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
