package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hetulpatel/crossarb/internal/logging"
	"github.com/hetulpatel/crossarb/internal/service"
	"github.com/hetulpatel/crossarb/internal/storage/sqlite"
)

// CacheAdmin is the slice of the match cache the API exposes.
type CacheAdmin interface {
	Stats(ctx context.Context) (sqlite.Stats, error)
	Clear(ctx context.Context) error
}

// Config holds the HTTP server configuration.
type Config struct {
	Addr        string
	CORSOrigins []string
	// Defaults seeds every WebSocket run; command fields override it.
	Defaults service.Request
}

// Server is the HTTP + WebSocket API over the scan pipeline.
type Server struct {
	cfg        Config
	runner     *service.Runner
	cache      CacheAdmin
	httpServer *http.Server
}

func New(cfg Config, runner *service.Runner, cache CacheAdmin) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8081"
	}
	if cfg.Defaults.Limit <= 0 {
		cfg.Defaults.Limit = defaultLimit
	}
	s := &Server{cfg: cfg, runner: runner, cache: cache}
	s.httpServer = &http.Server{
		Addr:        cfg.Addr,
		Handler:     s.Handler(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	return s
}

// Handler returns the routed handler wrapped in CORS and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /events/polymarket", s.handleEvents(s.runner.Polymarket))
	mux.HandleFunc("GET /events/kalshi", s.handleEvents(s.runner.Kalshi))
	mux.HandleFunc("GET /cache/stats", s.handleCacheStats)
	mux.HandleFunc("DELETE /cache", s.handleCacheClear)
	mux.HandleFunc("GET /ws/status", s.handleWS)

	var h http.Handler = mux
	h = withLogging(h)
	h = withCORS(s.cfg.CORSOrigins)(h)
	return h
}

// Start listens until the server is shut down.
func (s *Server) Start() error {
	logging.Infof("[server] listening on %s", s.cfg.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight requests within ctx. Runs already streaming
// on a WebSocket keep going until they finish.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Infof("[server] shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
