// Package api exposes a module host over an HTTP admin API.
//
// Routes:
//
//	GET    /healthz
//	GET    /modules
//	POST   /modules                  {"location": "..."}
//	GET    /modules/{name}
//	POST   /modules/{name}/start
//	POST   /modules/{name}/stop
//	POST   /modules/{name}/reload
//	DELETE /modules/{name}
//	GET    /namespaces
//
// {name} is either a module name or group:name.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/GoCodeAlone/modhost"
)

const shutdownTimeout = 10 * time.Second

// Server serves the admin API for one provider.
type Server struct {
	provider *modhost.Provider
	lock     sync.Locker
	logger   modhost.Logger
	router   *chi.Mux

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// Option configures a Server.
type Option func(*Server)

// WithLock serializes lifecycle requests with other callers of the provider,
// such as the directory watcher.
func WithLock(l sync.Locker) Option {
	return func(s *Server) {
		if l != nil {
			s.lock = l
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l modhost.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New builds the router for p.
func New(p *modhost.Provider, opts ...Option) *Server {
	s := &Server{
		provider: p,
		lock:     &sync.Mutex{},
		logger:   modhost.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Get("/namespaces", s.listNamespaces)
	r.Route("/modules", func(r chi.Router) {
		r.Get("/", s.listModules)
		r.Post("/", s.loadModule)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", s.getModule)
			r.Delete("/", s.unloadModule)
			r.Post("/start", s.transition("start", (*modhost.Wrapper).Start))
			r.Post("/stop", s.transition("stop", (*modhost.Wrapper).Stop))
			r.Post("/reload", s.transition("reload", (*modhost.Wrapper).Reload))
		})
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"requestID", middleware.GetReqID(r.Context()),
		)
	})
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return ErrServerStarted
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	srv := s.server
	go func() {
		s.logger.Info("Starting admin API", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Admin API stopped unexpectedly", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if srv == nil {
		return ErrServerNotStarted
	}

	s.logger.Info("Stopping admin API")
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down admin API: %w", err)
	}
	return nil
}
