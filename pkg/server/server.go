package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"imaginationai/khawab/pkg/config"
	"imaginationai/khawab/pkg/proxy"
	"imaginationai/khawab/pkg/proxy/handlers"
	"imaginationai/khawab/pkg/proxy/middleware"
	"imaginationai/khawab/pkg/proxy/types"
	"imaginationai/khawab/pkg/telemetry/health"
	"imaginationai/khawab/pkg/telemetry/tracing"

	"github.com/go-chi/chi/v5"
)

// Options wires the components served by a Server.
type Options struct {
	// Forwarder serves the proxy mount. Required.
	Forwarder *proxy.Forwarder

	// Checker runs the /ready checks. Nil reports ready unconditionally.
	Checker *health.Checker

	// Metrics is served at MetricsPath when both are set.
	Metrics     http.Handler
	MetricsPath string

	// Tracer adds server spans. Nil disables the tracing middleware.
	Tracer *tracing.Tracer

	// Version is served at /version.
	Version health.VersionInfo

	// CORS is applied to the status endpoints. Nil uses
	// middleware.DefaultCORSConfig. The forwarder applies its own.
	CORS *middleware.CORSConfig
}

// Server is the HTTP server in front of the edge proxy.
type Server struct {
	config     *config.ProxyConfig
	opts       Options
	httpServer *http.Server
	logger     *slog.Logger

	mu           sync.RWMutex
	isRunning    bool
	addr         net.Addr
	shutdownOnce sync.Once
}

// New creates a server. The proxy mount is fixed for the server's lifetime.
func New(cfg *config.ProxyConfig, opts Options) (*Server, error) {
	if opts.Forwarder == nil {
		return nil, errors.New("server requires a forwarder")
	}
	if opts.Checker == nil {
		opts.Checker = health.New(0)
	}
	return &Server{
		config: cfg,
		opts:   opts,
		logger: slog.Default().With("component", "server"),
	}, nil
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully within ShutdownTimeout.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}

	// No WriteTimeout: streamed interpretations may run for minutes.
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}
	s.addr = ln.Addr()
	s.isRunning = true
	s.mu.Unlock()

	s.logger.Info("starting proxy server",
		"address", ln.Addr().String(),
		"mount", s.opts.Forwarder.Mount(),
		"metrics_path", s.opts.MetricsPath,
	)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		if ok {
			return err
		}
		return nil
	}
}

// Shutdown gracefully stops the server, waiting for in-flight streams up to
// ShutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		running := s.isRunning
		s.mu.RUnlock()
		if !running {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx := ctx
		if s.config.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
			defer cancel()
		}

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("proxy server stopped")
	})

	return shutdownErr
}

// Reload applies a reloaded configuration to the forwarder. The mount
// cannot change while running; a different mount is logged and ignored.
func (s *Server) Reload(cfg *config.Config) error {
	opts := proxy.OptionsFromConfig(cfg)
	if current := s.opts.Forwarder.Mount(); opts.Mount != current {
		s.logger.Warn("proxy mount changes require a restart, keeping current mount",
			"current", current,
			"configured", opts.Mount,
		)
		opts.Mount = current
	}
	return s.opts.Forwarder.Update(opts)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the listening address once Start has bound it.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Handler returns the router with the full middleware chain.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Outermost first.
	r.Use(middleware.RecoveryMiddleware)
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.Logging(s.logger, "/health", "/ready", s.opts.MetricsPath))
	if s.opts.Tracer != nil {
		r.Use(s.opts.Tracer.HTTPMiddleware)
	}

	cors := s.opts.CORS
	if cors == nil {
		cors = middleware.DefaultCORSConfig()
	}
	r.Group(func(r chi.Router) {
		r.Use(middleware.CORSMiddleware(cors))
		r.Handle("/health", handlers.NewHealthHandler())
		r.Handle("/ready", handlers.NewReadyHandler(s.opts.Checker))
		r.Handle("/version", health.VersionHandler(s.opts.Version))
	})
	if s.opts.Metrics != nil && s.opts.MetricsPath != "" {
		r.Handle(s.opts.MetricsPath, s.opts.Metrics)
	}

	mount := s.opts.Forwarder.Mount()
	if mount != "" {
		r.Handle(mount, s.opts.Forwarder)
	}
	r.Handle(mount+"/*", s.opts.Forwarder)

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)
	return r
}

func notFound(w http.ResponseWriter, r *http.Request) {
	types.NewNotFoundError(fmt.Sprintf("No route for %s %s", r.Method, r.URL.Path)).
		WithRequestID(middleware.GetRequestID(r.Context())).
		Write(w)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	types.NewMethodNotAllowedError(fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path)).
		WithRequestID(middleware.GetRequestID(r.Context())).
		Write(w)
}
