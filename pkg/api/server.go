package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/zipline/internal/logger"
	"github.com/marmos91/zipline/pkg/archive"
)

// DefaultShutdownTimeout bounds graceful shutdown when none is configured.
const DefaultShutdownTimeout = 30 * time.Second

// Server is the archive HTTP server.
//
// Endpoints:
//   - GET /: Informational page
//   - GET /archive/{id}/: Archive stream
//   - GET /health: Liveness probe
//   - GET /health/ready: Readiness probe
//
// Every request context derives from a server-wide base context. Stop
// cancels it with archive.ErrInterrupted so running transfers abort and
// reap their compressors before the listener is shut down.
type Server struct {
	server          *http.Server
	config          APIConfig
	shutdownTimeout time.Duration

	cancelBase context.CancelCauseFunc

	mu       sync.Mutex
	listener net.Listener

	shutdownOnce sync.Once
	shutdownErr  error
}

// NewServer creates a new HTTP server serving handler.
//
// The server is created in a stopped state. Call Start() or Serve() to
// begin serving requests.
func NewServer(config APIConfig, handler http.Handler) *Server {
	config.ApplyDefaults()

	baseCtx, cancel := context.WithCancelCause(context.Background())

	s := &Server{
		config:          config,
		shutdownTimeout: DefaultShutdownTimeout,
		cancelBase:      cancel,
	}
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}
	return s
}

// SetShutdownTimeout sets how long Start waits for in-flight requests when
// its context is cancelled.
func (s *Server) SetShutdownTimeout(d time.Duration) {
	if d > 0 {
		s.shutdownTimeout = d
	}
}

// Start listens on the configured port and serves until ctx is cancelled
// or the server fails.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("HTTP server listen on %s: %w", s.server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled or the server
// fails. Cancellation triggers a graceful shutdown.
//
// Returns:
//   - nil on graceful shutdown
//   - error if the server fails or shutdown encounters an error
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", logger.KeyAddr, ln.Addr().String())
		logger.Debug("HTTP endpoints available",
			"index", fmt.Sprintf("http://localhost:%d/", s.Port()),
			"archive", fmt.Sprintf("http://localhost:%d/archive/{id}/", s.Port()),
			"health", fmt.Sprintf("http://localhost:%d/health", s.Port()),
		)

		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("HTTP server shutdown signal received")
		// The cancelled ctx would make Shutdown return immediately.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		s.cancelBase(err)
		return fmt.Errorf("HTTP server failed: %w", err)
	}
}

// Stop interrupts running transfers and shuts the server down.
//
// Stop is safe to call multiple times and concurrently with Serve.
func (s *Server) Stop(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		logger.Debug("HTTP server shutdown initiated")

		// Aborted transfers reap their compressors and close their
		// connections, which lets Shutdown below complete.
		s.cancelBase(archive.ErrInterrupted)

		if err := s.server.Shutdown(ctx); err != nil {
			s.shutdownErr = fmt.Errorf("HTTP server shutdown error: %w", err)
			logger.Error("HTTP server shutdown error", logger.KeyError, err)
			_ = s.server.Close()
			return
		}
		logger.Info("HTTP server stopped gracefully")
	})
	return s.shutdownErr
}

// Port returns the TCP port the server is listening on, or the configured
// port before Serve is called.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		if addr, ok := s.listener.Addr().(*net.TCPAddr); ok {
			return addr.Port
		}
	}
	return s.config.Port
}
