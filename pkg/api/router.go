package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/zipline/pkg/api/handlers"
	apimw "github.com/marmos91/zipline/pkg/api/middleware"
	"github.com/marmos91/zipline/pkg/archive"
)

// Services are the archive components the router dispatches to.
type Services struct {
	Locator    *archive.Locator
	Compressor archive.Compressor
	Supervisor *archive.Supervisor
}

// NewRouter creates and configures the chi router with all middleware and routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Request logging and tracing
//   - Panic recovery to prevent server crashes
//
// No request timeout is installed: an archive stream ends when the archive
// is complete or the client goes away.
//
// Routes:
//   - GET / - Informational page
//   - GET /archive/{id}/ - Stream the archive of directory {id}
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe
func NewRouter(config APIConfig, svc Services) (http.Handler, error) {
	index, err := handlers.NewIndexHandler(config.IndexFile)
	if err != nil {
		return nil, fmt.Errorf("index page: %w", err)
	}

	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apimw.RequestLogger)
	r.Use(apimw.Tracing)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.NotFound(w, "no such route")
	})
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	r.Get("/", index.Serve)

	archiveHandler := handlers.NewArchiveHandler(svc.Locator, svc.Supervisor)
	r.Route("/archive", func(r chi.Router) {
		r.Get("/{id}", archiveHandler.Download)
		r.Get("/{id}/", archiveHandler.Download)
	})

	healthHandler := handlers.NewHealthHandler(svc.Locator, svc.Compressor)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	return r, nil
}
