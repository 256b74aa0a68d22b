package handlers

import (
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/marmos91/zipline/pkg/archive"
)

// HealthHandler handles health check endpoints.
//
// Health endpoints provide:
//   - Liveness probe: Is the server process running?
//   - Readiness probe: Can archives be served right now?
type HealthHandler struct {
	locator    *archive.Locator
	compressor archive.Compressor
}

// NewHealthHandler creates a new health handler.
//
// Either argument may be nil, in which case the readiness probe reports
// unhealthy.
func NewHealthHandler(locator *archive.Locator, compressor archive.Compressor) *HealthHandler {
	return &HealthHandler{locator: locator, compressor: compressor}
}

// Liveness handles GET /health - simple liveness probe.
//
// Returns 200 OK as long as the HTTP server is responsive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "zipline",
	}))
}

// Readiness handles GET /health/ready - readiness probe.
//
// Returns 200 OK when the archive root is readable and the compressor is
// available, 503 Service Unavailable otherwise.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.locator == nil || h.compressor == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("archive pipeline not initialized"))
		return
	}

	root, err := os.Open(h.locator.Root())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("archive root unreadable: "+err.Error()))
		return
	}
	_, err = root.Readdirnames(1)
	_ = root.Close()
	if err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("archive root unreadable: "+err.Error()))
		return
	}

	if err := archive.CheckCompressor(h.compressor); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"root":       h.locator.Root(),
		"compressor": h.compressor.Name(),
	}))
}
