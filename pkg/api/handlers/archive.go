package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/zipline/internal/logger"
	"github.com/marmos91/zipline/internal/telemetry"
	"github.com/marmos91/zipline/pkg/archive"
)

// ArchiveHandler streams directories under the archive root as zip files.
type ArchiveHandler struct {
	locator    *archive.Locator
	supervisor *archive.Supervisor
}

// NewArchiveHandler creates a handler resolving identifiers with locator
// and streaming them through supervisor.
func NewArchiveHandler(locator *archive.Locator, supervisor *archive.Supervisor) *ArchiveHandler {
	return &ArchiveHandler{locator: locator, supervisor: supervisor}
}

// Download handles GET /archive/{id}/.
//
// Unknown or invalid identifiers get a 404 before anything is spawned. A
// compressor that cannot be started gets a 500. Once the 200 is sent every
// failure surfaces to the client only as an abrupt connection close.
func (h *ArchiveHandler) Download(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	ctx, span := telemetry.StartArchiveSpan(ctx, telemetry.SpanArchiveResolve, id)
	req, err := h.locator.Resolve(id)
	if err != nil {
		telemetry.RecordError(ctx, err)
	}
	span.End()

	if err != nil {
		if archive.IsNotFound(err) {
			logger.DebugCtx(ctx, "archive not found", logger.KeyArchiveID, id, logger.KeyError, err)
			NotFound(w, "archive not found")
			return
		}
		logger.ErrorCtx(ctx, "archive lookup failed", logger.KeyArchiveID, id, logger.KeyError, err)
		InternalServerError(w, "archive lookup failed")
		return
	}

	out := h.supervisor.Serve(r.Context(), w, req)

	if !out.HeadersSent {
		InternalServerError(w, "failed to start compressor")
		return
	}
	if out.AbortPending {
		// Makes net/http drop the connection instead of finishing the
		// chunked body, so a truncated archive is never reported complete.
		panic(http.ErrAbortHandler)
	}
}
