// Package middleware provides HTTP middleware for the zipline API.
package middleware

import (
	"net"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/zipline/internal/logger"
)

// clientIP strips the port from r.RemoteAddr. RealIP must run first for
// proxied requests.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RequestLogger attaches a LogContext to the request and logs its start
// (DEBUG) and completion (INFO).
//
// Completion is logged from a deferred call so that aborted streams, which
// unwind with http.ErrAbortHandler, are still recorded.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		lc := logger.NewLogContext(clientIP(r)).WithRequestID(chimw.GetReqID(r.Context()))
		ctx := logger.WithContext(r.Context(), lc)
		r = r.WithContext(ctx)

		logger.DebugCtx(ctx, "request started",
			logger.KeyMethod, r.Method,
			logger.KeyPath, r.URL.Path,
			logger.KeyAddr, r.RemoteAddr,
		)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		aborted := true
		defer func() {
			args := []any{
				logger.KeyMethod, r.Method,
				logger.KeyPath, r.URL.Path,
				logger.KeyStatus, ww.Status(),
				"bytes", ww.BytesWritten(),
				logger.KeyDurationMs, logger.Duration(start),
			}
			if aborted {
				logger.InfoCtx(ctx, "request aborted", args...)
				return
			}
			logger.InfoCtx(ctx, "request completed", args...)
		}()

		next.ServeHTTP(ww, r)
		aborted = false
	})
}
