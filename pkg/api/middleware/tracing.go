package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/codes"

	"github.com/marmos91/zipline/internal/logger"
	"github.com/marmos91/zipline/internal/telemetry"
)

// Tracing starts a server span per request, continuing any W3C trace
// context sent by the client. The trace and span IDs are copied into the
// request's LogContext so log lines can be correlated with the trace.
func Tracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := telemetry.ExtractHTTP(r.Context(), r.Header)
		ctx, span := telemetry.StartHTTPSpan(ctx, r.Method, r.URL.Path,
			telemetry.ClientIP(clientIP(r)),
			telemetry.RequestID(chimw.GetReqID(ctx)),
		)
		defer span.End()

		if lc := logger.FromContext(ctx); lc != nil && telemetry.IsEnabled() {
			ctx = logger.WithContext(ctx, lc.WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx)))
		}

		ww, ok := w.(chimw.WrapResponseWriter)
		if !ok {
			ww = chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		}

		defer func() {
			if rc := chi.RouteContext(ctx); rc != nil {
				if pattern := rc.RoutePattern(); pattern != "" {
					span.SetAttributes(telemetry.HTTPRoute(pattern))
				}
			}
			status := ww.Status()
			if status == 0 {
				// Headers never written: the handler panicked or aborted.
				span.SetStatus(codes.Error, "response aborted")
				return
			}
			span.SetAttributes(telemetry.HTTPStatus(status))
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
		}()

		next.ServeHTTP(ww, r.WithContext(ctx))
	})
}
