package logger

import (
	"log/slog"
	"time"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// Distributed tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// HTTP
	KeyRequestID = "request_id"
	KeyMethod    = "method"
	KeyPath      = "path"
	KeyStatus    = "status"
	KeyClientIP  = "client_ip"
	KeyAddr      = "addr"

	// Archive transfer
	KeyTransferID   = "transfer_id"
	KeyArchiveID    = "archive_id"
	KeyDir          = "dir"
	KeyRoot         = "root"
	KeyState        = "state"
	KeyReason       = "reason"
	KeyBytesWritten = "bytes_written"
	KeyChunks       = "chunks"
	KeyBackend      = "backend"

	// Compressor process
	KeyCommand  = "command"
	KeyPID      = "pid"
	KeyExitCode = "exit_code"
	KeySignaled = "signaled"
	KeyKilled   = "killed"

	// Operation metadata
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyCleanupErr = "cleanup_error"
	KeyFile       = "file"
	KeyLevel      = "level"
)

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// RequestID returns a slog.Attr for the HTTP request ID
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// Method returns a slog.Attr for the HTTP method
func Method(m string) slog.Attr {
	return slog.String(KeyMethod, m)
}

// Path returns a slog.Attr for a URL or filesystem path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Status returns a slog.Attr for an HTTP status code
func Status(code int) slog.Attr {
	return slog.Int(KeyStatus, code)
}

// ClientIP returns a slog.Attr for client IP address
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// Addr returns a slog.Attr for a listen address
func Addr(addr string) slog.Attr {
	return slog.String(KeyAddr, addr)
}

// TransferID returns a slog.Attr for the archive transfer ID
func TransferID(id string) slog.Attr {
	return slog.String(KeyTransferID, id)
}

// ArchiveID returns a slog.Attr for the requested archive identifier
func ArchiveID(id string) slog.Attr {
	return slog.String(KeyArchiveID, id)
}

// Dir returns a slog.Attr for the directory being archived
func Dir(d string) slog.Attr {
	return slog.String(KeyDir, d)
}

// State returns a slog.Attr for a transfer state
func State(s string) slog.Attr {
	return slog.String(KeyState, s)
}

// Reason returns a slog.Attr for the reason a transfer ended
func Reason(r string) slog.Attr {
	return slog.String(KeyReason, r)
}

// BytesWritten returns a slog.Attr for bytes delivered to the client
func BytesWritten(n int64) slog.Attr {
	return slog.Int64(KeyBytesWritten, n)
}

// Chunks returns a slog.Attr for the number of chunks delivered
func Chunks(n int) slog.Attr {
	return slog.Int(KeyChunks, n)
}

// Backend returns a slog.Attr for the compressor backend name
func Backend(b string) slog.Attr {
	return slog.String(KeyBackend, b)
}

// Command returns a slog.Attr for an external command
func Command(c string) slog.Attr {
	return slog.String(KeyCommand, c)
}

// PID returns a slog.Attr for a process ID
func PID(pid int) slog.Attr {
	return slog.Int(KeyPID, pid)
}

// ExitCode returns a slog.Attr for a process exit code
func ExitCode(code int) slog.Attr {
	return slog.Int(KeyExitCode, code)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Elapsed returns a slog.Attr for the milliseconds elapsed since start
func Elapsed(start time.Time) slog.Attr {
	return slog.Float64(KeyDurationMs, Duration(start))
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// CleanupErr returns a slog.Attr for an error raised while releasing resources
func CleanupErr(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyCleanupErr, err.Error())
}
