package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys. HTTP and client keys follow OpenTelemetry semantic
// conventions; archive-specific keys use the "archive." prefix.
const (
	AttrClientIP    = "client.address"
	AttrHTTPMethod  = "http.request.method"
	AttrHTTPRoute   = "http.route"
	AttrHTTPStatus  = "http.response.status_code"
	AttrHTTPReqID   = "http.request.id"
	AttrProcessPID  = "process.pid"
	AttrProcessCmd  = "process.command"
	AttrProcessExit = "process.exit.code"

	AttrArchiveID      = "archive.id"
	AttrArchivePath    = "archive.path"
	AttrTransferID     = "archive.transfer_id"
	AttrBackend        = "archive.compressor"
	AttrState          = "archive.state"
	AttrReason         = "archive.reason"
	AttrBytesWritten   = "archive.bytes_written"
	AttrChunks         = "archive.chunks"
	AttrProcessKilled  = "archive.process_killed"
	AttrQueueDepth     = "archive.queue_depth"
	AttrPacingDelayMs  = "archive.pacing_delay_ms"
	AttrHeadersWritten = "archive.headers_written"
)

// Span names. Format: <component>.<operation>
const (
	SpanHTTPRequest     = "http.request"
	SpanArchiveResolve  = "archive.resolve"
	SpanArchiveTransfer = "archive.transfer"
	SpanArchiveStart    = "archive.compressor.start"
	SpanArchiveCleanup  = "archive.cleanup"
)

// Span events recorded on the transfer span.
const (
	EventHeadersSent = "headers_sent"
	EventEndOfStream = "end_of_stream"
	EventAbort       = "abort"
)

// ClientIP returns an attribute for client IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// HTTPMethod returns an attribute for the request method
func HTTPMethod(m string) attribute.KeyValue {
	return attribute.String(AttrHTTPMethod, m)
}

// HTTPRoute returns an attribute for the matched route pattern
func HTTPRoute(r string) attribute.KeyValue {
	return attribute.String(AttrHTTPRoute, r)
}

// HTTPStatus returns an attribute for the response status code
func HTTPStatus(code int) attribute.KeyValue {
	return attribute.Int(AttrHTTPStatus, code)
}

// RequestID returns an attribute for the request ID
func RequestID(id string) attribute.KeyValue {
	return attribute.String(AttrHTTPReqID, id)
}

// ArchiveID returns an attribute for the requested archive identifier
func ArchiveID(id string) attribute.KeyValue {
	return attribute.String(AttrArchiveID, id)
}

// ArchivePath returns an attribute for the resolved archive directory
func ArchivePath(p string) attribute.KeyValue {
	return attribute.String(AttrArchivePath, p)
}

// TransferID returns an attribute for the transfer ID
func TransferID(id string) attribute.KeyValue {
	return attribute.String(AttrTransferID, id)
}

// Backend returns an attribute for the compressor backend
func Backend(name string) attribute.KeyValue {
	return attribute.String(AttrBackend, name)
}

// State returns an attribute for the terminal transfer state
func State(s string) attribute.KeyValue {
	return attribute.String(AttrState, s)
}

// Reason returns an attribute for the reason a transfer was aborted
func Reason(r string) attribute.KeyValue {
	return attribute.String(AttrReason, r)
}

// BytesWritten returns an attribute for bytes delivered to the client
func BytesWritten(n int64) attribute.KeyValue {
	return attribute.Int64(AttrBytesWritten, n)
}

// Chunks returns an attribute for chunks delivered to the client
func Chunks(n int) attribute.KeyValue {
	return attribute.Int(AttrChunks, n)
}

// ProcessPID returns an attribute for a child process ID
func ProcessPID(pid int) attribute.KeyValue {
	return attribute.Int(AttrProcessPID, pid)
}

// ProcessCommand returns an attribute for a child process command
func ProcessCommand(cmd string) attribute.KeyValue {
	return attribute.String(AttrProcessCmd, cmd)
}

// ProcessExitCode returns an attribute for a child exit code
func ProcessExitCode(code int) attribute.KeyValue {
	return attribute.Int(AttrProcessExit, code)
}

// ProcessKilled returns an attribute telling whether the child was signalled
func ProcessKilled(killed bool) attribute.KeyValue {
	return attribute.Bool(AttrProcessKilled, killed)
}

// StartArchiveSpan starts a span for an archive pipeline operation.
func StartArchiveSpan(ctx context.Context, name, archiveID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := make([]attribute.KeyValue, 0, len(attrs)+1)
	all = append(all, ArchiveID(archiveID))
	all = append(all, attrs...)
	return StartSpan(ctx, name, trace.WithAttributes(all...))
}

// StartHTTPSpan starts a server span for an inbound request.
func StartHTTPSpan(ctx context.Context, method, route string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := make([]attribute.KeyValue, 0, len(attrs)+2)
	all = append(all, HTTPMethod(method), HTTPRoute(route))
	all = append(all, attrs...)
	return StartSpan(ctx, SpanHTTPRequest, trace.WithSpanKind(trace.SpanKindServer), trace.WithAttributes(all...))
}
