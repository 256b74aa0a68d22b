package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/marmos91/zipline/internal/logger"
	"github.com/marmos91/zipline/internal/telemetry"
	"github.com/marmos91/zipline/pkg/bufpool"
)

// State is the lifecycle state of a transfer.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Reason explains why a transfer was aborted.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonSpawnFailure     Reason = "spawn_failure"
	ReasonHeaderWrite      Reason = "header_write"
	ReasonConnectionLost   Reason = "connection_lost"
	ReasonProcessReadError Reason = "process_read_error"
	ReasonProcessFailed    Reason = "process_failed"
	ReasonInterrupted      Reason = "interrupted"
	ReasonCancelled        Reason = "cancelled"
)

// Outcome summarises a finished transfer.
type Outcome struct {
	TransferID string
	ArchiveID  string
	Backend    string

	State  State
	Reason Reason

	// Err is the error that aborted the transfer, nil when completed.
	Err error

	// CleanupErr joins errors raised while terminating the stream and
	// closing the session. Cleanup errors never change State.
	CleanupErr error

	Bytes    int64
	Chunks   int
	Duration time.Duration

	// Exit is the compressor exit status; ExitKnown is false when no
	// compressor was started.
	Exit      ExitStatus
	ExitKnown bool

	// HeadersSent reports whether the 200 response was committed. When it
	// is false the caller still owns the response.
	HeadersSent bool

	// AbortPending is set when the connection could not be closed
	// abruptly and the handler must panic with http.ErrAbortHandler.
	AbortPending bool
}

// Supervisor runs transfers. One Supervisor serves all requests; each
// Serve call owns its own stream, session and goroutine.
type Supervisor struct {
	compressor Compressor
	pool       *bufpool.Pool
	metrics    Metrics
	delay      time.Duration
	depth      int
	filename   string
}

// NewSupervisor returns a supervisor streaming with compressor under cfg.
func NewSupervisor(cfg Config, compressor Compressor, metrics Metrics) *Supervisor {
	cfg.ApplyDefaults()
	return &Supervisor{
		compressor: compressor,
		pool:       bufpool.NewPool(cfg.ChunkSize.Int()),
		metrics:    orNoop(metrics),
		delay:      cfg.Delay,
		depth:      cfg.QueueDepth,
		filename:   cfg.Filename,
	}
}

// Pool exposes the chunk buffer pool.
func (s *Supervisor) Pool() *bufpool.Pool { return s.pool }

// Serve streams the archive for req to w and returns once the transfer
// reached a terminal state and both cleanup actions ran.
//
// Serve never writes an error response itself: when the compressor cannot
// be started the returned outcome has HeadersSent false and the caller
// decides what to send.
func (s *Supervisor) Serve(ctx context.Context, w http.ResponseWriter, req *ArchiveRequest) *Outcome {
	start := time.Now()
	out := &Outcome{
		TransferID: uuid.NewString(),
		ArchiveID:  req.ID,
		Backend:    s.compressor.Name(),
		State:      StateIdle,
	}

	if lc := logger.FromContext(ctx); lc != nil {
		ctx = logger.WithContext(ctx, lc.WithArchive(req.ID).WithTransfer(out.TransferID))
	} else {
		lc := logger.NewLogContext("").WithArchive(req.ID).WithTransfer(out.TransferID)
		ctx = logger.WithContext(ctx, lc)
	}

	ctx, span := telemetry.StartArchiveSpan(ctx, telemetry.SpanArchiveTransfer, req.ID,
		telemetry.TransferID(out.TransferID),
		telemetry.Backend(out.Backend),
		telemetry.ArchivePath(req.Path),
		attribute.Int(telemetry.AttrQueueDepth, s.depth),
		attribute.Int64(telemetry.AttrPacingDelayMs, s.delay.Milliseconds()),
	)
	defer span.End()

	defer func() {
		out.Duration = time.Since(start)
		s.finish(ctx, span, out)
	}()

	stream, err := s.start(ctx, req)
	if err != nil {
		out.State = StateAborted
		out.Reason = ReasonSpawnFailure
		out.Err = err
		return out
	}

	filename := req.Filename
	if filename == "" {
		filename = s.filename
	}
	session := NewSession(w, filename)
	q := newChunkQueue(s.depth, s.pool)
	producerDone := make(chan struct{})

	defer func() {
		out.CleanupErr = s.cleanup(ctx, out, stream, session, q, producerDone)
	}()

	go func() {
		defer close(producerDone)
		q.produce(stream)
	}()

	if err := session.Open(); err != nil {
		out.State = StateAborted
		out.Reason = ReasonHeaderWrite
		out.Err = err
		out.HeadersSent = session.HeaderWritten()
		return out
	}
	out.HeadersSent = true
	out.State = StateStreaming
	s.metrics.TransferStarted()
	telemetry.AddEvent(ctx, telemetry.EventHeadersSent)

	s.stream(ctx, out, stream, session, q)
	return out
}

func (s *Supervisor) start(ctx context.Context, req *ArchiveRequest) (Stream, error) {
	ctx, span := telemetry.StartArchiveSpan(ctx, telemetry.SpanArchiveStart, req.ID, telemetry.Backend(s.compressor.Name()))
	defer span.End()

	stream, err := s.compressor.Start(ctx, req.Path)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	if pid := stream.PID(); pid > 0 {
		span.SetAttributes(telemetry.ProcessPID(pid))
	}
	return stream, nil
}

// stream runs the consumer loop until the transfer reaches a terminal state.
func (s *Supervisor) stream(ctx context.Context, out *Outcome, stream Stream, session *Session, q *chunkQueue) {
	for {
		select {
		case <-ctx.Done():
			s.abortOnCancel(ctx, out)
			return

		case c, ok := <-q.items:
			if !ok {
				s.endOfOutput(ctx, out, stream, q.err)
				return
			}

			err := session.Write(c.data())
			n := c.n
			q.release(c)
			out.Bytes = session.BytesWritten()
			if err != nil {
				out.State = StateAborted
				out.Reason = ReasonConnectionLost
				out.Err = err
				return
			}
			out.Chunks++
			s.metrics.ChunkWritten(n)

			if s.delay > 0 {
				if err := pace(ctx, s.delay); err != nil {
					s.abortOnCancel(ctx, out)
					return
				}
			}
		}
	}
}

// endOfOutput classifies the producer's terminal error.
func (s *Supervisor) endOfOutput(ctx context.Context, out *Outcome, stream Stream, err error) {
	if !errors.Is(err, io.EOF) {
		out.State = StateAborted
		out.Reason = ReasonProcessReadError
		out.Err = err
		return
	}

	telemetry.AddEvent(ctx, telemetry.EventEndOfStream)

	// Reap now to learn the exit status; cleanup's Terminate is then a no-op.
	if err := stream.Terminate(); err != nil {
		out.State = StateAborted
		out.Reason = ReasonProcessFailed
		out.Err = fmt.Errorf("reap compressor: %w", err)
		return
	}

	status, known := stream.ExitStatus()
	if known && !status.Success() {
		out.State = StateAborted
		out.Reason = ReasonProcessFailed
		out.Err = &ExitError{Status: status}
		return
	}

	out.State = StateCompleted
}

// abortOnCancel records an abort caused by ctx. Server shutdown cancels
// with ErrInterrupted; net/http cancels a request whose client went away.
func (s *Supervisor) abortOnCancel(ctx context.Context, out *Outcome) {
	cause := context.Cause(ctx)
	out.State = StateAborted
	switch {
	case errors.Is(cause, ErrInterrupted):
		out.Reason = ReasonInterrupted
		out.Err = cause
	case errors.Is(cause, context.Canceled):
		out.Reason = ReasonConnectionLost
		out.Err = &ConnectionLostError{Written: out.Bytes, Err: cause}
	default:
		out.Reason = ReasonCancelled
		out.Err = cause
	}
}

// cleanup runs the exit actions: terminate and reap the stream, then close
// the session. The session is closed even if terminating panics.
func (s *Supervisor) cleanup(ctx context.Context, out *Outcome, stream Stream, session *Session, q *chunkQueue, producerDone <-chan struct{}) (err error) {
	ctx, span := telemetry.StartArchiveSpan(ctx, telemetry.SpanArchiveCleanup, out.ArchiveID)
	defer span.End()

	mode := CloseForced
	if out.State == StateCompleted {
		mode = CloseGraceful
	}

	var termErr error
	defer func() {
		closeErr := session.Close(mode)
		out.AbortPending = session.AbortPending()
		out.Bytes = session.BytesWritten()
		if closeErr != nil {
			closeErr = fmt.Errorf("close session: %w", closeErr)
		}
		err = errors.Join(termErr, closeErr)
		if err != nil {
			telemetry.RecordError(ctx, err)
		}
	}()

	q.stop()
	if termErr = stream.Terminate(); termErr != nil {
		termErr = fmt.Errorf("terminate compressor: %w", termErr)
	}
	<-producerDone
	q.drain()

	out.Exit, out.ExitKnown = stream.ExitStatus()
	span.SetAttributes(telemetry.ProcessKilled(out.Exit.Killed), telemetry.ProcessExitCode(out.Exit.Code))
	return nil
}

// finish records the outcome in logs, metrics and the transfer span.
func (s *Supervisor) finish(ctx context.Context, span trace.Span, out *Outcome) {
	span.SetAttributes(
		telemetry.State(out.State.String()),
		telemetry.BytesWritten(out.Bytes),
		telemetry.Chunks(out.Chunks),
		attribute.Bool(telemetry.AttrHeadersWritten, out.HeadersSent),
	)

	args := []any{
		logger.KeyState, out.State.String(),
		logger.KeyBytesWritten, out.Bytes,
		logger.KeyChunks, out.Chunks,
		logger.KeyDurationMs, float64(out.Duration.Microseconds()) / 1000.0,
		logger.KeyBackend, out.Backend,
	}
	if out.ExitKnown {
		args = append(args, logger.KeyExitCode, out.Exit.Code, logger.KeyKilled, out.Exit.Killed)
	}
	if out.CleanupErr != nil {
		args = append(args, logger.KeyCleanupErr, out.CleanupErr.Error())
	}

	if out.State == StateCompleted {
		span.SetStatus(codes.Ok, "")
		logger.InfoCtx(ctx, "transfer completed", args...)
	} else {
		span.SetAttributes(telemetry.Reason(string(out.Reason)))
		span.AddEvent(telemetry.EventAbort)
		if out.Err != nil {
			span.RecordError(out.Err)
			args = append(args, logger.KeyError, out.Err.Error())
		}
		span.SetStatus(codes.Error, string(out.Reason))
		args = append(args, logger.KeyReason, string(out.Reason))

		switch out.Reason {
		case ReasonConnectionLost, ReasonInterrupted:
			logger.InfoCtx(ctx, "transfer aborted", args...)
		default:
			logger.WarnCtx(ctx, "transfer aborted", args...)
		}
	}

	s.metrics.TransferFinished(out)
}

// pace waits d or until ctx is done.
func pace(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}
