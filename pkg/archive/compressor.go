package archive

import (
	"context"
	"fmt"
)

// Compressor starts a zip stream for a directory.
//
// Implementations must not block until the archive is complete: Start
// returns as soon as bytes can be read from the Stream.
type Compressor interface {
	// Start begins compressing dir. A launch failure is reported as a
	// *SpawnError and leaves nothing to clean up.
	Start(ctx context.Context, dir string) (Stream, error)

	// Name identifies the backend in logs and metrics.
	Name() string
}

// Stream is a running compression whose output is consumed in chunks.
//
// ReadChunk and Terminate may be called from different goroutines; all
// other use is single-goroutine.
type Stream interface {
	// ReadChunk reads at most len(buf) bytes. It blocks until data is
	// available and returns io.EOF once the output is exhausted. I/O
	// failures are reported as *ReadError; reads after Terminate return
	// ErrTerminated.
	ReadChunk(buf []byte) (int, error)

	// Terminate stops the compression if it is still running and always
	// reaps it. It is idempotent: later calls return the first result
	// without signalling or waiting again.
	Terminate() error

	// ExitStatus reports how the compression ended. ok is false until the
	// stream has been reaped by Terminate.
	ExitStatus() (status ExitStatus, ok bool)

	// PID is the operating system process ID, or 0 for in-process streams.
	PID() int
}

// ExitStatus describes how a compression ended.
type ExitStatus struct {
	// Code is the exit code, or -1 when the process died from a signal.
	Code int

	// Signaled reports whether the process was ended by a signal.
	Signaled bool

	// Killed reports whether Terminate had to stop a still-running
	// compression.
	Killed bool
}

// Success reports a clean, unforced exit.
func (s ExitStatus) Success() bool {
	return s.Code == 0 && !s.Signaled && !s.Killed
}

func (s ExitStatus) String() string {
	switch {
	case s.Killed:
		return "killed"
	case s.Signaled:
		return "signaled"
	default:
		return fmt.Sprintf("exit %d", s.Code)
	}
}

// Checker is implemented by compressors that can verify their
// prerequisites, such as the external command being on PATH.
type Checker interface {
	Check() error
}

// CheckCompressor runs c's Check when it has one.
func CheckCompressor(c Compressor) error {
	if ch, ok := c.(Checker); ok {
		return ch.Check()
	}
	return nil
}

// NewCompressor returns the backend selected by cfg.Compressor.
// A nil metrics disables instrumentation.
func NewCompressor(cfg Config, metrics Metrics) (Compressor, error) {
	cfg.ApplyDefaults()

	switch cfg.Compressor {
	case CompressorExec:
		return NewExecCompressor(cfg, metrics), nil
	case CompressorNative:
		return NewNativeCompressor(cfg, metrics), nil
	default:
		return nil, fmt.Errorf("unknown compressor %q", cfg.Compressor)
	}
}
