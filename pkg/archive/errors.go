package archive

import (
	"errors"
	"fmt"
)

// Sentinel errors for the archive pipeline.
//
// Typed errors below unwrap to these so callers can classify failures with
// errors.Is without caring about the carried context.
var (
	// ErrNotFound means the identifier has no matching directory under the root.
	ErrNotFound = errors.New("archive not found")

	// ErrInvalidIdentifier means the identifier violates the naming policy.
	// Clients see it as a not-found response.
	ErrInvalidIdentifier = errors.New("invalid archive identifier")

	// ErrSpawnFailure means the compressor could not be started.
	ErrSpawnFailure = errors.New("compressor failed to start")

	// ErrConnectionLost means a write to the client failed.
	ErrConnectionLost = errors.New("client connection lost")

	// ErrProcessRead means reading the compressor output failed.
	ErrProcessRead = errors.New("compressor read failed")

	// ErrProcessFailed means the compressor reached end-of-stream but exited unsuccessfully.
	ErrProcessFailed = errors.New("compressor exited with failure")

	// ErrInterrupted is the cancellation cause used when the server shuts down.
	ErrInterrupted = errors.New("transfer interrupted")

	// ErrTerminated is returned by reads issued after Terminate.
	ErrTerminated = errors.New("compressor terminated")

	// ErrHeadersNotSent is returned when writing to a session that was never opened.
	ErrHeadersNotSent = errors.New("response headers not sent")

	// ErrAlreadyOpen is returned by a second Session.Open.
	ErrAlreadyOpen = errors.New("session already open")

	// ErrSessionClosed is returned when writing to a closed session.
	ErrSessionClosed = errors.New("session closed")
)

// IsNotFound reports whether err should surface to the client as a 404.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidIdentifier)
}

// SpawnError describes a compressor that could not be launched.
type SpawnError struct {
	Command string
	Dir     string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("start %s in %s: %v", e.Command, e.Dir, e.Err)
}

func (e *SpawnError) Unwrap() []error {
	return []error{ErrSpawnFailure, e.Err}
}

// ReadError wraps an I/O failure on the compressor output.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read compressor output: %v", e.Err)
}

func (e *ReadError) Unwrap() []error {
	return []error{ErrProcessRead, e.Err}
}

// ExitError reports a compressor that finished on its own with a failure status.
type ExitError struct {
	Status ExitStatus
	Err    error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("compressor exited with code %d: %v", e.Status.Code, e.Err)
	}
	return fmt.Sprintf("compressor exited with code %d", e.Status.Code)
}

func (e *ExitError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrProcessFailed}
	}
	return []error{ErrProcessFailed, e.Err}
}

// ConnectionLostError wraps a failed client write.
type ConnectionLostError struct {
	// Written is the number of body bytes delivered before the failure.
	Written int64
	Err     error
}

func (e *ConnectionLostError) Error() string {
	return fmt.Sprintf("client write failed after %d bytes: %v", e.Written, e.Err)
}

func (e *ConnectionLostError) Unwrap() []error {
	return []error{ErrConnectionLost, e.Err}
}
