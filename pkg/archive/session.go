package archive

import (
	"errors"
	"mime"
	"net/http"
	"sync"
	"sync/atomic"
)

// ContentType is the media type of every archive response.
const ContentType = "application/zip"

// CloseMode selects how a Session ends.
type CloseMode int

const (
	// CloseGraceful completes the response normally; net/http sends the
	// terminating chunk once the handler returns.
	CloseGraceful CloseMode = iota

	// CloseForced drops the connection without an end-of-stream marker so
	// the client cannot mistake a truncated archive for a complete one.
	CloseForced
)

func (m CloseMode) String() string {
	if m == CloseForced {
		return "forced"
	}
	return "graceful"
}

// Session is the outbound side of one transfer: it owns the response
// headers, chunk writes and the final close.
//
// Open, Write and Close are called from the handler goroutine. The
// accessors may be called from any goroutine.
type Session struct {
	w        http.ResponseWriter
	rc       *http.ResponseController
	filename string

	opened       atomic.Bool
	written      atomic.Int64
	closed       atomic.Bool
	abortPending atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

// NewSession wraps w. filename is announced in Content-Disposition.
func NewSession(w http.ResponseWriter, filename string) *Session {
	if filename == "" {
		filename = DefaultFilename
	}
	return &Session{
		w:        w,
		rc:       http.NewResponseController(w),
		filename: filename,
	}
}

// Open writes the response headers and status 200 and flushes them so the
// client sees the download start immediately. It must be called exactly
// once, before any Write.
func (s *Session) Open() error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if !s.opened.CompareAndSwap(false, true) {
		return ErrAlreadyOpen
	}

	h := s.w.Header()
	h.Set("Content-Type", ContentType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": s.filename}))
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Cache-Control", "no-store")
	h.Del("Content-Length")
	s.w.WriteHeader(http.StatusOK)

	if err := s.flush(); err != nil {
		return &ConnectionLostError{Err: err}
	}
	return nil
}

// Write sends p to the client and flushes it. Any failure means the client
// is gone and is reported as *ConnectionLostError.
func (s *Session) Write(p []byte) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if !s.opened.Load() {
		return ErrHeadersNotSent
	}

	n, err := s.w.Write(p)
	s.written.Add(int64(n))
	if err == nil {
		err = s.flush()
	}
	if err != nil {
		return &ConnectionLostError{Written: s.written.Load(), Err: err}
	}
	return nil
}

// Close ends the session. Only the first call has an effect; later calls
// return the first result.
func (s *Session) Close(mode CloseMode) error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if mode == CloseForced {
			s.closeErr = s.abort()
			return
		}
		if s.opened.Load() {
			s.closeErr = s.flush()
		}
	})
	return s.closeErr
}

// abort closes the underlying connection. When the writer cannot be
// hijacked the caller must abort the handler with http.ErrAbortHandler,
// see AbortPending.
func (s *Session) abort() error {
	conn, _, err := s.rc.Hijack()
	if err != nil {
		s.abortPending.Store(true)
		return nil
	}
	return conn.Close()
}

func (s *Session) flush() error {
	err := s.rc.Flush()
	if errors.Is(err, http.ErrNotSupported) {
		return nil
	}
	return err
}

// HeaderWritten reports whether Open succeeded in writing the headers.
func (s *Session) HeaderWritten() bool { return s.opened.Load() }

// BytesWritten is the number of body bytes handed to the connection.
func (s *Session) BytesWritten() int64 { return s.written.Load() }

// Closed reports whether Close has been called.
func (s *Session) Closed() bool { return s.closed.Load() }

// AbortPending reports that a forced close could not hijack the
// connection. The handler must then panic with http.ErrAbortHandler so
// net/http resets the stream instead of completing it.
func (s *Session) AbortPending() bool { return s.abortPending.Load() }
