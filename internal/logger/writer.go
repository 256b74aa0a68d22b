package logger

import (
	"bytes"
	"context"
	"sync"
)

// maxLineLength caps a buffered line; longer output is emitted in pieces.
const maxLineLength = 4096

// LineWriter is an io.WriteCloser that logs every complete line written to
// it at debug level. It is used to surface child process stderr.
type LineWriter struct {
	ctx  context.Context
	msg  string
	args []any

	mu  sync.Mutex
	buf bytes.Buffer
}

// NewLineWriter returns a writer logging each line as msg with args and a
// "line" attribute. Context fields from ctx are included.
func NewLineWriter(ctx context.Context, msg string, args ...any) *LineWriter {
	return &LineWriter{ctx: ctx, msg: msg, args: args}
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadBytes('\n')
		if err != nil {
			// Incomplete line: keep it for the next write unless it grew too long.
			if len(line) >= maxLineLength {
				w.emit(line)
			} else {
				w.buf.Write(line)
			}
			break
		}
		w.emit(bytes.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

// Close flushes a trailing partial line.
func (w *LineWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() > 0 {
		w.emit(w.buf.Bytes())
		w.buf.Reset()
	}
	return nil
}

func (w *LineWriter) emit(line []byte) {
	if len(line) == 0 {
		return
	}
	args := append(append([]any{}, w.args...), "line", string(line))
	DebugCtx(w.ctx, w.msg, args...)
}
