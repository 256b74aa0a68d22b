package archive

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

// requireCommand skips the test when name is not on PATH.
func requireCommand(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
}

// writeTree creates files (relative path -> content) under dir.
func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// writeRandomFile creates an incompressible file of size bytes.
func writeRandomFile(t *testing.T, path string, size int) {
	t.Helper()
	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// readZip returns the regular file entries of a zip archive.
func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	files := map[string]string{}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		files[f.Name] = string(content)
	}
	return files
}

// drainStream reads s to end-of-stream.
func drainStream(t *testing.T, s Stream) []byte {
	t.Helper()
	var out bytes.Buffer
	buf := make([]byte, 4096)
	for {
		n, err := s.ReadChunk(buf)
		out.Write(buf[:n])
		if errors.Is(err, io.EOF) {
			return out.Bytes()
		}
		require.NoError(t, err)
	}
}

// countingMetrics records archive events for assertions.
type countingMetrics struct {
	started  atomic.Int64
	failed   atomic.Int64
	reaped   atomic.Int64
	streams  atomic.Int64
	chunks   atomic.Int64
	finished atomic.Int64

	mu       sync.Mutex
	statuses []ExitStatus
	outcomes []*Outcome
}

func (m *countingMetrics) CompressorStarted(string) { m.started.Add(1) }
func (m *countingMetrics) CompressorFailed(string)  { m.failed.Add(1) }

func (m *countingMetrics) CompressorReaped(_ string, s ExitStatus) {
	m.mu.Lock()
	m.statuses = append(m.statuses, s)
	m.mu.Unlock()
	m.reaped.Add(1)
}

func (m *countingMetrics) TransferStarted()   { m.streams.Add(1) }
func (m *countingMetrics) ChunkWritten(n int) { m.chunks.Add(1) }

func (m *countingMetrics) TransferFinished(out *Outcome) {
	m.mu.Lock()
	m.outcomes = append(m.outcomes, out)
	m.mu.Unlock()
	m.finished.Add(1)
}

// fakeCompressor yields scripted chunks without spawning anything.
type fakeCompressor struct {
	chunks   [][]byte
	readErr  error // returned after the chunks instead of io.EOF
	exit     ExitStatus
	startErr error
	block    bool // block after the chunks until terminated

	mu      sync.Mutex
	streams []*fakeStream
	events  *eventLog
}

func (c *fakeCompressor) Name() string { return "fake" }

func (c *fakeCompressor) Start(_ context.Context, dir string) (Stream, error) {
	if c.startErr != nil {
		return nil, &SpawnError{Command: "fake", Dir: dir, Err: c.startErr}
	}
	s := &fakeStream{c: c, unblock: make(chan struct{})}
	c.mu.Lock()
	c.streams = append(c.streams, s)
	c.mu.Unlock()
	return s, nil
}

func (c *fakeCompressor) started() []*fakeStream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*fakeStream(nil), c.streams...)
}

type fakeStream struct {
	c         *fakeCompressor
	next      int
	reads     atomic.Int64
	terminate atomic.Int64
	unblock   chan struct{}
	once      sync.Once

	mu     sync.Mutex
	status ExitStatus
	known  bool
}

func (s *fakeStream) PID() int { return 0 }

func (s *fakeStream) ReadChunk(buf []byte) (int, error) {
	s.reads.Add(1)
	s.c.events.add("read")

	if s.next < len(s.c.chunks) {
		n := copy(buf, s.c.chunks[s.next])
		s.next++
		return n, nil
	}
	if s.c.block {
		<-s.unblock
		return 0, ErrTerminated
	}
	if s.c.readErr != nil {
		return 0, &ReadError{Err: s.c.readErr}
	}
	return 0, io.EOF
}

func (s *fakeStream) Terminate() error {
	s.terminate.Add(1)
	s.once.Do(func() {
		close(s.unblock)
		s.mu.Lock()
		s.status, s.known = s.c.exit, true
		s.mu.Unlock()
	})
	return nil
}

func (s *fakeStream) ExitStatus() (ExitStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.known
}

// eventLog records an interleaving of reads and writes. A nil log ignores events.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// recordingWriter is an http.ResponseWriter that logs writes and can fail
// after a byte budget.
type recordingWriter struct {
	header  http.Header
	status  int
	body    bytes.Buffer
	events  *eventLog
	failAt  int // fail writes once body would exceed failAt bytes; 0 disables
	flushes int
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{header: http.Header{}}
}

func (w *recordingWriter) Header() http.Header { return w.header }

func (w *recordingWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	if w.failAt > 0 && w.body.Len()+len(p) > w.failAt {
		return 0, errors.New("write: broken pipe")
	}
	w.events.add("write")
	return w.body.Write(p)
}

func (w *recordingWriter) Flush() { w.flushes++ }
