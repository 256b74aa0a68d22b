package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/marmos91/zipline/internal/logger"
)

// NativeCompressor produces the zip stream in process. Regular files and
// directories are archived with paths relative to the archive directory;
// symlinks and special files are skipped.
type NativeCompressor struct {
	level   int
	metrics Metrics
}

// NewNativeCompressor builds the in-process backend from cfg.
func NewNativeCompressor(cfg Config, metrics Metrics) *NativeCompressor {
	cfg.ApplyDefaults()
	return &NativeCompressor{
		level:   cfg.CompressionLevel,
		metrics: orNoop(metrics),
	}
}

// Name implements Compressor.
func (c *NativeCompressor) Name() string { return CompressorNative }

// Start opens dir and begins writing the archive into a pipe from a
// background goroutine.
func (c *NativeCompressor) Start(ctx context.Context, dir string) (Stream, error) {
	info, err := os.Stat(dir)
	if err == nil && !info.IsDir() {
		err = fmt.Errorf("%s is not a directory", dir)
	}
	if err != nil {
		c.metrics.CompressorFailed(c.Name())
		return nil, &SpawnError{Command: c.Name(), Dir: dir, Err: err}
	}

	pr, pw := io.Pipe()
	s := &nativeStream{
		pr:      pr,
		done:    make(chan struct{}),
		backend: c.Name(),
		metrics: c.metrics,
	}

	go func() {
		defer close(s.done)
		err := writeZip(pw, dir, c.level)
		s.writeErr = err
		s.finished.Store(true)
		_ = pw.CloseWithError(err)
		if err != nil && !errors.Is(err, ErrTerminated) {
			logger.DebugCtx(ctx, "native compressor failed", logger.KeyDir, dir, logger.KeyError, err)
		}
	}()

	c.metrics.CompressorStarted(c.Name())
	return s, nil
}

// writeZip walks dir and writes a zip archive of it to w.
func writeZip(w io.Writer, dir string, level int) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)

		switch {
		case d.IsDir():
			_, err := zw.CreateHeader(&zip.FileHeader{Name: name + "/", Method: zip.Store})
			return err
		case d.Type().IsRegular():
			return addFile(zw, path, name, d)
		default:
			return nil
		}
	})
	if err != nil {
		return err
	}
	return zw.Close()
}

func addFile(zw *zip.Writer, path, name string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(dst, f)
	return err
}

// nativeStream is the Stream of a NativeCompressor.
type nativeStream struct {
	pr      *io.PipeReader
	done    chan struct{}
	backend string
	metrics Metrics

	// writeErr is set by the writer goroutine before done is closed.
	writeErr error

	// finished is set before the pipe is closed, so a reader that saw EOF
	// always observes it.
	finished   atomic.Bool
	terminated atomic.Bool
	termOnce   sync.Once

	statusMu    sync.Mutex
	status      ExitStatus
	statusKnown bool
}

func (s *nativeStream) PID() int { return 0 }

func (s *nativeStream) ReadChunk(buf []byte) (int, error) {
	if s.terminated.Load() {
		return 0, ErrTerminated
	}

	n, err := s.pr.Read(buf)
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.EOF):
		return n, io.EOF
	case errors.Is(err, ErrTerminated), errors.Is(err, io.ErrClosedPipe):
		return n, ErrTerminated
	default:
		return n, &ReadError{Err: err}
	}
}

func (s *nativeStream) Terminate() error {
	s.termOnce.Do(func() {
		s.terminated.Store(true)

		killed := !s.finished.Load()

		// Unblocks the writer goroutine if it is waiting on the pipe.
		_ = s.pr.CloseWithError(ErrTerminated)
		<-s.done

		status := ExitStatus{Killed: killed}
		if killed {
			status.Code = -1
			status.Signaled = true
		} else if s.writeErr != nil {
			status.Code = 1
		}

		s.statusMu.Lock()
		s.status = status
		s.statusKnown = true
		s.statusMu.Unlock()

		s.metrics.CompressorReaped(s.backend, status)
	})
	return nil
}

func (s *nativeStream) ExitStatus() (ExitStatus, bool) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return s.status, s.statusKnown
}
