package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execConfig(command string, args ...string) Config {
	return Config{
		Command:        command,
		Args:           args,
		TerminateGrace: 2 * time.Second,
	}
}

func TestExecCompressorZip(t *testing.T) {
	requireCommand(t, "zip")

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"a.txt":        "hello",
		"nested/b.txt": "world",
	})

	m := &countingMetrics{}
	c := NewExecCompressor(Config{}, m)
	assert.Equal(t, CompressorExec, c.Name())

	s, err := c.Start(context.Background(), dir)
	require.NoError(t, err)
	assert.Positive(t, s.PID())

	data := drainStream(t, s)
	require.NoError(t, s.Terminate())

	status, ok := s.ExitStatus()
	require.True(t, ok)
	assert.True(t, status.Success(), status.String())

	files := readZip(t, data)
	assert.Equal(t, map[string]string{"a.txt": "hello", "nested/b.txt": "world"}, files)

	assert.Equal(t, int64(1), m.started.Load())
	assert.Equal(t, int64(1), m.reaped.Load())
	assert.Zero(t, m.failed.Load())
}

func TestExecCompressorSpawnFailure(t *testing.T) {
	m := &countingMetrics{}
	c := NewExecCompressor(execConfig("zipline-no-such-command"), m)

	s, err := c.Start(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrSpawnFailure)

	var spawnErr *SpawnError
	require.True(t, errors.As(err, &spawnErr))
	assert.Equal(t, "zipline-no-such-command", spawnErr.Command)

	assert.Equal(t, int64(1), m.failed.Load())
	assert.Zero(t, m.started.Load())
	assert.Zero(t, m.reaped.Load())
}

func TestExecCompressorMissingDirectory(t *testing.T) {
	requireCommand(t, "sh")

	c := NewExecCompressor(execConfig("sh", "-c", "true"), nil)
	_, err := c.Start(context.Background(), t.TempDir()+"/gone")
	assert.ErrorIs(t, err, ErrSpawnFailure)
}

func TestProcessTerminateRunning(t *testing.T) {
	requireCommand(t, "yes")

	m := &countingMetrics{}
	c := NewExecCompressor(execConfig("yes", "y"), m)

	s, err := c.Start(context.Background(), t.TempDir())
	require.NoError(t, err)
	pid := s.PID()

	buf := make([]byte, 1024)
	n, err := s.ReadChunk(buf)
	require.NoError(t, err)
	assert.Positive(t, n)

	require.NoError(t, s.Terminate())
	require.NoError(t, s.Terminate())

	status, ok := s.ExitStatus()
	require.True(t, ok)
	assert.True(t, status.Killed)
	assert.True(t, status.Signaled)
	assert.False(t, status.Success())
	assert.Equal(t, "killed", status.String())

	assert.Equal(t, int64(1), m.reaped.Load(), "a stream is reaped exactly once")

	if runtime.GOOS == "linux" {
		_, err := os.Stat(fmt.Sprintf("/proc/%d", pid))
		assert.True(t, os.IsNotExist(err), "process %d still present", pid)
	}
}

func TestProcessReadAfterTerminate(t *testing.T) {
	requireCommand(t, "yes")

	c := NewExecCompressor(execConfig("yes", "y"), nil)
	s, err := c.Start(context.Background(), t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Terminate())

	_, err = s.ReadChunk(make([]byte, 16))
	assert.ErrorIs(t, err, ErrTerminated)
}

func TestProcessExitAfterEOF(t *testing.T) {
	requireCommand(t, "sh")

	c := NewExecCompressor(execConfig("sh", "-c", "printf abc"), nil)
	s, err := c.Start(context.Background(), t.TempDir())
	require.NoError(t, err)

	data := drainStream(t, s)
	assert.Equal(t, "abc", string(data))

	require.NoError(t, s.Terminate())
	status, ok := s.ExitStatus()
	require.True(t, ok)
	assert.True(t, status.Success())
	assert.False(t, status.Killed)
}

func TestProcessNonZeroExit(t *testing.T) {
	requireCommand(t, "sh")

	c := NewExecCompressor(execConfig("sh", "-c", "printf x; exit 3"), nil)
	s, err := c.Start(context.Background(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "x", string(drainStream(t, s)))
	require.NoError(t, s.Terminate())

	status, ok := s.ExitStatus()
	require.True(t, ok)
	assert.Equal(t, 3, status.Code)
	assert.False(t, status.Signaled)
	assert.False(t, status.Killed)
	assert.False(t, status.Success())
	assert.Equal(t, "exit 3", status.String())
}

func TestProcessTerminateUnblocksReader(t *testing.T) {
	requireCommand(t, "sleep")

	c := NewExecCompressor(execConfig("sleep", "30"), nil)
	s, err := c.Start(context.Background(), t.TempDir())
	require.NoError(t, err)

	readErr := make(chan error, 1)
	go func() {
		_, err := s.ReadChunk(make([]byte, 16))
		readErr <- err
	}()

	// Give the reader time to block on the empty pipe.
	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	require.NoError(t, s.Terminate())
	assert.Less(t, time.Since(start), 5*time.Second)

	select {
	case err := <-readErr:
		assert.ErrorIs(t, err, ErrTerminated)
	case <-time.After(5 * time.Second):
		t.Fatal("reader still blocked after Terminate")
	}

	status, ok := s.ExitStatus()
	require.True(t, ok)
	assert.True(t, status.Killed)
}

func TestProcessCapturedStderr(t *testing.T) {
	requireCommand(t, "sh")

	cfg := execConfig("sh", "-c", "echo oops >&2; printf ok")
	cfg.CaptureStderr = true
	c := NewExecCompressor(cfg, nil)

	s, err := c.Start(context.Background(), t.TempDir())
	require.NoError(t, err)

	data, err := io.ReadAll(readerOf(s))
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
	require.NoError(t, s.Terminate())
}

// readerOf adapts a Stream to io.Reader.
func readerOf(s Stream) io.Reader {
	return readFunc(s.ReadChunk)
}

type readFunc func([]byte) (int, error)

func (f readFunc) Read(p []byte) (int, error) { return f(p) }

func TestNewCompressor(t *testing.T) {
	c, err := NewCompressor(Config{}, nil)
	require.NoError(t, err)
	assert.Equal(t, CompressorExec, c.Name())

	c, err = NewCompressor(Config{Compressor: CompressorNative}, nil)
	require.NoError(t, err)
	assert.Equal(t, CompressorNative, c.Name())

	_, err = NewCompressor(Config{Compressor: "rar"}, nil)
	assert.Error(t, err)
}

func TestExitStatus(t *testing.T) {
	tests := []struct {
		status  ExitStatus
		success bool
		str     string
	}{
		{ExitStatus{}, true, "exit 0"},
		{ExitStatus{Code: 12}, false, "exit 12"},
		{ExitStatus{Code: -1, Signaled: true}, false, "signaled"},
		{ExitStatus{Code: -1, Signaled: true, Killed: true}, false, "killed"},
	}
	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			assert.Equal(t, tt.success, tt.status.Success())
			assert.Equal(t, tt.str, tt.status.String())
		})
	}
}

func TestExecCompressorCheck(t *testing.T) {
	requireCommand(t, "sh")

	assert.NoError(t, CheckCompressor(NewExecCompressor(execConfig("sh"), nil)))
	assert.Error(t, CheckCompressor(NewExecCompressor(execConfig("zipline-no-such-command"), nil)))
	assert.NoError(t, CheckCompressor(NewNativeCompressor(Config{}, nil)))
}
