package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/zipline/pkg/api/handlers"
	"github.com/marmos91/zipline/pkg/archive"
)

// recorder is an archive.Metrics that keeps every outcome.
type recorder struct {
	started atomic.Int64
	reaped  atomic.Int64

	mu       sync.Mutex
	outcomes []*archive.Outcome
}

func (r *recorder) CompressorStarted(string)                    { r.started.Add(1) }
func (r *recorder) CompressorFailed(string)                     {}
func (r *recorder) CompressorReaped(string, archive.ExitStatus) { r.reaped.Add(1) }
func (r *recorder) TransferStarted()                            {}
func (r *recorder) ChunkWritten(int)                            {}

func (r *recorder) TransferFinished(out *archive.Outcome) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, out)
	r.mu.Unlock()
}

func (r *recorder) finished() []*archive.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*archive.Outcome(nil), r.outcomes...)
}

type testServer struct {
	URL     string
	metrics *recorder
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
}

// stop cancels the server and returns Serve's result.
func (ts *testServer) stop(t *testing.T) error {
	t.Helper()
	ts.cancel()
	select {
	case <-ts.done:
		return ts.err
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
		return nil
	}
}

// startServer serves the archive tree at root on a random local port.
func startServer(t *testing.T, root string, cfg archive.Config) *testServer {
	t.Helper()

	cfg.Root = root
	m := &recorder{}

	locator, err := archive.NewLocator(root)
	require.NoError(t, err)
	compressor, err := archive.NewCompressor(cfg, m)
	require.NoError(t, err)

	handler, err := NewRouter(APIConfig{}, Services{
		Locator:    locator,
		Compressor: compressor,
		Supervisor: archive.NewSupervisor(cfg, compressor, m),
	})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := NewServer(APIConfig{ReadTimeout: 5 * time.Second}, handler)
	server.SetShutdownTimeout(5 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	ts := &testServer{
		URL:     fmt.Sprintf("http://%s", ln.Addr()),
		metrics: m,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go func() {
		defer close(ts.done)
		ts.err = server.Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-ts.done
	})

	assert.Eventually(t, func() bool { return server.Port() == ln.Addr().(*net.TCPAddr).Port }, time.Second, 10*time.Millisecond)
	return ts
}

func compressorConfigs(t *testing.T) map[string]archive.Config {
	configs := map[string]archive.Config{
		archive.CompressorNative: {Compressor: archive.CompressorNative},
	}
	if _, err := exec.LookPath("zip"); err == nil {
		configs[archive.CompressorExec] = archive.Config{Compressor: archive.CompressorExec}
	} else {
		t.Log("zip not available, skipping exec compressor")
	}
	return configs
}

func TestServer_Lifecycle(t *testing.T) {
	ts := startServer(t, t.TempDir(), archive.Config{Compressor: archive.CompressorNative})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body handlers.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)

	assert.NoError(t, ts.stop(t))
}

func TestServer_ArchiveEndToEnd(t *testing.T) {
	for name, cfg := range compressorConfigs(t) {
		t.Run(name, func(t *testing.T) {
			root := t.TempDir()
			require.NoError(t, os.MkdirAll(filepath.Join(root, "validname"), 0o755))
			require.NoError(t, os.WriteFile(filepath.Join(root, "validname", "a.txt"), []byte("hello"), 0o644))

			ts := startServer(t, root, cfg)

			for _, path := range []string{"/archive/validname/", "/archive/validname"} {
				resp, err := http.Get(ts.URL + path)
				require.NoError(t, err)
				body, err := io.ReadAll(resp.Body)
				_ = resp.Body.Close()
				require.NoError(t, err)

				require.Equal(t, http.StatusOK, resp.StatusCode, path)
				assert.Equal(t, archive.ContentType, resp.Header.Get("Content-Type"))
				assert.Equal(t, `attachment; filename=archive.zip`, resp.Header.Get("Content-Disposition"))

				zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
				require.NoError(t, err)
				require.Len(t, zr.File, 1)
				assert.Equal(t, "a.txt", zr.File[0].Name)

				rc, err := zr.File[0].Open()
				require.NoError(t, err)
				content, err := io.ReadAll(rc)
				require.NoError(t, err)
				assert.Equal(t, "hello", string(content))
			}

			require.Eventually(t, func() bool { return len(ts.metrics.finished()) == 2 }, 5*time.Second, 10*time.Millisecond)
			assert.Equal(t, int64(2), ts.metrics.started.Load())
			assert.Equal(t, int64(2), ts.metrics.reaped.Load())
			for _, out := range ts.metrics.finished() {
				assert.Equal(t, archive.StateCompleted, out.State)
			}
		})
	}
}

func TestServer_ArchiveNotFound(t *testing.T) {
	for name, cfg := range compressorConfigs(t) {
		t.Run(name, func(t *testing.T) {
			ts := startServer(t, t.TempDir(), cfg)

			for _, path := range []string{"/archive/missingname/", "/archive/..%2fetc/", "/archive/.git/"} {
				resp, err := http.Get(ts.URL + path)
				require.NoError(t, err)
				_ = resp.Body.Close()
				assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
			}

			assert.Zero(t, ts.metrics.started.Load(), "no compressor may be spawned")
			assert.Empty(t, ts.metrics.finished())
		})
	}
}

func TestServer_Routes(t *testing.T) {
	ts := startServer(t, t.TempDir(), archive.Config{Compressor: archive.CompressorNative})

	t.Run("Index", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	})

	t.Run("MethodNotAllowed", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/archive/photos/", "text/plain", nil)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, handlers.ContentTypeProblemJSON, resp.Header.Get("Content-Type"))
	})

	t.Run("UnknownRoute", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/nope")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Readiness", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/health/ready")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestServer_ShutdownInterruptsTransfers(t *testing.T) {
	root := t.TempDir()
	data := make([]byte, 8<<20)
	_, err := rand.Read(data)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "big"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "big", "blob.bin"), data, 0o644))

	ts := startServer(t, root, archive.Config{Compressor: archive.CompressorNative, Delay: 5 * time.Millisecond})

	resp, err := http.Get(ts.URL + "/archive/big/")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = io.ReadFull(resp.Body, make([]byte, 16<<10))
	require.NoError(t, err)

	require.NoError(t, ts.stop(t))

	_, err = io.ReadAll(resp.Body)
	assert.Error(t, err, "an interrupted archive must not look complete")

	require.Eventually(t, func() bool { return len(ts.metrics.finished()) == 1 }, 5*time.Second, 10*time.Millisecond)
	outcomes := ts.metrics.finished()
	assert.Equal(t, archive.StateAborted, outcomes[0].State)
	assert.Equal(t, archive.ReasonInterrupted, outcomes[0].Reason)
	assert.Equal(t, int64(1), ts.metrics.reaped.Load())
}
