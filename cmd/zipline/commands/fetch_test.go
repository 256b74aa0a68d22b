package commands

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/zipline/pkg/api"
	"github.com/marmos91/zipline/pkg/archive"
)

// newTestServer serves root through the full router with the native compressor.
func newTestServer(t *testing.T, root string) *httptest.Server {
	t.Helper()

	cfg := archive.Config{Root: root, Compressor: archive.CompressorNative}
	cfg.ApplyDefaults()

	locator, err := archive.NewLocator(root)
	require.NoError(t, err)
	compressor, err := archive.NewCompressor(cfg, nil)
	require.NoError(t, err)

	handler, err := api.NewRouter(api.APIConfig{}, api.Services{
		Locator:    locator,
		Compressor: compressor,
		Supervisor: archive.NewSupervisor(cfg, compressor, nil),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func runFetchArgs(t *testing.T, url, dest string, force bool, id string) (string, error) {
	t.Helper()

	fetchURL, fetchOutput, fetchForce = url, dest, force
	t.Cleanup(func() { fetchURL, fetchOutput, fetchForce = "", "", false })

	var buf bytes.Buffer
	fetchCmd.SetOut(&buf)
	fetchCmd.SetContext(context.Background())
	t.Cleanup(func() { fetchCmd.SetOut(nil) })

	err := runFetch(fetchCmd, []string{id})
	return buf.String(), err
}

func TestFetch(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "holiday", "day1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "holiday", "day1", "beach.jpg"), []byte("sand"), 0o644))
	srv := newTestServer(t, root)

	dest := filepath.Join(t.TempDir(), "out.zip")
	out, err := runFetchArgs(t, srv.URL, dest, false, "holiday")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved "+dest)

	zr, err := zip.OpenReader(dest)
	require.NoError(t, err)
	defer zr.Close()

	var found bool
	for _, f := range zr.File {
		if f.Name != "day1/beach.jpg" {
			continue
		}
		found = true
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		require.NoError(t, err)
		assert.Equal(t, "sand", string(data))
	}
	assert.True(t, found, "archive is missing day1/beach.jpg")

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(dest), ".*.part"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFetch_NotFound(t *testing.T) {
	srv := newTestServer(t, t.TempDir())

	dir := t.TempDir()
	_, err := runFetchArgs(t, srv.URL, filepath.Join(dir, "missing.zip"), false, "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetch_RefusesOverwrite(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "existing.zip")
	require.NoError(t, os.WriteFile(dest, []byte("keep"), 0o644))

	_, err := runFetchArgs(t, "http://127.0.0.1:1", dest, false, "holiday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))
}
