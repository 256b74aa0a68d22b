package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexHandlerDefault(t *testing.T) {
	h, err := NewIndexHandler("")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	h.Serve(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "/archive/")
}

func TestIndexHandlerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, os.WriteFile(path, []byte("<h1>custom</h1>"), 0o644))

	h, err := NewIndexHandler(path)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	h.Serve(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "<h1>custom</h1>", w.Body.String())
}

func TestIndexHandlerMissingFile(t *testing.T) {
	_, err := NewIndexHandler(filepath.Join(t.TempDir(), "nope.html"))
	assert.Error(t, err)
}
