package handlers

import (
	"bytes"
	_ "embed"
	"fmt"
	"net/http"
	"os"
	"time"
)

//go:embed static/index.html
var defaultIndex []byte

// IndexHandler serves the informational page at GET /.
type IndexHandler struct {
	content []byte
	modTime time.Time
}

// NewIndexHandler loads the page from path, or uses the built-in page when
// path is empty.
func NewIndexHandler(path string) (*IndexHandler, error) {
	if path == "" {
		return &IndexHandler{content: defaultIndex}, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index file: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat index file: %w", err)
	}
	return &IndexHandler{content: content, modTime: info.ModTime()}, nil
}

// Serve handles GET /.
func (h *IndexHandler) Serve(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeContent(w, r, "index.html", h.modTime, bytes.NewReader(h.content))
}
