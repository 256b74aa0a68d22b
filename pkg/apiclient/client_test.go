package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	client := New("http://localhost:8080/")
	assert.NotNil(t, client)
	assert.Equal(t, "http://localhost:8080", client.BaseURL())
}

func TestWithHTTPClient(t *testing.T) {
	hc := &http.Client{}
	client := New("http://localhost:8080")
	other := client.WithHTTPClient(hc)

	assert.NotSame(t, hc, client.httpClient)
	assert.Same(t, hc, other.httpClient)
	assert.Equal(t, client.BaseURL(), other.BaseURL())
}

func TestReady(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health/ready", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_ = json.NewEncoder(w).Encode(HealthResponse{
			Status: "healthy",
			Data:   map[string]string{"root": "/srv/photos", "compressor": "exec"},
		})
	}))
	defer server.Close()

	resp, err := New(server.URL).Ready(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.Healthy())
	assert.Equal(t, "/srv/photos", resp.Data["root"])
}

func TestReady_Unavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(HealthResponse{Status: "unhealthy", Error: "archive root unreadable"})
	}))
	defer server.Close()

	resp, err := New(server.URL).Ready(context.Background())
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.False(t, resp.Healthy())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.IsUnavailable())
	assert.Equal(t, "archive root unreadable", apiErr.Detail)
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health/", r.URL.Path)
		_ = json.NewEncoder(w).Encode(HealthResponse{Status: "healthy"})
	}))
	defer server.Close()

	resp, err := New(server.URL).Health(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.Healthy())
}

func TestDownload(t *testing.T) {
	payload := bytes.Repeat([]byte("PK"), 4096)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/archive/holiday/", r.URL.Path)
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	var buf bytes.Buffer
	n, err := New(server.URL).Download(context.Background(), "holiday", &buf)
	require.NoError(t, err)
	assert.EqualValues(t, len(payload), n)
	assert.Equal(t, payload, buf.Bytes())
}

func TestDownload_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"type":"about:blank","title":"Not Found","status":404,"detail":"archive \"nope\" not found"}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	_, err := New(server.URL).Download(context.Background(), "nope", &buf)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "Not Found")
	assert.Zero(t, buf.Len())
}

func TestDownload_PlainError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := New(server.URL).Download(context.Background(), "set", &bytes.Buffer{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "boom", apiErr.Detail)
	assert.False(t, IsNotFound(err))
}

func TestDownload_AbortedTransfer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		panic(http.ErrAbortHandler)
	}))
	defer server.Close()

	var buf bytes.Buffer
	n, err := New(server.URL).Download(context.Background(), "set", &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transfer interrupted")
	assert.EqualValues(t, buf.Len(), n)
}

func TestAPIError(t *testing.T) {
	assert.Equal(t, "404 Not Found", (&APIError{StatusCode: 404, Title: "Not Found"}).Error())
	assert.Equal(t, "404 Not Found: gone", (&APIError{StatusCode: 404, Title: "Not Found", Detail: "gone"}).Error())
}
