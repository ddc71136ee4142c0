package httputil

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Accept-Encoding"), "gzip")
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	body, err := Get(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestGetNon2xxStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Get(context.Background(), srv.Client(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestGetGzipBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		zw.Write([]byte("compressed content"))
		zw.Close()

		w.Header().Set("Content-Encoding", "gzip")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	body, err := Get(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "compressed content", string(body))
}

func TestGetBrotliBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		bw.Write([]byte("brotli content"))
		bw.Close()

		w.Header().Set("Content-Encoding", "br")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	body, err := Get(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "brotli content", string(body))
}
