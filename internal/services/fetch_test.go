package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisperasr/internal/storage"
)

func newTestFetcher(t *testing.T, limit int64) *RemoteFetcher {
	t.Helper()
	dir := t.TempDir()
	files, err := storage.NewFileManager(filepath.Join(dir, "uploads"), filepath.Join(dir, "processed"), limit,
		[]string{".wav", ".mp3", ".m4a", ".flac", ".ogg", ".aac"})
	require.NoError(t, err)
	return NewRemoteFetcher(files, 5*time.Second, zerolog.Nop())
}

func TestRemoteFetcher(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/episode.mp3", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("mp3 bytes"))
	})
	mux.HandleFunc("/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("stream bytes"))
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc("/big.wav", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	t.Run("url extension wins", func(t *testing.T) {
		path, name, err := newTestFetcher(t, 1024).Fetch(context.Background(), server.URL+"/episode.mp3")
		require.NoError(t, err)
		assert.Equal(t, "episode.mp3", name)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "mp3 bytes", string(data))
	})

	t.Run("content type supplies extension", func(t *testing.T) {
		_, name, err := newTestFetcher(t, 1024).Fetch(context.Background(), server.URL+"/stream")
		require.NoError(t, err)
		assert.Equal(t, "stream.mp3", name)
	})

	t.Run("html rejected", func(t *testing.T) {
		_, _, err := newTestFetcher(t, 1024).Fetch(context.Background(), server.URL+"/page")
		assert.ErrorIs(t, err, ErrNotAudio)
	})

	t.Run("size cap", func(t *testing.T) {
		_, _, err := newTestFetcher(t, 10).Fetch(context.Background(), server.URL+"/big.wav")
		assert.ErrorIs(t, err, storage.ErrTooLarge)
	})

	t.Run("missing resource", func(t *testing.T) {
		_, _, err := newTestFetcher(t, 1024).Fetch(context.Background(), server.URL+"/nope.mp3")
		assert.ErrorIs(t, err, ErrFetch)
	})

	t.Run("bad scheme", func(t *testing.T) {
		_, _, err := newTestFetcher(t, 1024).Fetch(context.Background(), "ftp://example.com/a.mp3")
		assert.ErrorIs(t, err, ErrFetch)
	})
}
