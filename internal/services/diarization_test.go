package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisperasr/internal/domain"
)

func TestHTTPDiarizer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "a.wav", header.Filename)

		_, _ = w.Write([]byte(`{"turns":[{"start":0,"end":1.5,"speaker":"SPEAKER_01"},{"start":1.5,"end":3,"speaker":"SPEAKER_00"}]}`))
	}))
	defer server.Close()

	audio := filepath.Join(t.TempDir(), "a.wav")
	require.NoError(t, os.WriteFile(audio, []byte("RIFF"), 0o644))

	turns, err := NewHTTPDiarizer(server.URL, zerolog.Nop()).Diarize(context.Background(), audio)
	require.NoError(t, err)
	assert.Equal(t, []domain.Turn{
		{Start: 0, End: 1.5, Speaker: "SPEAKER_01"},
		{Start: 1.5, End: 3, Speaker: "SPEAKER_00"},
	}, turns)
}

func TestHTTPDiarizerErrors(t *testing.T) {
	audio := filepath.Join(t.TempDir(), "a.wav")
	require.NoError(t, os.WriteFile(audio, []byte("RIFF"), 0o644))

	_, err := NewHTTPDiarizer("", zerolog.Nop()).Diarize(context.Background(), audio)
	assert.Error(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err = NewHTTPDiarizer(server.URL, zerolog.Nop()).Diarize(context.Background(), audio)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
