package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"whisperasr/internal/domain"
)

// HTTPDiarizer posts audio to a diarization sidecar and reads back speaker
// turns as {"turns":[{"start":0.0,"end":1.5,"speaker":"SPEAKER_00"}]}.
type HTTPDiarizer struct {
	url        string
	httpClient *http.Client
	log        zerolog.Logger
}

func NewHTTPDiarizer(url string, log zerolog.Logger) *HTTPDiarizer {
	return &HTTPDiarizer{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Minute},
		log:        log.With().Str("provider", "diarization").Logger(),
	}
}

func (d *HTTPDiarizer) Diarize(ctx context.Context, audioPath string) ([]domain.Turn, error) {
	if strings.TrimSpace(d.url) == "" {
		return nil, errors.New("diarization url is not configured")
	}

	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("create multipart file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, body)
	if err != nil {
		return nil, fmt.Errorf("create diarization request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("diarization request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("diarization error: status %d body %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var payload struct {
		Turns []domain.Turn `json:"turns"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode diarization response: %w", err)
	}

	d.log.Debug().Int("turns", len(payload.Turns)).Msg("diarization finished")
	return payload.Turns, nil
}
