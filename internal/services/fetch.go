package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"whisperasr/internal/storage"
)

var (
	ErrFetch    = errors.New("remote fetch failed")
	ErrNotAudio = errors.New("remote content is not audio")
)

// RemoteFetcher downloads a remote audio file into the upload directory.
type RemoteFetcher struct {
	files      *storage.FileManager
	timeout    time.Duration
	httpClient *http.Client
	log        zerolog.Logger
}

func NewRemoteFetcher(files *storage.FileManager, timeout time.Duration, log zerolog.Logger) *RemoteFetcher {
	return &RemoteFetcher{
		files:      files,
		timeout:    timeout,
		httpClient: &http.Client{},
		log:        log.With().Str("component", "fetcher").Logger(),
	}
}

// Fetch downloads rawURL and returns the stored path and a display filename.
func (f *RemoteFetcher) Fetch(ctx context.Context, rawURL string) (string, string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", "", fmt.Errorf("%w: invalid url %q", ErrFetch, rawURL)
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrFetch, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("%w: remote returned status %d", ErrFetch, resp.StatusCode)
	}
	if limit := f.files.MaxUploadBytes(); limit > 0 && resp.ContentLength > limit {
		return "", "", storage.ErrTooLarge
	}

	contentType := resp.Header.Get("Content-Type")
	filename := f.filename(parsed, contentType)
	if f.files.CheckExtension(filename) != nil {
		if !looksLikeAudio(contentType) {
			return "", "", fmt.Errorf("%w: content type %q", ErrNotAudio, contentType)
		}
		return "", "", fmt.Errorf("%w: no supported extension for %q", ErrNotAudio, contentType)
	}

	stored, err := f.files.SaveUpload(resp.Body, filename)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return "", "", err
		}
		return "", "", fmt.Errorf("%w: %v", ErrFetch, err)
	}

	f.log.Info().Str("url", parsed.Redacted()).Str("filename", filename).Msg("remote audio fetched")
	return stored, filename, nil
}

// filename prefers the last path element of the URL and falls back to a name
// built from the content type.
func (f *RemoteFetcher) filename(u *url.URL, contentType string) string {
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		name = ""
	}
	if name != "" && f.files.CheckExtension(name) == nil {
		return name
	}

	stem := strings.TrimSuffix(name, path.Ext(name))
	if stem == "" {
		stem = "remote_audio"
	}
	return stem + storage.ExtensionForContentType(contentType)
}

func looksLikeAudio(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "audio/") ||
		strings.HasPrefix(mediaType, "video/") ||
		mediaType == "application/octet-stream"
}
