package storage

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrTooLarge          = errors.New("audio file exceeds maximum size")
)

// FileManager owns the working directories for raw uploads and converted audio.
type FileManager struct {
	uploadDir      string
	processedDir   string
	maxUploadBytes int64
	allowed        map[string]struct{}
}

var mimeExtensionFallback = map[string]string{
	"audio/mpeg":   ".mp3",
	"audio/mp3":    ".mp3",
	"audio/mp4":    ".m4a",
	"audio/x-m4a":  ".m4a",
	"audio/aac":    ".aac",
	"audio/wav":    ".wav",
	"audio/x-wav":  ".wav",
	"audio/wave":   ".wav",
	"audio/flac":   ".flac",
	"audio/x-flac": ".flac",
	"audio/ogg":    ".ogg",
}

func NewFileManager(uploadDir, processedDir string, maxUploadBytes int64, allowedExt []string) (*FileManager, error) {
	fm := &FileManager{
		uploadDir:      uploadDir,
		processedDir:   processedDir,
		maxUploadBytes: maxUploadBytes,
		allowed:        map[string]struct{}{},
	}
	for _, ext := range allowedExt {
		fm.allowed[strings.ToLower(ext)] = struct{}{}
	}

	for _, dir := range []string{fm.uploadDir, fm.processedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	return fm, nil
}

func (fm *FileManager) MaxUploadBytes() int64 {
	return fm.maxUploadBytes
}

// CheckExtension validates the filename extension against the allow list.
func (fm *FileManager) CheckExtension(filename string) error {
	ext := normalizeExtension(filename)
	if _, ok := fm.allowed[ext]; !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return nil
}

// SaveUpload streams r into the upload directory, enforcing the extension
// allow list and the byte cap. The returned path is unique per call.
func (fm *FileManager) SaveUpload(r io.Reader, filename string) (string, error) {
	if err := fm.CheckExtension(filename); err != nil {
		return "", err
	}

	path := filepath.Join(fm.uploadDir, uuid.NewString()+normalizeExtension(filename))
	if err := fm.writeWithLimit(path, r); err != nil {
		return "", err
	}
	return path, nil
}

// ProcessedPath is where the converted waveform for a task is written.
func (fm *FileManager) ProcessedPath(taskID string) string {
	return filepath.Join(fm.processedDir, taskID+"_processed.wav")
}

func (fm *FileManager) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (fm *FileManager) writeWithLimit(path string, r io.Reader) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}

	cleanup := func(err error) error {
		out.Close()
		os.Remove(path)
		return err
	}

	src := r
	if fm.maxUploadBytes > 0 {
		src = io.LimitReader(r, fm.maxUploadBytes+1)
	}

	total, err := io.Copy(out, src)
	if err != nil {
		return cleanup(fmt.Errorf("write audio file: %w", err))
	}
	if fm.maxUploadBytes > 0 && total > fm.maxUploadBytes {
		return cleanup(ErrTooLarge)
	}

	if err := out.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close audio file: %w", err)
	}

	return nil
}

func normalizeExtension(filename string) string {
	return strings.ToLower(strings.TrimSpace(filepath.Ext(filename)))
}

// ExtensionForContentType maps an audio MIME type to a file extension, or
// returns "" when nothing sensible is known.
func ExtensionForContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	if ext, ok := mimeExtensionFallback[mediaType]; ok {
		return ext
	}
	exts, err := mime.ExtensionsByType(mediaType)
	if err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
