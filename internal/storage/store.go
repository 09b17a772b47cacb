package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"whisperasr/internal/domain"
)

var (
	ErrNotFound      = errors.New("result not found")
	ErrInvalidResult = errors.New("invalid result document")
)

const previewRunes = 100

var requiredImportFields = []string{"sentences", "speakers", "total_duration"}

// ResultStore keeps one JSON document and one audio file per result in a
// flat directory, both named after the result id.
type ResultStore struct {
	mu  sync.Mutex
	dir string
	log zerolog.Logger
}

func NewResultStore(dir string, log zerolog.Logger) (*ResultStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create results directory: %w", err)
	}
	return &ResultStore{
		dir: dir,
		log: log.With().Str("component", "results").Logger(),
	}, nil
}

func AudioFileName(id string) string {
	return id + "_audio.wav"
}

func (s *ResultStore) JSONPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *ResultStore) AudioPath(id string) string {
	return filepath.Join(s.dir, AudioFileName(id))
}

// Exists reports whether both files of a result are present.
func (s *ResultStore) Exists(id string) bool {
	if !validID(id) {
		return false
	}
	for _, path := range []string{s.JSONPath(id), s.AudioPath(id)} {
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}
	return true
}

// Save writes the result document and moves audioSrc next to it. If the
// audio cannot be moved the document is removed again.
func (s *ResultStore) Save(result domain.Result, audioSrc string) error {
	if !validID(result.ResultID) {
		return fmt.Errorf("%w: bad result id %q", ErrInvalidResult, result.ResultID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeLocked(result); err != nil {
		return err
	}
	if err := moveFile(audioSrc, s.AudioPath(result.ResultID)); err != nil {
		os.Remove(s.JSONPath(result.ResultID))
		return fmt.Errorf("store result audio: %w", err)
	}
	return nil
}

func (s *ResultStore) Load(id string) (domain.Result, error) {
	if !validID(id) {
		return domain.Result{}, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(id)
}

// Modify loads a result, applies fn and writes it back under the store lock.
func (s *ResultStore) Modify(id string, fn func(*domain.Result) error) (domain.Result, error) {
	if !validID(id) {
		return domain.Result{}, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.loadLocked(id)
	if err != nil {
		return domain.Result{}, err
	}
	if err := fn(&result); err != nil {
		return domain.Result{}, err
	}
	if err := s.writeLocked(result); err != nil {
		return domain.Result{}, err
	}
	return result, nil
}

// Import stores a previously exported document and its audio under a fresh id.
func (s *ResultStore) Import(document []byte, audio io.Reader, now time.Time) (domain.Result, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(document, &fields); err != nil {
		return domain.Result{}, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}
	var missing []string
	for _, name := range requiredImportFields {
		if _, ok := fields[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return domain.Result{}, fmt.Errorf("%w: missing fields %s", ErrInvalidResult, strings.Join(missing, ", "))
	}

	var result domain.Result
	if err := json.Unmarshal(document, &result); err != nil {
		return domain.Result{}, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}

	result.ResultID = uuid.NewString()
	result.Timestamp = domain.Timestamp(now)
	result.UpdatedTimestamp = result.Timestamp
	result.AudioPath = AudioFileName(result.ResultID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeFileAtomic(s.AudioPath(result.ResultID), audio); err != nil {
		return domain.Result{}, fmt.Errorf("store imported audio: %w", err)
	}
	if err := s.writeLocked(result); err != nil {
		os.Remove(s.AudioPath(result.ResultID))
		return domain.Result{}, err
	}
	return result, nil
}

// History summarizes every readable result, newest first. Unreadable
// documents are logged and skipped.
func (s *ResultStore) History() ([]domain.HistoryItem, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []domain.HistoryItem{}, nil
		}
		return nil, fmt.Errorf("read results directory: %w", err)
	}

	items := make([]domain.HistoryItem, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}

		item, err := s.summarize(name)
		if err != nil {
			s.log.Warn().Err(err).Str("file", name).Msg("skipping unreadable result")
			continue
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp > items[j].Timestamp
	})
	return items, nil
}

func (s *ResultStore) summarize(name string) (domain.HistoryItem, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return domain.HistoryItem{}, err
	}

	var doc struct {
		ResultID       string   `json:"result_id"`
		Filename       string   `json:"filename"`
		Timestamp      string   `json:"timestamp"`
		TotalDuration  float64  `json:"total_duration"`
		Speakers       []int    `json:"speakers"`
		Text           string   `json:"text"`
		ProcessingTime *float64 `json:"processing_time"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.HistoryItem{}, err
	}

	if doc.ResultID == "" {
		doc.ResultID = strings.TrimSuffix(name, ".json")
	}
	if doc.Filename == "" {
		doc.Filename = name
	}

	return domain.HistoryItem{
		ResultID:       doc.ResultID,
		Filename:       doc.Filename,
		Timestamp:      doc.Timestamp,
		TotalDuration:  doc.TotalDuration,
		SpeakerCount:   len(doc.Speakers),
		TextPreview:    Preview(doc.Text),
		ProcessingTime: doc.ProcessingTime,
	}, nil
}

// Preview truncates text to its first 100 characters followed by "...".
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes]) + "..."
}

func (s *ResultStore) loadLocked(id string) (domain.Result, error) {
	data, err := os.ReadFile(s.JSONPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return domain.Result{}, ErrNotFound
	}
	if err != nil {
		return domain.Result{}, fmt.Errorf("read result: %w", err)
	}

	var result domain.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return domain.Result{}, fmt.Errorf("decode result %s: %w", id, err)
	}
	return result, nil
}

func (s *ResultStore) writeLocked(result domain.Result) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	if err := writeFileAtomic(s.JSONPath(result.ResultID), &buf); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}

	return nil
}

// moveFile renames src to dst, falling back to copy+remove across devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := writeFileAtomic(dst, in); err != nil {
		return err
	}
	in.Close()
	return os.Remove(src)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
