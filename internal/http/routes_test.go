package http

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisperasr/internal/app"
	"whisperasr/internal/config"
	"whisperasr/internal/domain"
	"whisperasr/internal/pipeline"
	"whisperasr/internal/services"
	"whisperasr/internal/storage"
	"whisperasr/internal/tasks"
)

type fakeConverter struct{}

func (fakeConverter) Convert(_ context.Context, _, out string) (float64, error) {
	return 1.5, os.WriteFile(out, []byte("converted"), 0o644)
}

type fakeTranscriber struct{}

func (fakeTranscriber) Transcribe(_ context.Context, _ string, onProgress func(float64)) (domain.Transcript, error) {
	onProgress(0.5)
	return domain.Transcript{
		Text:     "hello world",
		Language: "en",
		Segments: []domain.Segment{{Text: "hello world", Start: 0, End: 1.5}},
	}, nil
}

// taggingTranslator marks its output so tests can tell fresh translations
// from preserved ones.
type taggingTranslator struct{}

func (taggingTranslator) Translate(_ context.Context, text, _, target string) (string, error) {
	return "[" + target + "] " + text, nil
}

func setupTestServer(t *testing.T) (*gin.Engine, *app.App) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tmpDir := t.TempDir()
	cfg := config.Config{
		Port:           "8002",
		BaseURL:        "http://localhost:8002",
		DataDir:        tmpDir,
		UploadDir:      filepath.Join(tmpDir, "uploads"),
		ProcessedDir:   filepath.Join(tmpDir, "processed"),
		ResultsDir:     filepath.Join(tmpDir, "results"),
		MaxUploadBytes: 4 * 1024,
		ShareSecret:    "secret",
		ShareTTL:       time.Minute,
	}
	log := zerolog.Nop()

	files, err := storage.NewFileManager(cfg.UploadDir, cfg.ProcessedDir, cfg.MaxUploadBytes, config.AllowedExtensions)
	require.NoError(t, err)
	results, err := storage.NewResultStore(cfg.ResultsDir, log)
	require.NoError(t, err)
	registry := tasks.NewMemoryRegistry()
	translation := services.NewTranslationService(taggingTranslator{}, true, "tagging", log)

	a := &app.App{
		Config:      cfg,
		Logger:      log,
		Files:       files,
		Results:     results,
		Registry:    registry,
		Translation: translation,
		Orchestrator: pipeline.NewOrchestrator(pipeline.Options{
			Registry:    registry,
			Files:       files,
			Results:     results,
			Converter:   fakeConverter{},
			Transcriber: fakeTranscriber{},
			Translation: translation,
			Logger:      log,
		}),
		Queue:   pipeline.NewQueue(0, log),
		Fetcher: services.NewRemoteFetcher(files, time.Second, log),
		Share:   services.NewShareService(cfg.ShareSecret, cfg.BaseURL, cfg.ShareTTL),
		PDF:     services.NewPDFService(""),
	}

	return newEngine(a), a
}

func multipartBody(t *testing.T, files map[string][2]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for field, file := range files {
		part, err := writer.CreateFormFile(field, file[0])
		require.NoError(t, err)
		_, err = part.Write([]byte(file[1]))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func doRequest(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, req)
	return rr
}

// seedResult stores a result whose audio is size bytes of a repeating pattern.
func seedResult(t *testing.T, a *app.App, size int, sentences []domain.Segment) string {
	t.Helper()
	id := uuid.NewString()
	audio := filepath.Join(t.TempDir(), "seed.wav")
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(audio, data, 0o644))

	result := domain.Result{
		Success:       true,
		ResultID:      id,
		Text:          "seeded",
		Sentences:     sentences,
		Speakers:      []int{0},
		TotalDuration: 3,
		Filename:      "seed.wav",
		Timestamp:     domain.Timestamp(time.Now()),
		AudioPath:     storage.AudioFileName(id),
	}
	require.NoError(t, a.Results.Save(result, audio))
	return id
}

func TestHealthHandler(t *testing.T) {
	engine, _ := setupTestServer(t)

	rr := doRequest(engine, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"ok":true}`, rr.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	engine, _ := setupTestServer(t)
	doRequest(engine, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	rr := doRequest(engine, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "whisperasr_requests_total")
}

func TestUploadRejectsBadExtension(t *testing.T) {
	engine, _ := setupTestServer(t)

	body, contentType := multipartBody(t, map[string][2]string{"file": {"notes.txt", "hello"}})
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)

	rr := doRequest(engine, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "unsupported audio format")
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	engine, _ := setupTestServer(t)

	body, contentType := multipartBody(t, map[string][2]string{"file": {"big.wav", strings.Repeat("x", 5*1024)}})
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)

	rr := doRequest(engine, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "exceeds maximum size")
}

func TestUploadProcessesTask(t *testing.T) {
	engine, a := setupTestServer(t)

	body, contentType := multipartBody(t, map[string][2]string{"file": {"meeting.mp3", "fake mp3"}})
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)

	rr := doRequest(engine, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var accepted domain.Task
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &accepted))
	assert.NotEmpty(t, accepted.TaskID)
	assert.Equal(t, domain.TaskStatusPending, accepted.Status)
	assert.Zero(t, accepted.Progress)

	a.Queue.Wait()

	rr = doRequest(engine, httptest.NewRequest(http.MethodGet, "/api/status/"+accepted.TaskID, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var task domain.Task
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &task))
	assert.Equal(t, domain.TaskStatusCompleted, task.Status)
	assert.Equal(t, 100.0, task.Progress)
	require.NotEmpty(t, task.ResultID)

	rr = doRequest(engine, httptest.NewRequest(http.MethodGet, "/api/result/"+task.ResultID, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var result domain.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, "meeting.mp3", result.Filename)
	assert.Equal(t, "hello world", result.Text)
	assert.Equal(t, "[zh] hello world", result.Sentences[0].Translation.ZH)

	rr = doRequest(engine, httptest.NewRequest(http.MethodGet, "/api/history/list", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var history []domain.HistoryItem
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, task.ResultID, history[0].ResultID)
	assert.Equal(t, "hello world", history[0].TextPreview)
	assert.NotNil(t, history[0].ProcessingTime)

	entries, err := os.ReadDir(a.Config.UploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "uploaded source is removed after processing")
}

func TestStatusUnknownTask(t *testing.T) {
	engine, _ := setupTestServer(t)

	rr := doRequest(engine, httptest.NewRequest(http.MethodGet, "/api/status/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"task not found"}`, rr.Body.String())
}

func TestDeleteTask(t *testing.T) {
	engine, a := setupTestServer(t)
	ctx := context.Background()
	_, err := a.Registry.Create(ctx, "t1")
	require.NoError(t, err)

	rr := doRequest(engine, httptest.NewRequest(http.MethodDelete, "/api/tasks/t1", nil))
	assert.Equal(t, http.StatusConflict, rr.Code)

	_, err = a.Registry.Update(ctx, "t1", tasks.Update{Status: tasks.Status(domain.TaskStatusFailed)})
	require.NoError(t, err)

	rr = doRequest(engine, httptest.NewRequest(http.MethodDelete, "/api/tasks/t1", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = doRequest(engine, httptest.NewRequest(http.MethodDelete, "/api/tasks/t1", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetResultUnknown(t *testing.T) {
	engine, _ := setupTestServer(t)

	for _, path := range []string{"/api/result/", "/api/history/load/", "/api/audio/", "/api/download/"} {
		rr := doRequest(engine, httptest.NewRequest(http.MethodGet, path+uuid.NewString(), nil))
		assert.Equal(t, http.StatusNotFound, rr.Code, path)
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		header     string
		size       int64
		start, end int64
		ok         bool
	}{
		{"bytes=0-99", 1000, 0, 99, true},
		{"bytes=900-2000", 1000, 900, 999, true},
		{"bytes=500-", 1000, 500, 999, true},
		{"bytes=-100", 1000, 0, 100, true},
		{"bytes=2000-3000", 1000, 999, 999, true},
		{"bytes=50-10", 1000, 50, 50, true},
		{"bytes=0-0", 1, 0, 0, true},
		{"", 1000, 0, 0, false},
		{"bytes=abc-def", 1000, 0, 0, false},
		{"bytes=1-2-3", 1000, 0, 0, false},
		{"bytes=5", 1000, 0, 0, false},
		{"items=0-10", 1000, 0, 0, false},
		{"bytes=0-10", 0, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%d", tt.header, tt.size), func(t *testing.T) {
			start, end, ok := parseRange(tt.header, tt.size)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.start, start)
				assert.Equal(t, tt.end, end)
			}
		})
	}
}

func TestAudioRangeRequests(t *testing.T) {
	engine, a := setupTestServer(t)
	id := seedResult(t, a, 1000, nil)
	full, err := os.ReadFile(a.Results.AudioPath(id))
	require.NoError(t, err)

	get := func(rangeHeader string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/audio/"+id, nil)
		if rangeHeader != "" {
			req.Header.Set("Range", rangeHeader)
		}
		return doRequest(engine, req)
	}

	rr := get("bytes=0-99")
	assert.Equal(t, http.StatusPartialContent, rr.Code)
	assert.Equal(t, "bytes 0-99/1000", rr.Header().Get("Content-Range"))
	assert.Equal(t, "bytes", rr.Header().Get("Accept-Ranges"))
	assert.Equal(t, "100", rr.Header().Get("Content-Length"))
	assert.Equal(t, full[:100], rr.Body.Bytes())

	rr = get("bytes=900-2000")
	assert.Equal(t, http.StatusPartialContent, rr.Code)
	assert.Equal(t, "bytes 900-999/1000", rr.Header().Get("Content-Range"))
	assert.Equal(t, full[900:], rr.Body.Bytes())

	rr = get("bytes=oops")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Content-Range"))
	assert.Len(t, rr.Body.Bytes(), 1000)

	rr = get("")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "audio/wav", rr.Header().Get("Content-Type"))
	assert.Equal(t, full, rr.Body.Bytes())
}

func readZip(t *testing.T, body []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)
	out := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		var buf bytes.Buffer
		_, err = buf.ReadFrom(rc)
		rc.Close()
		require.NoError(t, err)
		out[f.Name] = buf.Bytes()
	}
	return out
}

func TestDownloadZip(t *testing.T) {
	engine, a := setupTestServer(t)
	id := seedResult(t, a, 10, nil)

	rr := doRequest(engine, httptest.NewRequest(http.MethodGet, "/api/download/"+id, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/zip", rr.Header().Get("Content-Type"))

	entries := readZip(t, rr.Body.Bytes())
	require.Len(t, entries, 2)
	assert.Contains(t, entries, id+".json")
	assert.Len(t, entries[id+"_audio.wav"], 10)
}

func TestUpdatePreservesAndRetranslates(t *testing.T) {
	engine, a := setupTestServer(t)
	kept := domain.Translation{EN: "same", ZH: "stored zh", SourceLang: domain.LangEN}
	id := seedResult(t, a, 10, []domain.Segment{
		{Text: "same", Start: 0, End: 1, Translation: kept},
		{Text: "old text", Start: 1, End: 2, Translation: domain.Translation{EN: "old text", ZH: "old zh", SourceLang: domain.LangEN}},
	})

	payload := `{"sentences":[
		{"text":"same","start":0,"end":1,"speaker":0,"translation":{"zh":"","en":"","source_lang":"en"}},
		{"text":"新的文本","start":1,"end":2,"speaker":1,"translation":{"zh":"x","en":"x","source_lang":"en"}}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/api/update/"+id, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rr := doRequest(engine, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"success":true,"message":"result updated"}`, rr.Body.String())

	result, err := a.Results.Load(id)
	require.NoError(t, err)
	require.Len(t, result.Sentences, 2)
	assert.Equal(t, kept, result.Sentences[0].Translation)
	assert.Equal(t, domain.Translation{ZH: "新的文本", EN: "[en] 新的文本", SourceLang: domain.LangZH}, result.Sentences[1].Translation)
	assert.Equal(t, 1, result.Sentences[1].Speaker)
	assert.NotEmpty(t, result.UpdatedTimestamp)
}

func TestMergeSentencesMatchesEachOriginalOnce(t *testing.T) {
	translation := services.NewTranslationService(taggingTranslator{}, true, "tagging", zerolog.Nop())
	original := []domain.Segment{
		{Text: "yes", Translation: domain.Translation{ZH: "first"}},
		{Text: "yes", Translation: domain.Translation{ZH: "second"}},
	}
	incoming := []domain.Segment{{Text: "yes"}, {Text: "yes"}, {Text: "yes"}}

	merged := mergeSentences(context.Background(), translation, original, incoming)

	assert.Equal(t, "first", merged[0].Translation.ZH)
	assert.Equal(t, "second", merged[1].Translation.ZH)
	assert.Equal(t, "[zh] yes", merged[2].Translation.ZH)
}

func TestUpdateValidation(t *testing.T) {
	engine, a := setupTestServer(t)
	id := seedResult(t, a, 10, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/update/"+id, strings.NewReader(`{"text":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, doRequest(engine, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/update/"+uuid.NewString(), strings.NewReader(`{"sentences":[]}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusNotFound, doRequest(engine, req).Code)
}

func TestImportRoundTrip(t *testing.T) {
	engine, a := setupTestServer(t)
	id := seedResult(t, a, 20, []domain.Segment{{Text: "hello", Start: 0, End: 1}})

	rr := doRequest(engine, httptest.NewRequest(http.MethodGet, "/api/download/"+id, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	entries := readZip(t, rr.Body.Bytes())

	body, contentType := multipartBody(t, map[string][2]string{
		"json_file":  {id + ".json", string(entries[id+".json"])},
		"audio_file": {id + "_audio.wav", string(entries[id+"_audio.wav"])},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/import", body)
	req.Header.Set("Content-Type", contentType)

	rr = doRequest(engine, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp struct {
		Success  bool   `json:"success"`
		ResultID string `json:"result_id"`
		TaskID   string `json:"task_id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEqual(t, id, resp.ResultID)

	task, found, err := a.Registry.Get(context.Background(), resp.TaskID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.TaskStatusCompleted, task.Status)
	assert.Equal(t, resp.ResultID, task.ResultID)

	imported, err := a.Results.Load(resp.ResultID)
	require.NoError(t, err)
	assert.Equal(t, "hello", imported.Sentences[0].Text)

	rr = doRequest(engine, httptest.NewRequest(http.MethodGet, "/api/download/"+resp.ResultID, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	again := readZip(t, rr.Body.Bytes())
	assert.Equal(t, entries[id+"_audio.wav"], again[resp.ResultID+"_audio.wav"])
}

func TestImportValidation(t *testing.T) {
	engine, _ := setupTestServer(t)

	cases := map[string]map[string][2]string{
		"missing audio":  {"json_file": {"a.json", `{"sentences":[],"speakers":[],"total_duration":1}`}},
		"malformed json": {"json_file": {"a.json", `{oops`}, "audio_file": {"a.wav", "x"}},
		"missing fields": {"json_file": {"a.json", `{"sentences":[]}`}, "audio_file": {"a.wav", "x"}},
	}
	for name, files := range cases {
		t.Run(name, func(t *testing.T) {
			body, contentType := multipartBody(t, files)
			req := httptest.NewRequest(http.MethodPost, "/api/import", body)
			req.Header.Set("Content-Type", contentType)
			assert.Equal(t, http.StatusBadRequest, doRequest(engine, req).Code)
		})
	}
}

func TestHistoryListOrdering(t *testing.T) {
	engine, a := setupTestServer(t)
	older := seedResult(t, a, 5, nil)
	_, err := a.Results.Modify(older, func(r *domain.Result) error {
		r.Timestamp = "2020-01-01T00:00:00.000000Z"
		return nil
	})
	require.NoError(t, err)
	newer := seedResult(t, a, 5, nil)

	rr := doRequest(engine, httptest.NewRequest(http.MethodGet, "/api/history/list", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var items []domain.HistoryItem
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, newer, items[0].ResultID)
	assert.Equal(t, older, items[1].ResultID)
}

func TestExportPDF(t *testing.T) {
	engine, a := setupTestServer(t)
	id := seedResult(t, a, 5, []domain.Segment{{Text: "hello", Start: 0, End: 1}})

	rr := doRequest(engine, httptest.NewRequest(http.MethodGet, "/api/export/pdf/"+id, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF-")))
}

func TestShareLinks(t *testing.T) {
	engine, a := setupTestServer(t)
	id := seedResult(t, a, 5, nil)

	rr := doRequest(engine, httptest.NewRequest(http.MethodPost, "/api/share/"+id, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	link, err := url.Parse(resp.URL)
	require.NoError(t, err)
	rr = doRequest(engine, httptest.NewRequest(http.MethodGet, link.RequestURI(), nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, readZip(t, rr.Body.Bytes()), 2)

	query := link.Query()
	query.Set("sig", "forged")
	rr = doRequest(engine, httptest.NewRequest(http.MethodGet, link.Path+"?"+query.Encode(), nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = doRequest(engine, httptest.NewRequest(http.MethodGet, link.Path, nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	past := time.Now().Add(-time.Minute).Unix()
	expired := services.SignURL(services.SharedPath(id), past, a.Config.ShareSecret)
	rr = doRequest(engine, httptest.NewRequest(http.MethodGet, expired, nil))
	assert.Equal(t, http.StatusGone, rr.Code)

	rr = doRequest(engine, httptest.NewRequest(http.MethodPost, "/api/share/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDownloadURLRequiresURL(t *testing.T) {
	engine, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/download-url", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rr := doRequest(engine, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"url is required"}`, rr.Body.String())
}

func TestDownloadURLFetchesAndProcesses(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3 data"))
	}))
	defer remote.Close()

	engine, a := setupTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/download-url", strings.NewReader(`{"url":"`+remote.URL+`/talk.mp3"}`))
	req.Header.Set("Content-Type", "application/json")

	rr := doRequest(engine, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var accepted domain.Task
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &accepted))

	a.Queue.Wait()
	task, _, err := a.Registry.Get(context.Background(), accepted.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, task.Status)

	result, err := a.Results.Load(task.ResultID)
	require.NoError(t, err)
	assert.Equal(t, "talk.mp3", result.Filename)
}
