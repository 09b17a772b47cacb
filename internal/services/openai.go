package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"whisperasr/internal/domain"
)

const openAIRequestTimeout = 10 * time.Minute

var languageNames = map[string]string{
	"chinese":  "zh",
	"mandarin": "zh",
	"english":  "en",
}

var languageLabels = map[string]string{
	"zh": "Simplified Chinese",
	"en": "English",
}

// OpenAIClient holds the pieces shared by every call against an
// OpenAI-compatible API.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	reqTimeout time.Duration
	httpClient *http.Client
}

func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		reqTimeout: openAIRequestTimeout,
		httpClient: &http.Client{
			Timeout: openAIRequestTimeout,
		},
	}
}

// OpenAITranscriber uploads audio to /audio/transcriptions and asks for
// verbose_json with segment and word timestamps.
type OpenAITranscriber struct {
	client *OpenAIClient
	model  string
	log    zerolog.Logger
}

func NewOpenAITranscriber(client *OpenAIClient, model string, log zerolog.Logger) *OpenAITranscriber {
	return &OpenAITranscriber{
		client: client,
		model:  model,
		log:    log.With().Str("provider", "openai-transcribe").Logger(),
	}
}

type verboseTranscription struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Start      float64 `json:"start"`
		End        float64 `json:"end"`
		Text       string  `json:"text"`
		AvgLogprob float64 `json:"avg_logprob"`
	} `json:"segments"`
	Words []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
}

func (t *OpenAITranscriber) Transcribe(ctx context.Context, audioPath string, onProgress func(float64)) (domain.Transcript, error) {
	if err := t.client.ensureAPIKey(); err != nil {
		return domain.Transcript{}, err
	}

	file, err := os.Open(audioPath)
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("create multipart file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return domain.Transcript{}, fmt.Errorf("copy audio data: %w", err)
	}

	fields := [][2]string{
		{"model", t.model},
		{"response_format", "verbose_json"},
		{"timestamp_granularities[]", "segment"},
		{"timestamp_granularities[]", "word"},
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return domain.Transcript{}, fmt.Errorf("write %s field: %w", f[0], err)
		}
	}
	if err := writer.Close(); err != nil {
		return domain.Transcript{}, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.client.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("create transcription request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.client.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	reportProgress(onProgress, 0)
	resp, err := t.client.do(req)
	if err != nil {
		return domain.Transcript{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return domain.Transcript{}, t.client.decodeAPIError(resp)
	}

	var payload verboseTranscription
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Transcript{}, fmt.Errorf("decode transcription response: %w", err)
	}
	reportProgress(onProgress, 1)

	transcript := payload.toTranscript()
	t.log.Debug().Int("segments", len(transcript.Segments)).Str("language", transcript.Language).Msg("transcription finished")
	return transcript, nil
}

// toTranscript attaches each word to the segment whose time span it starts in.
func (v verboseTranscription) toTranscript() domain.Transcript {
	out := domain.Transcript{
		Text:     strings.TrimSpace(v.Text),
		Language: normalizeLanguageCode(v.Language),
		Segments: make([]domain.Segment, 0, len(v.Segments)),
	}

	w := 0
	for i, s := range v.Segments {
		seg := domain.Segment{
			Text:  strings.TrimSpace(s.Text),
			Start: s.Start,
			End:   s.End,
		}
		probability := math.Exp(s.AvgLogprob)
		last := i == len(v.Segments)-1
		for w < len(v.Words) && (last || v.Words[w].Start < s.End) {
			word := v.Words[w]
			seg.Words = append(seg.Words, domain.Word{
				Word:        strings.TrimSpace(word.Word),
				Start:       word.Start,
				End:         word.End,
				Probability: probability,
			})
			w++
		}
		out.Segments = append(out.Segments, seg)
	}
	return out
}

func normalizeLanguageCode(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if code, ok := languageNames[lang]; ok {
		return code
	}
	return lang
}

// OpenAITranslator asks a chat model for a plain translation.
type OpenAITranslator struct {
	client *OpenAIClient
	model  string
}

func NewOpenAITranslator(client *OpenAIClient, model string) *OpenAITranslator {
	return &OpenAITranslator{client: client, model: model}
}

func (t *OpenAITranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	if err := t.client.ensureAPIKey(); err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(
		"Translate the user's text from %s to %s. Reply with the translation only.",
		languageLabel(source), languageLabel(target),
	)
	payload := map[string]any{
		"model": t.model,
		"messages": []map[string]string{
			{"role": "system", "content": prompt},
			{"role": "user", "content": text},
		},
		"temperature": 0.2,
	}

	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return "", fmt.Errorf("encode translation payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.client.baseURL+"/chat/completions", buf)
	if err != nil {
		return "", fmt.Errorf("create translation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.client.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", t.client.decodeAPIError(resp)
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("decode translation response: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", errors.New("no translation returned")
	}

	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

func languageLabel(code string) string {
	if label, ok := languageLabels[code]; ok {
		return label
	}
	return code
}

func (c *OpenAIClient) do(req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(req.Context(), c.reqTimeout)
	req = req.WithContext(ctx)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	resp.Body = cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func (c *OpenAIClient) decodeAPIError(resp *http.Response) error {
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    any    `json:"code"`
		} `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)

	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("openai api error: status %d type %s message %s", resp.StatusCode, apiErr.Error.Type, apiErr.Error.Message)
	}

	return fmt.Errorf("openai api error: status %d body %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

func (c *OpenAIClient) ensureAPIKey() error {
	if strings.TrimSpace(c.apiKey) == "" {
		return errors.New("openai api key is not configured")
	}
	return nil
}

// cancelOnClose releases the per-request timeout once the body is consumed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
