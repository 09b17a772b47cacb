package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"whisperasr/internal/domain"
	"whisperasr/internal/metrics"
)

var deeplTargets = map[string]string{
	domain.LangZH: "ZH",
	domain.LangEN: "EN-US",
}

// DeepLTranslator calls the DeepL v2 translate endpoint.
type DeepLTranslator struct {
	apiKey     string
	url        string
	httpClient *http.Client
}

func NewDeepLTranslator(apiKey, url string) *DeepLTranslator {
	return &DeepLTranslator{
		apiKey:     apiKey,
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *DeepLTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	if strings.TrimSpace(t.apiKey) == "" {
		return "", errors.New("deepl api key is not configured")
	}
	targetLang, ok := deeplTargets[target]
	if !ok {
		return "", fmt.Errorf("unsupported target language %q", target)
	}

	payload := map[string]any{
		"text":        []string{text},
		"target_lang": targetLang,
	}
	if source != "" {
		payload["source_lang"] = strings.ToUpper(source)
	}

	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return "", fmt.Errorf("encode deepl payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, buf)
	if err != nil {
		return "", fmt.Errorf("create deepl request: %w", err)
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepl request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("deepl api error: status %d body %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var response struct {
		Translations []struct {
			Text string `json:"text"`
		} `json:"translations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("decode deepl response: %w", err)
	}
	if len(response.Translations) == 0 {
		return "", errors.New("no translation returned")
	}
	return response.Translations[0].Text, nil
}

// PassthroughTranslator returns its input unchanged.
type PassthroughTranslator struct{}

func (PassthroughTranslator) Translate(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
}

// DetectLanguage reports "zh" when text contains any CJK ideograph and "en"
// otherwise.
func DetectLanguage(text string) string {
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			return domain.LangZH
		}
	}
	return domain.LangEN
}

// TranslationService fills the bilingual record of each segment. Failures
// never propagate: the missing slot gets a copy of the source text.
type TranslationService struct {
	translator Translator
	enabled    bool
	name       string
	log        zerolog.Logger
}

func NewTranslationService(translator Translator, enabled bool, name string, log zerolog.Logger) *TranslationService {
	if translator == nil {
		translator = PassthroughTranslator{}
	}
	return &TranslationService{
		translator: translator,
		enabled:    enabled,
		name:       name,
		log:        log.With().Str("component", "translation").Logger(),
	}
}

// TranslateSegment builds the record for one text. An empty or "auto"
// sourceLang is detected from the text.
func (s *TranslationService) TranslateSegment(ctx context.Context, text, sourceLang string) domain.Translation {
	if sourceLang == "" || sourceLang == "auto" {
		sourceLang = DetectLanguage(text)
	}

	record := domain.Translation{ZH: text, EN: text, SourceLang: sourceLang}

	var target string
	switch sourceLang {
	case domain.LangZH:
		target = domain.LangEN
	case domain.LangEN:
		target = domain.LangZH
	default:
		return record
	}
	if !s.enabled || strings.TrimSpace(text) == "" {
		return record
	}

	translated, err := s.translator.Translate(ctx, text, sourceLang, target)
	if err != nil {
		metrics.ProviderFallbacks.WithLabelValues(s.name).Inc()
		s.log.Warn().Err(err).Str("source_lang", sourceLang).Msg("translation failed, keeping original text")
		return record
	}

	if target == domain.LangZH {
		record.ZH = translated
	} else {
		record.EN = translated
	}
	return record
}

// TranslateAll sets the translation of every segment in place, detecting the
// source language per segment.
func (s *TranslationService) TranslateAll(ctx context.Context, segments []domain.Segment) {
	for i := range segments {
		segments[i].Translation = s.TranslateSegment(ctx, segments[i].Text, "")
	}
}
