package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"whisperasr/internal/domain"
)

var whisperProgressPattern = regexp.MustCompile(`progress\s*=\s*(\d+)%`)

// WhisperCPPTranscriber runs a local whisper.cpp binary and reads its full
// JSON output. Progress is parsed from the --print-progress stderr lines.
type WhisperCPPTranscriber struct {
	binary   string
	model    string
	language string
	runner   commandRunner
	readFile func(name string) ([]byte, error)
	log      zerolog.Logger
}

func NewWhisperCPPTranscriber(binary, model, language string, log zerolog.Logger) *WhisperCPPTranscriber {
	return &WhisperCPPTranscriber{
		binary:   binary,
		model:    model,
		language: language,
		runner:   execRunner{},
		readFile: os.ReadFile,
		log:      log.With().Str("provider", "whispercpp").Logger(),
	}
}

func (t *WhisperCPPTranscriber) Transcribe(ctx context.Context, audioPath string, onProgress func(float64)) (domain.Transcript, error) {
	if strings.TrimSpace(t.model) == "" {
		return domain.Transcript{}, errors.New("whisper model path is not configured")
	}

	base := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + "_whisper"
	defer os.Remove(base + ".json")

	onLine := func(line string) {
		m := whisperProgressPattern.FindStringSubmatch(line)
		if m == nil {
			return
		}
		pct, err := strconv.Atoi(m[1])
		if err != nil {
			return
		}
		reportProgress(onProgress, float64(pct)/100)
	}

	res, err := t.runner.Run(ctx, t.binary, buildWhisperArgs(t.model, audioPath, base, t.language), onLine)
	if err != nil {
		return domain.Transcript{}, commandError("whisper.cpp", res, err)
	}

	data, err := t.readFile(base + ".json")
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("read whisper output: %w", err)
	}
	transcript, err := parseWhisperJSON(data)
	if err != nil {
		return domain.Transcript{}, err
	}

	t.log.Debug().Int("segments", len(transcript.Segments)).Str("language", transcript.Language).Msg("whisper.cpp finished")
	reportProgress(onProgress, 1)
	return transcript, nil
}

func buildWhisperArgs(modelPath, audioPath, outputBase, language string) []string {
	lang := strings.TrimSpace(language)
	if lang == "" {
		lang = "auto"
	}
	return []string{
		"-m", modelPath,
		"-f", audioPath,
		"-of", outputBase,
		"-ojf",
		"-pp",
		"-l", lang,
	}
}

type whisperOffsets struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

type whisperOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets whisperOffsets `json:"offsets"`
		Text    string         `json:"text"`
		Tokens  []struct {
			Text    string         `json:"text"`
			Offsets whisperOffsets `json:"offsets"`
			P       float64        `json:"p"`
		} `json:"tokens"`
	} `json:"transcription"`
}

func parseWhisperJSON(data []byte) (domain.Transcript, error) {
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return domain.Transcript{}, fmt.Errorf("decode whisper output: %w", err)
	}

	transcript := domain.Transcript{
		Language: out.Result.Language,
		Segments: make([]domain.Segment, 0, len(out.Transcription)),
	}
	texts := make([]string, 0, len(out.Transcription))

	for _, item := range out.Transcription {
		text := strings.TrimSpace(item.Text)
		if text == "" {
			continue
		}
		seg := domain.Segment{
			Text:  text,
			Start: msToSeconds(item.Offsets.From),
			End:   msToSeconds(item.Offsets.To),
		}

		// Tokens are sub-word pieces; a leading space starts a new word.
		for _, tok := range item.Tokens {
			if strings.HasPrefix(tok.Text, "[_") || strings.TrimSpace(tok.Text) == "" {
				continue
			}
			start, end := msToSeconds(tok.Offsets.From), msToSeconds(tok.Offsets.To)
			n := len(seg.Words)
			if n == 0 || strings.HasPrefix(tok.Text, " ") {
				seg.Words = append(seg.Words, domain.Word{
					Word:        strings.TrimSpace(tok.Text),
					Start:       start,
					End:         end,
					Probability: tok.P,
				})
				continue
			}
			last := &seg.Words[n-1]
			last.Word += tok.Text
			last.End = end
			if tok.P < last.Probability {
				last.Probability = tok.P
			}
		}

		transcript.Segments = append(transcript.Segments, seg)
		texts = append(texts, text)
	}

	transcript.Text = strings.Join(texts, " ")
	return transcript, nil
}

func msToSeconds(ms int64) float64 {
	return float64(ms) / 1000
}
