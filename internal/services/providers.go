package services

import (
	"context"

	"whisperasr/internal/domain"
)

// Transcriber turns an audio file into timed segments. onProgress receives
// values in [0,1] and may be nil.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, onProgress func(float64)) (domain.Transcript, error)
}

// Diarizer returns speaker turns for an audio file.
type Diarizer interface {
	Diarize(ctx context.Context, audioPath string) ([]domain.Turn, error)
}

// Translator translates text between two language codes ("zh", "en").
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// AudioConverter normalizes an input file into the working waveform and
// reports its duration in seconds.
type AudioConverter interface {
	Convert(ctx context.Context, inputPath, outputPath string) (float64, error)
}

func reportProgress(onProgress func(float64), value float64) {
	if onProgress != nil {
		onProgress(value)
	}
}
