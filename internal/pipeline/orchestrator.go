package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"whisperasr/internal/domain"
	"whisperasr/internal/metrics"
	"whisperasr/internal/services"
	"whisperasr/internal/storage"
	"whisperasr/internal/tasks"
)

const (
	progressInitialize = 10.0
	progressConvert    = 30.0
	progressTranscribe = 50.0
	progressDiarize    = 70.0
	progressFinalize   = 85.0
	progressDone       = 100.0

	progressBuffer = 16

	resultMessage = "Recognition completed successfully"
)

// Job is one accepted upload waiting to be processed.
type Job struct {
	TaskID     string
	Filename   string
	SourcePath string
}

// Orchestrator drives a job through conversion, transcription, speaker
// assignment, translation and persistence, reporting progress to the
// registry as it goes.
type Orchestrator struct {
	registry    tasks.Registry
	files       *storage.FileManager
	results     *storage.ResultStore
	converter   services.AudioConverter
	transcriber services.Transcriber
	diarizer    services.Diarizer
	translation *services.TranslationService
	log         zerolog.Logger

	now   func() time.Time
	newID func() string
}

type Options struct {
	Registry    tasks.Registry
	Files       *storage.FileManager
	Results     *storage.ResultStore
	Converter   services.AudioConverter
	Transcriber services.Transcriber
	// Diarizer may be nil, in which case every segment gets speaker 0.
	Diarizer    services.Diarizer
	Translation *services.TranslationService
	Logger      zerolog.Logger
}

func NewOrchestrator(opts Options) *Orchestrator {
	return &Orchestrator{
		registry:    opts.Registry,
		files:       opts.Files,
		results:     opts.Results,
		converter:   opts.Converter,
		transcriber: opts.Transcriber,
		diarizer:    opts.Diarizer,
		translation: opts.Translation,
		log:         opts.Logger.With().Str("component", "pipeline").Logger(),
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Run processes job to completion. Failures are recorded on the task and
// also returned.
func (o *Orchestrator) Run(ctx context.Context, job Job) (err error) {
	log := o.log.With().Str("task_id", job.TaskID).Logger()
	started := time.Now()
	processed := o.files.ProcessedPath(job.TaskID)

	metrics.ActiveTasks.Inc()
	defer metrics.ActiveTasks.Dec()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
		if rmErr := o.files.Remove(job.SourcePath); rmErr != nil {
			log.Warn().Err(rmErr).Msg("remove uploaded file")
		}
		if err != nil {
			o.fail(ctx, log, job.TaskID, processed, err)
		}
	}()

	result, err := o.process(ctx, log, job, processed, started)
	if err != nil {
		return err
	}

	o.checkpoint(ctx, log, job.TaskID, tasks.Update{
		Status:   tasks.Status(domain.TaskStatusCompleted),
		Progress: tasks.Progress(progressDone),
		Message:  tasks.Text("recognition completed"),
		ResultID: tasks.Text(result.ResultID),
	})
	metrics.TasksTotal.WithLabelValues(string(domain.TaskStatusCompleted)).Inc()
	log.Info().Str("result_id", result.ResultID).Float64("processing_time", time.Since(started).Seconds()).Msg("task completed")
	return nil
}

func (o *Orchestrator) process(ctx context.Context, log zerolog.Logger, job Job, processed string, started time.Time) (domain.Result, error) {
	o.checkpoint(ctx, log, job.TaskID, tasks.Update{
		Status:   tasks.Status(domain.TaskStatusProcessing),
		Progress: tasks.Progress(progressInitialize),
		Message:  tasks.Text("initializing"),
	})

	o.checkpoint(ctx, log, job.TaskID, tasks.Update{Progress: tasks.Progress(progressConvert), Message: tasks.Text("converting audio")})
	var duration float64
	err := o.stage(StageConvert, func() error {
		var err error
		duration, err = o.converter.Convert(ctx, job.SourcePath, processed)
		return err
	})
	if err != nil {
		return domain.Result{}, err
	}

	o.checkpoint(ctx, log, job.TaskID, tasks.Update{Progress: tasks.Progress(progressTranscribe), Message: tasks.Text("transcribing")})
	var transcript domain.Transcript
	err = o.stage(StageTranscribe, func() error {
		var err error
		transcript, err = o.transcribe(ctx, log, job.TaskID, processed)
		return err
	})
	if err != nil {
		return domain.Result{}, err
	}

	o.checkpoint(ctx, log, job.TaskID, tasks.Update{Progress: tasks.Progress(progressDiarize), Message: tasks.Text("identifying speakers")})
	var segments []domain.Segment
	_ = o.stage(StageDiarize, func() error {
		segments = o.assignSpeakers(ctx, log, processed, transcript.Segments)
		return nil
	})

	o.checkpoint(ctx, log, job.TaskID, tasks.Update{Progress: tasks.Progress(progressFinalize), Message: tasks.Text("generating result")})
	_ = o.stage(StageTranslate, func() error {
		o.translation.TranslateAll(ctx, segments)
		return nil
	})

	var audioHash string
	err = o.stage(StageHash, func() error {
		var err error
		audioHash, err = hashFile(processed)
		return err
	})
	if err != nil {
		return domain.Result{}, err
	}

	text := strings.TrimSpace(transcript.Text)
	if text == "" {
		parts := make([]string, 0, len(segments))
		for _, seg := range segments {
			parts = append(parts, seg.Text)
		}
		text = strings.Join(parts, " ")
	}

	now := domain.Timestamp(o.now())
	id := o.newID()
	processingTime := time.Since(started).Seconds()
	result := domain.Result{
		Success:          true,
		ResultID:         id,
		Text:             text,
		Sentences:        segments,
		Speakers:         SpeakerSet(segments),
		TotalDuration:    duration,
		AudioHash:        audioHash,
		Filename:         job.Filename,
		Timestamp:        now,
		Message:          resultMessage,
		AudioPath:        storage.AudioFileName(id),
		UpdatedTimestamp: now,
		ProcessingTime:   &processingTime,
	}

	err = o.stage(StagePersist, func() error {
		return o.results.Save(result, processed)
	})
	if err != nil {
		return domain.Result{}, err
	}
	return result, nil
}

// transcribe runs the transcriber while a single forwarder goroutine moves
// its progress ticks into the registry. The forwarder is drained before
// returning so the next checkpoint cannot be overtaken.
func (o *Orchestrator) transcribe(ctx context.Context, log zerolog.Logger, taskID, audioPath string) (domain.Transcript, error) {
	ticks := make(chan float64, progressBuffer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		o.forwardProgress(ctx, log, taskID, ticks)
	}()

	defer func() {
		close(ticks)
		<-done
	}()

	return o.transcriber.Transcribe(ctx, audioPath, func(p float64) {
		select {
		case ticks <- p:
		default:
			log.Debug().Float64("progress", p).Msg("progress tick dropped")
		}
	})
}

// forwardProgress scales ticks from [0,1] into the transcription band and
// never writes a value lower than one it already wrote.
func (o *Orchestrator) forwardProgress(ctx context.Context, log zerolog.Logger, taskID string, ticks <-chan float64) {
	last := progressTranscribe
	for p := range ticks {
		if p < 0 {
			p = 0
		}
		value := progressTranscribe + p*(progressDiarize-progressTranscribe)
		if value <= last || value >= progressDiarize {
			continue
		}
		if _, err := o.registry.Update(ctx, taskID, tasks.Update{Progress: tasks.Progress(value)}); err != nil {
			log.Warn().Err(err).Float64("progress", value).Msg("progress update dropped")
			continue
		}
		last = value
	}
}

func (o *Orchestrator) assignSpeakers(ctx context.Context, log zerolog.Logger, audioPath string, segments []domain.Segment) []domain.Segment {
	if o.diarizer == nil {
		return zeroSpeakers(segments)
	}

	turns, err := o.diarizer.Diarize(ctx, audioPath)
	if err != nil {
		metrics.ProviderFallbacks.WithLabelValues("diarization").Inc()
		log.Warn().Err(err).Msg("diarization failed, using a single speaker")
		return zeroSpeakers(segments)
	}
	return AssignSpeakers(segments, turns)
}

func (o *Orchestrator) stage(name string, fn func() error) error {
	started := time.Now()
	err := fn()
	metrics.StageDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())
	if err != nil {
		return &StageError{Stage: name, Err: err}
	}
	return nil
}

func (o *Orchestrator) checkpoint(ctx context.Context, log zerolog.Logger, taskID string, u tasks.Update) {
	ok, err := o.registry.Update(ctx, taskID, u)
	if err != nil {
		log.Error().Err(err).Msg("task update failed")
		return
	}
	if !ok {
		log.Warn().Msg("task vanished from registry")
	}
}

func (o *Orchestrator) fail(ctx context.Context, log zerolog.Logger, taskID, processed string, cause error) {
	log.Error().Err(cause).Msg("task failed")
	if err := o.files.Remove(processed); err != nil {
		log.Warn().Err(err).Msg("remove processed audio")
	}
	o.checkpoint(ctx, log, taskID, tasks.Update{
		Status:  tasks.Status(domain.TaskStatusFailed),
		Message: tasks.Text("processing failed: " + cause.Error()),
	})
	metrics.TasksTotal.WithLabelValues(string(domain.TaskStatusFailed)).Inc()
}

func zeroSpeakers(segments []domain.Segment) []domain.Segment {
	out := make([]domain.Segment, len(segments))
	copy(out, segments)
	for i := range out {
		out[i].Speaker = 0
	}
	return out
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
