package app

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"whisperasr/internal/config"
	"whisperasr/internal/pipeline"
	"whisperasr/internal/services"
	"whisperasr/internal/storage"
	"whisperasr/internal/tasks"
)

// App holds every long-lived collaborator. It is built once at startup and
// handed to the HTTP layer.
type App struct {
	Config config.Config
	Logger zerolog.Logger

	Files        *storage.FileManager
	Results      *storage.ResultStore
	Registry     tasks.Registry
	Orchestrator *pipeline.Orchestrator
	Queue        *pipeline.Queue
	Translation  *services.TranslationService
	Fetcher      *services.RemoteFetcher
	Share        *services.ShareService
	PDF          *services.PDFService

	janitor *tasks.Janitor
	closers []io.Closer
}

func New(cfg config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: log}

	files, err := storage.NewFileManager(cfg.UploadDir, cfg.ProcessedDir, cfg.MaxUploadBytes, config.AllowedExtensions)
	if err != nil {
		return nil, fmt.Errorf("init file manager: %w", err)
	}
	a.Files = files

	results, err := storage.NewResultStore(cfg.ResultsDir, log)
	if err != nil {
		return nil, fmt.Errorf("init result store: %w", err)
	}
	a.Results = results

	registry, err := a.newRegistry()
	if err != nil {
		return nil, err
	}
	a.Registry = registry

	janitor, err := tasks.NewJanitor(registry, cfg.CleanupSchedule, cfg.TaskTTL, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.janitor = janitor

	openai := services.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)

	var transcriber services.Transcriber
	switch cfg.Transcriber {
	case "whispercpp":
		transcriber = services.NewWhisperCPPTranscriber(cfg.WhisperCPPPath, cfg.WhisperModelPath, cfg.WhisperLanguage, log)
	default:
		transcriber = services.NewOpenAITranscriber(openai, cfg.OpenAIModelTranscribe, log)
	}

	var diarizer services.Diarizer
	if cfg.EnableDiarization {
		if cfg.DiarizationURL == "" {
			log.Warn().Msg("diarization enabled but DIARIZATION_URL is empty; every segment will use speaker 0")
		} else {
			diarizer = services.NewHTTPDiarizer(cfg.DiarizationURL, log)
		}
	}

	var translator services.Translator
	switch cfg.Translator {
	case "deepl":
		translator = services.NewDeepLTranslator(cfg.DeepLAPIKey, cfg.DeepLAPIURL)
	case "openai":
		translator = services.NewOpenAITranslator(openai, cfg.OpenAIModelTranslate)
	default:
		translator = services.PassthroughTranslator{}
	}
	a.Translation = services.NewTranslationService(translator, cfg.TranslationEnabled, cfg.Translator, log)

	a.Orchestrator = pipeline.NewOrchestrator(pipeline.Options{
		Registry:    registry,
		Files:       files,
		Results:     results,
		Converter:   services.NewFFmpegConverter(cfg.FFmpegPath),
		Transcriber: transcriber,
		Diarizer:    diarizer,
		Translation: a.Translation,
		Logger:      log,
	})
	a.Queue = pipeline.NewQueue(cfg.MaxConcurrentTasks, log)
	a.Fetcher = services.NewRemoteFetcher(files, cfg.RemoteFetchTimeout, log)
	a.Share = services.NewShareService(cfg.ShareSecret, cfg.BaseURL, cfg.ShareTTL)
	a.PDF = services.NewPDFService(cfg.PDFFontPath)

	log.Info().
		Str("transcriber", cfg.Transcriber).
		Str("translator", cfg.Translator).
		Bool("diarization", diarizer != nil).
		Str("task_store", cfg.TaskStore).
		Msg("application initialized")

	return a, nil
}

func (a *App) newRegistry() (tasks.Registry, error) {
	if a.Config.TaskStore != "redis" {
		return tasks.NewMemoryRegistry(), nil
	}

	registry, err := tasks.NewRedisRegistry(tasks.RedisConfig{
		Addr:     a.Config.RedisAddr,
		Password: a.Config.RedisPassword,
		DB:       a.Config.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("init redis task registry: %w", err)
	}
	a.closers = append(a.closers, registry)
	return registry, nil
}

// Start launches background jobs.
func (a *App) Start() {
	if a.janitor != nil {
		a.janitor.Start()
	}
}

// Close stops the janitor, waits for running tasks and releases connections.
func (a *App) Close() {
	if a.janitor != nil {
		a.janitor.Stop()
	}
	if a.Queue != nil {
		a.Queue.Wait()
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("close resource")
		}
	}
}
