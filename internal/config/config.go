package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var AllowedExtensions = []string{".wav", ".mp3", ".m4a", ".flac", ".ogg", ".aac"}

type Config struct {
	Port      string
	BaseURL   string
	LogLevel  string
	LogFormat string

	DataDir      string
	UploadDir    string
	ProcessedDir string
	ResultsDir   string

	MaxUploadBytes     int64
	RemoteFetchTimeout time.Duration
	MaxConcurrentTasks int64

	Transcriber           string
	OpenAIAPIKey          string
	OpenAIBaseURL         string
	OpenAIModelTranscribe string
	OpenAIModelTranslate  string
	WhisperCPPPath        string
	WhisperModelPath      string
	WhisperLanguage       string
	FFmpegPath            string

	EnableDiarization bool
	DiarizationURL    string

	TranslationEnabled bool
	Translator         string
	DeepLAPIKey        string
	DeepLAPIURL        string

	TaskStore       string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	TaskTTL         time.Duration
	CleanupSchedule string

	ShareSecret string
	ShareTTL    time.Duration
	PDFFontPath string
}

func defaults(v *viper.Viper) {
	v.SetDefault("PORT", "8002")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("DATA_DIR", "storage")
	v.SetDefault("MAX_UPLOAD_MB", 500)
	v.SetDefault("REMOTE_FETCH_TIMEOUT_SECONDS", 60)
	v.SetDefault("MAX_CONCURRENT_TASKS", 0)

	v.SetDefault("TRANSCRIBER", "openai")
	v.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("OPENAI_MODEL_TRANSCRIBE", "whisper-1")
	v.SetDefault("OPENAI_MODEL_TRANSLATE", "gpt-4o-mini")
	v.SetDefault("WHISPER_CPP_PATH", "whisper-cli")
	v.SetDefault("WHISPER_LANGUAGE", "auto")
	v.SetDefault("FFMPEG_PATH", "ffmpeg")

	v.SetDefault("ENABLE_DIARIZATION", true)
	v.SetDefault("TRANSLATION_ENABLED", true)
	v.SetDefault("TRANSLATOR", "deepl")
	v.SetDefault("DEEPL_API_URL", "https://api-free.deepl.com/v2/translate")

	v.SetDefault("TASK_STORE", "memory")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("TASK_TTL_MINUTES", 60)
	v.SetDefault("CLEANUP_SCHEDULE", "@every 10m")

	v.SetDefault("SHARE_SECRET", "change-me")
	v.SetDefault("SHARE_TTL_SECONDS", 86400)
}

func LoadConfig() (Config, error) {
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{}

	cfg.Port = v.GetString("PORT")
	cfg.BaseURL = v.GetString("BASE_URL")
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%s", cfg.Port)
	}
	cfg.LogLevel = v.GetString("LOG_LEVEL")
	cfg.LogFormat = v.GetString("LOG_FORMAT")

	maxUploadMB := v.GetInt64("MAX_UPLOAD_MB")
	if maxUploadMB <= 0 {
		return Config{}, fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", maxUploadMB)
	}
	cfg.MaxUploadBytes = maxUploadMB * 1024 * 1024
	cfg.RemoteFetchTimeout = time.Duration(v.GetInt64("REMOTE_FETCH_TIMEOUT_SECONDS")) * time.Second
	cfg.MaxConcurrentTasks = v.GetInt64("MAX_CONCURRENT_TASKS")

	cfg.Transcriber = strings.ToLower(v.GetString("TRANSCRIBER"))
	switch cfg.Transcriber {
	case "openai", "whispercpp":
	default:
		return Config{}, fmt.Errorf("unknown TRANSCRIBER %q", cfg.Transcriber)
	}
	cfg.OpenAIAPIKey = v.GetString("OPENAI_API_KEY")
	cfg.OpenAIBaseURL = strings.TrimRight(v.GetString("OPENAI_BASE_URL"), "/")
	cfg.OpenAIModelTranscribe = v.GetString("OPENAI_MODEL_TRANSCRIBE")
	cfg.OpenAIModelTranslate = v.GetString("OPENAI_MODEL_TRANSLATE")
	cfg.WhisperCPPPath = v.GetString("WHISPER_CPP_PATH")
	cfg.WhisperModelPath = v.GetString("WHISPER_MODEL_PATH")
	cfg.WhisperLanguage = v.GetString("WHISPER_LANGUAGE")
	cfg.FFmpegPath = v.GetString("FFMPEG_PATH")

	cfg.EnableDiarization = v.GetBool("ENABLE_DIARIZATION")
	cfg.DiarizationURL = v.GetString("DIARIZATION_URL")

	cfg.TranslationEnabled = v.GetBool("TRANSLATION_ENABLED")
	cfg.Translator = strings.ToLower(v.GetString("TRANSLATOR"))
	switch cfg.Translator {
	case "deepl", "openai", "none":
	default:
		return Config{}, fmt.Errorf("unknown TRANSLATOR %q", cfg.Translator)
	}
	cfg.DeepLAPIKey = v.GetString("DEEPL_API_KEY")
	cfg.DeepLAPIURL = v.GetString("DEEPL_API_URL")

	cfg.TaskStore = strings.ToLower(v.GetString("TASK_STORE"))
	switch cfg.TaskStore {
	case "memory", "redis":
	default:
		return Config{}, fmt.Errorf("unknown TASK_STORE %q", cfg.TaskStore)
	}
	cfg.RedisAddr = v.GetString("REDIS_ADDR")
	cfg.RedisPassword = v.GetString("REDIS_PASSWORD")
	cfg.RedisDB = v.GetInt("REDIS_DB")
	cfg.TaskTTL = time.Duration(v.GetInt64("TASK_TTL_MINUTES")) * time.Minute
	cfg.CleanupSchedule = v.GetString("CLEANUP_SCHEDULE")

	cfg.ShareSecret = v.GetString("SHARE_SECRET")
	cfg.ShareTTL = time.Duration(v.GetInt64("SHARE_TTL_SECONDS")) * time.Second
	cfg.PDFFontPath = v.GetString("PDF_FONT_PATH")

	absDataDir, err := filepath.Abs(v.GetString("DATA_DIR"))
	if err != nil {
		return Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg.DataDir = absDataDir
	cfg.UploadDir = filepath.Join(absDataDir, "uploads")
	cfg.ProcessedDir = filepath.Join(absDataDir, "processed")
	cfg.ResultsDir = filepath.Join(absDataDir, "results")

	return cfg, nil
}
