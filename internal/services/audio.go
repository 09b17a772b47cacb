package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FFmpegConverter converts any input ffmpeg understands into mono 16 kHz
// 16-bit PCM WAV.
type FFmpegConverter struct {
	path     string
	runner   commandRunner
	duration func(path string) (float64, error)
}

func NewFFmpegConverter(path string) *FFmpegConverter {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpegConverter{path: path, runner: execRunner{}, duration: WAVDuration}
}

func (c *FFmpegConverter) Convert(ctx context.Context, inputPath, outputPath string) (float64, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return 0, fmt.Errorf("ensure output directory: %w", err)
	}

	res, err := c.runner.Run(ctx, c.path, buildFFmpegArgs(inputPath, outputPath), nil)
	if err != nil {
		os.Remove(outputPath)
		return 0, commandError("ffmpeg", res, err)
	}

	duration, err := c.duration(outputPath)
	if err != nil {
		return 0, fmt.Errorf("read converted audio: %w", err)
	}
	return duration, nil
}

func buildFFmpegArgs(inputPath, outputPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outputPath,
	}
}
