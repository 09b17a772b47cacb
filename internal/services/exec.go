package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// commandResult is one process execution outcome.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution so tests can fake ffmpeg and
// whisper.cpp. onStderrLine is called for each complete stderr line when set.
type commandRunner interface {
	Run(ctx context.Context, name string, args []string, onStderrLine func(string)) (commandResult, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args []string, onStderrLine func(string)) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	lines := &lineWriter{buf: &stderr, onLine: onStderrLine}
	cmd.Stderr = lines

	err := cmd.Run()
	lines.flush()

	result := commandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}

// lineWriter copies everything into buf and hands complete lines to onLine.
// whisper.cpp and ffmpeg both use \r for in-place updates, so it counts as a
// line break too.
type lineWriter struct {
	buf     *bytes.Buffer
	pending []byte
	onLine  func(string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	if w.onLine == nil {
		return len(p), nil
	}
	for _, b := range p {
		if b == '\n' || b == '\r' {
			w.emit()
			continue
		}
		w.pending = append(w.pending, b)
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	if w.onLine != nil {
		w.emit()
	}
}

func (w *lineWriter) emit() {
	if len(w.pending) == 0 {
		return
	}
	w.onLine(string(w.pending))
	w.pending = w.pending[:0]
}

// commandError summarizes a failed command with the tail of its stderr.
func commandError(name string, res commandResult, err error) error {
	tail := strings.TrimSpace(res.Stderr)
	if len(tail) > 400 {
		tail = "..." + tail[len(tail)-400:]
	}
	if tail == "" {
		return fmt.Errorf("%s exited with code %d: %w", name, res.ExitCode, err)
	}
	return fmt.Errorf("%s exited with code %d: %s: %w", name, res.ExitCode, tail, err)
}
