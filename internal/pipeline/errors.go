package pipeline

import "fmt"

const (
	StageConvert    = "convert"
	StageTranscribe = "transcribe"
	StageDiarize    = "diarize"
	StageTranslate  = "translate"
	StageHash       = "hash"
	StagePersist    = "persist"
)

// StageError records which pipeline stage failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
