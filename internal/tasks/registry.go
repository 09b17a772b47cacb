package tasks

import (
	"context"
	"errors"
	"time"

	"whisperasr/internal/domain"
)

var (
	ErrTaskExists   = errors.New("task already exists")
	ErrTaskNotFound = errors.New("task not found")
	ErrTaskActive   = errors.New("task is still running")
)

// Update carries the fields to merge into a task. Nil fields are left as they are.
type Update struct {
	Status   *domain.TaskStatus
	Progress *float64
	Message  *string
	ResultID *string
}

// Registry is the single source of truth for in-flight task state. Each call
// is serialized against every other call on the same registry.
type Registry interface {
	Create(ctx context.Context, id string) (domain.Task, error)
	Update(ctx context.Context, id string, u Update) (bool, error)
	Get(ctx context.Context, id string) (domain.Task, bool, error)
	Cleanup(ctx context.Context, id string) error
	Sweep(ctx context.Context, before time.Time) (int, error)
}

func Status(s domain.TaskStatus) *domain.TaskStatus { return &s }
func Progress(p float64) *float64                   { return &p }
func Text(s string) *string                         { return &s }

func newTask(id string, now time.Time) domain.Task {
	return domain.Task{
		TaskID:    id,
		Status:    domain.TaskStatusPending,
		Progress:  0,
		Message:   "task created",
		CreatedAt: now.Unix(),
		UpdatedAt: now.Unix(),
	}
}

func apply(task *domain.Task, u Update, now time.Time) {
	if u.Status != nil {
		task.Status = *u.Status
	}
	if u.Progress != nil {
		task.Progress = *u.Progress
	}
	if u.Message != nil {
		task.Message = *u.Message
	}
	if u.ResultID != nil {
		task.ResultID = *u.ResultID
	}
	task.UpdatedAt = now.Unix()
}
