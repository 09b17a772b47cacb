package tasks

import (
	"context"
	"sync"
	"time"

	"whisperasr/internal/domain"
)

// MemoryRegistry keeps tasks in a process-local map guarded by one mutex.
type MemoryRegistry struct {
	mu    sync.Mutex
	tasks map[string]domain.Task
	now   func() time.Time
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		tasks: map[string]domain.Task{},
		now:   time.Now,
	}
}

func (r *MemoryRegistry) Create(_ context.Context, id string) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; ok {
		return domain.Task{}, ErrTaskExists
	}
	task := newTask(id, r.now())
	r.tasks[id] = task
	return task, nil
}

func (r *MemoryRegistry) Update(_ context.Context, id string, u Update) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return false, nil
	}
	apply(&task, u, r.now())
	r.tasks[id] = task
	return true, nil
}

func (r *MemoryRegistry) Get(_ context.Context, id string) (domain.Task, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	return task, ok, nil
}

// Cleanup removes a task that has reached a terminal status.
func (r *MemoryRegistry) Cleanup(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	if !task.Status.Terminal() {
		return ErrTaskActive
	}
	delete(r.tasks, id)
	return nil
}

// Sweep removes terminal tasks whose last update happened before the cutoff.
func (r *MemoryRegistry) Sweep(_ context.Context, before time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	cutoff := before.Unix()
	for id, task := range r.tasks {
		if task.Status.Terminal() && task.UpdatedAt < cutoff {
			delete(r.tasks, id)
			removed++
		}
	}
	return removed, nil
}
