package pipeline

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Queue runs each submitted task in its own goroutine. A positive limit caps
// how many run at once; the rest wait for a free slot.
type Queue struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
	ctx context.Context
	log zerolog.Logger
}

func NewQueue(limit int64, log zerolog.Logger) *Queue {
	q := &Queue{
		ctx: context.Background(),
		log: log.With().Str("component", "queue").Logger(),
	}
	if limit > 0 {
		q.sem = semaphore.NewWeighted(limit)
	}
	return q
}

// Submit schedules fn and returns immediately. fn receives a context that is
// not tied to the submitting request.
func (q *Queue) Submit(taskID string, fn func(ctx context.Context)) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				q.log.Error().Str("task_id", taskID).Interface("panic", rec).Msg("task panicked")
			}
		}()

		if q.sem != nil {
			if err := q.sem.Acquire(q.ctx, 1); err != nil {
				q.log.Error().Err(err).Str("task_id", taskID).Msg("acquire worker slot")
				return
			}
			defer q.sem.Release(1)
		}

		q.log.Debug().Str("task_id", taskID).Msg("task started")
		fn(q.ctx)
	}()
}

// Wait blocks until every submitted task has returned.
func (q *Queue) Wait() {
	q.wg.Wait()
}
