package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Janitor periodically drops finished tasks that nobody polled for a while.
type Janitor struct {
	cron     *cron.Cron
	registry Registry
	ttl      time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

func NewJanitor(registry Registry, schedule string, ttl time.Duration, log zerolog.Logger) (*Janitor, error) {
	j := &Janitor{
		cron:     cron.New(),
		registry: registry,
		ttl:      ttl,
		log:      log.With().Str("component", "janitor").Logger(),
		now:      time.Now,
	}

	if _, err := j.cron.AddFunc(schedule, j.RunOnce); err != nil {
		return nil, fmt.Errorf("schedule task cleanup %q: %w", schedule, err)
	}
	return j, nil
}

func (j *Janitor) Start() {
	j.cron.Start()
}

func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

// RunOnce performs a single sweep.
func (j *Janitor) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := j.registry.Sweep(ctx, j.now().Add(-j.ttl))
	if err != nil {
		j.log.Warn().Err(err).Msg("task sweep failed")
		return
	}
	if removed > 0 {
		j.log.Info().Int("removed", removed).Msg("expired tasks removed")
	}
}
