package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Logger is the logging surface the resolver needs. *slog.Logger satisfies it.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Janitor periodically prunes stale artifacts from a Store.
type Janitor struct {
	store  *Store
	maxAge time.Duration
	logger Logger
	cron   *cron.Cron
}

// NewJanitor schedules pruning of artifacts older than maxAge using a standard
// five-field cron expression or a descriptor such as "@daily".
func NewJanitor(store *Store, schedule string, maxAge time.Duration, logger Logger) (*Janitor, error) {
	if maxAge <= 0 {
		return nil, fmt.Errorf("%w: max age must be positive, got %s", ErrInvalidCacheConfig, maxAge)
	}
	j := &Janitor{
		store:  store,
		maxAge: maxAge,
		logger: logger,
		cron:   cron.New(),
	}
	if _, err := j.cron.AddFunc(schedule, j.Prune); err != nil {
		return nil, fmt.Errorf("%w: prune schedule %q: %w", ErrInvalidCacheConfig, schedule, err)
	}
	return j, nil
}

// Start runs the schedule in the background.
func (j *Janitor) Start() {
	if j.logger != nil {
		j.logger.Info("Starting cache janitor", "cache", j.store.Root(), "maxAge", j.maxAge)
	}
	j.cron.Start()
}

// Stop halts the schedule and waits for a running prune, or until ctx is done.
func (j *Janitor) Stop(ctx context.Context) error {
	done := j.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Prune runs one pruning pass.
func (j *Janitor) Prune() {
	removed, err := j.store.Prune(j.maxAge)
	if j.logger == nil {
		return
	}
	if err != nil {
		j.logger.Error("Cache prune failed", "cache", j.store.Root(), "error", err)
		return
	}
	j.logger.Info("Cache pruned", "cache", j.store.Root(), "removed", removed)
}
