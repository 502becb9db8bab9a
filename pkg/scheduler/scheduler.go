// Package scheduler runs maintenance jobs (audit pruning, keyed-store
// purging) on a cron schedule using github.com/robfig/cron/v3.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc performs one maintenance cycle and reports how many records it
// removed.
type JobFunc func(ctx context.Context) (int64, error)

// Scheduler runs a single job on a standard cron expression.
type Scheduler struct {
	name     string
	schedule string
	job      JobFunc
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

// New creates a scheduler for job. An empty schedule disables it.
func New(name, schedule string, job JobFunc) *Scheduler {
	return &Scheduler{
		name:     name,
		schedule: schedule,
		job:      job,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "scheduler", "job", name),
	}
}

// Start registers the job and starts the cron loop. The scheduler stops when
// ctx is cancelled.
//
// Common cron expressions:
//   - "0 3 * * *"    - Daily at 3 AM
//   - "0 */6 * * *"  - Every 6 hours
//   - "*/15 * * * *" - Every 15 minutes
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("schedule not configured, skipping scheduler")
		return nil
	}
	if s.running {
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule %s: %w", s.name, err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// RunOnce executes the job immediately and logs the outcome.
func (s *Scheduler) RunOnce(ctx context.Context) (int64, error) {
	removed, err := s.job(ctx)
	if err != nil {
		s.logger.Error("scheduled job failed", "error", err)
		return removed, err
	}
	if removed > 0 {
		s.logger.Info("scheduled job completed", "removed", removed)
	} else {
		s.logger.Debug("scheduled job completed, nothing removed")
	}
	return removed, nil
}

// Stop stops the scheduler and waits for a running job to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled run, or nil when not scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
