// Package retention enforces audit trail retention: events older than the
// retention period are removed, and the total number of events can be capped.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/audit"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/scheduler"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to retain audit events.
	// 0 keeps events forever.
	RetentionDays int

	// PruneSchedule is a cron expression, e.g. "0 3 * * *".
	PruneSchedule string

	// MaxEvents caps the number of stored events. 0 means unlimited.
	MaxEvents int64
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 365,
		PruneSchedule: "0 3 * * *",
	}
}

// Pruner enforces retention policies on an audit store.
type Pruner struct {
	store  audit.Store
	config *Config
	logger *slog.Logger
	now    func() time.Time
}

// NewPruner creates a new retention pruner.
func NewPruner(store audit.Store, config *Config) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}
	return &Pruner{
		store:  store,
		config: config,
		logger: slog.Default().With("component", "audit.retention"),
		now:    time.Now,
	}
}

// Scheduler returns a cron scheduler that runs Prune on the configured schedule.
func (p *Pruner) Scheduler() *scheduler.Scheduler {
	return scheduler.New("audit.retention", p.config.PruneSchedule, p.Prune)
}

// Prune deletes events older than the retention period, then the oldest
// events beyond MaxEvents. Returns the total number of events deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.RetentionDays > 0 {
		cutoff := p.now().AddDate(0, 0, -p.config.RetentionDays)
		deleted, err := p.store.Delete(ctx, &audit.Query{EndTime: &cutoff})
		if err != nil {
			return total, fmt.Errorf("prune by age failed: %w", err)
		}
		total += deleted
		p.logger.Info("pruned audit events by age",
			"deleted_count", deleted,
			"retention_days", p.config.RetentionDays,
		)
	}

	if p.config.MaxEvents > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return total, fmt.Errorf("prune by count failed: %w", err)
		}
		total += deleted
	}

	return total, nil
}

func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.store.Count(ctx, &audit.Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	if count <= p.config.MaxEvents {
		return 0, nil
	}

	excess := int(count - p.config.MaxEvents)
	oldest, err := p.store.Query(ctx, &audit.Query{Limit: excess})
	if err != nil {
		return 0, fmt.Errorf("failed to query events: %w", err)
	}
	if len(oldest) == 0 {
		return 0, nil
	}

	cutoff := oldest[len(oldest)-1].Timestamp
	deleted, err := p.store.Delete(ctx, &audit.Query{EndTime: &cutoff})
	if err != nil {
		return 0, fmt.Errorf("delete failed: %w", err)
	}

	p.logger.Info("pruned audit events by count",
		"deleted_count", deleted,
		"max_events", p.config.MaxEvents,
	)
	return deleted, nil
}
