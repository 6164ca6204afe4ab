package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"imaginationai/khawab/pkg/config"
)

// RetentionConfig contains configuration for the Pruner.
type RetentionConfig struct {
	// MaxEntries is the maximum number of entries to keep. 0 means unlimited.
	MaxEntries int

	// MaxAge removes entries older than this. 0 keeps entries forever.
	MaxAge time.Duration

	// Schedule is a cron expression for the Scheduler. Empty disables it.
	// Example: "0 3 * * *" (daily at 3 AM)
	Schedule string
}

// RetentionFromConfig builds a RetentionConfig from the history section.
func RetentionFromConfig(cfg config.HistoryConfig) RetentionConfig {
	return RetentionConfig{
		MaxEntries: cfg.MaxEntries,
		MaxAge:     cfg.Retention.MaxAge,
		Schedule:   cfg.Retention.Schedule,
	}
}

// Pruner enforces retention on a Store.
type Pruner struct {
	store    Store
	config   RetentionConfig
	observer Observer
	now      func() time.Time
	logger   *slog.Logger
}

// NewPruner creates a pruner. observer may be nil.
func NewPruner(store Store, cfg RetentionConfig, observer Observer) *Pruner {
	return &Pruner{
		store:    store,
		config:   cfg,
		observer: observer,
		now:      time.Now,
		logger:   slog.Default().With("component", "history.retention"),
	}
}

// Prune deletes entries older than MaxAge, then the oldest entries beyond
// MaxEntries. Returns the total number of entries removed.
func (p *Pruner) Prune(ctx context.Context) (int, error) {
	total := 0

	if p.config.MaxAge > 0 {
		cutoff := p.now().Add(-p.config.MaxAge)
		n, err := p.store.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			return total, fmt.Errorf("prune by age failed: %w", err)
		}
		total += n
		if n > 0 {
			p.logger.Info("pruned entries by age", "deleted_count", n, "max_age", p.config.MaxAge)
		}
	}

	if p.config.MaxEntries > 0 {
		n, err := p.store.Trim(ctx, p.config.MaxEntries)
		if err != nil {
			return total, fmt.Errorf("prune by count failed: %w", err)
		}
		total += n
		if n > 0 {
			p.logger.Info("pruned entries by count", "deleted_count", n, "max_entries", p.config.MaxEntries)
		}
	}

	if p.observer != nil {
		p.observer.ObserveHistoryPruned(total)
		if count, err := p.store.Count(ctx); err == nil {
			p.observer.ObserveHistoryEntries(count)
		}
	}

	if total == 0 {
		p.logger.Debug("no history entries pruned")
	}
	return total, nil
}
