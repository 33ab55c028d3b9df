package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/storage"
)

const (
	// DefaultGCThreshold is how long a soft-deleted record is kept
	DefaultGCThreshold = 30 * 24 * time.Hour // 30 days
)

// GarbageCollector purges records that have been soft-deleted for longer
// than the threshold.
type GarbageCollector struct {
	engine    *storage.Engine
	logger    logger.Logger
	interval  time.Duration
	threshold time.Duration
	now       domain.Clock
	stopCh    chan struct{}
}

// NewGarbageCollector creates a new garbage collector
func NewGarbageCollector(
	engine *storage.Engine,
	log logger.Logger,
	interval time.Duration,
	threshold time.Duration,
) *GarbageCollector {
	if threshold == 0 {
		threshold = DefaultGCThreshold
	}

	return &GarbageCollector{
		engine:    engine,
		logger:    log,
		interval:  interval,
		threshold: threshold,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic garbage collection process
func (gc *GarbageCollector) Start(ctx context.Context) error {
	if _, err := gc.Collect(ctx); err != nil {
		gc.logger.Warn("initial garbage collection failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(gc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := gc.Collect(ctx); err != nil {
					gc.logger.Error("garbage collection failed",
						logger.Error(err))
				}
			case <-gc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the garbage collector
func (gc *GarbageCollector) Stop() {
	close(gc.stopCh)
}

// Collect hard-deletes unavailable records whose last update is older
// than the threshold and returns how many were removed.
func (gc *GarbageCollector) Collect(ctx context.Context) (int, error) {
	records, err := gc.engine.All(ctx)
	if err != nil {
		return 0, err
	}

	now := gc.now()
	deleted := 0
	for _, rec := range records {
		if rec.IsAvailable || rec.UpdatedAt.IsZero() {
			continue
		}
		age := now.Sub(rec.UpdatedAt)
		if age < gc.threshold {
			continue
		}

		if err := gc.engine.Delete(ctx, rec.ID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			gc.logger.Warn("failed to delete record",
				logger.String("record_id", rec.ID),
				logger.Error(err))
			continue
		}

		gc.logger.Debug("garbage collected record",
			logger.String("record_id", rec.ID),
			logger.String("platform", string(rec.Platform)),
			logger.String("unavailable_for", age.String()))
		deleted++
	}

	if deleted > 0 {
		gc.logger.Info("garbage collection completed",
			logger.Int("deleted", deleted))
	} else {
		gc.logger.Debug("no records to garbage collect")
	}
	return deleted, nil
}
