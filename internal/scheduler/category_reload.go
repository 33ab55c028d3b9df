package scheduler

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/sources/categories"
	"github.com/MrSnakeDoc/stash/internal/storage"
)

// CategoryReloader periodically replaces the stored categories with the
// contents of a categories.yaml file.
type CategoryReloader struct {
	loader        *categories.Loader
	mapper        *categories.Mapper
	engine        *storage.Engine
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewCategoryReloader creates a new category reloader
func NewCategoryReloader(
	categoryFile string,
	engine *storage.Engine,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *CategoryReloader {
	return &CategoryReloader{
		loader:        categories.NewLoader(categoryFile),
		mapper:        categories.NewMapper(),
		engine:        engine,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start loads the file once, then reloads on every tick and on every
// manual trigger.
func (cr *CategoryReloader) Start(ctx context.Context) error {
	if _, err := cr.Reload(ctx); err != nil {
		return fmt.Errorf("initial category reload failed: %w", err)
	}

	ticker := time.NewTicker(cr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := cr.Reload(ctx); err != nil {
					cr.logger.Error("failed to reload categories",
						logger.Error(err))
				}
			case <-cr.manualTrigger:
				cr.logger.Info("manual category reload triggered")
				if _, err := cr.Reload(ctx); err != nil {
					cr.logger.Error("failed to reload categories",
						logger.Error(err))
				}
			case <-cr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader
func (cr *CategoryReloader) Stop() {
	close(cr.stopCh)
}

// Reload reads the file and saves its categories when they differ from
// the stored ones. It reports whether anything was written.
func (cr *CategoryReloader) Reload(ctx context.Context) (bool, error) {
	file, err := cr.loader.Load()
	if err != nil {
		return false, fmt.Errorf("failed to load categories: %w", err)
	}

	next, err := cr.mapper.MapCategories(file)
	if err != nil {
		return false, fmt.Errorf("failed to map categories: %w", err)
	}

	current, err := cr.engine.Categories(ctx)
	if err != nil {
		return false, err
	}
	if reflect.DeepEqual(current, next) {
		cr.logger.Debug("categories unchanged",
			logger.String("file", cr.loader.Path()))
		return false, nil
	}

	saved, err := cr.engine.SaveCategories(ctx, next)
	if err != nil {
		return false, err
	}
	cr.logger.Info("categories reloaded",
		logger.String("file", cr.loader.Path()),
		logger.Int("count", len(saved)))
	return true, nil
}
