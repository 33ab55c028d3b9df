package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/syncer"
)

// SyncRunner runs one sync. *syncer.Service implements it.
type SyncRunner interface {
	Run(ctx context.Context) (syncer.Result, error)
}

// SyncJob runs the remote sync on a fixed interval.
type SyncJob struct {
	runner        SyncRunner
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewSyncJob creates a sync job. manualTrigger may be nil.
func NewSyncJob(runner SyncRunner, log logger.Logger, interval time.Duration, manualTrigger chan struct{}) *SyncJob {
	return &SyncJob{
		runner:        runner,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start runs a first sync in the background and keeps syncing until
// Stop is called or ctx is done.
func (sj *SyncJob) Start(ctx context.Context) error {
	ticker := time.NewTicker(sj.interval)
	go func() {
		defer ticker.Stop()
		sj.runOnce(ctx)
		for {
			select {
			case <-ticker.C:
				sj.runOnce(ctx)
			case <-sj.manualTrigger:
				sj.logger.Info("manual sync triggered")
				sj.runOnce(ctx)
			case <-sj.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Stop stops the job
func (sj *SyncJob) Stop() {
	close(sj.stopCh)
}

func (sj *SyncJob) runOnce(ctx context.Context) {
	res, err := sj.runner.Run(ctx)
	switch {
	case errors.Is(err, syncer.ErrRunning):
		sj.logger.Debug("sync already running, tick skipped")
	case err != nil:
		sj.logger.Error("sync failed", logger.Error(err))
	case res.Skipped:
		sj.logger.Debug("sync disabled")
	default:
		sj.logger.Info("sync completed",
			logger.Int("pushed", res.Pushed),
			logger.Int("failed_batches", res.FailedBatches),
			logger.Int("pulled", res.Pulled.Added))
	}
}
