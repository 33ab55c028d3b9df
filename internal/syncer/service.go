package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/storage"
)

// ErrRunning is returned when a sync is already in progress.
var ErrRunning = errors.New("sync already running")

// DefaultBatchSize is the number of records per push.
const DefaultBatchSize = 50

// Remote is the far side of a sync. *Client implements it.
type Remote interface {
	Push(ctx context.Context, endpoint string, records []*domain.StoredRecord) error
	Pull(ctx context.Context, endpoint string, since *time.Time) ([]*domain.StoredRecord, error)
}

// Result summarises one run.
type Result struct {
	Skipped       bool                  `json:"skipped,omitempty"`
	Pushed        int                   `json:"pushed"`
	FailedBatches int                   `json:"failedBatches"`
	Pulled        storage.InsertSummary `json:"pulled"`
	PullError     string                `json:"pullError,omitempty"`
	LastSyncAt    *time.Time            `json:"lastSyncAt"`
}

// Service runs syncs against the engine.
type Service struct {
	engine    *storage.Engine
	remote    Remote
	endpoint  string
	batchSize int
	now       func() time.Time
	logger    logger.Logger

	running sync.Mutex
}

// Option customises a Service.
type Option func(*Service)

// WithBatchSize sets the push batch size.
func WithBatchSize(n int) Option { return func(s *Service) { s.batchSize = n } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithEndpoint sets the endpoint used when the settings do not name one.
func WithEndpoint(endpoint string) Option { return func(s *Service) { s.endpoint = endpoint } }

// NewService builds a sync service.
func NewService(engine *storage.Engine, remote Remote, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		engine:    engine,
		remote:    remote,
		batchSize: DefaultBatchSize,
		now:       time.Now,
		logger:    log,
	}
	for _, o := range opts {
		o(s)
	}
	if s.batchSize <= 0 {
		s.batchSize = DefaultBatchSize
	}
	return s
}

// Run pushes unsynced records batch by batch, then pulls what the remote
// gained since the last successful sync. A failed batch stays unsynced
// for the next run. LastSyncAt only moves when every batch and the pull
// went through.
func (s *Service) Run(ctx context.Context) (Result, error) {
	if !s.running.TryLock() {
		return Result{}, ErrRunning
	}
	defer s.running.Unlock()

	settings, err := s.engine.Settings(ctx)
	if err != nil {
		return Result{}, err
	}
	res := Result{LastSyncAt: settings.LastSyncAt}
	if !settings.SyncEnabled {
		res.Skipped = true
		return res, nil
	}
	endpoint := settings.SyncEndpoint
	if endpoint == "" {
		endpoint = s.endpoint
	}

	started := s.now()

	pending, err := s.engine.Unsynced(ctx)
	if err != nil {
		return res, err
	}
	for start := 0; start < len(pending); start += s.batchSize {
		end := min(start+s.batchSize, len(pending))
		batch := pending[start:end]

		if err := s.remote.Push(ctx, endpoint, batch); err != nil {
			res.FailedBatches++
			s.logger.Warn("sync batch failed", logger.Int("size", len(batch)), logger.Error(err))
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			continue
		}
		ids := make([]string, len(batch))
		for i, r := range batch {
			ids[i] = r.ID
		}
		res.Pushed += s.engine.MarkSynced(ctx, ids, s.now())
	}

	remote, err := s.remote.Pull(ctx, endpoint, settings.LastSyncAt)
	if err != nil {
		res.PullError = err.Error()
		s.logger.Warn("sync pull failed", logger.Error(err))
	} else {
		at := s.now()
		for _, r := range remote {
			if r != nil {
				r.SyncedAt = &at
			}
		}
		res.Pulled = s.engine.ImportRecords(ctx, remote, true)
	}

	if res.FailedBatches == 0 && res.PullError == "" {
		current, err := s.engine.Settings(ctx)
		if err != nil {
			return res, err
		}
		current.LastSyncAt = &started
		if _, err := s.engine.SaveSettings(ctx, current); err != nil {
			return res, err
		}
		res.LastSyncAt = &started
	}

	s.logger.Info("sync finished",
		logger.Int("pushed", res.Pushed),
		logger.Int("failed_batches", res.FailedBatches),
		logger.Int("pulled", res.Pulled.Added),
		logger.Bool("advanced", res.LastSyncAt != nil && res.LastSyncAt.Equal(started)),
	)
	return res, nil
}
