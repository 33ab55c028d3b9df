package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/stash/internal/capture"
	"github.com/MrSnakeDoc/stash/internal/config"
	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/extract"
	"github.com/MrSnakeDoc/stash/internal/httpserver"
	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/importer"
	"github.com/MrSnakeDoc/stash/internal/index"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/redis"
	"github.com/MrSnakeDoc/stash/internal/scheduler"
	redisstore "github.com/MrSnakeDoc/stash/internal/store/redis"
	"github.com/MrSnakeDoc/stash/internal/store/sqlite"
	"github.com/MrSnakeDoc/stash/internal/storage"
	"github.com/MrSnakeDoc/stash/internal/syncer"
	"github.com/MrSnakeDoc/stash/internal/transport"
	"github.com/MrSnakeDoc/stash/internal/utils"
	"github.com/MrSnakeDoc/stash/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	repoCloser  io.Closer
	natsConn    *nats.Conn
	reloader    *scheduler.CategoryReloader
	syncJob     *scheduler.SyncJob
	gc          *scheduler.GarbageCollector
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)
	loggerClient.Debug("configuration loaded", logger.Any("config", cfg.Redacted()))

	// Open the record store - fail fast if unavailable
	repo, redisClient, closer, err := openRepository(cfg, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to open %s store: %v", cfg.Store, err)
		os.Exit(1)
	}
	loggerClient.Info("record store initialized", logger.String("store", cfg.Store))

	engine := storage.New(repo, loggerClient)

	fetcher := importer.NewFetcher(nil, importer.FetchConfig{
		Timeout:   cfg.FeedTimeout,
		MaxBytes:  cfg.FeedMaxBytes,
		UserAgent: version.UserAgent(),
	}, loggerClient)

	dispatcher := transport.NewDispatcher(transport.Deps{
		Engine:    engine,
		Importers: importer.DefaultRegistry(),
		Fetcher:   fetcher,
	}, loggerClient)

	// Requests go through NATS when configured, in process otherwise
	var sender transport.Sender = dispatcher
	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = connectNATS(cfg, dispatcher, loggerClient)
		if err != nil {
			loggerClient.Errorf("Failed to connect to NATS: %v", err)
			os.Exit(1)
		}
		sender = transport.NewNATSSender(nc, cfg.NATSSubject, cfg.NATSTimeout)
	}

	captureRouter := capture.NewRouter(
		extract.DefaultRegistry(),
		sender,
		platformEnabled(engine, loggerClient),
		loggerClient,
		capture.WithSettle(cfg.SettleDelay),
		capture.WithWindow(cfg.DuplicateWindow),
	)

	syncService := syncer.NewService(
		engine,
		syncer.NewClient(nil, syncer.ClientConfig{
			Token:     cfg.SyncToken,
			Timeout:   cfg.SyncTimeout,
			Attempts:  cfg.SyncAttempts,
			Delay:     cfg.SyncRetryDelay,
			Rate:      float64(cfg.SyncRate),
			UserAgent: version.UserAgent(),
		}, loggerClient),
		loggerClient,
		syncer.WithEndpoint(cfg.SyncEndpoint),
	)

	var syncJob *scheduler.SyncJob
	if cfg.SyncInterval > 0 {
		syncJob = scheduler.NewSyncJob(syncService, loggerClient, cfg.SyncInterval, nil)
	}

	var reloader *scheduler.CategoryReloader
	var reloadTrigger chan struct{}
	if cfg.CategoryFile != "" {
		loggerClient.Info("category file configured, initializing category reloader",
			logger.String("file", cfg.CategoryFile))
		reloadTrigger = make(chan struct{}, 1)
		reloader = scheduler.NewCategoryReloader(
			cfg.CategoryFile,
			engine,
			loggerClient,
			cfg.ReloadInterval,
			reloadTrigger,
		)
	} else {
		loggerClient.Info("category file not configured, categories managed through the API")
	}

	gc := scheduler.NewGarbageCollector(
		engine,
		loggerClient,
		cfg.GCInterval,
		cfg.GCThreshold,
	)

	d := deps.Deps{
		Logger:           loggerClient,
		StartTime:        time.Now(),
		Version:          version.Version,
		Commit:           version.Commit,
		BuildDate:        version.BuildDate,
		GoVersion:        version.GoVersion,
		TimeNow:          time.Now,
		AllowedHosts:     cfg.AllowedHosts,
		AllowedCIDRS:     cfg.AllowedCIDRS,
		TrustProxy:       cfg.TrustProxy,
		RateLimitBurst:   cfg.RateLimitBurst,
		RateLimitPerMin:  cfg.RateLimitPerMin,
		RateLimitEntries: cfg.RateLimitEntries,
		MaxBodyBytes:     cfg.FeedMaxBytes * 2,
		Sender:           sender,
		Capture:          captureRouter,
		Store:            engine,
		StoreKind:        cfg.Store,
		Sync:             syncService,
		RedisClient:      redisClient,
		NATSConn:         nc,
		CategoryFile:     cfg.CategoryFile,
		ReloadTrigger:    reloadTrigger,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		repoCloser:  closer,
		natsConn:    nc,
		reloader:    reloader,
		syncJob:     syncJob,
		gc:          gc,
	}
}

// openRepository returns the repository selected by cfg.Store, the redis
// client when one was opened, and what to close on shutdown.
func openRepository(cfg *config.Config, log logger.Logger) (domain.Repository, *goredis.Client, io.Closer, error) {
	switch cfg.Store {
	case config.StoreMemory:
		log.Warn("using the in-memory store, records are lost on restart")
		return index.NewMemoryIndex(), nil, nil, nil

	case config.StoreSQLite:
		db, err := sqlite.Open(cfg.SQLitePath, 5*time.Second)
		if err != nil {
			return nil, nil, nil, err
		}
		store := sqlite.NewStore(db)
		return store, nil, store, nil

	default:
		client, err := redis.New(context.Background(), redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, log)
		if err != nil {
			return nil, nil, nil, err
		}
		return redisstore.NewStore(client), client, client, nil
	}
}

func connectNATS(cfg *config.Config, d *transport.Dispatcher, log logger.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name("stash"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", logger.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", logger.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, err
	}

	if cfg.NATSServe {
		if _, err := transport.ServeNATS(nc, cfg.NATSSubject, cfg.NATSQueue, d, log); err != nil {
			nc.Close()
			return nil, err
		}
	}
	log.Info("nats transport ready",
		logger.String("subject", cfg.NATSSubject),
		logger.Bool("serving", cfg.NATSServe))
	return nc, nil
}

// platformEnabled reads the per-platform switch from the stored settings.
// A settings read failure does not block captures.
func platformEnabled(engine *storage.Engine, log logger.Logger) capture.EnabledFunc {
	return func(ctx context.Context, p domain.Platform) bool {
		s, err := engine.Settings(ctx)
		if err != nil {
			log.Warn("settings unavailable, capture allowed", logger.Error(err))
			return true
		}
		return s.PlatformEnabled(p)
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Stash v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Stash %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start category reloader (if enabled)
	if a.reloader != nil {
		if err := a.reloader.Start(ctx); err != nil {
			return fmt.Errorf("failed to start category reloader: %w", err)
		}
		a.logger.Info("category reloader started",
			logger.Duration("interval", a.cfg.ReloadInterval))
	}

	// Start garbage collector
	if err := a.gc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start garbage collector: %w", err)
	}
	a.logger.Info("garbage collector started",
		logger.Duration("interval", a.cfg.GCInterval),
		logger.Duration("threshold", a.cfg.GCThreshold))

	// Start sync job (if enabled)
	if a.syncJob != nil {
		if err := a.syncJob.Start(ctx); err != nil {
			return fmt.Errorf("failed to start sync job: %w", err)
		}
		a.logger.Info("sync job started",
			logger.Duration("interval", a.cfg.SyncInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	if a.reloader != nil {
		a.reloader.Stop()
	}
	a.gc.Stop()
	if a.syncJob != nil {
		a.syncJob.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	var errs []error
	if err := a.server.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop server: %w", err))
	}

	if a.natsConn != nil {
		if err := a.natsConn.Drain(); err != nil {
			a.logger.Warnf("failed to drain nats: %v", err)
		} else {
			a.logger.Info("✅ NATS drained cleanly")
		}
	}

	if a.repoCloser != nil {
		utils.MustClose(a.logger, a.cfg.Store+" store", a.repoCloser)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	a.logger.Info("✅ Stash stopped cleanly")
	return nil
}
