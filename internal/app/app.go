package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/shipcheck/internal/config"
	"github.com/MrSnakeDoc/shipcheck/internal/httpserver"
	"github.com/MrSnakeDoc/shipcheck/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shipcheck/internal/index"
	"github.com/MrSnakeDoc/shipcheck/internal/logger"
	"github.com/MrSnakeDoc/shipcheck/internal/metrics"
	"github.com/MrSnakeDoc/shipcheck/internal/redis"
	"github.com/MrSnakeDoc/shipcheck/internal/scheduler"
	redisstore "github.com/MrSnakeDoc/shipcheck/internal/store/redis"
	"github.com/MrSnakeDoc/shipcheck/internal/version"
)

// App is the long-running `shipcheck serve` process.
type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	memIndex    *index.MemoryIndex
	watcher     *scheduler.Watcher
	gc          *scheduler.GarbageCollector
}

// New wires the serve mode: targets, channel, verifier, optional Redis
// history, schedulers and the HTTP server.
func New(cfg *config.Config, loggerClient logger.Logger) (*App, error) {
	list, err := loadTargets(cfg, cfg.TargetsFile)
	if err != nil {
		return nil, err
	}

	ch, err := newChannel(cfg, loggerClient)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	v := newVerifier(cfg, ch, loggerClient, m)

	memIndex := index.NewMemoryIndex(index.DefaultHistory)
	memIndex.SetTargets(list)

	// Redis is optional; when configured, fail fast if unavailable
	var (
		redisClient *goredis.Client
		store       scheduler.ReportStore
		pinger      deps.Pinger
	)
	if cfg.RedisEnabled() {
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		redisClient, err = redis.New(context.Background(), redis.ConnectOptions{
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
		}, loggerClient)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		loggerClient.Info("Redis initialized successfully")

		rs := redisstore.NewStore(redisClient, cfg.ReportRetention)
		store, pinger = rs, rs

		// Try to restore report history from Redis on startup
		syncer := scheduler.NewRedisSyncer(store, memIndex, loggerClient, index.DefaultHistory)
		if err := syncer.Sync(context.Background()); err != nil {
			loggerClient.Warn("failed to sync reports from redis on startup",
				logger.Error(err))
		}
	} else {
		loggerClient.Info("redis not configured, report history kept in memory only")
	}

	// Create manual verification trigger channel
	verifyTrigger := make(chan struct{}, 1)

	watcher := scheduler.NewWatcher(v, store, memIndex, loggerClient, cfg.WatchInterval, verifyTrigger)
	gc := scheduler.NewGarbageCollector(store, memIndex, loggerClient, nil, cfg.GCInterval, cfg.ReportRetention)

	d := deps.Deps{
		Logger:        loggerClient,
		StartTime:     time.Now(),
		Version:       version.Version,
		Commit:        version.Commit,
		BuildDate:     version.BuildDate,
		GoVersion:     version.GoVersion,
		TimeNow:       time.Now,
		AllowedCIDRS:  cfg.AllowedCIDRS,
		TrustProxy:    cfg.TrustProxy,
		ChannelKind:   cfg.Channel,
		MemoryIndex:   memIndex,
		Store:         pinger,
		Metrics:       m,
		VerifyTrigger: verifyTrigger,
		HistoryLimit:  20,
	}

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      httpserver.New(cfg, loggerClient, d),
		redisClient: redisClient,
		memIndex:    memIndex,
		watcher:     watcher,
		gc:          gc,
	}, nil
}

// Run blocks until SIGINT/SIGTERM or a server error.
func (a *App) Run() error {
	a.logger.Infof("🚀 Starting shipcheck %s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start watcher (first round runs in the background)
	if err := a.watcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	a.logger.Info("watcher started",
		logger.Int("targets", len(a.memIndex.Targets())),
		logger.Duration("interval", a.cfg.WatchInterval))

	// Start garbage collector
	if err := a.gc.Start(ctx); err != nil {
		a.watcher.Stop()
		return fmt.Errorf("failed to start garbage collector: %w", err)
	}
	a.logger.Info("garbage collector started",
		logger.Duration("interval", a.cfg.GCInterval),
		logger.Duration("retention", a.cfg.ReportRetention))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
		stop()
	}

	a.watcher.Stop()
	a.gc.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	if runErr != nil {
		return runErr
	}
	a.logger.Info("✅ shipcheck stopped cleanly")
	return nil
}
