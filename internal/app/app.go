package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/linkhoard/linkhoard/internal/account"
	"github.com/linkhoard/linkhoard/internal/auth"
	"github.com/linkhoard/linkhoard/internal/cache"
	"github.com/linkhoard/linkhoard/internal/config"
	"github.com/linkhoard/linkhoard/internal/httpserver"
	"github.com/linkhoard/linkhoard/internal/httpserver/deps"
	"github.com/linkhoard/linkhoard/internal/logger"
	"github.com/linkhoard/linkhoard/internal/mutation"
	"github.com/linkhoard/linkhoard/internal/query"
	"github.com/linkhoard/linkhoard/internal/redis"
	"github.com/linkhoard/linkhoard/internal/scheduler"
	"github.com/linkhoard/linkhoard/internal/seed"
	redisstore "github.com/linkhoard/linkhoard/internal/store/redis"
	"github.com/linkhoard/linkhoard/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	revalidator *scheduler.Revalidator
	janitor     *scheduler.Janitor
	seedFile    string
	importer    *seed.Importer
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Initialize Redis early - fail fast if unavailable
	loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	redisClient, err := redis.New(redis.ConnectOptions{
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
		loggerClient.Errorf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("Redis initialized successfully")

	// Core layers: store -> cache -> engine/mutator
	store := redisstore.NewStore(redisClient)
	queryCache := cache.New()
	engine := query.New(store, queryCache, loggerClient)
	mutator := mutation.New(store, queryCache, loggerClient)
	deleter := account.New(store, queryCache, loggerClient)
	verifier := auth.NewVerifier([]byte(cfg.AuthSecret), cfg.AuthIssuer)

	// Optional seed import at startup
	var importer *seed.Importer
	if cfg.SeedFile != "" {
		loggerClient.Info("seed file configured",
			logger.String("file", cfg.SeedFile))
		importer = seed.NewImporter(cfg.SeedFile, store, loggerClient)
	}

	// Create manual revalidation trigger channel
	revalidateTrigger := make(chan struct{}, 1)

	revalidator := scheduler.NewRevalidator(
		engine,
		queryCache,
		loggerClient,
		cfg.RevalidateInterval,
		cfg.DefaultPageSize,
		revalidateTrigger,
	)

	janitor := scheduler.NewJanitor(
		queryCache,
		loggerClient,
		cfg.CacheIdleTTL,
		cfg.CacheIdleTTL,
	)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:            loggerClient,
		StartTime:         time.Now(),
		Version:           version.Version,
		Commit:            version.Commit,
		BuildDate:         version.BuildDate,
		GoVersion:         version.GoVersion,
		TimeNow:           time.Now,
		AdminCIDRS:        cfg.AdminCIDRS,
		TrustProxy:        cfg.TrustProxy,
		RedisClient:       redisClient,
		Verifier:          verifier,
		Engine:            engine,
		Mutator:           mutator,
		Deleter:           deleter,
		Cache:             queryCache,
		DefaultPageSize:   cfg.DefaultPageSize,
		MaxPageSize:       cfg.MaxPageSize,
		RevalidateTrigger: revalidateTrigger,
		RateLimitPerMin:   cfg.RateLimitPerMinute,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		revalidator: revalidator,
		janitor:     janitor,
		seedFile:    cfg.SeedFile,
		importer:    importer,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting linkhoard v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("linkhoard %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Import seed fixtures before serving traffic
	if a.importer != nil {
		if err := a.importer.Run(ctx); err != nil {
			a.logger.Warn("seed import failed, continuing without fixtures",
				logger.Error(err))
		}
	}

	// Start revalidator
	if err := a.revalidator.Start(ctx); err != nil {
		return fmt.Errorf("failed to start revalidator: %w", err)
	}
	a.logger.Info("revalidator started",
		logger.Duration("interval", a.cfg.RevalidateInterval))

	// Start cache janitor
	if err := a.janitor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start cache janitor: %w", err)
	}
	a.logger.Info("cache janitor started",
		logger.Duration("ttl", a.cfg.CacheIdleTTL))

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

	a.revalidator.Stop()
	a.janitor.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ linkhoard stopped cleanly")
	return nil
}
