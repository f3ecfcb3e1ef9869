package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/smartmark/smartmark/internal/config"
	"github.com/smartmark/smartmark/internal/feed"
	"github.com/smartmark/smartmark/internal/httpserver"
	"github.com/smartmark/smartmark/internal/httpserver/deps"
	"github.com/smartmark/smartmark/internal/logger"
	"github.com/smartmark/smartmark/internal/redis"
	"github.com/smartmark/smartmark/internal/scheduler"
	"github.com/smartmark/smartmark/internal/session"
	redisstore "github.com/smartmark/smartmark/internal/store/redis"
	"github.com/smartmark/smartmark/internal/store/sqlite"
	"github.com/smartmark/smartmark/internal/version"
	"github.com/smartmark/smartmark/internal/webui"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	repo        *sqlite.Repository
	hub         *feed.Hub
	bridge      *feed.Bridge
	seeder      *scheduler.SeedImporter
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Open the bookmark store early - fail fast if unavailable
	repo, err := sqlite.NewRepository(cfg.DatabaseURL)
	if err != nil {
		loggerClient.Errorf("Failed to open database: %v", err)
		os.Exit(1)
	}
	loggerClient.Infof("Database ready at %s", cfg.DatabaseURL)

	// Redis is optional: it bridges the change feed across instances and
	// backs session revocation. Without it the server runs standalone.
	var redisClient *goredis.Client
	if cfg.RedisAddr != "" {
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		redisClient, err = redis.New(redis.ConnectOptions{
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
	} else {
		loggerClient.Info("Redis not configured, running single-instance")
	}

	// Change feed: local hub always, redis bridge when available.
	hub := feed.NewHub(loggerClient)
	var bridge *feed.Bridge
	if redisClient != nil {
		bridge = feed.NewBridge(redisClient, hub, loggerClient)
	}
	broadcaster := feed.NewBroadcaster(hub, bridge)

	// Sessions: revocation is backed by redis when available, otherwise
	// tokens simply expire at their TTL.
	var revocations session.RevocationStore
	if redisClient != nil {
		revocations = redisstore.NewStore(redisClient)
	}
	secureCookie := strings.HasPrefix(cfg.BaseURL, "https://")
	sessions := session.NewManager(cfg.JWTSecret, cfg.SessionTTL, secureCookie, revocations)

	oauthConfig := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes:       []string{"openid", "email"},
		Endpoint:     google.Endpoint,
	}

	renderer, err := webui.NewRenderer()
	if err != nil {
		loggerClient.Errorf("Failed to load page templates: %v", err)
		os.Exit(1)
	}

	// Seed importer (if a seed file is configured)
	var seeder *scheduler.SeedImporter
	var seedTrigger chan struct{}
	if cfg.SeedFile != "" {
		loggerClient.Info("seed file configured, initializing seed importer",
			logger.String("file", cfg.SeedFile),
			logger.String("owner", cfg.SeedOwnerEmail))
		seedTrigger = make(chan struct{}, 1)
		seeder = scheduler.NewSeedImporter(
			cfg.SeedFile,
			cfg.SeedOwnerEmail,
			repo,
			broadcaster,
			loggerClient,
			cfg.SeedInterval,
			seedTrigger,
		)
	} else {
		loggerClient.Info("seed file not configured, seed import disabled")
	}

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:       loggerClient,
		StartTime:    time.Now(),
		Version:      version.Version,
		Commit:       version.Commit,
		BuildDate:    version.BuildDate,
		GoVersion:    version.GoVersion,
		TimeNow:      time.Now,
		AllowedHosts: cfg.AllowedHosts,
		AdminCIDRS:   cfg.AdminCIDRS,
		TrustProxy:   cfg.TrustProxy,
		Sessions:     sessions,
		OAuth:        oauthConfig,
		Store:        repo,
		Feed:         broadcaster,
		WebUI:        renderer,
		SecureCookie: secureCookie,
		RateBurst:    cfg.RateLimitBurst,
		RatePerMin:   cfg.RateLimitPerMin,
		SeedTrigger:  seedTrigger,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		repo:        repo,
		hub:         hub,
		bridge:      bridge,
		seeder:      seeder,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Smartmark v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Smartmark %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start the redis feed bridge (if enabled)
	if a.bridge != nil {
		if err := a.bridge.Start(ctx); err != nil {
			return fmt.Errorf("failed to start feed bridge: %w", err)
		}
		a.logger.Info("feed bridge started")
	}

	// Start the seed importer (if enabled)
	if a.seeder != nil {
		if err := a.seeder.Start(ctx); err != nil {
			return fmt.Errorf("failed to start seed importer: %w", err)
		}
		a.logger.Info("seed importer started",
			logger.Duration("interval", a.cfg.SeedInterval))
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

	// Stop background work first so nothing publishes into a closing hub.
	if a.seeder != nil {
		a.seeder.Stop()
	}
	if a.bridge != nil {
		a.bridge.Stop()
	}
	a.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if err := a.repo.Close(); err != nil {
		a.logger.Warnf("failed to close database: %v", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ Smartmark stopped cleanly")
	return nil
}
