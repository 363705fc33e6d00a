package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/simp-lee/logger"
	"gorm.io/gorm"

	"github.com/simp-lee/allobricolage/internal/cache"
	"github.com/simp-lee/allobricolage/internal/config"
	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/jobs"
	"github.com/simp-lee/allobricolage/internal/middleware"
	"github.com/simp-lee/allobricolage/internal/storage"
	"github.com/simp-lee/allobricolage/internal/token"
)

const (
	defaultRequestTimeout = 30 * time.Second
	shutdownTimeout       = 10 * time.Second
)

// App holds the core application dependencies and the HTTP server.
type App struct {
	engine *gin.Engine
	db     *gorm.DB
	cache  cache.Store
	jobs   *jobs.Scheduler
	tokens *token.Manager
	logger *logger.Logger
	cfg    *config.Config
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

var newHTTPServer = func(addr string, handler http.Handler, timeout time.Duration) httpServer {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      2 * timeout,
		IdleTimeout:       120 * time.Second,
	}
}

var notifyContext = func(parent context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}

// New creates and wires a fully configured App from the given Config.
//
// It sets up logging, the database, the cache, file storage, every business
// module, background jobs, middleware and routes.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	success := false

	// 1. Logger.
	log, err := config.SetupLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	if cfg.Server.Mode == gin.DebugMode && cfg.Server.Host == "0.0.0.0" {
		log.Warn("insecure server config: debug mode on 0.0.0.0 may expose debug behavior and permissive CORS")
	}
	defer func() {
		if success {
			return
		}
		if err := log.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}()

	if err := validateGinMode(cfg.Server.Mode); err != nil {
		return nil, err
	}

	// 2. Database.
	db, err := config.SetupDatabase(&cfg.Database, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}
	defer func() {
		if success {
			return
		}
		if err := config.CloseDatabase(db); err != nil {
			slog.Error("database close error", slog.Any("error", err))
		}
	}()

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(domain.Models()...); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
		log.Info("auto migration completed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ensureAdmin(ctx, db, cfg.Auth.Admin, cfg.Auth.BcryptCost, log.Logger); err != nil {
		return nil, err
	}

	// 3. Cache and file storage.
	store, err := setupCache(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("setup cache: %w", err)
	}
	defer func() {
		if success {
			return
		}
		if err := store.Close(); err != nil {
			slog.Error("cache close error", slog.Any("error", err))
		}
	}()

	files, err := storage.NewLocal(storage.Options{
		Dir:          cfg.Storage.UploadDir,
		PublicPrefix: cfg.Storage.PublicPrefix,
		MaxBytes:     cfg.Storage.MaxUploadBytes(),
		AllowedTypes: cfg.Storage.AllowedTypes,
	})
	if err != nil {
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	// 4. Manual dependency injection.
	wired, err := buildModules(cfg, db, store, files, log.Logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if !success {
			wired.tokens.Close()
		}
	}()

	// 5. Gin engine with custom middleware (not gin.Default()).
	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()

	var (
		registry *prometheus.Registry
		chain    = []gin.HandlerFunc{
			middleware.Recovery(log.Logger),
			middleware.RequestIDWithConfig(middleware.RequestIDConfig{TrustUpstream: false}),
			middleware.Logger(log.Logger, "/health", cfg.Server.Metrics.Path),
		}
	)
	if cfg.Server.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		chain = append(chain, middleware.NewMetrics(registry).Handler())
	}
	chain = append(chain, middleware.CORSWithConfig(resolveCORSConfig(cfg.Server.Mode, cfg.Server.CORS)))
	if cfg.Server.RateLimit.Enabled {
		chain = append(chain, middleware.RateLimit(middleware.RateLimitConfig{
			RPS:   cfg.Server.RateLimit.RPS,
			Burst: cfg.Server.RateLimit.Burst,
		}))
	}
	engine.Use(chain...)

	deps := &RouteDeps{
		Modules:       wired.modules,
		Verifier:      wired.verifier,
		DB:            db,
		Cache:         store,
		UploadsDir:    files.Dir(),
		UploadsPrefix: files.PublicPrefix(),
	}
	if registry != nil {
		deps.Gatherer = registry
		deps.MetricsPath = cfg.Server.Metrics.Path
	}

	// 6. Routes.
	if err := RegisterRoutes(engine, deps); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	success = true
	return &App{
		engine: engine,
		db:     db,
		cache:  store,
		jobs:   wired.jobs,
		tokens: wired.tokens,
		logger: log,
		cfg:    cfg,
	}, nil
}

// Handler exposes the routed engine, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.engine
}

// setupCache returns the read cache selected by server.cache. A disabled
// cache is a Noop store so callers never check for nil.
func setupCache(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	c := cfg.Server.Cache
	if !c.Enabled {
		return cache.Noop{}, nil
	}
	switch c.Driver {
	case "redis":
		store, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			TTL:       c.TTLDuration(),
			Namespace: "allobricolage:",
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case "", "memory":
		return cache.NewMemory(c.MaxSize, c.TTLDuration()), nil
	default:
		return nil, fmt.Errorf("unsupported cache driver: %s", c.Driver)
	}
}

func resolveCORSConfig(mode string, cfg config.CORSConfig) middleware.CORSConfig {
	corsConfig := middleware.DefaultCORSConfig()

	if len(cfg.AllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.AllowMethods
	}
	if len(cfg.AllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.AllowHeaders
	}
	if cfg.MaxAge != "" {
		if d, err := time.ParseDuration(cfg.MaxAge); err == nil {
			corsConfig.MaxAge = d
		}
	}
	corsConfig.AllowCredentials = cfg.AllowCredentials

	switch {
	case len(cfg.AllowOrigins) > 0:
		corsConfig.AllowOrigins = cfg.AllowOrigins
	case mode == gin.ReleaseMode:
		// No allowlist in release mode: deny cross-origin requests.
		corsConfig.AllowOrigins = []string{}
	}

	return corsConfig
}

func validateGinMode(mode string) error {
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		return nil
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}
}

// Run starts the HTTP server and the job scheduler and blocks until a
// shutdown signal is received. Shutdown stops the scheduler, drains in-flight
// requests, then closes the database, the cache and the logger.
func (a *App) Run() error {
	if a == nil {
		return errors.New("app is nil")
	}
	if a.cfg == nil {
		return errors.New("app config is nil")
	}
	if a.engine == nil {
		return errors.New("app engine is nil")
	}

	log := slog.Default()
	if a.logger != nil {
		log = a.logger.Logger
	}

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := newHTTPServer(addr, a.engine, a.cfg.Server.TimeoutDuration(defaultRequestTimeout))

	ctx, stop := notifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.jobs != nil {
		a.jobs.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.jobs != nil {
		if err := a.jobs.Stop(shutdownCtx); err != nil {
			log.Error("job scheduler stop error", slog.Any("error", err))
		}
	}

	if runErr == nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", slog.Any("error", err))
		}
	}

	if a.tokens != nil {
		a.tokens.Close()
	}

	if a.db != nil {
		if err := config.CloseDatabase(a.db); err != nil {
			log.Error("database close error", slog.Any("error", err))
		} else {
			log.Info("database connection closed")
		}
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			log.Error("cache close error", slog.Any("error", err))
		}
	}

	log.Info("server stopped")
	if a.logger != nil {
		if err := a.logger.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}

	return runErr
}
