// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/carterperez-dev/templates/bookshelf/internal/admin"
	"github.com/carterperez-dev/templates/bookshelf/internal/auth"
	"github.com/carterperez-dev/templates/bookshelf/internal/book"
	"github.com/carterperez-dev/templates/bookshelf/internal/config"
	"github.com/carterperez-dev/templates/bookshelf/internal/core"
	"github.com/carterperez-dev/templates/bookshelf/internal/health"
	"github.com/carterperez-dev/templates/bookshelf/internal/metrics"
	"github.com/carterperez-dev/templates/bookshelf/internal/middleware"
	"github.com/carterperez-dev/templates/bookshelf/internal/ratelimit"
	"github.com/carterperez-dev/templates/bookshelf/internal/server"
	"github.com/carterperez-dev/templates/bookshelf/internal/user"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if cfg.Database.AutoMigrate {
		version, migErr := core.Migrate(cfg.Database.URL)
		if migErr != nil {
			return migErr
		}
		logger.Info("database migrated", "version", version)
	}

	var redis *core.Redis
	if cfg.Redis.Enabled() {
		redis, err = core.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		logger.Info("redis connected", "pool_size", cfg.Redis.PoolSize)
	} else {
		logger.Info("redis not configured, login throttle is process local")
	}

	hasher := core.NewPasswordHasher(cfg.Password)

	tokens, err := auth.NewTokenCodec(cfg.Token)
	if err != nil {
		return err
	}
	logger.Info("token codec initialized",
		"algorithm", "HS256",
		"ttl", tokens.TTL(),
	)

	limiter := ratelimit.NewFixedWindow(cfg.RateLimit)
	go limiter.Run(ctx)

	throttle := ratelimit.NewLoginThrottle(redis.Limiter(), cfg.LoginThrottle)
	go throttle.Run(ctx)

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo)
	userHandler := user.NewHandler(userSvc)

	authSvc := auth.NewService(userSvc, hasher, tokens, throttle)
	authHandler := auth.NewHandler(authSvc)

	if cfg.Bootstrap.AdminEmail != "" {
		if err := authSvc.EnsureAdmin(
			ctx,
			cfg.Bootstrap.AdminName,
			cfg.Bootstrap.AdminEmail,
			cfg.Bootstrap.AdminPassword,
		); err != nil {
			return err
		}
	}

	bookRepo := book.NewRepository(db.DB)
	bookImages := book.NewImageStore(db.DB)
	bookSvc := book.NewService(bookRepo, bookImages)
	bookHandler := book.NewHandler(bookSvc)

	deps := []health.Dependency{{Name: "database", Checker: db}}
	adminCfg := admin.HandlerConfig{
		DBStats: db.Stats,
		DBPing:  db.Ping,
		Limiter: limiter,
	}
	if redis != nil {
		deps = append(deps, health.Dependency{Name: "redis", Checker: redis})
		adminCfg.RedisStats = redis.PoolStats
		adminCfg.RedisPing = redis.Ping
	}
	healthHandler := health.NewHandler(deps...)
	adminHandler := admin.NewHandler(adminCfg)

	proxies, err := middleware.NewProxyTrust(cfg.Server.TrustedProxies)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(chimw.RequestID)
	router.Use(proxies.RealIP)
	router.Use(chimw.Recoverer)
	router.Use(middleware.Tracing)
	router.Use(middleware.Logger(logger))
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	rateLimited := middleware.RateLimitGuard(limiter, middleware.KeyByIP)
	authenticated := middleware.AuthenticationGuard(tokens)

	public := middleware.Chain(rateLimited)
	signedIn := middleware.Chain(rateLimited, authenticated)
	withRoles := func(roles ...core.Role) func(http.Handler) http.Handler {
		return middleware.Chain(
			rateLimited,
			authenticated,
			middleware.RoleGuard(roles...),
		)
	}
	adminOnly := withRoles(core.RoleAdmin)

	authHandler.RegisterRoutes(router, public, signedIn)
	bookHandler.RegisterRoutes(router, book.RouteGuards{
		Read:   public,
		Create: withRoles(core.RoleUser, core.RoleModerator, core.RoleAdmin),
		Update: withRoles(core.RoleModerator, core.RoleAdmin),
		Delete: adminOnly,
	})
	userHandler.RegisterAdminRoutes(router, adminOnly)
	adminHandler.RegisterRoutes(router, adminOnly)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if redis != nil {
		if err := redis.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
