package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BradenHooton/staffguard/internal/auth"
	"github.com/BradenHooton/staffguard/internal/background"
	"github.com/BradenHooton/staffguard/internal/config"
	"github.com/BradenHooton/staffguard/internal/database"
	"github.com/BradenHooton/staffguard/internal/handlers"
	middlewareCustom "github.com/BradenHooton/staffguard/internal/middleware"
	"github.com/BradenHooton/staffguard/internal/repositories"
	"github.com/BradenHooton/staffguard/internal/repositories/memory"
	"github.com/BradenHooton/staffguard/internal/repositories/sqlite"
	"github.com/BradenHooton/staffguard/internal/routes"
	"github.com/BradenHooton/staffguard/internal/services"
	pkgauth "github.com/BradenHooton/staffguard/pkg/auth"
	pkghttp "github.com/BradenHooton/staffguard/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

// store bundles the repositories of whichever backend STORE_DRIVER selects
type store struct {
	accounts services.AccountSecurityRepository
	attempts services.FailedLoginRepository
	sessions services.SessionRepository
	health   handlers.HealthCheckFunc
	close    func()
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Server.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("store_driver", cfg.Store.Driver),
		slog.String("rate_limit_backend", cfg.RateLimit.Backend))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	st, err := openStore(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Error("failed to open security store", slog.Any("error", err))
		os.Exit(1)
	}
	defer st.close()

	// Lockout guard
	lockoutService := services.NewLockoutService(st.accounts, st.attempts, services.LockoutConfig{
		MaxFailedAttempts: cfg.Security.MaxFailedAttempts,
		LockoutDuration:   cfg.Security.LockoutDuration,
	}, logger)

	if cfg.Email.LockoutNotifyEnabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		notifier, err := services.NewAWSSESLockoutNotifier(ctx, cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
		cancel()
		if err != nil {
			logger.Error("failed to initialize lockout notifier", slog.Any("error", err))
			os.Exit(1)
		}
		lockoutService.SetNotifier(notifier)
	}

	// Session registry
	sessionService := services.NewSessionService(st.sessions, services.SessionConfig{
		MaxSessionsPerUser: cfg.Security.MaxSessionsPerUser,
		IdleTimeout:        cfg.Security.SessionIdleTimeout,
	}, logger)

	// Cleanup manager
	cleanupManager := background.NewCleanupManager(logger)
	cleanupManager.Register(background.Task{
		Name:     "expired_sessions",
		Interval: cfg.Security.SessionCleanupInterval,
		Run:      sessionService.CleanupExpiredSessions,
	})
	if cfg.Store.AuditRetention > 0 {
		cleanupManager.Register(background.Task{
			Name:     "failed_login_audit",
			Interval: time.Hour,
			Run: func(ctx context.Context) (int64, error) {
				return lockoutService.PurgeAuditLog(ctx, cfg.Store.AuditRetention)
			},
		})
	}

	// Rate limiter
	healthHandler := handlers.NewHealthHandler(logger)
	healthHandler.AddCheck("store", st.health)

	var limiter services.RateLimitChecker
	switch cfg.RateLimit.Backend {
	case config.RateLimitBackendRedis:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		redisLimiter := services.NewRedisRateLimiter(redisClient, "")
		healthHandler.AddCheck("rate_limiter", redisLimiter.Ping)
		limiter = redisLimiter
	default:
		memoryLimiter := services.NewRateLimiter()
		cleanupManager.Register(background.Task{
			Name:     "rate_limit_buckets",
			Interval: cfg.RateLimit.SweepInterval,
			Run: func(ctx context.Context) (int64, error) {
				return int64(memoryLimiter.Sweep(memoryLimiter.Now())), nil
			},
		})
		limiter = memoryLimiter
	}

	loginGate := services.NewLoginGateService(limiter, lockoutService, sessionService, cfg.RateLimit.Policies, logger)

	passwordPolicy := pkgauth.DefaultPasswordPolicy()
	passwordPolicy.MaxLength = cfg.Security.PasswordMaxLength

	// Initialize handlers
	ipConfig := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)
	tokenManager := auth.NewTokenManager(cfg.Server.ServiceTokenSecret)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middlewareCustom.RateLimitByIP(middlewareCustom.RateLimitConfig{
		RequestsPerMinute: cfg.Server.HTTPRateLimitPerMinute,
		IPConfig:          ipConfig,
	}))
	router.Use(middleware.Timeout(cfg.Server.WriteTimeout))

	// Register routes
	routes.RegisterRoutes(router, routes.Handlers{
		Login:     handlers.NewLoginHandler(loginGate, ipConfig, logger),
		Sessions:  handlers.NewSessionHandler(sessionService, logger),
		Accounts:  handlers.NewAccountHandler(lockoutService, logger),
		Passwords: handlers.NewPasswordHandler(passwordPolicy),
		Health:    healthHandler,
	}, tokenManager, middlewareCustom.RateLimitConfig{
		RequestsPerMinute: cfg.Server.HTTPRateLimitPerMinute,
		IPConfig:          ipConfig,
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup tasks
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// openStore connects the configured backend and applies migrations when enabled
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := database.NewConnection(&cfg.Database, logger)
		if err != nil {
			return nil, err
		}

		if cfg.Store.AutoMigrate {
			sqlDB := db.StdlibDB()
			err := database.RunMigrations(ctx, sqlDB, database.DialectPostgres)
			sqlDB.Close()
			if err != nil {
				db.Close()
				return nil, err
			}
		}

		return &store{
			accounts: repositories.NewAccountSecurityRepository(db),
			attempts: repositories.NewFailedLoginRepository(db),
			sessions: repositories.NewSessionRepository(db),
			health:   db.HealthCheck,
			close:    db.Close,
		}, nil

	case config.StoreDriverSQLite:
		db, err := database.OpenSQLite(cfg.SQLite.Path, logger)
		if err != nil {
			return nil, err
		}

		if cfg.Store.AutoMigrate {
			if err := database.RunMigrations(ctx, db, database.DialectSQLite); err != nil {
				db.Close()
				return nil, err
			}
		}

		return &store{
			accounts: sqlite.NewAccountSecurityRepository(db),
			attempts: sqlite.NewFailedLoginRepository(db),
			sessions: sqlite.NewSessionRepository(db),
			health:   pingSQL(db),
			close:    func() { _ = db.Close() },
		}, nil

	case config.StoreDriverMemory:
		logger.Warn("using in-memory security store; lockouts and sessions are lost on restart")
		return &store{
			accounts: memory.NewAccountSecurityRepository(),
			attempts: memory.NewFailedLoginRepository(),
			sessions: memory.NewSessionRepository(),
			health:   func(context.Context) error { return nil },
			close:    func() {},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

func pingSQL(db *sql.DB) handlers.HealthCheckFunc {
	return func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("sqlite health check failed: %w", err)
		}
		return nil
	}
}
