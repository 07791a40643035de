package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"impactlab/internal/api"
	"impactlab/internal/api/middleware"
	"impactlab/internal/app/service"
	"impactlab/internal/common/security"
	"impactlab/internal/domain/repository"
	"impactlab/internal/platform/config"
	"impactlab/internal/platform/database"
	"impactlab/internal/platform/logging"
	"impactlab/internal/platform/ratelimit"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// 1. Configuration and logging
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := logging.New(cfg.AppEnv, cfg.LogLevel)
	logger.Info(ctx, "configuration loaded", "env", cfg.AppEnv, "store", cfg.StoreDriver)

	// 2. Repositories
	userRepo, spaceRepo, db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	// 3. Throttling (optional)
	var limiter middleware.AttemptLimiter
	if cfg.RateLimitEnabled() {
		rdb, err := ratelimit.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		limiter = ratelimit.New(rdb, ratelimit.Config{
			MaxAttempts: cfg.AuthRateLimitMaxAttempts,
			Window:      cfg.AuthRateLimitWindow,
		})
		logger.Info(ctx, "auth throttling enabled", "max_attempts", cfg.AuthRateLimitMaxAttempts, "window", cfg.AuthRateLimitWindow)
	}

	// 4. Services
	codec := security.NewSessionCodec(cfg.SessionSecret, !cfg.IsDevelopment())
	authService := service.NewAuthService(userRepo, security.NewBcryptHasher(cfg.BcryptCost), codec, logger)
	spaceService := service.NewSpaceService(spaceRepo, logger)
	userService := service.NewUserService(userRepo, logger)

	if cfg.SeedAdmin() {
		if _, err := authService.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return fmt.Errorf("seeding admin: %w", err)
		}
	}

	// 5. Router & HTTP Server
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      api.NewRouter(authService, spaceService, userService, limiter, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 6. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info(ctx, "server starting", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("could not listen on %s: %w", cfg.APIPort, err)
		}
	}()

	select {
	case err := <-serveErr:
		return err
	case <-stop:
	}

	logger.Info(ctx, "shutting down server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info(ctx, "server stopped gracefully")
	return nil
}

// openStore picks the repositories for STORE_DRIVER. The returned *sql.DB is
// nil for the in-memory store.
func openStore(ctx context.Context, cfg *config.Config) (repository.UserRepository, repository.SpaceRepository, *sql.DB, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		return repository.NewMemoryUserRepository(), repository.NewMemorySpaceRepository(), nil, nil
	case config.StoreDriverPostgres:
		db, err := database.Connect(ctx, cfg.DBConnStr)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.RunMigrations(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return repository.NewPgUserRepository(db), repository.NewPgSpaceRepository(db), db, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}
