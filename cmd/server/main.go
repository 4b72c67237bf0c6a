package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"retailpro/backend/internal/activity"
	"retailpro/backend/internal/config"
	"retailpro/backend/internal/httpapi"
	"retailpro/backend/internal/logger"
	"retailpro/backend/internal/metrics"
	"retailpro/backend/internal/service"
	"retailpro/backend/internal/store"
	"retailpro/backend/internal/store/memory"
	pgstore "retailpro/backend/internal/store/postgres"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	defer func() { _ = log.Sync() }()

	if envErr != nil {
		log.Debug("no .env file loaded", zap.Error(envErr))
	}
	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	if err := validateSecurityConfig(cfg); err != nil {
		return fmt.Errorf("invalid security configuration: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Closed in reverse so the recorder drains before its publisher goes away.
	closers := make([]func() error, 0, 3)
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warn("close error", zap.Error(err))
			}
		}
	}()

	repo, closeRepo, err := openRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	closers = append(closers, closeRepo)

	publisher, closePublisher := openPublisher(ctx, cfg, log)
	if closePublisher != nil {
		closers = append(closers, closePublisher)
	}

	m := metrics.New("retailpro-backend")
	recorder := activity.NewRecorder(repo, publisher, log, m)
	closers = append(closers, recorder.Close)
	svc := service.New(repo, service.Options{
		Location:   loc,
		MaxRetries: cfg.CheckoutMaxRetries,
		Logger:     log,
		Metrics:    m,
		Activity:   recorder,
	})
	auth := httpapi.NewAuthManager(cfg.AuthSecret)
	api := httpapi.New(svc, auth, httpapi.Options{
		AllowedOrigin: cfg.AllowedOrigin,
		Logger:        log,
		Metrics:       m,
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("POS backend listening", zap.String("addr", cfg.Address()), zap.String("report_timezone", loc.String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case err := <-serverErr:
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown error", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}

// openRepository picks Postgres when DATABASE_URL is set and refuses to fall
// back to memory if it is unreachable; otherwise it runs in memory.
func openRepository(ctx context.Context, cfg config.Config, log *zap.Logger) (store.Repository, func() error, error) {
	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, fmt.Errorf("migrate schema: %w", err)
		}
		log.Info("repository: postgres")
		return pg, pg.Close, nil
	}

	var repo *memory.Store
	if cfg.SeedCatalog {
		repo = memory.NewSeeded()
	} else {
		repo = memory.New()
	}
	log.Info("repository: in-memory", zap.Bool("seeded", cfg.SeedCatalog))
	return repo, repo.Close, nil
}

// openPublisher streams activity entries to Redis when configured. An
// unreachable Redis degrades to no publishing rather than blocking startup.
func openPublisher(ctx context.Context, cfg config.Config, log *zap.Logger) (activity.Publisher, func() error) {
	if cfg.RedisAddr == "" {
		log.Info("activity stream: disabled")
		return activity.NoopPublisher{}, nil
	}

	publisher := activity.NewRedisStreamPublisher(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.ActivityStream)
	if err := publisher.Ping(ctx); err != nil {
		log.Warn("redis unavailable, activity stream disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = publisher.Close()
		return activity.NoopPublisher{}, nil
	}
	log.Info("activity stream: redis", zap.String("addr", cfg.RedisAddr), zap.String("stream", cfg.ActivityStream))
	return publisher, publisher.Close
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	return nil
}
