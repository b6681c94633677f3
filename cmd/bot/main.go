package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"forum-xp-backend/internal/common/config"
	"forum-xp-backend/internal/common/logger"
	"forum-xp-backend/internal/features/audit"
	"forum-xp-backend/internal/features/progression/models"
	"forum-xp-backend/internal/features/progression/repository"
	redisrepo "forum-xp-backend/internal/features/progression/repository/redis"
	sqliterepo "forum-xp-backend/internal/features/progression/repository/sqlite"
	progression "forum-xp-backend/internal/features/progression/service"
	roles "forum-xp-backend/internal/features/roles/service"
	xphttp "forum-xp-backend/internal/http"
	"forum-xp-backend/internal/platform/chat"
	"forum-xp-backend/internal/router"
	"forum-xp-backend/internal/workers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger.Init("forum-xp-backend", cfg.Debug)
	logger.Info().Str("forum_channel", cfg.Forum.ChannelID).Msg("Starting forum XP backend")

	thresholds, err := models.NewThresholdTable(cfg.Levels.Thresholds)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid threshold table")
	}
	binding := models.NewRoleBinding(cfg.Levels.Roles)

	store, err := openStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("Failed to open record store")
	}
	defer store.Close()
	logger.Info().Str("backend", cfg.Storage.Backend).Msg("Record store ready")

	// The gateway connection is supplied by the embedding deployment;
	// the in-process adapter keeps dry runs and the ops API functional
	// without one.
	adapter := chat.NewMemoryAdapter()

	notifier := audit.New(adapter, cfg.Forum.LogChannelID)
	ledger := progression.NewLedger(store, thresholds)
	reconciler := roles.NewReconciler(adapter, ledger, binding, notifier)
	activityRouter := router.New(cfg, adapter, ledger, reconciler, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	maintenance := workers.NewMaintenanceWorker(adapter, notifier, workers.MaintenanceOptions{
		ChannelID:        cfg.Forum.ChannelID,
		CloseAfter:       hours(cfg.Maintenance.CloseAfterHours),
		LockAfter:        hours(cfg.Maintenance.LockAfterHours),
		ExcludeThreadIDs: cfg.Maintenance.ExcludeThreadIDs,
		Interval:         cfg.Maintenance.SweepInterval,
	})
	if maintenance.Enabled() {
		maintenance.Start()
		defer maintenance.Stop()
	}

	server := xphttp.NewServer(cfg, ledger, reconciler, store).HTTPServer()
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting ops HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Ops HTTP server failed")
		}
	}()

	go activityRouter.Run(ctx)
	notifier.Send(ctx, "✅ **Bot started!** Monitoring forum channel and ready for action.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Ops HTTP server forced to shut down")
	}
}

func openStore(cfg *config.Config) (repository.RecordStore, error) {
	switch cfg.Storage.Backend {
	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		return redisrepo.New(client), nil
	case "sqlite":
		return sqliterepo.Open(cfg.Storage.Path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
