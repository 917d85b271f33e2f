package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Varun5711/clubhouse/internal/config"
	"github.com/Varun5711/clubhouse/internal/database"
	"github.com/Varun5711/clubhouse/internal/lock"
	"github.com/Varun5711/clubhouse/internal/logger"
	"github.com/Varun5711/clubhouse/internal/redis"
	"github.com/Varun5711/clubhouse/internal/storage"
)

func main() {
	log := logger.New("cleanup-worker")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := redis.NewRedisClient(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		log.Fatal("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	dbManager, err := database.NewDBManager(ctx, database.Config{
		PrimaryDSN:      cfg.Database.PrimaryDSN,
		ReplicaDSNs:     cfg.Database.ReplicaDSNs,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer dbManager.Close()

	store := storage.NewPostgresStorage(dbManager)
	cleanupLock := lock.NewDistributedLock(redisClient.GetClient(), "cleanup:reset-tokens", cfg.Cleanup.LockTTL)

	log.Info("Cleanup worker started. Running every %s", cfg.Cleanup.Interval)

	runCleanup(ctx, store, cleanupLock, log)

	ticker := time.NewTicker(cfg.Cleanup.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Shutting down")
			return
		case <-ticker.C:
			runCleanup(ctx, store, cleanupLock, log)
		}
	}
}

// runCleanup deletes expired reset tokens. Only one worker runs it at a time.
func runCleanup(ctx context.Context, store storage.ResetTokenStore, l *lock.DistributedLock, log *logger.Logger) {
	err := l.WithLock(ctx, func(ctx context.Context) error {
		deleted, err := store.DeleteExpiredResetTokens(ctx, time.Now())
		if err != nil {
			return err
		}

		if deleted > 0 {
			log.Info("Deleted %d expired password reset tokens", deleted)
		} else {
			log.Debug("No expired password reset tokens")
		}
		return nil
	})

	switch {
	case errors.Is(err, lock.ErrLockNotAcquired):
		log.Debug("Cleanup already running on another worker")
	case err != nil:
		log.Error("Cleanup failed: %v", err)
	}
}
