// Package main is the entry point for the fileden API server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/fileden/fileden/internal/api"
	"github.com/fileden/fileden/internal/auth"
	"github.com/fileden/fileden/internal/blob"
	"github.com/fileden/fileden/internal/config"
	"github.com/fileden/fileden/internal/database"
	"github.com/fileden/fileden/internal/files"
	"github.com/fileden/fileden/internal/logging"
	"github.com/fileden/fileden/internal/queue"
	"github.com/fileden/fileden/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Sugar().Fatalf("connect database: %v", err)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.Sugar().Fatalf("ensure schema: %v", err)
	}
	st := store.NewPostgresStore(pool)

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		logger.Sugar().Fatalf("init blob store: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	sessions := auth.NewRedisSessions(redisClient, cfg.SessionTTL)

	queueClient := queue.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer queueClient.Close()

	svc := files.NewService(st, blobs, queueClient, logger)
	srv := api.New(cfg.Address, logger, api.Deps{
		Files:     svc,
		FileStore: st,
		Users:     st,
		Sessions:  sessions,
		DBPing:    pool.Ping,
		RedisPing: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	})
	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped with error")
		os.Exit(1)
	}
}

func newBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	if cfg.BlobBackend == config.BlobBackendS3 {
		s3, err := blob.NewS3Store(cfg)
		if err != nil {
			return nil, err
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s3, nil
	}
	return blob.NewDiskStore(cfg.BlobDir)
}
