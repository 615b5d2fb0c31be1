package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/fileden/fileden/internal/blob"
	"github.com/fileden/fileden/internal/config"
	"github.com/fileden/fileden/internal/database"
	"github.com/fileden/fileden/internal/logging"
	"github.com/fileden/fileden/internal/store"
	"github.com/fileden/fileden/internal/worker"
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

	server := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, asynq.Config{
		Concurrency: cfg.Workers,
	})
	processor := worker.NewProcessor(st, blobs, logger)
	mux := processor.Handler()

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	logger.Info("thumbnail worker started")
	if err := server.Run(mux); err != nil {
		logger.Sugar().Errorf("worker stopped: %v", err)
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
