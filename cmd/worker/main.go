package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/yuelin-song/communitykb/internal/config"
	"github.com/yuelin-song/communitykb/internal/database"
	"github.com/yuelin-song/communitykb/internal/ingest"
	"github.com/yuelin-song/communitykb/internal/knowledge"
	"github.com/yuelin-song/communitykb/internal/queue"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Database.URL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store := knowledge.NewStore(db)
	ingestSvc := ingest.NewService(store, cfg.Retrieval.ChunkSize)
	worker := ingest.NewWorker(ingestSvc)

	srv := queue.NewServer(cfg.Redis, 4)
	srv.Register(queue.TypeDocumentIngest, asynq.HandlerFunc(worker.ProcessTask))

	// asynq's Run handles SIGINT/SIGTERM and drains in-flight tasks.
	slog.Info("starting ingest worker")
	if err := srv.Run(); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
