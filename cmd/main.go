package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"snapboard/internal/events"
	"snapboard/internal/fetcher"
	"snapboard/internal/filestore"
	"snapboard/internal/logger"
	"snapboard/internal/models"
	"snapboard/internal/server"
	"snapboard/internal/service"
	"snapboard/internal/storage"
	"snapboard/internal/transcoder"
)

func main() {
	cfg, err := models.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	db, err := storage.NewStorage(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to init storage", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	files := filestore.New(cfg.StoragePath)
	if err := files.EnsureDirectories(); err != nil {
		slog.Error("failed to prepare upload directories", "error", err)
		os.Exit(1)
	}

	trans := transcoder.New(files, cfg.Upload)
	fetch := fetcher.New(cfg.Upload.FetchTimeout(), cfg.Upload.MaxFileSize)
	publisher := events.NewPublisher(cfg.KafkaBroker, cfg.KafkaTopic)
	defer publisher.Close()

	svc := service.New(db, files, trans, fetch, publisher, cfg.Upload)
	srv := server.NewServer(cfg, svc)

	go func() {
		slog.Info("http server starting", "addr", cfg.ServerAddr)
		if err := srv.Start(); err != nil {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}
