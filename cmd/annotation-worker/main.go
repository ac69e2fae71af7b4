package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/image-annotate/pkg/annotate/caption"
	"github.com/tendant/image-annotate/pkg/annotate/config"
	"github.com/tendant/image-annotate/pkg/annotate/queue"
	postgresrepo "github.com/tendant/image-annotate/pkg/annotate/repo/postgres"
	s3storage "github.com/tendant/image-annotate/pkg/annotate/storage/s3"
	"github.com/tendant/image-annotate/pkg/annotate/worker"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("annotation worker exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.RequireWorker(); err != nil {
		return err
	}
	if err := cfg.RequireCaptioning(); err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	store := postgresrepo.NewWithPool(pool)

	blobs, err := s3storage.New(s3storage.Config{
		Region:          cfg.S3Region,
		Bucket:          cfg.S3Bucket,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		Endpoint:        cfg.S3Endpoint,
		UsePathStyle:    cfg.S3UsePathStyle,
		PresignDuration: cfg.PresignDuration,
	})
	if err != nil {
		return fmt.Errorf("connect blob storage: %w", err)
	}

	captioner, err := caption.NewGemini(caption.GeminiConfig{
		APIKey: cfg.GeminiAPIKey,
		Model:  cfg.GeminiModel,
		Prompt: cfg.GeminiPrompt,
	})
	if err != nil {
		return fmt.Errorf("configure captioner: %w", err)
	}

	handler := worker.NewAnnotation(store, blobs, captioner, logger)
	consumer := queue.NewConsumer(queue.ConsumerConfig{
		Brokers:  cfg.Brokers(),
		Topic:    cfg.KafkaTopic,
		DLQTopic: cfg.KafkaDLQ,
		GroupID:  handler.Name(),
	}, handler, logger)
	defer consumer.Close()

	logger.Info("annotation worker starting", "topic", cfg.KafkaTopic, "group", handler.Name())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("annotation worker shutting down")
		return nil
	})
	return g.Wait()
}
