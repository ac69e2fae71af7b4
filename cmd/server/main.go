package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/image-annotate/pkg/annotate"
	"github.com/tendant/image-annotate/pkg/annotate/api"
	"github.com/tendant/image-annotate/pkg/annotate/caption"
	"github.com/tendant/image-annotate/pkg/annotate/config"
	"github.com/tendant/image-annotate/pkg/annotate/queue"
	memoryrepo "github.com/tendant/image-annotate/pkg/annotate/repo/memory"
	postgresrepo "github.com/tendant/image-annotate/pkg/annotate/repo/postgres"
	memorystorage "github.com/tendant/image-annotate/pkg/annotate/storage/memory"
	s3storage "github.com/tendant/image-annotate/pkg/annotate/storage/s3"
	"github.com/tendant/image-annotate/pkg/annotate/worker"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Record store: postgres when DATABASE_URL is set, in-memory otherwise.
	var store annotate.RecordStore
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		if err := postgresrepo.Migrate(pool); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		store = postgresrepo.NewWithPool(pool)
		logger.Info("using postgres record store")
	} else {
		store = memoryrepo.New()
		logger.Warn("DATABASE_URL not set, using in-memory record store")
	}

	// Blob storage: S3 (or any S3-compatible endpoint) when a bucket is
	// configured, in-memory otherwise.
	var blobs annotate.BlobStore
	if cfg.S3Bucket != "" {
		blobs, err = s3storage.New(s3storage.Config{
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
		logger.Info("using s3 blob storage", "bucket", cfg.S3Bucket)
	} else {
		blobs = memorystorage.New()
		logger.Warn("S3_BUCKET not set, using in-memory blob storage")
	}

	// Event transport: Kafka when brokers are configured. Without brokers the
	// workers run in-process so a single binary serves the full flow in
	// development.
	var publisher annotate.Publisher
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		kp := queue.NewPublisher(brokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
		logger.Info("publishing events to kafka", "topic", cfg.KafkaTopic)
	} else {
		handlers := []worker.Handler{
			worker.NewThumbnail(store, blobs, cfg.ThumbnailWidth, cfg.ThumbnailHeight, logger),
		}
		if cfg.GeminiAPIKey != "" {
			captioner, err := caption.NewGemini(caption.GeminiConfig{
				APIKey: cfg.GeminiAPIKey,
				Model:  cfg.GeminiModel,
				Prompt: cfg.GeminiPrompt,
			})
			if err != nil {
				return fmt.Errorf("configure captioner: %w", err)
			}
			handlers = append(handlers, worker.NewAnnotation(store, blobs, captioner, logger))
		} else {
			logger.Warn("GEMINI_API_KEY not set, annotation disabled in in-process mode")
		}
		dispatcher := queue.NewInProcessAsync(logger, handlers...)
		defer dispatcher.Wait()
		publisher = dispatcher
		logger.Warn("KAFKA_BROKERS not set, dispatching events in-process")
	}

	svc, err := annotate.NewService(
		annotate.WithRecordStore(store),
		annotate.WithBlobStore(blobs),
		annotate.WithPublisher(publisher),
		annotate.WithBucket(cfg.S3Bucket),
		annotate.WithLogger(logger),
		annotate.WithURLMemoTTL(time.Duration(cfg.PresignDuration)*time.Second/2),
	)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}

	server := api.NewServer(svc, logger, cfg.MaxUploadBytes)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
