package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"photoflow/internal/adapter/repo"
	"photoflow/internal/infra"
	"photoflow/internal/notify"
	"photoflow/internal/orchestrator"
	"photoflow/internal/providers"
	"photoflow/internal/queue"
	"photoflow/internal/resilience"
	"photoflow/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	if cfg.SQSQueueURL == "" {
		logger.Fatal().Msg("SQS_QUEUE_URL is required for the worker")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load aws config")
	}

	var store storage.ObjectStore
	if cfg.StorageBackend == "filesystem" {
		store, err = storage.NewFileStore(cfg.StorageDir, cfg.StorageBaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure file store")
		}
	} else {
		store = storage.NewS3Store(awsCfg)
	}

	factory, err := providers.NewFactory(providers.Config{
		Analysis:        cfg.AnalysisProvider,
		Editing:         cfg.EditingProvider,
		GeminiAPIKey:    cfg.GeminiAPIKey,
		GeminiBaseURL:   cfg.GeminiBaseURL,
		GeminiModel:     cfg.GeminiModel,
		SeedreamAPIKey:  cfg.SeedreamAPIKey,
		SeedreamBaseURL: cfg.SeedreamBaseURL,
		SeedreamModel:   cfg.SeedreamModel,
		Resilience: resilience.Config{
			MaxAttempts:       cfg.ProviderMaxAttempts,
			InitialDelay:      cfg.ProviderInitialDelay,
			MaxDelay:          cfg.ProviderMaxDelay,
			BackoffMultiplier: cfg.ProviderBackoffMult,
			Timeout:           cfg.ProviderTimeout,
			FailureThreshold:  cfg.ProviderFailureThreshold,
			Cooldown:          cfg.ProviderCooldown,
		},
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure providers")
	}

	svc := orchestrator.NewService(orchestrator.Options{
		Jobs:       repo.NewJobRepository(dbpool),
		Batches:    repo.NewBatchJobRepository(dbpool),
		Store:      store,
		Downloader: storage.NewHTTPDownloader(nil),
		Factory:    factory,
		Publisher:  notify.NewSNSPublisher(awsCfg, cfg.SNSTopicARN, logger),
		Logger:     logger,
		Bucket:     cfg.S3Bucket,
		PresignTTL: cfg.PresignTTL,
	})

	go serveHealth(cfg, factory, logger)

	consumer := queue.NewSQSConsumer(awsCfg, cfg.SQSQueueURL, logger)
	logger.Info().Str("queue", cfg.SQSQueueURL).Msg("worker consuming upload events")

	err = consumer.Run(ctx, func(ctx context.Context, event queue.UploadEvent) error {
		jobID := storage.JobIDFromKey(event.Key)
		if jobID == "" {
			logger.Warn().Str("key", event.Key).Msg("worker: object key carries no job id, dropping event")
			return nil
		}
		return svc.ProcessUpload(ctx, jobID, event.Key)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("consumer stopped")
	}
	logger.Info().Msg("worker stopped")
}

// serveHealth exposes liveness plus provider breaker states while the
// consumer loop owns the main goroutine.
func serveHealth(cfg *infra.Config, factory *providers.Factory, logger infra.Logger) {
	r := chi.NewRouter()
	r.Get("/v1/healthz", func(w http.ResponseWriter, req *http.Request) {
		health := factory.HealthCheck(req.Context())
		if !health.Healthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	server := infra.NewHTTPServer(cfg, r)
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("health server failed")
	}
}
