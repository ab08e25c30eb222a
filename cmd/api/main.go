package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/joho/godotenv"

	"photoflow/internal/adapter/repo"
	"photoflow/internal/http/handlers"
	"photoflow/internal/http/httpapi"
	"photoflow/internal/infra"
	"photoflow/internal/providers"
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

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	store, err := buildObjectStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure object store")
	}

	factory, err := providers.NewFactory(providerConfig(cfg), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure providers")
	}

	app := &handlers.App{
		Jobs:       repo.NewJobRepository(dbpool),
		Batches:    repo.NewBatchJobRepository(dbpool),
		Store:      store,
		Factory:    factory,
		Logger:     logger,
		Bucket:     cfg.S3Bucket,
		PresignTTL: cfg.PresignTTL,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func buildObjectStore(ctx context.Context, cfg *infra.Config) (storage.ObjectStore, error) {
	if cfg.StorageBackend == "filesystem" {
		return storage.NewFileStore(cfg.StorageDir, cfg.StorageBaseURL)
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, err
	}
	return storage.NewS3Store(awsCfg), nil
}

func providerConfig(cfg *infra.Config) providers.Config {
	return providers.Config{
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
	}
}
