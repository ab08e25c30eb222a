package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	AWSRegion   string
	S3Bucket    string
	SQSQueueURL string
	SNSTopicARN string

	StorageBackend string // "s3" or "filesystem"
	StorageDir     string
	StorageBaseURL string
	PresignTTL     time.Duration

	AnalysisProvider string // "gemini" or "stub"
	EditingProvider  string // "seedream" or "stub"

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	SeedreamAPIKey  string
	SeedreamModel   string
	SeedreamBaseURL string

	ProviderMaxAttempts      int
	ProviderInitialDelay     time.Duration
	ProviderMaxDelay         time.Duration
	ProviderBackoffMult      float64
	ProviderTimeout          time.Duration
	ProviderFailureThreshold int
	ProviderCooldown         time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
		SQSQueueURL: os.Getenv("SQS_QUEUE_URL"),
		SNSTopicARN: os.Getenv("SNS_TOPIC_ARN"),

		StorageBackend: getEnv("STORAGE_BACKEND", "s3"),
		StorageDir:     getEnv("STORAGE_DIR", "./data"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),
		PresignTTL:     time.Minute * time.Duration(getEnvInt("PRESIGN_TTL_MINUTES", 15)),

		AnalysisProvider: getEnv("ANALYSIS_PROVIDER", "gemini"),
		EditingProvider:  getEnv("EDITING_PROVIDER", "seedream"),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),

		SeedreamAPIKey:  os.Getenv("SEEDREAM_API_KEY"),
		SeedreamModel:   getEnv("SEEDREAM_MODEL", "seedream-4.0"),
		SeedreamBaseURL: getEnv("SEEDREAM_BASE_URL", "https://ark.ap-southeast.bytepluses.com/api/v3"),

		ProviderMaxAttempts:      getEnvInt("PROVIDER_MAX_ATTEMPTS", 3),
		ProviderInitialDelay:     time.Millisecond * time.Duration(getEnvInt("PROVIDER_INITIAL_DELAY_MS", 1000)),
		ProviderMaxDelay:         time.Millisecond * time.Duration(getEnvInt("PROVIDER_MAX_DELAY_MS", 30000)),
		ProviderBackoffMult:      getEnvFloat("PROVIDER_BACKOFF_MULTIPLIER", 2.0),
		ProviderTimeout:          time.Second * time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 60)),
		ProviderFailureThreshold: getEnvInt("PROVIDER_FAILURE_THRESHOLD", 5),
		ProviderCooldown:         time.Second * time.Duration(getEnvInt("PROVIDER_COOLDOWN_SECONDS", 30)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.StorageBackend != "s3" && cfg.StorageBackend != "filesystem" {
		return nil, fmt.Errorf("STORAGE_BACKEND must be s3 or filesystem, got %q", cfg.StorageBackend)
	}

	if cfg.StorageBackend == "s3" && cfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND=s3")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
