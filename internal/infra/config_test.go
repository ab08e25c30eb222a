package infra

import (
	"testing"
	"time"
)

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("S3_BUCKET", "photoflow")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when DATABASE_URL is unset")
	}
}

func TestLoadConfigRequiresBucketForS3Backend(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("STORAGE_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when S3_BUCKET is unset for the s3 backend")
	}
}

func TestLoadConfigRejectsUnknownStorageBackend(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("STORAGE_BACKEND", "tape")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for unknown storage backend")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("STORAGE_BACKEND", "filesystem")
	t.Setenv("S3_BUCKET", "")
	t.Setenv("ANALYSIS_PROVIDER", "")
	t.Setenv("EDITING_PROVIDER", "")
	t.Setenv("PROVIDER_MAX_ATTEMPTS", "")
	t.Setenv("PROVIDER_BACKOFF_MULTIPLIER", "")
	t.Setenv("PRESIGN_TTL_MINUTES", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.AnalysisProvider != "gemini" {
		t.Errorf("AnalysisProvider = %q, want gemini", cfg.AnalysisProvider)
	}
	if cfg.EditingProvider != "seedream" {
		t.Errorf("EditingProvider = %q, want seedream", cfg.EditingProvider)
	}
	if cfg.ProviderMaxAttempts != 3 {
		t.Errorf("ProviderMaxAttempts = %d, want 3", cfg.ProviderMaxAttempts)
	}
	if cfg.ProviderBackoffMult != 2.0 {
		t.Errorf("ProviderBackoffMult = %v, want 2.0", cfg.ProviderBackoffMult)
	}
	if cfg.PresignTTL != 15*time.Minute {
		t.Errorf("PresignTTL = %v, want 15m", cfg.PresignTTL)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("STORAGE_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "photoflow-prod")
	t.Setenv("PROVIDER_BACKOFF_MULTIPLIER", "1.5")
	t.Setenv("PROVIDER_INITIAL_DELAY_MS", "250")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.S3Bucket != "photoflow-prod" {
		t.Errorf("S3Bucket = %q", cfg.S3Bucket)
	}
	if cfg.ProviderBackoffMult != 1.5 {
		t.Errorf("ProviderBackoffMult = %v, want 1.5", cfg.ProviderBackoffMult)
	}
	if cfg.ProviderInitialDelay != 250*time.Millisecond {
		t.Errorf("ProviderInitialDelay = %v, want 250ms", cfg.ProviderInitialDelay)
	}
}
