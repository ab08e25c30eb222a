package providers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"photoflow/internal/resilience"
)

func TestNewFactoryRejectsUnknownProviders(t *testing.T) {
	logger := zerolog.Nop()
	if _, err := NewFactory(Config{Analysis: "nope", Editing: "stub"}, logger); err == nil {
		t.Fatalf("expected error for unknown analysis provider")
	}
	if _, err := NewFactory(Config{Analysis: "stub", Editing: "nope"}, logger); err == nil {
		t.Fatalf("expected error for unknown editing provider")
	}
}

func TestNewFactoryRequiresCredentialsForRealProviders(t *testing.T) {
	logger := zerolog.Nop()
	if _, err := NewFactory(Config{Analysis: "gemini", Editing: "stub"}, logger); err == nil {
		t.Fatalf("expected error for keyless gemini")
	}
	if _, err := NewFactory(Config{Analysis: "stub", Editing: "seedream"}, logger); err == nil {
		t.Fatalf("expected error for keyless seedream")
	}
}

func TestNewFactoryBuildsStubs(t *testing.T) {
	factory, err := NewFactory(Config{Analysis: "stub", Editing: "stub"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewFactory: %v", err)
	}
	if factory.AnalysisProvider().Name() != StubName {
		t.Fatalf("analysis = %q", factory.AnalysisProvider().Name())
	}
	if factory.EditingProvider().Name() != StubName {
		t.Fatalf("editing = %q", factory.EditingProvider().Name())
	}
}

func TestHealthCheckReportsProvidersIndependently(t *testing.T) {
	analysis := NewStubAnalysis(resilience.NewPolicy("analysis", resilience.Config{MaxAttempts: 1}, zerolog.Nop()))
	analysis.FailWith = errors.New("analysis down")
	editing := NewStubEditing(resilience.NewPolicy("editing", resilience.Config{MaxAttempts: 1}, zerolog.Nop()))
	factory := NewFactoryFromProviders(analysis, editing)

	health := factory.HealthCheck(context.Background())
	if health.Analysis.Healthy {
		t.Fatalf("analysis reported healthy while failing")
	}
	if health.Analysis.Error == "" {
		t.Fatalf("expected analysis error detail")
	}
	if !health.Editing.Healthy {
		t.Fatalf("editing health hidden by analysis failure: %+v", health.Editing)
	}
	if health.Healthy() {
		t.Fatalf("aggregate should be unhealthy")
	}
}

func TestStubAnalysisIsDeterministic(t *testing.T) {
	stub := NewStubAnalysis(resilience.NewPolicy("analysis", resilience.Config{MaxAttempts: 1}, zerolog.Nop()))
	req := AnalysisRequest{ImageURL: "s3://bucket/uploads/a.jpg", Prompt: "brighten"}

	first, err := stub.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	second, err := stub.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if first.Analysis != second.Analysis {
		t.Fatalf("stub not deterministic: %q vs %q", first.Analysis, second.Analysis)
	}
	if !strings.Contains(first.Analysis, "brighten") {
		t.Fatalf("analysis missing prompt: %q", first.Analysis)
	}
}

func TestStubEditingOmitArtifact(t *testing.T) {
	stub := NewStubEditing(resilience.NewPolicy("editing", resilience.Config{MaxAttempts: 1}, zerolog.Nop()))
	stub.OmitArtifact = true

	resp, err := stub.Edit(context.Background(), EditRequest{RequestID: "job-1"})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if resp.EditedImageURL != "" {
		t.Fatalf("expected missing artifact, got %q", resp.EditedImageURL)
	}
}

func TestStubFailureCarriesCallMeta(t *testing.T) {
	cfg := resilience.Config{MaxAttempts: 2, InitialDelay: 1, FailureThreshold: 10}
	stub := NewStubEditing(resilience.NewPolicy("editing", cfg, zerolog.Nop()))
	stub.FailWith = errors.New("forced")

	resp, err := stub.Edit(context.Background(), EditRequest{RequestID: "job-1"})
	if err == nil {
		t.Fatalf("expected failure")
	}
	if resp.Meta.RetryAttempts != 1 {
		t.Fatalf("retryAttempts = %d, want 1", resp.Meta.RetryAttempts)
	}
	if resp.Meta.BreakerState != resilience.BreakerClosed {
		t.Fatalf("breaker = %s, want CLOSED", resp.Meta.BreakerState)
	}
}
