package providers

import (
	"context"
	"fmt"
	"strings"

	"photoflow/internal/infra"
	"photoflow/internal/providers/gemini"
	"photoflow/internal/providers/seedream"
	"photoflow/internal/resilience"
)

// Config selects and configures the concrete providers.
type Config struct {
	Analysis string // "gemini" or "stub"
	Editing  string // "seedream" or "stub"

	GeminiAPIKey  string
	GeminiBaseURL string
	GeminiModel   string

	SeedreamAPIKey  string
	SeedreamBaseURL string
	SeedreamModel   string

	Resilience resilience.Config
}

// Factory owns the configured provider pair. It is constructed explicitly
// and handed to the orchestration service, so provider wiring is visible at
// the call site and swappable per test; there is no package-level instance.
type Factory struct {
	analysis AnalysisProvider
	editing  EditingProvider
}

// NewFactory resolves provider identities from cfg, failing fast on an
// unknown name or unusable provider configuration.
func NewFactory(cfg Config, logger infra.Logger) (*Factory, error) {
	analysis, err := buildAnalysis(cfg, logger)
	if err != nil {
		return nil, err
	}
	editing, err := buildEditing(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Factory{analysis: analysis, editing: editing}, nil
}

// NewFactoryFromProviders assembles a factory from prebuilt providers,
// used by tests to inject stubs with forced behaviors.
func NewFactoryFromProviders(analysis AnalysisProvider, editing EditingProvider) *Factory {
	return &Factory{analysis: analysis, editing: editing}
}

// AnalysisProvider returns the configured analysis provider.
func (f *Factory) AnalysisProvider() AnalysisProvider { return f.analysis }

// EditingProvider returns the configured editing provider.
func (f *Factory) EditingProvider() EditingProvider { return f.editing }

// ProviderHealth reports one provider's liveness.
type ProviderHealth struct {
	Provider string                  `json:"provider"`
	Healthy  bool                    `json:"healthy"`
	Breaker  resilience.BreakerState `json:"breaker"`
	Error    string                  `json:"error,omitempty"`
}

// Health aggregates both providers' liveness.
type Health struct {
	Analysis ProviderHealth `json:"analysis"`
	Editing  ProviderHealth `json:"editing"`
}

// Healthy reports whether both providers responded.
func (h Health) Healthy() bool {
	return h.Analysis.Healthy && h.Editing.Healthy
}

// HealthCheck probes both providers independently. One provider failing
// never hides the other's status.
func (f *Factory) HealthCheck(ctx context.Context) Health {
	return Health{
		Analysis: probe(ctx, f.analysis.Name(), f.analysis.BreakerState(), f.analysis.Ping),
		Editing:  probe(ctx, f.editing.Name(), f.editing.BreakerState(), f.editing.Ping),
	}
}

func probe(ctx context.Context, name string, breaker resilience.BreakerState, ping func(context.Context) error) ProviderHealth {
	health := ProviderHealth{Provider: name, Breaker: breaker}
	if err := ping(ctx); err != nil {
		health.Error = err.Error()
		return health
	}
	health.Healthy = true
	return health
}

func buildAnalysis(cfg Config, logger infra.Logger) (AnalysisProvider, error) {
	policy := resilience.NewPolicy("analysis", cfg.Resilience, logger)
	switch strings.ToLower(strings.TrimSpace(cfg.Analysis)) {
	case gemini.ProviderName:
		client, err := gemini.NewClient(gemini.Options{
			APIKey:  cfg.GeminiAPIKey,
			BaseURL: cfg.GeminiBaseURL,
			Model:   cfg.GeminiModel,
			Logger:  &logger,
		})
		if err != nil {
			return nil, fmt.Errorf("configure gemini: %w", err)
		}
		return NewGeminiAnalysis(client, policy), nil
	case StubName:
		return NewStubAnalysis(policy), nil
	default:
		return nil, fmt.Errorf("unknown analysis provider %q", cfg.Analysis)
	}
}

func buildEditing(cfg Config, logger infra.Logger) (EditingProvider, error) {
	policy := resilience.NewPolicy("editing", cfg.Resilience, logger)
	switch strings.ToLower(strings.TrimSpace(cfg.Editing)) {
	case seedream.ProviderName:
		client, err := seedream.NewClient(seedream.Options{
			APIKey:  cfg.SeedreamAPIKey,
			BaseURL: cfg.SeedreamBaseURL,
			Model:   cfg.SeedreamModel,
			Logger:  &logger,
		})
		if err != nil {
			return nil, fmt.Errorf("configure seedream: %w", err)
		}
		return NewSeedreamEditing(client, policy), nil
	case StubName:
		return NewStubEditing(policy), nil
	default:
		return nil, fmt.Errorf("unknown editing provider %q", cfg.Editing)
	}
}
