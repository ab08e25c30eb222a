package providers

import (
	"context"

	"photoflow/internal/providers/gemini"
	"photoflow/internal/resilience"
)

// GeminiAnalysis adapts the Gemini vision client to the AnalysisProvider
// contract, guarded by its own resilience policy.
type GeminiAnalysis struct {
	guarded
	client *gemini.Client
}

// NewGeminiAnalysis wraps client with policy.
func NewGeminiAnalysis(client *gemini.Client, policy *resilience.Policy) *GeminiAnalysis {
	return &GeminiAnalysis{guarded: guarded{policy: policy}, client: client}
}

func (p *GeminiAnalysis) Name() string { return gemini.ProviderName }

// Analyze describes the referenced image. On failure the response still
// carries the wrapper's call metadata.
func (p *GeminiAnalysis) Analyze(ctx context.Context, req AnalysisRequest) (AnalysisResponse, error) {
	var text string
	meta, err := p.call(ctx, func(ctx context.Context) error {
		out, callErr := p.client.AnalyzeImage(ctx, gemini.AnalysisRequest{
			ImageURL: req.ImageURL,
			Prompt:   req.Prompt,
			Locale:   req.Locale,
		})
		if callErr != nil {
			return callErr
		}
		text = out
		return nil
	})
	return AnalysisResponse{Analysis: text, Meta: meta}, err
}

// Ping checks provider liveness directly, bypassing the circuit breaker so
// health reporting reflects the upstream service rather than local state.
func (p *GeminiAnalysis) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

var _ AnalysisProvider = (*GeminiAnalysis)(nil)
