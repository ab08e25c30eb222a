package providers

import (
	"context"
	"strings"

	"photoflow/internal/providers/seedream"
	"photoflow/internal/resilience"
)

// SeedreamEditing adapts the Seedream client to the EditingProvider
// contract, guarded by its own resilience policy.
type SeedreamEditing struct {
	guarded
	client *seedream.Client
}

// NewSeedreamEditing wraps client with policy.
func NewSeedreamEditing(client *seedream.Client, policy *resilience.Policy) *SeedreamEditing {
	return &SeedreamEditing{guarded: guarded{policy: policy}, client: client}
}

func (p *SeedreamEditing) Name() string { return seedream.ProviderName }

// Edit produces an edited artifact reference. The editing prompt combines
// the analysis text with the user's instructions.
func (p *SeedreamEditing) Edit(ctx context.Context, req EditRequest) (EditResponse, error) {
	var result *seedream.EditResult
	meta, err := p.call(ctx, func(ctx context.Context) error {
		out, callErr := p.client.EditImage(ctx, seedream.EditRequest{
			ImageURL:  req.ImageURL,
			Prompt:    buildEditPrompt(req),
			RequestID: req.RequestID,
		})
		if callErr != nil {
			return callErr
		}
		result = out
		return nil
	})
	resp := EditResponse{Meta: meta}
	if result != nil {
		resp.EditedImageURL = result.URL
		resp.Format = result.Format
	}
	return resp, err
}

// Ping checks provider liveness directly, bypassing the circuit breaker.
func (p *SeedreamEditing) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

func buildEditPrompt(req EditRequest) string {
	parts := make([]string, 0, 2)
	if instructions := strings.TrimSpace(req.Instructions); instructions != "" {
		parts = append(parts, instructions)
	}
	if analysis := strings.TrimSpace(req.Analysis); analysis != "" {
		parts = append(parts, "Photo assessment: "+analysis)
	}
	return strings.Join(parts, "\n\n")
}

var _ EditingProvider = (*SeedreamEditing)(nil)
