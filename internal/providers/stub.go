package providers

import (
	"context"
	"fmt"
	"strings"

	"photoflow/internal/resilience"
)

// StubName identifies the deterministic providers in config and logs.
const StubName = "stub"

// StubAnalysis is a deterministic AnalysisProvider for tests and keyless
// environments. FailWith, when set, makes every call fail.
type StubAnalysis struct {
	guarded
	FailWith error
}

// NewStubAnalysis builds a stub guarded by the same resilience wrapper the
// real providers use, so wrapper behavior is exercised in tests too.
func NewStubAnalysis(policy *resilience.Policy) *StubAnalysis {
	return &StubAnalysis{guarded: guarded{policy: policy}}
}

func (p *StubAnalysis) Name() string { return StubName }

func (p *StubAnalysis) Analyze(ctx context.Context, req AnalysisRequest) (AnalysisResponse, error) {
	var text string
	meta, err := p.call(ctx, func(ctx context.Context) error {
		if p.FailWith != nil {
			return p.FailWith
		}
		text = deterministicAnalysis(req)
		return nil
	})
	return AnalysisResponse{Analysis: text, Meta: meta}, err
}

func (p *StubAnalysis) Ping(ctx context.Context) error {
	if p.FailWith != nil {
		return p.FailWith
	}
	return ctx.Err()
}

// StubEditing is a deterministic EditingProvider. FailWith makes every call
// fail; OmitArtifact makes calls succeed without an artifact reference.
type StubEditing struct {
	guarded
	FailWith     error
	OmitArtifact bool
}

// NewStubEditing builds a stub editing provider guarded by policy.
func NewStubEditing(policy *resilience.Policy) *StubEditing {
	return &StubEditing{guarded: guarded{policy: policy}}
}

func (p *StubEditing) Name() string { return StubName }

func (p *StubEditing) Edit(ctx context.Context, req EditRequest) (EditResponse, error) {
	var url string
	meta, err := p.call(ctx, func(ctx context.Context) error {
		if p.FailWith != nil {
			return p.FailWith
		}
		if !p.OmitArtifact {
			url = deterministicArtifactURL(req)
		}
		return nil
	})
	return EditResponse{EditedImageURL: url, Format: "image/jpeg", Meta: meta}, err
}

func (p *StubEditing) Ping(ctx context.Context) error {
	if p.FailWith != nil {
		return p.FailWith
	}
	return ctx.Err()
}

func deterministicAnalysis(req AnalysisRequest) string {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = "no instruction"
	}
	return fmt.Sprintf("stub analysis of %s (%s)", req.ImageURL, prompt)
}

func deterministicArtifactURL(req EditRequest) string {
	id := strings.TrimSpace(req.RequestID)
	if id == "" {
		id = "unknown"
	}
	return "https://stub.invalid/edited/" + id + ".jpg"
}

var (
	_ AnalysisProvider = (*StubAnalysis)(nil)
	_ EditingProvider  = (*StubEditing)(nil)
)
