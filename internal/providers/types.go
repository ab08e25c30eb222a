package providers

import (
	"context"
	"time"

	"photoflow/internal/resilience"
)

// AnalysisRequest is the normalized input for any analysis provider.
type AnalysisRequest struct {
	ImageURL string
	Prompt   string
	Locale   string
}

// EditRequest is the normalized input for any editing provider.
type EditRequest struct {
	ImageURL     string
	Analysis     string
	Instructions string
	RequestID    string
}

// CallMeta describes how the resilience wrapper handled one call.
type CallMeta struct {
	Duration      time.Duration
	RetryAttempts int
	BreakerState  resilience.BreakerState
	TimedOut      bool
}

// AnalysisResponse carries the analysis text plus call metadata. Meta is
// populated even when the call failed.
type AnalysisResponse struct {
	Analysis string
	Meta     CallMeta
}

// EditResponse carries the edited artifact reference plus call metadata.
// EditedImageURL may be empty on a successful call; the orchestrator treats
// that the same as a failure and falls back to a copy.
type EditResponse struct {
	EditedImageURL string
	Format         string
	Meta           CallMeta
}

// AnalysisProvider analyzes a source image to inform the editing step.
type AnalysisProvider interface {
	Name() string
	Analyze(ctx context.Context, req AnalysisRequest) (AnalysisResponse, error)
	Ping(ctx context.Context) error
	BreakerState() resilience.BreakerState
}

// EditingProvider produces an edited artifact from a source image.
type EditingProvider interface {
	Name() string
	Edit(ctx context.Context, req EditRequest) (EditResponse, error)
	Ping(ctx context.Context) error
	BreakerState() resilience.BreakerState
}
