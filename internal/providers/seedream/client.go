package seedream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"photoflow/internal/domain"
	"photoflow/internal/infra"
)

// ProviderName identifies this client in errors and logs.
const ProviderName = "seedream"

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("seedream: api key is required")

// Options configures the Seedream image editing client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	Size           string
	Watermark      bool
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the Ark Seedream image generation API in
// image-to-image mode.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	size       string
	watermark  bool
	httpClient *http.Client
	logger     *infra.Logger
}

// EditRequest captures the inputs for one image edit call.
type EditRequest struct {
	ImageURL  string
	Prompt    string
	RequestID string
}

// EditResult is the normalized result from the Seedream API.
type EditResult struct {
	URL    string
	Format string
}

type editPayload struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	Image          string `json:"image"`
	ResponseFormat string `json:"response_format"`
	Size           string `json:"size,omitempty"`
	Watermark      bool   `json:"watermark"`
}

type editResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 90 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://ark.ap-southeast.bytepluses.com/api/v3"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "seedream-4-0-250828"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		size:       strings.TrimSpace(opts.Size),
		watermark:  opts.Watermark,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// EditImage invokes the Ark API once and returns the edited artifact
// reference. An empty URL in an otherwise successful response is returned
// as-is; the caller decides whether that warrants a fallback.
func (c *Client) EditImage(ctx context.Context, req EditRequest) (*EditResult, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, &domain.ProviderError{
			Provider:  ProviderName,
			Retryable: false,
			Err:       errors.New("prompt is required"),
		}
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		return nil, &domain.ProviderError{
			Provider:  ProviderName,
			Retryable: false,
			Err:       errors.New("source image is required"),
		}
	}

	payload := editPayload{
		Model:          c.model,
		Prompt:         prompt,
		Image:          req.ImageURL,
		ResponseFormat: "url",
		Size:           c.size,
		Watermark:      c.watermark,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("seedream: encode request: %w", err)
	}
	endpoint := c.baseURL + "/images/generations"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("seedream: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.ProviderError{Provider: ProviderName, Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ProviderError{
			Provider:  ProviderName,
			Retryable: true,
			Err:       fmt.Errorf("read response: %w", err),
		}
	}

	if resp.StatusCode >= 300 {
		return nil, c.statusError(resp.StatusCode, raw)
	}

	var decoded editResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &domain.ProviderError{
			Provider:  ProviderName,
			Retryable: true,
			Err:       fmt.Errorf("decode response: %w", err),
		}
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return nil, &domain.ProviderError{
			Provider:  ProviderName,
			Retryable: false,
			Err:       fmt.Errorf("%s (%s)", decoded.Error.Message, decoded.Error.Code),
		}
	}

	result := &EditResult{Format: "image/jpeg"}
	if len(decoded.Data) > 0 {
		result.URL = strings.TrimSpace(decoded.Data[0].URL)
	}
	c.logger.Debug().
		Str("request_id", req.RequestID).
		Bool("has_artifact", result.URL != "").
		Msg("seedream: edit call completed")
	return result, nil
}

// Ping verifies API reachability. Ark exposes no cheap liveness endpoint,
// so this probes the generations route with an empty body and accepts any
// authenticated response.
func (c *Client) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("ping seedream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("seedream status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) statusError(code int, raw []byte) error {
	var detail editResponse
	message := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &detail); err == nil && detail.Error != nil && detail.Error.Message != "" {
		message = detail.Error.Message
	}
	retryable := code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		code >= http.StatusInternalServerError
	return &domain.ProviderError{
		Provider:  ProviderName,
		Retryable: retryable,
		Err:       fmt.Errorf("status %d: %s", code, message),
	}
}
