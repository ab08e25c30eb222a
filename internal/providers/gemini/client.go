package gemini

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
const ProviderName = "gemini"

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("gemini: api key is required")

// Options configures the Gemini vision client.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client performs HTTP calls to the Gemini generateContent API to describe
// an image for downstream editing.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// AnalysisRequest captures the inputs for one image analysis call.
type AnalysisRequest struct {
	ImageURL string
	Prompt   string
	Locale   string
}

type geminiPart struct {
	Text     string          `json:"text,omitempty"`
	FileData *geminiFileData `json:"file_data,omitempty"`
}

type geminiFileData struct {
	MimeType string `json:"mime_type,omitempty"`
	FileURI  string `json:"file_uri"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerateContentRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewClient builds a Gemini client. The API key is required; analysis is
// advisory in the pipeline but a keyless client would only ever fail.
func NewClient(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
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
		httpClient: client,
		logger:     logger,
	}, nil
}

// Model returns the configured Gemini model identifier.
func (c *Client) Model() string {
	return c.model
}

// AnalyzeImage asks Gemini to describe the referenced image in terms useful
// for an editing instruction, returning the analysis text.
func (c *Client) AnalyzeImage(ctx context.Context, req AnalysisRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{FileData: &geminiFileData{MimeType: "image/jpeg", FileURI: req.ImageURL}},
				{Text: buildAnalysisPrompt(req)},
			},
		}},
	}

	var out geminiGenerateContentResponse
	if err := c.invoke(ctx, "/models/"+c.model+":generateContent", payload, &out); err != nil {
		return "", err
	}

	for _, candidate := range out.Candidates {
		for _, part := range candidate.Content.Parts {
			if text := strings.TrimSpace(part.Text); text != "" {
				c.logger.Debug().Str("model", c.model).Msg("gemini: analysis completed")
				return text, nil
			}
		}
	}
	return "", &domain.ProviderError{
		Provider:  ProviderName,
		Retryable: true,
		Err:       errors.New("empty analysis response"),
	}
}

// Ping verifies API reachability with a lightweight model lookup.
func (c *Client) Ping(ctx context.Context) error {
	endpoint := c.baseURL + "/models/" + c.model + "?key=" + c.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ping gemini: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("gemini status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) invoke(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", c.apiKey)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.ProviderError{Provider: ProviderName, Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return c.statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.ProviderError{
			Provider:  ProviderName,
			Retryable: true,
			Err:       fmt.Errorf("decode response: %w", err),
		}
	}
	return nil
}

func (c *Client) statusError(resp *http.Response) error {
	message := ""
	var apiErr geminiErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
	} else {
		data, _ := io.ReadAll(resp.Body)
		message = strings.TrimSpace(string(data))
	}
	err := fmt.Errorf("status %d", resp.StatusCode)
	if message != "" {
		err = fmt.Errorf("status %d: %s", resp.StatusCode, message)
	}
	return &domain.ProviderError{
		Provider:  ProviderName,
		Retryable: retryableStatus(resp.StatusCode),
		Err:       err,
	}
}

// retryableStatus follows the usual HTTP taxonomy: server errors, timeouts,
// and rate limits can be retried, other client errors cannot.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return code >= http.StatusInternalServerError
}

func buildAnalysisPrompt(req AnalysisRequest) string {
	var sb strings.Builder
	sb.WriteString("Describe this product photo for an image editor: lighting, composition, subject, and defects worth correcting.")
	if prompt := strings.TrimSpace(req.Prompt); prompt != "" {
		sb.WriteString(" The user asked: ")
		sb.WriteString(prompt)
	}
	if locale := strings.TrimSpace(req.Locale); locale != "" && locale != "en" {
		sb.WriteString(" Answer in language: ")
		sb.WriteString(locale)
	}
	return sb.String()
}
