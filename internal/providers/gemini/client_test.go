package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"photoflow/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(Options{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		Model:      "gemini-test",
		HTTPClient: server.Client(),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient(Options{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
}

func TestAnalyzeImageSuccess(t *testing.T) {
	var captured geminiGenerateContentRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "gemini-test:generateContent") {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key query param")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(geminiGenerateContentResponse{
			Candidates: []geminiCandidate{{
				Content: geminiContent{Parts: []geminiPart{{Text: "  warm backlit product shot  "}}},
			}},
		})
	})

	text, err := client.AnalyzeImage(context.Background(), AnalysisRequest{
		ImageURL: "https://bucket.example/uploads/a.jpg",
		Prompt:   "make it pop",
	})
	if err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}
	if text != "warm backlit product shot" {
		t.Fatalf("text = %q", text)
	}

	if len(captured.Contents) != 1 || len(captured.Contents[0].Parts) != 2 {
		t.Fatalf("unexpected request shape: %+v", captured)
	}
	if captured.Contents[0].Parts[0].FileData.FileURI != "https://bucket.example/uploads/a.jpg" {
		t.Fatalf("file uri = %q", captured.Contents[0].Parts[0].FileData.FileURI)
	}
	if !strings.Contains(captured.Contents[0].Parts[1].Text, "make it pop") {
		t.Fatalf("prompt not forwarded: %q", captured.Contents[0].Parts[1].Text)
	}
}

func TestAnalyzeImageClientErrorIsPermanent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 400, "message": "bad image uri"},
		})
	})

	_, err := client.AnalyzeImage(context.Background(), AnalysisRequest{ImageURL: "x"})
	var perr *domain.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want ProviderError", err)
	}
	if perr.Retryable {
		t.Fatalf("400 marked retryable")
	}
	if !strings.Contains(perr.Error(), "bad image uri") {
		t.Fatalf("detail lost: %v", perr)
	}
}

func TestAnalyzeImageServerErrorIsRetryable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.AnalyzeImage(context.Background(), AnalysisRequest{ImageURL: "x"})
	var perr *domain.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want ProviderError", err)
	}
	if !perr.Retryable {
		t.Fatalf("503 marked permanent")
	}
}

func TestAnalyzeImageEmptyResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(geminiGenerateContentResponse{})
	})

	_, err := client.AnalyzeImage(context.Background(), AnalysisRequest{ImageURL: "x"})
	var perr *domain.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want ProviderError", err)
	}
}

func TestPing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	})
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
