package seedream

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
		Model:      "seedream-test",
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

func TestEditImageSuccess(t *testing.T) {
	var captured editPayload
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"url": "https://cdn.example/edited.jpg"}},
		})
	})

	result, err := client.EditImage(context.Background(), EditRequest{
		ImageURL:  "https://bucket.example/uploads/a.jpg",
		Prompt:    "remove background clutter",
		RequestID: "job-1",
	})
	if err != nil {
		t.Fatalf("EditImage: %v", err)
	}
	if result.URL != "https://cdn.example/edited.jpg" {
		t.Fatalf("url = %q", result.URL)
	}
	if captured.Model != "seedream-test" {
		t.Fatalf("model = %q", captured.Model)
	}
	if captured.Image != "https://bucket.example/uploads/a.jpg" {
		t.Fatalf("image = %q", captured.Image)
	}
	if captured.ResponseFormat != "url" {
		t.Fatalf("response_format = %q", captured.ResponseFormat)
	}
}

func TestEditImageSuccessWithoutArtifact(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []map[string]string{}})
	})

	result, err := client.EditImage(context.Background(), EditRequest{
		ImageURL: "https://bucket.example/a.jpg",
		Prompt:   "sharpen",
	})
	if err != nil {
		t.Fatalf("EditImage: %v", err)
	}
	if result.URL != "" {
		t.Fatalf("url = %q, want empty", result.URL)
	}
}

func TestEditImageRequiresInputs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("request should not reach server")
	})
	if _, err := client.EditImage(context.Background(), EditRequest{ImageURL: "x"}); err == nil {
		t.Fatalf("expected error for missing prompt")
	}
	if _, err := client.EditImage(context.Background(), EditRequest{Prompt: "x"}); err == nil {
		t.Fatalf("expected error for missing image")
	}
}

func TestEditImageRateLimitIsRetryable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": "RateLimit", "message": "slow down"},
		})
	})

	_, err := client.EditImage(context.Background(), EditRequest{ImageURL: "x", Prompt: "y"})
	var perr *domain.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want ProviderError", err)
	}
	if !perr.Retryable {
		t.Fatalf("429 marked permanent")
	}
	if !strings.Contains(perr.Error(), "slow down") {
		t.Fatalf("detail lost: %v", perr)
	}
}

func TestEditImageBadRequestIsPermanent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := client.EditImage(context.Background(), EditRequest{ImageURL: "x", Prompt: "y"})
	var perr *domain.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want ProviderError", err)
	}
	if perr.Retryable {
		t.Fatalf("400 marked retryable")
	}
}
