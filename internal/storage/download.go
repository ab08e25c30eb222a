package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxArtifactBytes caps downloaded artifacts at 32 MiB; edited photos
// beyond that indicate a misbehaving provider.
const maxArtifactBytes = 32 << 20

// Downloader fetches an artifact referenced by URL, returning its bytes and
// content type.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, string, error)
}

// HTTPDownloader implements Downloader over plain HTTP GET.
type HTTPDownloader struct {
	client *http.Client
}

// NewHTTPDownloader builds a downloader; client may be nil.
func NewHTTPDownloader(client *http.Client) *HTTPDownloader {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPDownloader{client: client}
}

// Download fetches url and returns the body and content type.
func (d *HTTPDownloader) Download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("storage: build download request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("storage: download artifact: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, "", fmt.Errorf("storage: download artifact: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArtifactBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("storage: read artifact: %w", err)
	}
	if len(data) > maxArtifactBytes {
		return nil, "", fmt.Errorf("storage: artifact exceeds %d bytes", maxArtifactBytes)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

var _ Downloader = (*HTTPDownloader)(nil)
