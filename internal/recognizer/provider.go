package recognizer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

// maxResponseBytes caps the provider response body.
const maxResponseBytes = 4 << 20

// Provider fingerprints an audio clip and returns the raw response body.
type Provider interface {
	Identify(ctx context.Context, clipPath string) ([]byte, error)
}

// HTTPProvider posts the clip as multipart form field "file" to a recognition endpoint.
type HTTPProvider struct {
	endpoint string
	token    string
	client   *http.Client
}

// Compile-time verification that HTTPProvider implements Provider.
var _ Provider = (*HTTPProvider)(nil)

// NewHTTPProvider creates a provider. A nil client uses http.DefaultClient.
func NewHTTPProvider(endpoint, token string, client *http.Client) *HTTPProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProvider{endpoint: endpoint, token: token, client: client}
}

// Identify uploads the clip and returns the JSON answer.
func (p *HTTPProvider) Identify(ctx context.Context, clipPath string) ([]byte, error) {
	f, err := os.Open(clipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open clip: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filepath.Base(clipPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("failed to read clip: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recognition request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read recognition response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("recognition provider returned status %d", resp.StatusCode)
	}
	return data, nil
}
