package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"

	orukvalidator "github.com/tpximpact/oruk-validator-sub000"
)

// MaxDocumentSize is the maximum size (in bytes) allowed for fetched
// external reference documents. This prevents resource exhaustion from
// arbitrarily large responses. 10MB is sufficient for any OpenAPI document
// seen in the wild.
const MaxDocumentSize = 10 * 1024 * 1024

// HTTPFetcher is a function type for fetching external reference documents.
// It returns the raw response body. Implementations must honor the context
// for cancellation and timeouts.
type HTTPFetcher func(ctx context.Context, url string) ([]byte, error)

// NewHTTPFetcher returns an HTTPFetcher backed by the given client.
// If client is nil, http.DefaultClient is used. Responses larger than
// MaxDocumentSize or with non-2xx status codes are rejected.
func NewHTTPFetcher(client *http.Client) HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context, url string) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("invalid reference URL %q: %w", url, err)
		}
		req.Header.Set("Accept", "application/json, application/yaml, text/yaml")
		req.Header.Set("User-Agent", orukvalidator.UserAgent())

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %q: %w", url, err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("failed to fetch %q: status %d", url, resp.StatusCode)
		}

		// Read one byte past the limit so oversized bodies are detectable.
		data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDocumentSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read %q: %w", url, err)
		}
		if len(data) > MaxDocumentSize {
			return nil, fmt.Errorf("document at %q exceeds maximum size limit (%d bytes)", url, MaxDocumentSize)
		}
		return data, nil
	}
}
