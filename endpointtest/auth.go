package endpointtest

import "net/http"

// DefaultAPIKeyHeader is the header name used for API key authentication
// when none is configured.
const DefaultAPIKeyHeader = "X-API-Key"

// Auth holds the authentication configuration applied to outgoing probes.
// All configured mechanisms are applied together; a feed may require an API
// key and a bearer token simultaneously.
type Auth struct {
	// APIKey is sent in the APIKeyHeader header when non-empty.
	APIKey string `json:"apiKey,omitempty"`

	// APIKeyHeader overrides the header name for APIKey.
	// Defaults to DefaultAPIKeyHeader.
	APIKeyHeader string `json:"apiKeyHeader,omitempty"`

	// BearerToken is sent as "Authorization: Bearer <token>" when non-empty.
	BearerToken string `json:"bearerToken,omitempty"`

	// BasicUsername and BasicPassword configure HTTP basic auth; applied
	// when the username is non-empty.
	BasicUsername string `json:"basicUsername,omitempty"`
	BasicPassword string `json:"basicPassword,omitempty"`

	// CustomHeaders are arbitrary additional headers.
	CustomHeaders map[string]string `json:"customHeaders,omitempty"`
}

// Apply sets the configured authentication on the request. Bearer token
// wins over basic auth for the Authorization header when both are present,
// and custom headers are applied last so they can override either.
func (a *Auth) Apply(req *http.Request) {
	if a == nil {
		return
	}

	if a.APIKey != "" {
		header := a.APIKeyHeader
		if header == "" {
			header = DefaultAPIKeyHeader
		}
		req.Header.Set(header, a.APIKey)
	}

	if a.BasicUsername != "" {
		req.SetBasicAuth(a.BasicUsername, a.BasicPassword)
	}

	if a.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+a.BearerToken)
	}

	for name, value := range a.CustomHeaders {
		req.Header.Set(name, value)
	}
}
