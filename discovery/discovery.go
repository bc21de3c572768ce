// Package discovery determines which OpenAPI document a feed should be
// validated against.
//
// A feed's base URL is probed for a version declaration or an explicit
// OpenAPI URL; when neither can be obtained the baseline default schema is
// used. Discovery never fails hard — every fallback carries a
// human-readable reason for auditability.
package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	orukvalidator "github.com/tpximpact/oruk-validator-sub000"
	"github.com/tpximpact/oruk-validator-sub000/resolver"
	"github.com/tpximpact/oruk-validator-sub000/valerrors"
)

// Defaults for schema discovery.
const (
	// DefaultBaselineVersion is assumed when a feed declares no version.
	DefaultBaselineVersion = "1.0"

	// DefaultSchemaURLTemplate builds a versioned schema URL; the single
	// %s verb receives the version token.
	DefaultSchemaURLTemplate = "https://openreferraluk.org/specifications/%s/openapi.json"

	// maxProbeBodySize bounds the base-URL response read.
	maxProbeBodySize = 1 * 1024 * 1024
)

// versionPrefixes are stripped from a declared version before building the
// versioned schema URL (e.g. "HSDS-UK-1.0" and "V1.0" both yield "1.0").
var versionPrefixes = []string{"HSDS-UK-", "V", "v"}

// openAPIURLFields are the body fields accepted as an explicit schema URL,
// in priority order.
var openAPIURLFields = []string{"openapi_url", "openapiUrl", "open_api_url"}

// Doer is the HTTP client capability consumed by discovery.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Result describes the discovered schema location.
type Result struct {
	// SchemaURL is the OpenAPI document URL to validate against.
	SchemaURL string `json:"schemaUrl"`

	// Version is the version token the URL was derived from, empty when an
	// explicit URL or the baseline default was used without one.
	Version string `json:"version,omitempty"`

	// Reason explains how the URL was chosen, including every fallback.
	Reason string `json:"reason"`

	// Fallback is true when the baseline default was used because the feed
	// could not be probed or declared nothing usable.
	Fallback bool `json:"fallback,omitempty"`
}

// Option is a functional option for configuring a Resolver.
type Option func(*Resolver)

// Resolver discovers the applicable OpenAPI document for a feed.
type Resolver struct {
	client          Doer
	logger          resolver.Logger
	urlTemplate     string
	baselineVersion string
}

// New creates a discovery Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		client:          http.DefaultClient,
		logger:          resolver.NopLogger{},
		urlTemplate:     DefaultSchemaURLTemplate,
		baselineVersion: DefaultBaselineVersion,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithClient sets the HTTP client used for the base-URL probe.
func WithClient(client Doer) Option {
	return func(r *Resolver) {
		if client != nil {
			r.client = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger resolver.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithSchemaURLTemplate overrides the versioned schema URL template.
// The template must contain exactly one %s verb for the version token.
func WithSchemaURLTemplate(template string) Option {
	return func(r *Resolver) {
		if template != "" {
			r.urlTemplate = template
		}
	}
}

// WithBaselineVersion overrides the version assumed when discovery falls
// back to the default.
func WithBaselineVersion(version string) Option {
	return func(r *Resolver) {
		if version != "" {
			r.baselineVersion = version
		}
	}
}

// Resolve probes baseURL and determines the schema to validate against.
//
// A declared version field takes priority over an explicit openapi_url
// field when both are present. HTTP failures, unparseable bodies and
// missing fields all fall back to the baseline default, each with its own
// reason string.
func (r *Resolver) Resolve(ctx context.Context, baseURL string) Result {
	body, err := r.probe(ctx, baseURL)
	if err != nil {
		return r.fallback(&valerrors.DiscoveryError{
			BaseURL: baseURL,
			Reason:  "failed to fetch base URL",
			Cause:   err,
		})
	}

	if !gjson.ValidBytes(body) {
		return r.fallback(&valerrors.DiscoveryError{
			BaseURL: baseURL,
			Reason:  "base URL response is not valid JSON",
		})
	}
	parsed := gjson.ParseBytes(body)

	// Version declaration wins over an explicit URL.
	if version := parsed.Get("version"); version.Type == gjson.String && version.Str != "" {
		token := stripVersionPrefixes(version.Str)
		return Result{
			SchemaURL: fmt.Sprintf(r.urlTemplate, token),
			Version:   token,
			Reason:    fmt.Sprintf("version %q declared by feed", version.Str),
		}
	}

	for _, field := range openAPIURLFields {
		if u := parsed.Get(field); u.Type == gjson.String && u.Str != "" {
			return Result{
				SchemaURL: u.Str,
				Reason:    fmt.Sprintf("explicit %s declared by feed", field),
			}
		}
	}

	return r.fallback(&valerrors.DiscoveryError{
		BaseURL: baseURL,
		Reason:  "feed declares neither a version nor an OpenAPI URL",
	})
}

// probe fetches the base URL body.
func (r *Resolver) probe(ctx context.Context, baseURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", orukvalidator.UserAgent())

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxProbeBodySize))
}

// fallback logs the discovery error and returns the baseline default, its
// reason derived from the error.
func (r *Resolver) fallback(derr *valerrors.DiscoveryError) Result {
	r.logger.Warn("schema discovery fell back to baseline", "baseUrl", derr.BaseURL, "error", derr)

	reason := derr.Reason
	if derr.Cause != nil {
		reason += ": " + derr.Cause.Error()
	}
	return Result{
		SchemaURL: fmt.Sprintf(r.urlTemplate, r.baselineVersion),
		Version:   r.baselineVersion,
		Reason:    reason + "; using baseline version " + r.baselineVersion,
		Fallback:  true,
	}
}

// stripVersionPrefixes removes known prefixes from a declared version,
// repeatedly, so "HSDS-UK-V1.0" also reduces to "1.0".
func stripVersionPrefixes(version string) string {
	token := strings.TrimSpace(version)
	for stripped := true; stripped; {
		stripped = false
		for _, prefix := range versionPrefixes {
			if strings.HasPrefix(token, prefix) && len(token) > len(prefix) {
				token = token[len(prefix):]
				stripped = true
			}
		}
	}
	return token
}
