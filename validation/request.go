package validation

import "github.com/tpximpact/oruk-validator-sub000/endpointtest"

// Defaults applied to request options left at their zero value.
const (
	DefaultTimeoutSeconds        = 30
	DefaultMaxConcurrentRequests = endpointtest.DefaultMaxConcurrentRequests
)

// Request describes one validation run. At least one of OpenAPISchemaURL
// and BaseURL must be set: without a schema URL the schema is discovered
// from the base URL, and without a base URL only the specification itself
// is validated (no live endpoint testing is possible).
type Request struct {
	// OpenAPISchemaURL is the explicit schema to validate against.
	OpenAPISchemaURL string `json:"openApiSchemaUrl,omitempty"`

	// BaseURL is the live API root used for discovery and endpoint probes.
	BaseURL string `json:"baseUrl,omitempty"`

	// Auth is applied to every probe unless SkipAuthentication is set.
	Auth *endpointtest.Auth `json:"dataSourceAuth,omitempty"`

	// Options tune the run.
	Options Options `json:"options"`
}

// Options are the per-request knobs.
type Options struct {
	// TestEndpoints enables live HTTP probing of the API's endpoints.
	TestEndpoints bool `json:"testEndpoints"`

	// ValidateSpecification enables structural validation of the schema
	// document itself.
	ValidateSpecification bool `json:"validateSpecification"`

	// TimeoutSeconds is the per-request timeout for probes.
	// Zero means DefaultTimeoutSeconds.
	TimeoutSeconds int `json:"timeoutSeconds,omitempty"`

	// MaxConcurrentRequests bounds concurrent probes per endpoint group.
	// Zero means DefaultMaxConcurrentRequests.
	MaxConcurrentRequests int `json:"maxConcurrentRequests,omitempty"`

	// SkipAuthentication suppresses all configured auth on probes.
	SkipAuthentication bool `json:"skipAuthentication,omitempty"`

	// TestOptionalEndpoints controls whether endpoints tagged Optional are
	// probed; when false they are reported Skipped with zero requests.
	TestOptionalEndpoints bool `json:"testOptionalEndpoints"`

	// TreatOptionalEndpointsAsWarnings downgrades schema validation
	// failures on optional endpoints to warnings.
	TreatOptionalEndpointsAsWarnings bool `json:"treatOptionalEndpointsAsWarnings,omitempty"`

	// IncludeResponseBody keeps raw response bodies in the report.
	IncludeResponseBody bool `json:"includeResponseBody,omitempty"`

	// IncludeTestResults keeps the per-exchange result lists in the
	// report; statuses and summaries are kept either way.
	IncludeTestResults bool `json:"includeTestResults"`
}

// DefaultOptions returns the options used when a caller provides none.
func DefaultOptions() Options {
	return Options{
		TestEndpoints:         true,
		ValidateSpecification: true,
		TimeoutSeconds:        DefaultTimeoutSeconds,
		MaxConcurrentRequests: DefaultMaxConcurrentRequests,
		TestOptionalEndpoints: true,
		IncludeTestResults:    true,
	}
}

// normalized returns a copy with zero values replaced by defaults.
func (o Options) normalized() Options {
	if o.TimeoutSeconds <= 0 {
		o.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if o.MaxConcurrentRequests <= 0 {
		o.MaxConcurrentRequests = DefaultMaxConcurrentRequests
	}
	return o
}
