package endpointtest

import (
	"net/http"
	"time"

	"github.com/tpximpact/oruk-validator-sub000/internal/issues"
	"github.com/tpximpact/oruk-validator-sub000/internal/severity"
	"github.com/tpximpact/oruk-validator-sub000/schemavalidator"
)

// Status is the overall outcome of one logical endpoint test.
type Status int

const (
	// StatusNotTested indicates the endpoint could not be tested (e.g., no
	// extracted IDs were available for its path parameters).
	StatusNotTested Status = iota

	// StatusSkipped indicates the endpoint was deliberately not tested
	// (optional endpoint with optional testing disabled). No requests were
	// issued.
	StatusSkipped

	// StatusSuccess indicates every request succeeded and validated.
	StatusSuccess

	// StatusWarning indicates no hard failures but at least one warning
	// (optional endpoint non-success, empty feed, format violations).
	StatusWarning

	// StatusFailed indicates a required endpoint failed or a response did
	// not validate against its schema.
	StatusFailed

	// StatusError indicates the test was aborted by cancellation or an
	// internal error, distinct from a genuine validation failure.
	StatusError
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusNotTested:
		return "not_tested"
	case StatusSkipped:
		return "skipped"
	case StatusSuccess:
		return "success"
	case StatusWarning:
		return "warning"
	case StatusFailed:
		return "failed"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the status as its string form in reports.
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Timing is the timing breakdown of one HTTP exchange.
type Timing struct {
	// Total is the wall-clock duration from request start to body fully read.
	Total time.Duration `json:"total"`

	// BodyRead is the portion spent reading the response body.
	BodyRead time.Duration `json:"bodyRead"`
}

// HTTPResult captures one concrete HTTP exchange.
type HTTPResult struct {
	// URL is the fully substituted request URL.
	URL string `json:"url"`

	// Method is the HTTP method used.
	Method string `json:"method"`

	// StatusCode is the response status, 0 when the request never completed.
	StatusCode int `json:"statusCode"`

	// Headers are the response headers.
	Headers http.Header `json:"headers,omitempty"`

	// Body is the raw response body. Stripped from reports when
	// IncludeResponseBody is disabled.
	Body []byte `json:"body,omitempty"`

	// Timing is the timing breakdown of the exchange.
	Timing Timing `json:"timing"`

	// IsSuccess is true for 2xx responses.
	IsSuccess bool `json:"isSuccess"`

	// Error holds the transport error message, if the request failed before
	// a response was received.
	Error string `json:"error,omitempty"`

	// Cancelled is true when the request was abandoned due to cancellation
	// rather than failing on its own.
	Cancelled bool `json:"cancelled,omitempty"`

	// Validation is the schema validation outcome for the response body,
	// possibly carrying injected warnings (empty feed, optional endpoint).
	Validation *schemavalidator.Result `json:"validation,omitempty"`
}

// Result aggregates the HTTP exchanges for one logical endpoint test: a
// single non-paginated call, several paginated page calls, or several
// ID-substituted calls.
type Result struct {
	// Path is the OpenAPI path template tested.
	Path string `json:"path"`

	// Method is the HTTP method tested.
	Method string `json:"method"`

	// RootPath is the endpoint's dependency-group key.
	RootPath string `json:"rootPath"`

	// IsOptional is true when the endpoint is tagged Optional.
	IsOptional bool `json:"isOptional"`

	// Status is the overall classification of the test.
	Status Status `json:"status"`

	// HTTPResults are the individual exchanges, in execution order.
	HTTPResults []*HTTPResult `json:"httpResults,omitempty"`

	// Issues are endpoint-level issues not tied to a single exchange
	// (e.g., no extracted IDs available).
	Issues []issues.Issue `json:"issues,omitempty"`
}

// addIssue appends an endpoint-level issue.
func (r *Result) addIssue(code, message string, sev severity.Severity) {
	r.Issues = append(r.Issues, issues.Issue{
		Path:     r.Path,
		Code:     code,
		Message:  message,
		Severity: sev,
	})
}
