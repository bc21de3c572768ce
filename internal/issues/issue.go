// Package issues provides the unified issue type reported by specification
// validation and live endpoint testing.
package issues

import (
	"fmt"

	"github.com/tpximpact/oruk-validator-sub000/internal/severity"
)

// Well-known issue codes attached to endpoint test results. Codes are stable
// identifiers suitable for programmatic filtering; messages are not.
const (
	CodeRequiredEndpointFailed     = "REQUIRED_ENDPOINT_FAILED"
	CodeOptionalEndpointNonOK      = "OPTIONAL_ENDPOINT_NON_SUCCESS"
	CodeEmptyFeedWarning           = "EMPTY_FEED_WARNING"
	CodeNoExtractedIDs             = "NO_EXTRACTED_IDS"
	CodeSchemaValidationFailed     = "SCHEMA_VALIDATION_FAILED"
	CodeResponseParseError         = "RESPONSE_PARSE_ERROR"
	CodeTransportError             = "TRANSPORT_ERROR"
	CodeRequestCancelled           = "REQUEST_CANCELLED"
	CodeSpecificationParseError    = "SPECIFICATION_PARSE_ERROR"
	CodeUnresolvedReference        = "UNRESOLVED_REFERENCE"
	CodeDiscoveryFallback          = "DISCOVERY_FALLBACK"
	CodeOptionalEndpointValidation = "OPTIONAL_ENDPOINT_VALIDATION_WARNING"
)

// Issue represents a single problem found during validation or testing.
type Issue struct {
	// Path is the JSON path or endpoint path the issue relates to
	// (e.g., "paths./services.get" or "$.contact.email").
	Path string
	// Message is a human-readable description of the issue.
	Message string
	// Code is a stable machine-readable identifier (optional).
	Code string
	// Severity indicates the severity level of the issue.
	Severity severity.Severity
	// Value is the problematic value (optional).
	Value any
}

// String returns a formatted string representation of the issue.
// Uses different symbols based on severity level:
// - "✗" for Error or Critical severity
// - "⚠" for Warning severity
// - "ℹ" for Info severity
func (i Issue) String() string {
	var symbol string
	switch i.Severity {
	case severity.SeverityError, severity.SeverityCritical:
		symbol = "✗"
	case severity.SeverityWarning:
		symbol = "⚠"
	case severity.SeverityInfo:
		symbol = "ℹ"
	default:
		symbol = "?"
	}

	if i.Code != "" {
		return fmt.Sprintf("%s %s [%s]: %s", symbol, i.Path, i.Code, i.Message)
	}
	return fmt.Sprintf("%s %s: %s", symbol, i.Path, i.Message)
}

// IsError reports whether the issue is of Error or Critical severity.
func (i Issue) IsError() bool {
	return i.Severity == severity.SeverityError || i.Severity == severity.SeverityCritical
}
