// Package valerrors provides structured error types for the validator.
//
// These error types enable programmatic error handling via errors.Is() and
// errors.As(), allowing callers to distinguish between different categories
// of failure and react accordingly.
//
// # Error Categories
//
//   - ParseError: JSON/YAML parsing failures in fetched documents
//   - ReferenceError: $ref resolution failures and circular references
//   - ResourceLimitError: resource exhaustion (depth, size, count limits)
//   - ConfigError: invalid validation request or options
//   - DiscoveryError: schema discovery failures (always recoverable to a
//     baseline default, carried for auditability)
//
// Per-endpoint and per-reference failures are converted to structured
// results and never surface as errors; only ConfigError reaches callers of
// the top-level validation entry point.
package valerrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrParse indicates a parsing failure occurred.
	ErrParse = errors.New("parse error")

	// ErrReference indicates a reference resolution failure.
	ErrReference = errors.New("reference error")

	// ErrCircularReference indicates a circular $ref was detected.
	ErrCircularReference = errors.New("circular reference")

	// ErrResourceLimit indicates a resource limit was exceeded.
	ErrResourceLimit = errors.New("resource limit exceeded")

	// ErrConfig indicates an invalid validation request.
	ErrConfig = errors.New("configuration error")

	// ErrDiscovery indicates schema discovery fell back to the baseline.
	ErrDiscovery = errors.New("discovery error")
)

// ParseError represents a failure to parse a fetched document.
type ParseError struct {
	// Source is the URL or identifier of the document.
	Source string
	// Message describes the parsing failure.
	Message string
	// Cause is the underlying error, if any.
	Cause error
}

// Error returns a human-readable error message.
func (e *ParseError) Error() string {
	msg := "parse error"
	if e.Source != "" {
		msg += " in " + e.Source
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *ParseError) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return ErrParse
}

// Is supports errors.Is(err, ErrParse).
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// ReferenceError represents a $ref resolution failure.
type ReferenceError struct {
	// Ref is the reference string that failed to resolve.
	Ref string
	// RefType classifies the reference: "internal" or "external".
	RefType string
	// IsCircular is true when the failure is a detected reference cycle.
	IsCircular bool
	// Cause is the underlying error, if any.
	Cause error
}

// Error returns a human-readable error message.
func (e *ReferenceError) Error() string {
	if e.IsCircular {
		return fmt.Sprintf("circular %s reference: %s", e.RefType, e.Ref)
	}
	msg := fmt.Sprintf("failed to resolve %s reference: %s", e.RefType, e.Ref)
	if e.Cause != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *ReferenceError) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return ErrReference
}

// Is supports errors.Is(err, ErrReference) and, for cycles,
// errors.Is(err, ErrCircularReference).
func (e *ReferenceError) Is(target error) bool {
	if target == ErrReference {
		return true
	}
	return e.IsCircular && target == ErrCircularReference
}

// ResourceLimitError represents an exceeded resource limit.
type ResourceLimitError struct {
	// ResourceType names the limited resource (e.g., "ref_depth").
	ResourceType string
	// Limit is the configured maximum.
	Limit int
	// Actual is the observed value.
	Actual int64
	// Message provides additional context.
	Message string
}

// Error returns a human-readable error message.
func (e *ResourceLimitError) Error() string {
	msg := fmt.Sprintf("%s limit exceeded: %d > %d", e.ResourceType, e.Actual, e.Limit)
	if e.Message != "" {
		msg += " (" + e.Message + ")"
	}
	return msg
}

// Is supports errors.Is(err, ErrResourceLimit).
func (e *ResourceLimitError) Is(target error) bool {
	return target == ErrResourceLimit
}

// ConfigError represents an invalid validation request. This is the only
// error category that propagates out of the top-level validation call.
type ConfigError struct {
	// Field names the offending request field, if known.
	Field string
	// Message describes the problem.
	Message string
}

// Error returns a human-readable error message.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Message)
	}
	return "invalid configuration: " + e.Message
}

// Is supports errors.Is(err, ErrConfig).
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// DiscoveryError records why schema discovery fell back to the baseline
// default. It is informational; discovery itself never fails hard.
type DiscoveryError struct {
	// BaseURL is the feed URL that was probed.
	BaseURL string
	// Reason is the human-readable fallback reason.
	Reason string
	// Cause is the underlying error, if any.
	Cause error
}

// Error returns a human-readable error message.
func (e *DiscoveryError) Error() string {
	msg := fmt.Sprintf("schema discovery for %s fell back to default: %s", e.BaseURL, e.Reason)
	if e.Cause != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *DiscoveryError) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return ErrDiscovery
}

// Is supports errors.Is(err, ErrDiscovery).
func (e *DiscoveryError) Is(target error) bool {
	return target == ErrDiscovery
}
