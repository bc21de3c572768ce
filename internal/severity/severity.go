// Package severity provides severity level constants shared by the
// specification validation and endpoint testing packages.
//
// The severity levels are ordered from least to most severe:
// Info < Warning < Error < Critical
package severity

// Severity indicates the severity level of an issue found during
// specification validation or live endpoint testing.
type Severity int

const (
	// SeverityError indicates a violation that makes the specification or
	// the tested response invalid.
	SeverityError Severity = iota

	// SeverityWarning indicates a tolerated deviation: an optional endpoint
	// that is not implemented, an empty feed, or a best-practice violation.
	SeverityWarning

	// SeverityInfo indicates informational notices about processing choices.
	SeverityInfo

	// SeverityCritical indicates a failure that prevented any meaningful
	// result from being produced for the affected item.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}
