package validation

import (
	"time"

	"github.com/tpximpact/oruk-validator-sub000/endpointtest"
	"github.com/tpximpact/oruk-validator-sub000/internal/issues"
)

// SpecificationValidation is the outcome of validating the schema document
// itself, independent of any live endpoint.
type SpecificationValidation struct {
	// Valid is true when the document is structurally sound.
	Valid bool `json:"valid"`

	// SchemaURL is the document that was validated.
	SchemaURL string `json:"schemaUrl"`

	// Issues are the structural problems found.
	Issues []issues.Issue `json:"issues,omitempty"`
}

// Summary aggregates endpoint test outcomes by status.
type Summary struct {
	Total     int `json:"total"`
	Passed    int `json:"passed"`
	Warnings  int `json:"warnings"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	NotTested int `json:"notTested"`
	Errors    int `json:"errors"`
}

// Report is the top-level result of one validation run.
type Report struct {
	// IsValid is true when the specification validated and no required
	// endpoint failed.
	IsValid bool `json:"isValid"`

	// Cancelled is true when the run was cut short by cancellation; the
	// report then holds partial results.
	Cancelled bool `json:"cancelled,omitempty"`

	// SpecificationValidation is present when specification validation ran.
	SpecificationValidation *SpecificationValidation `json:"specificationValidation,omitempty"`

	// EndpointTests holds one entry per tested endpoint.
	EndpointTests []*endpointtest.Result `json:"endpointTests,omitempty"`

	// Summary aggregates the endpoint test statuses.
	Summary Summary `json:"summary"`

	// Duration is the wall-clock duration of the whole run.
	Duration time.Duration `json:"duration"`

	// Metadata carries run context: resolved schema URL, discovery reason,
	// feed version.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// summarize tallies endpoint results into the report summary and returns
// whether any endpoint hard-failed.
func summarize(results []*endpointtest.Result) (Summary, bool) {
	var summary Summary
	anyFailed := false

	summary.Total = len(results)
	for _, r := range results {
		switch r.Status {
		case endpointtest.StatusSuccess:
			summary.Passed++
		case endpointtest.StatusWarning:
			summary.Warnings++
		case endpointtest.StatusFailed:
			summary.Failed++
			anyFailed = true
		case endpointtest.StatusSkipped:
			summary.Skipped++
		case endpointtest.StatusNotTested:
			summary.NotTested++
		case endpointtest.StatusError:
			summary.Errors++
			anyFailed = true
		}
	}
	return summary, anyFailed
}
