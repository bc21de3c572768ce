package endpointtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	orukvalidator "github.com/tpximpact/oruk-validator-sub000"
	"github.com/tpximpact/oruk-validator-sub000/endpoint"
	"github.com/tpximpact/oruk-validator-sub000/internal/httputil"
	"github.com/tpximpact/oruk-validator-sub000/internal/issues"
	"github.com/tpximpact/oruk-validator-sub000/internal/severity"
	"github.com/tpximpact/oruk-validator-sub000/schemavalidator"
	"github.com/tpximpact/oruk-validator-sub000/valerrors"
)

// placeholderPattern matches every {param} placeholder in a path template.
var placeholderPattern = regexp.MustCompile(`\{[^{}]*\}`)

// Orchestrator executes the two-phase endpoint testing protocol against a
// live API. Create one with New; a single Orchestrator runs one validation
// request and is not reused.
type Orchestrator struct {
	baseURL string
	doc     map[string]any
	cfg     *config
	store   *IDStore

	// randMu guards rnd; ID sampling may run from concurrent goroutines.
	randMu sync.Mutex
	rnd    *rand.Rand
}

// New creates an Orchestrator probing the API at baseURL, using the fully
// resolved OpenAPI document for schema lookups.
func New(baseURL string, doc map[string]any, opts ...Option) (*Orchestrator, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if baseURL == "" {
		return nil, &valerrors.ConfigError{Field: "baseUrl", Message: "base URL cannot be empty"}
	}

	src := cfg.randSource
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}

	return &Orchestrator{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		doc:     doc,
		cfg:     cfg,
		store:   NewIDStore(),
		rnd:     rand.New(src),
	}, nil
}

// Run tests every group and returns the per-endpoint results. Groups are
// processed sequentially; within a group, Phase 1 (collection probing) fully
// completes before Phase 2 (parameterized probing) starts, so the ID store
// is always populated for a root path before it is read.
//
// Cancellation yields partial results: exchanges that already completed are
// preserved and endpoints not yet tested are reported with StatusError and a
// cancellation issue, distinguishable from genuine validation failure.
func (o *Orchestrator) Run(ctx context.Context, groups []*endpoint.Group) []*Result {
	var results []*Result
	for _, group := range groups {
		results = append(results, o.testGroup(ctx, group)...)
	}
	return results
}

// testGroup runs both phases for one group. The semaphore bounding
// concurrent requests is created fresh per group run so one group's fan-out
// cannot starve another's.
func (o *Orchestrator) testGroup(ctx context.Context, group *endpoint.Group) []*Result {
	sem := semaphore.NewWeighted(o.cfg.maxConcurrent)
	results := make([]*Result, 0, len(group.CollectionEndpoints)+len(group.ParameterizedEndpoints))

	// Phase 1: collection probing, sequential. Sequencing guarantees the ID
	// store is complete for this root path before Phase 2 reads it.
	for _, desc := range group.CollectionEndpoints {
		if ctx.Err() != nil {
			results = append(results, o.cancelledResult(desc))
			continue
		}
		result := o.testCollectionEndpoint(ctx, sem, desc)
		results = append(results, result)
	}

	// Phase 2: parameterized probing, concurrent across endpoints and
	// sampled IDs, bounded by the group's semaphore.
	paramResults := make([]*Result, len(group.ParameterizedEndpoints))
	var wg sync.WaitGroup
	for i, desc := range group.ParameterizedEndpoints {
		if ctx.Err() != nil {
			paramResults[i] = o.cancelledResult(desc)
			continue
		}
		wg.Add(1)
		go func(i int, desc *endpoint.Descriptor) {
			defer wg.Done()
			paramResults[i] = o.testParameterizedEndpoint(ctx, sem, desc)
		}(i, desc)
	}
	wg.Wait()

	return append(results, paramResults...)
}

// testCollectionEndpoint probes one collection endpoint and, on success,
// harvests identifier values from the first response body into the store.
func (o *Orchestrator) testCollectionEndpoint(ctx context.Context, sem *semaphore.Weighted, desc *endpoint.Descriptor) *Result {
	if skipped := o.skippedResult(desc); skipped != nil {
		return skipped
	}

	result := o.testEndpoint(ctx, sem, desc, desc.Path)

	if len(result.HTTPResults) > 0 {
		first := result.HTTPResults[0]
		if first.IsSuccess {
			ids := endpoint.ExtractIDs(first.Body, desc.Operation, o.doc)
			o.store.Add(desc.RootPath, ids)
			o.cfg.logger.Debug("extracted identifiers from collection response",
				"path", desc.Path, "rootPath", desc.RootPath, "count", len(ids))
		}
	}

	return result
}

// testParameterizedEndpoint probes one parameterized endpoint once per
// sampled ID, concurrently, and aggregates the per-ID outcomes into one
// composite result.
func (o *Orchestrator) testParameterizedEndpoint(ctx context.Context, sem *semaphore.Weighted, desc *endpoint.Descriptor) *Result {
	if skipped := o.skippedResult(desc); skipped != nil {
		return skipped
	}

	ids := o.store.Get(desc.RootPath)
	if len(ids) == 0 {
		result := o.newResult(desc)
		result.Status = StatusNotTested
		result.addIssue(issues.CodeNoExtractedIDs,
			fmt.Sprintf("no extracted IDs available for root path %s; endpoint not tested", desc.RootPath),
			severity.SeverityWarning)
		return result
	}

	sampled := o.sampleIDs(ids)

	subResults := make([]*Result, len(sampled))
	var wg sync.WaitGroup
	for i, id := range sampled {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			concrete := substitutePlaceholders(desc.Path, id)
			subResults[i] = o.testEndpoint(ctx, sem, desc, concrete)
		}(i, id)
	}
	wg.Wait()

	// Composite classification: Error beats Failed beats Warning beats
	// Success; a single hard failure fails the endpoint.
	composite := o.newResult(desc)
	composite.Status = StatusSuccess
	for _, sub := range subResults {
		composite.HTTPResults = append(composite.HTTPResults, sub.HTTPResults...)
		composite.Issues = append(composite.Issues, sub.Issues...)
		composite.Status = combineStatus(composite.Status, sub.Status)
	}
	return composite
}

// testEndpoint runs the per-request execution for one concrete path:
// the pagination sub-protocol when the endpoint declares a page query
// parameter, a single request otherwise.
func (o *Orchestrator) testEndpoint(ctx context.Context, sem *semaphore.Weighted, desc *endpoint.Descriptor, concretePath string) *Result {
	result := o.newResult(desc)
	requestURL := o.baseURL + concretePath

	if desc.SupportsPagination() {
		o.testPaginated(ctx, sem, desc, requestURL, result)
		return result
	}

	hr := o.execute(ctx, sem, desc.Method, requestURL)
	result.HTTPResults = append(result.HTTPResults, hr)
	result.Status = o.classifyExchange(desc, hr, result)
	return result
}

// execute performs one HTTP exchange, bounded by the group semaphore and
// the per-request timeout. Transport failures are captured in the result,
// never returned as errors.
func (o *Orchestrator) execute(ctx context.Context, sem *semaphore.Weighted, method, rawURL string) *HTTPResult {
	hr := &HTTPResult{URL: rawURL, Method: method}

	if err := sem.Acquire(ctx, 1); err != nil {
		hr.Cancelled = true
		hr.Error = "request cancelled before execution"
		return hr
	}
	defer sem.Release(1)

	// The per-request timeout is linked to the caller's context so either
	// source can abort the request.
	reqCtx, cancel := context.WithTimeout(ctx, o.cfg.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, rawURL, nil)
	if err != nil {
		hr.Error = fmt.Sprintf("invalid request URL: %v", err)
		return hr
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", orukvalidator.UserAgent())

	if !o.cfg.skipAuth {
		o.cfg.auth.Apply(req)
	}

	start := time.Now()
	resp, err := o.cfg.client.Do(req)
	if err != nil {
		hr.Timing.Total = time.Since(start)
		hr.Cancelled = ctx.Err() != nil && !errors.Is(err, context.DeadlineExceeded)
		hr.Error = err.Error()
		o.cfg.logger.Warn("request failed", "url", rawURL, "error", err)
		return hr
	}
	defer func() { _ = resp.Body.Close() }()

	bodyStart := time.Now()
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBodySize))
	hr.Timing.BodyRead = time.Since(bodyStart)
	hr.Timing.Total = time.Since(start)
	hr.StatusCode = resp.StatusCode
	hr.Headers = resp.Header.Clone()

	if err != nil {
		hr.Cancelled = ctx.Err() != nil
		hr.Error = fmt.Sprintf("failed to read response body: %v", err)
		o.cfg.logger.Warn("body read failed", "url", rawURL, "status", resp.StatusCode, "error", err)
		return hr
	}

	hr.Body = body
	hr.IsSuccess = httputil.IsSuccessStatus(resp.StatusCode)
	return hr
}

// classifyExchange validates a completed exchange and returns its status
// contribution, applying the optional/required endpoint policy:
//
//   - non-success on a required endpoint fails the test
//   - non-success on an optional endpoint is tolerated with a warning
//   - schema validation failure fails the test unless the endpoint is
//     optional and optional failures are configured as warnings
func (o *Orchestrator) classifyExchange(desc *endpoint.Descriptor, hr *HTTPResult, result *Result) Status {
	if hr.Cancelled {
		result.addIssue(issues.CodeRequestCancelled,
			fmt.Sprintf("request to %s was cancelled", hr.URL),
			severity.SeverityError)
		return StatusError
	}

	if hr.Error != "" || !hr.IsSuccess {
		detail := hr.Error
		if detail == "" {
			detail = fmt.Sprintf("status %d", hr.StatusCode)
		}

		if desc.IsOptional {
			if hr.Validation == nil {
				hr.Validation = &schemavalidator.Result{Valid: true}
			}
			hr.Validation.AddWarning(desc.Path,
				fmt.Sprintf("optional endpoint returned non-success (%s)", detail),
				issues.CodeOptionalEndpointNonOK)
			return StatusWarning
		}

		result.addIssue(issues.CodeRequiredEndpointFailed,
			fmt.Sprintf("required endpoint %s %s failed: %s", desc.Method, hr.URL, detail),
			severity.SeverityError)
		return StatusFailed
	}

	return o.validateBody(desc, hr, result)
}

// validateBody checks a successful response body against the operation's
// declared 200-response schema.
func (o *Orchestrator) validateBody(desc *endpoint.Descriptor, hr *HTTPResult, result *Result) Status {
	var data any
	if err := json.Unmarshal(hr.Body, &data); err != nil {
		hr.Validation = &schemavalidator.Result{Valid: true}
		hr.Validation.AddError("$", fmt.Sprintf("response body is not valid JSON: %v", err),
			issues.CodeResponseParseError)
		o.cfg.logger.Warn("response body parse failed", "url", hr.URL, "error", err)
		return o.failureStatus(desc)
	}

	schema := endpoint.ResponseSchema(desc.Operation, o.doc)
	if schema == nil {
		// Nothing declared to validate against.
		hr.Validation = &schemavalidator.Result{Valid: true}
		return StatusSuccess
	}

	hr.Validation = o.cfg.validator.ValidateResult(data, schema)
	if !hr.Validation.Valid {
		if desc.IsOptional && o.cfg.treatOptionalAsWarnings {
			hr.Validation.AddWarning(desc.Path,
				"optional endpoint response failed schema validation; downgraded to a warning",
				issues.CodeOptionalEndpointValidation)
			return StatusWarning
		}
		result.addIssue(issues.CodeSchemaValidationFailed,
			fmt.Sprintf("response from %s failed schema validation with %d error(s)", hr.URL, len(hr.Validation.Errors)),
			severity.SeverityError)
		return StatusFailed
	}
	if len(hr.Validation.Warnings) > 0 {
		return StatusWarning
	}
	return StatusSuccess
}

// failureStatus applies the optional-endpoint downgrade policy to a schema
// validation failure.
func (o *Orchestrator) failureStatus(desc *endpoint.Descriptor) Status {
	if desc.IsOptional && o.cfg.treatOptionalAsWarnings {
		return StatusWarning
	}
	return StatusFailed
}

// skippedResult returns a Skipped result for optional endpoints when
// optional testing is disabled; nil otherwise. Skipped endpoints make zero
// HTTP calls.
func (o *Orchestrator) skippedResult(desc *endpoint.Descriptor) *Result {
	if desc.IsOptional && !o.cfg.testOptional {
		result := o.newResult(desc)
		result.Status = StatusSkipped
		return result
	}
	return nil
}

// cancelledResult marks an endpoint that was never reached before
// cancellation.
func (o *Orchestrator) cancelledResult(desc *endpoint.Descriptor) *Result {
	result := o.newResult(desc)
	result.Status = StatusError
	result.addIssue(issues.CodeRequestCancelled,
		"validation cancelled before this endpoint was tested",
		severity.SeverityError)
	return result
}

// newResult creates an empty result for a descriptor.
func (o *Orchestrator) newResult(desc *endpoint.Descriptor) *Result {
	return &Result{
		Path:       desc.Path,
		Method:     desc.Method,
		RootPath:   desc.RootPath,
		IsOptional: desc.IsOptional,
	}
}

// sampleIDs returns all IDs when at most MaxSampledIDs are available, or a
// random sample of MaxSampledIDs otherwise. The cap is preserved from the
// original testing protocol; its rationale is not documented.
func (o *Orchestrator) sampleIDs(ids []string) []string {
	if len(ids) <= MaxSampledIDs {
		return ids
	}

	o.randMu.Lock()
	perm := o.rnd.Perm(len(ids))
	o.randMu.Unlock()

	sampled := make([]string, MaxSampledIDs)
	for i := range sampled {
		sampled[i] = ids[perm[i]]
	}
	return sampled
}

// substitutePlaceholders replaces every {param} placeholder with the given
// ID, path-escaped. The substitution is textual and uniform: path templates
// are assumed to carry a single identifying parameter.
func substitutePlaceholders(path, id string) string {
	return placeholderPattern.ReplaceAllString(path, url.PathEscape(id))
}

// combineStatus merges two status contributions, keeping the more severe:
// Error > Failed > Warning > Success.
func combineStatus(a, b Status) Status {
	rank := func(s Status) int {
		switch s {
		case StatusError:
			return 4
		case StatusFailed:
			return 3
		case StatusWarning:
			return 2
		case StatusNotTested, StatusSkipped:
			return 1
		default:
			return 0
		}
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}
