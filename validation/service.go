// Package validation orchestrates a full validation run: schema discovery,
// reference resolution, structural specification validation, and live
// endpoint testing, aggregated into a single report.
package validation

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.yaml.in/yaml/v4"

	"github.com/tpximpact/oruk-validator-sub000/discovery"
	"github.com/tpximpact/oruk-validator-sub000/endpoint"
	"github.com/tpximpact/oruk-validator-sub000/endpointtest"
	"github.com/tpximpact/oruk-validator-sub000/internal/issues"
	"github.com/tpximpact/oruk-validator-sub000/internal/jsonquery"
	"github.com/tpximpact/oruk-validator-sub000/internal/severity"
	"github.com/tpximpact/oruk-validator-sub000/resolver"
	"github.com/tpximpact/oruk-validator-sub000/valerrors"
)

// Option is a functional option for configuring a Service.
type Option func(*Service) error

// Service runs validation requests. A Service is safe for concurrent use:
// all per-run state lives in the run itself.
type Service struct {
	client    endpointtest.Doer
	logger    resolver.Logger
	discovery *discovery.Resolver
	fetcher   resolver.HTTPFetcher
}

// New creates a validation Service.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		client: http.DefaultClient,
		logger: resolver.NopLogger{},
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.discovery == nil {
		s.discovery = discovery.New(discovery.WithLogger(s.logger))
	}
	if s.fetcher == nil {
		client, _ := s.client.(*http.Client)
		s.fetcher = resolver.NewHTTPFetcher(client)
	}
	return s, nil
}

// WithClient sets the HTTP client used for endpoint probes and, when it is
// an *http.Client, for schema fetching.
func WithClient(client endpointtest.Doer) Option {
	return func(s *Service) error {
		if client == nil {
			return fmt.Errorf("validation: client cannot be nil")
		}
		s.client = client
		return nil
	}
}

// WithLogger sets the logger used across the run.
func WithLogger(logger resolver.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			return fmt.Errorf("validation: logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithDiscovery sets the schema discovery resolver.
func WithDiscovery(d *discovery.Resolver) Option {
	return func(s *Service) error {
		if d == nil {
			return fmt.Errorf("validation: discovery resolver cannot be nil")
		}
		s.discovery = d
		return nil
	}
}

// WithSchemaFetcher sets the fetcher used to retrieve schema documents and
// external references.
func WithSchemaFetcher(fetcher resolver.HTTPFetcher) Option {
	return func(s *Service) error {
		if fetcher == nil {
			return fmt.Errorf("validation: fetcher cannot be nil")
		}
		s.fetcher = fetcher
		return nil
	}
}

// Validate runs one validation request.
//
// The only error returned is a ConfigError for a request carrying neither a
// schema URL nor a base URL. Every other failure — unreachable schema,
// unparseable document, failing endpoints — is captured in the report with
// IsValid=false so the caller always gets an auditable result.
func (s *Service) Validate(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()

	if req.OpenAPISchemaURL == "" && req.BaseURL == "" {
		return nil, &valerrors.ConfigError{
			Field:   "openApiSchemaUrl",
			Message: "either an OpenAPI schema URL or a base URL is required",
		}
	}

	opts := req.Options.normalized()
	report := &Report{Metadata: map[string]string{}}
	if req.BaseURL != "" {
		report.Metadata["baseUrl"] = req.BaseURL
	}

	// 1. Determine the schema URL, discovering it when absent.
	schemaURL := req.OpenAPISchemaURL
	discoveryFallback := ""
	if schemaURL == "" {
		disc := s.discovery.Resolve(ctx, req.BaseURL)
		schemaURL = disc.SchemaURL
		report.Metadata["discoveryReason"] = disc.Reason
		if disc.Version != "" {
			report.Metadata["feedVersion"] = disc.Version
		}
		if disc.Fallback {
			discoveryFallback = disc.Reason
		}
		s.logger.Info("discovered schema", "schemaUrl", schemaURL, "reason", disc.Reason)
	}
	report.Metadata["schemaUrl"] = schemaURL

	// 2. Fetch and parse the schema document.
	doc, issue := s.fetchSchema(ctx, schemaURL)
	if issue != nil {
		report.SpecificationValidation = &SpecificationValidation{
			Valid:     false,
			SchemaURL: schemaURL,
			Issues:    []issues.Issue{*issue},
		}
		report.Duration = time.Since(start)
		return report, nil
	}

	// 3. Expand every reference so downstream consumers see a
	// self-contained document.
	resolved, err := resolver.Resolve(ctx, doc,
		resolver.WithBaseURL(schemaURL),
		resolver.WithHTTPFetcher(s.fetcher),
		resolver.WithLogger(s.logger),
	)
	if err != nil {
		resolved = doc
	}

	// 4. Structural validation of the specification itself.
	specValid := true
	if opts.ValidateSpecification {
		report.SpecificationValidation = validateSpecification(resolved, schemaURL)
		specValid = report.SpecificationValidation.Valid

		// A feed that forced discovery onto the baseline default is still
		// validated, but the report flags that the schema was assumed.
		if discoveryFallback != "" {
			report.SpecificationValidation.Issues = append(report.SpecificationValidation.Issues,
				issues.Issue{
					Path:     req.BaseURL,
					Code:     issues.CodeDiscoveryFallback,
					Message:  discoveryFallback,
					Severity: severity.SeverityWarning,
				})
		}
	}

	// 5. Live endpoint testing.
	if opts.TestEndpoints && req.BaseURL != "" {
		results, err := s.testEndpoints(ctx, req, opts, resolved)
		if err != nil {
			return nil, err
		}
		report.EndpointTests = results
	}

	stripResults(report, opts)

	summary, anyFailed := summarize(report.EndpointTests)
	report.Summary = summary
	report.Cancelled = ctx.Err() != nil
	report.IsValid = specValid && !anyFailed && !report.Cancelled
	report.Duration = time.Since(start)
	return report, nil
}

// fetchSchema retrieves and decodes the schema document. Failures are
// returned as a single issue for the report, not as errors.
func (s *Service) fetchSchema(ctx context.Context, schemaURL string) (map[string]any, *issues.Issue) {
	data, err := s.fetcher(ctx, schemaURL)
	if err != nil {
		s.logger.Error("failed to fetch schema document", "schemaUrl", schemaURL, "error", err)
		return nil, &issues.Issue{
			Path:     schemaURL,
			Code:     issues.CodeTransportError,
			Message:  fmt.Sprintf("failed to fetch schema document: %v", err),
			Severity: severity.SeverityCritical,
		}
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		perr := &valerrors.ParseError{Source: schemaURL, Cause: err}
		s.logger.Error("failed to parse schema document", "schemaUrl", schemaURL, "error", perr)
		return nil, &issues.Issue{
			Path:     schemaURL,
			Code:     issues.CodeSpecificationParseError,
			Message:  fmt.Sprintf("failed to parse schema document: %v", err),
			Severity: severity.SeverityCritical,
			Value:    perr,
		}
	}
	return doc, nil
}

// testEndpoints groups the resolved document's paths and runs the two-phase
// testing protocol against the live API.
func (s *Service) testEndpoints(ctx context.Context, req Request, opts Options, resolved map[string]any) ([]*endpointtest.Result, error) {
	paths, ok := jsonquery.GetMap(resolved, "paths")
	if !ok {
		s.logger.Warn("specification has no paths object; skipping endpoint tests")
		return nil, nil
	}

	groups := endpoint.GroupPaths(paths)

	orch, err := endpointtest.New(req.BaseURL, resolved,
		endpointtest.WithClient(s.client),
		endpointtest.WithLogger(s.logger),
		endpointtest.WithAuth(req.Auth),
		endpointtest.WithTimeout(time.Duration(opts.TimeoutSeconds)*time.Second),
		endpointtest.WithMaxConcurrentRequests(opts.MaxConcurrentRequests),
		endpointtest.WithSkipAuthentication(opts.SkipAuthentication),
		endpointtest.WithTestOptionalEndpoints(opts.TestOptionalEndpoints),
		endpointtest.WithTreatOptionalEndpointsAsWarnings(opts.TreatOptionalEndpointsAsWarnings),
	)
	if err != nil {
		return nil, err
	}

	return orch.Run(ctx, groups), nil
}

// stripResults applies the report-shaping options.
func stripResults(report *Report, opts Options) {
	for _, result := range report.EndpointTests {
		if !opts.IncludeTestResults {
			result.HTTPResults = nil
			continue
		}
		if !opts.IncludeResponseBody {
			for _, hr := range result.HTTPResults {
				hr.Body = nil
			}
		}
	}
}

// validateSpecification checks the structural soundness of a resolved
// OpenAPI document: a version declaration, an info block, a paths object,
// and no unresolved references outside deliberately preserved cycle stubs.
func validateSpecification(doc map[string]any, schemaURL string) *SpecificationValidation {
	sv := &SpecificationValidation{Valid: true, SchemaURL: schemaURL}

	addError := func(path, message string) {
		sv.Valid = false
		sv.Issues = append(sv.Issues, issues.Issue{
			Path:     path,
			Message:  message,
			Severity: severity.SeverityError,
		})
	}
	addWarning := func(path, code, message string) {
		sv.Issues = append(sv.Issues, issues.Issue{
			Path:     path,
			Code:     code,
			Message:  message,
			Severity: severity.SeverityWarning,
		})
	}

	oasVersion, hasOAS3 := jsonquery.GetString(doc, "openapi")
	swaggerVersion, hasOAS2 := jsonquery.GetString(doc, "swagger")
	switch {
	case hasOAS3 && oasVersion != "":
	case hasOAS2 && swaggerVersion != "":
	default:
		addError("$", "document declares neither an openapi nor a swagger version")
	}

	if _, ok := jsonquery.GetMap(doc, "info"); !ok {
		addError("info", "document has no info object")
	} else if title, ok := jsonquery.GetString(doc, "info", "title"); !ok || title == "" {
		addError("info.title", "info object has no title")
	}

	paths, ok := jsonquery.GetMap(doc, "paths")
	if !ok {
		addError("paths", "document has no paths object")
	} else if len(paths) == 0 {
		addWarning("paths", "", "paths object is empty; nothing to test")
	}

	if stubs := countRefStubs(doc); stubs > 0 {
		addWarning("$", issues.CodeUnresolvedReference,
			fmt.Sprintf("%d reference(s) remain unresolved (broken targets or preserved cycles)", stubs))
	}

	return sv
}

// countRefStubs counts $ref occurrences remaining after resolution.
func countRefStubs(v any) int {
	switch val := v.(type) {
	case map[string]any:
		count := 0
		if _, ok := val["$ref"].(string); ok {
			count++
		}
		for _, item := range val {
			count += countRefStubs(item)
		}
		return count
	case []any:
		count := 0
		for _, item := range val {
			count += countRefStubs(item)
		}
		return count
	default:
		return 0
	}
}
