// Package orukvalidator provides tools for validating Open Referral UK
// (HSDS-UK) data feeds: the OpenAPI document they publish and the live API
// behind it.
//
// # Overview
//
// The library consists of the following packages:
//
//   - validation: run a full validation request and produce a report
//   - discovery: determine which OpenAPI document a feed should be checked against
//   - resolver: expand $ref references into a self-contained document
//   - schemavalidator: validate JSON response bodies against OpenAPI schemas
//   - endpoint: group and classify a specification's endpoints for testing
//   - endpointtest: probe a live API's endpoints and score the exchanges
//   - feedstore: a SQLite-backed registry of monitored feeds
//
// # Quick Start
//
// Validate a feed end to end:
//
//	import "github.com/tpximpact/oruk-validator-sub000/validation"
//
//	svc, err := validation.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//	report, err := svc.Validate(ctx, validation.Request{
//		BaseURL: "https://api.example.org",
//		Options: validation.DefaultOptions(),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	if !report.IsValid {
//		fmt.Printf("feed failed validation: %d endpoint(s) failed\n", report.Summary.Failed)
//	}
//
// Resolve references in a document you already hold:
//
//	import "github.com/tpximpact/oruk-validator-sub000/resolver"
//
//	resolved, err := resolver.Resolve(ctx, doc,
//		resolver.WithBaseURL("https://example.org/openapi.json"),
//		resolver.WithHTTPFetcher(resolver.NewHTTPFetcher(nil)),
//	)
//
// # Error Handling
//
// Validation failures are reported as data, not errors: a run that reaches
// its conclusion returns a Report with IsValid=false and the issues that
// caused it. Errors are reserved for misconfiguration (see the valerrors
// package) so callers can distinguish "the feed is broken" from "the request
// was broken".
//
// # Command-Line Interface
//
//	# Validate one feed
//	oruk-validator validate --base-url https://api.example.org
//
//	# Check every active feed in a registry
//	oruk-validator feeds --db feeds.db
package orukvalidator
