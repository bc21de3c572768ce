package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	orukvalidator "github.com/tpximpact/oruk-validator-sub000"
	"github.com/tpximpact/oruk-validator-sub000/endpointtest"
	"github.com/tpximpact/oruk-validator-sub000/feedstore"
	"github.com/tpximpact/oruk-validator-sub000/resolver"
	"github.com/tpximpact/oruk-validator-sub000/validation"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version", "-v", "--version":
		fmt.Printf("oruk-validator v%s\n", orukvalidator.Version())
	case "help", "-h", "--help":
		printUsage()
	case "validate":
		if err := handleValidate(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "feeds":
		if err := handleFeeds(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "register":
		if err := handleRegister(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// validateFlags contains flags for the validate command
type validateFlags struct {
	schemaURL     string
	baseURL       string
	apiKey        string
	apiKeyHeader  string
	bearerToken   string
	timeout       int
	maxConcurrent int
	skipAuth      bool
	noEndpoints   bool
	noSpec        bool
	skipOptional  bool
	includeBodies bool
	jsonOutput    bool
	verbose       bool
}

func setupValidateFlags() (*flag.FlagSet, *validateFlags) {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	flags := &validateFlags{}

	fs.StringVar(&flags.schemaURL, "schema-url", "", "explicit OpenAPI document URL (discovered from the base URL when omitted)")
	fs.StringVar(&flags.baseURL, "base-url", "", "live API root to test against")
	fs.StringVar(&flags.apiKey, "api-key", "", "API key sent with every probe")
	fs.StringVar(&flags.apiKeyHeader, "api-key-header", endpointtest.DefaultAPIKeyHeader, "header name for the API key")
	fs.StringVar(&flags.bearerToken, "bearer-token", "", "bearer token sent with every probe")
	fs.IntVar(&flags.timeout, "timeout", validation.DefaultTimeoutSeconds, "per-request timeout in seconds")
	fs.IntVar(&flags.maxConcurrent, "max-concurrent", validation.DefaultMaxConcurrentRequests, "maximum concurrent requests per endpoint group")
	fs.BoolVar(&flags.skipAuth, "skip-auth", false, "suppress all authentication on probes")
	fs.BoolVar(&flags.noEndpoints, "no-endpoints", false, "skip live endpoint testing")
	fs.BoolVar(&flags.noSpec, "no-spec-validation", false, "skip structural validation of the specification")
	fs.BoolVar(&flags.skipOptional, "skip-optional", false, "do not probe endpoints tagged optional")
	fs.BoolVar(&flags.includeBodies, "include-bodies", false, "keep raw response bodies in the report")
	fs.BoolVar(&flags.jsonOutput, "json", false, "print the full report as JSON")
	fs.BoolVar(&flags.verbose, "verbose", false, "enable debug logging to stderr")

	fs.Usage = func() {
		output := fs.Output()
		_, _ = fmt.Fprintf(output, "Usage: oruk-validator validate [flags]\n\n")
		_, _ = fmt.Fprintf(output, "Validate an Open Referral UK feed: its OpenAPI document and its live API.\n")
		_, _ = fmt.Fprintf(output, "At least one of --schema-url and --base-url is required.\n\n")
		_, _ = fmt.Fprintf(output, "Flags:\n")
		fs.PrintDefaults()
		_, _ = fmt.Fprintf(output, "\nExamples:\n")
		_, _ = fmt.Fprintf(output, "  oruk-validator validate --base-url https://api.example.org\n")
		_, _ = fmt.Fprintf(output, "  oruk-validator validate --schema-url https://example.org/openapi.json --base-url https://api.example.org\n")
		_, _ = fmt.Fprintf(output, "  oruk-validator validate --base-url https://api.example.org --api-key secret --json\n")
	}

	return fs, flags
}

func handleValidate(args []string) error {
	fs, flags := setupValidateFlags()

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}

	if flags.schemaURL == "" && flags.baseURL == "" {
		fs.Usage()
		return fmt.Errorf("validate command requires --schema-url or --base-url")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	svc, err := validation.New(validation.WithLogger(buildLogger(flags.verbose)))
	if err != nil {
		return err
	}

	report, err := svc.Validate(ctx, buildRequest(flags))
	if err != nil {
		return fmt.Errorf("validating feed: %w", err)
	}

	if flags.jsonOutput {
		return printJSON(report)
	}
	printReport(report)
	if !report.IsValid {
		os.Exit(1)
	}
	return nil
}

// buildRequest maps the CLI flags onto a validation request.
func buildRequest(flags *validateFlags) validation.Request {
	req := validation.Request{
		OpenAPISchemaURL: flags.schemaURL,
		BaseURL:          flags.baseURL,
		Options:          validation.DefaultOptions(),
	}
	req.Options.TestEndpoints = !flags.noEndpoints
	req.Options.ValidateSpecification = !flags.noSpec
	req.Options.TestOptionalEndpoints = !flags.skipOptional
	req.Options.TimeoutSeconds = flags.timeout
	req.Options.MaxConcurrentRequests = flags.maxConcurrent
	req.Options.SkipAuthentication = flags.skipAuth
	req.Options.IncludeResponseBody = flags.includeBodies

	if flags.apiKey != "" || flags.bearerToken != "" {
		req.Auth = &endpointtest.Auth{
			APIKey:       flags.apiKey,
			APIKeyHeader: flags.apiKeyHeader,
			BearerToken:  flags.bearerToken,
		}
	}
	return req
}

// printReport renders a report in the human-readable format.
func printReport(report *validation.Report) {
	fmt.Printf("Open Referral UK Feed Validator\n")
	fmt.Printf("===============================\n\n")
	fmt.Printf("oruk-validator version: %s\n", orukvalidator.Version())
	if url, ok := report.Metadata["schemaUrl"]; ok {
		fmt.Printf("Schema: %s\n", url)
	}
	if reason, ok := report.Metadata["discoveryReason"]; ok {
		fmt.Printf("Discovery: %s\n", reason)
	}
	fmt.Printf("Duration: %v\n\n", report.Duration.Round(time.Millisecond))

	if sv := report.SpecificationValidation; sv != nil {
		if sv.Valid {
			fmt.Printf("Specification: valid\n")
		} else {
			fmt.Printf("Specification: INVALID\n")
		}
		for _, issue := range sv.Issues {
			fmt.Printf("  %s\n", issue.String())
		}
		fmt.Println()
	}

	if len(report.EndpointTests) > 0 {
		fmt.Printf("Endpoint Tests:\n")
		for _, result := range report.EndpointTests {
			fmt.Printf("  [%s] %s %s\n", result.Status, result.Method, result.Path)
			for _, issue := range result.Issues {
				fmt.Printf("    %s\n", issue.String())
			}
		}
		fmt.Println()
		summary := report.Summary
		fmt.Printf("Summary: %d tested, %d passed, %d warnings, %d failed, %d errors, %d skipped, %d not tested\n\n",
			summary.Total, summary.Passed, summary.Warnings, summary.Failed,
			summary.Errors, summary.Skipped, summary.NotTested)
	}

	if report.Cancelled {
		fmt.Printf("Run was cancelled; results are partial.\n")
	}
	if report.IsValid {
		fmt.Printf("Feed is valid.\n")
	} else {
		fmt.Printf("Feed FAILED validation.\n")
	}
}

// feedsFlags contains flags for the feeds command
type feedsFlags struct {
	dbPath        string
	timeout       int
	maxConcurrent int
	jsonOutput    bool
	verbose       bool
}

func setupFeedsFlags() (*flag.FlagSet, *feedsFlags) {
	fs := flag.NewFlagSet("feeds", flag.ContinueOnError)
	flags := &feedsFlags{}

	fs.StringVar(&flags.dbPath, "db", "feeds.db", "path to the feed registry database")
	fs.IntVar(&flags.timeout, "timeout", validation.DefaultTimeoutSeconds, "per-request timeout in seconds")
	fs.IntVar(&flags.maxConcurrent, "max-concurrent", validation.DefaultMaxConcurrentRequests, "maximum concurrent requests per endpoint group")
	fs.BoolVar(&flags.jsonOutput, "json", false, "print per-feed reports as JSON")
	fs.BoolVar(&flags.verbose, "verbose", false, "enable debug logging to stderr")

	fs.Usage = func() {
		output := fs.Output()
		_, _ = fmt.Fprintf(output, "Usage: oruk-validator feeds [flags]\n\n")
		_, _ = fmt.Fprintf(output, "Validate every active feed in the registry and record the outcomes.\n\n")
		_, _ = fmt.Fprintf(output, "Flags:\n")
		fs.PrintDefaults()
		_, _ = fmt.Fprintf(output, "\nExamples:\n")
		_, _ = fmt.Fprintf(output, "  oruk-validator feeds --db feeds.db\n")
		_, _ = fmt.Fprintf(output, "  oruk-validator feeds --db feeds.db --timeout 60 --json\n")
	}

	return fs, flags
}

func handleFeeds(args []string) error {
	fs, flags := setupFeedsFlags()

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := feedstore.Open(flags.dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	feeds, err := store.ListActive(ctx)
	if err != nil {
		return err
	}
	if len(feeds) == 0 {
		fmt.Printf("No active feeds in %s\n", flags.dbPath)
		return nil
	}

	svc, err := validation.New(validation.WithLogger(buildLogger(flags.verbose)))
	if err != nil {
		return err
	}

	anyFailed := false
	for _, feed := range feeds {
		if ctx.Err() != nil {
			break
		}

		opts := validation.DefaultOptions()
		opts.TimeoutSeconds = flags.timeout
		opts.MaxConcurrentRequests = flags.maxConcurrent

		start := time.Now()
		report, err := svc.Validate(ctx, validation.Request{
			OpenAPISchemaURL: feed.SchemaURL,
			BaseURL:          feed.BaseURL,
			Options:          opts,
		})
		if err != nil {
			// Misconfigured registry row; record it and carry on.
			anyFailed = true
			fmt.Fprintf(os.Stderr, "%s: %v\n", feed.ID, err)
			if updateErr := store.UpdateStatus(ctx, feed.ID, feedstore.StatusUpdate{
				Error:      err.Error(),
				ErrorCount: feed.ErrorCount + 1,
			}); updateErr != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", feed.ID, updateErr)
			}
			continue
		}

		update := feedstore.StatusUpdate{
			IsUp:           report.Summary.Errors == 0,
			IsValid:        report.IsValid,
			ResponseTimeMs: time.Since(start).Milliseconds(),
		}
		if !report.IsValid {
			anyFailed = true
			update.Error = fmt.Sprintf("%d failed, %d errors", report.Summary.Failed, report.Summary.Errors)
			update.ErrorCount = feed.ErrorCount + 1
		}
		if err := store.UpdateStatus(ctx, feed.ID, update); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", feed.ID, err)
		}

		if flags.jsonOutput {
			if err := printJSON(map[string]any{"feedId": feed.ID, "report": report}); err != nil {
				return err
			}
			continue
		}
		status := "valid"
		if !report.IsValid {
			status = "INVALID"
		}
		fmt.Printf("%-30s %s (%d tested, %d failed, %v)\n",
			feed.ID, status, report.Summary.Total, report.Summary.Failed+report.Summary.Errors,
			report.Duration.Round(time.Millisecond))
	}

	if anyFailed {
		os.Exit(1)
	}
	return nil
}

// registerFlags contains flags for the register command
type registerFlags struct {
	dbPath    string
	id        string
	name      string
	baseURL   string
	schemaURL string
	inactive  bool
}

func setupRegisterFlags() (*flag.FlagSet, *registerFlags) {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	flags := &registerFlags{}

	fs.StringVar(&flags.dbPath, "db", "feeds.db", "path to the feed registry database")
	fs.StringVar(&flags.id, "id", "", "registry key for the feed")
	fs.StringVar(&flags.name, "name", "", "human-readable feed name")
	fs.StringVar(&flags.baseURL, "base-url", "", "live API root")
	fs.StringVar(&flags.schemaURL, "schema-url", "", "pinned OpenAPI document URL (discovered when omitted)")
	fs.BoolVar(&flags.inactive, "inactive", false, "register the feed without activating it")

	fs.Usage = func() {
		output := fs.Output()
		_, _ = fmt.Fprintf(output, "Usage: oruk-validator register [flags]\n\n")
		_, _ = fmt.Fprintf(output, "Add a feed to the registry, or update its definition.\n\n")
		_, _ = fmt.Fprintf(output, "Flags:\n")
		fs.PrintDefaults()
		_, _ = fmt.Fprintf(output, "\nExamples:\n")
		_, _ = fmt.Fprintf(output, "  oruk-validator register --db feeds.db --id example --base-url https://api.example.org\n")
	}

	return fs, flags
}

func handleRegister(args []string) error {
	fs, flags := setupRegisterFlags()

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}

	if flags.id == "" || flags.baseURL == "" {
		fs.Usage()
		return fmt.Errorf("register command requires --id and --base-url")
	}

	store, err := feedstore.Open(flags.dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	err = store.Register(context.Background(), feedstore.Feed{
		ID:        flags.id,
		Name:      flags.name,
		BaseURL:   flags.baseURL,
		SchemaURL: flags.schemaURL,
		Active:    !flags.inactive,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Registered feed %s\n", flags.id)
	return nil
}

// buildLogger wires slog into the library logger interface.
func buildLogger(verbose bool) resolver.Logger {
	if !verbose {
		return resolver.NopLogger{}
	}
	return resolver.NewSlogAdapter(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling to JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func printUsage() {
	fmt.Printf(`oruk-validator - Open Referral UK feed validator

Usage:
  oruk-validator <command> [flags]

Commands:
  validate    Validate one feed's OpenAPI document and live API
  feeds       Validate every active feed in a registry database
  register    Add or update a feed in a registry database
  version     Print the version
  help        Print this help

Run 'oruk-validator <command> -h' for command-specific flags.
`)
}
