package endpointtest

import (
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/tpximpact/oruk-validator-sub000/resolver"
	"github.com/tpximpact/oruk-validator-sub000/schemavalidator"
)

// Defaults for orchestration behavior.
const (
	// DefaultTimeout is the per-request timeout when none is configured.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxConcurrentRequests bounds the Phase 2 fan-out per group.
	DefaultMaxConcurrentRequests = 10

	// MaxSampledIDs caps how many extracted IDs a parameterized endpoint is
	// tested with. Larger ID sets are randomly sampled down to this many.
	MaxSampledIDs = 10

	// MaxResponseBodySize is the maximum response body size read per probe.
	MaxResponseBodySize = 10 * 1024 * 1024
)

// Doer is the HTTP client capability consumed by the orchestrator.
// *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option is a functional option for configuring an Orchestrator.
type Option func(*config) error

// config holds the orchestrator configuration.
type config struct {
	client                  Doer
	auth                    *Auth
	logger                  resolver.Logger
	validator               *schemavalidator.Validator
	timeout                 time.Duration
	maxConcurrent           int64
	skipAuth                bool
	testOptional            bool
	treatOptionalAsWarnings bool
	randSource              rand.Source
}

// defaultConfig returns the default configuration.
func defaultConfig() *config {
	return &config{
		client:        http.DefaultClient,
		logger:        resolver.NopLogger{},
		validator:     schemavalidator.New(),
		timeout:       DefaultTimeout,
		maxConcurrent: DefaultMaxConcurrentRequests,
		testOptional:  true,
	}
}

// WithClient sets the HTTP client used for probes.
// Default is http.DefaultClient.
func WithClient(client Doer) Option {
	return func(c *config) error {
		if client == nil {
			return fmt.Errorf("endpointtest: client cannot be nil")
		}
		c.client = client
		return nil
	}
}

// WithAuth sets the authentication applied to every probe.
func WithAuth(auth *Auth) Option {
	return func(c *config) error {
		c.auth = auth
		return nil
	}
}

// WithLogger sets the logger. Default is NopLogger.
func WithLogger(logger resolver.Logger) Option {
	return func(c *config) error {
		if logger == nil {
			return fmt.Errorf("endpointtest: logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithSchemaValidator sets the validator used for response bodies.
func WithSchemaValidator(v *schemavalidator.Validator) Option {
	return func(c *config) error {
		if v == nil {
			return fmt.Errorf("endpointtest: schema validator cannot be nil")
		}
		c.validator = v
		return nil
	}
}

// WithTimeout sets the per-request timeout, independent of the caller's
// cancellation context; either source can abort a single request.
// Default is DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) error {
		if d <= 0 {
			return fmt.Errorf("endpointtest: timeout must be positive, got %v", d)
		}
		c.timeout = d
		return nil
	}
}

// WithMaxConcurrentRequests sets the concurrency ceiling per group test run.
// Default is DefaultMaxConcurrentRequests.
func WithMaxConcurrentRequests(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return fmt.Errorf("endpointtest: maxConcurrentRequests must be positive, got %d", n)
		}
		c.maxConcurrent = int64(n)
		return nil
	}
}

// WithSkipAuthentication disables applying authentication to probes.
func WithSkipAuthentication(skip bool) Option {
	return func(c *config) error {
		c.skipAuth = skip
		return nil
	}
}

// WithTestOptionalEndpoints controls whether endpoints tagged Optional are
// probed at all. When false they are skipped with zero requests.
// Default is true.
func WithTestOptionalEndpoints(test bool) Option {
	return func(c *config) error {
		c.testOptional = test
		return nil
	}
}

// WithTreatOptionalEndpointsAsWarnings downgrades schema validation
// failures on optional endpoints from Failed to Warning.
// Default is false.
func WithTreatOptionalEndpointsAsWarnings(treat bool) Option {
	return func(c *config) error {
		c.treatOptionalAsWarnings = treat
		return nil
	}
}

// WithRandSource sets the randomness source used for ID sampling.
// Tests use a fixed seed for deterministic sampling.
func WithRandSource(src rand.Source) Option {
	return func(c *config) error {
		if src == nil {
			return fmt.Errorf("endpointtest: rand source cannot be nil")
		}
		c.randSource = src
		return nil
	}
}
