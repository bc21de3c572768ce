package resolver

import "fmt"

// MaxRefDepth is the default maximum depth allowed for nested $ref
// resolution. This prevents stack overflow from deeply nested (but
// non-circular) references.
const MaxRefDepth = 100

// Option is a functional option for configuring resolution.
type Option func(*config) error

// config holds the configuration for a Resolve call.
type config struct {
	baseURL  string
	fetcher  HTTPFetcher
	logger   Logger
	maxDepth int
}

// defaultConfig returns the default configuration.
func defaultConfig() *config {
	return &config{
		logger:   NopLogger{},
		maxDepth: MaxRefDepth,
	}
}

// WithBaseURL sets the base URI that relative external references are
// joined against. Typically this is the URL the document itself was
// fetched from.
func WithBaseURL(baseURL string) Option {
	return func(c *config) error {
		c.baseURL = baseURL
		return nil
	}
}

// WithHTTPFetcher sets the fetcher used for external references.
// When no fetcher is configured, external references are left as
// unexpanded stubs.
func WithHTTPFetcher(fetcher HTTPFetcher) Option {
	return func(c *config) error {
		c.fetcher = fetcher
		return nil
	}
}

// WithLogger sets the logger used during resolution.
// Default is NopLogger.
func WithLogger(logger Logger) Option {
	return func(c *config) error {
		if logger == nil {
			return fmt.Errorf("resolver: logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithMaxDepth sets the maximum nesting depth for $ref expansion.
// Subtrees beyond the limit are left as unexpanded stubs.
// Default is MaxRefDepth.
func WithMaxDepth(depth int) Option {
	return func(c *config) error {
		if depth <= 0 {
			return fmt.Errorf("resolver: maxDepth must be positive, got %d", depth)
		}
		c.maxDepth = depth
		return nil
	}
}
