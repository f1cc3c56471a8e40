package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const (
	DefaultName             = "mediator"
	DefaultMetricsNamespace = "mediator"
)

// Config tunes dispatch policies and the optional observability layers.
// The zero value is usable; WithDefaults fills in names.
type Config struct {
	// Name identifies the mediator instance in logs, spans and metrics.
	Name string

	// AllowUnhandledEvents turns emitting an event without subscribers into a
	// no-op. By default it fails with a handler-not-found error.
	AllowUnhandledEvents bool

	// AbortBatchOnError stops DispatchSimple and multi-event Emit at the first
	// failing item. By default every item runs and the first error is returned.
	AbortBatchOnError bool

	// DisableResolutionCache resolves against the registry on every dispatch.
	DisableResolutionCache bool

	// EagerValidation reports ambiguous command and query registrations when the
	// mediator is constructed instead of at first dispatch.
	EagerValidation bool

	// LogDispatches enables debug logging of every dispatch.
	LogDispatches bool

	// Metrics configuration.
	MetricsEnabled bool
	// MetricsNamespace prefixes every metric name. Defaults to "mediator".
	MetricsNamespace string

	// TracingEnabled wraps each dispatch in an OpenTelemetry span.
	TracingEnabled bool

	// StatsCORSAllowedOrigins specifies allowed origins for the stats endpoint.
	// Use "*" for development. Empty disables CORS headers.
	StatsCORSAllowedOrigins []string

	// ForwardTopicPrefix is prepended to event names by event forwarders that
	// do not set their own prefix.
	ForwardTopicPrefix string
}

// WithDefaults returns a copy with empty names replaced by their defaults.
func (c Config) WithDefaults() Config {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.MetricsNamespace == "" {
		c.MetricsNamespace = DefaultMetricsNamespace
	}
	return c
}

func (c Config) String() string {
	type configAlias Config
	return fmt.Sprintf("%+v", configAlias(c))
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error

	errs = append(errs, c.validateNames()...)
	errs = append(errs, c.validateCORS()...)

	return errors.Join(errs...)
}

func (c *Config) validateNames() []error {
	var errs []error
	if strings.TrimSpace(c.Name) != c.Name {
		errs = append(errs, fmt.Errorf("name: %q has surrounding whitespace", c.Name))
	}
	if c.MetricsNamespace != "" && !isMetricIdentifier(c.MetricsNamespace) {
		errs = append(errs, fmt.Errorf("metrics: invalid namespace %q", c.MetricsNamespace))
	}
	if strings.ContainsFunc(c.ForwardTopicPrefix, unicode.IsSpace) {
		errs = append(errs, fmt.Errorf("forwarding: topic prefix %q contains whitespace", c.ForwardTopicPrefix))
	}
	return errs
}

func (c *Config) validateCORS() []error {
	var errs []error
	for i, origin := range c.StatsCORSAllowedOrigins {
		if strings.TrimSpace(origin) == "" {
			errs = append(errs, fmt.Errorf("stats: CORS origin %d is empty", i))
		}
	}
	return errs
}

// isMetricIdentifier follows the Prometheus rule [a-zA-Z_][a-zA-Z0-9_]*.
func isMetricIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return s != ""
}

// ValidateConfig validates a config pointer. Returns nil if the config is valid.
func ValidateConfig(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}
