package resilience

import (
	"time"

	"github.com/felixgeelhaar/artifact-go/domain/artifact"
)

// Option configures the guard.
type Option func(*GuardConfig)

// WithMaxConcurrent sets the maximum concurrent uploads.
func WithMaxConcurrent(n int) Option {
	return func(c *GuardConfig) {
		c.MaxConcurrent = n
	}
}

// WithCircuitBreakerThreshold sets the failure threshold for circuit breaker.
func WithCircuitBreakerThreshold(n int) Option {
	return func(c *GuardConfig) {
		c.CircuitBreakerThreshold = n
	}
}

// WithCircuitBreakerTimeout sets the circuit breaker open duration.
func WithCircuitBreakerTimeout(d time.Duration) Option {
	return func(c *GuardConfig) {
		c.CircuitBreakerTimeout = d
	}
}

// WithTimeout sets the upload deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *GuardConfig) {
		c.Timeout = d
	}
}

// Guard wraps next using the default configuration adjusted by opts.
func Guard(next artifact.Gateway, opts ...Option) *GuardedGateway {
	config := DefaultGuardConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return NewGuardedGateway(next, config)
}
