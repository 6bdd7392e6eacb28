// Package resilience guards object store gateways using fortify.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"

	"github.com/felixgeelhaar/artifact-go/domain/artifact"
)

// GuardConfig configures a GuardedGateway.
type GuardConfig struct {
	// MaxConcurrent limits concurrent uploads through the gateway.
	MaxConcurrent int

	// CircuitBreakerThreshold is the number of consecutive failures
	// before the circuit opens.
	CircuitBreakerThreshold int

	// CircuitBreakerTimeout is how long the circuit stays open.
	CircuitBreakerTimeout time.Duration

	// Timeout bounds a single upload attempt. Zero disables the deadline.
	Timeout time.Duration
}

// DefaultGuardConfig returns a configuration with sensible defaults.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		MaxConcurrent:           4,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
		Timeout:                 10 * time.Minute,
	}
}

// GuardedGateway wraps a gateway with a bulkhead, a circuit breaker and a
// per-upload deadline. Each PutObject is attempted exactly once.
type GuardedGateway struct {
	next     artifact.Gateway
	bulkhead bulkhead.Bulkhead[struct{}]
	breaker  circuitbreaker.CircuitBreaker[struct{}]
	timeout  time.Duration
}

var _ artifact.Gateway = (*GuardedGateway)(nil)

// NewGuardedGateway wraps next.
func NewGuardedGateway(next artifact.Gateway, config GuardConfig) *GuardedGateway {
	maxConcurrent := config.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	threshold := config.CircuitBreakerThreshold
	if threshold <= 0 {
		threshold = 5
	}

	return &GuardedGateway{
		next: next,
		bulkhead: bulkhead.New[struct{}](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
		}),
		breaker: circuitbreaker.New[struct{}](circuitbreaker.Config{
			MaxRequests: uint32(maxConcurrent), // #nosec G115 -- bounds checked above
			Interval:    config.CircuitBreakerTimeout,
			Timeout:     config.CircuitBreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- bounds checked above
			},
		}),
		timeout: config.Timeout,
	}
}

// PutObject uploads through the guards.
// Composition order: Bulkhead → Timeout → Circuit Breaker.
func (g *GuardedGateway) PutObject(ctx context.Context, bucket, key, sourcePath string, headers map[string]string) error {
	_, err := g.bulkhead.Execute(ctx, func(ctx context.Context) (struct{}, error) {
		if g.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}

		return g.breaker.Execute(ctx, func(ctx context.Context) (struct{}, error) {
			err := g.next.PutObject(ctx, bucket, key, sourcePath, headers)
			if err == nil {
				return struct{}{}, nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil && !isGatewayError(err) {
				return struct{}{}, artifact.NewGatewayError(artifact.FailureNetwork, "put", fmt.Errorf("%w: %w", ctxErr, err))
			}
			return struct{}{}, err
		})
	})
	if err == nil || isGatewayError(err) {
		return err
	}

	// Rejections by the guards themselves.
	if strings.EqualFold(g.BreakerState(), "open") {
		return artifact.NewGatewayError(artifact.FailureNetwork, "put", fmt.Errorf("circuit open: %w", err))
	}
	return artifact.NewGatewayError(artifact.KindOf(err), "put", err)
}

// ObjectURL delegates to the wrapped gateway when it resolves URLs.
func (g *GuardedGateway) ObjectURL(bucket, key string) string {
	if r, ok := g.next.(artifact.URLResolver); ok {
		return r.ObjectURL(bucket, key)
	}
	return ""
}

// Unwrap returns the wrapped gateway.
func (g *GuardedGateway) Unwrap() artifact.Gateway {
	return g.next
}

// BreakerState returns the circuit breaker state as a string.
func (g *GuardedGateway) BreakerState() string {
	return g.breaker.State().String()
}

func isGatewayError(err error) bool {
	var gwErr *artifact.GatewayError
	return errors.As(err, &gwErr)
}
