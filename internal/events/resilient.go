package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
)

// ResilientConfig configures the circuit breaker around a publisher
type ResilientConfig struct {
	// FailureThreshold is the number of consecutive failures that open the
	// breaker (default: 3)
	FailureThreshold int

	// OpenTimeout is how long the breaker stays open before probing again
	// (default: 30s)
	OpenTimeout time.Duration

	// PublishTimeout bounds a single publish (default: 2s)
	PublishTimeout time.Duration
}

// DefaultResilientConfig returns the breaker settings used by the app
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		FailureThreshold: 3,
		OpenTimeout:      30 * time.Second,
		PublishTimeout:   2 * time.Second,
	}
}

// ResilientPublisher wraps a publisher with a circuit breaker so a broker
// outage fails fast instead of stalling learner commands. Events are never
// retried.
type ResilientPublisher struct {
	next    Publisher
	breaker circuitbreaker.CircuitBreaker[struct{}]
	timeout time.Duration
}

// NewResilientPublisher wraps next with a circuit breaker
func NewResilientPublisher(next Publisher, cfg ResilientConfig) *ResilientPublisher {
	defaults := DefaultResilientConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaults.FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = defaults.OpenTimeout
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaults.PublishTimeout
	}

	threshold := cfg.FailureThreshold
	return &ResilientPublisher{
		next:    next,
		timeout: cfg.PublishTimeout,
		breaker: circuitbreaker.New[struct{}](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return int(counts.ConsecutiveFailures) >= threshold
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				slog.Warn("event publisher circuit breaker state change",
					"from", from.String(),
					"to", to.String())
			},
		}),
	}
}

// Publish implements Publisher
func (p *ResilientPublisher) Publish(ctx context.Context, event Event) error {
	_, err := p.breaker.Execute(ctx, func(ctx context.Context) (struct{}, error) {
		ctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return struct{}{}, p.next.Publish(ctx, event)
	})
	return err
}
