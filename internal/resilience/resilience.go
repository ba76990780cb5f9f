// Package resilience guards calls to remote services with a circuit breaker
// and retries idempotent operations with exponential backoff.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/sony/gobreaker"
)

var (
	// ErrCircuitOpen indicates the circuit breaker rejected the call.
	ErrCircuitOpen = gobreaker.ErrOpenState
	// ErrTimeout indicates an operation ran past its deadline.
	ErrTimeout = errors.New("operation timed out")
	// ErrExhaustedRetries indicates every retry attempt failed.
	ErrExhaustedRetries = errors.New("retry attempts exhausted")
)

// BreakerConfig holds configuration for a circuit breaker.
type BreakerConfig struct {
	Name string
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures int
	// Timeout bounds each call whose context carries no deadline.
	Timeout time.Duration
	// ResetAfter is how long the circuit stays open before a trial call.
	ResetAfter time.Duration
	Logger     *slog.Logger
	// OnOpen is invoked whenever the circuit transitions to open.
	OnOpen func(name string)
}

// CircuitBreaker wraps gobreaker with context timeouts.
type CircuitBreaker struct {
	name    string
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
}

// NewCircuitBreaker creates a circuit breaker, filling zero fields with defaults.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ResetAfter <= 0 {
		cfg.ResetAfter = time.Minute
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.ResetAfter,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.MaxFailures)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
			if to == gobreaker.StateOpen && cfg.OnOpen != nil {
				cfg.OnOpen(name)
			}
		},
	}

	return &CircuitBreaker{
		name:    cfg.Name,
		timeout: cfg.Timeout,
		cb:      gobreaker.NewCircuitBreaker(settings),
	}
}

// Name returns the breaker name.
func (b *CircuitBreaker) Name() string { return b.name }

// State reports the current breaker state as "closed", "half-open" or "open".
func (b *CircuitBreaker) State() string {
	return b.cb.State().String()
}

// Execute runs operation through the breaker.
func (b *CircuitBreaker) Execute(ctx context.Context, operation func(context.Context) error) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	_, err := b.cb.Execute(func() (interface{}, error) {
		err := operation(ctx)
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return nil, err
	})
	return err
}

// RetryConfig holds configuration for retry operations.
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// Retryable decides whether err deserves another attempt. Nil retries everything
	// except an open circuit.
	Retryable func(err error) bool
}

// DefaultRetryConfig returns the retry policy used for remote GETs.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
	}
}

// WithRetry executes operation until it succeeds, a non-retryable error occurs,
// the context ends, or attempts run out.
func WithRetry(ctx context.Context, operation func(context.Context) error, cfg RetryConfig) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	interval := cfg.InitialInterval
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return fmt.Errorf("retry abandoned: %w", ctx.Err())
		}
		if errors.Is(err, ErrCircuitOpen) {
			return err
		}
		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		// +/-10% jitter
		wait := time.Duration(float64(interval) * (0.9 + 0.2*rand.Float64()))
		slog.Debug("Operation failed, retrying",
			"attempt", attempt,
			"max_attempts", cfg.MaxAttempts,
			"next_interval", wait,
			"error", err,
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry abandoned: %w", ctx.Err())
		case <-timer.C:
		}

		interval = time.Duration(float64(interval) * cfg.Multiplier)
		if cfg.MaxInterval > 0 && interval > cfg.MaxInterval {
			interval = cfg.MaxInterval
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrExhaustedRetries, cfg.MaxAttempts, lastErr)
}
