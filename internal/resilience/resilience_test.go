package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	opened := make(chan string, 1)
	cb := NewCircuitBreaker(BreakerConfig{
		Name:        "test",
		MaxFailures: 2,
		ResetAfter:  time.Hour,
		OnOpen:      func(name string) { opened <- name },
	})

	for i := 0; i < 2; i++ {
		if err := cb.Execute(context.Background(), func(context.Context) error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("Execute() attempt %d error = %v, want errBoom", i+1, err)
		}
	}

	if got := cb.State(); got != "open" {
		t.Fatalf("State() = %q, want open", got)
	}
	select {
	case name := <-opened:
		if name != "test" {
			t.Errorf("OnOpen name = %q, want test", name)
		}
	default:
		t.Error("OnOpen was not called")
	}

	called := false
	err := cb.Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Execute() on open circuit error = %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("operation ran while circuit was open")
	}
}

func TestCircuitBreakerAppliesTimeout(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(BreakerConfig{Name: "timeout", Timeout: 10 * time.Millisecond})
	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Execute() error = %v, want ErrTimeout", err)
	}
}

func TestWithRetry(t *testing.T) {
	t.Parallel()

	fast := RetryConfig{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, Multiplier: 2}
	errPermanent := errors.New("permanent")

	tests := []struct {
		name      string
		failures  int
		failWith  error
		retryable func(error) bool
		wantCalls int
		wantErr   error
	}{
		{name: "first try", failures: 0, wantCalls: 1},
		{name: "succeeds after failures", failures: 2, failWith: errBoom, wantCalls: 3},
		{name: "exhausted", failures: 5, failWith: errBoom, wantCalls: 3, wantErr: ErrExhaustedRetries},
		{name: "circuit open stops", failures: 5, failWith: ErrCircuitOpen, wantCalls: 1, wantErr: ErrCircuitOpen},
		{
			name:      "non retryable stops",
			failures:  5,
			failWith:  errPermanent,
			retryable: func(err error) bool { return !errors.Is(err, errPermanent) },
			wantCalls: 1,
			wantErr:   errPermanent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := fast
			cfg.Retryable = tt.retryable
			calls := 0
			err := WithRetry(context.Background(), func(context.Context) error {
				calls++
				if calls <= tt.failures {
					return tt.failWith
				}
				return nil
			}, cfg)

			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("WithRetry() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("WithRetry() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestWithRetryStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := WithRetry(ctx, func(context.Context) error {
		calls++
		cancel()
		return errBoom
	}, DefaultRetryConfig())

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("WithRetry() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
