package store

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"
)

// ResilientConfig configures retries and the write circuit breaker.
type ResilientConfig struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	BreakerThreshold  int
	BreakerOpenPeriod time.Duration
}

func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		MaxAttempts:       3,
		InitialDelay:      50 * time.Millisecond,
		BreakerThreshold:  5,
		BreakerOpenPeriod: 30 * time.Second,
	}
}

// Resilient wraps a Store with retry on transient failures. Saves also pass
// through a circuit breaker so a dead backend fails fast.
type Resilient struct {
	next    Store
	loads   retry.Retry[Snapshot]
	saves   retry.Retry[struct{}]
	breaker circuitbreaker.CircuitBreaker[struct{}]
}

func NewResilient(next Store, cfg ResilientConfig) *Resilient {
	threshold := cfg.BreakerThreshold
	if threshold <= 0 {
		threshold = 5
	}
	permanent := []error{ErrNotFound, ErrMalformed, ErrInvalidKey, context.Canceled, context.DeadlineExceeded}

	return &Resilient{
		next: next,
		loads: retry.New[Snapshot](retry.Config{
			MaxAttempts:        cfg.MaxAttempts,
			InitialDelay:       cfg.InitialDelay,
			BackoffPolicy:      retry.BackoffExponential,
			Multiplier:         2.0,
			NonRetryableErrors: permanent,
		}),
		saves: retry.New[struct{}](retry.Config{
			MaxAttempts:        cfg.MaxAttempts,
			InitialDelay:       cfg.InitialDelay,
			BackoffPolicy:      retry.BackoffExponential,
			Multiplier:         2.0,
			NonRetryableErrors: permanent,
		}),
		breaker: circuitbreaker.New[struct{}](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    cfg.BreakerOpenPeriod,
			Timeout:     cfg.BreakerOpenPeriod,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- threshold is positive
			},
		}),
	}
}

func (r *Resilient) Save(ctx context.Context, key string, snap Snapshot) error {
	_, err := r.breaker.Execute(ctx, func(ctx context.Context) (struct{}, error) {
		return r.saves.Do(ctx, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, r.next.Save(ctx, key, snap)
		})
	})
	return err
}

func (r *Resilient) Load(ctx context.Context, key string) (Snapshot, error) {
	return r.loads.Do(ctx, func(ctx context.Context) (Snapshot, error) {
		return r.next.Load(ctx, key)
	})
}

func (r *Resilient) Delete(ctx context.Context, key string) error {
	_, err := r.saves.Do(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.next.Delete(ctx, key)
	})
	return err
}
