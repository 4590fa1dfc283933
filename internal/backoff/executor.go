// Package backoff wraps remote calls with bounded exponential retry on
// provider throttling.
package backoff

import (
	"context"
	"errors"
	"time"

	cbackoff "github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Policy configures retries.
type Policy struct {
	// MaxAttempts counts every call, the first one included.
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// DefaultPolicy is five attempts, one second initial delay, doubling.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  5,
		InitialDelay: time.Second,
		Multiplier:   2,
		MaxDelay:     time.Minute,
	}
}

// RetryHook observes each throttled attempt that will be retried.
type RetryHook func(ctx context.Context, operation string, attempt int, err error, wait time.Duration)

// Executor runs remote calls under a retry policy and a rate budget shared
// by every caller. It is safe for concurrent use.
type Executor struct {
	policy  Policy
	limiter *rate.Limiter
	hooks   []RetryHook
}

// Option configures an Executor.
type Option func(*Executor)

// WithRateLimit shares a token bucket of rps requests per second across
// every call made through the executor. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(e *Executor) {
		if rps <= 0 {
			e.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetryHook adds an observer for retries.
func WithRetryHook(h RetryHook) Option {
	return func(e *Executor) {
		e.hooks = append(e.hooks, h)
	}
}

// New creates an executor.
func New(policy Policy, opts ...Option) *Executor {
	def := DefaultPolicy()
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = def.MaxAttempts
	}
	if policy.InitialDelay <= 0 {
		policy.InitialDelay = def.InitialDelay
	}
	if policy.Multiplier < 1 {
		policy.Multiplier = def.Multiplier
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = def.MaxDelay
	}

	e := &Executor{policy: policy}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the effective retry policy.
func (e *Executor) Policy() Policy {
	return e.policy
}

// Run invokes fn with retries. See Do.
func (e *Executor) Run(ctx context.Context, operation string, fn func(context.Context) error) error {
	_, err := Do(ctx, e, operation, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Do invokes fn once and retries it while it fails with a throttling error,
// up to the policy's attempt limit. Other errors are returned untouched on
// the attempt they occur. When every attempt is throttled the result is a
// *RetryExhaustedError wrapping the last provider error.
func Do[T any](ctx context.Context, e *Executor, operation string, fn func(context.Context) (T, error)) (T, error) {
	attempts := 0
	op := func() (T, error) {
		attempts++
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				var zero T
				return zero, cbackoff.Permanent(err)
			}
		}
		res, err := fn(ctx)
		if err != nil && !IsThrottling(err) {
			return res, cbackoff.Permanent(err)
		}
		return res, err
	}

	notify := func(err error, wait time.Duration) {
		log.Warn().
			Ctx(ctx).
			Err(err).
			Str("operation", operation).
			Int("attempt", attempts).
			Dur("wait", wait).
			Msg("throttled, backing off")
		for _, h := range e.hooks {
			h(ctx, operation, attempts, err, wait)
		}
	}

	res, err := cbackoff.Retry(ctx, op,
		cbackoff.WithBackOff(e.newBackOff()),
		cbackoff.WithMaxTries(uint(e.policy.MaxAttempts)),
		cbackoff.WithMaxElapsedTime(0),
		cbackoff.WithNotify(notify),
	)
	if err == nil {
		return res, nil
	}

	var permanent *cbackoff.PermanentError
	if errors.As(err, &permanent) {
		return res, permanent.Unwrap()
	}
	if IsThrottling(err) {
		return res, &RetryExhaustedError{Operation: operation, Attempts: attempts, Err: err}
	}
	// Context cancelled while waiting between attempts.
	return res, err
}

func (e *Executor) newBackOff() cbackoff.BackOff {
	return &cbackoff.ExponentialBackOff{
		InitialInterval:     e.policy.InitialDelay,
		RandomizationFactor: 0,
		Multiplier:          e.policy.Multiplier,
		MaxInterval:         e.policy.MaxDelay,
	}
}
