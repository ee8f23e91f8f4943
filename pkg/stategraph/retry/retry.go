package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Policy configures Do.
type Policy struct {
	// MaxAttempts is the number of calls including the first. Values
	// below 1 mean 1.
	MaxAttempts int

	// InitialBackoff is the wait before the second attempt.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between attempts.
	MaxBackoff time.Duration

	// BackoffFactor multiplies the wait after each attempt.
	BackoffFactor float64

	// Jitter randomizes each wait by up to this fraction (0.0-1.0).
	Jitter float64

	// Retryable overrides IsRetryable.
	Retryable func(error) bool

	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Default retries three times starting at half a second.
var Default = Policy{
	MaxAttempts:    3,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     10 * time.Second,
	BackoffFactor:  2.0,
	Jitter:         0.1,
}

// None makes a single attempt.
var None = Policy{MaxAttempts: 1}

// Option adjusts a Policy.
type Option func(*Policy)

// WithMaxAttempts sets the number of calls including the first.
func WithMaxAttempts(n int) Option {
	return func(p *Policy) { p.MaxAttempts = n }
}

// WithBackoff sets the initial and maximum wait.
func WithBackoff(initial, maxWait time.Duration) Option {
	return func(p *Policy) {
		p.InitialBackoff = initial
		p.MaxBackoff = maxWait
	}
}

// WithJitter sets the jitter fraction.
func WithJitter(j float64) Option {
	return func(p *Policy) { p.Jitter = j }
}

// WithRetryable replaces the transient check.
func WithRetryable(fn func(error) bool) Option {
	return func(p *Policy) { p.Retryable = fn }
}

// WithOnRetry registers a hook called before each wait.
func WithOnRetry(fn func(attempt int, err error, wait time.Duration)) Option {
	return func(p *Policy) { p.OnRetry = fn }
}

// New returns Default adjusted by opts.
func New(opts ...Option) Policy {
	p := Default
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Do calls fn until it succeeds, fails permanently, or the policy runs
// out of attempts. A permanent error is returned as-is; running out of
// attempts returns an *ExhaustedError. Waits stop early when ctx is done.
func Do[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := max(p.MaxAttempts, 1)
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}

	wait := p.InitialBackoff
	for attempt := 1; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if !retryable(err) || ctx.Err() != nil {
			return zero, err
		}
		if attempt == attempts {
			return zero, &ExhaustedError{Attempts: attempt, Err: err}
		}

		d := jitter(wait, p.Jitter)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, d)
		}
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}

		if p.BackoffFactor > 0 {
			wait = time.Duration(float64(wait) * p.BackoffFactor)
		}
		if p.MaxBackoff > 0 && wait > p.MaxBackoff {
			wait = p.MaxBackoff
		}
	}
}

func jitter(d time.Duration, j float64) time.Duration {
	if j <= 0 || d <= 0 {
		return d
	}
	return time.Duration(float64(d) + float64(d)*j*(rand.Float64()*2-1))
}
