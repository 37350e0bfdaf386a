package txpipeline

import (
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	// DefaultMaxAttempts is the number of submit/confirm attempts per call.
	DefaultMaxAttempts = 3
	// DefaultBackoffBase is the linear backoff step between attempts.
	DefaultBackoffBase = 2 * time.Second
	// DefaultPollInterval is the wait between status polls of one handle.
	DefaultPollInterval = 2 * time.Second
	// DefaultMaxPolls bounds how long one handle may stay in flight.
	DefaultMaxPolls = 60
)

// RetryPolicy bounds how often a call is attempted and how long to wait
// between attempts. Backoff receives the number of failed attempts so far
// (1 after the first failure). Within one attempt the submitted handle is
// polled every PollInterval, at most MaxPolls times, until its status is
// final.
type RetryPolicy struct {
	MaxAttempts  int
	Backoff      func(attempt int) time.Duration
	PollInterval time.Duration
	MaxPolls     int
}

// LinearBackoff waits base × attempt after each failure.
func LinearBackoff(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return base * time.Duration(attempt)
	}
}

// DefaultRetryPolicy returns three attempts with 2s, 4s waits in between.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  DefaultMaxAttempts,
		Backoff:      LinearBackoff(DefaultBackoffBase),
		PollInterval: DefaultPollInterval,
		MaxPolls:     DefaultMaxPolls,
	}
}

// NewRetryPolicy validates and builds a linear RetryPolicy.
func NewRetryPolicy(maxAttempts int, base time.Duration) (RetryPolicy, error) {
	if maxAttempts < 1 {
		return RetryPolicy{}, errors.New("retry policy: max attempts must be >= 1")
	}
	if base < 0 {
		return RetryPolicy{}, errors.New("retry policy: backoff base must be >= 0")
	}
	return RetryPolicy{MaxAttempts: maxAttempts, Backoff: LinearBackoff(base)}.normalize(), nil
}

// WithPolling returns a copy of p that polls every interval, at most
// maxPolls times per handle. Non-positive values keep the defaults.
func (p RetryPolicy) WithPolling(interval time.Duration, maxPolls int) RetryPolicy {
	if interval > 0 {
		p.PollInterval = interval
	}
	if maxPolls > 0 {
		p.MaxPolls = maxPolls
	}
	return p
}

func (p RetryPolicy) normalize() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts < 1 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.Backoff == nil {
		p.Backoff = def.Backoff
	}
	if p.PollInterval <= 0 {
		p.PollInterval = def.PollInterval
	}
	if p.MaxPolls < 1 {
		p.MaxPolls = def.MaxPolls
	}
	return p
}

// policyBackOff adapts a RetryPolicy to backoff.BackOff.
type policyBackOff struct {
	policy   RetryPolicy
	failures int
}

var _ backoff.BackOff = (*policyBackOff)(nil)

func (b *policyBackOff) NextBackOff() time.Duration {
	b.failures++
	if b.failures >= b.policy.MaxAttempts {
		return backoff.Stop
	}
	return max(b.policy.Backoff(b.failures), 0)
}

func (b *policyBackOff) Reset() { b.failures = 0 }
