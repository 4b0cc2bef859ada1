package types

import (
	"context"
	"time"
)

// CallOptions holds per-call settings resolved from Option values.
type CallOptions struct {
	// Delay overrides the driver's default simulated latency when DelaySet is true.
	Delay    time.Duration
	DelaySet bool
	// ShouldFail forces a synthetic 500 before the store is touched.
	ShouldFail bool
}

// Option adjusts a single driver or service call.
type Option func(*CallOptions)

// WithDelay overrides the simulated latency for one call. Zero means no wait.
func WithDelay(d time.Duration) Option {
	return func(o *CallOptions) {
		o.Delay = d
		o.DelaySet = true
	}
}

// WithFailure forces the call to fail with a simulated error.
func WithFailure() Option {
	return func(o *CallOptions) {
		o.ShouldFail = true
	}
}

// ResolveOptions applies opts in order.
func ResolveOptions(opts ...Option) CallOptions {
	var o CallOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Latency returns the delay to apply given the driver default.
func (o CallOptions) Latency(def time.Duration) time.Duration {
	if o.DelaySet {
		return o.Delay
	}
	return def
}

// Options turns resolved settings back into an Option list, so a service can
// forward them to its driver with adjustments appended.
func (o CallOptions) Options() []Option {
	var out []Option
	if o.DelaySet {
		out = append(out, WithDelay(o.Delay))
	}
	if o.ShouldFail {
		out = append(out, WithFailure())
	}
	return out
}

// Wait blocks for d or until ctx is done, returning ctx.Err() in the latter
// case. A non-positive d only checks ctx.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
