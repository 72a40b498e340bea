package engine

import "github.com/viant/xfer/backend"

// RefillHook is called synchronously whenever the backlog crosses the low
// watermark (spec §4.5 "Low watermark"). It is expected to append more
// Transfers to the backlog via Engine.Submit.
type RefillHook func(backlogSize, maxConcurrency int)

// Option configures an Engine at construction.
type Option func(*Engine)

// WithConcurrency sets the maximum number of in-flight Transfers. The spec
// default is 10 (spec §6 "Engine constructor new(max_concurrency=10)").
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxConcurrency = n
		}
	}
}

// WithLowWatermarkFactor overrides the multiplier of max_concurrency below
// which the refill hook fires (spec §3 "low_watermark_factor"). Default 2.
func WithLowWatermarkFactor(factor float64) Option {
	return func(e *Engine) {
		if factor > 0 {
			e.lowWatermarkFactor = factor
		}
	}
}

// WithRefillHook installs the backlog refill hook.
func WithRefillHook(hook RefillHook) Option {
	return func(e *Engine) { e.refillHook = hook }
}

// WithMultiOptions forwards options to the backend.Multi the Engine drives,
// e.g. backend.WithHTTPClient.
func WithMultiOptions(opts ...backend.MultiOption) Option {
	return func(e *Engine) { e.multiOpts = append(e.multiOpts, opts...) }
}
