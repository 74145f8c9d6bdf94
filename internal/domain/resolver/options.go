package resolver

import "github.com/okian/revstat/pkg/logger"

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for relay and authorship diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// WithMetrics toggles Prometheus counters. Diagnostic passes turn them off so
// a self-check does not inflate production numbers.
func WithMetrics(enabled bool) Option {
	return func(r *Resolver) {
		r.metrics = enabled
	}
}
