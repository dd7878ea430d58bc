package cursor

import "time"

// Option configures a Registry
type Option func(*Registry)

// WithMaxOpenCursors caps how many cursors may be registered at once
// (default 10000). Zero or negative means unlimited.
func WithMaxOpenCursors(n int) Option {
	return func(r *Registry) {
		r.maxOpen = n
	}
}

// WithIdleTimeout sets how long an unpinned cursor may sit untouched before
// the reaper destroys it (default 10m).
func WithIdleTimeout(d time.Duration) Option {
	return func(r *Registry) {
		r.idleTimeout = d
	}
}

// WithReapInterval sets how often the background reaper scans (default 1m).
func WithReapInterval(d time.Duration) Option {
	return func(r *Registry) {
		r.reapInterval = d
	}
}

// WithClock overrides the registry's time source for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}
