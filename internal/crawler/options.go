package crawler

import (
	"log/slog"
	"time"

	"github.com/nao1215/scopecrawl/internal/scope"
)

// Defaults for an Engine.
const (
	// DefaultMaxSeenURLs is the visit budget when none is given.
	DefaultMaxSeenURLs = 10

	// DefaultWorkers is the number of concurrent fetches.
	DefaultWorkers = 1

	// DefaultFetchTimeout bounds a single fetch.
	DefaultFetchTimeout = 30 * time.Second
)

// Option configures an Engine.
type Option func(*Engine)

// WithMaxSeenURLs sets the visit budget. New rejects values below 1.
func WithMaxSeenURLs(n int) Option {
	return func(e *Engine) {
		e.maxSeenURLs = n
	}
}

// WithWorkers sets the number of URLs fetched concurrently per round.
// Values below 1 are treated as 1.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = max(n, 1)
	}
}

// WithFetchTimeout bounds each fetch. Zero disables the per-fetch timeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.fetchTimeout = max(d, 0)
	}
}

// WithDeadline stops the crawl after d of wall-clock time. Fetches in
// flight at expiry are recorded as failures. Zero means no deadline.
func WithDeadline(d time.Duration) Option {
	return func(e *Engine) {
		e.deadline = max(d, 0)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithScopeOptions passes options to the scope filter.
func WithScopeOptions(opts ...scope.Option) Option {
	return func(e *Engine) {
		e.scopeOpts = append(e.scopeOpts, opts...)
	}
}

// WithIgnorePatterns skips links whose path matches any glob pattern
// (e.g. "/admin/*", "*.pdf", "/logout").
func WithIgnorePatterns(patterns []string) Option {
	return func(e *Engine) {
		e.paths.ignore = patterns
	}
}

// WithFollowPatterns only follows links whose path matches at least one
// glob pattern. The start URL is always fetched.
func WithFollowPatterns(patterns []string) Option {
	return func(e *Engine) {
		e.paths.follow = patterns
	}
}

// WithObserver registers a callback invoked for every crawl event.
func WithObserver(fn func(Event)) Option {
	return func(e *Engine) {
		e.observer = fn
	}
}
