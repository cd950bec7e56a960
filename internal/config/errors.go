package config

import "errors"

// Configuration validation errors returned by Config.Validate.
// Callers compare them with errors.Is.
var (
	// ErrNoStartURL is returned when no start URL was given.
	ErrNoStartURL = errors.New("no start URL specified")

	// ErrInvalidMaxSeenURLs is returned when the visit budget is not a
	// positive integer.
	ErrInvalidMaxSeenURLs = errors.New("invalid max_seen_urls: must be a positive integer")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidTimeout is returned when the per-fetch timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDeadline is returned when the crawl deadline is negative.
	// Zero disables the deadline.
	ErrInvalidDeadline = errors.New("invalid deadline: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidReportFormat is returned for report formats other than
	// text, json and markdown.
	ErrInvalidReportFormat = errors.New("invalid report format: must be text, json or markdown")

	// ErrConflictingProxy is returned when both --proxy and --tor are set.
	ErrConflictingProxy = errors.New("conflicting proxy settings: --proxy and --tor cannot be used together")
)
