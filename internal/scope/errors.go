package scope

import "errors"

// Start URL validation errors.
// Both are configuration errors: the crawl cannot begin.
var (
	// ErrInvalidStartURL is returned when the start URL cannot be parsed.
	ErrInvalidStartURL = errors.New("invalid start URL")

	// ErrNoHost is returned when the start URL parses but has no host
	// component, e.g. "example.com" without a scheme.
	ErrNoHost = errors.New("start URL has no host")
)
