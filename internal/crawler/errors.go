package crawler

import "errors"

// Engine construction errors.
var (
	// ErrInvalidMaxSeenURLs is returned when the visit budget is not positive.
	ErrInvalidMaxSeenURLs = errors.New("max seen URLs must be a positive integer")

	// ErrNilFetcher is returned when no fetcher is given.
	ErrNilFetcher = errors.New("fetcher is required")

	// errDeadline is the cancellation cause set by WithDeadline.
	errDeadline = errors.New("crawl deadline exceeded")
)
