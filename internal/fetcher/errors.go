package fetcher

import (
	"errors"
	"fmt"
)

// Sentinel causes wrapped by FetchError.
var (
	// ErrStatus is returned for responses outside the 2xx range.
	ErrStatus = errors.New("unexpected HTTP status")

	// ErrNotHTML is returned when the response is not an HTML document.
	ErrNotHTML = errors.New("response is not HTML")

	// ErrBodyTooLarge is returned when the body exceeds the size limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrRendererNotStarted is returned by ChromedpRenderer.Fetch before Start.
	ErrRendererNotStarted = errors.New("renderer not started")

	// ErrNoPage is returned when a fetcher reports neither a page nor an error.
	ErrNoPage = errors.New("fetcher returned no page")
)

// FetchError reports that a URL could not be turned into a page.
// The crawler logs it and abandons the URL.
type FetchError struct {
	// URL is the URL that was requested.
	URL string

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %v (status %d)", e.URL, e.Err, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// wrap returns err as a *FetchError for url, leaving existing ones intact.
func wrap(url string, err error) error {
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	return &FetchError{URL: url, Err: err}
}
