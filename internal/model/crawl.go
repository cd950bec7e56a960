package model

import (
	"fmt"
	"time"
)

// Termination describes why a crawl stopped.
type Termination int

const (
	// TerminationExhausted means the frontier ran empty.
	TerminationExhausted Termination = iota

	// TerminationBudget means the visit budget (max seen URLs) was reached.
	TerminationBudget

	// TerminationDeadline means the wall-clock deadline expired.
	// The fetch in flight at expiry is recorded as a failure.
	TerminationDeadline

	// TerminationCancelled means the caller's context was cancelled.
	TerminationCancelled
)

// String returns the lower-case name of the termination reason.
func (t Termination) String() string {
	switch t {
	case TerminationExhausted:
		return "exhausted"
	case TerminationBudget:
		return "budget"
	case TerminationDeadline:
		return "deadline"
	case TerminationCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Termination) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Termination) UnmarshalText(text []byte) error {
	parsed, err := ParseTermination(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTermination converts the output of Termination.String back into a value.
func ParseTermination(s string) (Termination, error) {
	switch s {
	case "exhausted":
		return TerminationExhausted, nil
	case "budget":
		return TerminationBudget, nil
	case "deadline":
		return TerminationDeadline, nil
	case "cancelled":
		return TerminationCancelled, nil
	default:
		return 0, fmt.Errorf("unknown termination %q", s)
	}
}

// FailureKind classifies a recoverable per-URL or per-page error.
type FailureKind string

const (
	// FailureFetch is a network, HTTP status or rendering failure.
	// The URL is abandoned and not recorded as seen.
	FailureFetch FailureKind = "fetch"

	// FailureExtraction is malformed content that stopped link scanning
	// for one page. The page itself still counts as visited.
	FailureExtraction FailureKind = "extraction"
)

// Failure records a URL the crawler could not fully process.
type Failure struct {
	// URL is the URL being processed when the error happened.
	URL string `json:"url"`

	// Kind classifies the failure.
	Kind FailureKind `json:"kind"`

	// Message is the error text.
	Message string `json:"message"`
}

// Visit is the metadata recorded for one successfully fetched URL.
type Visit struct {
	// URL is the visited URL exactly as it appears in CrawlResult.URLs.
	URL string `json:"url"`

	// Title is the document title, if any.
	Title string `json:"title,omitempty"`

	// StatusCode is the HTTP status code of the fetch.
	StatusCode int `json:"status_code"`

	// Hash is the content digest of the fetched body.
	Hash string `json:"hash,omitempty"`

	// Links is the number of in-scope links newly queued from this page.
	Links int `json:"links"`

	// Rendered reports whether a headless browser produced the content.
	Rendered bool `json:"rendered"`

	// Latency is the fetch duration.
	Latency time.Duration `json:"latency"`
}

// CrawlResult is the outcome of one crawl.
type CrawlResult struct {
	// StartURL is the canonical seed URL.
	StartURL string `json:"start_url"`

	// ScopeHost is the host suffix used for scope decisions.
	ScopeHost string `json:"scope_host"`

	// MaxSeenURLs is the visit budget the crawl ran with.
	MaxSeenURLs int `json:"max_seen_urls"`

	// URLs lists every successfully fetched URL in visit order.
	// This is the crawl's primary output.
	URLs []string `json:"urls"`

	// Visits holds per-URL metadata, index aligned with URLs.
	Visits []Visit `json:"visits"`

	// Failures lists recoverable errors in the order they happened.
	Failures []Failure `json:"failures,omitempty"`

	// Rejected counts candidate links dropped by the scope filter
	// (parse errors, unsupported schemes, out-of-scope hosts, path patterns).
	Rejected int `json:"rejected"`

	// Termination is why the crawl stopped.
	Termination Termination `json:"termination"`

	// StartedAt is when the crawl started.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the crawl finished.
	FinishedAt time.Time `json:"finished_at"`
}

// NewCrawlResult creates an empty result for the given seed.
func NewCrawlResult(startURL, scopeHost string, maxSeenURLs int) *CrawlResult {
	return &CrawlResult{
		StartURL:    startURL,
		ScopeHost:   scopeHost,
		MaxSeenURLs: maxSeenURLs,
		URLs:        make([]string, 0),
		Visits:      make([]Visit, 0),
		Failures:    make([]Failure, 0),
		StartedAt:   time.Now(),
	}
}

// AddVisit appends a successful visit.
func (r *CrawlResult) AddVisit(v Visit) {
	r.URLs = append(r.URLs, v.URL)
	r.Visits = append(r.Visits, v)
}

// AddFailure appends a recoverable failure.
func (r *CrawlResult) AddFailure(url string, kind FailureKind, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	r.Failures = append(r.Failures, Failure{URL: url, Kind: kind, Message: msg})
}

// FailureCount returns the number of failures of the given kind.
func (r *CrawlResult) FailureCount(kind FailureKind) int {
	n := 0
	for _, f := range r.Failures {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// Duration returns how long the crawl ran.
func (r *CrawlResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
