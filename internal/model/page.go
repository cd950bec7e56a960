package model

import (
	"encoding/hex"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
)

// MaxPageSize is the maximum size of a page body kept in memory.
// Larger bodies are truncated to this size.
const MaxPageSize = 5 * 1024 * 1024 // 5 MB

// Page is a fetched HTML document.
// Fetchers fill it in; the crawler only reads Body and URL.
type Page struct {
	// URL is the URL that was requested.
	URL string `json:"url"`

	// FinalURL is the URL after redirects (or the browser location after
	// rendering). Equal to URL when no redirect happened.
	FinalURL string `json:"final_url,omitempty"`

	// StatusCode is the HTTP response status code.
	// Rendered pages report 200 because the browser does not expose it.
	StatusCode int `json:"status_code"`

	// ContentType is the MIME type of the response.
	ContentType string `json:"content_type"`

	// Headers contains the HTTP response headers. Nil for rendered pages.
	Headers http.Header `json:"headers,omitempty"`

	// Body is the (decoded) response body or the rendered DOM.
	Body []byte `json:"-"`

	// Hash is the hex encoded SHA3-256 digest of Body.
	Hash string `json:"hash"`

	// Rendered reports whether the body came from a headless browser.
	Rendered bool `json:"rendered"`

	// FetchedAt is when the fetch completed.
	FetchedAt time.Time `json:"fetched_at"`

	// Latency is the time spent fetching the page.
	Latency time.Duration `json:"latency"`
}

// ComputeHash calculates and sets the digest of the page body.
// This should be called after setting the Body field.
func (p *Page) ComputeHash() {
	if len(p.Body) == 0 {
		p.Hash = ""
		return
	}

	sum := sha3.Sum256(p.Body)
	p.Hash = hex.EncodeToString(sum[:])
}

// TruncateBody ensures the body doesn't exceed MaxPageSize.
func (p *Page) TruncateBody() {
	if len(p.Body) > MaxPageSize {
		p.Body = p.Body[:MaxPageSize]
	}
}

// IsHTML reports whether the content type indicates an HTML document.
// An empty content type is treated as HTML; fetchers sniff the body before
// leaving it empty.
func (p *Page) IsHTML() bool {
	return IsHTMLContentType(p.ContentType)
}

// IsHTMLContentType reports whether a Content-Type header value names HTML.
func IsHTMLContentType(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
