package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/nao1215/scopecrawl/internal/model"
)

// Fetcher retrieves one page.
// Implementations must be safe for concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*model.Page, error)
}

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "scopecrawl/1.0 (+https://github.com/nao1215/scopecrawl)"

// maxRedirects is the redirect limit of the HTTP client.
const maxRedirects = 10

// HTTPFetcher implements Fetcher with net/http.
type HTTPFetcher struct {
	client       *http.Client
	userAgent    string
	headers      map[string]string
	cookie       string
	timeout      time.Duration
	maxBodyBytes int64
	dialContext  func(ctx context.Context, network, addr string) (net.Conn, error)
	logger       *slog.Logger
}

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(f *HTTPFetcher) {
		if strings.TrimSpace(ua) != "" {
			f.userAgent = ua
		}
	}
}

// WithHeaders adds headers to every request.
func WithHeaders(headers map[string]string) HTTPOption {
	return func(f *HTTPFetcher) {
		for k, v := range headers {
			f.headers[k] = v
		}
	}
}

// WithCookie sends a raw cookie string (e.g. "session=abc") with every request.
func WithCookie(cookie string) HTTPOption {
	return func(f *HTTPFetcher) {
		f.cookie = cookie
	}
}

// WithTimeout sets the client timeout for one request including the body.
func WithTimeout(d time.Duration) HTTPOption {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMaxBodyBytes limits the decoded body size.
func WithMaxBodyBytes(n int64) HTTPOption {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBodyBytes = n
		}
	}
}

// WithDialContext replaces the transport dialer, e.g. with a SOCKS5 proxy.
func WithDialContext(dial func(ctx context.Context, network, addr string) (net.Conn, error)) HTTPOption {
	return func(f *HTTPFetcher) {
		f.dialContext = dial
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) HTTPOption {
	return func(f *HTTPFetcher) {
		f.logger = logger
	}
}

// NewHTTPFetcher creates an HTTP fetcher.
func NewHTTPFetcher(opts ...HTTPOption) *HTTPFetcher {
	f := &HTTPFetcher{
		userAgent:    DefaultUserAgent,
		headers:      make(map[string]string),
		timeout:      30 * time.Second,
		maxBodyBytes: model.MaxPageSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}

	dial := f.dialContext
	if dial == nil {
		dial = (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext
	}

	transport := &http.Transport{
		DialContext:           dial,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		// Bodies are decoded in readBody so brotli is covered too.
		DisableCompression: true,
	}
	if f.dialContext == nil {
		transport.Proxy = http.ProxyFromEnvironment
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	f.client = &http.Client{
		Transport: transport,
		Timeout:   f.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
	return f
}

// Fetch downloads url and returns it as a page.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*model.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, wrap(url, fmt.Errorf("build request: %w", err))
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	if f.cookie != "" {
		req.Header.Set("Cookie", f.cookie)
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, wrap(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // drain for reuse
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: ErrStatus}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !model.IsHTMLContentType(contentType) {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %s", ErrNotHTML, contentType)}
	}

	body, err := f.readBody(resp)
	if err != nil {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: err}
	}

	if contentType == "" {
		contentType = http.DetectContentType(body)
		if !model.IsHTMLContentType(contentType) {
			return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: sniffed %s", ErrNotHTML, contentType)}
		}
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	page := &model.Page{
		URL:         url,
		FinalURL:    finalURL,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Headers:     resp.Header.Clone(),
		Body:        body,
		FetchedAt:   time.Now(),
		Latency:     time.Since(start),
	}
	page.ComputeHash()

	f.logger.Debug("fetched page",
		"url", url,
		"status", resp.StatusCode,
		"bytes", len(body),
		"latency_ms", page.Latency.Milliseconds(),
	)
	return page, nil
}

// readBody decodes and reads the response body up to the size limit.
func (f *HTTPFetcher) readBody(resp *http.Response) ([]byte, error) {
	reader := io.Reader(resp.Body)

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	}

	body, err := io.ReadAll(io.LimitReader(reader, f.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, f.maxBodyBytes)
	}
	return body, nil
}
