package scope

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// Reason explains the outcome of Filter.Accept.
type Reason int

const (
	// ReasonAccepted means the candidate is in scope.
	ReasonAccepted Reason = iota

	// ReasonParse means the candidate is not a valid URL.
	ReasonParse

	// ReasonScheme means the scheme is not http or https.
	ReasonScheme

	// ReasonScope means the host is outside the scope host.
	ReasonScope
)

// String returns a short name for the reason.
func (r Reason) String() string {
	switch r {
	case ReasonAccepted:
		return "accepted"
	case ReasonParse:
		return "parse"
	case ReasonScheme:
		return "scheme"
	case ReasonScope:
		return "scope"
	default:
		return "unknown"
	}
}

// Decision is the result of filtering one candidate link.
type Decision struct {
	// URL is the canonical absolute URL. Empty unless accepted.
	URL string

	// Reason is ReasonAccepted or the reason for rejection.
	Reason Reason

	// Err holds the parse error for ReasonParse.
	Err error
}

// Accepted reports whether the candidate passed the filter.
func (d Decision) Accepted() bool {
	return d.Reason == ReasonAccepted
}

// supportedSchemes are the only schemes the crawler follows.
var supportedSchemes = map[string]bool{
	"http":  true,
	"https": true,
}

// Filter is the URL normalizer and scope test for one crawl.
// It is immutable after New and safe for concurrent use.
type Filter struct {
	// base is the canonical start URL. Relative links resolve against it.
	base *url.URL

	// scopeHost is derived once from base and never recomputed.
	scopeHost string

	// strict requires a label boundary before the scope host.
	strict bool

	// registrable derives the scope host as the registrable domain (eTLD+1).
	registrable bool
}

// Option configures a Filter.
type Option func(*Filter)

// WithStrictSubdomain restricts scope to the scope host itself and its
// subdomains: host == scope || host ends with "." + scope.
func WithStrictSubdomain(strict bool) Option {
	return func(f *Filter) {
		f.strict = strict
	}
}

// WithRegistrableDomain derives the scope host from the public suffix list,
// so a crawl started at "blog.example.co.uk" covers all of "example.co.uk".
// Hosts without a known public suffix keep the default derivation.
func WithRegistrableDomain(registrable bool) Option {
	return func(f *Filter) {
		f.registrable = registrable
	}
}

// New validates the start URL and builds a Filter for it.
// It returns ErrInvalidStartURL or ErrNoHost (wrapped) for unusable input.
func New(startURL string, opts ...Option) (*Filter, error) {
	u, err := url.Parse(strings.TrimSpace(startURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStartURL, err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q", ErrNoHost, startURL)
	}

	f := &Filter{}
	for _, opt := range opts {
		opt(f)
	}

	f.base = canonical(u)
	f.scopeHost = f.deriveScopeHost(f.base.Hostname())

	return f, nil
}

// deriveScopeHost computes the scope host from the normalized start host.
func (f *Filter) deriveScopeHost(host string) string {
	if f.registrable {
		if domain, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
			return domain
		}
	}
	return strings.TrimPrefix(host, "www.")
}

// ScopeHost returns the host suffix used for scope decisions.
func (f *Filter) ScopeHost() string {
	return f.scopeHost
}

// StartURL returns the canonical start URL.
func (f *Filter) StartURL() string {
	return f.base.String()
}

// Host returns the start URL host, including a port if one was given.
func (f *Filter) Host() string {
	return f.base.Host
}

// Accept normalizes a raw href and decides whether it is in scope.
func (f *Filter) Accept(candidate string) Decision {
	u, err := url.Parse(strings.TrimSpace(candidate))
	if err != nil {
		return Decision{Reason: ReasonParse, Err: err}
	}

	if u.Scheme == "" && u.Host == "" {
		u = f.resolve(u.Path)
	} else if u.Scheme == "" {
		// Scheme-relative link ("//host/path") inherits the start scheme.
		u.Scheme = f.base.Scheme
	}

	if !supportedSchemes[strings.ToLower(u.Scheme)] {
		return Decision{Reason: ReasonScheme}
	}

	c := canonical(u)
	if !f.InScope(c.Hostname()) {
		return Decision{Reason: ReasonScope}
	}

	return Decision{URL: c.String(), Reason: ReasonAccepted}
}

// InScope reports whether a normalized host belongs to the crawl.
func (f *Filter) InScope(host string) bool {
	if host == "" {
		return false
	}
	if f.strict {
		return host == f.scopeHost || strings.HasSuffix(host, "."+f.scopeHost)
	}
	return strings.HasSuffix(host, f.scopeHost)
}

// resolve substitutes a relative path onto the start URL.
// The candidate's query and fragment are not carried over.
func (f *Filter) resolve(path string) *url.URL {
	if len(path) <= 1 {
		return cloneURL(f.base)
	}
	ref := &url.URL{Path: "/" + strings.TrimPrefix(path, "/")}
	return f.base.ResolveReference(ref)
}

// Normalize returns the canonical form of an absolute URL: lower-case scheme
// and host, IDNA host encoding, no fragment, and "/" for an empty path.
func Normalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: %q", ErrNoHost, raw)
	}
	return canonical(u).String(), nil
}

// canonical returns a normalized copy of u.
func canonical(u *url.URL) *url.URL {
	c := cloneURL(u)
	c.Scheme = strings.ToLower(c.Scheme)
	c.Host = normalizeHostPort(c.Host)
	c.Fragment = ""
	c.RawFragment = ""
	if c.Path == "" && c.Opaque == "" {
		c.Path = "/"
		c.RawPath = ""
	}
	return c
}

// normalizeHostPort lower-cases and IDNA-encodes the host part of a
// host[:port] string. Hosts IDNA rejects are only lower-cased.
func normalizeHostPort(hostport string) string {
	host, port := hostport, ""
	if i := strings.LastIndexByte(hostport, ':'); i != -1 && !strings.HasSuffix(hostport, "]") {
		host, port = hostport[:i], hostport[i:]
	}
	host = strings.ToLower(host)
	if !strings.HasPrefix(host, "[") {
		if ascii, err := idna.ToASCII(host); err == nil {
			host = ascii
		}
	}
	return host + port
}

func cloneURL(u *url.URL) *url.URL {
	c := *u
	if u.User != nil {
		user := *u.User
		c.User = &user
	}
	return &c
}
