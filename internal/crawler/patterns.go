package crawler

import (
	"net/url"
	"path"
	"strings"
)

// pathFilter narrows the crawl with glob patterns on the URL path.
// Ignore patterns win over follow patterns; with no follow patterns every
// path that is not ignored is allowed.
type pathFilter struct {
	ignore []string
	follow []string
}

// allow reports whether the path of rawURL passes the patterns.
func (p pathFilter) allow(rawURL string) bool {
	if len(p.ignore) == 0 && len(p.follow) == 0 {
		return true
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	urlPath := u.Path
	if urlPath == "" {
		urlPath = "/"
	}

	for _, pattern := range p.ignore {
		if matchPattern(pattern, urlPath) {
			return false
		}
	}

	if len(p.follow) == 0 {
		return true
	}
	for _, pattern := range p.follow {
		if matchPattern(pattern, urlPath) {
			return true
		}
	}
	return false
}

// matchPattern matches a URL path against a glob pattern:
//   - "/admin/*" matches "/admin" and everything below it
//   - "*.pdf" matches any path ending in ".pdf"
//   - other patterns use path.Match, and patterns without a slash are
//     also tried against the last path segment
func matchPattern(pattern, urlPath string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/") {
			return true
		}
	}

	if ext, ok := strings.CutPrefix(pattern, "*."); ok && !strings.ContainsAny(ext, "*?[") {
		if strings.HasSuffix(urlPath, "."+ext) {
			return true
		}
	}

	if matched, err := path.Match(pattern, urlPath); err == nil && matched {
		return true
	}

	if strings.ContainsAny(pattern, "*?[") && !strings.Contains(pattern, "/") {
		if matched, err := path.Match(pattern, path.Base(urlPath)); err == nil && matched {
			return true
		}
	}
	return false
}
