package config

import (
	"maps"
	"strings"
)

// SiteConfig customizes crawling of one site.
type SiteConfig struct {
	// Cookie is sent with every request, e.g. "name1=value1; name2=value2".
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string `yaml:"headers,omitempty"`

	// MaxSeenURLs overrides the default visit budget when the budget is not
	// given on the command line.
	MaxSeenURLs int `yaml:"maxSeenURLs,omitempty"`

	// IgnorePatterns are glob patterns for URL paths that are never queued.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns, when set, restrict queuing to matching URL paths.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`

	// Render turns on headless browser rendering for the site.
	Render bool `yaml:"render,omitempty"`

	// WaitSelector is the CSS selector the renderer waits for.
	WaitSelector string `yaml:"waitSelector,omitempty"`
}

// File is the structure of the .scopecrawl configuration file.
type File struct {
	// Sites maps hosts (without scheme, e.g. "example.com") to their settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every site unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for host merged over Defaults.
// A host with a leading "www." also matches an entry without it.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)

	host = strings.ToLower(host)
	site, ok := cf.Sites[host]
	if !ok {
		site, ok = cf.Sites[strings.TrimPrefix(host, "www.")]
	}
	if !ok {
		return result
	}

	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if site.MaxSeenURLs != 0 {
		result.MaxSeenURLs = site.MaxSeenURLs
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(site.Headers))
		}
		maps.Copy(result.Headers, site.Headers)
	}
	if len(site.IgnorePatterns) > 0 {
		result.IgnorePatterns = site.IgnorePatterns
	}
	if len(site.FollowPatterns) > 0 {
		result.FollowPatterns = site.FollowPatterns
	}
	if site.Render {
		result.Render = true
	}
	if site.WaitSelector != "" {
		result.WaitSelector = site.WaitSelector
	}
	return result
}
