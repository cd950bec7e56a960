package config

import (
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "scopecrawl"

	// DefaultMaxSeenURLs is the visit budget when none is given.
	DefaultMaxSeenURLs = 10

	// DefaultWorkers fetches one page at a time, which keeps the result
	// list in strict breadth-first visit order.
	DefaultWorkers = 1

	// DefaultTimeout bounds a single fetch.
	DefaultTimeout = 30 * time.Second

	// DefaultRenderTimeout bounds a single headless browser fetch.
	DefaultRenderTimeout = 60 * time.Second

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultTorStartupTimeout is how long the embedded Tor daemon may take
	// to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultReportFormat is printed to stdout after a crawl.
	DefaultReportFormat = "text"
)

// reportFormats lists the values accepted for Config.ReportFormat.
var reportFormats = []string{"text", "json", "markdown"}

// Config holds all options for one crawl. It is built from CLI flags and
// passed down explicitly.
type Config struct {
	// StartURL is the seed URL. Its host defines the crawl scope.
	StartURL string

	// MaxSeenURLs is the visit budget.
	MaxSeenURLs int

	// Workers is the number of concurrent fetches.
	Workers int

	// Timeout bounds each HTTP fetch.
	Timeout time.Duration

	// Deadline bounds the whole crawl. Zero means no deadline.
	Deadline time.Duration

	// Render fetches pages with a headless browser, falling back to plain
	// HTTP when rendering fails.
	Render bool

	// RenderTimeout bounds each rendered fetch.
	RenderTimeout time.Duration

	// WaitSelector makes the renderer wait for a CSS selector before
	// capturing the DOM.
	WaitSelector string

	// UserAgent overrides the User-Agent header when non-empty.
	UserAgent string

	// MaxBodySize is the largest response body accepted, in bytes.
	// Zero means DefaultMaxBodySize.
	MaxBodySize int64

	// ProxyAddress routes HTTP fetches through a SOCKS5 proxy ("host:port").
	ProxyAddress string

	// UseTor starts an embedded Tor daemon and routes HTTP fetches through it.
	UseTor bool

	// TorStartupTimeout bounds the Tor bootstrap.
	TorStartupTimeout time.Duration

	// StrictScope accepts only the scope host and its true subdomains
	// instead of any host ending with the scope host.
	StrictScope bool

	// RegistrableDomain widens the scope host to the start host's
	// registrable domain (eTLD+1).
	RegistrableDomain bool

	// OutputDir receives the <host>-urls.txt result file.
	OutputDir string

	// ReportFormat selects the report printed after the crawl.
	ReportFormat string

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string

	// DBDir is the crawl archive directory.
	DBDir string

	// SaveToDB archives the result after the crawl.
	SaveToDB bool

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is an explicit path to a .scopecrawl file.
	ConfigFilePath string

	// SiteConfigs holds the loaded .scopecrawl file, if any.
	SiteConfigs *File
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxSeenURLs:       DefaultMaxSeenURLs,
		Workers:           DefaultWorkers,
		Timeout:           DefaultTimeout,
		RenderTimeout:     DefaultRenderTimeout,
		MaxBodySize:       DefaultMaxBodySize,
		TorStartupTimeout: DefaultTorStartupTimeout,
		OutputDir:         ".",
		ReportFormat:      DefaultReportFormat,
		DBDir:             XDGDataDir(),
		SaveToDB:          true,
	}
}

// XDGDataDir returns the data directory, e.g. ~/.local/share/scopecrawl.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the config directory, e.g. ~/.config/scopecrawl.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Site returns the site configuration for host merged over the file's
// defaults. It returns the zero SiteConfig when no file was loaded.
func (c *Config) Site(host string) SiteConfig {
	if c.SiteConfigs == nil {
		return SiteConfig{}
	}
	return c.SiteConfigs.GetSiteConfig(host)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.StartURL) == "" {
		return ErrNoStartURL
	}
	if c.MaxSeenURLs < 1 {
		return ErrInvalidMaxSeenURLs
	}
	if c.Workers < 1 {
		return ErrInvalidWorkers
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Deadline < 0 {
		return ErrInvalidDeadline
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if !slices.Contains(reportFormats, strings.ToLower(c.ReportFormat)) {
		return ErrInvalidReportFormat
	}
	if c.ProxyAddress != "" && c.UseTor {
		return ErrConflictingProxy
	}
	return nil
}
