package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

// TestNewConfig documents the defaults.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	if cfg.MaxSeenURLs != 10 {
		t.Errorf("expected MaxSeenURLs to be 10, got %d", cfg.MaxSeenURLs)
	}
	if cfg.Workers != 1 {
		t.Errorf("expected Workers to be 1, got %d", cfg.Workers)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("expected Timeout to be 30s, got %v", cfg.Timeout)
	}
	if cfg.Deadline != 0 {
		t.Errorf("expected no deadline, got %v", cfg.Deadline)
	}
	if cfg.TorStartupTimeout != 3*time.Minute {
		t.Errorf("expected TorStartupTimeout to be 3m, got %v", cfg.TorStartupTimeout)
	}
	if cfg.ReportFormat != "text" {
		t.Errorf("expected ReportFormat to be text, got %q", cfg.ReportFormat)
	}
	if cfg.OutputDir != "." {
		t.Errorf("expected OutputDir to be '.', got %q", cfg.OutputDir)
	}
	if !cfg.SaveToDB || cfg.DBDir != XDGDataDir() {
		t.Errorf("expected archiving to XDG data dir, got SaveToDB=%v DBDir=%q", cfg.SaveToDB, cfg.DBDir)
	}
	if cfg.UseTor || cfg.Render || cfg.StrictScope {
		t.Error("expected optional features to be off")
	}
}

// TestConfigValidate tests one validation rule per case.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{name: "valid", modify: func(*Config) {}},
		{name: "empty start URL", modify: func(c *Config) { c.StartURL = "" }, want: ErrNoStartURL},
		{name: "blank start URL", modify: func(c *Config) { c.StartURL = "   " }, want: ErrNoStartURL},
		{name: "zero budget", modify: func(c *Config) { c.MaxSeenURLs = 0 }, want: ErrInvalidMaxSeenURLs},
		{name: "negative budget", modify: func(c *Config) { c.MaxSeenURLs = -3 }, want: ErrInvalidMaxSeenURLs},
		{name: "zero workers", modify: func(c *Config) { c.Workers = 0 }, want: ErrInvalidWorkers},
		{name: "zero timeout", modify: func(c *Config) { c.Timeout = 0 }, want: ErrInvalidTimeout},
		{name: "negative deadline", modify: func(c *Config) { c.Deadline = -time.Second }, want: ErrInvalidDeadline},
		{name: "positive deadline", modify: func(c *Config) { c.Deadline = time.Minute }},
		{name: "negative body size", modify: func(c *Config) { c.MaxBodySize = -1 }, want: ErrInvalidMaxBodySize},
		{name: "json report", modify: func(c *Config) { c.ReportFormat = "json" }},
		{name: "markdown report upper case", modify: func(c *Config) { c.ReportFormat = "Markdown" }},
		{name: "unknown report", modify: func(c *Config) { c.ReportFormat = "xml" }, want: ErrInvalidReportFormat},
		{name: "proxy only", modify: func(c *Config) { c.ProxyAddress = "127.0.0.1:9050" }},
		{
			name: "proxy and tor",
			modify: func(c *Config) {
				c.ProxyAddress = "127.0.0.1:9050"
				c.UseTor = true
			},
			want: ErrConflictingProxy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			cfg.StartURL = "https://example.com/"
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("expected nil error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	newFile := func() *File {
		return &File{
			Defaults: SiteConfig{
				Cookie:         "session=default",
				Headers:        map[string]string{"X-Default": "1", "X-Shared": "default"},
				MaxSeenURLs:    20,
				IgnorePatterns: []string{"/logout"},
			},
			Sites: map[string]SiteConfig{
				"example.com": {
					Headers:        map[string]string{"X-Shared": "site"},
					MaxSeenURLs:    50,
					FollowPatterns: []string{"/docs/*"},
					Render:         true,
					WaitSelector:   "#app",
				},
			},
		}
	}

	t.Run("returns defaults when site not found", func(t *testing.T) {
		t.Parallel()

		got := newFile().GetSiteConfig("other.org")
		if got.Cookie != "session=default" || got.MaxSeenURLs != 20 || got.Render {
			t.Errorf("unexpected config: %+v", got)
		}
	})

	t.Run("merges site over defaults", func(t *testing.T) {
		t.Parallel()

		got := newFile().GetSiteConfig("example.com")
		if got.Cookie != "session=default" {
			t.Errorf("empty site cookie should keep default, got %q", got.Cookie)
		}
		if got.MaxSeenURLs != 50 {
			t.Errorf("MaxSeenURLs = %d, want 50", got.MaxSeenURLs)
		}
		if got.Headers["X-Default"] != "1" || got.Headers["X-Shared"] != "site" {
			t.Errorf("Headers = %v", got.Headers)
		}
		if !slices.Equal(got.IgnorePatterns, []string{"/logout"}) {
			t.Errorf("IgnorePatterns = %v", got.IgnorePatterns)
		}
		if !slices.Equal(got.FollowPatterns, []string{"/docs/*"}) {
			t.Errorf("FollowPatterns = %v", got.FollowPatterns)
		}
		if !got.Render || got.WaitSelector != "#app" {
			t.Errorf("render settings = %v %q", got.Render, got.WaitSelector)
		}
	})

	t.Run("www host matches bare entry", func(t *testing.T) {
		t.Parallel()

		if got := newFile().GetSiteConfig("WWW.Example.com"); got.MaxSeenURLs != 50 {
			t.Errorf("MaxSeenURLs = %d, want 50", got.MaxSeenURLs)
		}
	})

	t.Run("does not modify defaults", func(t *testing.T) {
		t.Parallel()

		f := newFile()
		_ = f.GetSiteConfig("example.com")
		if f.Defaults.Headers["X-Shared"] != "default" {
			t.Errorf("defaults were modified: %v", f.Defaults.Headers)
		}
	})

	t.Run("nil sites map", func(t *testing.T) {
		t.Parallel()

		f := &File{Defaults: SiteConfig{Cookie: "a=b"}}
		if got := f.GetSiteConfig("example.com"); got.Cookie != "a=b" {
			t.Errorf("Cookie = %q", got.Cookie)
		}
	})
}

func TestConfigSite(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	if got := cfg.Site("example.com"); got.MaxSeenURLs != 0 || got.Headers != nil {
		t.Errorf("expected zero SiteConfig without a file, got %+v", got)
	}

	cfg.SiteConfigs = &File{Sites: map[string]SiteConfig{"example.com": {MaxSeenURLs: 3}}}
	if got := cfg.Site("example.com"); got.MaxSeenURLs != 3 {
		t.Errorf("MaxSeenURLs = %d, want 3", got.MaxSeenURLs)
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		content := strings.Join([]string{
			"defaults:",
			"  maxSeenURLs: 25",
			"  headers:",
			"    Accept-Language: en",
			"sites:",
			"  example.com:",
			"    cookie: \"session=abc\"",
			"    render: true",
			"    ignorePatterns:",
			"      - \"/admin/*\"",
			"      - \"*.pdf\"",
		}, "\n")

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cf.Defaults.MaxSeenURLs != 25 || cf.Defaults.Headers["Accept-Language"] != "en" {
			t.Errorf("Defaults = %+v", cf.Defaults)
		}
		site := cf.Sites["example.com"]
		if site.Cookie != "session=abc" || !site.Render {
			t.Errorf("site = %+v", site)
		}
		if !slices.Equal(site.IgnorePatterns, []string{"/admin/*", "*.pdf"}) {
			t.Errorf("IgnorePatterns = %v", site.IgnorePatterns)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("sites: [unclosed"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("initializes nil Sites map", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "empty.yaml")
		if err := os.WriteFile(path, []byte("defaults:\n  cookie: a=b\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cf.Sites == nil {
			t.Error("expected Sites to be initialized")
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
			t.Fatal(err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("FindConfigFile = %q, want %q", got, path)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "missing")); got != "" {
			t.Errorf("FindConfigFile = %q, want empty", got)
		}
	})
}

func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{
		"data":   XDGDataDir(),
		"config": XDGConfigDir(),
	} {
		if dir == "" || filepath.Base(dir) != AppName {
			t.Errorf("%s dir = %q, want a path ending in %s", name, dir, AppName)
		}
	}
}
