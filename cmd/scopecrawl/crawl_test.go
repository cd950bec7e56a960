package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/scopecrawl/internal/config"
	"github.com/nao1215/scopecrawl/internal/database"
	"github.com/nao1215/scopecrawl/internal/proxy"
	"github.com/nao1215/scopecrawl/internal/report"
	"github.com/nao1215/scopecrawl/internal/scope"
	"github.com/nao1215/scopecrawl/internal/sink"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newSite serves a four page site with one off-site link.
func newSite(t *testing.T) *httptest.Server {
	t.Helper()

	pages := map[string]string{
		"/":  `<a href="/a">a</a><a href="/b">b</a><a href="https://elsewhere.test/x">x</a>`,
		"/a": `<title>Page A</title><a href="/c">c</a><a href="/">home</a>`,
		"/b": `<a href="mailto:me@example.com">mail</a>`,
		"/c": `<p>leaf</p>`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<html><body>%s</body></html>", body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, startURL string) *config.Config {
	t.Helper()

	cfg := config.NewConfig()
	cfg.StartURL = startURL
	cfg.OutputDir = t.TempDir()
	cfg.DBDir = t.TempDir()
	cfg.Timeout = 5 * time.Second
	cfg.SiteConfigs = &config.File{Sites: map[string]config.SiteConfig{}}
	return cfg
}

// TestNewCrawlCmd tests the crawl command creation.
func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	if cmd.Name() != "crawl" {
		t.Errorf("expected name 'crawl', got %q", cmd.Name())
	}
	if cmd.Args == nil {
		t.Error("expected Args validator")
	}

	for _, name := range []string{
		"workers", "timeout", "deadline", "user-agent", "max-body-size",
		"render", "render-timeout", "wait-selector", "proxy", "tor", "tor-timeout",
		"strict-scope", "registrable-domain", "config", "output-dir",
		"report", "report-file", "no-archive", "db-dir",
	} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}

	if err := cmd.Args(cmd, nil); err == nil {
		t.Error("expected error without a start URL")
	}
	if err := cmd.Args(cmd, []string{"a", "1", "extra"}); err == nil {
		t.Error("expected error with three arguments")
	}
}

func TestBuildCrawlConfig(t *testing.T) {
	t.Parallel()

	writeConfig := func(t *testing.T) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), ".scopecrawl")
		content := "defaults:\n  maxSeenURLs: 7\nsites:\n  example.com:\n    maxSeenURLs: 42\n    render: true\n    waitSelector: \"#app\"\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		return path
	}

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"-c", writeConfig(t)}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildCrawlConfig(cmd, []string{"https://other.org"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.StartURL != "https://other.org" {
			t.Errorf("StartURL = %q", cfg.StartURL)
		}
		if cfg.MaxSeenURLs != 7 {
			t.Errorf("MaxSeenURLs = %d, want the file default 7", cfg.MaxSeenURLs)
		}
		if cfg.Workers != 1 || !cfg.SaveToDB || cfg.Render {
			t.Errorf("unexpected config: %+v", cfg)
		}
	})

	t.Run("site settings apply", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"-c", writeConfig(t)}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildCrawlConfig(cmd, []string{"https://www.example.com/start"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.MaxSeenURLs != 42 || !cfg.Render || cfg.WaitSelector != "#app" {
			t.Errorf("site settings not applied: %+v", cfg)
		}
	})

	t.Run("argument and flags win over the file", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{
			"-c", writeConfig(t),
			"--workers", "4",
			"--deadline", "2m",
			"--wait-selector", "main",
			"--strict-scope",
			"--no-archive",
			"--report", "markdown",
		}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildCrawlConfig(cmd, []string{"https://example.com", "5"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.MaxSeenURLs != 5 {
			t.Errorf("MaxSeenURLs = %d, want 5", cfg.MaxSeenURLs)
		}
		if cfg.Workers != 4 || cfg.Deadline != 2*time.Minute || cfg.WaitSelector != "main" {
			t.Errorf("flags not applied: %+v", cfg)
		}
		if !cfg.StrictScope || cfg.SaveToDB || cfg.ReportFormat != "markdown" {
			t.Errorf("flags not applied: %+v", cfg)
		}
	})

	t.Run("invalid budget", func(t *testing.T) {
		t.Parallel()

		for _, arg := range []string{"0", "-1", "ten", "1.5"} {
			cmd := NewCrawlCmd()
			_, err := buildCrawlConfig(cmd, []string{"https://example.com", arg})
			if !errors.Is(err, errConfiguration) || !errors.Is(err, config.ErrInvalidMaxSeenURLs) {
				t.Errorf("budget %q: err = %v", arg, err)
			}
		}
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"-c", filepath.Join(t.TempDir(), "missing.yaml")}); err != nil {
			t.Fatal(err)
		}
		_, err := buildCrawlConfig(cmd, []string{"https://example.com"})
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("err = %v, want ErrConfigNotFound", err)
		}
	})
}

func TestRunCrawlCmdConfigurationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want error
	}{
		{name: "non-numeric budget", args: []string{"https://example.com", "many"}, want: config.ErrInvalidMaxSeenURLs},
		{name: "zero workers", args: []string{"https://example.com", "--workers", "0"}, want: config.ErrInvalidWorkers},
		{name: "unknown report", args: []string{"https://example.com", "--report", "xml"}, want: config.ErrInvalidReportFormat},
		{name: "proxy and tor", args: []string{"https://example.com", "--proxy", "127.0.0.1:9050", "--tor"}, want: config.ErrConflictingProxy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := NewCrawlCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(append(tt.args, "-c", writeEmptyConfig(t)))

			err := cmd.Execute()
			if !errors.Is(err, errConfiguration) || !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want configuration error wrapping %v", err, tt.want)
			}
		})
	}
}

func writeEmptyConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".scopecrawl")
	if err := os.WriteFile(path, []byte("{}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunCrawl(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	cfg := testConfig(t, srv.URL)
	cfg.ReportFormat = "json"

	var stdout bytes.Buffer
	if err := runCrawl(context.Background(), cfg, &stdout, discardLogger()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	host := strings.TrimPrefix(srv.URL, "http://")
	path := filepath.Join(cfg.OutputDir, sink.Filename(host))
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("result file not written: %v", err)
	}
	want := strings.Join([]string{srv.URL + "/", srv.URL + "/a", srv.URL + "/b", srv.URL + "/c"}, "\n")
	if string(content) != want {
		t.Errorf("result file =\n%s\nwant\n%s", content, want)
	}

	var rep report.JSONReport
	if err := json.Unmarshal(stdout.Bytes(), &rep); err != nil {
		t.Fatalf("stdout is not a JSON report: %v\n%s", err, stdout.String())
	}
	if rep.Result == nil || len(rep.Result.URLs) != 4 {
		t.Fatalf("report = %+v", rep.Result)
	}
	if rep.Result.Visits[1].Title != "Page A" {
		t.Errorf("title = %q", rep.Result.Visits[1].Title)
	}

	db, err := database.Open(cfg.DBDir, database.Options{CreateIfNotExists: false})
	if err != nil {
		t.Fatalf("archive not created: %v", err)
	}
	defer db.Close()
	runs, err := db.ListRuns(context.Background(), "127.0.0.1")
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Visited != 4 {
		t.Errorf("archived runs = %+v", runs)
	}
}

func TestRunCrawlBudget(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	cfg := testConfig(t, srv.URL)
	cfg.MaxSeenURLs = 2
	cfg.SaveToDB = false

	var stdout bytes.Buffer
	if err := runCrawl(context.Background(), cfg, &stdout, discardLogger()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	urls, err := sink.Load(filepath.Join(cfg.OutputDir, sink.Filename(strings.TrimPrefix(srv.URL, "http://"))))
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 2 {
		t.Errorf("got %d URLs, want 2", len(urls))
	}
	if !strings.Contains(stdout.String(), "Budget reached") {
		t.Errorf("expected text summary, got %s", stdout.String())
	}
	if _, err := os.Stat(filepath.Join(cfg.DBDir, database.FileName)); !os.IsNotExist(err) {
		t.Error("archive should not be written when archiving is off")
	}
}

func TestRunCrawlInvalidStartURL(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "https:///no-host")
	err := runCrawl(context.Background(), cfg, io.Discard, discardLogger())
	if !errors.Is(err, errConfiguration) || !errors.Is(err, scope.ErrNoHost) {
		t.Errorf("err = %v, want configuration error wrapping ErrNoHost", err)
	}

	entries, err := os.ReadDir(cfg.OutputDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no output files, got %d", len(entries))
	}
}

func TestRunCrawlInvalidProxy(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "https://example.com")
	cfg.ProxyAddress = "not-an-address"

	err := runCrawl(context.Background(), cfg, io.Discard, discardLogger())
	if !errors.Is(err, errConfiguration) || !errors.Is(err, proxy.ErrInvalidAddress) {
		t.Errorf("err = %v, want configuration error wrapping ErrInvalidAddress", err)
	}
}

func TestRunCrawlUnreachableProxy(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "https://example.com")
	cfg.ProxyAddress = unusedAddress(t)

	err := runCrawl(context.Background(), cfg, io.Discard, discardLogger())
	if !errors.Is(err, proxy.ErrCannotConnect) {
		t.Errorf("err = %v, want ErrCannotConnect", err)
	}
}

// unusedAddress returns a loopback address nothing listens on.
func unusedAddress(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.Listener.Addr().String()
	srv.Close()
	return addr
}

func TestRunCrawlSaveError(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	cfg := testConfig(t, srv.URL)
	cfg.SaveToDB = false

	// A regular file where the output directory should be.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	cfg.OutputDir = blocker

	if err := runCrawl(context.Background(), cfg, io.Discard, discardLogger()); err == nil {
		t.Error("expected an I/O error")
	}
}

func TestRunCrawlCancelled(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	cfg := testConfig(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runCrawl(ctx, cfg, io.Discard, discardLogger())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestWriteReport(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	cfg := testConfig(t, srv.URL)
	cfg.SaveToDB = false
	cfg.ReportFormat = "markdown"
	cfg.ReportFile = filepath.Join(t.TempDir(), "reports", "crawl.md")

	var stdout bytes.Buffer
	if err := runCrawl(context.Background(), cfg, &stdout, discardLogger()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	md, err := os.ReadFile(cfg.ReportFile)
	if err != nil {
		t.Fatalf("report file not written: %v", err)
	}
	if !strings.Contains(string(md), "# Crawl Report") {
		t.Errorf("expected Markdown report, got %s", md)
	}
	if !strings.Contains(stdout.String(), "SCOPECRAWL REPORT") {
		t.Errorf("expected text summary on stdout, got %s", stdout.String())
	}
}

func TestFetchTimeout(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.Timeout = 10 * time.Second
	cfg.RenderTimeout = time.Minute

	if got := fetchTimeout(cfg); got != 10*time.Second {
		t.Errorf("fetchTimeout() = %v, want 10s", got)
	}
	cfg.Render = true
	if got := fetchTimeout(cfg); got != time.Minute {
		t.Errorf("fetchTimeout() with render = %v, want 1m", got)
	}
}

func TestStartHost(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"https://Example.com/path":  "example.com",
		"http://127.0.0.1:8080/":    "127.0.0.1",
		"  https://www.example.com": "www.example.com",
		"no scheme":                 "",
		"://bad":                    "",
	}
	for in, want := range tests {
		if got := startHost(in); got != want {
			t.Errorf("startHost(%q) = %q, want %q", in, got, want)
		}
	}
}
