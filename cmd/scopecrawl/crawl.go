package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/nao1215/scopecrawl/internal/config"
	"github.com/nao1215/scopecrawl/internal/crawler"
	"github.com/nao1215/scopecrawl/internal/database"
	"github.com/nao1215/scopecrawl/internal/fetcher"
	applog "github.com/nao1215/scopecrawl/internal/log"
	"github.com/nao1215/scopecrawl/internal/model"
	"github.com/nao1215/scopecrawl/internal/proxy"
	"github.com/nao1215/scopecrawl/internal/report"
	"github.com/nao1215/scopecrawl/internal/scope"
	"github.com/nao1215/scopecrawl/internal/sink"
	"github.com/spf13/cobra"
)

// errConfiguration marks errors caused by invalid user input.
var errConfiguration = errors.New("configuration error")

func configError(err error) error {
	return fmt.Errorf("%w: %w", errConfiguration, err)
}

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <start_url> [max_seen_urls]",
		Short: "Crawl a site breadth-first within a visit budget",
		Long: `Crawl visits pages breadth-first starting at start_url.

Links are followed only when their host ends with the start URL's host
(a leading "www." is ignored), so subdomains are included. The crawl stops
when max_seen_urls pages (default 10) have been fetched or when no in-scope
links are left. Visited URLs are written one per line to <host>-urls.txt.

Pages that fail to load are logged and skipped; they never stop the crawl.

Examples:
  # Visit up to 10 pages of example.com
  scopecrawl crawl https://example.com

  # Visit up to 200 pages with 4 concurrent fetches
  scopecrawl crawl https://example.com 200 --workers 4

  # Stop after five minutes, keeping what was found
  scopecrawl crawl https://example.com 1000 --deadline 5m

  # Render JavaScript-heavy pages in headless Chrome
  scopecrawl crawl https://app.example.com --render

  # Crawl through Tor
  scopecrawl crawl http://exampleonionaddress.onion --tor

  # Write a Markdown report next to the URL list
  scopecrawl crawl https://example.com --report markdown --report-file report.md`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runCrawlCmd,
	}

	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent fetches")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each fetch")
	cmd.Flags().DurationP("deadline", "d", 0,
		"Stop the crawl after this long and keep partial results (0 disables)")
	cmd.Flags().StringP("user-agent", "u", "",
		"User-Agent header (default "+strconv.Quote(fetcher.DefaultUserAgent)+")")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Largest response body accepted, in bytes")

	cmd.Flags().BoolP("render", "r", false,
		"Render pages in headless Chrome, falling back to plain HTTP on failure")
	cmd.Flags().Duration("render-timeout", config.DefaultRenderTimeout,
		"Timeout for each rendered page")
	cmd.Flags().String("wait-selector", "",
		"CSS selector the renderer waits for before reading the page")

	cmd.Flags().StringP("proxy", "x", "",
		"Route fetches through a SOCKS5 proxy (host:port)")
	cmd.Flags().Bool("tor", false,
		"Start an embedded Tor daemon and route fetches through it")
	cmd.Flags().DurationP("tor-timeout", "T", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	cmd.Flags().Bool("strict-scope", false,
		"Only follow the scope host and its true subdomains")
	cmd.Flags().Bool("registrable-domain", false,
		"Widen the scope to the start host's registrable domain (eTLD+1)")

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .scopecrawl in current or home directory)")
	cmd.Flags().StringP("output-dir", "o", ".",
		"Directory for the <host>-urls.txt file")
	cmd.Flags().StringP("report", "f", config.DefaultReportFormat,
		"Report format: text, json or markdown")
	cmd.Flags().String("report-file", "",
		"Write the report to this file instead of stdout")
	cmd.Flags().Bool("no-archive", false,
		"Do not save the crawl to the history archive")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history archive")

	return cmd
}

func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildCrawlConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return configError(err)
	}

	logger := applog.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, cmd.OutOrStdout(), logger)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildCrawlConfig creates a Config from the arguments, flags and the
// .scopecrawl file. Arguments and flags win over the file.
func buildCrawlConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	cfg.StartURL = args[0]
	budgetGiven := len(args) > 1
	if budgetGiven {
		n, err := strconv.Atoi(strings.TrimSpace(args[1]))
		if err != nil || n < 1 {
			return nil, configError(fmt.Errorf("%w: got %q", config.ErrInvalidMaxSeenURLs, args[1]))
		}
		cfg.MaxSeenURLs = n
	}

	var err error
	if cfg.Workers, err = flags.GetInt("workers"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.Deadline, err = flags.GetDuration("deadline"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.Render, err = flags.GetBool("render"); err != nil {
		return nil, err
	}
	if cfg.RenderTimeout, err = flags.GetDuration("render-timeout"); err != nil {
		return nil, err
	}
	if cfg.WaitSelector, err = flags.GetString("wait-selector"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.UseTor, err = flags.GetBool("tor"); err != nil {
		return nil, err
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return nil, err
	}
	if cfg.StrictScope, err = flags.GetBool("strict-scope"); err != nil {
		return nil, err
	}
	if cfg.RegistrableDomain, err = flags.GetBool("registrable-domain"); err != nil {
		return nil, err
	}
	if cfg.OutputDir, err = flags.GetString("output-dir"); err != nil {
		return nil, err
	}
	if cfg.ReportFormat, err = flags.GetString("report"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("report-file"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	noArchive, err := flags.GetBool("no-archive")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noArchive
	cfg.Verbose = getVerboseFlag(cmd)

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if err := loadSiteConfigs(cfg); err != nil {
		return nil, err
	}

	site := cfg.Site(startHost(cfg.StartURL))
	if !budgetGiven && site.MaxSeenURLs > 0 {
		cfg.MaxSeenURLs = site.MaxSeenURLs
	}
	if site.Render {
		cfg.Render = true
	}
	if cfg.WaitSelector == "" {
		cfg.WaitSelector = site.WaitSelector
	}

	return cfg, nil
}

// loadSiteConfigs loads the .scopecrawl file. A missing file is an error
// only when its path was given explicitly.
func loadSiteConfigs(cfg *config.Config) error {
	path := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case path != "":
		sites, err := config.LoadConfigFile(path)
		if err != nil {
			return fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cfg.SiteConfigs = sites
	case cfg.ConfigFilePath != "":
		return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}
	return nil
}

// startHost returns the lower-case host of rawURL, or "" if it has none.
func startHost(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func scopeOptions(cfg *config.Config) []scope.Option {
	return []scope.Option{
		scope.WithStrictSubdomain(cfg.StrictScope),
		scope.WithRegistrableDomain(cfg.RegistrableDomain),
	}
}

// runCrawl runs one crawl and writes its outputs: the URL file, the report
// and the archive entry.
func runCrawl(ctx context.Context, cfg *config.Config, stdout io.Writer, logger *slog.Logger) error {
	// Reject bad start URLs before starting Tor or a browser.
	if _, err := scope.New(cfg.StartURL, scopeOptions(cfg)...); err != nil {
		return configError(err)
	}

	site := cfg.Site(startHost(cfg.StartURL))

	f, cleanup, err := buildFetcher(ctx, cfg, site, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	rejected := make(map[string]int)
	engine, err := crawler.New(cfg.StartURL, f,
		crawler.WithMaxSeenURLs(cfg.MaxSeenURLs),
		crawler.WithWorkers(cfg.Workers),
		crawler.WithFetchTimeout(fetchTimeout(cfg)),
		crawler.WithDeadline(cfg.Deadline),
		crawler.WithLogger(logger),
		crawler.WithScopeOptions(scopeOptions(cfg)...),
		crawler.WithIgnorePatterns(site.IgnorePatterns),
		crawler.WithFollowPatterns(site.FollowPatterns),
		crawler.WithObserver(func(ev crawler.Event) {
			if ev.Kind == crawler.EventReject {
				rejected[ev.Reason]++
			}
		}),
	)
	if err != nil {
		return configError(err)
	}

	result, err := engine.Crawl(ctx)
	if err != nil {
		return fmt.Errorf("crawl aborted: %w", err)
	}
	logRejections(logger, rejected)

	path := filepath.Join(cfg.OutputDir, sink.Filename(engine.Host()))
	if err := sink.Save(result.URLs, path); err != nil {
		return err
	}
	logger.Info("result saved", "path", path, "urls", len(result.URLs))

	if err := writeReport(cfg, result, stdout); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if cfg.SaveToDB {
		// The archive is written even when the crawl was interrupted.
		if err := archiveCrawl(context.WithoutCancel(ctx), cfg.DBDir, result, logger); err != nil {
			logger.Error("failed to archive crawl", "error", err)
		}
	}
	return nil
}

// fetchTimeout is the per-URL bound the engine applies. Rendered fetches
// get the render timeout when it is longer.
func fetchTimeout(cfg *config.Config) time.Duration {
	if cfg.Render {
		return max(cfg.Timeout, cfg.RenderTimeout)
	}
	return cfg.Timeout
}

// buildFetcher creates the fetcher for cfg and returns a cleanup func that
// releases Tor and the browser.
func buildFetcher(ctx context.Context, cfg *config.Config, site config.SiteConfig, logger *slog.Logger) (fetcher.Fetcher, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	opts := []fetcher.HTTPOption{
		fetcher.WithUserAgent(cfg.UserAgent),
		fetcher.WithHeaders(site.Headers),
		fetcher.WithCookie(site.Cookie),
		fetcher.WithTimeout(cfg.Timeout),
		fetcher.WithMaxBodyBytes(cfg.MaxBodySize),
		fetcher.WithLogger(logger),
	}

	switch {
	case cfg.ProxyAddress != "":
		dialer, err := proxy.NewDialer(cfg.ProxyAddress)
		if err != nil {
			return nil, cleanup, configError(err)
		}
		if status := dialer.Check(ctx); status != proxy.StatusOK {
			return nil, cleanup, fmt.Errorf("proxy check failed for %s: %w", cfg.ProxyAddress, status.Err())
		}
		logger.Info("using SOCKS5 proxy", "address", dialer.Address())
		opts = append(opts, fetcher.WithDialContext(dialer.DialContext))

	case cfg.UseTor:
		dialer, stopTor, err := startTor(ctx, cfg, logger)
		if err != nil {
			return nil, cleanup, err
		}
		cleanups = append(cleanups, stopTor)
		opts = append(opts, fetcher.WithDialContext(dialer.DialContext))
	}

	var f fetcher.Fetcher = fetcher.NewHTTPFetcher(opts...)

	if cfg.Render {
		renderer := fetcher.NewChromedpRenderer(fetcher.RenderOptions{
			Timeout:         cfg.RenderTimeout,
			WaitForSelector: cfg.WaitSelector,
			UserAgent:       cfg.UserAgent,
			ConcurrentTabs:  cfg.Workers,
		}, logger)
		if err := renderer.Start(ctx); err != nil {
			logger.Warn("headless browser unavailable, using plain HTTP", "error", err)
		} else {
			cleanups = append(cleanups, func() {
				if err := renderer.Close(); err != nil {
					logger.Error("failed to close browser", "error", err)
				}
			})
			f = fetcher.NewComposite(renderer, f, logger)
		}
	}

	return f, cleanup, nil
}

// startTor starts the embedded Tor daemon and returns a dialer for it.
func startTor(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*proxy.Dialer, func(), error) {
	logger.Info("starting embedded Tor daemon, this may take a few minutes",
		"startup_timeout", cfg.TorStartupTimeout.String())

	daemon := proxy.NewTor(proxy.WithStartupTimeout(cfg.TorStartupTimeout))
	if err := daemon.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}
	stop := func() {
		logger.Info("stopping embedded Tor daemon")
		if err := daemon.Stop(); err != nil {
			logger.Error("failed to stop embedded Tor", "error", err)
		}
	}

	dialer, err := daemon.Dialer()
	if err != nil {
		stop()
		return nil, nil, err
	}
	if status := dialer.Check(ctx); status != proxy.StatusOK {
		stop()
		return nil, nil, fmt.Errorf("embedded Tor proxy check failed: %w", status.Err())
	}

	logger.Info("embedded Tor daemon started", "socks_addr", daemon.SocksAddr())
	return dialer, stop, nil
}

func logRejections(logger *slog.Logger, rejected map[string]int) {
	if len(rejected) == 0 {
		return
	}
	reasons := make([]string, 0, len(rejected))
	for reason := range rejected {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)

	attrs := make([]any, 0, 2*len(reasons))
	for _, reason := range reasons {
		attrs = append(attrs, reason, rejected[reason])
	}
	logger.Debug("rejected links by reason", attrs...)
}

// writeReport prints the report to stdout, or writes it to cfg.ReportFile
// and prints the text summary to stdout.
func writeReport(cfg *config.Config, result *model.CrawlResult, stdout io.Writer) error {
	summary := report.NewSimpleWriter(stdout, report.WithVerbose(cfg.Verbose))

	if cfg.ReportFile == "" {
		if strings.EqualFold(cfg.ReportFormat, report.FormatText) {
			_, err := summary.Write(result)
			return err
		}
		w, err := report.NewWriter(cfg.ReportFormat, stdout, getVersion())
		if err != nil {
			return err
		}
		_, err = w.Write(result)
		return err
	}

	if dir := filepath.Dir(cfg.ReportFile); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	file, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	w, err := report.NewWriter(cfg.ReportFormat, file, getVersion())
	if err != nil {
		return err
	}
	_, err = report.NewMultiWriter(w, summary).Write(result)
	return err
}

// archiveCrawl saves result to the archive in dbDir.
func archiveCrawl(ctx context.Context, dbDir string, result *model.CrawlResult, logger *slog.Logger) error {
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := db.SaveCrawl(ctx, result)
	if err != nil {
		return err
	}
	logger.Info("crawl archived", "run_id", id, "db", db.Path())
	return nil
}
