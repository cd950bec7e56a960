package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/nao1215/scopecrawl/internal/model"
)

// RenderOptions configures ChromedpRenderer.
type RenderOptions struct {
	// Timeout bounds one page render. Default 60s.
	Timeout time.Duration

	// WaitForDOMReady polls document.readyState until "complete".
	WaitForDOMReady bool

	// WaitForSelector waits for a CSS selector when WaitForDOMReady is false.
	WaitForSelector string

	// CaptureDelay is a fixed wait used when neither of the above is set.
	// Default 1.5s.
	CaptureDelay time.Duration

	// UserAgent overrides the browser user agent.
	UserAgent string

	// DisableHeadless shows the browser window.
	DisableHeadless bool

	// ExecPath is the Chrome binary. Empty lets chromedp find one.
	ExecPath string

	// ConcurrentTabs bounds the number of tabs open at once. Default 1.
	ConcurrentTabs int
}

// ChromedpRenderer loads pages in headless Chrome.
// One browser process is shared by all fetches between Start and Close;
// each Fetch opens its own tab.
type ChromedpRenderer struct {
	opts      RenderOptions
	semaphore chan struct{}
	logger    *slog.Logger

	mu            sync.Mutex
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

// NewChromedpRenderer creates a renderer. Call Start before Fetch.
func NewChromedpRenderer(opts RenderOptions, logger *slog.Logger) *ChromedpRenderer {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.CaptureDelay <= 0 {
		opts.CaptureDelay = 1500 * time.Millisecond
	}
	if opts.ConcurrentTabs <= 0 {
		opts.ConcurrentTabs = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChromedpRenderer{
		opts:      opts,
		semaphore: make(chan struct{}, opts.ConcurrentTabs),
		logger:    logger,
	}
}

// allocatorOptions returns the Chrome flags for the browser process.
func (r *ChromedpRenderer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", !r.opts.DisableHeadless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
	}
	if ua := strings.TrimSpace(r.opts.UserAgent); ua != "" {
		opts = append(opts, chromedp.UserAgent(ua))
	}
	if r.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.opts.ExecPath))
	}
	return opts
}

// Start launches the browser. The browser lives until Close, independent
// of ctx, which only bounds the launch.
func (r *ChromedpRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browserCtx != nil {
		return nil
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), r.allocatorOptions()...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	stop := context.AfterFunc(ctx, cancelBrowser)
	err := chromedp.Run(browserCtx)
	stop()
	if err != nil {
		cancelBrowser()
		cancelAlloc()
		return fmt.Errorf("failed to start browser: %w", err)
	}

	r.browserCtx = browserCtx
	r.cancelBrowser = cancelBrowser
	r.cancelAlloc = cancelAlloc
	r.logger.Debug("browser started", "headless", !r.opts.DisableHeadless)
	return nil
}

// Close shuts the browser down. It is safe to call more than once.
func (r *ChromedpRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browserCtx == nil {
		return nil
	}
	r.cancelBrowser()
	r.cancelAlloc()
	r.browserCtx = nil
	r.logger.Debug("browser closed")
	return nil
}

func (r *ChromedpRenderer) browser() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.browserCtx
}

// Fetch renders url in a new tab and returns the DOM as HTML.
// Rendered pages report status 200.
func (r *ChromedpRenderer) Fetch(ctx context.Context, url string) (*model.Page, error) {
	browserCtx := r.browser()
	if browserCtx == nil {
		return nil, &FetchError{URL: url, Err: ErrRendererNotStarted}
	}

	select {
	case r.semaphore <- struct{}{}:
		defer func() { <-r.semaphore }()
	case <-ctx.Done():
		return nil, &FetchError{URL: url, Err: ctx.Err()}
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	runCtx, cancel := context.WithTimeout(tabCtx, r.opts.Timeout)
	defer cancel()

	var html, location string
	actions := []chromedp.Action{chromedp.Navigate(url)}
	actions = append(actions, r.waitActions()...)
	actions = append(actions,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&location),
	)

	start := time.Now()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, &FetchError{URL: url, Err: fmt.Errorf("render: %w", err)}
	}

	if location == "" {
		location = url
	}

	page := &model.Page{
		URL:         url,
		FinalURL:    location,
		StatusCode:  200,
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(html),
		Rendered:    true,
		FetchedAt:   time.Now(),
		Latency:     time.Since(start),
	}
	page.TruncateBody()
	page.ComputeHash()

	r.logger.Debug("rendered page",
		"url", url,
		"final_url", location,
		"bytes", len(page.Body),
		"latency_ms", page.Latency.Milliseconds(),
	)
	return page, nil
}

// waitActions returns the actions run between navigation and DOM export.
func (r *ChromedpRenderer) waitActions() []chromedp.Action {
	switch {
	case r.opts.WaitForDOMReady:
		return []chromedp.Action{waitForDocumentReady(), chromedp.Sleep(250 * time.Millisecond)}
	case strings.TrimSpace(r.opts.WaitForSelector) != "":
		return []chromedp.Action{
			chromedp.WaitReady(strings.TrimSpace(r.opts.WaitForSelector), chromedp.ByQuery),
			chromedp.Sleep(250 * time.Millisecond),
		}
	default:
		return []chromedp.Action{chromedp.Sleep(r.opts.CaptureDelay)}
	}
}

func waitForDocumentReady() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			var readyState string
			if err := chromedp.Evaluate(`document.readyState`, &readyState).Do(ctx); err != nil {
				return err
			}
			if readyState == "complete" {
				return nil
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}
