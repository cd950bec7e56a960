package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nao1215/scopecrawl/internal/extract"
	"github.com/nao1215/scopecrawl/internal/fetcher"
	"github.com/nao1215/scopecrawl/internal/model"
	"github.com/nao1215/scopecrawl/internal/scope"
)

// Engine crawls one site breadth-first within a visit budget.
// An Engine may run several crawls one after another but not concurrently.
type Engine struct {
	filter  *scope.Filter
	fetcher fetcher.Fetcher

	maxSeenURLs  int
	workers      int
	fetchTimeout time.Duration
	deadline     time.Duration
	scopeOpts    []scope.Option
	paths        pathFilter
	observer     func(Event)
	logger       *slog.Logger

	state atomic.Int32
}

// New validates startURL and creates an Engine that fetches with f.
// It fails with scope.ErrNoHost or scope.ErrInvalidStartURL for unusable
// start URLs and ErrInvalidMaxSeenURLs for a non-positive budget.
func New(startURL string, f fetcher.Fetcher, opts ...Option) (*Engine, error) {
	e := &Engine{
		fetcher:      f,
		maxSeenURLs:  DefaultMaxSeenURLs,
		workers:      DefaultWorkers,
		fetchTimeout: DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}

	if f == nil {
		return nil, ErrNilFetcher
	}
	if e.maxSeenURLs < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMaxSeenURLs, e.maxSeenURLs)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}

	filter, err := scope.New(startURL, e.scopeOpts...)
	if err != nil {
		return nil, err
	}
	e.filter = filter

	return e, nil
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// ScopeHost returns the host suffix that bounds the crawl.
func (e *Engine) ScopeHost() string {
	return e.filter.ScopeHost()
}

// StartURL returns the canonical start URL.
func (e *Engine) StartURL() string {
	return e.filter.StartURL()
}

// Host returns the host of the start URL as given, port included.
func (e *Engine) Host() string {
	return e.filter.Host()
}

func (e *Engine) setState(s State) {
	old := State(e.state.Swap(int32(s)))
	if old != s {
		e.logger.Debug("crawler state changed", "from", old.String(), "to", s.String())
	}
}

// crawlState is the coordinator-owned state of one crawl.
type crawlState struct {
	frontier *frontier
	seen     map[string]struct{}
	inflight map[string]struct{}
	result   *model.CrawlResult
}

func (st *crawlState) known(url string) bool {
	if _, ok := st.seen[url]; ok {
		return true
	}
	if _, ok := st.inflight[url]; ok {
		return true
	}
	return st.frontier.contains(url)
}

// Crawl runs the crawl to completion and returns its result.
//
// Fetch and extraction failures are recorded in the result, never returned.
// The only error is ctx's, when ctx is already done before the first fetch.
func (e *Engine) Crawl(ctx context.Context) (*model.CrawlResult, error) {
	parent := ctx
	if e.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, e.deadline, errDeadline)
		defer cancel()
	}

	st := &crawlState{
		frontier: newFrontier(),
		seen:     make(map[string]struct{}),
		inflight: make(map[string]struct{}),
		result:   model.NewCrawlResult(e.filter.StartURL(), e.filter.ScopeHost(), e.maxSeenURLs),
	}

	e.setState(StateRunning)
	e.logger.Info("crawl started",
		"start_url", st.result.StartURL,
		"scope_host", st.result.ScopeHost,
		"max_seen_urls", e.maxSeenURLs,
		"workers", e.workers,
	)

	if err := parent.Err(); err != nil {
		st.result.Termination = model.TerminationCancelled
		e.finish(st)
		return st.result, err
	}

	st.frontier.push(st.result.StartURL)
	e.emit(st, Event{Kind: EventEnqueue, URL: st.result.StartURL})

	st.result.Termination = e.run(ctx, parent, st)
	e.finish(st)
	return st.result, nil
}

// run is the coordinator loop. It returns why the crawl stopped.
func (e *Engine) run(ctx, parent context.Context, st *crawlState) model.Termination {
	for {
		if len(st.seen) >= e.maxSeenURLs {
			e.setState(StateDraining)
			return model.TerminationBudget
		}
		if ctx.Err() != nil {
			if parent.Err() == nil && errors.Is(context.Cause(ctx), errDeadline) {
				return model.TerminationDeadline
			}
			return model.TerminationCancelled
		}
		if st.frontier.len() == 0 {
			e.setState(StateExhausted)
			return model.TerminationExhausted
		}

		batch, skipped := e.nextRound(st)
		if len(batch) == 0 {
			continue
		}

		tally := map[outcome]int{outcomeSkipped: skipped}
		for _, res := range fetcher.Batch(ctx, timeoutFetcher{e.fetcher, e.fetchTimeout}, batch, e.workers) {
			tally[e.apply(st, res)]++
		}
		e.logger.Debug("round complete",
			"fetched", len(batch),
			"visited", tally[outcomeVisited],
			"failed", tally[outcomeFailed],
			"skipped", tally[outcomeSkipped],
			"seen", len(st.seen),
			"queued", st.frontier.len(),
		)
	}
}

// nextRound pops up to min(workers, remaining budget) unseen URLs and marks
// them in flight. It also returns how many popped URLs were already seen.
func (e *Engine) nextRound(st *crawlState) ([]string, int) {
	n := min(e.workers, e.maxSeenURLs-len(st.seen))
	batch := make([]string, 0, n)
	skipped := 0

	for len(batch) < n {
		url, ok := st.frontier.pop()
		if !ok {
			break
		}
		if _, seen := st.seen[url]; seen {
			e.logger.Debug("skipping seen URL", "url", url)
			e.emit(st, Event{Kind: EventSkip, URL: url})
			skipped++
			continue
		}
		st.inflight[url] = struct{}{}
		batch = append(batch, url)
		e.emit(st, Event{Kind: EventDequeue, URL: url})
	}
	return batch, skipped
}

// apply folds one fetch result into the crawl state.
func (e *Engine) apply(st *crawlState, res fetcher.Result) outcome {
	delete(st.inflight, res.URL)

	if res.Err != nil {
		e.logger.Error("fetch failed", "url", res.URL, "error", res.Err)
		st.result.AddFailure(res.URL, model.FailureFetch, res.Err)
		e.emit(st, Event{Kind: EventFail, URL: res.URL, Err: res.Err})
		return outcomeFailed
	}

	st.frontier.remove(res.URL)
	st.seen[res.URL] = struct{}{}
	e.logger.Info("visited", "url", res.URL, "seen", len(st.seen), "max_seen_urls", e.maxSeenURLs)

	page := res.Page
	visit := model.Visit{
		URL:        res.URL,
		Title:      extract.Title(page.Body),
		StatusCode: page.StatusCode,
		Hash:       page.Hash,
		Rendered:   page.Rendered,
		Latency:    page.Latency,
	}
	visit.Links = e.enqueueLinks(st, res.URL, page)
	st.result.AddVisit(visit)

	e.emit(st, Event{Kind: EventVisit, URL: res.URL})
	return outcomeVisited
}

// enqueueLinks extracts the links of page and queues the in-scope ones not
// seen before. It returns the number of links queued.
func (e *Engine) enqueueLinks(st *crawlState, pageURL string, page *model.Page) int {
	queued := 0
	for href, err := range extract.Hrefs(bytes.NewReader(page.Body)) {
		if err != nil {
			e.logger.Error("link extraction failed", "url", pageURL, "error", err)
			st.result.AddFailure(pageURL, model.FailureExtraction, err)
			break
		}

		d := e.filter.Accept(href)
		switch {
		case d.Reason == scope.ReasonParse:
			e.logger.Error("invalid link", "page", pageURL, "href", href, "error", d.Err)
			e.reject(st, href, d.Reason.String(), d.Err)
			continue
		case !d.Accepted():
			e.logger.Debug("link rejected", "page", pageURL, "href", href, "reason", d.Reason.String())
			e.reject(st, href, d.Reason.String(), nil)
			continue
		case !e.paths.allow(d.URL):
			e.logger.Debug("link rejected", "page", pageURL, "href", href, "reason", "pattern")
			e.reject(st, href, "pattern", nil)
			continue
		}

		if st.known(d.URL) {
			continue
		}
		st.frontier.push(d.URL)
		queued++
		e.emit(st, Event{Kind: EventEnqueue, URL: d.URL})
	}
	return queued
}

func (e *Engine) reject(st *crawlState, href, reason string, err error) {
	st.result.Rejected++
	e.emit(st, Event{Kind: EventReject, URL: href, Reason: reason, Err: err})
}

func (e *Engine) emit(st *crawlState, ev Event) {
	if e.observer == nil {
		return
	}
	ev.Seen = len(st.seen)
	ev.Queued = st.frontier.len()
	e.observer(ev)
}

func (e *Engine) finish(st *crawlState) {
	st.result.FinishedAt = time.Now()
	e.setState(StateDone)
	e.logger.Info("crawl finished",
		"visited", len(st.result.URLs),
		"failures", len(st.result.Failures),
		"rejected", st.result.Rejected,
		"termination", st.result.Termination.String(),
		"duration", st.result.Duration().Round(time.Millisecond).String(),
	)
}

// timeoutFetcher bounds each fetch of the wrapped Fetcher.
type timeoutFetcher struct {
	fetcher.Fetcher
	timeout time.Duration
}

func (t timeoutFetcher) Fetch(ctx context.Context, url string) (*model.Page, error) {
	if t.timeout <= 0 {
		return t.Fetcher.Fetch(ctx, url)
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Fetcher.Fetch(ctx, url)
}
