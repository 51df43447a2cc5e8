// Package crawler drives a bounded, resumable crawl one keyword at a time.
//
// Within a keyword every search page and article fetch runs concurrently.
// A keyword is checkpointed only when all requests it spawned have resolved.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"NewsScanner/internal/dedup"
	"NewsScanner/internal/domain"
	"NewsScanner/internal/keywords"
	"NewsScanner/internal/metrics"
	"NewsScanner/internal/ports"
	"NewsScanner/internal/scanner"
	"NewsScanner/internal/usecase"
)

// State is the controller lifecycle position.
type State int32

const (
	StateIdle State = iota
	StateKeywordActive
	StateDraining
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateKeywordActive:
		return "keyword_active"
	case StateDraining:
		return "draining"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Processor classifies and persists one extracted article.
type Processor interface {
	Process(ctx context.Context, in usecase.Input) (domain.Article, error)
}

// Deps wires the collaborators the controller drives.
type Deps struct {
	Source      scanner.Source
	Fetcher     ports.Fetcher
	Queue       *keywords.Queue
	Checkpoints ports.CheckpointStore
	Filter      *dedup.Filter
	History     ports.HistoryStore
	Progress    ports.ProgressStore
	Processor   Processor
	Metrics     *metrics.Crawl
	Logger      *slog.Logger
}

// Options tune one run.
type Options struct {
	// Concurrency bounds in-flight fetches within a keyword.
	Concurrency int64
	// Days is the date window for date-windowed sources, one root search per day.
	Days []time.Time
	// MaxPages caps pagination per root search; zero means unlimited.
	MaxPages int
}

// Summary reports what a run did.
type Summary struct {
	KeywordsCompleted []string
	Searches          int64
	Articles          int64
	Accepted          int64
	Rejected          int64
	Paywalled         int64
	Skipped           int64
	Failures          int64
	Duplicates        int64
	Anomalies         int
}

// Controller runs the keyword state machine.
type Controller struct {
	deps Deps
	opts Options

	sem     *semaphore.Weighted
	pending *pending
	state   atomic.Int32
	front   *frontier

	searches   atomic.Int64
	articles   atomic.Int64
	accepted   atomic.Int64
	rejected   atomic.Int64
	paywalled  atomic.Int64
	skipped    atomic.Int64
	failures   atomic.Int64
	duplicates atomic.Int64
}

// New validates dependencies and builds a controller.
func New(deps Deps, opts Options) (*Controller, error) {
	switch {
	case deps.Source.Portal == nil:
		return nil, fmt.Errorf("%w: crawler needs a source", domain.ErrConfig)
	case deps.Fetcher == nil:
		return nil, fmt.Errorf("%w: crawler needs a fetcher", domain.ErrConfig)
	case deps.Queue == nil:
		return nil, fmt.Errorf("%w: crawler needs a keyword queue", domain.ErrConfig)
	case deps.Checkpoints == nil:
		return nil, fmt.Errorf("%w: crawler needs a checkpoint store", domain.ErrConfig)
	case deps.Processor == nil:
		return nil, fmt.Errorf("%w: crawler needs an article processor", domain.ErrConfig)
	}
	if deps.Source.DateWindowed && len(opts.Days) == 0 {
		return nil, fmt.Errorf("%w: source %s needs a date window", domain.ErrConfig, deps.Source.Name)
	}
	if deps.Filter == nil {
		deps.Filter = dedup.NewFilter(0, nil)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}

	c := &Controller{
		deps:    deps,
		opts:    opts,
		sem:     semaphore.NewWeighted(opts.Concurrency),
		pending: newPending(deps.Logger),
	}
	c.pending.onChange = deps.Metrics.Pending
	c.pending.onDrift = deps.Metrics.Anomaly
	return c, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

// Run processes keywords until the queue is exhausted or ctx is cancelled.
// A keyword interrupted by cancellation drains but is not checkpointed.
func (c *Controller) Run(ctx context.Context) (Summary, error) {
	var completed []string

	for {
		c.setState(StateIdle)
		if err := ctx.Err(); err != nil {
			return c.summary(completed), err
		}

		keyword, ok := c.deps.Queue.Next()
		if !ok {
			c.setState(StateFinished)
			c.deps.Logger.Info("keyword queue exhausted", "completed", len(completed))
			return c.summary(completed), nil
		}

		started := time.Now()
		c.deps.Logger.Info("keyword started", "keyword", keyword)
		c.runKeyword(ctx, keyword)

		if err := ctx.Err(); err != nil {
			c.deps.Logger.Warn("run cancelled, keyword left unchecked", "keyword", keyword)
			return c.summary(completed), err
		}

		if err := c.deps.Checkpoints.MarkDone(ctx, keyword); err != nil {
			return c.summary(completed), fmt.Errorf("%w: checkpoint keyword %q: %w", domain.ErrConfig, keyword, err)
		}
		if c.deps.Progress != nil {
			if err := c.deps.Progress.Clear(ctx, keyword); err != nil {
				c.deps.Logger.Warn("clear search progress failed", "keyword", keyword, "error", err)
			}
		}
		c.deps.Metrics.KeywordDone()
		completed = append(completed, keyword)
		c.deps.Logger.Info("keyword completed", "keyword", keyword, "elapsed", time.Since(started).Round(time.Millisecond))
	}
}

// runKeyword issues the root searches and blocks until the pending count drains.
func (c *Controller) runKeyword(ctx context.Context, keyword string) {
	roots := c.rootQueries(ctx, keyword)
	c.front = nil
	if c.deps.Progress != nil && !c.deps.Source.DateWindowed {
		c.front = newFrontier(keyword, roots[0].Page, c.deps.Progress, c.deps.Logger)
		c.front.hold(roots[0].Page)
	}
	drained := c.pending.begin(keyword)
	c.setState(StateKeywordActive)

	// begin counted the first root; the rest are spawned before any is dispatched.
	for range roots[1:] {
		c.pending.spawn()
	}

	var wg sync.WaitGroup
	for _, q := range roots {
		c.dispatch(ctx, &wg, func(ctx context.Context) { c.search(ctx, &wg, q, 1) })
	}

	<-drained
	wg.Wait()
}

func (c *Controller) rootQueries(ctx context.Context, keyword string) []scanner.Query {
	first := c.deps.Source.FirstPage
	if !c.deps.Source.DateWindowed {
		return []scanner.Query{{Keyword: keyword, Page: c.resumePage(ctx, keyword, first)}}
	}

	roots := make([]scanner.Query, 0, len(c.opts.Days))
	for _, day := range c.opts.Days {
		roots = append(roots, scanner.Query{Keyword: keyword, Page: first, Day: day})
	}
	return roots
}

// resumePage is the page an interrupted keyword stopped at, or first.
func (c *Controller) resumePage(ctx context.Context, keyword string, first int) int {
	if c.deps.Progress == nil {
		return first
	}
	page, ok, err := c.deps.Progress.ResumePage(ctx, keyword)
	if err != nil {
		c.deps.Logger.Warn("load search progress failed", "keyword", keyword, "error", err)
		return first
	}
	if !ok || page <= first {
		return first
	}
	c.deps.Logger.Info("keyword resumed", "keyword", keyword, "page", page)
	return page
}

// dispatch runs an already counted request on its own goroutine.
// Fetches wait for a semaphore slot; a cancelled wait resolves the request as a failure.
func (c *Controller) dispatch(ctx context.Context, wg *sync.WaitGroup, fn func(ctx context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn(ctx)
	}()
}

func (c *Controller) acquire(ctx context.Context) bool {
	return c.sem.Acquire(ctx, 1) == nil
}

// search fetches one results page, spawns its article and next-page children, then resolves itself.
func (c *Controller) search(ctx context.Context, wg *sync.WaitGroup, q scanner.Query, depth int) {
	defer c.resolve()
	defer c.settle(ctx, q.Page)
	c.searches.Add(1)

	target, err := c.deps.Source.SearchURL(q)
	if err != nil {
		c.fail("search", q.Keyword, "", err)
		return
	}

	resp, err := c.fetch(ctx, target)
	if err != nil {
		c.fail("search", q.Keyword, target, err)
		return
	}
	c.deps.Metrics.Request("search", "ok")

	links, err := c.deps.Source.ListArticleLinks(resp)
	if err != nil {
		c.fail("search", q.Keyword, target, fmt.Errorf("list article links: %w", err))
		return
	}

	if ctx.Err() != nil {
		return
	}

	spawned := 0
	onPage := make(map[string]struct{}, len(links))
	for _, link := range links {
		abs, ok := resolveLink(resp.URL, link)
		if !ok {
			continue
		}
		if _, dup := onPage[abs]; dup {
			continue
		}
		onPage[abs] = struct{}{}

		if !c.deps.Filter.Claim(abs) {
			c.duplicates.Add(1)
			c.deps.Metrics.Duplicate()
			continue
		}

		c.pending.spawn()
		c.front.hold(q.Page)
		spawned++
		c.dispatch(ctx, wg, func(ctx context.Context) { c.article(ctx, q.Keyword, abs, q.Page) })
	}

	c.deps.Logger.Debug("search page parsed",
		"keyword", q.Keyword, "page", q.Page, "links", len(links), "spawned", spawned, "url", target)

	if c.opts.MaxPages > 0 && depth >= c.opts.MaxPages {
		return
	}
	if c.deps.Source.HasNextPage(resp, q) {
		next := q
		next.Page++
		c.pending.spawn()
		c.front.hold(next.Page)
		c.dispatch(ctx, wg, func(ctx context.Context) { c.search(ctx, wg, next, depth+1) })
	}
}

// article fetches, extracts and processes one article, then resolves itself.
// The URL enters the history only once its outcome is final, so an article whose
// save failed is fetched again by the next run.
func (c *Controller) article(ctx context.Context, keyword, link string, page int) {
	unsaved := false
	defer c.resolve()
	defer func() {
		if !unsaved {
			c.settle(ctx, page)
		}
	}()
	defer c.deps.Filter.Remember(link)
	c.articles.Add(1)

	resp, err := c.fetch(ctx, link)
	if err != nil {
		c.fail("article", keyword, link, err)
		c.deps.Metrics.Article(domain.OutcomeFailed)
		return
	}
	c.deps.Metrics.Request("article", "ok")

	raw, err := c.deps.Source.ParseArticle(resp)
	switch {
	case errors.Is(err, domain.ErrPaywalled):
		c.paywalled.Add(1)
		c.deps.Metrics.Article(domain.OutcomePaywalled)
		c.deps.Logger.Debug("article paywalled", "url", link)
		c.recordSeen(ctx, link)
		return
	case err != nil:
		c.skipped.Add(1)
		c.deps.Metrics.Article(domain.OutcomeSkipped)
		c.deps.Logger.Info("article extraction failed", "url", link, "error", err)
		c.recordSeen(ctx, link)
		return
	}

	art, err := c.deps.Processor.Process(ctx, usecase.Input{
		URL:     link,
		Source:  c.deps.Source.Name,
		Keyword: keyword,
		Raw:     raw,
	})
	switch {
	case errors.Is(err, domain.ErrExtraction):
		c.skipped.Add(1)
		c.deps.Metrics.Article(domain.OutcomeSkipped)
		c.deps.Logger.Info("article skipped", "url", link, "error", err)
		c.recordSeen(ctx, link)
		return
	case err != nil:
		unsaved = true
		c.failures.Add(1)
		c.deps.Metrics.Article(domain.OutcomeFailed)
		c.deps.Logger.Error("article persistence failed", "url", link, "error", err)
		return
	}
	c.recordSeen(ctx, link)

	if art.Accepted() {
		c.accepted.Add(1)
		c.deps.Metrics.Article(domain.OutcomeAccepted)
		c.deps.Logger.Info("article accepted", "url", link, "accepted_by", art.Verdict.AcceptedBy)
		return
	}
	c.rejected.Add(1)
	c.deps.Metrics.Article(domain.OutcomeRejected)
}

func (c *Controller) recordSeen(ctx context.Context, link string) {
	if c.deps.History == nil {
		return
	}
	if err := c.deps.History.RecordSeenURL(ctx, link, c.deps.Source.Name); err != nil {
		c.deps.Logger.Warn("record seen url failed", "url", link, "error", err)
	}
}

// settle releases page from the resume frontier. Cancelled requests keep their page open.
func (c *Controller) settle(ctx context.Context, page int) {
	if ctx.Err() != nil {
		return
	}
	c.front.release(ctx, page)
}

func (c *Controller) fetch(ctx context.Context, target string) (*scanner.Response, error) {
	if !c.acquire(ctx) {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetch, ctx.Err())
	}
	defer c.sem.Release(1)

	return c.deps.Fetcher.Fetch(ctx, target)
}

func (c *Controller) fail(kind, keyword, target string, err error) {
	c.failures.Add(1)
	c.deps.Metrics.Request(kind, "error")
	c.deps.Logger.Warn("request failed", "kind", kind, "keyword", keyword, "url", target, "error", err)
}

// resolve is the single completion path for every request, success or failure.
func (c *Controller) resolve() {
	if c.State() == StateKeywordActive {
		c.setState(StateDraining)
	}
	c.pending.complete()
}

func (c *Controller) summary(completed []string) Summary {
	return Summary{
		KeywordsCompleted: completed,
		Searches:          c.searches.Load(),
		Articles:          c.articles.Load(),
		Accepted:          c.accepted.Load(),
		Rejected:          c.rejected.Load(),
		Paywalled:         c.paywalled.Load(),
		Skipped:           c.skipped.Load(),
		Failures:          c.failures.Load(),
		Duplicates:        c.duplicates.Load(),
		Anomalies:         c.pending.anomalyCount(),
	}
}

// resolveLink makes link absolute against the page it was found on.
func resolveLink(base, link string) (string, bool) {
	ref, err := url.Parse(link)
	if err != nil || link == "" {
		return "", false
	}
	if ref.IsAbs() {
		return ref.String(), ref.Scheme == "http" || ref.Scheme == "https"
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	resolved := b.ResolveReference(ref)
	resolved.Fragment = ""
	return resolved.String(), resolved.Scheme == "http" || resolved.Scheme == "https"
}
