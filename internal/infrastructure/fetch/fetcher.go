// Package fetch issues the crawler's HTTP requests through a colly collector.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"

	"NewsScanner/internal/domain"
	"NewsScanner/internal/ports"
	"NewsScanner/internal/scanner"
)

const (
	defaultUserAgent   = "NewsScanner/1.0"
	defaultTimeout     = 30 * time.Second
	defaultMaxBodySize = 10 << 20
)

// Config tunes the collector and the politeness limiter.
type Config struct {
	UserAgent         string
	Timeout           time.Duration
	MaxBodySize       int
	RequestsPerSecond float64
	Burst             int
}

// FetchError describes a failed request. It matches domain.ErrFetch with errors.Is.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{domain.ErrFetch}
	}
	return []error{domain.ErrFetch, e.Err}
}

// Fetcher clones a configured collector per request so callbacks never leak between fetches.
type Fetcher struct {
	base    *colly.Collector
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ ports.Fetcher = (*Fetcher)(nil)

// New builds the base collector. Revisits are allowed; deduplication happens upstream.
func New(cfg Config, logger *slog.Logger) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = defaultMaxBodySize
	}
	if logger == nil {
		logger = slog.Default()
	}

	base := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.MaxBodySize(cfg.MaxBodySize),
		colly.ParseHTTPErrorResponse(),
		colly.IgnoreRobotsTxt(),
	)
	base.SetRequestTimeout(cfg.Timeout)

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Fetcher{
		base:    base,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// Fetch downloads target. Non-2xx statuses are returned as *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, target string) (*scanner.Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}

	c := f.base.Clone()
	c.Context = ctx

	var resp *scanner.Response
	c.OnResponse(func(r *colly.Response) {
		header := http.Header{}
		if r.Headers != nil {
			header = r.Headers.Clone()
		}
		resp = &scanner.Response{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       r.Body,
			Header:     header,
		}
	})

	started := time.Now()
	if err := c.Visit(target); err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	if resp == nil {
		return nil, &FetchError{URL: target, Err: fmt.Errorf("no response")}
	}

	f.logger.Debug("fetched", "url", target, "status", resp.StatusCode, "bytes", len(resp.Body), "elapsed", time.Since(started).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{URL: target, StatusCode: resp.StatusCode}
	}
	return resp, nil
}
