// Package metrics exposes crawl progress as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"NewsScanner/internal/domain"
)

const namespace = "newsscanner"

// Crawl holds the crawler collectors. A nil *Crawl records nothing.
type Crawl struct {
	requests   *prometheus.CounterVec
	articles   *prometheus.CounterVec
	keywords   prometheus.Counter
	duplicates prometheus.Counter
	anomalies  prometheus.Counter
	pending    prometheus.Gauge
}

// NewCrawl creates and registers the crawl metrics on reg.
func NewCrawl(reg prometheus.Registerer) *Crawl {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Crawl{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests resolved, by kind and result",
		}, []string{"kind", "result"}),
		articles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_total",
			Help:      "Fetched articles by outcome",
		}, []string{"outcome"}),
		keywords: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keywords_completed_total",
			Help:      "Keywords drained and checkpointed",
		}),
		duplicates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_suppressed_total",
			Help:      "Article links not fetched because they were already known",
		}),
		anomalies: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accounting_anomalies_total",
			Help:      "Completions that would have driven the pending count negative",
		}),
		pending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_requests",
			Help:      "Outstanding requests for the active keyword",
		}),
	}
}

// Request counts one resolved request.
func (c *Crawl) Request(kind, result string) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(kind, result).Inc()
}

// Article counts one article outcome.
func (c *Crawl) Article(outcome domain.Outcome) {
	if c == nil {
		return
	}
	c.articles.WithLabelValues(string(outcome)).Inc()
}

// KeywordDone counts a checkpointed keyword.
func (c *Crawl) KeywordDone() {
	if c == nil {
		return
	}
	c.keywords.Inc()
}

// Duplicate counts a suppressed article link.
func (c *Crawl) Duplicate() {
	if c == nil {
		return
	}
	c.duplicates.Inc()
}

// Anomaly counts an accounting invariant violation.
func (c *Crawl) Anomaly() {
	if c == nil {
		return
	}
	c.anomalies.Inc()
}

// Pending sets the outstanding request gauge.
func (c *Crawl) Pending(n int) {
	if c == nil {
		return
	}
	c.pending.Set(float64(n))
}

// Serve exposes gatherer on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
