package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"NewsScanner/internal/checkpoint"
	"NewsScanner/internal/classifier"
	"NewsScanner/internal/config"
	"NewsScanner/internal/crawler"
	"NewsScanner/internal/dedup"
	"NewsScanner/internal/domain"
	"NewsScanner/internal/infrastructure/fetch"
	"NewsScanner/internal/infrastructure/parser"
	"NewsScanner/internal/infrastructure/telegram"
	"NewsScanner/internal/keywords"
	"NewsScanner/internal/logging"
	"NewsScanner/internal/metrics"
	"NewsScanner/internal/ports"
	"NewsScanner/internal/scanner"
	"NewsScanner/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *scanner.Registry

	// overridable in tests
	fetcher  ports.Fetcher
	notifier ports.Notifier
	now      func() time.Time
}

// CrawlRequest carries the per-run CLI selections.
type CrawlRequest struct {
	Source     string
	Keywords   string
	Start      int
	End        int
	ResumeFrom string
	Year       int
	From       string
	To         string
	// Recheck ignores checkpoints and search progress and seeds the filter from accepted
	// articles only, so previously rejected articles are classified again.
	Recheck    bool
}

// New builds the application with every built-in source registered.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	registry := scanner.NewRegistry()
	if err := parser.RegisterDefaults(registry); err != nil {
		return nil, err
	}

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		registry: registry,
		now:      time.Now,
	}, nil
}

// Sources lists the registered source names.
func (a *Application) Sources() []scanner.Descriptor {
	names := a.registry.Names()
	out := make([]scanner.Descriptor, 0, len(names))
	for _, name := range names {
		src, err := a.registry.Resolve(name)
		if err != nil {
			continue
		}
		out = append(out, src.Descriptor)
	}
	return out
}

// Crawl runs the keyword queue for one source to completion or cancellation.
func (a *Application) Crawl(ctx context.Context, req CrawlRequest) (crawler.Summary, error) {
	if req.Source == "" {
		req.Source = a.cfg.Crawl.Source
	}
	src, err := a.registry.Resolve(req.Source)
	if err != nil {
		return crawler.Summary{}, err
	}

	runID := uuid.NewString()
	logger := a.logger.With("run_id", runID, "source", src.Name)
	logger.Info("crawl starting", "config", a.cfg.String())
	started := a.now()

	cls, err := a.classifier()
	if err != nil {
		return crawler.Summary{}, err
	}

	var days []time.Time
	if src.DateWindowed {
		days, err = usecase.DateWindow(req.Year, req.From, req.To, a.now(), a.cfg.Crawl.Location())
		if err != nil {
			return crawler.Summary{}, err
		}
		logger.Info("date window", "from", days[0].Format(usecase.WindowLayout), "to", days[len(days)-1].Format(usecase.WindowLayout), "days", len(days))
	}

	checkpoints := checkpoint.NewStore(a.cfg.Checkpoint.Dir, src.Name, logger.With("component", "checkpoint"))
	completed := map[string]struct{}{}
	var progress ports.ProgressStore
	if req.Recheck {
		logger.Info("recheck run, checkpoint and search progress ignored", "path", checkpoints.Path())
	} else {
		completed, err = a.loadCheckpoint(ctx, checkpoints, logger)
		if err != nil {
			return crawler.Summary{}, err
		}
		progress = checkpoint.NewProgress(a.cfg.Checkpoint.Dir, src.Name, logger.With("component", "progress"))
	}

	queue, err := a.queue(req, completed, logger)
	if err != nil {
		return crawler.Summary{}, err
	}

	st, err := openStores(ctx, a.cfg, logger)
	if err != nil {
		return crawler.Summary{}, err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logger.Warn("closing stores", "error", cerr)
		}
	}()

	filter := dedup.NewFilter(a.cfg.Crawl.ExpectedURLs, nil)
	seen, err := a.seedURLs(ctx, st, src.Name, req.Recheck)
	if err != nil {
		return crawler.Summary{}, err
	}
	filter.Seed(seen)
	logger.Info("history loaded", "urls", len(seen), "accepted_only", req.Recheck)

	registry := prometheus.NewRegistry()
	crawlMetrics := metrics.NewCrawl(registry)
	if addr := a.cfg.Metrics.Address; addr != "" {
		metricsCtx, stop := context.WithCancel(ctx)
		defer stop()
		go func() {
			if err := metrics.Serve(metricsCtx, addr, registry, logger.With("component", "metrics")); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Classifier: cls,
		Store:      st.articles,
		Location:   a.cfg.Crawl.Location(),
		Now:        a.now,
		Logger:     logger.With("component", "pipeline"),
	})

	ctrl, err := crawler.New(crawler.Deps{
		Source:      src,
		Fetcher:     a.fetcherFor(logger),
		Queue:       queue,
		Checkpoints: checkpoints,
		Filter:      filter,
		History:     st.history,
		Progress:    progress,
		Processor:   pipeline,
		Metrics:     crawlMetrics,
		Logger:      logger.With("component", "crawler"),
	}, crawler.Options{
		Concurrency: int64(a.cfg.Crawl.Concurrency),
		Days:        days,
		MaxPages:    a.cfg.Crawl.MaxPages,
	})
	if err != nil {
		return crawler.Summary{}, err
	}

	summary, runErr := ctrl.Run(ctx)
	elapsed := a.now().Sub(started)
	logger.Info("crawl finished",
		"keywords", len(summary.KeywordsCompleted),
		"articles", summary.Articles,
		"accepted", summary.Accepted,
		"failures", summary.Failures,
		"elapsed", elapsed.Round(time.Second),
		"error", runErr,
	)

	a.report(ctx, src.Name, runID, summary, elapsed, runErr, logger)
	return summary, runErr
}

// seedURLs is the fetch history, or only the accepted article URLs on a recheck run.
func (a *Application) seedURLs(ctx context.Context, st *stores, source string, recheck bool) ([]string, error) {
	if !recheck {
		seen, err := st.history.SeenURLs(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
		return seen, nil
	}
	accepted, err := st.accepted.AcceptedURLs(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("load accepted articles: %w", err)
	}
	return accepted, nil
}

func (a *Application) classifier() (*classifier.Classifier, error) {
	spec := classifier.DefaultSpec()
	if path := a.cfg.Crawl.PatternsFile; path != "" {
		loaded, err := classifier.LoadSpec(path)
		if err != nil {
			return nil, err
		}
		spec = loaded
	}
	tables, err := classifier.Compile(spec)
	if err != nil {
		return nil, err
	}
	return classifier.New(tables), nil
}

func (a *Application) keywordList() ([]string, error) {
	if path := a.cfg.Crawl.KeywordsFile; path != "" {
		return keywords.LoadList(path)
	}
	return keywords.DefaultKeywords, nil
}

// loadCheckpoint tolerates a malformed file unless checkpoint.strict is set.
func (a *Application) loadCheckpoint(ctx context.Context, store *checkpoint.Store, logger *slog.Logger) (map[string]struct{}, error) {
	completed, err := store.Load(ctx)
	switch {
	case err == nil:
		logger.Info("checkpoint loaded", "path", store.Path(), "completed", len(completed))
		return completed, nil
	case errors.Is(err, checkpoint.ErrMalformed) && !a.cfg.Checkpoint.Strict:
		logger.Warn("checkpoint unreadable, starting from scratch", "path", store.Path(), "error", err)
		return map[string]struct{}{}, nil
	case errors.Is(err, checkpoint.ErrMalformed):
		return nil, fmt.Errorf("%w: %v", domain.ErrConfig, err)
	default:
		return nil, err
	}
}

func (a *Application) queue(req CrawlRequest, completed map[string]struct{}, logger *slog.Logger) (*keywords.Queue, error) {
	full, err := a.keywordList()
	if err != nil {
		return nil, err
	}
	q := keywords.Build(full, keywords.BuildOptions{
		Start:      req.Start,
		End:        req.End,
		ResumeFrom: req.ResumeFrom,
		Override:   req.Keywords,
		Skip:       completed,
	})
	if q.ResumeMissed() {
		logger.Warn("resume keyword not found, using the full list", "resume_from", req.ResumeFrom)
	}
	if skipped := q.Skipped(); len(skipped) > 0 {
		logger.Info("skipping checkpointed keywords", "count", len(skipped))
	}
	logger.Info("keyword queue ready", "keywords", q.Len())
	return q, nil
}

func (a *Application) fetcherFor(logger *slog.Logger) ports.Fetcher {
	if a.fetcher != nil {
		return a.fetcher
	}
	return fetch.New(fetch.Config{
		UserAgent:         a.cfg.Crawl.UserAgent,
		Timeout:           a.cfg.Crawl.Timeout,
		RequestsPerSecond: a.cfg.Crawl.RequestsPerSecond,
		Burst:             a.cfg.Crawl.Burst,
	}, logger.With("component", "fetch"))
}

// report sends the run summary to Telegram when configured. Failures are only logged.
func (a *Application) report(ctx context.Context, source, runID string, summary crawler.Summary, elapsed time.Duration, runErr error, logger *slog.Logger) {
	notifier := a.notifier
	if notifier == nil {
		if !a.cfg.Telegram.Enabled() {
			return
		}
		n, err := telegram.NewNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, telegram.Options{})
		if err != nil {
			logger.Warn("telegram notifier unavailable", "error", err)
			return
		}
		notifier = n
	}

	// the run context may already be cancelled; the report still goes out
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	text := FormatReport(source, runID, summary, elapsed, runErr)
	if err := notifier.PublishReport(sendCtx, text); err != nil {
		logger.Warn("telegram report failed", "error", err)
	}
}
