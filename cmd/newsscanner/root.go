package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"NewsScanner/internal/app"
	"NewsScanner/internal/config"
	"NewsScanner/internal/logging"
)

// globalFlags override the loaded configuration for every command.
type globalFlags struct {
	configPath    string
	logLevel      string
	logFormat     string
	output        string
	outputDir     string
	checkpointDir string
	concurrency   int
	maxPages      int
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "newsscanner",
		Short:         "Keyword-driven, resumable news crawler",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "YAML config file (default $NEWSSCANNER_CONFIG)")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&flags.logFormat, "log-format", "", "text or json")
	pf.StringVar(&flags.output, "output", "", "json, mongo or postgres")
	pf.StringVar(&flags.outputDir, "output-dir", "", "directory for json output")
	pf.StringVar(&flags.checkpointDir, "checkpoint-dir", "", "directory holding completed_keywords_<source>.yaml")
	pf.IntVar(&flags.concurrency, "concurrency", 0, "in-flight request limit (default: physical cores)")
	pf.IntVar(&flags.maxPages, "max-pages", 0, "pagination cap per root search, 0 for none")

	root.AddCommand(
		newCrawlCmd(flags),
		newStatusCmd(flags),
		newSourcesCmd(flags),
	)
	return root
}

// load merges file, environment and flag settings and builds the application.
func (f *globalFlags) load(cmd *cobra.Command) (*app.Application, config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, cfg, err
	}

	changed := cmd.Flags().Changed
	if changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if changed("log-format") {
		cfg.Logging.Format = f.logFormat
	}
	if changed("output") {
		cfg.Output.Mode = f.output
	}
	if changed("output-dir") {
		cfg.Output.Dir = f.outputDir
	}
	if changed("checkpoint-dir") {
		cfg.Checkpoint.Dir = f.checkpointDir
	}
	if changed("concurrency") {
		cfg.Crawl.Concurrency = f.concurrency
	}
	if changed("max-pages") {
		cfg.Crawl.MaxPages = f.maxPages
	}
	if err := cfg.Finalize(); err != nil {
		return nil, cfg, err
	}

	logger := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	a, err := app.New(cfg, logger)
	if err != nil {
		return nil, cfg, err
	}
	return a, cfg, nil
}

func newSourcesCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List registered news sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := flags.load(cmd)
			if err != nil {
				return err
			}
			app.RenderSources(cmd.OutOrStdout(), a)
			return nil
		},
	}
}

func newStatusCmd(flags *globalFlags) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show completed and pending keywords for a source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := flags.load(cmd)
			if err != nil {
				return err
			}
			st, err := a.Status(cmd.Context(), source)
			if err != nil {
				return err
			}
			app.RenderStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "source name (default crawl.source)")
	return cmd
}

func newCrawlCmd(flags *globalFlags) *cobra.Command {
	var req app.CrawlRequest

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl every pending keyword for one source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := flags.load(cmd)
			if err != nil {
				return err
			}
			summary, err := a.Crawl(cmd.Context(), req)
			if err != nil && cmd.Context().Err() != nil {
				return fmt.Errorf("interrupted after %d keywords: %w", len(summary.KeywordsCompleted), err)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Source, "source", "", "source name (default crawl.source)")
	f.StringVar(&req.Keywords, "keywords", "", "comma-separated keywords replacing the configured list")
	f.IntVar(&req.Start, "start", 0, "first keyword index")
	f.IntVar(&req.End, "end", 0, "keyword index to stop before, 0 for the end of the list")
	f.StringVar(&req.ResumeFrom, "resume-from", "", "start at this keyword")
	f.IntVar(&req.Year, "year", 0, "date window: whole year, for date-windowed sources")
	f.StringVar(&req.From, "from", "", "date window start, YYYY-MM-DD")
	f.StringVar(&req.To, "to", "", "date window end, YYYY-MM-DD")
	f.BoolVar(&req.Recheck, "recheck", false, "ignore checkpoints and reclassify every article not yet accepted")
	cmd.MarkFlagsMutuallyExclusive("recheck", "resume-from")
	cmd.MarkFlagsMutuallyExclusive("year", "from")
	cmd.MarkFlagsRequiredTogether("from", "to")
	return cmd
}
