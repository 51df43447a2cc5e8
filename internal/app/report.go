package app

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"NewsScanner/internal/checkpoint"
	"NewsScanner/internal/crawler"
)

// FormatReport renders a run summary as a plain-text table for chat delivery.
func FormatReport(source, runID string, s crawler.Summary, elapsed time.Duration, runErr error) string {
	status := "finished"
	if runErr != nil {
		status = "stopped: " + runErr.Error()
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.SetTitle("NewsScanner " + source)
	tw.AppendRows([]table.Row{
		{"run", runID},
		{"status", status},
		{"elapsed", elapsed.Round(time.Second).String()},
		{"keywords", len(s.KeywordsCompleted)},
		{"searches", s.Searches},
		{"articles", s.Articles},
		{"accepted", s.Accepted},
		{"rejected", s.Rejected},
		{"paywalled", s.Paywalled},
		{"skipped", s.Skipped},
		{"failures", s.Failures},
		{"duplicates", s.Duplicates},
	})
	if s.Anomalies > 0 {
		tw.AppendRow(table.Row{"anomalies", s.Anomalies})
	}

	var b strings.Builder
	b.WriteString(tw.Render())
	if len(s.KeywordsCompleted) > 0 {
		b.WriteString("\ncompleted: ")
		b.WriteString(strings.Join(s.KeywordsCompleted, ", "))
	}
	return b.String()
}

// Status is the checkpoint progress of one source.
type Status struct {
	Source    string
	Path      string
	Completed []string
	Pending   []string
}

// Status compares the keyword list with the source's checkpoint file.
func (a *Application) Status(ctx context.Context, source string) (Status, error) {
	if source == "" {
		source = a.cfg.Crawl.Source
	}
	if _, err := a.registry.Resolve(source); err != nil {
		return Status{}, err
	}

	store := checkpoint.NewStore(a.cfg.Checkpoint.Dir, source, a.logger)
	completed, err := store.Completed(ctx)
	if err != nil {
		return Status{}, err
	}
	full, err := a.keywordList()
	if err != nil {
		return Status{}, err
	}

	done := make(map[string]struct{}, len(completed))
	for _, kw := range completed {
		done[kw] = struct{}{}
	}
	st := Status{Source: source, Path: store.Path(), Completed: completed}
	for _, kw := range full {
		kw = strings.TrimSpace(kw)
		if _, ok := done[kw]; !ok && kw != "" {
			st.Pending = append(st.Pending, kw)
		}
	}
	return st, nil
}

// RenderStatus writes one row per keyword, completed first in completion order.
func RenderStatus(w io.Writer, st Status) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(fmt.Sprintf("%s (%s)", st.Source, st.Path))
	tw.AppendHeader(table.Row{"#", "keyword", "state"})

	n := 0
	for _, kw := range st.Completed {
		n++
		tw.AppendRow(table.Row{n, kw, text.FgGreen.Sprint("completed")})
	}
	for _, kw := range st.Pending {
		n++
		tw.AppendRow(table.Row{n, kw, "pending"})
	}
	tw.AppendFooter(table.Row{"", "total " + strconv.Itoa(n), fmt.Sprintf("%d/%d done", len(st.Completed), n)})
	tw.Render()
}

// RenderSources writes the registered sources.
func RenderSources(w io.Writer, a *Application) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"source", "domain", "date window"})
	for _, d := range a.Sources() {
		windowed := ""
		if d.DateWindowed {
			windowed = "yes"
		}
		tw.AppendRow(table.Row{d.Name, d.Domain, windowed})
	}
	tw.Render()
}
