package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// ProgressFileName returns the search progress file name used for a source.
func ProgressFileName(source string) string {
	return fmt.Sprintf("search_progress_%s.yaml", source)
}

// Progress maps an unfinished keyword to the search page an interrupted run should resume from.
type Progress struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
}

// NewProgress binds the store to <dir>/search_progress_<source>.yaml.
func NewProgress(dir, source string, logger *slog.Logger) *Progress {
	if logger == nil {
		logger = slog.Default()
	}
	return &Progress{
		path:   filepath.Join(dir, ProgressFileName(source)),
		logger: logger,
	}
}

// Path is the file backing the store.
func (p *Progress) Path() string {
	return p.path
}

// ResumePage returns the recorded page for keyword. ok is false when nothing was recorded.
// An unreadable file is logged and treated as empty so the keyword restarts from its first page.
func (p *Progress) ResumePage(ctx context.Context, keyword string) (int, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	pages, err := p.read()
	if err != nil {
		p.logger.Warn("search progress unreadable, starting from the first page", "path", p.path, "error", err)
		return 0, false, nil
	}
	page, ok := pages[keyword]
	return page, ok, nil
}

// RecordPage persists page for keyword. Recording a lower page than the stored one is a no-op.
func (p *Progress) RecordPage(ctx context.Context, keyword string, page int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	pages, err := p.read()
	if err != nil {
		pages = map[string]int{}
	}
	if cur, ok := pages[keyword]; ok && cur >= page {
		return nil
	}
	pages[keyword] = page
	return writeYAML(p.path, pages)
}

// Clear drops keyword once it has been checkpointed. The file is removed when it becomes empty.
func (p *Progress) Clear(ctx context.Context, keyword string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	pages, err := p.read()
	if err != nil {
		return err
	}
	if _, ok := pages[keyword]; !ok {
		return nil
	}
	delete(pages, keyword)
	if len(pages) == 0 {
		if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove search progress: %w", err)
		}
		return nil
	}
	return writeYAML(p.path, pages)
}

func (p *Progress) read() (map[string]int, error) {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]int{}, nil
		}
		return nil, fmt.Errorf("read search progress %s: %w", p.path, err)
	}

	pages := map[string]int{}
	if err := yaml.Unmarshal(raw, &pages); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrMalformed, p.path, err)
	}
	return pages, nil
}
