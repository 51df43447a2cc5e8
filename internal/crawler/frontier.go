package crawler

import (
	"context"
	"log/slog"
	"sync"

	"NewsScanner/internal/ports"
)

// frontier tracks the lowest search page of a keyword that still has unresolved requests.
// Resuming from that page re-lists every article that was in flight when a run stopped.
type frontier struct {
	keyword string
	store   ports.ProgressStore
	logger  *slog.Logger

	mu       sync.Mutex
	open     map[int]int
	recorded int
}

func newFrontier(keyword string, start int, store ports.ProgressStore, logger *slog.Logger) *frontier {
	return &frontier{
		keyword:  keyword,
		store:    store,
		logger:   logger,
		open:     map[int]int{},
		recorded: start,
	}
}

// hold counts one more unresolved request found through page.
func (f *frontier) hold(page int) {
	if f == nil {
		return
	}
	f.mu.Lock()
	f.open[page]++
	f.mu.Unlock()
}

// release resolves one request of page and persists the resume page when it moves forward.
func (f *frontier) release(ctx context.Context, page int) {
	if f == nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.open[page]--
	if f.open[page] <= 0 {
		delete(f.open, page)
	}
	if len(f.open) == 0 {
		return
	}

	low := -1
	for p := range f.open {
		if low < 0 || p < low {
			low = p
		}
	}
	if low <= f.recorded {
		return
	}

	if err := f.store.RecordPage(ctx, f.keyword, low); err != nil {
		f.logger.Warn("record search progress failed", "keyword", f.keyword, "page", low, "error", err)
		return
	}
	f.recorded = low
}
