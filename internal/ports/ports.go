package ports

import (
	"context"

	"NewsScanner/internal/domain"
	"NewsScanner/internal/scanner"
)

// Fetcher retrieves one page. Non-2xx responses are returned as errors wrapping domain.ErrFetch.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*scanner.Response, error)
}

// ArticleStore persists classified articles. Storing the same URL twice is not an error.
type ArticleStore interface {
	SaveArticle(ctx context.Context, article domain.Article) error
}

// HistoryStore records fetched URLs so later runs can seed the duplicate filter.
type HistoryStore interface {
	RecordSeenURL(ctx context.Context, url, source string) error
	SeenURLs(ctx context.Context, source string) ([]string, error)
}

// CheckpointStore durably records fully drained keywords.
type CheckpointStore interface {
	Load(ctx context.Context) (map[string]struct{}, error)
	MarkDone(ctx context.Context, keyword string) error
}

// AcceptedLister lists the stored accepted article URLs of one source.
// Recheck runs seed the duplicate filter from it so rejected articles are classified again.
type AcceptedLister interface {
	AcceptedURLs(ctx context.Context, source string) ([]string, error)
}

// ProgressStore remembers where an unfinished keyword's pagination can resume.
type ProgressStore interface {
	ResumePage(ctx context.Context, keyword string) (int, bool, error)
	RecordPage(ctx context.Context, keyword string, page int) error
	Clear(ctx context.Context, keyword string) error
}

// Notifier streams run reports to Telegram or other channels.
type Notifier interface {
	PublishReport(ctx context.Context, report string) error
}
