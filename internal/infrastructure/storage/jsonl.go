package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"NewsScanner/internal/domain"
	"NewsScanner/internal/ports"
)

const (
	approvedFile = "approved_items.jsonl"
	rejectedFile = "rejected_items.jsonl"
	visitedFile  = "visited_urls.jsonl"
)

// JSONLStore appends articles and history to JSON-lines files in one directory.
type JSONLStore struct {
	dir    string
	logger *slog.Logger

	mu sync.Mutex
}

var (
	_ ports.ArticleStore   = (*JSONLStore)(nil)
	_ ports.HistoryStore   = (*JSONLStore)(nil)
	_ ports.AcceptedLister = (*JSONLStore)(nil)
)

// NewJSONLStore creates dir if needed.
func NewJSONLStore(dir string, logger *slog.Logger) (*JSONLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &JSONLStore{dir: dir, logger: logger}, nil
}

// SaveArticle appends to the approved or rejected file depending on the verdict.
func (s *JSONLStore) SaveArticle(_ context.Context, article domain.Article) error {
	name := rejectedFile
	if article.Accepted() {
		name = approvedFile
	}
	return s.append(name, toRecord(article))
}

// RecordSeenURL appends one history entry.
func (s *JSONLStore) RecordSeenURL(_ context.Context, url, source string) error {
	return s.append(visitedFile, seenRecord{URL: url, Newspaper: source})
}

// SeenURLs reads back the history for one source. A missing file is an empty history.
func (s *JSONLStore) SeenURLs(_ context.Context, source string) ([]string, error) {
	return s.urls(visitedFile, source)
}

// AcceptedURLs reads the approved file back for one source.
func (s *JSONLStore) AcceptedURLs(_ context.Context, source string) ([]string, error) {
	return s.urls(approvedFile, source)
}

// urls collects the url field of every line of name whose newspaper is source.
func (s *JSONLStore) urls(name, source string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for scanner.Scan() {
		line++
		var rec seenRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			s.logger.Warn("skipping malformed line", "file", name, "line", line, "error", err)
			continue
		}
		if rec.Newspaper == source && rec.URL != "" {
			urls = append(urls, rec.URL)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return urls, nil
}

func (s *JSONLStore) append(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("append %s: %w", name, err)
	}
	return f.Close()
}
