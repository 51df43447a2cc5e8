// Package checkpoint persists the keywords whose crawl has fully drained.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMalformed is returned by Load when the file exists but cannot be decoded.
var ErrMalformed = errors.New("malformed checkpoint file")

// FileName returns the checkpoint file name used for a source.
func FileName(source string) string {
	return fmt.Sprintf("completed_keywords_%s.yaml", source)
}

// Store is a YAML list of completed keywords, one file per source.
type Store struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	corrupt bool
}

// NewStore binds the store to <dir>/completed_keywords_<source>.yaml.
func NewStore(dir, source string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:   filepath.Join(dir, FileName(source)),
		logger: logger,
	}
}

// Path is the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Load returns the set of completed keywords. A missing file is an empty set.
// Malformed content yields an empty set and an error wrapping ErrMalformed.
func (s *Store) Load(ctx context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.read()
	set := make(map[string]struct{}, len(list))
	for _, kw := range list {
		set[kw] = struct{}{}
	}
	return set, err
}

// Completed returns the keywords in completion order.
func (s *Store) Completed(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read()
}

// MarkDone appends keyword and persists before returning. Marking twice is a no-op.
func (s *Store) MarkDone(ctx context.Context, keyword string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.read()
	if err != nil {
		if !errors.Is(err, ErrMalformed) {
			return err
		}
		if err := s.moveAside(); err != nil {
			return err
		}
		list = nil
	}

	for _, kw := range list {
		if kw == keyword {
			return nil
		}
	}

	list = append(list, keyword)
	if err := s.write(list); err != nil {
		return err
	}

	s.logger.Debug("keyword checkpointed", "keyword", keyword, "total", len(list))
	return nil
}

// read accepts either a plain YAML sequence or a mapping with a completed_keywords key.
func (s *Store) read() ([]string, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read checkpoint %s: %w", s.path, err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		s.corrupt = true
		return nil, fmt.Errorf("%w %s: %v", ErrMalformed, s.path, err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := root.Decode(&list); err != nil {
			s.corrupt = true
			return nil, fmt.Errorf("%w %s: %v", ErrMalformed, s.path, err)
		}
		return list, nil
	case yaml.MappingNode:
		var doc struct {
			Completed []string `yaml:"completed_keywords"`
		}
		if err := root.Decode(&doc); err != nil {
			s.corrupt = true
			return nil, fmt.Errorf("%w %s: %v", ErrMalformed, s.path, err)
		}
		return doc.Completed, nil
	case yaml.ScalarNode:
		if root.Tag == "!!null" {
			return nil, nil
		}
	}

	s.corrupt = true
	return nil, fmt.Errorf("%w %s: expected a list of keywords", ErrMalformed, s.path)
}

func (s *Store) moveAside() error {
	if !s.corrupt {
		return nil
	}
	backup := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().Unix())
	if err := os.Rename(s.path, backup); err != nil {
		return fmt.Errorf("move malformed checkpoint aside: %w", err)
	}
	s.corrupt = false
	s.logger.Warn("malformed checkpoint moved aside", "path", s.path, "backup", backup)
	return nil
}

func (s *Store) write(list []string) error {
	return writeYAML(s.path, list)
}

// writeYAML replaces path atomically: temp file in the same dir, fsync, rename.
func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp checkpoint: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}
