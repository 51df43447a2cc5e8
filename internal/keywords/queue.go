// Package keywords builds the ordered, resumable list of search terms for a run.
package keywords

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"NewsScanner/internal/domain"
)

// DefaultKeywords is the search list used when no keywords file is configured.
var DefaultKeywords = []string{
	"crime organizado",
	"facção criminosa",
	"milícia",
	"PCC",
	"Comando Vermelho",
	"tráfico de drogas",
	"narcotráfico",
	"grupo paramilitar",
	"cartel",
	"tiroteio",
}

// BuildOptions narrows the full keyword list. End <= 0 means the end of the list.
type BuildOptions struct {
	Start      int
	End        int
	ResumeFrom string
	Override   string
	Skip       map[string]struct{}
}

// Queue pops keywords strictly in order. It is owned by one controller.
type Queue struct {
	items []string
	pos   int

	skipped      []string
	resumeMissed bool
}

// Build resolves the effective keyword order:
// resume point, else override, then the [Start, End) range, then the skip set.
func Build(full []string, opts BuildOptions) *Queue {
	q := &Queue{}
	list := clean(full)

	switch {
	case opts.ResumeFrom != "":
		idx := indexOf(list, strings.TrimSpace(opts.ResumeFrom))
		if idx < 0 {
			q.resumeMissed = true
		} else {
			list = list[idx:]
		}
	case opts.Override != "":
		list = ParseOverride(opts.Override)
	}

	start, end := clampRange(opts.Start, opts.End, len(list))
	list = list[start:end]

	items := make([]string, 0, len(list))
	for _, kw := range list {
		if _, done := opts.Skip[kw]; done {
			q.skipped = append(q.skipped, kw)
			continue
		}
		items = append(items, kw)
	}
	q.items = items
	return q
}

// ParseOverride splits a comma-separated keyword list, trimming blanks.
func ParseOverride(raw string) []string {
	return clean(strings.Split(raw, ","))
}

// LoadList reads a YAML sequence of keywords.
func LoadList(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read keywords %s: %v", domain.ErrConfig, path, err)
	}

	var list []string
	if err := yaml.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%w: parse keywords %s: %v", domain.ErrConfig, path, err)
	}
	return clean(list), nil
}

// Next pops the next keyword; false means the run is exhausted.
func (q *Queue) Next() (string, bool) {
	if q.pos >= len(q.items) {
		return "", false
	}
	kw := q.items[q.pos]
	q.pos++
	return kw, true
}

// Len is the number of keywords the queue was built with.
func (q *Queue) Len() int {
	return len(q.items)
}

// Remaining returns the keywords not yet popped.
func (q *Queue) Remaining() []string {
	out := make([]string, len(q.items)-q.pos)
	copy(out, q.items[q.pos:])
	return out
}

// Skipped lists keywords removed because they were already checkpointed.
func (q *Queue) Skipped() []string {
	return q.skipped
}

// ResumeMissed reports that the resume keyword was not in the list and the full list was used.
func (q *Queue) ResumeMissed() bool {
	return q.resumeMissed
}

func clean(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, kw := range in {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

func indexOf(list []string, kw string) int {
	for i, item := range list {
		if item == kw {
			return i
		}
	}
	return -1
}

func clampRange(start, end, n int) (int, int) {
	if end <= 0 || end > n {
		end = n
	}
	if start < 0 {
		start = 0
	}
	if start > end {
		start = end
	}
	return start, end
}
