// Package dedup keeps the set of article URLs already fetched or queued in this run.
package dedup

import (
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// SearchPredicate reports whether a URL is a search or listing page.
type SearchPredicate func(url string) bool

// DefaultSearchMarkers are the query fragments that identify search pages.
var DefaultSearchMarkers = []string{"?s=", "?q=", "&q=", "?contenido=", "?allfields=", "/busca/"}

// MarkerPredicate matches URLs containing any of the markers.
func MarkerPredicate(markers ...string) SearchPredicate {
	return func(url string) bool {
		for _, m := range markers {
			if strings.Contains(url, m) {
				return true
			}
		}
		return false
	}
}

// Filter is an add-only set of article URLs. Search URLs are never filtered.
// The bloom filter answers most misses without touching the map.
type Filter struct {
	isSearch SearchPredicate

	mu       sync.Mutex
	bloom    *bloom.BloomFilter
	seen     map[string]struct{}
	inflight map[string]struct{}
}

// NewFilter sizes the bloom filter for expected entries. A nil predicate uses DefaultSearchMarkers.
func NewFilter(expected uint, isSearch SearchPredicate) *Filter {
	if expected == 0 {
		expected = 100_000
	}
	if isSearch == nil {
		isSearch = MarkerPredicate(DefaultSearchMarkers...)
	}
	return &Filter{
		isSearch: isSearch,
		bloom:    bloom.NewWithEstimates(expected, 0.001),
		seen:     make(map[string]struct{}),
		inflight: make(map[string]struct{}),
	}
}

// IsSearch exposes the predicate used to exempt listing URLs.
func (f *Filter) IsSearch(url string) bool {
	return f.isSearch(url)
}

// Seed bulk-loads URLs known from persisted history.
func (f *Filter) Seed(urls []string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range urls {
		f.add(u)
	}
}

// IsKnown reports whether url was already seen. Search URLs always return false.
func (f *Filter) IsKnown(url string) bool {
	if f.isSearch(url) {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.known(url)
}

// Remember records url as seen. Search URLs are ignored.
func (f *Filter) Remember(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.inflight, url)
	f.add(url)
}

// Claim reserves an article URL for fetching. It returns false when the URL is
// already known or another listing page claimed it first. Search URLs are always claimable.
func (f *Filter) Claim(url string) bool {
	if f.isSearch(url) {
		return true
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.known(url) {
		return false
	}
	if _, ok := f.inflight[url]; ok {
		return false
	}
	f.inflight[url] = struct{}{}
	return true
}

// Len is the number of remembered URLs.
func (f *Filter) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.seen)
}

func (f *Filter) known(url string) bool {
	if !f.bloom.TestString(url) {
		return false
	}
	_, ok := f.seen[url]
	return ok
}

func (f *Filter) add(url string) {
	if url == "" || f.isSearch(url) {
		return
	}
	if _, ok := f.seen[url]; ok {
		return
	}
	f.seen[url] = struct{}{}
	f.bloom.AddString(url)
}
