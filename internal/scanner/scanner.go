package scanner

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"NewsScanner/internal/domain"
)

// Query identifies one search results page for a keyword. Day is set only for date-windowed sources.
type Query struct {
	Keyword string
	Page    int
	Day     time.Time
}

// Response is a fetched page as seen by a portal.
type Response struct {
	URL        string
	StatusCode int
	Body       []byte
	Header     http.Header
}

// Descriptor is the static capability record every source must fill in.
type Descriptor struct {
	Name           string
	Domain         string
	SearchTemplate string
	FirstPage      int
	DateWindowed   bool
}

// Validate checks the required descriptor fields.
func (d Descriptor) Validate() error {
	var missing []string
	if strings.TrimSpace(d.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(d.Domain) == "" {
		missing = append(missing, "domain")
	}
	if strings.TrimSpace(d.SearchTemplate) == "" {
		missing = append(missing, "search template")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: source %q missing %s", domain.ErrConfig, d.Name, strings.Join(missing, ", "))
	}
	if d.FirstPage < 0 {
		return fmt.Errorf("%w: source %q has negative first page", domain.ErrConfig, d.Name)
	}
	return nil
}

// Portal is the site-specific behaviour behind a descriptor.
type Portal interface {
	SearchURL(q Query) (string, error)
	ListArticleLinks(resp *Response) ([]string, error)
	HasNextPage(resp *Response, q Query) bool
	ParseArticle(resp *Response) (domain.RawFields, error)
}

// Source pairs a descriptor with its portal.
type Source struct {
	Descriptor
	Portal
}

// Registry keeps a mapping from source names to their implementations.
type Registry struct {
	sources map[string]Source
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: map[string]Source{}}
}

// Register validates and adds a source. Names must be unique.
func (r *Registry) Register(desc Descriptor, portal Portal) error {
	if err := desc.Validate(); err != nil {
		return err
	}
	if portal == nil {
		return fmt.Errorf("%w: source %q has no portal", domain.ErrConfig, desc.Name)
	}
	if r.sources == nil {
		r.sources = map[string]Source{}
	}
	if _, exists := r.sources[desc.Name]; exists {
		return fmt.Errorf("%w: source %s registered twice", domain.ErrConfig, desc.Name)
	}
	r.sources[desc.Name] = Source{Descriptor: desc, Portal: portal}
	return nil
}

// ErrUnknownSource is returned by Resolve for unregistered names.
var ErrUnknownSource = errors.New("source is not registered")

// Resolve returns a source by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Source, error) {
	if src, ok := r.sources[name]; ok {
		return src, nil
	}
	return Source{}, fmt.Errorf("%w: %s", ErrUnknownSource, name)
}

// Names lists registered sources alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
