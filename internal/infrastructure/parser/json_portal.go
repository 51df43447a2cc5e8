package parser

import (
	"encoding/json"
	"fmt"

	"NewsScanner/internal/domain"
	"NewsScanner/internal/scanner"
)

const defaultNotesPageSize = 50

type notesResults struct {
	Total int `json:"t"`
	Notes []struct {
		Link string `json:"link"`
	} `json:"notes"`
}

// JSONSearchPortal reads search results from a JSON notes API and articles from HTML.
type JSONSearchPortal struct {
	template string
	pageSize int
	article  *SelectorPortal
}

var _ scanner.Portal = (*JSONSearchPortal)(nil)

// NewJSONSearchPortal builds a portal whose template carries {keyword}, {page} and a fixed pagesize.
func NewJSONSearchPortal(template string, pageSize int, article SelectorConfig) *JSONSearchPortal {
	if pageSize <= 0 {
		pageSize = defaultNotesPageSize
	}
	return &JSONSearchPortal{
		template: template,
		pageSize: pageSize,
		article:  NewSelectorPortal(article),
	}
}

// SearchURL expands the API template.
func (p *JSONSearchPortal) SearchURL(q scanner.Query) (string, error) {
	return expandTemplate(p.template, q)
}

// ListArticleLinks returns notes[].link from the API payload.
func (p *JSONSearchPortal) ListArticleLinks(resp *scanner.Response) ([]string, error) {
	results, err := decodeNotes(resp)
	if err != nil {
		return nil, err
	}
	links := make([]string, 0, len(results.Notes))
	for _, n := range results.Notes {
		if n.Link != "" {
			links = append(links, n.Link)
		}
	}
	return links, nil
}

// HasNextPage compares the reported total with the results already paged through.
func (p *JSONSearchPortal) HasNextPage(resp *scanner.Response, q scanner.Query) bool {
	results, err := decodeNotes(resp)
	if err != nil {
		return false
	}
	return results.Total-p.pageSize*q.Page > 0
}

// ParseArticle extracts the linked HTML article.
func (p *JSONSearchPortal) ParseArticle(resp *scanner.Response) (domain.RawFields, error) {
	return p.article.ParseArticle(resp)
}

func decodeNotes(resp *scanner.Response) (notesResults, error) {
	var results notesResults
	if err := json.Unmarshal(resp.Body, &results); err != nil {
		return results, fmt.Errorf("decode notes: %w", err)
	}
	return results, nil
}
