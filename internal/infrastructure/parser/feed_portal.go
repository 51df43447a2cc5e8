package parser

import (
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"NewsScanner/internal/domain"
	"NewsScanner/internal/scanner"
)

// FeedPortal lists results from a WordPress search feed (?s=keyword&feed=rss2)
// and extracts articles with an HTML selector set.
type FeedPortal struct {
	template string
	perPage  int
	article  *SelectorPortal
}

var _ scanner.Portal = (*FeedPortal)(nil)

// NewFeedPortal builds a feed-driven portal. perPage is the site's posts_per_rss setting.
func NewFeedPortal(template string, perPage int, article SelectorConfig) *FeedPortal {
	if perPage <= 0 {
		perPage = 10
	}
	return &FeedPortal{template: template, perPage: perPage, article: NewSelectorPortal(article)}
}

// SearchURL expands the feed template.
func (p *FeedPortal) SearchURL(q scanner.Query) (string, error) {
	return expandTemplate(p.template, q)
}

// ListArticleLinks returns item links, falling back to URL-like GUIDs.
func (p *FeedPortal) ListArticleLinks(resp *scanner.Response) ([]string, error) {
	feed, err := parseFeed(resp)
	if err != nil {
		return nil, err
	}

	links := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		switch {
		case item.Link != "":
			links = append(links, item.Link)
		case strings.HasPrefix(item.GUID, "http"):
			links = append(links, item.GUID)
		}
	}
	return links, nil
}

// HasNextPage assumes another page while the feed returns full pages.
func (p *FeedPortal) HasNextPage(resp *scanner.Response, _ scanner.Query) bool {
	feed, err := parseFeed(resp)
	if err != nil {
		return false
	}
	return len(feed.Items) >= p.perPage
}

// ParseArticle extracts the linked HTML article.
func (p *FeedPortal) ParseArticle(resp *scanner.Response) (domain.RawFields, error) {
	return p.article.ParseArticle(resp)
}

func parseFeed(resp *scanner.Response) (*gofeed.Feed, error) {
	feed, err := gofeed.NewParser().ParseString(string(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}
