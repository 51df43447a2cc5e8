package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"NewsScanner/internal/domain"
	"NewsScanner/internal/scanner"
)

// SelectorConfig describes an HTML news site with CSS selectors.
type SelectorConfig struct {
	SearchTemplate string

	LinkSelector string
	LinkAttr     string
	LinkPattern  *regexp.Regexp

	NextSelector string
	NextText     string

	TitleSelector    string
	SubtitleSelector string
	BodySelector     string
	AuthorSelector   string
	DateSelector     string
	DateAttr         string

	PaywallSelector string
	// RequireSubtitle treats a missing subtitle as a paywall and prefixes it to the body.
	RequireSubtitle bool
}

// SelectorPortal implements scanner.Portal for server-rendered HTML sites.
type SelectorPortal struct {
	cfg SelectorConfig
}

var _ scanner.Portal = (*SelectorPortal)(nil)

// NewSelectorPortal wires a selector set; LinkAttr defaults to href.
func NewSelectorPortal(cfg SelectorConfig) *SelectorPortal {
	if cfg.LinkAttr == "" {
		cfg.LinkAttr = "href"
	}
	return &SelectorPortal{cfg: cfg}
}

// SearchURL expands the search template for the query.
func (p *SelectorPortal) SearchURL(q scanner.Query) (string, error) {
	return expandTemplate(p.cfg.SearchTemplate, q)
}

// ListArticleLinks returns candidate links in page order. Relative links are resolved by the caller.
func (p *SelectorPortal) ListArticleLinks(resp *scanner.Response) ([]string, error) {
	doc, err := parseDocument(resp)
	if err != nil {
		return nil, err
	}

	var links []string
	doc.Find(p.cfg.LinkSelector).Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr(p.cfg.LinkAttr, ""))
		if href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "#") {
			return
		}
		if p.cfg.LinkPattern != nil && !p.cfg.LinkPattern.MatchString(href) {
			return
		}
		links = append(links, href)
	})
	return links, nil
}

// HasNextPage looks for the pagination control on the results page.
func (p *SelectorPortal) HasNextPage(resp *scanner.Response, _ scanner.Query) bool {
	if p.cfg.NextSelector == "" {
		return false
	}
	doc, err := parseDocument(resp)
	if err != nil {
		return false
	}

	next := doc.Find(p.cfg.NextSelector)
	if p.cfg.NextText != "" {
		next = next.FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.TrimSpace(s.Text()) == p.cfg.NextText
		})
	}
	return next.Length() > 0
}

// ParseArticle extracts the article fields, falling back to Open Graph article meta tags.
func (p *SelectorPortal) ParseArticle(resp *scanner.Response) (domain.RawFields, error) {
	doc, err := parseDocument(resp)
	if err != nil {
		return domain.RawFields{}, fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}
	return p.extract(doc, resp.URL)
}

func (p *SelectorPortal) extract(doc *goquery.Document, pageURL string) (domain.RawFields, error) {
	if p.cfg.PaywallSelector != "" && doc.Find(p.cfg.PaywallSelector).Length() > 0 {
		return domain.RawFields{}, domain.ErrPaywalled
	}

	subtitle := firstText(doc, p.cfg.SubtitleSelector)
	if p.cfg.RequireSubtitle && subtitle == "" {
		return domain.RawFields{}, domain.ErrPaywalled
	}

	body := joinTexts(doc.Find(p.cfg.BodySelector))
	if body == "" {
		return domain.RawFields{}, fmt.Errorf("%w: no body text at %s", domain.ErrExtraction, pageURL)
	}
	if p.cfg.RequireSubtitle {
		body = subtitle + " " + body
	}

	title := firstText(doc, p.cfg.TitleSelector)
	if title == "" {
		title = metaProperty(doc, "og:title")
	}

	published := firstAttr(doc, p.cfg.DateSelector, p.cfg.DateAttr)
	if p.cfg.DateAttr == "" {
		published = firstText(doc, p.cfg.DateSelector)
	}
	if published == "" {
		published = metaProperty(doc, "article:published_time")
	}

	return domain.RawFields{
		Title:        title,
		Subtitle:     subtitle,
		Body:         body,
		Author:       firstText(doc, p.cfg.AuthorSelector),
		PublishedRaw: published,
		ModifiedRaw:  metaProperty(doc, "article:modified_time"),
		Section:      metaProperty(doc, "article:section"),
		Tags:         metaProperties(doc, "article:tag"),
	}, nil
}
