package parser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"NewsScanner/internal/domain"
	"NewsScanner/internal/scanner"
)

const (
	g1SearchURL = "https://g1.globo.com/busca/?q=%s&order=recent&from=%sT00%%3A00%%3A00-0300&to=%sT23%%3A59%%3A59-0300&species=not%%C3%%ADcias"
	// Shorter bodies are navigation fragments, not article text.
	g1MinBody = 50
)

var (
	g1ResultSelectors = []string{
		"li.widget--card a.widget--info__media",
		"li.widget--card a.widget--info__text-container",
	}
	g1LegacyBody = []string{
		"div#materia-letra p",
		"div.entry-content p",
		"div.post-content p",
	}
	g1ModernBody = []string{
		"article p.content-text__container",
		"div.mc-column.content-text p",
		"article[itemprop='articleBody'] p",
		"div.widget--info__text-container p",
	}
)

// G1Portal searches one day at a time and understands both article layouts of the site.
type G1Portal struct {
	searchURL string
}

var _ scanner.Portal = (*G1Portal)(nil)

// NewG1Portal uses the public search endpoint.
func NewG1Portal() *G1Portal {
	return &G1Portal{searchURL: g1SearchURL}
}

// SearchURL builds the per-day search for q.Day.
func (p *G1Portal) SearchURL(q scanner.Query) (string, error) {
	if q.Day.IsZero() {
		return "", fmt.Errorf("g1 search needs a day")
	}
	if strings.TrimSpace(q.Keyword) == "" {
		return "", fmt.Errorf("empty keyword")
	}
	day := q.Day.Format("2006-01-02")
	u := fmt.Sprintf(p.searchURL, url.PathEscape(q.Keyword), day, day)
	if q.Page > 1 {
		u += fmt.Sprintf("&page=%d", q.Page)
	}
	return u, nil
}

// ListArticleLinks unwraps the click-tracking redirect (u= parameter) of each result.
func (p *G1Portal) ListArticleLinks(resp *scanner.Response) ([]string, error) {
	doc, err := parseDocument(resp)
	if err != nil {
		return nil, err
	}

	var links []string
	for _, selector := range g1ResultSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if href := strings.TrimSpace(s.AttrOr("href", "")); href != "" {
				links = append(links, unwrapRedirect(href))
			}
		})
		if len(links) > 0 {
			break
		}
	}
	return links, nil
}

// HasNextPage follows the "load more" control of the results list.
func (p *G1Portal) HasNextPage(resp *scanner.Response, _ scanner.Query) bool {
	doc, err := parseDocument(resp)
	if err != nil {
		return false
	}
	return doc.Find("a.pagination__load-more").Length() > 0
}

// ParseArticle tries the legacy layout first, then the current one.
func (p *G1Portal) ParseArticle(resp *scanner.Response) (domain.RawFields, error) {
	doc, err := parseDocument(resp)
	if err != nil {
		return domain.RawFields{}, fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}

	title := firstText(doc, "h1.content-head__title")
	if title == "" {
		title = firstText(doc, "h1.entry-title")
	}
	if title == "" {
		return domain.RawFields{}, fmt.Errorf("%w: no title at %s", domain.ErrExtraction, resp.URL)
	}

	subtitle, body := g1Legacy(doc)
	if body == "" {
		subtitle, body = g1Modern(doc)
	}
	if body == "" {
		return domain.RawFields{}, fmt.Errorf("%w: no body text at %s", domain.ErrExtraction, resp.URL)
	}

	return domain.RawFields{
		Title:        title,
		Subtitle:     subtitle,
		Body:         strings.TrimSpace(subtitle + " " + body),
		PublishedRaw: g1Date(doc),
		ModifiedRaw:  metaProperty(doc, "article:modified_time"),
		Section:      metaProperty(doc, "article:section"),
		Tags:         metaProperties(doc, "article:tag"),
	}, nil
}

func g1Legacy(doc *goquery.Document) (string, string) {
	for _, selector := range g1LegacyBody {
		if body := minBody(joinTexts(doc.Find(selector))); body != "" {
			return joinTexts(doc.Find("h2")), body
		}
	}
	return "", ""
}

func g1Modern(doc *goquery.Document) (string, string) {
	subtitle := firstText(doc, "h2.content-head__subtitle")
	if subtitle == "" {
		subtitle = firstText(doc, "h2[itemprop='alternativeHeadline']")
	}
	for _, selector := range g1ModernBody {
		if doc.Find(selector).Length() == 0 {
			continue
		}
		return subtitle, minBody(joinTexts(doc.Find(selector)))
	}
	return "", ""
}

// g1Date prefers the machine-readable datetime, then the visible timestamps.
func g1Date(doc *goquery.Document) string {
	if iso := firstAttr(doc, `time[itemprop="datePublished"]`, "datetime"); len(iso) >= 10 {
		return iso[:10]
	}
	for _, selector := range []string{`time[itemprop="datePublished"]`, ".content-publication-data__updated time", "abbr.published"} {
		if text := firstText(doc, selector); text != "" {
			return text
		}
	}
	return ""
}

func minBody(text string) string {
	if len(text) <= g1MinBody {
		return ""
	}
	return text
}

func unwrapRedirect(href string) string {
	if !strings.Contains(href, "u=") {
		return href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := parsed.Query().Get("u"); target != "" {
		return target
	}
	return href
}
