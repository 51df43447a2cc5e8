package parser

import (
	"bytes"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"NewsScanner/internal/scanner"
)

// expandTemplate fills {keyword}, {page} and {day} placeholders.
// Keywords are query-escaped, so spaces become '+'.
func expandTemplate(tmpl string, q scanner.Query) (string, error) {
	if strings.TrimSpace(q.Keyword) == "" {
		return "", fmt.Errorf("empty keyword")
	}

	day := ""
	if !q.Day.IsZero() {
		day = q.Day.Format("2006-01-02")
	}

	out := strings.NewReplacer(
		"{keyword}", url.QueryEscape(q.Keyword),
		"{page}", strconv.Itoa(q.Page),
		"{day}", day,
	).Replace(tmpl)

	if _, err := url.Parse(out); err != nil {
		return "", fmt.Errorf("invalid search url %s: %w", out, err)
	}
	return out, nil
}

func parseDocument(resp *scanner.Response) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// joinTexts trims every matched node and joins the non-empty ones with a space.
func joinTexts(sel *goquery.Selection) string {
	parts := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		if text := strings.Join(strings.Fields(s.Text()), " "); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}

func firstText(doc *goquery.Document, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.Join(strings.Fields(doc.Find(selector).First().Text()), " ")
}

func firstAttr(doc *goquery.Document, selector, attr string) string {
	if selector == "" {
		return ""
	}
	v, _ := doc.Find(selector).First().Attr(attr)
	return strings.TrimSpace(v)
}

func metaProperty(doc *goquery.Document, property string) string {
	return firstAttr(doc, fmt.Sprintf("meta[property='%s']", property), "content")
}

func metaProperties(doc *goquery.Document, property string) []string {
	var values []string
	doc.Find(fmt.Sprintf("meta[property='%s']", property)).Each(func(_ int, s *goquery.Selection) {
		if v := strings.TrimSpace(s.AttrOr("content", "")); v != "" {
			values = append(values, v)
		}
	})
	return values
}
