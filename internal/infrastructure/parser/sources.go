package parser

import (
	"fmt"
	"regexp"

	"NewsScanner/internal/scanner"
)

// Search templates, each shared by a source's descriptor and its portal.
const (
	diplomatiqueSearch     = "https://diplomatique.org.br/page/{page}/?s={keyword}&orderby=date&order=DESC"
	diplomatiqueFeedSearch = "https://diplomatique.org.br/page/{page}/?s={keyword}&feed=rss2"
	cartacapitalSearch     = "https://www.cartacapital.com.br/page/{page}/?s={keyword}"
	correioSearch          = "https://www.correiodopovo.com.br/busca?q={keyword}&page={page}&sort=date"
	laprensaSearch         = "https://www.laprensa.com.ar/json/apps/notes.aspx?allfields={keyword}&pagesize=50&page={page}"
)

// Correio do Povo article URLs end in a numeric id such as -1.54897.
var correioArticleExpr = regexp.MustCompile(`-\d+\.\d+$`)

var diplomatiqueArticle = SelectorConfig{
	TitleSelector:  "h1.post-title a, h1.post-title",
	BodySelector:   "div.entry-content > p",
	AuthorSelector: "span.author.vcard",
	DateSelector:   "time.entry-date, time.datapublicacao",
	DateAttr:       "datetime",
}

// RegisterDefaults registers every built-in source.
func RegisterDefaults(reg *scanner.Registry) error {
	diplomatique := diplomatiqueArticle
	diplomatique.SearchTemplate = diplomatiqueSearch
	diplomatique.LinkSelector = "h3 a[href], h2 a[href]"
	diplomatique.NextSelector = "a.number.nextp"

	sources := []struct {
		desc   scanner.Descriptor
		portal scanner.Portal
	}{
		{
			desc: scanner.Descriptor{
				Name:           "diplomatique",
				Domain:         "diplomatique.org.br",
				SearchTemplate: diplomatiqueSearch,
				FirstPage:      1,
			},
			portal: NewSelectorPortal(diplomatique),
		},
		{
			desc: scanner.Descriptor{
				Name:           "diplomatique_feed",
				Domain:         "diplomatique.org.br",
				SearchTemplate: diplomatiqueFeedSearch,
				FirstPage:      1,
			},
			portal: NewFeedPortal(diplomatiqueFeedSearch, 10, diplomatiqueArticle),
		},
		{
			desc: scanner.Descriptor{
				Name:           "cartacapital",
				Domain:         "cartacapital.com.br",
				SearchTemplate: cartacapitalSearch,
				FirstPage:      1,
			},
			portal: NewSelectorPortal(SelectorConfig{
				SearchTemplate:   cartacapitalSearch,
				LinkSelector:     "a.l-list__item",
				NextSelector:     "span",
				NextText:         "Próxima",
				TitleSelector:    "h1",
				SubtitleSelector: "section.s-content__heading > p:nth-of-type(2)",
				BodySelector:     "section.contentsingle",
				RequireSubtitle:  true,
			}),
		},
		{
			desc: scanner.Descriptor{
				Name:           "correio_do_povo",
				Domain:         "correiodopovo.com.br",
				SearchTemplate: correioSearch,
				FirstPage:      1,
			},
			portal: NewSelectorPortal(SelectorConfig{
				SearchTemplate:  correioSearch,
				LinkSelector:    "a[href]",
				LinkPattern:     correioArticleExpr,
				NextSelector:    `li a[title="Next page"]`,
				TitleSelector:   "h1.article__headline, h1",
				BodySelector:    "div.article__body p, div.content-text p",
				AuthorSelector:  "div.autoredata address",
				DateSelector:    "time",
				DateAttr:        "datetime",
				PaywallSelector: "div.conteudo_pago",
			}),
		},
		{
			desc: scanner.Descriptor{
				Name:           "laprensa",
				Domain:         "laprensa.com.ar",
				SearchTemplate: laprensaSearch,
				FirstPage:      1,
			},
			portal: NewJSONSearchPortal(
				laprensaSearch,
				defaultNotesPageSize,
				SelectorConfig{
					TitleSelector:  "h1",
					BodySelector:   "article p, div.article-body p",
					AuthorSelector: ".author, .autor",
				},
			),
		},
		{
			desc: scanner.Descriptor{
				Name:           "g1",
				Domain:         "g1.globo.com",
				SearchTemplate: g1SearchURL,
				FirstPage:      1,
				DateWindowed:   true,
			},
			portal: NewG1Portal(),
		},
	}

	for _, s := range sources {
		if err := reg.Register(s.desc, s.portal); err != nil {
			return fmt.Errorf("register %s: %w", s.desc.Name, err)
		}
	}
	return nil
}
