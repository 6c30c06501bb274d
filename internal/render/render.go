// Package render loads pages for extraction. Implementations reveal content
// hidden behind collapsible sections, lazy loading and load-more buttons
// before handing back HTML, visible text and screenshots.
package render

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// Page is a fully revealed page.
type Page struct {
	URL    string
	Title  string
	HTML   string
	Text   string
	Images [][]byte
}

// Renderer reveals pages one at a time.
type Renderer interface {
	Reveal(ctx context.Context, url string) (*Page, error)
	Close() error
}

// ErrNotFound is returned by renderers that serve a fixed page set.
var ErrNotFound = eris.New("render: page not found")

// FromHTML builds a page from static HTML, deriving title and visible text.
func FromHTML(url, html string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrapf(err, "render: parse html for %s", url)
	}
	return &Page{
		URL:   url,
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		HTML:  html,
		Text:  VisibleText(doc),
	}, nil
}

// VisibleText returns the body text with scripts and styles removed and
// whitespace collapsed per line.
func VisibleText(doc *goquery.Document) string {
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	body = body.Clone()
	body.Find("script, style, noscript, template, svg").Remove()
	body.Find("br, p, div, li, tr, h1, h2, h3, h4, h5, h6, section, article, header, footer, nav").
		Each(func(_ int, s *goquery.Selection) {
			s.AppendHtml("\n")
		})

	var lines []string
	for _, line := range strings.Split(body.Text(), "\n") {
		if l := strings.Join(strings.Fields(line), " "); l != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n")
}
