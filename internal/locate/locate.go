// Package locate finds same-site links in rendered HTML and tags each with
// the structural region (header, menu, sidebar, content, footer) it sits in.
package locate

import (
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/program-extractor/internal/model"
)

// Container selectors by location, in precedence order.
const (
	headerSelector  = "header, nav, .navbar, .navigation, .main-nav, .primary-nav, .header-nav, .top-nav"
	menuSelector    = ".menu, .main-menu, .primary-menu, .nav-menu, [role=navigation]"
	sidebarSelector = ".sidebar, .side-nav, .secondary-nav, aside"
	footerSelector  = "footer, .footer, .site-footer, .page-footer"
)

// Result is the outcome of locating links on one page.
type Result struct {
	Links []model.LocatedLink `json:"links"`
	Nav   model.NavSet        `json:"-"`
}

// Counts returns the number of links per location.
func (r *Result) Counts() map[model.LinkLocation]int {
	out := make(map[model.LinkLocation]int)
	for _, l := range r.Links {
		out[l.Location]++
	}
	return out
}

// Locator extracts located links from rendered HTML.
type Locator struct {
	matcher *PathMatcher
}

// New creates a Locator that drops URLs matching the exclude patterns.
func New(excludePatterns []string) *Locator {
	return &Locator{matcher: NewPathMatcher(excludePatterns)}
}

// Locate parses html rendered at pageURL and returns its same-site links,
// deduplicated by normalized URL (the best location wins) and ordered by
// base priority, then document order.
func (l *Locator) Locate(pageURL, html string) (*Result, error) {
	base, err := url.Parse(pageURL)
	if err != nil || base.Host == "" {
		return nil, eris.Errorf("locate: invalid page url %q", pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "locate: parse html")
	}

	// <base href> changes how relative links resolve.
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := url.Parse(strings.TrimSpace(href)); err == nil {
			base = base.ResolveReference(b)
		}
	}

	index := make(map[string]int)
	var links []model.LocatedLink

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		resolved, ok := resolveLink(base, href)
		if !ok || l.matcher.IsExcluded(resolved) {
			return
		}

		loc := locationOf(s)
		link := model.LocatedLink{
			URL:          resolved,
			AnchorText:   anchorText(s),
			Title:        strings.TrimSpace(s.AttrOr("title", "")),
			Location:     loc,
			BasePriority: loc.BasePriority(),
		}

		if i, seen := index[resolved]; seen {
			prev := &links[i]
			if link.BasePriority < prev.BasePriority {
				prev.Location = link.Location
				prev.BasePriority = link.BasePriority
			}
			if prev.AnchorText == "" {
				prev.AnchorText = link.AnchorText
			}
			if prev.Title == "" {
				prev.Title = link.Title
			}
			return
		}
		index[resolved] = len(links)
		links = append(links, link)
	})

	sort.SliceStable(links, func(i, j int) bool {
		return links[i].BasePriority < links[j].BasePriority
	})

	nav := make(model.NavSet)
	for _, link := range links {
		if link.Location.IsNav() {
			nav.Add(link.URL)
		}
	}

	res := &Result{Links: links, Nav: nav}
	counts := res.Counts()
	zap.L().Debug("locate: links found",
		zap.String("url", pageURL),
		zap.Int("header", counts[model.LocationHeader]+counts[model.LocationMenu]),
		zap.Int("sidebar", counts[model.LocationSidebar]),
		zap.Int("content", counts[model.LocationContent]),
		zap.Int("footer", counts[model.LocationFooter]),
	)
	return res, nil
}

// locationOf applies container precedence. A nav container nested inside a
// footer or sidebar belongs to that outer region.
func locationOf(s *goquery.Selection) model.LinkLocation {
	if navContainer(s, headerSelector) {
		return model.LocationHeader
	}
	if navContainer(s, menuSelector) {
		return model.LocationMenu
	}
	if s.Closest(sidebarSelector).Length() > 0 {
		return model.LocationSidebar
	}
	if s.Closest(footerSelector).Length() > 0 {
		return model.LocationFooter
	}
	return model.LocationContent
}

func navContainer(s *goquery.Selection, selector string) bool {
	c := s.Closest(selector)
	if c.Length() == 0 {
		return false
	}
	return c.Closest(footerSelector).Length() == 0 && c.Closest(sidebarSelector).Length() == 0
}

func anchorText(s *goquery.Selection) string {
	if text := strings.Join(strings.Fields(s.Text()), " "); text != "" {
		return text
	}
	for _, attr := range []string{"aria-label", "title"} {
		if v := strings.TrimSpace(s.AttrOr(attr, "")); v != "" {
			return v
		}
	}
	return strings.TrimSpace(s.Find("img[alt]").First().AttrOr("alt", ""))
}

// resolveLink turns an href into a normalized absolute same-site URL.
func resolveLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	lower := strings.ToLower(href)
	for _, prefix := range []string{"tel:", "mailto:", "javascript:", "sms:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return "", false
		}
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	if !SameSite(abs.Host, base.Host) {
		return "", false
	}
	return NormalizeURL(abs.String()), true
}

// SameSite reports whether two hosts belong to the same site, ignoring
// case and a leading "www.".
func SameSite(a, b string) bool {
	return hostKey(a) == hostKey(b)
}

func hostKey(h string) string {
	return strings.TrimPrefix(strings.ToLower(h), "www.")
}

// NormalizeURL canonicalizes a URL for identity comparisons: lowercase
// scheme and host, no fragment, no trailing slash except at the root.
// Unparseable input is returned trimmed.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
	} else if len(u.Path) > 1 {
		u.Path = strings.TrimRight(u.Path, "/")
		if u.Path == "" {
			u.Path = "/"
		}
		u.RawPath = ""
	}
	return u.String()
}
