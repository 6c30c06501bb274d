package render

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FixtureRenderer serves pages from memory. It is used for offline runs
// and tests.
type FixtureRenderer struct {
	mu    sync.Mutex
	pages map[string]*Page
	calls []string
}

// NewFixtureRenderer creates a renderer over the given pages, keyed by URL.
func NewFixtureRenderer(pages map[string]*Page) *FixtureRenderer {
	f := &FixtureRenderer{pages: make(map[string]*Page, len(pages))}
	for u, p := range pages {
		f.pages[fixtureKey(u)] = p
	}
	return f
}

// LoadFixtureDir reads every .html file under dir as a page of baseURL.
// index.html is the root; programs.html and programs/index.html both map to
// /programs.
func LoadFixtureDir(dir, baseURL string) (*FixtureRenderer, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return nil, eris.Errorf("render: invalid fixture base url %q", baseURL)
	}

	pages := make(map[string]*Page)
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".html") {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))
		if rel == "index" {
			rel = ""
		}
		rel = strings.TrimSuffix(rel, "/index")

		u := *base
		u.Path = "/" + rel
		raw, err := os.ReadFile(path)
		if err != nil {
			return eris.Wrapf(err, "render: read fixture %s", path)
		}
		p, err := FromHTML(u.String(), string(raw))
		if err != nil {
			return err
		}
		pages[u.String()] = p
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "render: load fixtures")
	}
	if len(pages) == 0 {
		return nil, eris.Errorf("render: no .html fixtures in %s", dir)
	}

	zap.L().Info("render: loaded fixtures", zap.String("dir", dir), zap.Int("pages", len(pages)))
	return NewFixtureRenderer(pages), nil
}

// Reveal implements Renderer.
func (f *FixtureRenderer) Reveal(ctx context.Context, rawURL string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "render: reveal")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rawURL)

	p, ok := f.pages[fixtureKey(rawURL)]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "render: %s", rawURL)
	}
	cp := *p
	cp.URL = rawURL
	return &cp, nil
}

// Calls returns the URLs revealed so far, in order.
func (f *FixtureRenderer) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Close implements Renderer.
func (f *FixtureRenderer) Close() error { return nil }

func fixtureKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	path := strings.TrimSuffix(u.Path, "/")
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return host + path
}
