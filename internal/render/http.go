package render

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/program-extractor/internal/resilience"
)

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 8 << 20

// HTTPOptions configures the static renderer.
type HTTPOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	// Pace is the minimum spacing between requests to the site.
	Pace time.Duration
}

// HTTPRenderer fetches pages without a browser. Nothing hidden behind
// script is revealed and no screenshots are taken; it serves sites that
// render server-side and hosts without Chrome.
type HTTPRenderer struct {
	client  *http.Client
	opts    HTTPOptions
	limiter *resilience.AdaptiveLimiter
}

// NewHTTPRenderer creates a static renderer.
func NewHTTPRenderer(opts HTTPOptions) *HTTPRenderer {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "program-extractor/1.0"
	}
	r := &HTTPRenderer{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts: opts,
	}
	if opts.Pace > 0 {
		r.limiter = resilience.NewAdaptiveLimiter(opts.Pace)
	}
	return r
}

// Reveal implements Renderer.
func (r *HTTPRenderer) Reveal(ctx context.Context, url string) (*Page, error) {
	cfg := resilience.DefaultRetryConfig()
	cfg.MaxAttempts = r.opts.MaxRetries
	cfg.InitialBackoff = time.Second
	cfg.OnRetry = resilience.RetryLogger("http", url)

	html, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (string, error) {
		return r.fetch(ctx, url)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "render: fetch %s", url)
	}
	return FromHTML(url, html)
}

func (r *HTTPRenderer) fetch(ctx context.Context, url string) (string, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "rate limiter wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", r.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusTooManyRequests && r.limiter != nil {
		r.limiter.OnRateLimit()
	}
	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return "", resilience.NewTransientError(eris.Errorf("http %d from %s", resp.StatusCode, url), resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return "", eris.Errorf("unexpected content type %q from %s", ct, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", eris.Wrap(err, "read body")
	}
	if r.limiter != nil {
		r.limiter.OnSuccess()
	}
	zap.L().Debug("render: fetched", zap.String("url", url), zap.Int("bytes", len(body)))
	return string(body), nil
}

// Close implements Renderer.
func (r *HTTPRenderer) Close() error {
	r.client.CloseIdleConnections()
	return nil
}
