package render

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ChromeOptions configures the browser renderer.
type ChromeOptions struct {
	Headless        bool
	ViewportWidth   int
	ViewportHeight  int
	UserAgent       string
	ExpandMaxClicks int
	MaxScrolls      int
	LoadMoreClicks  int
	// Settle is the pause after each click or scroll for content to load.
	Settle time.Duration
}

// DefaultChromeOptions returns the options used when nothing is configured.
func DefaultChromeOptions() ChromeOptions {
	return ChromeOptions{
		Headless:        true,
		ViewportWidth:   1920,
		ViewportHeight:  1080,
		ExpandMaxClicks: 10,
		MaxScrolls:      50,
		LoadMoreClicks:  8,
		Settle:          800 * time.Millisecond,
	}
}

func (o ChromeOptions) withDefaults() ChromeOptions {
	def := DefaultChromeOptions()
	if o.ViewportWidth <= 0 {
		o.ViewportWidth = def.ViewportWidth
	}
	if o.ViewportHeight <= 0 {
		o.ViewportHeight = def.ViewportHeight
	}
	if o.ExpandMaxClicks < 0 {
		o.ExpandMaxClicks = 0
	}
	if o.MaxScrolls <= 0 {
		o.MaxScrolls = def.MaxScrolls
	}
	if o.LoadMoreClicks < 0 {
		o.LoadMoreClicks = 0
	}
	if o.Settle <= 0 {
		o.Settle = def.Settle
	}
	return o
}

// expandSelectors match dropdowns, accordions, tabs and detail toggles.
var expandSelectors = []string{
	`button[aria-expanded="false"]`,
	`.dropdown-toggle:not(.show)`,
	`[data-toggle="dropdown"]`,
	`[data-bs-toggle="collapse"]`,
	`[data-toggle="collapse"]`,
	`.accordion-header`,
	`.accordion-button.collapsed`,
	`details:not([open]) > summary`,
	`.nav-tab:not(.active)`,
	`.tab-button:not(.active)`,
	`.program-details-toggle`,
	`.class-details-toggle`,
	`.expand-details`,
	`.show-details`,
}

// expandTexts are button labels that reveal more content in place.
var expandTexts = []string{"show more", "read more", "view all", "see all", "more", "view details", "details"}

// loadMoreSelectors and loadMoreTexts match pagination-style buttons.
var (
	loadMoreSelectors = []string{`.load-more-button`, `.show-more-button`, `.load-more`, `[data-load-more]`}
	loadMoreTexts     = []string{"load more", "show more", "view more", "see all", "more classes"}
)

// ChromeRenderer reveals pages in a headless Chrome via chromedp. One
// browser is shared by all reveals; each reveal uses a fresh tab.
type ChromeRenderer struct {
	opts          ChromeOptions
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewChromeRenderer starts the browser. A failure here is a setup failure
// for the run.
func NewChromeRenderer(ctx context.Context, opts ChromeOptions) (*ChromeRenderer, error) {
	opts = opts.withDefaults()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(opts.ViewportWidth, opts.ViewportHeight),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, eris.Wrap(err, "render: start browser")
	}

	zap.L().Info("render: browser started",
		zap.Bool("headless", opts.Headless),
		zap.Int("viewport_width", opts.ViewportWidth),
		zap.Int("viewport_height", opts.ViewportHeight),
	)
	return &ChromeRenderer{
		opts:          opts,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Reveal navigates to url, expands collapsible content, scrolls until the
// page stops growing, clicks load-more buttons, and captures a full-page
// PNG. Cancelling ctx closes the tab.
func (r *ChromeRenderer) Reveal(ctx context.Context, url string) (*Page, error) {
	tabCtx, cancel := chromedp.NewContext(r.browserCtx)
	defer cancel()
	if dl, ok := ctx.Deadline(); ok {
		var dlCancel context.CancelFunc
		tabCtx, dlCancel = context.WithDeadline(tabCtx, dl)
		defer dlCancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(tabCtx,
		chromedp.EmulateViewport(int64(r.opts.ViewportWidth), int64(r.opts.ViewportHeight)),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(r.opts.Settle),
	); err != nil {
		return nil, eris.Wrapf(err, "render: navigate %s", url)
	}

	expanded := r.expand(tabCtx)
	scrolls, height := r.scroll(tabCtx)
	loadMore := r.loadMore(tabCtx)
	if loadMore > 0 {
		var more int
		more, height = r.scroll(tabCtx)
		scrolls += more
	}

	page := &Page{URL: url}
	if err := chromedp.Run(tabCtx,
		chromedp.Title(&page.Title),
		chromedp.OuterHTML("html", &page.HTML, chromedp.ByQuery),
		chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &page.Text),
	); err != nil {
		return nil, eris.Wrapf(err, "render: read content %s", url)
	}

	var shot []byte
	if err := chromedp.Run(tabCtx,
		chromedp.Evaluate(`window.scrollTo(0, 0)`, nil),
		chromedp.Sleep(r.opts.Settle/2),
		chromedp.FullScreenshot(&shot, 100),
	); err != nil {
		zap.L().Warn("render: full-page screenshot failed", zap.String("url", url), zap.Error(err))
	} else if len(shot) > 0 {
		page.Images = [][]byte{shot}
	}

	zap.L().Debug("render: page revealed",
		zap.String("url", url),
		zap.Int("expanded", expanded),
		zap.Int("scrolls", scrolls),
		zap.Int("load_more_clicks", loadMore),
		zap.Int("height", height),
		zap.Int("text_chars", len(page.Text)),
	)
	return page, nil
}

// Close shuts the browser down.
func (r *ChromeRenderer) Close() error {
	r.browserCancel()
	r.allocCancel()
	return nil
}

func (r *ChromeRenderer) expand(ctx context.Context) int {
	if r.opts.ExpandMaxClicks == 0 {
		return 0
	}
	var clicked int
	if err := chromedp.Run(ctx,
		chromedp.Evaluate(ExpandScript(r.opts.ExpandMaxClicks), &clicked),
		chromedp.Sleep(r.opts.Settle),
	); err != nil {
		zap.L().Debug("render: expand failed", zap.Error(err))
		return 0
	}
	return clicked
}

// scroll steps through the page at 70% of the viewport until the bottom is
// reached and the height stops growing, bounded by MaxScrolls.
func (r *ChromeRenderer) scroll(ctx context.Context) (int, int) {
	var height, viewport int
	if err := chromedp.Run(ctx,
		chromedp.Evaluate(`document.body.scrollHeight`, &height),
		chromedp.Evaluate(`window.innerHeight`, &viewport),
	); err != nil {
		return 0, 0
	}
	step := max(viewport*7/10, 100)

	scrolls := 0
	for pos := 0; scrolls < r.opts.MaxScrolls; pos += step {
		if pos >= height {
			var grown int
			if err := chromedp.Run(ctx,
				chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
				chromedp.Sleep(r.opts.Settle*2),
				chromedp.Evaluate(`document.body.scrollHeight`, &grown),
			); err != nil || grown <= height {
				break
			}
			height = grown
		}
		if err := chromedp.Run(ctx,
			chromedp.Evaluate(fmt.Sprintf(`window.scrollTo(0, %d)`, pos), nil),
			chromedp.Sleep(r.opts.Settle),
			chromedp.Evaluate(`document.body.scrollHeight`, &height),
		); err != nil {
			break
		}
		scrolls++
	}
	return scrolls, height
}

func (r *ChromeRenderer) loadMore(ctx context.Context) int {
	clicks := 0
	for clicks < r.opts.LoadMoreClicks {
		var ok bool
		if err := chromedp.Run(ctx, chromedp.Evaluate(LoadMoreScript(), &ok)); err != nil || !ok {
			break
		}
		clicks++
		if err := chromedp.Run(ctx, chromedp.Sleep(r.opts.Settle*3)); err != nil {
			break
		}
	}
	return clicks
}

const visibleJS = `const visible = (el) => {
  const r = el.getBoundingClientRect();
  const s = window.getComputedStyle(el);
  return r.width > 0 && r.height > 0 && s.visibility !== "hidden" && s.display !== "none";
};
const inPlace = (el) => {
  if (el.tagName !== "A") return true;
  const href = (el.getAttribute("href") || "").trim();
  return href === "" || href.startsWith("#") || href.startsWith("javascript:");
};
const label = (el) => (el.innerText || el.textContent || "").trim().toLowerCase();`

// ExpandScript returns the JavaScript that clicks up to maxPerSelector
// visible expanders per selector and per label. It evaluates to the number
// of clicks. Links that would navigate away are never clicked.
func ExpandScript(maxPerSelector int) string {
	sel, _ := json.Marshal(expandSelectors)
	texts, _ := json.Marshal(expandTexts)
	return fmt.Sprintf(`(() => {
%s
const max = %d;
let clicked = 0;
for (const sel of %s) {
  let n = 0;
  for (const el of document.querySelectorAll(sel)) {
    if (n >= max) break;
    if (!visible(el) || !inPlace(el)) continue;
    try { el.click(); n++; clicked++; } catch (e) {}
  }
}
const texts = %s;
let n = 0;
for (const el of document.querySelectorAll("button, a, [role=button]")) {
  if (n >= max) break;
  if (!texts.includes(label(el)) || !visible(el) || !inPlace(el)) continue;
  try { el.click(); n++; clicked++; } catch (e) {}
}
return clicked;
})()`, visibleJS, maxPerSelector, sel, texts)
}

// LoadMoreScript returns the JavaScript that clicks the first visible
// load-more control and evaluates to whether it found one.
func LoadMoreScript() string {
	sel, _ := json.Marshal(loadMoreSelectors)
	texts, _ := json.Marshal(loadMoreTexts)
	return fmt.Sprintf(`(() => {
%s
for (const sel of %s) {
  for (const el of document.querySelectorAll(sel)) {
    if (visible(el) && inPlace(el)) { el.click(); return true; }
  }
}
const texts = %s;
for (const el of document.querySelectorAll("button, a, [role=button]")) {
  if (texts.includes(label(el)) && visible(el) && inPlace(el)) { el.click(); return true; }
}
return false;
})()`, visibleJS, sel, texts)
}
