package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/program-extractor/internal/extract"
	"github.com/sells-group/program-extractor/internal/frontier"
	"github.com/sells-group/program-extractor/internal/locate"
	"github.com/sells-group/program-extractor/internal/model"
	"github.com/sells-group/program-extractor/internal/render"
)

// setup opens the renderer and loads the landing page.
func (e *Extractor) setup(ctx context.Context, r *run) (*model.PhaseResult, error) {
	if e.newRenderer == nil {
		return nil, &SetupError{Err: eris.New("no renderer configured")}
	}
	rd, err := e.newRenderer(ctx)
	if err != nil {
		return nil, &SetupError{Err: eris.Wrap(err, "start renderer")}
	}
	r.renderer = rd

	pageCtx, cancel := context.WithTimeout(ctx, e.opts.PageTimeout)
	defer cancel()
	landing, err := rd.Reveal(pageCtx, r.in.BaseURL)
	if err != nil {
		return nil, &SetupError{Err: eris.Wrapf(err, "load %s", r.in.BaseURL)}
	}
	r.landing = landing

	located, err := e.locator.Locate(landing.URL, landing.HTML)
	if err != nil {
		return nil, &SetupError{Err: err}
	}
	r.located = located

	counts := located.Counts()
	r.log.Info("pipeline: located landing page links",
		zap.Int("links", len(located.Links)),
		zap.Int("nav", len(located.Nav)),
	)
	meta := map[string]any{"links": len(located.Links), "title": landing.Title}
	for loc, n := range counts {
		meta["links_"+string(loc)] = n
	}
	return &model.PhaseResult{Metadata: meta}, nil
}

// discover selects links and freezes the visit plan. When nothing is
// selected the landing page itself is the only candidate.
func (e *Extractor) discover(ctx context.Context, r *run) *model.PhaseResult {
	var screenshot []byte
	if len(r.landing.Images) > 0 {
		screenshot = r.landing.Images[0]
	}
	sel := e.discoverer.Select(ctx, r.in.BusinessName, r.in.BaseURL, r.located, screenshot)

	r.frontier = frontier.New(r.in.MaxPages, e.classifier)
	for _, l := range sel.Links {
		r.frontier.Discover(l, r.located.Nav)
	}
	if r.frontier.Discovered() == 0 {
		landing := locate.NormalizeURL(r.landing.URL)
		r.log.Warn("pipeline: no pages selected, extracting landing page", zap.String("method", sel.Method))
		r.frontier.Discover(model.LocatedLink{
			URL:          landing,
			AnchorText:   r.landing.Title,
			Location:     model.LocationHeader,
			BasePriority: model.LocationHeader.BasePriority(),
		}, nil)
	}
	r.plan = r.frontier.Plan()

	for i, c := range r.plan {
		r.log.Debug("pipeline: planned page",
			zap.Int("order", i+1),
			zap.String("page", c.URL),
			zap.String("category", string(c.Category)),
			zap.Int("tier", c.Tier),
			zap.Bool("from_nav", c.FromNav),
		)
	}

	meta := map[string]any{
		"method":     sel.Method,
		"selected":   len(sel.Links),
		"discovered": r.frontier.Discovered(),
		"rejected":   r.frontier.Rejected(),
		"planned":    len(r.plan),
	}
	if sel.Err != nil {
		meta["oracle_error"] = sel.Err.Error()
	}
	return &model.PhaseResult{TokenUsage: sel.Usage, Metadata: meta}
}

// browse visits the plan in order, one page at a time.
func (e *Extractor) browse(ctx context.Context, r *run) (*model.PhaseResult, error) {
	var limiter *rate.Limiter
	if e.opts.Pace > 0 {
		limiter = rate.NewLimiter(rate.Every(e.opts.Pace), 1)
	}

	var usage model.TokenUsage
	failedRender, failedExtract := 0, 0
	for _, c := range r.plan {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return &model.PhaseResult{TokenUsage: usage}, eris.Wrap(err, "pipeline: pacing wait")
			}
		}
		if err := ctx.Err(); err != nil {
			return &model.PhaseResult{TokenUsage: usage}, eris.Wrap(err, "pipeline: browse cancelled")
		}

		out, rendered := e.visit(ctx, r, c)
		usage.Add(out.Usage)
		switch {
		case !rendered:
			failedRender++
		case !out.OK():
			failedExtract++
		default:
			r.fragments = append(r.fragments, out.Fragment)
		}
	}

	return &model.PhaseResult{
		TokenUsage: usage,
		Metadata: map[string]any{
			"planned":        len(r.plan),
			"visited":        len(r.frontier.Visited()),
			"extracted":      r.frontier.Extracted(),
			"render_failed":  failedRender,
			"extract_failed": failedExtract,
		},
	}, nil
}

// visit reveals and extracts one page under the per-page timeout. The
// landing page is not loaded twice.
func (e *Extractor) visit(ctx context.Context, r *run, c *model.PageCandidate) (extract.Outcome, bool) {
	pageCtx, cancel := context.WithTimeout(ctx, e.opts.PageTimeout)
	defer cancel()

	log := r.log.With(zap.String("page", c.URL), zap.String("category", string(c.Category)))
	r.frontier.MarkVisited(c.URL)

	var (
		page *render.Page
		err  error
	)
	if locate.NormalizeURL(c.URL) == locate.NormalizeURL(r.landing.URL) {
		page = r.landing
	} else {
		page, err = r.renderer.Reveal(pageCtx, c.URL)
	}
	if err != nil {
		log.Warn("pipeline: page render failed", zap.Error(err))
		return extract.Outcome{}, false
	}

	out := e.adapter.Extract(pageCtx, extract.Request{
		URL:          c.URL,
		Category:     c.Category,
		Platform:     r.in.Platform,
		BusinessName: r.in.BusinessName,
		Text:         page.Text,
		Images:       page.Images,
	})
	if out.OK() {
		r.frontier.MarkExtracted(c.URL)
		log.Info("pipeline: page extracted",
			zap.Int("programs", len(out.Fragment.Programs)),
			zap.Int("instructors", len(out.Fragment.Instructors)),
			zap.Int("input_tokens", out.Usage.InputTokens),
		)
	}
	return out, true
}
