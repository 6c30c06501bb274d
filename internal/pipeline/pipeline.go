// Package pipeline runs one extraction: it opens the site, picks pages the
// way a visitor would, extracts each one and fuses the results into a
// profile.
package pipeline

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/program-extractor/internal/classify"
	"github.com/sells-group/program-extractor/internal/config"
	"github.com/sells-group/program-extractor/internal/discover"
	"github.com/sells-group/program-extractor/internal/extract"
	"github.com/sells-group/program-extractor/internal/frontier"
	"github.com/sells-group/program-extractor/internal/fusion"
	"github.com/sells-group/program-extractor/internal/locate"
	"github.com/sells-group/program-extractor/internal/model"
	"github.com/sells-group/program-extractor/internal/profile"
	"github.com/sells-group/program-extractor/internal/render"
	"github.com/sells-group/program-extractor/internal/resilience"
)

// Phase names, in run order.
const (
	PhaseSetup      = "setup"
	PhaseDiscover   = "discover"
	PhaseBrowse     = "browse"
	PhaseSynthesize = "synthesize"
	PhaseValidate   = "validate"
)

// SetupError means the run could not start: the renderer failed to launch
// or the landing page could not be loaded.
type SetupError struct {
	Err error
}

func (e *SetupError) Error() string {
	return "pipeline: setup failed: " + e.Err.Error()
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// RendererFactory opens a fresh rendering session for one run.
type RendererFactory func(ctx context.Context) (render.Renderer, error)

// Options tune a run.
type Options struct {
	MaxPages      int
	PageTimeout   time.Duration
	Pace          time.Duration
	MaxTextChars  int
	OracleTimeout time.Duration
	Profile       profile.Options
}

// OptionsFromConfig maps configuration onto run options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxPages:      cfg.Crawl.MaxPages,
		PageTimeout:   time.Duration(cfg.Crawl.PageTimeoutSecs) * time.Second,
		Pace:          time.Duration(cfg.Crawl.PaceMillis) * time.Millisecond,
		MaxTextChars:  cfg.Crawl.MaxTextChars,
		OracleTimeout: time.Duration(cfg.Anthropic.TimeoutSecs) * time.Second,
		Profile: profile.Options{
			Category:    cfg.Profile.Category,
			Subcategory: cfg.Profile.Subcategory,
		},
	}
}

func (o Options) withDefaults() Options {
	if o.MaxPages <= 0 {
		o.MaxPages = 15
	}
	if o.PageTimeout <= 0 {
		o.PageTimeout = 45 * time.Second
	}
	if o.MaxTextChars <= 0 {
		o.MaxTextChars = extract.DefaultMaxTextChars
	}
	return o
}

// Deps are the collaborators of an Extractor. Ranker and Guard are
// optional; without a Ranker discovery uses the heuristic.
type Deps struct {
	NewRenderer RendererFactory
	Oracle      extract.Oracle
	Ranker      discover.Ranker
	Locator     *locate.Locator
	Classifier  *classify.Classifier
	Guard       *resilience.Guard
}

// Extractor runs extractions. It holds no per-run state, so one Extractor
// can serve concurrent runs as long as its renderer factory opens an
// independent session each time.
type Extractor struct {
	opts        Options
	newRenderer RendererFactory
	locator     *locate.Locator
	classifier  *classify.Classifier
	adapter     *extract.Adapter
	discoverer  *discover.Discoverer
}

// New creates an Extractor.
func New(deps Deps, opts Options) *Extractor {
	opts = opts.withDefaults()
	if deps.Locator == nil {
		deps.Locator = locate.New(nil)
	}
	if deps.Classifier == nil {
		deps.Classifier = classify.Default()
	}
	return &Extractor{
		opts:        opts,
		newRenderer: deps.NewRenderer,
		locator:     deps.Locator,
		classifier:  deps.Classifier,
		adapter:     extract.New(deps.Oracle, deps.Guard, opts.MaxTextChars),
		discoverer:  discover.New(deps.Ranker, deps.Guard),
	}
}

// NewOracleGuard builds the guard shared by extraction and discovery
// calls to the oracle.
func NewOracleGuard(opts Options) *resilience.Guard {
	return resilience.NewGuard(resilience.GuardConfig{
		Name:      "anthropic",
		Timeout:   opts.OracleTimeout,
		Retry:     resilience.DefaultRetryConfig(),
		Breaker:   resilience.DefaultCircuitBreakerConfig(),
		Throttled: resilience.IsThrottled,
	})
}

// ValidateInput checks and normalizes a run input.
func ValidateInput(in model.RunInput) (model.RunInput, error) {
	in.BusinessName = strings.TrimSpace(in.BusinessName)
	in.BaseURL = strings.TrimSpace(in.BaseURL)
	if in.BusinessName == "" {
		return in, eris.New("pipeline: business name is required")
	}
	if in.BaseURL == "" {
		return in, eris.New("pipeline: base url is required")
	}
	if !strings.Contains(in.BaseURL, "://") {
		in.BaseURL = "https://" + in.BaseURL
	}
	u, err := url.Parse(in.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return in, eris.Errorf("pipeline: invalid base url %q", in.BaseURL)
	}
	if in.MaxPages < 0 {
		return in, eris.Errorf("pipeline: max pages must be >= 0, got %d", in.MaxPages)
	}
	return in, nil
}

// run is the state of one extraction.
type run struct {
	id       string
	in       model.RunInput
	log      *zap.Logger
	renderer render.Renderer
	landing  *render.Page
	located  *locate.Result
	frontier *frontier.Frontier
	plan     []*model.PageCandidate

	fragments []model.Fragment
	phases    []model.PhaseResult
	usage     model.TokenUsage
}

// Run extracts one business. Only setup failures and cancellation fail a
// run; page-level failures are logged and skipped.
func (e *Extractor) Run(ctx context.Context, in model.RunInput) (*model.BusinessProfile, error) {
	in, err := ValidateInput(in)
	if err != nil {
		return nil, err
	}
	if in.MaxPages == 0 {
		in.MaxPages = e.opts.MaxPages
	}

	r := &run{id: uuid.New().String(), in: in}
	r.log = zap.L().With(
		zap.String("run_id", r.id),
		zap.String("business", in.BusinessName),
		zap.String("url", in.BaseURL),
	)
	r.log.Info("pipeline: starting extraction", zap.Int("max_pages", in.MaxPages))
	start := time.Now()

	defer func() {
		if r.renderer == nil {
			return
		}
		if closeErr := r.renderer.Close(); closeErr != nil {
			r.log.Warn("pipeline: close renderer", zap.Error(closeErr))
		}
	}()

	if err := r.trackPhase(PhaseSetup, func() (*model.PhaseResult, error) {
		return e.setup(ctx, r)
	}); err != nil {
		return nil, err
	}

	_ = r.trackPhase(PhaseDiscover, func() (*model.PhaseResult, error) {
		return e.discover(ctx, r), nil
	})

	if err := r.trackPhase(PhaseBrowse, func() (*model.PhaseResult, error) {
		return e.browse(ctx, r)
	}); err != nil {
		return nil, err
	}

	var p *model.BusinessProfile
	if err := r.trackPhase(PhaseSynthesize, func() (*model.PhaseResult, error) {
		fused := fusion.Fuse(r.fragments)
		var assembleErr error
		p, assembleErr = profile.Assemble(profile.Input{
			RunID:         r.id,
			Run:           in,
			Fused:         fused,
			Fragments:     r.fragments,
			PagesAnalyzed: r.frontier.Visited(),
			Discovered:    r.frontier.Discovered(),
			Extracted:     r.frontier.Extracted(),
		}, e.opts.Profile)
		if assembleErr != nil {
			return nil, assembleErr
		}
		return &model.PhaseResult{Metadata: map[string]any{
			"records":         fused.RecordCount,
			"programs":        len(fused.Programs),
			"instructors":     len(fused.Instructors),
			"policies":        len(fused.Policies),
			"near_duplicates": len(fused.NearDuplicates),
		}}, nil
	}); err != nil {
		return nil, err
	}

	_ = r.trackPhase(PhaseValidate, func() (*model.PhaseResult, error) {
		programs, instructors := profile.Validate(p)
		return &model.PhaseResult{Metadata: map[string]any{
			"dropped_programs":    programs,
			"dropped_instructors": instructors,
		}}, nil
	})

	p.Phases = r.phases
	p.TokenUsage = r.usage

	r.log.Info("pipeline: extraction complete",
		zap.Int("programs", len(p.Programs)),
		zap.Int("instructors", len(p.Instructors)),
		zap.Int("pages_analyzed", len(p.PagesAnalyzed)),
		zap.Int("pages_discovered", p.PagesDiscovered),
		zap.Float64("confidence", p.Confidence),
		zap.Float64("cost_usd", r.usage.Cost),
		zap.Duration("elapsed", time.Since(start)),
	)
	return p, nil
}

// trackPhase times fn, records its result and returns its error.
func (r *run) trackPhase(name string, fn func() (*model.PhaseResult, error)) error {
	start := time.Now()
	result, err := fn()
	duration := time.Since(start).Milliseconds()

	if result == nil {
		result = &model.PhaseResult{}
	}
	result.Name = name
	result.Duration = duration

	if err != nil {
		result.Status = model.PhaseStatusFailed
		result.Error = err.Error()
		r.log.Error("pipeline: phase failed",
			zap.String("phase", name),
			zap.Int64("duration_ms", duration),
			zap.Error(err),
		)
	} else {
		result.Status = model.PhaseStatusComplete
		r.log.Info("pipeline: phase complete",
			zap.String("phase", name),
			zap.Int64("duration_ms", duration),
		)
	}

	r.usage.Add(result.TokenUsage)
	r.phases = append(r.phases, *result)
	return err
}
