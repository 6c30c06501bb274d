package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/program-extractor/internal/classify"
	"github.com/sells-group/program-extractor/internal/config"
	"github.com/sells-group/program-extractor/internal/discover"
	"github.com/sells-group/program-extractor/internal/extract"
	"github.com/sells-group/program-extractor/internal/locate"
	"github.com/sells-group/program-extractor/internal/pipeline"
	"github.com/sells-group/program-extractor/internal/render"
	anthropicpkg "github.com/sells-group/program-extractor/pkg/anthropic"
)

// extractorEnv holds what the run, batch and serve commands share.
type extractorEnv struct {
	Extractor  *pipeline.Extractor
	Classifier *classify.Classifier
}

// extractorOptions are the per-command choices layered over config.
type extractorOptions struct {
	// Renderer overrides the configured engine when set.
	Renderer pipeline.RendererFactory
	// HeuristicLinks skips the oracle when choosing pages.
	HeuristicLinks bool
}

// initExtractor validates config for mode and builds the extractor with
// the Anthropic oracle and the configured renderer.
func initExtractor(mode string, opts extractorOptions) (*extractorEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	classifier, err := classify.Load(cfg.Crawl.RulesFile)
	if err != nil {
		return nil, eris.Wrap(err, "load classification rules")
	}

	factory := opts.Renderer
	if factory == nil {
		factory, err = rendererFactory(cfg)
		if err != nil {
			return nil, err
		}
	}

	client := anthropicpkg.NewClient(cfg.Anthropic.Key)
	runOpts := pipeline.OptionsFromConfig(cfg)

	var ranker discover.Ranker
	if !opts.HeuristicLinks {
		ranker = discover.NewAnthropicRanker(client, cfg.Anthropic.Model)
	}

	ex := pipeline.New(pipeline.Deps{
		NewRenderer: factory,
		Oracle:      extract.NewAnthropicOracle(client, cfg.Anthropic.Model, int64(cfg.Anthropic.MaxTokens)),
		Ranker:      ranker,
		Locator:     locate.New(cfg.Crawl.ExcludePaths),
		Classifier:  classifier,
		Guard:       pipeline.NewOracleGuard(runOpts),
	}, runOpts)

	zap.L().Debug("extractor initialized",
		zap.String("mode", mode),
		zap.String("model", cfg.Anthropic.Model),
		zap.String("engine", cfg.Render.Engine),
		zap.Int("rules", len(classifier.Rules())),
		zap.Bool("oracle_links", ranker != nil),
	)
	return &extractorEnv{Extractor: ex, Classifier: classifier}, nil
}

// rendererFactory opens a new renderer of the configured engine per run.
func rendererFactory(c *config.Config) (pipeline.RendererFactory, error) {
	switch c.Render.Engine {
	case "chrome", "":
		opts := chromeOptions(c.Render)
		return func(ctx context.Context) (render.Renderer, error) {
			return render.NewChromeRenderer(ctx, opts)
		}, nil
	case "http":
		opts := render.HTTPOptions{
			UserAgent: c.Render.UserAgent,
			Timeout:   time.Duration(c.Crawl.PageTimeoutSecs) * time.Second,
		}
		return func(context.Context) (render.Renderer, error) {
			return render.NewHTTPRenderer(opts), nil
		}, nil
	}
	return nil, eris.Errorf("unknown render engine %q", c.Render.Engine)
}

func chromeOptions(rc config.RenderConfig) render.ChromeOptions {
	opts := render.DefaultChromeOptions()
	opts.Headless = rc.Headless
	opts.UserAgent = rc.UserAgent
	if rc.ViewportWidth > 0 {
		opts.ViewportWidth = rc.ViewportWidth
	}
	if rc.ViewportHeight > 0 {
		opts.ViewportHeight = rc.ViewportHeight
	}
	if rc.ExpandMaxClicks >= 0 {
		opts.ExpandMaxClicks = rc.ExpandMaxClicks
	}
	if rc.MaxScrolls > 0 {
		opts.MaxScrolls = rc.MaxScrolls
	}
	if rc.LoadMoreClicks >= 0 {
		opts.LoadMoreClicks = rc.LoadMoreClicks
	}
	return opts
}

// fixtureFactory serves a saved copy of one site from dir.
func fixtureFactory(dir, baseURL string) (pipeline.RendererFactory, error) {
	fr, err := render.LoadFixtureDir(dir, baseURL)
	if err != nil {
		return nil, eris.Wrap(err, "load fixtures")
	}
	return func(context.Context) (render.Renderer, error) {
		return fr, nil
	}, nil
}
