package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"unicode"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/program-extractor/internal/input"
	"github.com/sells-group/program-extractor/internal/model"
)

var (
	batchInput          string
	batchLimit          int
	batchConcurrency    int
	batchOutDir         string
	batchFormat         string
	batchEngine         string
	batchHeuristicLinks bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Extract profiles for every business in a CSV or XLSX file",
	Long: `Reads a list of businesses (a header row naming business and url
columns, optionally platform and max_pages) and writes one profile file per
business into the output directory. A failed business is logged and does
not stop the batch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if batchEngine != "" {
			cfg.Render.Engine = batchEngine
		}
		if batchConcurrency > 0 {
			cfg.Batch.MaxConcurrent = batchConcurrency
		}

		inputs, err := input.Read(ctx, batchInput)
		if err != nil {
			return eris.Wrap(err, "read batch input")
		}

		env, err := initExtractor("batch", extractorOptions{HeuristicLinks: batchHeuristicLinks})
		if err != nil {
			return err
		}

		if err := os.MkdirAll(batchOutDir, 0o755); err != nil {
			return eris.Wrapf(err, "create output dir %s", batchOutDir)
		}

		sum, err := processBatch(ctx, inputs, batchLimit, cfg.Batch.MaxConcurrent, env.Extractor.Run, func(p *model.BusinessProfile) error {
			return writeProfileFile(profilePath(batchOutDir, p.Name, batchFormat), p, batchFormat)
		})
		if err != nil {
			return err
		}
		if sum.Failed > 0 {
			fmt.Fprintf(os.Stderr, "%d of %d businesses failed; see log for details\n", sum.Failed, sum.Total)
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "", "CSV or XLSX file of businesses (required)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max businesses to process (0 = all)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "businesses processed at once (default from config)")
	batchCmd.Flags().StringVar(&batchOutDir, "out-dir", "profiles", "directory for profile files")
	batchCmd.Flags().StringVar(&batchFormat, "format", "json", "output format: json or yaml")
	batchCmd.Flags().StringVar(&batchEngine, "engine", "", "render engine: chrome or http (default from config)")
	batchCmd.Flags().BoolVar(&batchHeuristicLinks, "heuristic-links", false, "choose pages by keyword heuristic instead of asking the oracle")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}

// extractFunc runs one extraction.
type extractFunc func(ctx context.Context, in model.RunInput) (*model.BusinessProfile, error)

// batchSummary counts the outcomes of a batch.
type batchSummary struct {
	Total     int
	Succeeded int64
	Failed    int64
}

// processBatch applies limit, then extracts inputs concurrently and hands
// each profile to sink. Individual failures are counted, not returned.
func processBatch(ctx context.Context, inputs []model.RunInput, limit, concurrency int, extract extractFunc, sink func(*model.BusinessProfile) error) (batchSummary, error) {
	if len(inputs) == 0 {
		zap.L().Info("no businesses to process")
		return batchSummary{}, nil
	}

	if limit > 0 && len(inputs) > limit {
		inputs = inputs[:limit]
	}
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("businesses", len(inputs)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64

	for i, in := range inputs {
		g.Go(func() error {
			log := zap.L().With(
				zap.Int("index", i+1),
				zap.String("business", in.BusinessName),
				zap.String("url", in.BaseURL),
			)

			p, err := extract(gctx, in)
			if err == nil {
				err = sink(p)
			}
			if err != nil {
				failed.Add(1)
				log.Error("extraction failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			succeeded.Add(1)
			log.Info("extraction complete",
				zap.Int("programs", len(p.Programs)),
				zap.Float64("confidence", p.Confidence),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return batchSummary{}, eris.Wrap(err, "batch processing")
	}

	sum := batchSummary{Total: len(inputs), Succeeded: succeeded.Load(), Failed: failed.Load()}
	zap.L().Info("batch complete",
		zap.Int("total", sum.Total),
		zap.Int64("succeeded", sum.Succeeded),
		zap.Int64("failed", sum.Failed),
	)
	if ctx.Err() != nil {
		return sum, eris.Wrap(ctx.Err(), "batch interrupted")
	}
	return sum, nil
}

// profilePath names the output file for a business: a lowercase slug of
// its name with the format as extension.
func profilePath(dir, name, format string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		slug = "business"
	}
	ext := ".json"
	if format == "yaml" {
		ext = ".yaml"
	}
	return filepath.Join(dir, slug+ext)
}
