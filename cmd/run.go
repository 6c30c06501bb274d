package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/program-extractor/internal/model"
	"github.com/sells-group/program-extractor/internal/pipeline"
	"github.com/sells-group/program-extractor/internal/profile"
)

var (
	runBusiness       string
	runURL            string
	runPlatform       string
	runMaxPages       int
	runHeadless       bool
	runEngine         string
	runFixtures       string
	runFormat         string
	runOutput         string
	runXLSX           string
	runSummary        bool
	runHeuristicLinks bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Extract the program profile of a single business",
	Example: `  program-extractor run --business "Flip City Gymnastics" --url flipcity.com
  program-extractor run --business "Flip City" --url https://flipcity.com --engine http --format yaml
  program-extractor run --business "Flip City" --url https://flipcity.com --fixtures ./testdata/flipcity`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cmd.Flags().Changed("headless") {
			cfg.Render.Headless = runHeadless
		}
		if runEngine != "" {
			cfg.Render.Engine = runEngine
		}

		in, err := pipeline.ValidateInput(model.RunInput{
			BusinessName: runBusiness,
			BaseURL:      runURL,
			Platform:     runPlatform,
			MaxPages:     runMaxPages,
		})
		if err != nil {
			return err
		}

		opts := extractorOptions{HeuristicLinks: runHeuristicLinks}
		if runFixtures != "" {
			factory, err := fixtureFactory(runFixtures, in.BaseURL)
			if err != nil {
				return err
			}
			opts.Renderer = factory
		}

		env, err := initExtractor("run", opts)
		if err != nil {
			return err
		}

		p, err := env.Extractor.Run(ctx, in)
		if err != nil {
			return eris.Wrap(err, "extraction run")
		}

		zap.L().Info("extraction complete",
			zap.String("business", p.Name),
			zap.Int("programs", len(p.Programs)),
			zap.Int("pages_analyzed", len(p.PagesAnalyzed)),
			zap.Float64("confidence", p.Confidence),
		)

		if runSummary {
			fmt.Fprintln(os.Stderr, profile.Summary(p))
		}
		if runXLSX != "" {
			if err := profile.WriteXLSX(p, runXLSX); err != nil {
				return err
			}
			zap.L().Info("xlsx written", zap.String("path", runXLSX))
		}
		return writeProfileFile(runOutput, p, runFormat)
	},
}

func init() {
	runCmd.Flags().StringVar(&runBusiness, "business", "", "business name (required)")
	runCmd.Flags().StringVar(&runURL, "url", "", "business website URL (required)")
	runCmd.Flags().StringVar(&runPlatform, "platform", "", "registration platform label, passed through to the profile")
	runCmd.Flags().IntVar(&runMaxPages, "max-pages", 0, "page budget (default from config)")
	runCmd.Flags().BoolVar(&runHeadless, "headless", true, "run the browser headless")
	runCmd.Flags().StringVar(&runEngine, "engine", "", "render engine: chrome or http (default from config)")
	runCmd.Flags().StringVar(&runFixtures, "fixtures", "", "serve pages from a directory of saved .html files instead of the live site")
	runCmd.Flags().StringVar(&runFormat, "format", "json", "output format: json or yaml")
	runCmd.Flags().StringVar(&runOutput, "output", "", "write the profile to a file (default: stdout)")
	runCmd.Flags().StringVar(&runXLSX, "xlsx", "", "also write the profile as an XLSX workbook")
	runCmd.Flags().BoolVar(&runSummary, "summary", true, "print a summary table to stderr")
	runCmd.Flags().BoolVar(&runHeuristicLinks, "heuristic-links", false, "choose pages by keyword heuristic instead of asking the oracle")
	_ = runCmd.MarkFlagRequired("business")
	_ = runCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(runCmd)
}
