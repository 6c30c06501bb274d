package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/program-extractor/internal/classify"
	"github.com/sells-group/program-extractor/internal/server"
)

var (
	classifyRules  string
	classifyFormat string
)

var classifyCmd = &cobra.Command{
	Use:   "classify URL...",
	Short: "Show the category and crawl tier assigned to each URL",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("classify"); err != nil {
			return err
		}
		path := cfg.Crawl.RulesFile
		if classifyRules != "" {
			path = classifyRules
		}
		classifier, err := classify.Load(path)
		if err != nil {
			return eris.Wrap(err, "load classification rules")
		}

		return printClassifications(cmd.OutOrStdout(), server.Classify(classifier, args), classifyFormat)
	},
}

func init() {
	classifyCmd.Flags().StringVar(&classifyRules, "rules", "", "YAML rules file (default from config, else built-in rules)")
	classifyCmd.Flags().StringVar(&classifyFormat, "format", "table", "output format: table or json")
	rootCmd.AddCommand(classifyCmd)
}

func printClassifications(w io.Writer, results []server.ClassifyResult, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case "table", "":
	default:
		return eris.Errorf("unknown output format %q", format)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"URL", "Category", "Tier", "Rule", "Title"})
	for _, r := range results {
		if r.Rejected {
			t.AppendRow(table.Row{r.URL, "rejected", "-", "-", "-"})
			continue
		}
		t.AppendRow(table.Row{r.URL, string(r.Category), strconv.Itoa(r.Tier), r.Rule, r.Title})
	}
	t.Render()
	_, err := fmt.Fprintln(w)
	return err
}
