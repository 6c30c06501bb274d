package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/program-extractor/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "program-extractor",
	Short: "Extract program profiles from business websites",
	Long:  "Opens a business website, picks the pages a visitor would read, extracts programs, schedules, pricing, staff and policies from each one with Claude, and fuses them into one profile.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
