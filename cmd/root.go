package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tpeters15/theme-score-nexus/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "theme-score-nexus",
	Short: "Investment theme research platform",
	Long:  "Scores investment themes against a weighted criteria framework, classifies companies into themes with AI plus search verification, and tracks regulations, documents and market signals.",
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
