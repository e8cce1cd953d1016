package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tpeters15/theme-score-nexus/internal/ingest"
	"github.com/tpeters15/theme-score-nexus/pkg/notion"
)

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "Manage market signals",
}

var signalsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync market signals from the configured Notion database",
	Long: `Fetches every page from the Notion signals database and inserts new
signals. Signals deduplicate on URL, so re-running is idempotent: pages seen
before are skipped.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("notion"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		client := notion.NewClient(cfg.Notion.Token)
		source := ingest.NewNotionSource(client, cfg.Notion.SignalDB)

		result, err := ingest.NewIngestor(st).Sync(ctx, source)
		if err != nil {
			return err
		}

		zap.L().Info("signals: sync complete",
			zap.String("source", source.Name()),
			zap.Int("fetched", result.Fetched),
			zap.Int("inserted", result.Inserted),
			zap.Int("skipped", result.Skipped),
		)
		fmt.Printf("Fetched %d signals: %d new, %d already known\n",
			result.Fetched, result.Inserted, result.Skipped)
		return nil
	},
}

func init() {
	signalsCmd.AddCommand(signalsSyncCmd)
	rootCmd.AddCommand(signalsCmd)
}
