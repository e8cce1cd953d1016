package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tpeters15/theme-score-nexus/internal/ingest"
)

var (
	importFile      string
	importThemeID   string
	importSheet     string
	importFivePoint bool
	importUpdatedBy string
	importDryRun    bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk import criterion scores for a theme from an XLSX workbook",
	Long: `Reads criterion scores from an XLSX sheet (columns: criterion_id, value,
confidence, notes) and upserts them for a theme. Malformed rows are reported
and skipped; the valid remainder is saved.

Values are on the 0-100 scale by default. Use --five-point for legacy 1-5
workbooks; values are converted with (v-1)*25.

Examples:
  theme-score-nexus import --file scores.xlsx --theme <theme-id>
  theme-score-nexus import --file legacy.xlsx --theme <theme-id> --five-point --updated-by analyst@firm.com`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		theme, err := st.GetTheme(ctx, importThemeID)
		if err != nil {
			return err
		}
		if theme == nil {
			return eris.Errorf("import: theme %s not found", importThemeID)
		}

		scores, rowErrs, err := ingest.ReadScoresXLSX(importFile, theme.ID, ingest.ScoreImportOptions{
			SheetName:      importSheet,
			FivePointScale: importFivePoint,
			UpdatedBy:      importUpdatedBy,
		})
		if err != nil {
			return err
		}

		for _, re := range rowErrs {
			zap.L().Warn("import: row rejected",
				zap.Int("row", re.Row),
				zap.String("reason", re.Reason),
			)
		}

		if importDryRun {
			fmt.Printf("Parsed %d valid scores, %d rejected rows (dry run, nothing saved)\n",
				len(scores), len(rowErrs))
			return nil
		}

		saved, err := st.BulkUpsertScores(ctx, scores)
		if err != nil {
			return err
		}

		zap.L().Info("import: complete",
			zap.String("theme", theme.Name),
			zap.Int("saved", saved),
			zap.Int("rejected", len(rowErrs)),
		)
		fmt.Printf("Saved %d scores for %s (%d rows rejected)\n", saved, theme.Name, len(rowErrs))
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "path to XLSX workbook (required)")
	importCmd.Flags().StringVar(&importThemeID, "theme", "", "theme ID to import scores for (required)")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "sheet name (default: first sheet)")
	importCmd.Flags().BoolVar(&importFivePoint, "five-point", false, "values are on the legacy 1-5 scale")
	importCmd.Flags().StringVar(&importUpdatedBy, "updated-by", "", "attribution recorded on each score")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "parse and validate only, save nothing")
	_ = importCmd.MarkFlagRequired("file")
	_ = importCmd.MarkFlagRequired("theme")
	rootCmd.AddCommand(importCmd)
}
