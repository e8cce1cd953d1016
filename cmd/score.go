package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/tpeters15/theme-score-nexus/internal/model"
	"github.com/tpeters15/theme-score-nexus/internal/scoring"
	"github.com/tpeters15/theme-score-nexus/internal/store"
)

var (
	scoreThemeID string
	scoreFormat  string
	scoreOutput  string
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Show theme scores from the weighted framework rollup",
	Long: `Computes the weighted rollup for a theme: per-criterion scores roll up
into category subtotals, category subtotals into the theme total. Criteria
without a recorded score are excluded from their category, and categories with
no scored criteria are excluded from the theme total, so a theme with no
scores shows as "not analyzed" rather than zero.

Examples:
  # All themes, one line each
  theme-score-nexus score

  # One theme with the category breakdown
  theme-score-nexus score --theme <theme-id>

  # Export the breakdown to CSV
  theme-score-nexus score --theme <theme-id> --format csv --output scores.csv`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if scoreFormat != "table" && scoreFormat != "csv" {
			return eris.Errorf("score: --format must be table or csv (got %q)", scoreFormat)
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		framework, err := st.ListFramework(ctx)
		if err != nil {
			return err
		}
		if len(framework) == 0 {
			return eris.New("score: framework is empty, run 'migrate' to seed it")
		}

		w := os.Stdout
		if scoreOutput != "" {
			f, err := os.Create(scoreOutput)
			if err != nil {
				return eris.Wrapf(err, "score: create output file %s", scoreOutput)
			}
			defer f.Close() //nolint:errcheck
			w = f
		}

		if scoreThemeID != "" {
			return scoreOneTheme(ctx, st, framework, w)
		}
		return scoreAllThemes(ctx, st, framework, w)
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreThemeID, "theme", "", "theme ID (default: summarize all themes)")
	scoreCmd.Flags().StringVar(&scoreFormat, "format", "table", "output format: table or csv")
	scoreCmd.Flags().StringVar(&scoreOutput, "output", "", "output file path (default: stdout)")
	rootCmd.AddCommand(scoreCmd)
}

func scoreOneTheme(ctx context.Context, st store.Store, framework []model.Category, w *os.File) error {
	theme, err := st.GetTheme(ctx, scoreThemeID)
	if err != nil {
		return err
	}
	if theme == nil {
		return eris.Errorf("score: theme %s not found", scoreThemeID)
	}

	result, err := themeRollup(ctx, st, framework, theme.ID)
	if err != nil {
		return err
	}

	if scoreFormat == "csv" {
		return writeCategoryCSV(w, theme, result)
	}
	return writeCategoryTable(w, theme, result)
}

func scoreAllThemes(ctx context.Context, st store.Store, framework []model.Category, w *os.File) error {
	themes, err := st.ListThemes(ctx)
	if err != nil {
		return err
	}
	if len(themes) == 0 {
		fmt.Fprintln(w, "No themes.")
		return nil
	}

	type row struct {
		theme  model.Theme
		result *scoring.Result
	}
	rows := make([]row, 0, len(themes))
	for _, theme := range themes {
		result, err := themeRollup(ctx, st, framework, theme.ID)
		if err != nil {
			return err
		}
		rows = append(rows, row{theme: theme, result: result})
	}

	if scoreFormat == "csv" {
		cw := csv.NewWriter(w)
		defer cw.Flush()
		if err := cw.Write([]string{"theme_id", "name", "pillar", "sector", "total", "analyzed", "confidence", "scored_criteria", "total_criteria"}); err != nil {
			return eris.Wrap(err, "score: write CSV header")
		}
		for _, r := range rows {
			record := []string{
				r.theme.ID, r.theme.Name, r.theme.Pillar, r.theme.Sector,
				formatTotal(r.result), fmt.Sprintf("%v", r.result.Analyzed),
				string(r.result.Confidence),
				fmt.Sprintf("%d", r.result.ScoredCriteria),
				fmt.Sprintf("%d", r.result.TotalCriteria),
			}
			if err := cw.Write(record); err != nil {
				return eris.Wrap(err, "score: write CSV row")
			}
		}
		return nil
	}

	fmt.Fprintf(w, "%-38s %-30s %-8s %-10s %s\n", "Theme ID", "Name", "Total", "Confidence", "Scored")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, r := range rows {
		name := r.theme.Name
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		fmt.Fprintf(w, "%-38s %-30s %-8s %-10s %d/%d\n",
			r.theme.ID, name, formatTotal(r.result), r.result.Confidence,
			r.result.ScoredCriteria, r.result.TotalCriteria)
	}
	return nil
}

func themeRollup(ctx context.Context, st store.Store, framework []model.Category, themeID string) (*scoring.Result, error) {
	scores, err := st.ListScores(ctx, themeID)
	if err != nil {
		return nil, err
	}
	scoreMap := make(map[string]model.DetailedScore, len(scores))
	for _, s := range scores {
		scoreMap[s.CriterionID] = s
	}
	return scoring.Aggregate(framework, scoreMap)
}

func writeCategoryTable(w *os.File, theme *model.Theme, result *scoring.Result) error {
	fmt.Fprintf(w, "Theme:      %s\n", theme.Name)
	fmt.Fprintf(w, "Pillar:     %s / %s\n", theme.Pillar, theme.Sector)
	fmt.Fprintf(w, "Total:      %s\n", formatTotal(result))
	if result.HasConfidence {
		fmt.Fprintf(w, "Confidence: %s\n", result.Confidence)
	}
	fmt.Fprintf(w, "Coverage:   %d/%d criteria scored\n\n", result.ScoredCriteria, result.TotalCriteria)

	fmt.Fprintf(w, "%-28s %7s %8s %8s\n", "Category", "Weight", "Score", "Scored")
	fmt.Fprintln(w, strings.Repeat("-", 55))
	for _, c := range result.Categories {
		score := "-"
		if c.Analyzed {
			score = fmt.Sprintf("%.1f", c.Score)
		}
		fmt.Fprintf(w, "%-28s %6.0f%% %8s %5d/%d\n", c.Name, c.Weight, score, c.Scored, c.Criteria)
	}
	return nil
}

func writeCategoryCSV(w *os.File, theme *model.Theme, result *scoring.Result) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"theme_id", "category_id", "category", "weight", "score", "analyzed", "scored_criteria", "total_criteria"}); err != nil {
		return eris.Wrap(err, "score: write CSV header")
	}
	for _, c := range result.Categories {
		score := ""
		if c.Analyzed {
			score = fmt.Sprintf("%.1f", c.Score)
		}
		record := []string{
			theme.ID, c.CategoryID, c.Name,
			fmt.Sprintf("%.0f", c.Weight), score,
			fmt.Sprintf("%v", c.Analyzed),
			fmt.Sprintf("%d", c.Scored),
			fmt.Sprintf("%d", c.Criteria),
		}
		if err := cw.Write(record); err != nil {
			return eris.Wrap(err, "score: write CSV row")
		}
	}
	return nil
}

func formatTotal(r *scoring.Result) string {
	if !r.Analyzed {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", r.Total)
}
