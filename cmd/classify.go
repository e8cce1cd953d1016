package main

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tpeters15/theme-score-nexus/internal/classify"
)

var (
	classifyName        string
	classifyWebsite     string
	classifyDescription string
	classifyCSV         string
	classifyConcurrency int
	classifyOutput      string
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify companies into investment themes",
	Long: `Runs the classification pipeline: scrape the company website, classify
against the theme taxonomy with an LLM, verify with a search-grounded model,
then persist the mapping. A company keeps its first mapping; re-running never
overwrites an earlier result.

Examples:
  # Single company
  theme-score-nexus classify --name "Acme Grid" --website https://acmegrid.example

  # Batch from CSV (columns: name, website, description)
  theme-score-nexus classify --csv companies.csv --concurrency 4 --output results.json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if classifyName == "" && classifyCSV == "" {
			return eris.New("classify: either --name or --csv is required")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		classifier, err := buildClassifier(st)
		if err != nil {
			return err
		}

		// Single company mode.
		if classifyCSV == "" {
			result, err := classifier.Classify(ctx, classify.Request{
				Name:        classifyName,
				Website:     classifyWebsite,
				Description: classifyDescription,
			})
			if err != nil {
				return err
			}
			logClassifyResult(result)
			return writeClassifyJSON([]classify.BatchItem{{Request: classify.Request{Name: classifyName}, Result: result}})
		}

		// Batch mode.
		reqs, err := parseCompanyCSV(classifyCSV)
		if err != nil {
			return err
		}
		zap.L().Info("classify: parsed csv",
			zap.String("path", classifyCSV),
			zap.Int("companies", len(reqs)),
		)

		items := classifier.ClassifyBatch(ctx, reqs, classifyConcurrency)

		var succeeded, failed int
		for _, item := range items {
			if item.Err != nil {
				failed++
				zap.L().Error("classify: company failed",
					zap.String("name", item.Request.Name),
					zap.Error(item.Err),
				)
				continue
			}
			succeeded++
			logClassifyResult(item.Result)
		}
		zap.L().Info("classify: batch complete",
			zap.Int("total", len(items)),
			zap.Int("succeeded", succeeded),
			zap.Int("failed", failed),
		)

		return writeClassifyJSON(items)
	},
}

func init() {
	classifyCmd.Flags().StringVar(&classifyName, "name", "", "company name")
	classifyCmd.Flags().StringVar(&classifyWebsite, "website", "", "company website URL")
	classifyCmd.Flags().StringVar(&classifyDescription, "description", "", "company business description")
	classifyCmd.Flags().StringVar(&classifyCSV, "csv", "", "path to CSV of companies (name, website, description)")
	classifyCmd.Flags().IntVar(&classifyConcurrency, "concurrency", 4, "max companies to classify concurrently")
	classifyCmd.Flags().StringVar(&classifyOutput, "output", "", "write results JSON to file (default: stdout)")
	rootCmd.AddCommand(classifyCmd)
}

// parseCompanyCSV reads classification requests from a CSV with a header row.
// Recognized columns: name (required), website, description.
func parseCompanyCSV(path string) ([]classify.Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "classify: open csv %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrap(err, "classify: read csv header")
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	nameIdx, ok := cols["name"]
	if !ok {
		return nil, eris.New("classify: csv missing required column: name")
	}

	field := func(record []string, col string) string {
		idx, ok := cols[col]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var reqs []classify.Request
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "classify: read csv row")
		}
		if nameIdx >= len(record) || strings.TrimSpace(record[nameIdx]) == "" {
			continue
		}
		reqs = append(reqs, classify.Request{
			Name:        strings.TrimSpace(record[nameIdx]),
			Website:     field(record, "website"),
			Description: field(record, "description"),
		})
	}
	return reqs, nil
}

func logClassifyResult(result *classify.Result) {
	log := zap.L().With(zap.String("company", result.Company.Name))

	if result.AlreadyMapped {
		log.Info("classify: already mapped",
			zap.String("theme", result.Mapping.ThemeName),
			zap.Float64("confidence", result.Mapping.ConfidenceScore),
		)
		return
	}
	if result.Mapping == nil {
		log.Info("classify: no theme found",
			zap.String("status", string(result.Company.ClassificationStatus)),
		)
		return
	}
	log.Info("classify: mapped",
		zap.String("theme", result.Mapping.ThemeName),
		zap.Float64("confidence", result.Mapping.ConfidenceScore),
		zap.String("bucket", result.ConfidenceBucket),
		zap.Bool("verified", result.Mapping.VerificationPassed),
		zap.Strings("stages", result.StagesUsed),
	)
}

func writeClassifyJSON(items []classify.BatchItem) error {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		entry := map[string]any{"name": item.Request.Name}
		if item.Err != nil {
			entry["error"] = item.Err.Error()
		} else {
			entry["result"] = item.Result
		}
		out = append(out, entry)
	}

	w := os.Stdout
	if classifyOutput != "" {
		f, err := os.Create(classifyOutput)
		if err != nil {
			return eris.Wrap(err, "classify: create output file")
		}
		defer f.Close() //nolint:errcheck
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
