// Package ingest brings external data into the platform: bulk score imports
// from analyst spreadsheets and market signals from Notion.
package ingest

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/tpeters15/theme-score-nexus/internal/model"
	"github.com/tpeters15/theme-score-nexus/internal/scoring"
)

// ScoreImportOptions configures an XLSX score import.
type ScoreImportOptions struct {
	SheetName string // default: first sheet
	// FivePointScale marks the file as using the legacy 1-5 scale; values are
	// converted to 0-100 on import.
	FivePointScale bool
	UpdatedBy      string
}

// RowError records a row that could not be imported. The import continues
// past bad rows; callers decide whether partial success is acceptable.
type RowError struct {
	Row    int
	Reason string
}

// expected column order: criterion_id, value, confidence, notes.
const scoreImportColumns = 4

var confidenceAliases = map[string]model.Confidence{
	"high":   model.ConfidenceHigh,
	"medium": model.ConfidenceMedium,
	"med":    model.ConfidenceMedium,
	"low":    model.ConfidenceLow,
}

// ReadScoresXLSX parses an analyst scoring spreadsheet into detailed scores
// for one theme. The first row is a header and is skipped.
func ReadScoresXLSX(path, themeID string, opts ScoreImportOptions) ([]model.DetailedScore, []RowError, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "ingest: open xlsx")
	}

	sheet, err := pickSheet(f, opts.SheetName)
	if err != nil {
		return nil, nil, err
	}

	var scores []model.DetailedScore
	var rowErrs []RowError
	for i, row := range sheet.Rows {
		if i == 0 {
			continue
		}
		cells := make([]string, scoreImportColumns)
		for j := 0; j < scoreImportColumns && j < len(row.Cells); j++ {
			cells[j] = strings.TrimSpace(row.Cells[j].String())
		}

		if cells[0] == "" {
			// Blank criterion on an otherwise blank row is just trailing space
			// in the sheet.
			if cells[1] == "" {
				continue
			}
			rowErrs = append(rowErrs, RowError{Row: i + 1, Reason: "missing criterion id"})
			continue
		}

		value, err := strconv.ParseFloat(cells[1], 64)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: i + 1, Reason: "unparseable value " + strconv.Quote(cells[1])})
			continue
		}
		if opts.FivePointScale {
			value, err = scoring.FromFivePoint(value)
			if err != nil {
				rowErrs = append(rowErrs, RowError{Row: i + 1, Reason: err.Error()})
				continue
			}
		}
		if err := scoring.ValidateValue(value); err != nil {
			rowErrs = append(rowErrs, RowError{Row: i + 1, Reason: err.Error()})
			continue
		}

		var confidence model.Confidence
		if cells[2] != "" {
			var ok bool
			confidence, ok = confidenceAliases[strings.ToLower(cells[2])]
			if !ok {
				rowErrs = append(rowErrs, RowError{Row: i + 1, Reason: "unknown confidence " + strconv.Quote(cells[2])})
				continue
			}
		}

		scores = append(scores, model.DetailedScore{
			ThemeID:      themeID,
			CriterionID:  cells[0],
			Value:        value,
			Confidence:   confidence,
			Notes:        cells[3],
			UpdateSource: model.SourceBulkManual,
			UpdatedBy:    opts.UpdatedBy,
		})
	}

	return scores, rowErrs, nil
}

func pickSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("ingest: sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("ingest: workbook has no sheets")
	}
	return f.Sheets[0], nil
}
