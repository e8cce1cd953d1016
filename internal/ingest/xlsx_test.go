package ingest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/tpeters15/theme-score-nexus/internal/model"
)

func writeScoreSheet(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Scores")
	require.NoError(t, err)

	header := sheet.AddRow()
	for _, h := range []string{"criterion_id", "value", "confidence", "notes"} {
		header.AddCell().Value = h
	}
	for _, r := range rows {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().Value = v
		}
	}

	path := filepath.Join(t.TempDir(), "scores.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadScoresXLSX(t *testing.T) {
	path := writeScoreSheet(t, [][]string{
		{"market-size", "72.5", "High", "large and growing"},
		{"market-growth", "55", "", ""},
		{"policy-support", "oops", "High", ""},
		{"regulatory-risk", "40", "certain", ""},
		{"", "", "", ""},
	})

	scores, rowErrs, err := ReadScoresXLSX(path, "theme-1", ScoreImportOptions{UpdatedBy: "analyst"})
	require.NoError(t, err)

	require.Len(t, scores, 2)
	assert.Equal(t, "market-size", scores[0].CriterionID)
	assert.InDelta(t, 72.5, scores[0].Value, 1e-9)
	assert.Equal(t, model.ConfidenceHigh, scores[0].Confidence)
	assert.Equal(t, model.SourceBulkManual, scores[0].UpdateSource)
	assert.Equal(t, "analyst", scores[0].UpdatedBy)
	assert.Empty(t, scores[1].Confidence)

	require.Len(t, rowErrs, 2)
	assert.Contains(t, rowErrs[0].Reason, "unparseable value")
	assert.Contains(t, rowErrs[1].Reason, "unknown confidence")
}

func TestReadScoresXLSX_FivePointConversion(t *testing.T) {
	path := writeScoreSheet(t, [][]string{
		{"market-size", "1", "", ""},
		{"market-growth", "3", "", ""},
		{"policy-support", "5", "", ""},
		{"regulatory-risk", "6", "", ""},
	})

	scores, rowErrs, err := ReadScoresXLSX(path, "theme-1", ScoreImportOptions{FivePointScale: true})
	require.NoError(t, err)

	require.Len(t, scores, 3)
	assert.InDelta(t, 0, scores[0].Value, 1e-9)
	assert.InDelta(t, 50, scores[1].Value, 1e-9)
	assert.InDelta(t, 100, scores[2].Value, 1e-9)
	require.Len(t, rowErrs, 1) // 6 is outside the legacy scale
}

func TestReadScoresXLSX_ValueOutOfRange(t *testing.T) {
	path := writeScoreSheet(t, [][]string{
		{"market-size", "140", "", ""},
	})

	scores, rowErrs, err := ReadScoresXLSX(path, "theme-1", ScoreImportOptions{})
	require.NoError(t, err)
	assert.Empty(t, scores)
	require.Len(t, rowErrs, 1)
}

func TestReadScoresXLSX_MissingSheet(t *testing.T) {
	path := writeScoreSheet(t, nil)
	_, _, err := ReadScoresXLSX(path, "theme-1", ScoreImportOptions{SheetName: "Nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
