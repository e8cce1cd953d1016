package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tpeters15/theme-score-nexus/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetTheme_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM themes WHERE id = \$1`).
		WithArgs("nonexistent-theme").
		WillReturnError(pgx.ErrNoRows)

	theme, err := s.GetTheme(context.Background(), "nonexistent-theme")
	require.NoError(t, err)
	assert.Nil(t, theme)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetTheme_RoundTrip(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .+ FROM themes WHERE id = \$1`).
		WithArgs("theme-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "pillar", "sector", "description", "keywords", "in_scope", "out_of_scope", "business_model", "created_at", "updated_at",
		}).AddRow(
			"theme-1", "Heat Pumps", "Decarbonisation", "Buildings", "Residential heat pump installers",
			[]byte(`["heat pump","HVAC"]`), []byte(`["installation"]`), []byte(`["manufacturing"]`),
			"services", now, now,
		))

	theme, err := s.GetTheme(context.Background(), "theme-1")
	require.NoError(t, err)
	require.NotNil(t, theme)
	assert.Equal(t, "Heat Pumps", theme.Name)
	assert.Equal(t, []string{"heat pump", "HVAC"}, theme.Keywords)
	assert.Equal(t, []string{"manufacturing"}, theme.OutOfScope)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertScore(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO detailed_scores .+ ON CONFLICT \(theme_id, criterion_id\) DO UPDATE`).
		WithArgs(pgxmock.AnyArg(), "theme-1", "market-size", 72.5, pgxmock.AnyArg(), "strong demand signals", "manual", "analyst@fund.com", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	sc := &model.DetailedScore{
		ThemeID:      "theme-1",
		CriterionID:  "market-size",
		Value:        72.5,
		Confidence:   model.ConfidenceHigh,
		Notes:        "strong demand signals",
		UpdateSource: model.SourceManual,
		UpdatedBy:    "analyst@fund.com",
	}
	err := s.UpsertScore(context.Background(), sc)
	require.NoError(t, err)
	assert.NotEmpty(t, sc.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertThemeMappingIfAbsent_New(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO company_theme_mappings .+ ON CONFLICT \(company_id\) DO NOTHING`).
		WithArgs(pgxmock.AnyArg(), "company-1", "theme-1", "Heat Pumps", "Decarbonisation", "Buildings", "services",
			0.82, "installs heat pumps", true, "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	m := &model.ThemeMapping{
		CompanyID:          "company-1",
		ThemeID:            "theme-1",
		ThemeName:          "Heat Pumps",
		Pillar:             "Decarbonisation",
		Sector:             "Buildings",
		BusinessModel:      "services",
		ConfidenceScore:    0.82,
		Rationale:          "installs heat pumps",
		VerificationPassed: true,
	}
	got, created, err := s.InsertThemeMappingIfAbsent(context.Background(), m)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, m.ID, got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertThemeMappingIfAbsent_Existing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO company_theme_mappings .+ ON CONFLICT \(company_id\) DO NOTHING`).
		WithArgs(pgxmock.AnyArg(), "company-1", "theme-2", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .+ FROM company_theme_mappings WHERE company_id = \$1`).
		WithArgs("company-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "company_id", "theme_id", "theme_name", "pillar", "sector", "business_model",
			"confidence_score", "rationale", "verification_passed", "research_summary", "created_at",
		}).AddRow(
			"mapping-1", "company-1", "theme-1", "Heat Pumps", "Decarbonisation", "Buildings", "services",
			0.90, "original rationale", true, "", now,
		))

	m := &model.ThemeMapping{CompanyID: "company-1", ThemeID: "theme-2", ConfidenceScore: 0.55}
	got, created, err := s.InsertThemeMappingIfAbsent(context.Background(), m)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "mapping-1", got.ID)
	assert.Equal(t, "theme-1", got.ThemeID)
	assert.InDelta(t, 0.90, got.ConfidenceScore, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateCompanyStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE companies SET classification_status`).
		WithArgs("failed", "anthropic: timeout", pgxmock.AnyArg(), "missing-company").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateCompanyStatus(context.Background(), "missing-company", model.ClassificationFailed, "anthropic: timeout")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "company not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindCompanyByNormalizedName(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .+ FROM companies WHERE normalized_name = \$1 ORDER BY created_at LIMIT 1`).
		WithArgs("acme energy").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "normalized_name", "website", "business_description",
			"classification_status", "classification_error", "created_at", "updated_at",
		}).AddRow(
			"company-1", "Acme Energy GmbH", "acme energy", "https://acme.example", "",
			"completed", "", now, now,
		))

	got, err := s.FindCompanyByNormalizedName(context.Background(), "acme energy")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "company-1", got.ID)
	assert.Equal(t, "Acme Energy GmbH", got.Name)

	mock.ExpectQuery(`SELECT .+ FROM companies WHERE normalized_name = \$1 ORDER BY created_at LIMIT 1`).
		WithArgs("nobody").
		WillReturnError(pgx.ErrNoRows)

	missing, err := s.FindCompanyByNormalizedName(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertSignal_Dedup(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO signals .+ ON CONFLICT \(url\) DO NOTHING`).
		WithArgs(pgxmock.AnyArg(), "EU heat pump mandate", "https://example.com/news/1", "notion",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	inserted, err := s.InsertSignal(context.Background(), &model.Signal{
		Title:  "EU heat pump mandate",
		URL:    "https://example.com/news/1",
		Source: "notion",
	})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListScores(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	high := "High"
	mock.ExpectQuery(`SELECT .+ FROM detailed_scores WHERE theme_id = \$1`).
		WithArgs("theme-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "theme_id", "criterion_id", "value", "confidence", "notes", "update_source", "updated_by", "updated_at",
		}).
			AddRow("s1", "theme-1", "market-size", 70.0, &high, "", "manual", "", now).
			AddRow("s2", "theme-1", "market-growth", 55.0, (*string)(nil), "", "ai_research", "", now))

	scores, err := s.ListScores(context.Background(), "theme-1")
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, model.ConfidenceHigh, scores[0].Confidence)
	assert.Empty(t, scores[1].Confidence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteResearchRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE research_runs SET status`).
		WithArgs("complete", 11, "", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.CompleteResearchRun(context.Background(), "run-1", model.RunStatusComplete, 11, "")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDefaultFramework(t *testing.T) {
	cats, err := DefaultFramework()
	require.NoError(t, err)
	require.NotEmpty(t, cats)

	var total float64
	for _, c := range cats {
		total += c.Weight
		require.NotEmpty(t, c.Criteria, "category %s has no criteria", c.ID)
		for _, cr := range c.Criteria {
			assert.Equal(t, c.ID, cr.CategoryID)
			assert.Positive(t, cr.Weight)
		}
	}
	assert.InDelta(t, 100, total, 1e-9)
}
