// Package store defines the persistence interface and its Postgres and
// SQLite implementations.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/tpeters15/theme-score-nexus/internal/config"
	"github.com/tpeters15/theme-score-nexus/internal/model"
)

// SignalFilter specifies criteria for listing signals.
type SignalFilter struct {
	Source  string `json:"source,omitempty"`
	ThemeID string `json:"theme_id,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// Store defines the persistence interface for the research platform.
type Store interface {
	// Framework (reference data; replaced wholesale on seed)
	ListFramework(ctx context.Context) ([]model.Category, error)
	SeedFramework(ctx context.Context, categories []model.Category) error

	// Themes
	CreateTheme(ctx context.Context, t *model.Theme) error
	GetTheme(ctx context.Context, id string) (*model.Theme, error)
	ListThemes(ctx context.Context) ([]model.Theme, error)

	// Detailed scores (latest wins, one row per theme+criterion)
	UpsertScore(ctx context.Context, s *model.DetailedScore) error
	BulkUpsertScores(ctx context.Context, scores []model.DetailedScore) (int, error)
	ListScores(ctx context.Context, themeID string) ([]model.DetailedScore, error)

	// Companies
	CreateCompany(ctx context.Context, c *model.Company) error
	GetCompany(ctx context.Context, id string) (*model.Company, error)
	FindCompanyByNormalizedName(ctx context.Context, normalized string) (*model.Company, error)
	UpdateCompanyStatus(ctx context.Context, id string, status model.ClassificationStatus, classificationError string) error

	// Theme mappings (at most one per company, unique constraint)
	GetThemeMapping(ctx context.Context, companyID string) (*model.ThemeMapping, error)
	InsertThemeMappingIfAbsent(ctx context.Context, m *model.ThemeMapping) (*model.ThemeMapping, bool, error)

	// Regulations
	CreateRegulation(ctx context.Context, r *model.Regulation) error
	ListRegulations(ctx context.Context) ([]model.Regulation, error)
	LinkRegulation(ctx context.Context, themeID, regulationID, relevance string) error
	ListThemeRegulations(ctx context.Context, themeID string) ([]model.Regulation, error)

	// Research documents (metadata; content lives in the docstore)
	CreateDocument(ctx context.Context, d *model.ResearchDocument) error
	ListDocuments(ctx context.Context, themeID string) ([]model.ResearchDocument, error)

	// Signals (deduplicated by URL)
	InsertSignal(ctx context.Context, s *model.Signal) (bool, error)
	ListSignals(ctx context.Context, filter SignalFilter) ([]model.Signal, error)

	// Research runs
	CreateResearchRun(ctx context.Context, r *model.ResearchRun) error
	GetResearchRun(ctx context.Context, id string) (*model.ResearchRun, error)
	CompleteResearchRun(ctx context.Context, id string, status model.RunStatus, scoresSaved int, runErr string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
	case "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
