package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/tpeters15/theme-score-nexus/internal/db"
	"github.com/tpeters15/theme-score-nexus/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest store operations.
var preparedStatements = map[string]string{
	"upsert_score": `INSERT INTO detailed_scores (id, theme_id, criterion_id, value, confidence, notes, update_source, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (theme_id, criterion_id) DO UPDATE SET
			value = EXCLUDED.value, confidence = EXCLUDED.confidence, notes = EXCLUDED.notes,
			update_source = EXCLUDED.update_source, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`,
	"list_scores":       `SELECT id, theme_id, criterion_id, value, confidence, notes, update_source, updated_by, updated_at FROM detailed_scores WHERE theme_id = $1`,
	"get_theme_mapping": `SELECT id, company_id, theme_id, theme_name, pillar, sector, business_model, confidence_score, rationale, verification_passed, research_summary, created_at FROM company_theme_mappings WHERE company_id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS framework_categories (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	weight     DOUBLE PRECISION NOT NULL,
	sort_order INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS framework_criteria (
	id          TEXT PRIMARY KEY,
	category_id TEXT NOT NULL REFERENCES framework_categories(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	weight      DOUBLE PRECISION NOT NULL,
	sort_order  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS themes (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name           TEXT NOT NULL,
	pillar         TEXT NOT NULL DEFAULT '',
	sector         TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	keywords       JSONB,
	in_scope       JSONB,
	out_of_scope   JSONB,
	business_model TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS detailed_scores (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	theme_id      TEXT NOT NULL REFERENCES themes(id) ON DELETE CASCADE,
	criterion_id  TEXT NOT NULL REFERENCES framework_criteria(id) ON DELETE CASCADE,
	value         DOUBLE PRECISION NOT NULL,
	confidence    TEXT,
	notes         TEXT NOT NULL DEFAULT '',
	update_source TEXT NOT NULL DEFAULT 'manual',
	updated_by    TEXT NOT NULL DEFAULT '',
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (theme_id, criterion_id)
);

CREATE INDEX IF NOT EXISTS idx_detailed_scores_theme ON detailed_scores(theme_id);

CREATE TABLE IF NOT EXISTS companies (
	id                    TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name                  TEXT NOT NULL,
	normalized_name       TEXT NOT NULL DEFAULT '',
	website               TEXT NOT NULL DEFAULT '',
	business_description  TEXT NOT NULL DEFAULT '',
	classification_status TEXT NOT NULL DEFAULT 'pending',
	classification_error  TEXT NOT NULL DEFAULT '',
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_companies_normalized_name ON companies(normalized_name);

CREATE TABLE IF NOT EXISTS company_theme_mappings (
	id                  TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	company_id          TEXT NOT NULL UNIQUE REFERENCES companies(id) ON DELETE CASCADE,
	theme_id            TEXT NOT NULL REFERENCES themes(id),
	theme_name          TEXT NOT NULL,
	pillar              TEXT NOT NULL DEFAULT '',
	sector              TEXT NOT NULL DEFAULT '',
	business_model      TEXT NOT NULL DEFAULT '',
	confidence_score    DOUBLE PRECISION NOT NULL,
	rationale           TEXT NOT NULL DEFAULT '',
	verification_passed BOOLEAN NOT NULL DEFAULT true,
	research_summary    TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS regulations (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	title          TEXT NOT NULL,
	jurisdiction   TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT 'proposed',
	summary        TEXT NOT NULL DEFAULT '',
	source_url     TEXT NOT NULL DEFAULT '',
	effective_date TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS theme_regulations (
	theme_id      TEXT NOT NULL REFERENCES themes(id) ON DELETE CASCADE,
	regulation_id TEXT NOT NULL REFERENCES regulations(id) ON DELETE CASCADE,
	relevance     TEXT NOT NULL DEFAULT '',
	linked_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (theme_id, regulation_id)
);

CREATE TABLE IF NOT EXISTS research_documents (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	theme_id     TEXT NOT NULL REFERENCES themes(id) ON DELETE CASCADE,
	title        TEXT NOT NULL,
	file_name    TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	mime_type    TEXT NOT NULL,
	size_bytes   BIGINT NOT NULL,
	uploaded_by  TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_research_documents_theme ON research_documents(theme_id);

CREATE TABLE IF NOT EXISTS signals (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	title        TEXT NOT NULL,
	url          TEXT NOT NULL UNIQUE,
	source       TEXT NOT NULL,
	summary      TEXT NOT NULL DEFAULT '',
	theme_id     TEXT,
	published_at TIMESTAMPTZ,
	ingested_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_signals_source ON signals(source);

CREATE TABLE IF NOT EXISTS research_runs (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	theme_id     TEXT NOT NULL REFERENCES themes(id) ON DELETE CASCADE,
	status       TEXT NOT NULL DEFAULT 'queued',
	triggered_by TEXT NOT NULL DEFAULT '',
	error        TEXT NOT NULL DEFAULT '',
	scores_saved INTEGER NOT NULL DEFAULT 0,
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_research_runs_theme ON research_runs(theme_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Framework ---

func (s *PostgresStore) ListFramework(ctx context.Context) ([]model.Category, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, weight, sort_order FROM framework_categories ORDER BY sort_order, id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list categories")
	}
	defer rows.Close()

	var cats []model.Category
	index := map[string]int{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Weight, &c.SortOrder); err != nil {
			return nil, eris.Wrap(err, "postgres: scan category")
		}
		index[c.ID] = len(cats)
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list categories iterate")
	}

	crRows, err := s.pool.Query(ctx,
		`SELECT id, category_id, name, description, weight, sort_order FROM framework_criteria ORDER BY sort_order, id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list criteria")
	}
	defer crRows.Close()

	for crRows.Next() {
		var cr model.Criterion
		if err := crRows.Scan(&cr.ID, &cr.CategoryID, &cr.Name, &cr.Description, &cr.Weight, &cr.SortOrder); err != nil {
			return nil, eris.Wrap(err, "postgres: scan criterion")
		}
		if i, ok := index[cr.CategoryID]; ok {
			cats[i].Criteria = append(cats[i].Criteria, cr)
		}
	}
	return cats, eris.Wrap(crRows.Err(), "postgres: list criteria iterate")
}

func (s *PostgresStore) SeedFramework(ctx context.Context, categories []model.Category) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: seed framework begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, c := range categories {
		if _, err := tx.Exec(ctx,
			`INSERT INTO framework_categories (id, name, weight, sort_order) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, weight = EXCLUDED.weight, sort_order = EXCLUDED.sort_order`,
			c.ID, c.Name, c.Weight, c.SortOrder,
		); err != nil {
			return eris.Wrapf(err, "postgres: seed category %s", c.ID)
		}
		for _, cr := range c.Criteria {
			if _, err := tx.Exec(ctx,
				`INSERT INTO framework_criteria (id, category_id, name, description, weight, sort_order) VALUES ($1, $2, $3, $4, $5, $6)
				 ON CONFLICT (id) DO UPDATE SET category_id = EXCLUDED.category_id, name = EXCLUDED.name,
					description = EXCLUDED.description, weight = EXCLUDED.weight, sort_order = EXCLUDED.sort_order`,
				cr.ID, c.ID, cr.Name, cr.Description, cr.Weight, cr.SortOrder,
			); err != nil {
				return eris.Wrapf(err, "postgres: seed criterion %s", cr.ID)
			}
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: seed framework commit")
}

// --- Themes ---

func (s *PostgresStore) CreateTheme(ctx context.Context, t *model.Theme) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	keywords, inScope, outScope, err := marshalThemeLists(t)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO themes (id, name, pillar, sector, description, keywords, in_scope, out_of_scope, business_model, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.Name, t.Pillar, t.Sector, t.Description, keywords, inScope, outScope, t.BusinessModel, t.CreatedAt, t.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: insert theme")
}

func (s *PostgresStore) GetTheme(ctx context.Context, id string) (*model.Theme, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, pillar, sector, description, keywords, in_scope, out_of_scope, business_model, created_at, updated_at
		 FROM themes WHERE id = $1`, id)
	t, err := scanTheme(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get theme %s", id)
	}
	return t, nil
}

func (s *PostgresStore) ListThemes(ctx context.Context) ([]model.Theme, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, pillar, sector, description, keywords, in_scope, out_of_scope, business_model, created_at, updated_at
		 FROM themes ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list themes")
	}
	defer rows.Close()

	var themes []model.Theme
	for rows.Next() {
		t, err := scanTheme(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan theme")
		}
		themes = append(themes, *t)
	}
	return themes, eris.Wrap(rows.Err(), "postgres: list themes iterate")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTheme(row rowScanner) (*model.Theme, error) {
	var t model.Theme
	var keywords, inScope, outScope []byte
	if err := row.Scan(&t.ID, &t.Name, &t.Pillar, &t.Sector, &t.Description,
		&keywords, &inScope, &outScope, &t.BusinessModel, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	for _, pair := range []struct {
		raw []byte
		dst *[]string
	}{
		{keywords, &t.Keywords},
		{inScope, &t.InScope},
		{outScope, &t.OutOfScope},
	} {
		if len(pair.raw) > 0 {
			if err := json.Unmarshal(pair.raw, pair.dst); err != nil {
				return nil, eris.Wrap(err, "unmarshal theme list")
			}
		}
	}
	return &t, nil
}

func marshalThemeLists(t *model.Theme) (keywords, inScope, outScope []byte, err error) {
	if keywords, err = json.Marshal(t.Keywords); err != nil {
		return nil, nil, nil, eris.Wrap(err, "postgres: marshal keywords")
	}
	if inScope, err = json.Marshal(t.InScope); err != nil {
		return nil, nil, nil, eris.Wrap(err, "postgres: marshal in_scope")
	}
	if outScope, err = json.Marshal(t.OutOfScope); err != nil {
		return nil, nil, nil, eris.Wrap(err, "postgres: marshal out_of_scope")
	}
	return keywords, inScope, outScope, nil
}

// --- Scores ---

func (s *PostgresStore) UpsertScore(ctx context.Context, sc *model.DetailedScore) error {
	if sc.ID == "" {
		sc.ID = uuid.New().String()
	}
	sc.UpdatedAt = time.Now().UTC()

	var confidence *string
	if sc.Confidence != "" {
		c := string(sc.Confidence)
		confidence = &c
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO detailed_scores (id, theme_id, criterion_id, value, confidence, notes, update_source, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (theme_id, criterion_id) DO UPDATE SET
			value = EXCLUDED.value, confidence = EXCLUDED.confidence, notes = EXCLUDED.notes,
			update_source = EXCLUDED.update_source, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`,
		sc.ID, sc.ThemeID, sc.CriterionID, sc.Value, confidence, sc.Notes, string(sc.UpdateSource), sc.UpdatedBy, sc.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: upsert score %s/%s", sc.ThemeID, sc.CriterionID)
}

func (s *PostgresStore) BulkUpsertScores(ctx context.Context, scores []model.DetailedScore) (int, error) {
	if len(scores) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(scores))
	for _, sc := range scores {
		id := sc.ID
		if id == "" {
			id = uuid.New().String()
		}
		var confidence *string
		if sc.Confidence != "" {
			c := string(sc.Confidence)
			confidence = &c
		}
		rows = append(rows, []any{id, sc.ThemeID, sc.CriterionID, sc.Value, confidence, sc.Notes, string(sc.UpdateSource), sc.UpdatedBy, now})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "detailed_scores",
		Columns:      []string{"id", "theme_id", "criterion_id", "value", "confidence", "notes", "update_source", "updated_by", "updated_at"},
		ConflictKeys: []string{"theme_id", "criterion_id"},
		UpdateCols:   []string{"value", "confidence", "notes", "update_source", "updated_by", "updated_at"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: bulk upsert scores")
	}
	return int(n), nil
}

func (s *PostgresStore) ListScores(ctx context.Context, themeID string) ([]model.DetailedScore, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, theme_id, criterion_id, value, confidence, notes, update_source, updated_by, updated_at FROM detailed_scores WHERE theme_id = $1`,
		themeID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list scores")
	}
	defer rows.Close()

	var scores []model.DetailedScore
	for rows.Next() {
		var sc model.DetailedScore
		var confidence *string
		if err := rows.Scan(&sc.ID, &sc.ThemeID, &sc.CriterionID, &sc.Value, &confidence, &sc.Notes, &sc.UpdateSource, &sc.UpdatedBy, &sc.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan score")
		}
		if confidence != nil {
			sc.Confidence = model.Confidence(*confidence)
		}
		scores = append(scores, sc)
	}
	return scores, eris.Wrap(rows.Err(), "postgres: list scores iterate")
}

// --- Companies ---

func (s *PostgresStore) CreateCompany(ctx context.Context, c *model.Company) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.ClassificationStatus == "" {
		c.ClassificationStatus = model.ClassificationPending
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO companies (id, name, normalized_name, website, business_description, classification_status, classification_error, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.Name, c.NormalizedName, c.Website, c.BusinessDescription, string(c.ClassificationStatus), c.ClassificationError, c.CreatedAt, c.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: insert company")
}

func (s *PostgresStore) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	var c model.Company
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, normalized_name, website, business_description, classification_status, classification_error, created_at, updated_at
		 FROM companies WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.NormalizedName, &c.Website, &c.BusinessDescription, &c.ClassificationStatus, &c.ClassificationError, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get company %s", id)
	}
	return &c, nil
}

// FindCompanyByNormalizedName returns the oldest company row matching the
// normalized name, or nil when none exists.
func (s *PostgresStore) FindCompanyByNormalizedName(ctx context.Context, normalized string) (*model.Company, error) {
	var c model.Company
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, normalized_name, website, business_description, classification_status, classification_error, created_at, updated_at
		 FROM companies WHERE normalized_name = $1 ORDER BY created_at LIMIT 1`, normalized,
	).Scan(&c.ID, &c.Name, &c.NormalizedName, &c.Website, &c.BusinessDescription, &c.ClassificationStatus, &c.ClassificationError, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: find company by normalized name %s", normalized)
	}
	return &c, nil
}

func (s *PostgresStore) UpdateCompanyStatus(ctx context.Context, id string, status model.ClassificationStatus, classificationError string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE companies SET classification_status = $1, classification_error = $2, updated_at = $3 WHERE id = $4`,
		string(status), classificationError, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update company status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("company not found: %s", id)
	}
	return nil
}

// --- Theme mappings ---

func (s *PostgresStore) GetThemeMapping(ctx context.Context, companyID string) (*model.ThemeMapping, error) {
	var m model.ThemeMapping
	err := s.pool.QueryRow(ctx,
		`SELECT id, company_id, theme_id, theme_name, pillar, sector, business_model, confidence_score, rationale, verification_passed, research_summary, created_at
		 FROM company_theme_mappings WHERE company_id = $1`, companyID,
	).Scan(&m.ID, &m.CompanyID, &m.ThemeID, &m.ThemeName, &m.Pillar, &m.Sector, &m.BusinessModel,
		&m.ConfidenceScore, &m.Rationale, &m.VerificationPassed, &m.ResearchSummary, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get theme mapping %s", companyID)
	}
	return &m, nil
}

// InsertThemeMappingIfAbsent inserts m unless the company already has a
// mapping, in which case the existing one is returned unchanged. The unique
// constraint on company_id makes this atomic under concurrent invocations.
func (s *PostgresStore) InsertThemeMappingIfAbsent(ctx context.Context, m *model.ThemeMapping) (*model.ThemeMapping, bool, error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = time.Now().UTC()

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO company_theme_mappings (id, company_id, theme_id, theme_name, pillar, sector, business_model, confidence_score, rationale, verification_passed, research_summary, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (company_id) DO NOTHING`,
		m.ID, m.CompanyID, m.ThemeID, m.ThemeName, m.Pillar, m.Sector, m.BusinessModel,
		m.ConfidenceScore, m.Rationale, m.VerificationPassed, m.ResearchSummary, m.CreatedAt,
	)
	if err != nil {
		return nil, false, eris.Wrapf(err, "postgres: insert theme mapping %s", m.CompanyID)
	}
	if tag.RowsAffected() > 0 {
		return m, true, nil
	}

	existing, err := s.GetThemeMapping(ctx, m.CompanyID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, eris.Errorf("postgres: mapping conflict but none found for company %s", m.CompanyID)
	}
	return existing, false, nil
}

// --- Regulations ---

func (s *PostgresStore) CreateRegulation(ctx context.Context, r *model.Regulation) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = model.RegulationProposed
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO regulations (id, title, jurisdiction, status, summary, source_url, effective_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.Title, r.Jurisdiction, string(r.Status), r.Summary, r.SourceURL, r.EffectiveDate, r.CreatedAt, r.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: insert regulation")
}

func (s *PostgresStore) ListRegulations(ctx context.Context) ([]model.Regulation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, jurisdiction, status, summary, source_url, effective_date, created_at, updated_at
		 FROM regulations ORDER BY created_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list regulations")
	}
	defer rows.Close()
	return scanRegulations(rows)
}

func (s *PostgresStore) LinkRegulation(ctx context.Context, themeID, regulationID, relevance string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO theme_regulations (theme_id, regulation_id, relevance, linked_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (theme_id, regulation_id) DO UPDATE SET relevance = EXCLUDED.relevance`,
		themeID, regulationID, relevance, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: link regulation %s to theme %s", regulationID, themeID)
}

func (s *PostgresStore) ListThemeRegulations(ctx context.Context, themeID string) ([]model.Regulation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT r.id, r.title, r.jurisdiction, r.status, r.summary, r.source_url, r.effective_date, r.created_at, r.updated_at
		 FROM regulations r JOIN theme_regulations tr ON tr.regulation_id = r.id
		 WHERE tr.theme_id = $1 ORDER BY tr.linked_at DESC`, themeID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list theme regulations")
	}
	defer rows.Close()
	return scanRegulations(rows)
}

func scanRegulations(rows pgx.Rows) ([]model.Regulation, error) {
	var regs []model.Regulation
	for rows.Next() {
		var r model.Regulation
		if err := rows.Scan(&r.ID, &r.Title, &r.Jurisdiction, &r.Status, &r.Summary, &r.SourceURL, &r.EffectiveDate, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan regulation")
		}
		regs = append(regs, r)
	}
	return regs, eris.Wrap(rows.Err(), "postgres: regulations iterate")
}

// --- Research documents ---

func (s *PostgresStore) CreateDocument(ctx context.Context, d *model.ResearchDocument) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO research_documents (id, theme_id, title, file_name, storage_path, mime_type, size_bytes, uploaded_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.ThemeID, d.Title, d.FileName, d.StoragePath, d.MimeType, d.SizeBytes, d.UploadedBy, d.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert document")
}

func (s *PostgresStore) ListDocuments(ctx context.Context, themeID string) ([]model.ResearchDocument, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, theme_id, title, file_name, storage_path, mime_type, size_bytes, uploaded_by, created_at
		 FROM research_documents WHERE theme_id = $1 ORDER BY created_at DESC`, themeID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list documents")
	}
	defer rows.Close()

	var docs []model.ResearchDocument
	for rows.Next() {
		var d model.ResearchDocument
		if err := rows.Scan(&d.ID, &d.ThemeID, &d.Title, &d.FileName, &d.StoragePath, &d.MimeType, &d.SizeBytes, &d.UploadedBy, &d.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan document")
		}
		docs = append(docs, d)
	}
	return docs, eris.Wrap(rows.Err(), "postgres: documents iterate")
}

// --- Signals ---

func (s *PostgresStore) InsertSignal(ctx context.Context, sig *model.Signal) (bool, error) {
	if sig.ID == "" {
		sig.ID = uuid.New().String()
	}
	sig.IngestedAt = time.Now().UTC()

	var themeID *string
	if sig.ThemeID != "" {
		themeID = &sig.ThemeID
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO signals (id, title, url, source, summary, theme_id, published_at, ingested_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (url) DO NOTHING`,
		sig.ID, sig.Title, sig.URL, sig.Source, sig.Summary, themeID, sig.PublishedAt, sig.IngestedAt,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: insert signal %s", sig.URL)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) ListSignals(ctx context.Context, filter SignalFilter) ([]model.Signal, error) {
	query := `SELECT id, title, url, source, summary, theme_id, published_at, ingested_at FROM signals WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Source != "" {
		query += ` AND source = $` + strconv.Itoa(argIdx)
		args = append(args, filter.Source)
		argIdx++
	}
	if filter.ThemeID != "" {
		query += ` AND theme_id = $` + strconv.Itoa(argIdx)
		args = append(args, filter.ThemeID)
		argIdx++
	}
	query += ` ORDER BY ingested_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT $` + strconv.Itoa(argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list signals")
	}
	defer rows.Close()

	var signals []model.Signal
	for rows.Next() {
		var sig model.Signal
		var themeID *string
		if err := rows.Scan(&sig.ID, &sig.Title, &sig.URL, &sig.Source, &sig.Summary, &themeID, &sig.PublishedAt, &sig.IngestedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan signal")
		}
		if themeID != nil {
			sig.ThemeID = *themeID
		}
		signals = append(signals, sig)
	}
	return signals, eris.Wrap(rows.Err(), "postgres: signals iterate")
}

// --- Research runs ---

func (s *PostgresStore) CreateResearchRun(ctx context.Context, r *model.ResearchRun) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = model.RunStatusQueued
	}
	r.StartedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO research_runs (id, theme_id, status, triggered_by, error, scores_saved, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.ThemeID, string(r.Status), r.TriggeredBy, r.Error, r.ScoresSaved, r.StartedAt,
	)
	return eris.Wrap(err, "postgres: insert research run")
}

func (s *PostgresStore) GetResearchRun(ctx context.Context, id string) (*model.ResearchRun, error) {
	var r model.ResearchRun
	err := s.pool.QueryRow(ctx,
		`SELECT id, theme_id, status, triggered_by, error, scores_saved, started_at, completed_at
		 FROM research_runs WHERE id = $1`, id,
	).Scan(&r.ID, &r.ThemeID, &r.Status, &r.TriggeredBy, &r.Error, &r.ScoresSaved, &r.StartedAt, &r.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get research run %s", id)
	}
	return &r, nil
}

func (s *PostgresStore) CompleteResearchRun(ctx context.Context, id string, status model.RunStatus, scoresSaved int, runErr string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE research_runs SET status = $1, scores_saved = $2, error = $3, completed_at = $4 WHERE id = $5`,
		string(status), scoresSaved, runErr, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete research run %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("research run not found: %s", id)
	}
	return nil
}

