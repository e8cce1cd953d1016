package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/tpeters15/theme-score-nexus/internal/model"
)

// SQLiteStore implements Store on a local SQLite file. It is the
// zero-dependency fallback for laptops and CI; Postgres is the production
// driver.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) a SQLite database at path.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// WAL keeps readers unblocked during writes; a single writer connection
	// avoids SQLITE_BUSY under concurrency.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS framework_categories (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	weight     REAL NOT NULL,
	sort_order INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS framework_criteria (
	id          TEXT PRIMARY KEY,
	category_id TEXT NOT NULL REFERENCES framework_categories(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	weight      REAL NOT NULL,
	sort_order  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS themes (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	pillar         TEXT NOT NULL DEFAULT '',
	sector         TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	keywords       TEXT,
	in_scope       TEXT,
	out_of_scope   TEXT,
	business_model TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMP NOT NULL,
	updated_at     TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS detailed_scores (
	id            TEXT PRIMARY KEY,
	theme_id      TEXT NOT NULL REFERENCES themes(id) ON DELETE CASCADE,
	criterion_id  TEXT NOT NULL REFERENCES framework_criteria(id) ON DELETE CASCADE,
	value         REAL NOT NULL,
	confidence    TEXT,
	notes         TEXT NOT NULL DEFAULT '',
	update_source TEXT NOT NULL DEFAULT 'manual',
	updated_by    TEXT NOT NULL DEFAULT '',
	updated_at    TIMESTAMP NOT NULL,
	UNIQUE (theme_id, criterion_id)
);

CREATE INDEX IF NOT EXISTS idx_detailed_scores_theme ON detailed_scores(theme_id);

CREATE TABLE IF NOT EXISTS companies (
	id                    TEXT PRIMARY KEY,
	name                  TEXT NOT NULL,
	normalized_name       TEXT NOT NULL DEFAULT '',
	website               TEXT NOT NULL DEFAULT '',
	business_description  TEXT NOT NULL DEFAULT '',
	classification_status TEXT NOT NULL DEFAULT 'pending',
	classification_error  TEXT NOT NULL DEFAULT '',
	created_at            TIMESTAMP NOT NULL,
	updated_at            TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_companies_normalized_name ON companies(normalized_name);

CREATE TABLE IF NOT EXISTS company_theme_mappings (
	id                  TEXT PRIMARY KEY,
	company_id          TEXT NOT NULL UNIQUE REFERENCES companies(id) ON DELETE CASCADE,
	theme_id            TEXT NOT NULL REFERENCES themes(id),
	theme_name          TEXT NOT NULL,
	pillar              TEXT NOT NULL DEFAULT '',
	sector              TEXT NOT NULL DEFAULT '',
	business_model      TEXT NOT NULL DEFAULT '',
	confidence_score    REAL NOT NULL,
	rationale           TEXT NOT NULL DEFAULT '',
	verification_passed INTEGER NOT NULL DEFAULT 1,
	research_summary    TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS regulations (
	id             TEXT PRIMARY KEY,
	title          TEXT NOT NULL,
	jurisdiction   TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT 'proposed',
	summary        TEXT NOT NULL DEFAULT '',
	source_url     TEXT NOT NULL DEFAULT '',
	effective_date TIMESTAMP,
	created_at     TIMESTAMP NOT NULL,
	updated_at     TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS theme_regulations (
	theme_id      TEXT NOT NULL REFERENCES themes(id) ON DELETE CASCADE,
	regulation_id TEXT NOT NULL REFERENCES regulations(id) ON DELETE CASCADE,
	relevance     TEXT NOT NULL DEFAULT '',
	linked_at     TIMESTAMP NOT NULL,
	PRIMARY KEY (theme_id, regulation_id)
);

CREATE TABLE IF NOT EXISTS research_documents (
	id           TEXT PRIMARY KEY,
	theme_id     TEXT NOT NULL REFERENCES themes(id) ON DELETE CASCADE,
	title        TEXT NOT NULL,
	file_name    TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	mime_type    TEXT NOT NULL,
	size_bytes   INTEGER NOT NULL,
	uploaded_by  TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS signals (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	url          TEXT NOT NULL UNIQUE,
	source       TEXT NOT NULL,
	summary      TEXT NOT NULL DEFAULT '',
	theme_id     TEXT,
	published_at TIMESTAMP,
	ingested_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS research_runs (
	id           TEXT PRIMARY KEY,
	theme_id     TEXT NOT NULL REFERENCES themes(id) ON DELETE CASCADE,
	status       TEXT NOT NULL DEFAULT 'queued',
	triggered_by TEXT NOT NULL DEFAULT '',
	error        TEXT NOT NULL DEFAULT '',
	scores_saved INTEGER NOT NULL DEFAULT 0,
	started_at   TIMESTAMP NOT NULL,
	completed_at TIMESTAMP
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Framework ---

func (s *SQLiteStore) ListFramework(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, weight, sort_order FROM framework_categories ORDER BY sort_order, id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list categories")
	}
	defer rows.Close()

	var cats []model.Category
	index := map[string]int{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Weight, &c.SortOrder); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan category")
		}
		index[c.ID] = len(cats)
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: list categories iterate")
	}

	crRows, err := s.db.QueryContext(ctx,
		`SELECT id, category_id, name, description, weight, sort_order FROM framework_criteria ORDER BY sort_order, id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list criteria")
	}
	defer crRows.Close()

	for crRows.Next() {
		var cr model.Criterion
		if err := crRows.Scan(&cr.ID, &cr.CategoryID, &cr.Name, &cr.Description, &cr.Weight, &cr.SortOrder); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan criterion")
		}
		if i, ok := index[cr.CategoryID]; ok {
			cats[i].Criteria = append(cats[i].Criteria, cr)
		}
	}
	return cats, eris.Wrap(crRows.Err(), "sqlite: list criteria iterate")
}

func (s *SQLiteStore) SeedFramework(ctx context.Context, categories []model.Category) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: seed framework begin")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, c := range categories {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO framework_categories (id, name, weight, sort_order) VALUES (?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET name = excluded.name, weight = excluded.weight, sort_order = excluded.sort_order`,
			c.ID, c.Name, c.Weight, c.SortOrder,
		); err != nil {
			return eris.Wrapf(err, "sqlite: seed category %s", c.ID)
		}
		for _, cr := range c.Criteria {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO framework_criteria (id, category_id, name, description, weight, sort_order) VALUES (?, ?, ?, ?, ?, ?)
				 ON CONFLICT(id) DO UPDATE SET category_id = excluded.category_id, name = excluded.name,
					description = excluded.description, weight = excluded.weight, sort_order = excluded.sort_order`,
				cr.ID, c.ID, cr.Name, cr.Description, cr.Weight, cr.SortOrder,
			); err != nil {
				return eris.Wrapf(err, "sqlite: seed criterion %s", cr.ID)
			}
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: seed framework commit")
}

// --- Themes ---

func (s *SQLiteStore) CreateTheme(ctx context.Context, t *model.Theme) error {
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

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO themes (id, name, pillar, sector, description, keywords, in_scope, out_of_scope, business_model, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Pillar, t.Sector, t.Description, string(keywords), string(inScope), string(outScope), t.BusinessModel, t.CreatedAt, t.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: insert theme")
}

func (s *SQLiteStore) GetTheme(ctx context.Context, id string) (*model.Theme, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, pillar, sector, description, keywords, in_scope, out_of_scope, business_model, created_at, updated_at
		 FROM themes WHERE id = ?`, id)
	t, err := scanSQLiteTheme(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get theme %s", id)
	}
	return t, nil
}

func (s *SQLiteStore) ListThemes(ctx context.Context) ([]model.Theme, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, pillar, sector, description, keywords, in_scope, out_of_scope, business_model, created_at, updated_at
		 FROM themes ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list themes")
	}
	defer rows.Close()

	var themes []model.Theme
	for rows.Next() {
		t, err := scanSQLiteTheme(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan theme")
		}
		themes = append(themes, *t)
	}
	return themes, eris.Wrap(rows.Err(), "sqlite: list themes iterate")
}

func scanSQLiteTheme(row rowScanner) (*model.Theme, error) {
	var t model.Theme
	var keywords, inScope, outScope sql.NullString
	if err := row.Scan(&t.ID, &t.Name, &t.Pillar, &t.Sector, &t.Description,
		&keywords, &inScope, &outScope, &t.BusinessModel, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	for _, pair := range []struct {
		raw sql.NullString
		dst *[]string
	}{
		{keywords, &t.Keywords},
		{inScope, &t.InScope},
		{outScope, &t.OutOfScope},
	} {
		if pair.raw.Valid && pair.raw.String != "" {
			if err := json.Unmarshal([]byte(pair.raw.String), pair.dst); err != nil {
				return nil, eris.Wrap(err, "unmarshal theme list")
			}
		}
	}
	return &t, nil
}

// --- Scores ---

func (s *SQLiteStore) UpsertScore(ctx context.Context, sc *model.DetailedScore) error {
	if sc.ID == "" {
		sc.ID = uuid.New().String()
	}
	sc.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO detailed_scores (id, theme_id, criterion_id, value, confidence, notes, update_source, updated_by, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(theme_id, criterion_id) DO UPDATE SET
			value = excluded.value, confidence = excluded.confidence, notes = excluded.notes,
			update_source = excluded.update_source, updated_by = excluded.updated_by, updated_at = excluded.updated_at`,
		sc.ID, sc.ThemeID, sc.CriterionID, sc.Value, nullable(string(sc.Confidence)), sc.Notes, string(sc.UpdateSource), sc.UpdatedBy, sc.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: upsert score %s/%s", sc.ThemeID, sc.CriterionID)
}

func (s *SQLiteStore) BulkUpsertScores(ctx context.Context, scores []model.DetailedScore) (int, error) {
	if len(scores) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: bulk upsert begin")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO detailed_scores (id, theme_id, criterion_id, value, confidence, notes, update_source, updated_by, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(theme_id, criterion_id) DO UPDATE SET
			value = excluded.value, confidence = excluded.confidence, notes = excluded.notes,
			update_source = excluded.update_source, updated_by = excluded.updated_by, updated_at = excluded.updated_at`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: bulk upsert prepare")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	saved := 0
	for _, sc := range scores {
		id := sc.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := stmt.ExecContext(ctx, id, sc.ThemeID, sc.CriterionID, sc.Value,
			nullable(string(sc.Confidence)), sc.Notes, string(sc.UpdateSource), sc.UpdatedBy, now); err != nil {
			return 0, eris.Wrapf(err, "sqlite: bulk upsert score %s/%s", sc.ThemeID, sc.CriterionID)
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: bulk upsert commit")
	}
	return saved, nil
}

func (s *SQLiteStore) ListScores(ctx context.Context, themeID string) ([]model.DetailedScore, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, theme_id, criterion_id, value, confidence, notes, update_source, updated_by, updated_at
		 FROM detailed_scores WHERE theme_id = ?`, themeID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list scores")
	}
	defer rows.Close()

	var scores []model.DetailedScore
	for rows.Next() {
		var sc model.DetailedScore
		var confidence sql.NullString
		if err := rows.Scan(&sc.ID, &sc.ThemeID, &sc.CriterionID, &sc.Value, &confidence, &sc.Notes, &sc.UpdateSource, &sc.UpdatedBy, &sc.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan score")
		}
		if confidence.Valid {
			sc.Confidence = model.Confidence(confidence.String)
		}
		scores = append(scores, sc)
	}
	return scores, eris.Wrap(rows.Err(), "sqlite: list scores iterate")
}

// --- Companies ---

func (s *SQLiteStore) CreateCompany(ctx context.Context, c *model.Company) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.ClassificationStatus == "" {
		c.ClassificationStatus = model.ClassificationPending
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO companies (id, name, normalized_name, website, business_description, classification_status, classification_error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.NormalizedName, c.Website, c.BusinessDescription, string(c.ClassificationStatus), c.ClassificationError, c.CreatedAt, c.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: insert company")
}

func (s *SQLiteStore) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	var c model.Company
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, normalized_name, website, business_description, classification_status, classification_error, created_at, updated_at
		 FROM companies WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.NormalizedName, &c.Website, &c.BusinessDescription, &c.ClassificationStatus, &c.ClassificationError, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get company %s", id)
	}
	return &c, nil
}

// FindCompanyByNormalizedName returns the oldest company row matching the
// normalized name, or nil when none exists.
func (s *SQLiteStore) FindCompanyByNormalizedName(ctx context.Context, normalized string) (*model.Company, error) {
	var c model.Company
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, normalized_name, website, business_description, classification_status, classification_error, created_at, updated_at
		 FROM companies WHERE normalized_name = ? ORDER BY created_at LIMIT 1`, normalized,
	).Scan(&c.ID, &c.Name, &c.NormalizedName, &c.Website, &c.BusinessDescription, &c.ClassificationStatus, &c.ClassificationError, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: find company by normalized name %s", normalized)
	}
	return &c, nil
}

func (s *SQLiteStore) UpdateCompanyStatus(ctx context.Context, id string, status model.ClassificationStatus, classificationError string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE companies SET classification_status = ?, classification_error = ?, updated_at = ? WHERE id = ?`,
		string(status), classificationError, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update company status %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("company not found: %s", id)
	}
	return nil
}

// --- Theme mappings ---

func (s *SQLiteStore) GetThemeMapping(ctx context.Context, companyID string) (*model.ThemeMapping, error) {
	var m model.ThemeMapping
	err := s.db.QueryRowContext(ctx,
		`SELECT id, company_id, theme_id, theme_name, pillar, sector, business_model, confidence_score, rationale, verification_passed, research_summary, created_at
		 FROM company_theme_mappings WHERE company_id = ?`, companyID,
	).Scan(&m.ID, &m.CompanyID, &m.ThemeID, &m.ThemeName, &m.Pillar, &m.Sector, &m.BusinessModel,
		&m.ConfidenceScore, &m.Rationale, &m.VerificationPassed, &m.ResearchSummary, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get theme mapping %s", companyID)
	}
	return &m, nil
}

func (s *SQLiteStore) InsertThemeMappingIfAbsent(ctx context.Context, m *model.ThemeMapping) (*model.ThemeMapping, bool, error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO company_theme_mappings (id, company_id, theme_id, theme_name, pillar, sector, business_model, confidence_score, rationale, verification_passed, research_summary, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(company_id) DO NOTHING`,
		m.ID, m.CompanyID, m.ThemeID, m.ThemeName, m.Pillar, m.Sector, m.BusinessModel,
		m.ConfidenceScore, m.Rationale, m.VerificationPassed, m.ResearchSummary, m.CreatedAt,
	)
	if err != nil {
		return nil, false, eris.Wrapf(err, "sqlite: insert theme mapping %s", m.CompanyID)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return m, true, nil
	}

	existing, err := s.GetThemeMapping(ctx, m.CompanyID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, eris.Errorf("sqlite: mapping conflict but none found for company %s", m.CompanyID)
	}
	return existing, false, nil
}

// --- Regulations ---

func (s *SQLiteStore) CreateRegulation(ctx context.Context, r *model.Regulation) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = model.RegulationProposed
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO regulations (id, title, jurisdiction, status, summary, source_url, effective_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Title, r.Jurisdiction, string(r.Status), r.Summary, r.SourceURL, r.EffectiveDate, r.CreatedAt, r.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: insert regulation")
}

func (s *SQLiteStore) ListRegulations(ctx context.Context) ([]model.Regulation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, jurisdiction, status, summary, source_url, effective_date, created_at, updated_at
		 FROM regulations ORDER BY created_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list regulations")
	}
	defer rows.Close()
	return scanSQLiteRegulations(rows)
}

func (s *SQLiteStore) LinkRegulation(ctx context.Context, themeID, regulationID, relevance string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO theme_regulations (theme_id, regulation_id, relevance, linked_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(theme_id, regulation_id) DO UPDATE SET relevance = excluded.relevance`,
		themeID, regulationID, relevance, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: link regulation %s to theme %s", regulationID, themeID)
}

func (s *SQLiteStore) ListThemeRegulations(ctx context.Context, themeID string) ([]model.Regulation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.title, r.jurisdiction, r.status, r.summary, r.source_url, r.effective_date, r.created_at, r.updated_at
		 FROM regulations r JOIN theme_regulations tr ON tr.regulation_id = r.id
		 WHERE tr.theme_id = ? ORDER BY tr.linked_at DESC`, themeID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list theme regulations")
	}
	defer rows.Close()
	return scanSQLiteRegulations(rows)
}

func scanSQLiteRegulations(rows *sql.Rows) ([]model.Regulation, error) {
	var regs []model.Regulation
	for rows.Next() {
		var r model.Regulation
		if err := rows.Scan(&r.ID, &r.Title, &r.Jurisdiction, &r.Status, &r.Summary, &r.SourceURL, &r.EffectiveDate, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan regulation")
		}
		regs = append(regs, r)
	}
	return regs, eris.Wrap(rows.Err(), "sqlite: regulations iterate")
}

// --- Research documents ---

func (s *SQLiteStore) CreateDocument(ctx context.Context, d *model.ResearchDocument) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO research_documents (id, theme_id, title, file_name, storage_path, mime_type, size_bytes, uploaded_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ThemeID, d.Title, d.FileName, d.StoragePath, d.MimeType, d.SizeBytes, d.UploadedBy, d.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert document")
}

func (s *SQLiteStore) ListDocuments(ctx context.Context, themeID string) ([]model.ResearchDocument, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, theme_id, title, file_name, storage_path, mime_type, size_bytes, uploaded_by, created_at
		 FROM research_documents WHERE theme_id = ? ORDER BY created_at DESC`, themeID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list documents")
	}
	defer rows.Close()

	var docs []model.ResearchDocument
	for rows.Next() {
		var d model.ResearchDocument
		if err := rows.Scan(&d.ID, &d.ThemeID, &d.Title, &d.FileName, &d.StoragePath, &d.MimeType, &d.SizeBytes, &d.UploadedBy, &d.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan document")
		}
		docs = append(docs, d)
	}
	return docs, eris.Wrap(rows.Err(), "sqlite: documents iterate")
}

// --- Signals ---

func (s *SQLiteStore) InsertSignal(ctx context.Context, sig *model.Signal) (bool, error) {
	if sig.ID == "" {
		sig.ID = uuid.New().String()
	}
	sig.IngestedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO signals (id, title, url, source, summary, theme_id, published_at, ingested_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO NOTHING`,
		sig.ID, sig.Title, sig.URL, sig.Source, sig.Summary, nullable(sig.ThemeID), sig.PublishedAt, sig.IngestedAt,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: insert signal %s", sig.URL)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLiteStore) ListSignals(ctx context.Context, filter SignalFilter) ([]model.Signal, error) {
	query := `SELECT id, title, url, source, summary, theme_id, published_at, ingested_at FROM signals WHERE 1=1`
	var args []any
	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, filter.Source)
	}
	if filter.ThemeID != "" {
		query += ` AND theme_id = ?`
		args = append(args, filter.ThemeID)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` ORDER BY ingested_at DESC LIMIT ` + strconv.Itoa(limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list signals")
	}
	defer rows.Close()

	var signals []model.Signal
	for rows.Next() {
		var sig model.Signal
		var themeID sql.NullString
		if err := rows.Scan(&sig.ID, &sig.Title, &sig.URL, &sig.Source, &sig.Summary, &themeID, &sig.PublishedAt, &sig.IngestedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan signal")
		}
		if themeID.Valid {
			sig.ThemeID = themeID.String
		}
		signals = append(signals, sig)
	}
	return signals, eris.Wrap(rows.Err(), "sqlite: signals iterate")
}

// --- Research runs ---

func (s *SQLiteStore) CreateResearchRun(ctx context.Context, r *model.ResearchRun) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = model.RunStatusQueued
	}
	r.StartedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO research_runs (id, theme_id, status, triggered_by, error, scores_saved, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ThemeID, string(r.Status), r.TriggeredBy, r.Error, r.ScoresSaved, r.StartedAt,
	)
	return eris.Wrap(err, "sqlite: insert research run")
}

func (s *SQLiteStore) GetResearchRun(ctx context.Context, id string) (*model.ResearchRun, error) {
	var r model.ResearchRun
	err := s.db.QueryRowContext(ctx,
		`SELECT id, theme_id, status, triggered_by, error, scores_saved, started_at, completed_at
		 FROM research_runs WHERE id = ?`, id,
	).Scan(&r.ID, &r.ThemeID, &r.Status, &r.TriggeredBy, &r.Error, &r.ScoresSaved, &r.StartedAt, &r.CompletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get research run %s", id)
	}
	return &r, nil
}

func (s *SQLiteStore) CompleteResearchRun(ctx context.Context, id string, status model.RunStatus, scoresSaved int, runErr string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE research_runs SET status = ?, scores_saved = ?, error = ?, completed_at = ? WHERE id = ?`,
		string(status), scoresSaved, runErr, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete research run %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("research run not found: %s", id)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
