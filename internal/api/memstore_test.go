package api

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/tpeters15/theme-score-nexus/internal/model"
	"github.com/tpeters15/theme-score-nexus/internal/store"
)

// memStore is an in-memory store.Store for handler tests.
type memStore struct {
	mu         sync.Mutex
	framework  []model.Category
	themes     map[string]*model.Theme
	scores     map[string]map[string]*model.DetailedScore // themeID → criterionID → score
	companies  map[string]*model.Company
	mappings   map[string]*model.ThemeMapping
	regs       map[string]*model.Regulation
	links      map[string][]model.ThemeRegulation // themeID → links
	documents  map[string][]model.ResearchDocument
	signals    map[string]*model.Signal // by URL
	runs       map[string]*model.ResearchRun
}

func newMemStore() *memStore {
	return &memStore{
		themes:    map[string]*model.Theme{},
		scores:    map[string]map[string]*model.DetailedScore{},
		companies: map[string]*model.Company{},
		mappings:  map[string]*model.ThemeMapping{},
		regs:      map[string]*model.Regulation{},
		links:     map[string][]model.ThemeRegulation{},
		documents: map[string][]model.ResearchDocument{},
		signals:   map[string]*model.Signal{},
		runs:      map[string]*model.ResearchRun{},
	}
}

func (m *memStore) ListFramework(context.Context) ([]model.Category, error) {
	return m.framework, nil
}

func (m *memStore) SeedFramework(_ context.Context, cats []model.Category) error {
	m.framework = cats
	return nil
}

func (m *memStore) CreateTheme(_ context.Context, t *model.Theme) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	m.themes[t.ID] = t
	return nil
}

func (m *memStore) GetTheme(_ context.Context, id string) (*model.Theme, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.themes[id], nil
}

func (m *memStore) ListThemes(context.Context) ([]model.Theme, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Theme
	for _, t := range m.themes {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) UpsertScore(_ context.Context, s *model.DetailedScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s.UpdatedAt = time.Now().UTC()
	if m.scores[s.ThemeID] == nil {
		m.scores[s.ThemeID] = map[string]*model.DetailedScore{}
	}
	m.scores[s.ThemeID][s.CriterionID] = s
	return nil
}

func (m *memStore) BulkUpsertScores(ctx context.Context, scores []model.DetailedScore) (int, error) {
	for i := range scores {
		if err := m.UpsertScore(ctx, &scores[i]); err != nil {
			return i, err
		}
	}
	return len(scores), nil
}

func (m *memStore) ListScores(_ context.Context, themeID string) ([]model.DetailedScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.DetailedScore
	for _, s := range m.scores[themeID] {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CriterionID < out[j].CriterionID })
	return out, nil
}

func (m *memStore) CreateCompany(_ context.Context, c *model.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.ClassificationStatus == "" {
		c.ClassificationStatus = model.ClassificationPending
	}
	m.companies[c.ID] = c
	return nil
}

func (m *memStore) GetCompany(_ context.Context, id string) (*model.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.companies[id], nil
}

func (m *memStore) FindCompanyByNormalizedName(_ context.Context, normalized string) (*model.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.companies {
		if c.NormalizedName == normalized {
			return c, nil
		}
	}
	return nil, nil
}

func (m *memStore) UpdateCompanyStatus(_ context.Context, id string, status model.ClassificationStatus, cerr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok {
		return eris.Errorf("company not found: %s", id)
	}
	c.ClassificationStatus = status
	c.ClassificationError = cerr
	return nil
}

func (m *memStore) GetThemeMapping(_ context.Context, companyID string) (*model.ThemeMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mappings[companyID], nil
}

func (m *memStore) InsertThemeMappingIfAbsent(_ context.Context, tm *model.ThemeMapping) (*model.ThemeMapping, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.mappings[tm.CompanyID]; ok {
		return existing, false, nil
	}
	if tm.ID == "" {
		tm.ID = uuid.New().String()
	}
	m.mappings[tm.CompanyID] = tm
	return tm, true, nil
}

func (m *memStore) CreateRegulation(_ context.Context, r *model.Regulation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = model.RegulationProposed
	}
	m.regs[r.ID] = r
	return nil
}

func (m *memStore) ListRegulations(context.Context) ([]model.Regulation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Regulation
	for _, r := range m.regs {
		out = append(out, *r)
	}
	return out, nil
}

func (m *memStore) LinkRegulation(_ context.Context, themeID, regulationID, relevance string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.links[themeID] {
		if l.RegulationID == regulationID {
			m.links[themeID][i].Relevance = relevance
			return nil
		}
	}
	m.links[themeID] = append(m.links[themeID], model.ThemeRegulation{
		ThemeID: themeID, RegulationID: regulationID, Relevance: relevance, LinkedAt: time.Now().UTC(),
	})
	return nil
}

func (m *memStore) ListThemeRegulations(_ context.Context, themeID string) ([]model.Regulation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Regulation
	for _, l := range m.links[themeID] {
		if r, ok := m.regs[l.RegulationID]; ok {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memStore) CreateDocument(_ context.Context, d *model.ResearchDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d.CreatedAt = time.Now().UTC()
	m.documents[d.ThemeID] = append(m.documents[d.ThemeID], *d)
	return nil
}

func (m *memStore) ListDocuments(_ context.Context, themeID string) ([]model.ResearchDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.documents[themeID], nil
}

func (m *memStore) InsertSignal(_ context.Context, s *model.Signal) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.signals[s.URL]; ok {
		return false, nil
	}
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s.IngestedAt = time.Now().UTC()
	m.signals[s.URL] = s
	return true, nil
}

func (m *memStore) ListSignals(_ context.Context, filter store.SignalFilter) ([]model.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Signal
	for _, s := range m.signals {
		if filter.Source != "" && s.Source != filter.Source {
			continue
		}
		if filter.ThemeID != "" && s.ThemeID != filter.ThemeID {
			continue
		}
		out = append(out, *s)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memStore) CreateResearchRun(_ context.Context, r *model.ResearchRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = model.RunStatusQueued
	}
	r.StartedAt = time.Now().UTC()
	m.runs[r.ID] = r
	return nil
}

func (m *memStore) GetResearchRun(_ context.Context, id string) (*model.ResearchRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs[id], nil
}

func (m *memStore) CompleteResearchRun(_ context.Context, id string, status model.RunStatus, scoresSaved int, runErr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return eris.Errorf("research run not found: %s", id)
	}
	now := time.Now().UTC()
	r.Status = status
	r.ScoresSaved = scoresSaved
	r.Error = runErr
	r.CompletedAt = &now
	return nil
}

func (m *memStore) Migrate(context.Context) error { return nil }
func (m *memStore) Close() error                  { return nil }
