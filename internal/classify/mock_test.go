package classify

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/tpeters15/theme-score-nexus/internal/model"
	"github.com/tpeters15/theme-score-nexus/internal/store"
	"github.com/tpeters15/theme-score-nexus/pkg/anthropic"
	"github.com/tpeters15/theme-score-nexus/pkg/firecrawl"
	"github.com/tpeters15/theme-score-nexus/pkg/perplexity"
)

// fakeStore is an in-memory store.Store covering what the pipeline touches.
type fakeStore struct {
	mu        sync.Mutex
	themes    []model.Theme
	companies map[string]*model.Company
	mappings  map[string]*model.ThemeMapping
}

func newFakeStore(themes ...model.Theme) *fakeStore {
	return &fakeStore{
		themes:    themes,
		companies: map[string]*model.Company{},
		mappings:  map[string]*model.ThemeMapping{},
	}
}

func (f *fakeStore) ListThemes(ctx context.Context) ([]model.Theme, error) {
	return f.themes, nil
}

func (f *fakeStore) CreateCompany(ctx context.Context, c *model.Company) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.ClassificationStatus == "" {
		c.ClassificationStatus = model.ClassificationPending
	}
	f.companies[c.ID] = c
	return nil
}

func (f *fakeStore) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.companies[id], nil
}

func (f *fakeStore) FindCompanyByNormalizedName(ctx context.Context, normalized string) (*model.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.companies {
		if c.NormalizedName == normalized {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) UpdateCompanyStatus(ctx context.Context, id string, status model.ClassificationStatus, classificationError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.companies[id]
	if !ok {
		return eris.Errorf("company not found: %s", id)
	}
	c.ClassificationStatus = status
	c.ClassificationError = classificationError
	return nil
}

func (f *fakeStore) GetThemeMapping(ctx context.Context, companyID string) (*model.ThemeMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mappings[companyID], nil
}

func (f *fakeStore) InsertThemeMappingIfAbsent(ctx context.Context, m *model.ThemeMapping) (*model.ThemeMapping, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.mappings[m.CompanyID]; ok {
		return existing, false, nil
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	f.mappings[m.CompanyID] = m
	return m, true, nil
}

// Unused Store methods.

func (f *fakeStore) ListFramework(context.Context) ([]model.Category, error) { return nil, nil }
func (f *fakeStore) SeedFramework(context.Context, []model.Category) error   { return nil }
func (f *fakeStore) CreateTheme(context.Context, *model.Theme) error         { return nil }
func (f *fakeStore) GetTheme(context.Context, string) (*model.Theme, error)  { return nil, nil }
func (f *fakeStore) UpsertScore(context.Context, *model.DetailedScore) error { return nil }
func (f *fakeStore) BulkUpsertScores(context.Context, []model.DetailedScore) (int, error) {
	return 0, nil
}
func (f *fakeStore) ListScores(context.Context, string) ([]model.DetailedScore, error) {
	return nil, nil
}
func (f *fakeStore) CreateRegulation(context.Context, *model.Regulation) error { return nil }
func (f *fakeStore) ListRegulations(context.Context) ([]model.Regulation, error) {
	return nil, nil
}
func (f *fakeStore) LinkRegulation(context.Context, string, string, string) error { return nil }
func (f *fakeStore) ListThemeRegulations(context.Context, string) ([]model.Regulation, error) {
	return nil, nil
}
func (f *fakeStore) CreateDocument(context.Context, *model.ResearchDocument) error { return nil }
func (f *fakeStore) ListDocuments(context.Context, string) ([]model.ResearchDocument, error) {
	return nil, nil
}
func (f *fakeStore) InsertSignal(context.Context, *model.Signal) (bool, error) { return false, nil }
func (f *fakeStore) ListSignals(context.Context, store.SignalFilter) ([]model.Signal, error) {
	return nil, nil
}
func (f *fakeStore) CreateResearchRun(context.Context, *model.ResearchRun) error { return nil }
func (f *fakeStore) GetResearchRun(context.Context, string) (*model.ResearchRun, error) {
	return nil, nil
}
func (f *fakeStore) CompleteResearchRun(context.Context, string, model.RunStatus, int, string) error {
	return nil
}
func (f *fakeStore) Migrate(context.Context) error { return nil }
func (f *fakeStore) Close() error                  { return nil }

// mockScraper implements firecrawl.Client.
type mockScraper struct {
	calls int
	fn    func(req firecrawl.ScrapeRequest) (*firecrawl.ScrapeResponse, error)
}

func (m *mockScraper) Scrape(ctx context.Context, req firecrawl.ScrapeRequest) (*firecrawl.ScrapeResponse, error) {
	m.calls++
	return m.fn(req)
}

// mockAI implements anthropic.Client.
type mockAI struct {
	calls int
	fn    func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error)
}

func (m *mockAI) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	m.calls++
	return m.fn(req)
}

// mockResearcher implements perplexity.Client.
type mockResearcher struct {
	calls int
	fn    func(req perplexity.ChatCompletionRequest) (*perplexity.ChatCompletionResponse, error)
}

func (m *mockResearcher) ChatCompletion(ctx context.Context, req perplexity.ChatCompletionRequest) (*perplexity.ChatCompletionResponse, error) {
	m.calls++
	return m.fn(req)
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{ID: "msg-1", Text: text, StopReason: "end_turn"}
}

func chatResponse(content string) *perplexity.ChatCompletionResponse {
	return &perplexity.ChatCompletionResponse{
		ID:      "pplx-1",
		Choices: []perplexity.Choice{{Message: perplexity.Message{Role: "assistant", Content: content}}},
	}
}
