package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tpeters15/theme-score-nexus/internal/classify"
	"github.com/tpeters15/theme-score-nexus/internal/config"
	"github.com/tpeters15/theme-score-nexus/internal/docstore"
	"github.com/tpeters15/theme-score-nexus/internal/model"
	"github.com/tpeters15/theme-score-nexus/pkg/anthropic"
)

func newTestServer(t *testing.T, st *memStore, classifier *classify.Classifier) *httptest.Server {
	t.Helper()
	docs, err := docstore.New(t.TempDir())
	require.NoError(t, err)
	srv := NewServer(st, docs, classifier, config.ServerConfig{AllowedOrigins: []string{"*"}})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var r *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	} else {
		r = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func seedTheme(t *testing.T, st *memStore, name string) *model.Theme {
	t.Helper()
	theme := &model.Theme{Name: name, Pillar: "Energy Transition"}
	require.NoError(t, st.CreateTheme(context.Background(), theme))
	return theme
}

func seedFramework(t *testing.T, st *memStore) []model.Category {
	t.Helper()
	cats := []model.Category{
		{ID: "market", Name: "Market", Weight: 60, Criteria: []model.Criterion{
			{ID: "size", CategoryID: "market", Name: "Size", Weight: 60},
			{ID: "growth", CategoryID: "market", Name: "Growth", Weight: 40},
		}},
		{ID: "risk", Name: "Risk", Weight: 40, Criteria: []model.Criterion{
			{ID: "regulatory", CategoryID: "risk", Name: "Regulatory", Weight: 100},
		}},
	}
	require.NoError(t, st.SeedFramework(context.Background(), cats))
	return cats
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, newMemStore(), nil)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestCreateAndGetTheme(t *testing.T) {
	st := newMemStore()
	seedFramework(t, st)
	ts := newTestServer(t, st, nil)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/themes", map[string]any{
		"name":   "Heat Pumps",
		"pillar": "Decarbonisation",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[model.Theme](t, resp)
	require.NotEmpty(t, created.ID)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/themes/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	detail := decode[themeDetail](t, resp)
	assert.Equal(t, "Heat Pumps", detail.Theme.Name)
	assert.False(t, detail.Scoring.Analyzed, "theme with no scores is not analyzed")
	assert.Len(t, detail.Framework, 2)
}

func TestCreateTheme_Invalid(t *testing.T) {
	ts := newTestServer(t, newMemStore(), nil)
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/themes", map[string]any{"pillar": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestGetTheme_NotFound(t *testing.T) {
	ts := newTestServer(t, newMemStore(), nil)
	resp, err := http.Get(ts.URL + "/api/themes/nope")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestUpsertScore_AndAggregate(t *testing.T) {
	st := newMemStore()
	seedFramework(t, st)
	theme := seedTheme(t, st, "Grid Flexibility")
	ts := newTestServer(t, st, nil)

	resp := doJSON(t, http.MethodPut, ts.URL+"/api/themes/"+theme.ID+"/scores/size", map[string]any{
		"value":      60,
		"confidence": "High",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPut, ts.URL+"/api/themes/"+theme.ID+"/scores/growth", map[string]any{
		"value":      80,
		"confidence": "High",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/themes/"+theme.ID, nil)
	detail := decode[themeDetail](t, resp)
	require.True(t, detail.Scoring.Analyzed)
	// market = 60*0.6 + 80*0.4 = 68; risk unscored so theme total = 68.
	assert.InDelta(t, 68, detail.Scoring.Total, 1e-9)
	assert.Equal(t, model.ConfidenceHigh, detail.Scoring.Confidence)
}

func TestUpsertScore_Validation(t *testing.T) {
	st := newMemStore()
	seedFramework(t, st)
	theme := seedTheme(t, st, "Theme")
	ts := newTestServer(t, st, nil)

	resp := doJSON(t, http.MethodPut, ts.URL+"/api/themes/"+theme.ID+"/scores/size", map[string]any{"value": 140})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPut, ts.URL+"/api/themes/"+theme.ID+"/scores/size", map[string]any{"value": 50, "confidence": "certain"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPut, ts.URL+"/api/themes/missing/scores/size", map[string]any{"value": 50})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestUpsertScore_UnknownCriterion(t *testing.T) {
	st := newMemStore()
	seedFramework(t, st)
	theme := seedTheme(t, st, "Theme")
	ts := newTestServer(t, st, nil)

	resp := doJSON(t, http.MethodPut, ts.URL+"/api/themes/"+theme.ID+"/scores/not-a-criterion", map[string]any{"value": 50})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	scores, err := st.ListScores(context.Background(), theme.ID)
	require.NoError(t, err)
	assert.Empty(t, scores, "no score row for a criterion outside the framework")
}

func TestBulkScores_PartialSave(t *testing.T) {
	st := newMemStore()
	seedFramework(t, st)
	theme := seedTheme(t, st, "Theme")
	ts := newTestServer(t, st, nil)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/themes/"+theme.ID+"/scores", map[string]any{
		"updated_by": "analyst",
		"scores": []map[string]any{
			{"criterion_id": "size", "value": 70},
			{"criterion_id": "growth", "value": 200},
			{"criterion_id": "", "value": 50},
			{"criterion_id": "retired-criterion", "value": 50},
			{"criterion_id": "regulatory", "value": 30, "confidence": "Low"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[bulkScoreResponse](t, resp)
	assert.Equal(t, 5, body.Attempted)
	assert.Equal(t, 2, body.Saved)
	require.Len(t, body.Rejected, 3)
	assert.Contains(t, body.Rejected, "retired-criterion: unknown criterion")

	scores, err := st.ListScores(context.Background(), theme.ID)
	require.NoError(t, err)
	assert.Len(t, scores, 2)
	for _, sc := range scores {
		assert.Equal(t, model.SourceBulkManual, sc.UpdateSource)
	}
}

func TestRegulations_CreateLinkList(t *testing.T) {
	st := newMemStore()
	theme := seedTheme(t, st, "Theme")
	ts := newTestServer(t, st, nil)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/regulations", map[string]any{
		"title":        "EPBD recast",
		"jurisdiction": "EU",
		"status":       "adopted",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	reg := decode[model.Regulation](t, resp)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/themes/"+theme.ID+"/regulations/"+reg.ID, map[string]any{
		"relevance": "renovation mandates drive demand",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/themes/"+theme.ID+"/regulations", nil)
	linked := decode[[]model.Regulation](t, resp)
	require.Len(t, linked, 1)
	assert.Equal(t, "EPBD recast", linked[0].Title)
}

func TestRegulations_InvalidStatus(t *testing.T) {
	ts := newTestServer(t, newMemStore(), nil)
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/regulations", map[string]any{
		"title":  "X",
		"status": "imaginary",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func uploadFile(t *testing.T, url, field, name string, content []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("title", "Market Study"))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestUploadDocument(t *testing.T) {
	st := newMemStore()
	theme := seedTheme(t, st, "Theme")
	ts := newTestServer(t, st, nil)

	pdf := []byte("%PDF-1.7\nhello")
	resp := uploadFile(t, ts.URL+"/api/themes/"+theme.ID+"/documents", "file", "study.pdf", pdf)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	doc := decode[model.ResearchDocument](t, resp)
	assert.Equal(t, "Market Study", doc.Title)
	assert.Equal(t, "application/pdf", doc.MimeType)
	assert.Equal(t, int64(len(pdf)), doc.SizeBytes)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/themes/"+theme.ID+"/documents", nil)
	docs := decode[[]model.ResearchDocument](t, resp)
	assert.Len(t, docs, 1)
}

func TestUploadDocument_RejectsBadType(t *testing.T) {
	st := newMemStore()
	theme := seedTheme(t, st, "Theme")
	ts := newTestServer(t, st, nil)

	resp := uploadFile(t, ts.URL+"/api/themes/"+theme.ID+"/documents", "file", "tool.pdf", []byte("\x7fELF\x02\x01\x01"))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()
}

func TestSignals_CreateAndList(t *testing.T) {
	st := newMemStore()
	ts := newTestServer(t, st, nil)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/signals", map[string]any{
		"title": "CfD auction results", "url": "https://news.example/cfd", "source": "rss",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Same URL again is a no-op.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/signals", map[string]any{
		"title": "dup", "url": "https://news.example/cfd",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, false, body["inserted"])

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/signals?source=rss", nil)
	signals := decode[[]model.Signal](t, resp)
	require.Len(t, signals, 1)
	assert.Equal(t, "CfD auction results", signals[0].Title)
}

func TestResearchRun_Lifecycle(t *testing.T) {
	st := newMemStore()
	seedFramework(t, st)
	theme := seedTheme(t, st, "Theme")
	ts := newTestServer(t, st, nil)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/themes/"+theme.ID+"/research-runs", map[string]any{
		"triggered_by": "analyst",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	run := decode[model.ResearchRun](t, resp)
	assert.Equal(t, model.RunStatusQueued, run.Status)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/research-runs/"+run.ID+"/callback", map[string]any{
		"status": "complete",
		"scores": []map[string]any{
			{"criterion_id": "size", "value": 75, "confidence": "Medium"},
			{"criterion_id": "bogus", "value": 999},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cb := decode[map[string]any](t, resp)
	assert.Equal(t, float64(1), cb["scores_saved"])

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/research-runs/"+run.ID, nil)
	got := decode[model.ResearchRun](t, resp)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Equal(t, 1, got.ScoresSaved)

	scores, err := st.ListScores(context.Background(), theme.ID)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, model.SourceAIResearch, scores[0].UpdateSource)

	// A second callback conflicts.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/research-runs/"+run.ID+"/callback", map[string]any{"status": "complete"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestClassify_NotConfigured(t *testing.T) {
	ts := newTestServer(t, newMemStore(), nil)
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/classify", map[string]any{"company_name": "WarmCo"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp.Body.Close()
}

type staticAI struct{ text string }

func (a *staticAI) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	return &anthropic.MessageResponse{ID: "msg", Text: a.text}, nil
}

func TestClassify_EndToEnd(t *testing.T) {
	st := newMemStore()
	theme := seedTheme(t, st, "Heat Pumps")

	cfg := &config.Config{
		Anthropic: config.AnthropicConfig{Key: "k", Model: "claude-test"},
		Classify:  config.ClassifyConfig{VerificationPenalty: 0.70, NoWebsitePenalty: 0.90},
	}
	ai := &staticAI{text: fmt.Sprintf(`{"theme_id": %q, "confidence": 0.95, "rationale": "installer", "business_model": "services"}`, theme.ID)}
	classifier := classify.New(st, nil, ai, nil, cfg)

	ts := newTestServer(t, st, classifier)
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/classify", map[string]any{"company_name": "WarmCo"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[classifyResponse](t, resp)

	require.True(t, result.Success)
	require.NotNil(t, result.Result)
	assert.Equal(t, theme.ID, result.Result.ThemeID)
	// No website evidence, so the penalty pulls 0.95 to 0.855.
	assert.InDelta(t, 0.855, result.Result.ConfidenceScore, 1e-9)
	assert.Equal(t, "high", result.ConfidenceBucket)
	assert.True(t, result.VerificationPassed)
	assert.Equal(t, string(model.ClassificationCompleted), result.Status)
	assert.True(t, strings.Contains(strings.Join(result.StagesUsed, ","), "classify"))
}

func TestClassify_BadRequest(t *testing.T) {
	st := newMemStore()
	cfg := &config.Config{Classify: config.ClassifyConfig{VerificationPenalty: 0.7, NoWebsitePenalty: 0.9}}
	classifier := classify.New(st, nil, &staticAI{}, nil, cfg)
	ts := newTestServer(t, st, classifier)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/classify", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
