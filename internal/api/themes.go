package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tpeters15/theme-score-nexus/internal/model"
	"github.com/tpeters15/theme-score-nexus/internal/scoring"
)

func (s *Server) handleListThemes(w http.ResponseWriter, r *http.Request) {
	themes, err := s.store.ListThemes(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	if themes == nil {
		themes = []model.Theme{}
	}
	writeJSON(w, http.StatusOK, themes)
}

func (s *Server) handleCreateTheme(w http.ResponseWriter, r *http.Request) {
	var theme model.Theme
	if err := json.NewDecoder(r.Body).Decode(&theme); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if theme.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := s.store.CreateTheme(r.Context(), &theme); err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, theme)
}

// themeDetail is the full scoring view of one theme: the framework, the
// stored scores, and the aggregate computed from them.
type themeDetail struct {
	Theme     model.Theme           `json:"theme"`
	Framework []model.Category      `json:"framework"`
	Scores    []model.DetailedScore `json:"scores"`
	Scoring   *scoring.Result       `json:"scoring"`
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	themeID := chi.URLParam(r, "themeID")
	theme, err := s.store.GetTheme(r.Context(), themeID)
	if err != nil {
		internalError(w, r, err)
		return
	}
	if theme == nil {
		writeError(w, http.StatusNotFound, "theme not found")
		return
	}

	framework, err := s.store.ListFramework(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	scores, err := s.store.ListScores(r.Context(), themeID)
	if err != nil {
		internalError(w, r, err)
		return
	}

	scoreMap := make(map[string]model.DetailedScore, len(scores))
	for _, sc := range scores {
		scoreMap[sc.CriterionID] = sc
	}
	result, err := scoring.Aggregate(framework, scoreMap)
	if err != nil {
		internalError(w, r, err)
		return
	}

	if scores == nil {
		scores = []model.DetailedScore{}
	}
	writeJSON(w, http.StatusOK, themeDetail{
		Theme:     *theme,
		Framework: framework,
		Scores:    scores,
		Scoring:   result,
	})
}
