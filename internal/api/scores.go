package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tpeters15/theme-score-nexus/internal/model"
	"github.com/tpeters15/theme-score-nexus/internal/scoring"
)

// knownCriteria returns the set of criterion IDs in the scoring framework, so
// handlers can reject scores for criteria that do not exist instead of letting
// the write fail downstream.
func (s *Server) knownCriteria(ctx context.Context) (map[string]bool, error) {
	cats, err := s.store.ListFramework(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool)
	for _, cat := range cats {
		for _, cr := range cat.Criteria {
			ids[cr.ID] = true
		}
	}
	return ids, nil
}

type scoreRequest struct {
	Value      float64          `json:"value"`
	Confidence model.Confidence `json:"confidence,omitempty"`
	Notes      string           `json:"notes,omitempty"`
	UpdatedBy  string           `json:"updated_by,omitempty"`
}

func (s *Server) handleUpsertScore(w http.ResponseWriter, r *http.Request) {
	themeID := chi.URLParam(r, "themeID")
	criterionID := chi.URLParam(r, "criterionID")

	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := scoring.ValidateValue(req.Value); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Confidence != "" && !req.Confidence.Valid() {
		writeError(w, http.StatusBadRequest, "confidence must be High, Medium or Low")
		return
	}

	theme, err := s.store.GetTheme(r.Context(), themeID)
	if err != nil {
		internalError(w, r, err)
		return
	}
	if theme == nil {
		writeError(w, http.StatusNotFound, "theme not found")
		return
	}
	criteria, err := s.knownCriteria(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	if !criteria[criterionID] {
		writeError(w, http.StatusNotFound, "criterion not found")
		return
	}

	sc := &model.DetailedScore{
		ThemeID:      themeID,
		CriterionID:  criterionID,
		Value:        req.Value,
		Confidence:   req.Confidence,
		Notes:        req.Notes,
		UpdateSource: model.SourceManual,
		UpdatedBy:    req.UpdatedBy,
	}
	if err := s.store.UpsertScore(r.Context(), sc); err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

type bulkScoreRequest struct {
	Scores    []bulkScoreItem `json:"scores"`
	UpdatedBy string          `json:"updated_by,omitempty"`
}

type bulkScoreItem struct {
	CriterionID string           `json:"criterion_id"`
	Value       float64          `json:"value"`
	Confidence  model.Confidence `json:"confidence,omitempty"`
	Notes       string           `json:"notes,omitempty"`
}

type bulkScoreResponse struct {
	Saved     int      `json:"saved"`
	Attempted int      `json:"attempted"`
	Rejected  []string `json:"rejected,omitempty"`
}

// handleBulkScores saves a batch of manual scores. Invalid entries are
// rejected individually; the valid remainder is saved in one upsert.
func (s *Server) handleBulkScores(w http.ResponseWriter, r *http.Request) {
	themeID := chi.URLParam(r, "themeID")

	var req bulkScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Scores) == 0 {
		writeError(w, http.StatusBadRequest, "scores is required")
		return
	}

	theme, err := s.store.GetTheme(r.Context(), themeID)
	if err != nil {
		internalError(w, r, err)
		return
	}
	if theme == nil {
		writeError(w, http.StatusNotFound, "theme not found")
		return
	}
	criteria, err := s.knownCriteria(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}

	resp := bulkScoreResponse{Attempted: len(req.Scores)}
	var valid []model.DetailedScore
	for _, item := range req.Scores {
		if item.CriterionID == "" {
			resp.Rejected = append(resp.Rejected, "missing criterion_id")
			continue
		}
		if !criteria[item.CriterionID] {
			resp.Rejected = append(resp.Rejected, item.CriterionID+": unknown criterion")
			continue
		}
		if err := scoring.ValidateValue(item.Value); err != nil {
			resp.Rejected = append(resp.Rejected, item.CriterionID+": "+err.Error())
			continue
		}
		if item.Confidence != "" && !item.Confidence.Valid() {
			resp.Rejected = append(resp.Rejected, item.CriterionID+": invalid confidence")
			continue
		}
		valid = append(valid, model.DetailedScore{
			ThemeID:      themeID,
			CriterionID:  item.CriterionID,
			Value:        item.Value,
			Confidence:   item.Confidence,
			Notes:        item.Notes,
			UpdateSource: model.SourceBulkManual,
			UpdatedBy:    req.UpdatedBy,
		})
	}

	if len(valid) > 0 {
		saved, err := s.store.BulkUpsertScores(r.Context(), valid)
		if err != nil {
			internalError(w, r, err)
			return
		}
		resp.Saved = saved
	}
	writeJSON(w, http.StatusOK, resp)
}
