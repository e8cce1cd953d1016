package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tpeters15/theme-score-nexus/internal/model"
	"github.com/tpeters15/theme-score-nexus/internal/scoring"
)

type createRunRequest struct {
	TriggeredBy string `json:"triggered_by,omitempty"`
}

func (s *Server) handleCreateResearchRun(w http.ResponseWriter, r *http.Request) {
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

	var req createRunRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	run := &model.ResearchRun{ThemeID: themeID, TriggeredBy: req.TriggeredBy}
	if err := s.store.CreateResearchRun(r.Context(), run); err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

func (s *Server) handleGetResearchRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	run, err := s.store.GetResearchRun(r.Context(), runID)
	if err != nil {
		internalError(w, r, err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "research run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// researchCallback is posted by the external research agent when a run
// finishes. Scores use the AI research source and go through the same bulk
// upsert as manual batches.
type researchCallback struct {
	Status model.RunStatus `json:"status"`
	Error  string          `json:"error,omitempty"`
	Scores []bulkScoreItem `json:"scores,omitempty"`
}

func (s *Server) handleResearchCallback(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	run, err := s.store.GetResearchRun(r.Context(), runID)
	if err != nil {
		internalError(w, r, err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "research run not found")
		return
	}
	if run.Status == model.RunStatusComplete || run.Status == model.RunStatusFailed {
		writeError(w, http.StatusConflict, "research run already finished")
		return
	}

	var cb researchCallback
	if err := json.NewDecoder(r.Body).Decode(&cb); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if cb.Status != model.RunStatusComplete && cb.Status != model.RunStatusFailed {
		writeError(w, http.StatusBadRequest, "status must be complete or failed")
		return
	}

	saved := 0
	if cb.Status == model.RunStatusComplete && len(cb.Scores) > 0 {
		var valid []model.DetailedScore
		for _, item := range cb.Scores {
			if item.CriterionID == "" || scoring.ValidateValue(item.Value) != nil {
				continue
			}
			if item.Confidence != "" && !item.Confidence.Valid() {
				item.Confidence = ""
			}
			valid = append(valid, model.DetailedScore{
				ThemeID:      run.ThemeID,
				CriterionID:  item.CriterionID,
				Value:        item.Value,
				Confidence:   item.Confidence,
				Notes:        item.Notes,
				UpdateSource: model.SourceAIResearch,
				UpdatedBy:    "research-agent",
			})
		}
		if len(valid) > 0 {
			saved, err = s.store.BulkUpsertScores(r.Context(), valid)
			if err != nil {
				internalError(w, r, err)
				return
			}
		}
	}

	if err := s.store.CompleteResearchRun(r.Context(), runID, cb.Status, saved, cb.Error); err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":       runID,
		"status":       cb.Status,
		"scores_saved": saved,
	})
}
