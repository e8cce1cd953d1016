package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tpeters15/theme-score-nexus/internal/model"
)

func (s *Server) handleCreateRegulation(w http.ResponseWriter, r *http.Request) {
	var reg model.Regulation
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if reg.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if reg.Status != "" && !reg.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}
	if err := s.store.CreateRegulation(r.Context(), &reg); err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

func (s *Server) handleListRegulations(w http.ResponseWriter, r *http.Request) {
	regs, err := s.store.ListRegulations(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	if regs == nil {
		regs = []model.Regulation{}
	}
	writeJSON(w, http.StatusOK, regs)
}

type linkRegulationRequest struct {
	Relevance string `json:"relevance,omitempty"`
}

func (s *Server) handleLinkRegulation(w http.ResponseWriter, r *http.Request) {
	themeID := chi.URLParam(r, "themeID")
	regulationID := chi.URLParam(r, "regulationID")

	var req linkRegulationRequest
	if r.Body != nil {
		// Body is optional; a bare link is fine.
		_ = json.NewDecoder(r.Body).Decode(&req)
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

	if err := s.store.LinkRegulation(r.Context(), themeID, regulationID, req.Relevance); err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"theme_id":      themeID,
		"regulation_id": regulationID,
	})
}

func (s *Server) handleListThemeRegulations(w http.ResponseWriter, r *http.Request) {
	themeID := chi.URLParam(r, "themeID")
	regs, err := s.store.ListThemeRegulations(r.Context(), themeID)
	if err != nil {
		internalError(w, r, err)
		return
	}
	if regs == nil {
		regs = []model.Regulation{}
	}
	writeJSON(w, http.StatusOK, regs)
}
