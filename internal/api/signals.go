package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/tpeters15/theme-score-nexus/internal/model"
	"github.com/tpeters15/theme-score-nexus/internal/store"
)

func (s *Server) handleListSignals(w http.ResponseWriter, r *http.Request) {
	filter := store.SignalFilter{
		Source:  r.URL.Query().Get("source"),
		ThemeID: r.URL.Query().Get("theme_id"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	signals, err := s.store.ListSignals(r.Context(), filter)
	if err != nil {
		internalError(w, r, err)
		return
	}
	if signals == nil {
		signals = []model.Signal{}
	}
	writeJSON(w, http.StatusOK, signals)
}

func (s *Server) handleCreateSignal(w http.ResponseWriter, r *http.Request) {
	var sig model.Signal
	if err := json.NewDecoder(r.Body).Decode(&sig); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if sig.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	if sig.Source == "" {
		sig.Source = "manual"
	}
	if sig.Title == "" {
		sig.Title = sig.URL
	}

	inserted, err := s.store.InsertSignal(r.Context(), &sig)
	if err != nil {
		internalError(w, r, err)
		return
	}
	if !inserted {
		writeJSON(w, http.StatusOK, map[string]any{"inserted": false, "url": sig.URL})
		return
	}
	writeJSON(w, http.StatusCreated, sig)
}
