package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/tpeters15/theme-score-nexus/internal/classify"
	"github.com/tpeters15/theme-score-nexus/internal/model"
)

// classifyResponse is the classification envelope. Result is the persisted
// mapping and is absent when no theme matched.
type classifyResponse struct {
	Success            bool                `json:"success"`
	Result             *model.ThemeMapping `json:"result,omitempty"`
	StagesUsed         []string            `json:"stages_used,omitempty"`
	VerificationPassed bool                `json:"verification_passed"`
	ConfidenceBucket   string              `json:"confidence_bucket,omitempty"`
	AlreadyMapped      bool                `json:"already_mapped,omitempty"`
	Status             string              `json:"status,omitempty"`
	Error              string              `json:"error,omitempty"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	if s.classifier == nil {
		writeError(w, http.StatusServiceUnavailable, "classification is not configured")
		return
	}

	var req classify.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CompanyID == "" && req.Name == "" {
		writeError(w, http.StatusBadRequest, "company_id or company_name is required")
		return
	}

	result, err := s.classifier.Classify(r.Context(), req)
	if err != nil {
		// The same error text is persisted on the company row, so echoing
		// it here leaks nothing new.
		zap.L().Error("api: classification failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, classifyResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	resp := classifyResponse{
		Success:          true,
		Result:           result.Mapping,
		StagesUsed:       result.StagesUsed,
		ConfidenceBucket: result.ConfidenceBucket,
		AlreadyMapped:    result.AlreadyMapped,
		Status:           string(result.Company.ClassificationStatus),
	}
	if result.Mapping != nil {
		resp.VerificationPassed = result.Mapping.VerificationPassed
	}
	writeJSON(w, http.StatusOK, resp)
}
