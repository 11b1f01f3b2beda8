package http

import (
	"context"
	"net/http"

	"github.com/atinyakov/JobTracker/internal/models"
	"go.uber.org/zap"
)

// CoverLetterService drafts cover letters.
type CoverLetterService interface {
	Generate(ctx context.Context, req models.CoverLetterRequest) (string, error)
}

// AIHandler serves /ai.
type AIHandler struct {
	Service CoverLetterService
	Log     *zap.Logger
}

// Generate handles POST /ai/generate and returns {"letter": "..."}.
func (h *AIHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.CoverLetterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	letter, err := h.Service.Generate(r.Context(), req)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"letter": letter})
}
