package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/atinyakov/JobTracker/internal/middleware"
	"github.com/atinyakov/JobTracker/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ApplicationService defines the record store operations used by
// ApplicationHandler.
type ApplicationService interface {
	List(ctx context.Context, userID int64) ([]models.Application, error)
	Get(ctx context.Context, userID, id int64) (*models.Application, error)
	Create(ctx context.Context, userID int64, n models.NewApplication) (*models.Application, error)
	Update(ctx context.Context, userID, id int64, patch models.ApplicationPatch) (*models.Application, error)
	Delete(ctx context.Context, userID, id int64) error
	Stats(ctx context.Context, userID int64) (*models.Stats, error)
}

// ApplicationHandler serves /applications.
type ApplicationHandler struct {
	Service ApplicationService
	Log     *zap.Logger
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid application id", models.ErrValidation)
	}
	return id, nil
}

// List handles GET /applications?userId=<id>. The userId parameter is
// required and must name the authenticated user.
func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("userId")
	if raw == "" {
		writeMessage(w, http.StatusBadRequest, "User ID required")
		return
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		writeMessage(w, http.StatusBadRequest, "User ID required")
		return
	}
	if userID != middleware.GetUserIDFromContext(r.Context()) {
		writeError(w, r, h.Log, models.ErrForbidden)
		return
	}

	apps, err := h.Service.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

// Get handles GET /applications/{id}.
func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	app, err := h.Service.Get(r.Context(), middleware.GetUserIDFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// Create handles POST /applications. The owner is always the caller.
func (h *ApplicationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var n models.NewApplication
	if err := decodeJSON(r, &n); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	app, err := h.Service.Create(r.Context(), middleware.GetUserIDFromContext(r.Context()), n)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

// Update handles PUT /applications/{id} as a partial update: only fields
// present in the body are written. It answers with the persisted row.
func (h *ApplicationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	var patch models.ApplicationPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	app, err := h.Service.Update(r.Context(), middleware.GetUserIDFromContext(r.Context()), id, patch)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// Delete handles DELETE /applications/{id}.
func (h *ApplicationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if err := h.Service.Delete(r.Context(), middleware.GetUserIDFromContext(r.Context()), id); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeMessage(w, http.StatusOK, "Deleted")
}

// Stats handles GET /applications/stats.
func (h *ApplicationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Stats(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
