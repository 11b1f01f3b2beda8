package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/atinyakov/JobTracker/internal/middleware"
	"github.com/atinyakov/JobTracker/internal/models"
	"github.com/atinyakov/JobTracker/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProfileService reads and updates accounts.
type ProfileService interface {
	GetProfile(ctx context.Context, id int64) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, in service.ProfileUpdate) (*models.User, error)
}

// UserHandler serves /users/{id}. Users may only see and change themselves.
type UserHandler struct {
	Service ProfileService
	Log     *zap.Logger
}

// self resolves {id} and checks it against the caller.
func (h *UserHandler) self(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeMessage(w, http.StatusBadRequest, "invalid user id")
		return 0, false
	}
	if id != middleware.GetUserIDFromContext(r.Context()) {
		writeError(w, r, h.Log, models.ErrForbidden)
		return 0, false
	}
	return id, true
}

// Get handles GET /users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.self(w, r)
	if !ok {
		return
	}
	u, err := h.Service.GetProfile(r.Context(), id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Update handles PUT /users/{id}.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.self(w, r)
	if !ok {
		return
	}
	var in service.ProfileUpdate
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	u, err := h.Service.UpdateProfile(r.Context(), id, in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
