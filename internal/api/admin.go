package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmelnyk/voicegate/internal/domain"
	"github.com/dmelnyk/voicegate/internal/store"
	"github.com/dmelnyk/voicegate/internal/tracker"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// AdminHandler exposes the operator surface: homes, Alexa user mappings, and
// the unmapped-user backlog. Routes are expected to sit behind the admin API
// key middleware.
type AdminHandler struct {
	repo     store.Repository
	unmapped *tracker.UnmappedTracker
}

// NewAdminHandler creates the admin CRUD handler.
func NewAdminHandler(repo store.Repository, unmapped *tracker.UnmappedTracker) *AdminHandler {
	return &AdminHandler{repo: repo, unmapped: unmapped}
}

// RegisterRoutes mounts the admin endpoints on the router.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Get("/homes", h.ListHomes)
		r.Post("/homes", h.CreateHome)
		r.Get("/homes/{homeID}", h.GetHome)
		r.Put("/homes/{homeID}", h.UpdateHome)
		r.Delete("/homes/{homeID}", h.DeleteHome)

		r.Get("/mappings", h.ListMappings)
		r.Post("/mappings", h.CreateMapping)
		r.Delete("/mappings/{alexaUserID}", h.DeleteMapping)

		r.Get("/unmapped-users", h.ListUnmappedUsers)
	})
}

type createHomeRequest struct {
	HomeID string `json:"home_id"`
	Name   string `json:"name"`
}

type updateHomeRequest struct {
	Name     *string `json:"name"`
	IsActive *bool   `json:"is_active"`
}

type createMappingRequest struct {
	AlexaUserID string `json:"alexa_user_id"`
	HomeID      string `json:"home_id"`
}

// ListHomes returns all registered homes.
func (h *AdminHandler) ListHomes(w http.ResponseWriter, r *http.Request) {
	homes, err := h.repo.ListHomes(r.Context())
	if err != nil {
		slog.Error("List homes failed", "error", err)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	JSON(w, http.StatusOK, map[string]any{"homes": homes, "count": len(homes)})
}

// CreateHome registers a home. A missing home_id gets a generated UUID.
func (h *AdminHandler) CreateHome(w http.ResponseWriter, r *http.Request) {
	var req createHomeRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "Request body required")
		return
	}
	if req.Name == "" {
		Error(w, http.StatusBadRequest, "Missing required field: name")
		return
	}
	if req.HomeID == "" {
		req.HomeID = uuid.NewString()
	}

	home := &domain.Home{
		HomeID:    req.HomeID,
		Name:      req.Name,
		CreatedAt: time.Now().UTC(),
		IsActive:  true,
	}
	if err := h.repo.CreateHome(r.Context(), home); err != nil {
		if errors.Is(err, store.ErrHomeExists) {
			Error(w, http.StatusConflict, "Home already exists")
			return
		}
		slog.Error("Create home failed", "error", err, "home_id", req.HomeID)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	slog.Info("Home created", "home_id", home.HomeID, "name", home.Name)
	JSON(w, http.StatusCreated, home)
}

// GetHome returns one home by ID.
func (h *AdminHandler) GetHome(w http.ResponseWriter, r *http.Request) {
	homeID := chi.URLParam(r, "homeID")

	home, err := h.repo.GetHome(r.Context(), homeID)
	if err != nil {
		slog.Error("Get home failed", "error", err, "home_id", homeID)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if home == nil {
		Error(w, http.StatusNotFound, "Home not found")
		return
	}
	JSON(w, http.StatusOK, home)
}

// UpdateHome changes a home's name or active flag. Absent fields keep their
// current value.
func (h *AdminHandler) UpdateHome(w http.ResponseWriter, r *http.Request) {
	homeID := chi.URLParam(r, "homeID")

	var req updateHomeRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "Request body required")
		return
	}

	home, err := h.repo.GetHome(r.Context(), homeID)
	if err != nil {
		slog.Error("Get home failed", "error", err, "home_id", homeID)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if home == nil {
		Error(w, http.StatusNotFound, "Home not found")
		return
	}

	if req.Name != nil {
		if *req.Name == "" {
			Error(w, http.StatusBadRequest, "Home name cannot be empty")
			return
		}
		home.Name = *req.Name
	}
	if req.IsActive != nil {
		home.IsActive = *req.IsActive
	}

	if err := h.repo.UpdateHome(r.Context(), home); err != nil {
		slog.Error("Update home failed", "error", err, "home_id", homeID)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	slog.Info("Home updated", "home_id", homeID)
	JSON(w, http.StatusOK, home)
}

// DeleteHome removes a home and its Alexa mappings.
func (h *AdminHandler) DeleteHome(w http.ResponseWriter, r *http.Request) {
	homeID := chi.URLParam(r, "homeID")

	deleted, err := h.repo.DeleteHome(r.Context(), homeID)
	if err != nil {
		slog.Error("Delete home failed", "error", err, "home_id", homeID)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !deleted {
		Error(w, http.StatusNotFound, "Home not found")
		return
	}

	slog.Info("Home deleted", "home_id", homeID)
	JSON(w, http.StatusOK, map[string]string{"status": "deleted", "home_id": homeID})
}

// ListMappings returns all Alexa user mappings.
func (h *AdminHandler) ListMappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := h.repo.ListMappings(r.Context())
	if err != nil {
		slog.Error("List mappings failed", "error", err)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	JSON(w, http.StatusOK, map[string]any{"mappings": mappings, "count": len(mappings)})
}

// CreateMapping links an Alexa user to a home and clears the user from the
// unmapped backlog.
func (h *AdminHandler) CreateMapping(w http.ResponseWriter, r *http.Request) {
	var req createMappingRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "Request body required")
		return
	}
	if req.AlexaUserID == "" {
		Error(w, http.StatusBadRequest, "Missing required field: alexa_user_id")
		return
	}
	if req.HomeID == "" {
		Error(w, http.StatusBadRequest, "Missing required field: home_id")
		return
	}

	m := &domain.AlexaMapping{
		AlexaUserID: req.AlexaUserID,
		HomeID:      req.HomeID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.repo.CreateMapping(r.Context(), m); err != nil {
		switch {
		case errors.Is(err, store.ErrHomeNotFound):
			Error(w, http.StatusNotFound, "Home not found")
		case errors.Is(err, store.ErrMappingExists):
			Error(w, http.StatusConflict, "Alexa user is already mapped")
		default:
			slog.Error("Create mapping failed", "error", err, "home_id", req.HomeID)
			Error(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	h.unmapped.Remove(req.AlexaUserID)
	slog.Info("Mapping created", "alexa_user_id", req.AlexaUserID, "home_id", req.HomeID)
	JSON(w, http.StatusCreated, m)
}

// DeleteMapping unlinks an Alexa user.
func (h *AdminHandler) DeleteMapping(w http.ResponseWriter, r *http.Request) {
	alexaUserID := chi.URLParam(r, "alexaUserID")

	deleted, err := h.repo.DeleteMapping(r.Context(), alexaUserID)
	if err != nil {
		slog.Error("Delete mapping failed", "error", err)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !deleted {
		Error(w, http.StatusNotFound, "Mapping not found")
		return
	}

	slog.Info("Mapping deleted", "alexa_user_id", alexaUserID)
	JSON(w, http.StatusOK, map[string]string{"status": "deleted", "alexa_user_id": alexaUserID})
}

// ListUnmappedUsers returns Alexa users who verified without a home mapping.
func (h *AdminHandler) ListUnmappedUsers(w http.ResponseWriter, r *http.Request) {
	users := h.unmapped.List()
	JSON(w, http.StatusOK, map[string]any{"unmapped_users": users, "count": len(users)})
}
