package api

import (
	"context"
	"net/http"
	"time"

	"github.com/dmelnyk/voicegate/internal/challenge"
	"github.com/dmelnyk/voicegate/internal/homeassistant"
	"github.com/dmelnyk/voicegate/internal/store"
	"github.com/go-chi/chi/v5"
)

// HealthHandler reports service liveness plus the state of its dependencies.
type HealthHandler struct {
	engine *challenge.Engine
	repo   store.Repository
	ha     homeassistant.Client
	haMode string
}

// NewHealthHandler creates the health endpoint handler.
func NewHealthHandler(engine *challenge.Engine, repo store.Repository, ha homeassistant.Client, haMode string) *HealthHandler {
	return &HealthHandler{engine: engine, repo: repo, ha: ha, haMode: haMode}
}

// RegisterRoutes mounts the health endpoint on the router.
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.ServeHealth)
}

// ServeHealth answers 200 while the process is up; dependency failures are
// reported in the body so probes keep the service in rotation.
func (h *HealthHandler) ServeHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbStatus := "ok"
	if err := h.repo.Ping(ctx); err != nil {
		dbStatus = "error: " + err.Error()
	}

	haStatus := "ok"
	haCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := h.ha.TestConnection(haCtx); err != nil {
		haStatus = "error: " + err.Error()
	}

	pending, err := h.engine.CountChallenges(ctx, "")
	if err != nil {
		pending = -1
	}

	JSON(w, http.StatusOK, map[string]any{
		"status":             "healthy",
		"database":           dbStatus,
		"home_assistant":     haStatus,
		"ha_mode":            h.haMode,
		"pending_challenges": pending,
	})
}
