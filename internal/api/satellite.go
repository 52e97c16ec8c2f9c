package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmelnyk/voicegate/internal/auth"
	"github.com/dmelnyk/voicegate/internal/domain"
	"github.com/dmelnyk/voicegate/internal/store"
	"github.com/go-chi/chi/v5"
)

// SatelliteHandler implements the FutureProof Homes satellite protocol:
// Home Assistant calls these endpoints when a satellite voice command needs
// authentication, and executes the returned intent itself on approval.
type SatelliteHandler struct {
	auth *auth.Service
}

// NewSatelliteHandler creates the satellite protocol handler.
func NewSatelliteHandler(authSvc *auth.Service) *SatelliteHandler {
	return &SatelliteHandler{auth: authSvc}
}

// RegisterRoutes mounts the satellite auth endpoints on the router.
func (h *SatelliteHandler) RegisterRoutes(r chi.Router) {
	r.Route("/futureproofhome/auth", func(r chi.Router) {
		r.Post("/request", h.Request)
		r.Post("/verify", h.Verify)
		r.Post("/cancel", h.Cancel)
		r.Get("/status", h.Status)
	})
}

type satelliteAuthRequest struct {
	HomeID string `json:"home_id"`
	Intent string `json:"intent"`
}

type satelliteVerifyRequest struct {
	HomeID   string `json:"home_id"`
	Response string `json:"response"`
}

type satelliteCancelRequest struct {
	HomeID string `json:"home_id"`
}

func (h *SatelliteHandler) sweep(r *http.Request) {
	if _, err := h.auth.Sweep(r.Context()); err != nil {
		slog.Error("Challenge sweep failed", "error", err)
	}
}

// Request issues a new challenge for a home.
func (h *SatelliteHandler) Request(w http.ResponseWriter, r *http.Request) {
	h.sweep(r)

	var req satelliteAuthRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "Request body required")
		return
	}
	if req.HomeID == "" {
		Error(w, http.StatusBadRequest, "Missing required field: home_id")
		return
	}
	if req.Intent == "" {
		Error(w, http.StatusBadRequest, "Missing required field: intent")
		return
	}

	grant, err := h.auth.RequestChallenge(r.Context(), req.HomeID, domain.NamespaceSatellite, req.Intent)
	if errors.Is(err, store.ErrChallengeExists) {
		Error(w, http.StatusConflict, "Challenge already pending for this home")
		return
	}
	if err != nil {
		slog.Error("Failed to create challenge", "error", err, "home_id", req.HomeID)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	slog.Info("Satellite auth request", "home_id", req.HomeID, "intent", req.Intent, "challenge", grant.Phrase)

	JSON(w, http.StatusOK, map[string]any{
		"status":    "challenge",
		"speech":    grant.SpeechText,
		"challenge": grant.Phrase,
	})
}

// Verify checks the spoken response for a home.
func (h *SatelliteHandler) Verify(w http.ResponseWriter, r *http.Request) {
	h.sweep(r)

	var req satelliteVerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "Request body required")
		return
	}
	if req.HomeID == "" {
		Error(w, http.StatusBadRequest, "Missing required field: home_id")
		return
	}
	if req.Response == "" {
		Error(w, http.StatusBadRequest, "Missing required field: response")
		return
	}

	verdict, err := h.auth.SubmitResponse(r.Context(), req.HomeID, domain.NamespaceSatellite, req.Response)
	if err != nil {
		slog.Error("Challenge validation failed", "error", err, "home_id", req.HomeID)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if verdict.Accepted {
		slog.Info("Satellite auth approved", "home_id", req.HomeID, "intent", verdict.Intent)
		JSON(w, http.StatusOK, map[string]any{
			"status": "approved",
			"speech": verdict.SpeechText,
			"intent": verdict.Intent,
		})
		return
	}

	slog.Info("Satellite auth denied", "home_id", req.HomeID, "reason", verdict.Reason)

	resp := map[string]any{
		"status": "denied",
		"speech": verdict.SpeechText,
		"reason": string(verdict.Reason),
	}
	if verdict.Reason == auth.DenialMismatch {
		resp["attempts_remaining"] = verdict.AttemptsRemaining
	}
	JSON(w, http.StatusOK, resp)
}

// Cancel aborts a pending authentication. Cancelling nothing still succeeds.
func (h *SatelliteHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.sweep(r)

	var req satelliteCancelRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "Request body required")
		return
	}
	if req.HomeID == "" {
		Error(w, http.StatusBadRequest, "Missing required field: home_id")
		return
	}

	cancelled, err := h.auth.CancelChallenge(r.Context(), req.HomeID, domain.NamespaceSatellite)
	if err != nil {
		slog.Error("Challenge cancel failed", "error", err, "home_id", req.HomeID)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	slog.Info("Satellite auth cancel", "home_id", req.HomeID, "cleared", cancelled)

	JSON(w, http.StatusOK, map[string]any{
		"status": "cancelled",
		"speech": "Security check cancelled.",
	})
}

// Status is a debug endpoint listing pending satellite challenges.
func (h *SatelliteHandler) Status(w http.ResponseWriter, r *http.Request) {
	engine := h.auth.Engine()

	challenges, err := engine.ListChallenges(r.Context(), domain.NamespaceSatellite)
	if err != nil {
		slog.Error("Challenge list failed", "error", err)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	now := engine.Now()
	pending := make(map[string]any, len(challenges))
	for _, c := range challenges {
		pending[c.Identifier] = map[string]any{
			"intent":          c.Intent,
			"attempts":        c.Attempts,
			"elapsed_seconds": c.Elapsed(now).Seconds(),
			"expired":         c.IsExpired(now),
		}
	}

	JSON(w, http.StatusOK, map[string]any{
		"pending_challenges": pending,
		"config": map[string]any{
			"expiry_seconds": int(engine.Expiry().Seconds()),
			"max_attempts":   engine.MaxAttempts(),
		},
		"total_pending": len(pending),
	})
}
