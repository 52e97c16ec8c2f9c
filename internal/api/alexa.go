package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmelnyk/voicegate/internal/auth"
	"github.com/dmelnyk/voicegate/internal/domain"
	"github.com/dmelnyk/voicegate/internal/homeassistant"
	"github.com/dmelnyk/voicegate/internal/store"
	"github.com/dmelnyk/voicegate/internal/tracker"
	"github.com/go-chi/chi/v5"
)

// Alexa request envelope, reduced to the fields the skill uses.
type alexaRequest struct {
	Version string `json:"version"`
	Session struct {
		SessionID string `json:"sessionId"`
		User      struct {
			UserID string `json:"userId"`
		} `json:"user"`
	} `json:"session"`
	Request struct {
		Type   string `json:"type"`
		Intent struct {
			Name  string `json:"name"`
			Slots map[string]struct {
				Value string `json:"value"`
			} `json:"slots"`
		} `json:"intent"`
	} `json:"request"`
}

type alexaOutputSpeech struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type alexaResponseBody struct {
	OutputSpeech     alexaOutputSpeech `json:"outputSpeech"`
	ShouldEndSession bool              `json:"shouldEndSession"`
}

type alexaResponse struct {
	Version  string            `json:"version"`
	Response alexaResponseBody `json:"response"`
}

// AlexaHandler implements the Alexa skill webhook. Challenges are keyed by
// the skill session ID; a verified response triggers the night scene for the
// home mapped to the Alexa user.
type AlexaHandler struct {
	auth          *auth.Service
	repo          store.Repository
	ha            homeassistant.Client
	unmapped      *tracker.UnmappedTracker
	sceneID       string
	defaultHomeID string
}

// NewAlexaHandler creates the Alexa webhook handler.
func NewAlexaHandler(authSvc *auth.Service, repo store.Repository, ha homeassistant.Client, unmapped *tracker.UnmappedTracker, sceneID, defaultHomeID string) *AlexaHandler {
	return &AlexaHandler{
		auth:          authSvc,
		repo:          repo,
		ha:            ha,
		unmapped:      unmapped,
		sceneID:       sceneID,
		defaultHomeID: defaultHomeID,
	}
}

// RegisterRoutes mounts the Alexa webhook on the router.
func (h *AlexaHandler) RegisterRoutes(r chi.Router) {
	r.Post("/alexa", h.ServeWebhook)
}

// ServeWebhook processes every Alexa request type and always answers 200
// with a speech response; Alexa treats non-200 as a skill failure.
func (h *AlexaHandler) ServeWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Opportunistic cleanup bounds memory growth from abandoned sessions.
	if _, err := h.auth.Sweep(ctx); err != nil {
		slog.Error("Challenge sweep failed", "error", err)
	}

	var req alexaRequest
	if err := decodeJSON(r, &req); err != nil {
		slog.Warn("Malformed Alexa request", "error", err)
		h.respond(w, "I didn't understand that. Please try again.", true)
		return
	}

	slog.Info("Alexa request",
		"type", req.Request.Type,
		"intent", req.Request.Intent.Name,
		"session_id", req.Session.SessionID)

	switch req.Request.Type {
	case "LaunchRequest":
		h.respond(w, "Home security activated. Say night scene to begin.", false)

	case "IntentRequest":
		h.handleIntent(ctx, w, &req)

	case "SessionEndedRequest":
		h.respond(w, "", true)

	default:
		h.respond(w, "I didn't understand that. Please try again.", true)
	}
}

func (h *AlexaHandler) handleIntent(ctx context.Context, w http.ResponseWriter, req *alexaRequest) {
	switch req.Request.Intent.Name {
	case "NightSceneIntent":
		h.handleNightScene(ctx, w, req)

	case "ChallengeResponseIntent":
		h.handleChallengeResponse(ctx, w, req)

	case "AMAZON.HelpIntent":
		h.respond(w, "This skill controls your home with voice authentication. "+
			"Say night scene, then repeat the security phrase I give you. "+
			"What would you like to do?", false)

	case "AMAZON.StopIntent", "AMAZON.CancelIntent":
		h.respond(w, "Home security deactivated. Goodbye.", true)

	case "AMAZON.FallbackIntent":
		h.respond(w, "I didn't understand. You can say night scene to activate the night scene. "+
			"What would you like to do?", false)

	default:
		h.respond(w, "I didn't understand that. Please try again.", true)
	}
}

func (h *AlexaHandler) handleNightScene(ctx context.Context, w http.ResponseWriter, req *alexaRequest) {
	grant, err := h.auth.RequestChallenge(ctx, req.Session.SessionID, domain.NamespaceAlexa, "")
	if errors.Is(err, store.ErrChallengeExists) {
		h.respond(w, "A security check is already in progress. Please answer it or say stop.", false)
		return
	}
	if err != nil {
		slog.Error("Failed to create challenge", "error", err, "session_id", req.Session.SessionID)
		h.respond(w, "Sorry, there was an error processing your request.", true)
		return
	}
	h.respond(w, grant.SpeechText, false)
}

func (h *AlexaHandler) handleChallengeResponse(ctx context.Context, w http.ResponseWriter, req *alexaRequest) {
	spoken := ""
	if slot, ok := req.Request.Intent.Slots["response"]; ok {
		spoken = slot.Value
	}

	verdict, err := h.auth.SubmitResponse(ctx, req.Session.SessionID, domain.NamespaceAlexa, spoken)
	if err != nil {
		slog.Error("Challenge validation failed", "error", err, "session_id", req.Session.SessionID)
		h.respond(w, "Sorry, there was an error processing your request.", true)
		return
	}

	if !verdict.Accepted {
		// Session stays open so the user can retry or restart with
		// "night scene" without relaunching the skill.
		h.respond(w, verdict.SpeechText+" Please try saying night scene again if you want to retry.", false)
		return
	}

	homeID := h.resolveHome(ctx, req.Session.User.UserID)
	if homeID == "" {
		h.respond(w, "Voice verified, but this device isn't linked to a home yet. "+
			"Please ask your administrator to set it up.", true)
		return
	}

	if err := h.ha.TriggerScene(ctx, h.sceneID); err != nil {
		slog.Error("Scene trigger failed", "error", err, "scene", h.sceneID, "home_id", homeID)
		h.respond(w, "Voice verified, but scene activation failed.", true)
		return
	}

	slog.Info("Night scene activated", "home_id", homeID, "scene", h.sceneID)
	h.respond(w, "Voice verified. Night scene activated.", true)
}

// resolveHome maps the Alexa user to a home. Unmapped users are recorded for
// the admin surface; the configured default home, if any, is the fallback.
func (h *AlexaHandler) resolveHome(ctx context.Context, alexaUserID string) string {
	if alexaUserID == "" {
		return h.defaultHomeID
	}

	m, err := h.repo.GetMapping(ctx, alexaUserID)
	if err != nil {
		slog.Error("Mapping lookup failed", "error", err)
		return h.defaultHomeID
	}
	if m != nil {
		return m.HomeID
	}

	h.unmapped.Record(alexaUserID)
	slog.Info("Unmapped Alexa user recorded", "alexa_user_id", alexaUserID)
	return h.defaultHomeID
}

func (h *AlexaHandler) respond(w http.ResponseWriter, speech string, endSession bool) {
	JSON(w, http.StatusOK, alexaResponse{
		Version: "1.0",
		Response: alexaResponseBody{
			OutputSpeech:     alexaOutputSpeech{Type: "PlainText", Text: speech},
			ShouldEndSession: endSession,
		},
	})
}
