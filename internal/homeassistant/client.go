// Package homeassistant triggers Home Assistant scenes after a successful
// voice authentication.
package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// triggerSource identifies this service in Home Assistant automations.
const triggerSource = "voicegate"

// Client triggers scenes on a home automation backend.
type Client interface {
	// TriggerScene activates the named scene.
	TriggerScene(ctx context.Context, sceneID string) error

	// TestConnection verifies the backend is reachable.
	TestConnection(ctx context.Context) error
}

// WebhookClient calls Home Assistant through a webhook automation: a POST to
// /api/webhook/{id} carrying the scene to activate.
type WebhookClient struct {
	baseURL   string
	webhookID string
	http      *http.Client
}

// NewWebhookClient creates a webhook-based client for the given Home
// Assistant base URL (e.g. "http://homeassistant.local:8123").
func NewWebhookClient(baseURL, webhookID string) *WebhookClient {
	return &WebhookClient{
		baseURL:   baseURL,
		webhookID: webhookID,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	Scene  string `json:"scene"`
	Source string `json:"source"`
}

// TriggerScene posts the scene trigger payload to the configured webhook.
func (c *WebhookClient) TriggerScene(ctx context.Context, sceneID string) error {
	body, err := json.Marshal(webhookPayload{Scene: sceneID, Source: triggerSource})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	url := c.baseURL + "/api/webhook/" + c.webhookID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call home assistant webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("home assistant returned status %d", resp.StatusCode)
	}
	return nil
}

// TestConnection checks the Home Assistant API root.
func (c *WebhookClient) TestConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/", nil)
	if err != nil {
		return fmt.Errorf("build api request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("connect to home assistant: %w", err)
	}
	defer resp.Body.Close()

	// 401 still proves the API is up; the webhook path needs no token.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusUnauthorized {
		return fmt.Errorf("home assistant returned status %d", resp.StatusCode)
	}
	return nil
}

// ConsoleClient logs scene triggers instead of calling Home Assistant.
// Used in test mode so the full voice flow can be exercised without a
// running automation backend.
type ConsoleClient struct{}

// NewConsoleClient creates a log-only client.
func NewConsoleClient() *ConsoleClient {
	return &ConsoleClient{}
}

// TriggerScene logs the trigger and reports success.
func (c *ConsoleClient) TriggerScene(_ context.Context, sceneID string) error {
	slog.Info("Scene trigger (test mode)", "scene", sceneID, "source", triggerSource)
	return nil
}

// TestConnection always succeeds in test mode.
func (c *ConsoleClient) TestConnection(_ context.Context) error {
	return nil
}
