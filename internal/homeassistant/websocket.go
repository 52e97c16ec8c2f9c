package homeassistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// WebsocketClient calls Home Assistant through its websocket API instead of
// a webhook automation. Requires a long-lived access token. Each call opens
// a fresh connection; scene triggers are rare enough that holding one open
// isn't worth the reconnect handling.
type WebsocketClient struct {
	wsURL   string
	token   string
	timeout time.Duration
}

// NewWebsocketClient creates a websocket-API client for the given Home
// Assistant base URL and long-lived access token.
func NewWebsocketClient(baseURL, token string) *WebsocketClient {
	wsURL := strings.Replace(baseURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	return &WebsocketClient{
		wsURL:   wsURL + "/api/websocket",
		token:   token,
		timeout: 10 * time.Second,
	}
}

type wsMessage struct {
	ID          int            `json:"id,omitempty"`
	Type        string         `json:"type"`
	AccessToken string         `json:"access_token,omitempty"`
	Domain      string         `json:"domain,omitempty"`
	Service     string         `json:"service,omitempty"`
	ServiceData map[string]any `json:"service_data,omitempty"`
	Success     *bool          `json:"success,omitempty"`
	HAVersion   string         `json:"ha_version,omitempty"`
}

// connect dials Home Assistant and completes the auth handshake:
// auth_required -> auth -> auth_ok.
func (c *WebsocketClient) connect(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, c.wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial home assistant websocket: %w", err)
	}

	var hello wsMessage
	if err := wsjson.Read(ctx, conn, &hello); err != nil {
		conn.Close(websocket.StatusInternalError, "handshake failed")
		return nil, fmt.Errorf("read auth_required: %w", err)
	}
	if hello.Type != "auth_required" {
		conn.Close(websocket.StatusProtocolError, "unexpected handshake")
		return nil, fmt.Errorf("expected auth_required, got %q", hello.Type)
	}

	if err := wsjson.Write(ctx, conn, wsMessage{Type: "auth", AccessToken: c.token}); err != nil {
		conn.Close(websocket.StatusInternalError, "handshake failed")
		return nil, fmt.Errorf("send auth: %w", err)
	}

	var authResult wsMessage
	if err := wsjson.Read(ctx, conn, &authResult); err != nil {
		conn.Close(websocket.StatusInternalError, "handshake failed")
		return nil, fmt.Errorf("read auth result: %w", err)
	}
	if authResult.Type != "auth_ok" {
		conn.Close(websocket.StatusPolicyViolation, "auth rejected")
		return nil, fmt.Errorf("home assistant rejected auth: %s", authResult.Type)
	}

	return conn, nil
}

// TriggerScene activates scene.<sceneID> via a call_service command.
func (c *WebsocketClient) TriggerScene(ctx context.Context, sceneID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	call := wsMessage{
		ID:      1,
		Type:    "call_service",
		Domain:  "scene",
		Service: "turn_on",
		ServiceData: map[string]any{
			"entity_id": "scene." + sceneID,
		},
	}
	if err := wsjson.Write(ctx, conn, call); err != nil {
		return fmt.Errorf("send call_service: %w", err)
	}

	var result wsMessage
	if err := wsjson.Read(ctx, conn, &result); err != nil {
		return fmt.Errorf("read call_service result: %w", err)
	}
	if result.Success == nil || !*result.Success {
		return fmt.Errorf("scene trigger rejected by home assistant")
	}
	return nil
}

// TestConnection performs the auth handshake and disconnects.
func (c *WebsocketClient) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}
	return conn.Close(websocket.StatusNormalClosure, "connection test")
}
