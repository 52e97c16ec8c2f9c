package homeassistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWebhookClientTriggerScene(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotPayload webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewWebhookClient(srv.URL, "hook-123")
	if err := c.TriggerScene(context.Background(), "night_scene"); err != nil {
		t.Fatalf("TriggerScene failed: %v", err)
	}

	if gotPath != "/api/webhook/hook-123" {
		t.Errorf("webhook path = %q, want /api/webhook/hook-123", gotPath)
	}
	if gotPayload.Scene != "night_scene" {
		t.Errorf("payload scene = %q, want night_scene", gotPayload.Scene)
	}
	if gotPayload.Source != triggerSource {
		t.Errorf("payload source = %q, want %q", gotPayload.Source, triggerSource)
	}
}

func TestWebhookClientTriggerSceneServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewWebhookClient(srv.URL, "hook-123")
	if err := c.TriggerScene(context.Background(), "night_scene"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestWebhookClientTestConnection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"unauthorized still reachable", http.StatusUnauthorized, false},
		{"server error", http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := NewWebhookClient(srv.URL, "hook-123")
			err := c.TestConnection(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("TestConnection error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConsoleClient(t *testing.T) {
	t.Parallel()

	c := NewConsoleClient()
	if err := c.TriggerScene(context.Background(), "night_scene"); err != nil {
		t.Errorf("TriggerScene failed: %v", err)
	}
	if err := c.TestConnection(context.Background()); err != nil {
		t.Errorf("TestConnection failed: %v", err)
	}
}
