package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"salescrm_backend/platform/config"
	"salescrm_backend/platform/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(&config.Config{
		WhatsAppURL:      srv.URL + "/",
		WhatsAppKey:      "user:secret",
		WhatsAppDeviceID: "fallback-device",
	}, logger.Discard())
}

func TestSendMessage(t *testing.T) {
	var got gowaRequest
	var device, auth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/send/message" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		device = r.Header.Get("X-Device-Id")
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"code":"SUCCESS","message":"ok","results":{"message_id":"3EB0ABC","status":"sent"}}`))
	})

	id, err := client.SendMessage(context.Background(), "+1 201 555 0199", "whatsapp:+12015550123", "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if id != "3EB0ABC" {
		t.Errorf("message id = %q", id)
	}
	if got.Phone != "12015550123" || got.Message != "hello" {
		t.Errorf("payload = %+v", got)
	}
	if device != "12015550199" {
		t.Errorf("device = %q, want sender digits", device)
	}
	if auth != "Basic dXNlcjpzZWNyZXQ=" {
		t.Errorf("auth = %q", auth)
	}
}

func TestSendMessageUsesConfiguredDeviceWithoutSender(t *testing.T) {
	var device string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		device = r.Header.Get("X-Device-Id")
		w.WriteHeader(http.StatusOK)
	})

	if _, err := client.SendMessage(context.Background(), "", "+12015550123", "hi"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if device != "fallback-device" {
		t.Errorf("device = %q", device)
	}
}

func TestSendMessageGatewayError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "device offline", http.StatusServiceUnavailable)
	})

	if _, err := client.SendMessage(context.Background(), "", "+12015550123", "hi"); err == nil {
		t.Fatal("expected gateway error")
	}
}

func TestNilClientNotConfigured(t *testing.T) {
	client := NewClient(&config.Config{}, logger.Discard())
	if client != nil {
		t.Fatal("expected nil client without url")
	}
	if _, err := client.SendMessage(context.Background(), "", "+12015550123", "hi"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v", err)
	}
}
