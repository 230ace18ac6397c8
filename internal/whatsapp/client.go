// Package whatsapp is the client for the GOWA WhatsApp gateway.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"salescrm_backend/platform/config"
	"salescrm_backend/platform/logger"
	"salescrm_backend/platform/phone"
)

// ErrNotConfigured is returned when WHATSAPP_URL is unset.
var ErrNotConfigured = errors.New("whatsapp gateway not configured")

type Client struct {
	baseURL  string
	apiKey   string
	deviceID string
	http     *http.Client
	log      *logger.Logger
}

type gowaRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type gowaResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Results struct {
		MessageID string `json:"message_id"`
		Status    string `json:"status"`
	} `json:"results"`
}

// NewClient returns nil when the gateway URL is not configured. A nil
// *Client is safe to call and reports ErrNotConfigured.
func NewClient(cfg config.WhatsAppConfig, log *logger.Logger) *Client {
	if cfg.GetWhatsAppURL() == "" {
		return nil
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.GetWhatsAppURL(), "/"),
		apiKey:   cfg.GetWhatsAppKey(),
		deviceID: cfg.GetWhatsAppDeviceID(),
		http:     &http.Client{Timeout: 10 * time.Second},
		log:      log,
	}
}

// SendMessage sends text to the recipient from the given sender number and
// returns the gateway's message id. An empty from uses the configured device.
func (c *Client) SendMessage(ctx context.Context, from, to, text string) (string, error) {
	if c == nil {
		return "", ErrNotConfigured
	}

	recipient := phone.Digits(to)
	if recipient == "" {
		return "", fmt.Errorf("whatsapp recipient is empty")
	}

	body, err := json.Marshal(gowaRequest{Phone: recipient, Message: text})
	if err != nil {
		return "", fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	url := fmt.Sprintf("%s/send/message", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", formatAuthHeader(c.apiKey))
	}
	if device := c.device(from); device != "" {
		req.Header.Set("X-Device-Id", device)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("whatsapp service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed gowaResponse
	if len(data) > 0 {
		if err := json.Unmarshal(data, &parsed); err != nil {
			return "", fmt.Errorf("decode whatsapp response: %w", err)
		}
	}

	c.log.Info("whatsapp sent via gowa", "phone", recipient, "messageId", parsed.Results.MessageID)
	return parsed.Results.MessageID, nil
}

func (c *Client) device(from string) string {
	if strings.TrimSpace(from) != "" {
		return phone.Digits(from)
	}
	return c.deviceID
}

func formatAuthHeader(apiKey string) string {
	if strings.HasPrefix(strings.ToLower(apiKey), "basic ") {
		return apiKey
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(apiKey))
	return "Basic " + encoded
}
