package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"inmobot/models"
)

const graphURL = "https://graph.facebook.com"

// WhatsAppClient sends messages through the WhatsApp Cloud API.
type WhatsAppClient struct {
	AccessToken   string
	ApiVersion    string // e.g. v20.0
	PhoneNumberID string
	BaseURL       string // vazio = graph.facebook.com
	HTTPClient    *http.Client
}

// WhatsAppAPIError carries the Graph API status and body.
type WhatsAppAPIError struct {
	StatusCode int
	Body       string
}

func (e WhatsAppAPIError) Error() string {
	return fmt.Sprintf("whatsapp api error: status=%d body=%s", e.StatusCode, e.Body)
}

func (c WhatsAppClient) post(ctx context.Context, path string, body any) error {
	if strings.TrimSpace(c.AccessToken) == "" || strings.TrimSpace(c.PhoneNumberID) == "" {
		return fmt.Errorf("%w: whatsapp access token or phone number id not set", models.ErrUpstreamUnavailable)
	}
	apiVersion := strings.TrimSpace(c.ApiVersion)
	if apiVersion == "" {
		apiVersion = "v20.0"
	}
	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		base = graphURL
	}
	url := fmt.Sprintf("%s/%s/%s/%s", base, apiVersion, strings.TrimSpace(c.PhoneNumberID), path)

	b, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.AccessToken))
	req.Header.Set("Content-Type", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: whatsapp: %v", models.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return WhatsAppAPIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return nil
}

// SendText sends a plain text message to the given international number.
func (c WhatsAppClient) SendText(ctx context.Context, to, text string) error {
	return c.post(ctx, "messages", map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text": map[string]any{
			"preview_url": false,
			"body":        text,
		},
	})
}

// MarkRead flags an inbound message as read (blue ticks).
func (c WhatsAppClient) MarkRead(ctx context.Context, messageID string) error {
	return c.post(ctx, "messages", map[string]any{
		"messaging_product": "whatsapp",
		"status":            "read",
		"message_id":        messageID,
	})
}
