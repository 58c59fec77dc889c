// Package aiclient calls the n8n webhook that turns an uploaded itinerary
// image into a JSON array of loosely-shaped task rows. The webhook is an
// opaque collaborator: one request, one text reply, possibly wrapped in
// markdown code fences.
package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrWebhook wraps any failure talking to the webhook. Engine state is
// never affected; the caller reports it and moves on.
var ErrWebhook = errors.New("ai webhook call failed")

// Client posts images to the configured webhook URL.
type Client struct {
	httpClient *http.Client
	webhookURL string
}

// New returns a client for the given webhook URL. The timeout bounds the
// whole call including the model's processing time.
func New(webhookURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		webhookURL: webhookURL,
	}
}

// Configured reports whether a webhook URL is set.
func (c *Client) Configured() bool { return c.webhookURL != "" }

// RecognizeImage sends a base64-encoded image and returns the cleaned text
// reply, expected (but not guaranteed) to be a JSON array of import items.
func (c *Client) RecognizeImage(ctx context.Context, imageBase64 string) (string, error) {
	body, err := json.Marshal(map[string]string{"image": imageBase64})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrWebhook, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrWebhook, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrWebhook, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrWebhook, resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrWebhook, err)
	}
	return StripCodeFences(string(raw)), nil
}

// StripCodeFences removes the ```json / ``` markers the model sometimes
// wraps its reply in, plus surrounding whitespace.
func StripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
