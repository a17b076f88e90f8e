package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
)

// BoardRef identifies the exported board to the external worker.
type BoardRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Owner string `json:"owner,omitempty"`
}

// WebhookPayload is the body of the outbound delegation call.
type WebhookPayload struct {
	RequestID   string   `json:"requestId"`
	Board       BoardRef `json:"board"`
	BoardID     string   `json:"boardId"`
	Email       string   `json:"email"`
	To          string   `json:"to"`
	Fields      []string `json:"fields"`
	CallbackURL string   `json:"callbackUrl,omitempty"`
	RequestedAt string   `json:"requestedAt"`
}

// WebhookClient performs the outbound delegation POST.
type WebhookClient struct {
	client *http.Client
}

// NewWebhookClient builds a client with the given timeout bounding the
// whole delegation call.
func NewWebhookClient(timeout time.Duration) *WebhookClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookClient{client: &http.Client{Timeout: timeout}}
}

// Trigger posts the payload to url, attaching a bearer token when one is
// configured. Anything but a 2xx response is a failure.
func (w *WebhookClient) Trigger(ctx context.Context, url, token string, payload WebhookPayload) error {
	body, err := sonic.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %s: %s", resp.Status, snippet)
	}
	return nil
}
