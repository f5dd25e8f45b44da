package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrWebhookURLRequired is returned when no endpoint is configured.
var ErrWebhookURLRequired = errors.New("webhook URL is required")

// WebhookConfig configures the webhook channel.
type WebhookConfig struct {
	// URL is the endpoint the alert is POSTed to as JSON.
	URL string

	// Timeout bounds one delivery attempt.
	Timeout time.Duration
}

// ApplyDefaults fills unset fields.
func (c *WebhookConfig) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}

// WebhookNotifier POSTs the alert to an HTTP endpoint.
type WebhookNotifier struct {
	config WebhookConfig
	client *http.Client
}

// NewWebhookNotifier creates a webhook channel.
func NewWebhookNotifier(config WebhookConfig) (*WebhookNotifier, error) {
	if config.URL == "" {
		return nil, ErrWebhookURLRequired
	}
	config.ApplyDefaults()

	return &WebhookNotifier{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}, nil
}

// Name implements Notifier.
func (n *WebhookNotifier) Name() string { return "webhook" }

// Notify implements Notifier.
func (n *WebhookNotifier) Notify(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.config.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("delivering webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
