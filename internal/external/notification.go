package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// NotificationClient delivers user-facing messages through the external
// notification service. Delivery is best effort; settlement never blocks
// on it.
type NotificationClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type NotificationConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Notification struct {
	Recipient string         `json:"recipient"`
	Subject   string         `json:"subject"`
	Body      string         `json:"body"`
	Channel   string         `json:"channel"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewNotificationClient(cfg NotificationConfig) *NotificationClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &NotificationClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Send posts a single notification. Callers treat errors as retryable.
func (nc *NotificationClient) Send(ctx context.Context, n Notification) error {
	if n.Channel == "" {
		n.Channel = "email"
	}

	jsonBody, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, nc.baseURL+"/api/v1/notifications", bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+nc.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := nc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notification service returned status %d", resp.StatusCode)
	}
	return nil
}
