package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	apperrors "ticketer/internal/errors"
)

// GatewayClient talks to the external payment rail: checkout initiation,
// transaction verification and outbound payouts. All calls carry a bearer
// secret and a bounded timeout; a timed-out verify is an error, never an
// ambiguous success.
type GatewayClient struct {
	baseURL         string
	secretKey       string
	notificationURL string
	httpClient      *http.Client
}

type GatewayConfig struct {
	BaseURL         string
	SecretKey       string
	Timeout         time.Duration
	NotificationURL string
}

// Customer identifies the paying or receiving party.
type Customer struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// DestinationAccount is a payout destination captured at listing or
// withdrawal time.
type DestinationAccount struct {
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
}

type InitiateRequest struct {
	Customer  Customer       `json:"customer"`
	Amount    int64          `json:"amount"`
	Currency  string         `json:"currency"`
	Reference string         `json:"reference"`
	Processor string         `json:"processor"`
	Narration string         `json:"narration,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type InitiateResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

type VerifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

type PayoutRequest struct {
	Customer        Customer           `json:"customer"`
	Amount          int64              `json:"amount"`
	Currency        string             `json:"currency"`
	Destination     DestinationAccount `json:"destination"`
	Reference       string             `json:"reference"`
	NotificationURL string             `json:"notification_url,omitempty"`
	Narration       string             `json:"narration"`
	Metadata        map[string]any     `json:"metadata,omitempty"`
}

type PayoutResponse struct {
	Status    bool           `json:"status"`
	Message   string         `json:"message"`
	Reference string         `json:"reference"`
	Data      map[string]any `json:"data,omitempty"`
}

func NewGatewayClient(cfg GatewayConfig) *GatewayClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &GatewayClient{
		baseURL:         cfg.BaseURL,
		secretKey:       cfg.SecretKey,
		notificationURL: cfg.NotificationURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// NotificationURL is where the rail posts payout status callbacks.
func (gc *GatewayClient) NotificationURL() string {
	return gc.notificationURL
}

func (gc *GatewayClient) do(ctx context.Context, method, url string, body, out any) error {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+gc.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := gc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: unexpected status code %d", apperrors.ErrGateway, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: malformed response: %v", apperrors.ErrGateway, err)
	}
	return nil
}

// InitiatePayment requests a checkout URL for a pending transaction.
func (gc *GatewayClient) InitiatePayment(ctx context.Context, req InitiateRequest) (*InitiateResponse, error) {
	var result InitiateResponse
	if err := gc.do(ctx, http.MethodPost, gc.baseURL+"/api/v1/initiate", req, &result); err != nil {
		return nil, fmt.Errorf("failed to initiate payment: %w", err)
	}

	if result.CheckoutURL == "" {
		return nil, fmt.Errorf("%w: gateway did not return a checkout_url", apperrors.ErrGateway)
	}
	return &result, nil
}

// VerifyTransaction asks the gateway whether a reference was paid. A
// rejected verification is ErrVerificationFailed; transport and decoding
// problems are ErrGateway so the caller can retry.
func (gc *GatewayClient) VerifyTransaction(ctx context.Context, reference string) (*VerifyResponse, error) {
	verifyURL := gc.baseURL + "/api/v1/transactions/verify?reference=" + url.QueryEscape(reference)

	var result VerifyResponse
	if err := gc.do(ctx, http.MethodGet, verifyURL, nil, &result); err != nil {
		return nil, fmt.Errorf("failed to verify transaction: %w", err)
	}

	if !result.Status || result.Message != "verification successful" {
		return &result, fmt.Errorf("reference %s: %w", reference, apperrors.ErrVerificationFailed)
	}
	return &result, nil
}

// InitiatePayout sends money out to a destination account. Idempotent by
// reference on the rail side.
func (gc *GatewayClient) InitiatePayout(ctx context.Context, req PayoutRequest) (*PayoutResponse, error) {
	if req.NotificationURL == "" {
		req.NotificationURL = gc.notificationURL
	}

	var result PayoutResponse
	if err := gc.do(ctx, http.MethodPost, gc.baseURL+"/api/v1/payout", req, &result); err != nil {
		return nil, fmt.Errorf("failed to initiate payout: %w", err)
	}
	return &result, nil
}
