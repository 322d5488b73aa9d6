package streampay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/partnerpay/backend/internal/config"
)

// Provider issues transfers through the StreamPay disbursement API. It
// implements payout.TransferClient.
type Provider struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

// NewProvider creates a new StreamPay provider
func NewProvider(cfg config.StreamPayConfig) *Provider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.streampay.io"
	}
	timeout := time.Duration(cfg.TimeoutS) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Provider{
		secretKey: cfg.SecretKey,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: timeout},
	}
}

// transferRequest is the StreamPay create-transfer payload
type transferRequest struct {
	Destination string            `json:"destination"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// transferResponse is the StreamPay create-transfer response
type transferResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	} `json:"data"`
}

// IssueTransfer sends one transfer to a connected account. The idempotency
// key is forwarded in the Idempotency-Key header so a retried call for the
// same transfer record cannot double-pay.
func (p *Provider) IssueTransfer(ctx context.Context, destination string, amount int64, currency string, idempotencyKey string, metadata map[string]string) (string, error) {
	reqBody := transferRequest{
		Destination: destination,
		Amount:      amount,
		Currency:    currency,
		Metadata:    metadata,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal transfer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/transfers", bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create transfer request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transfer request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read transfer response: %w", err)
	}

	var transferResp transferResponse
	if err := json.Unmarshal(body, &transferResp); err != nil {
		return "", fmt.Errorf("failed to parse transfer response (HTTP %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !transferResp.Status {
		msg := transferResp.Message
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return "", fmt.Errorf("transfer rejected: %s", msg)
	}
	if transferResp.Data.ID == "" {
		return "", fmt.Errorf("transfer response missing external id")
	}

	return transferResp.Data.ID, nil
}
