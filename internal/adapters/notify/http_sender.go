package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/payng/fee-payment-service/internal/domain"
	"github.com/payng/fee-payment-service/internal/domain/models"
	"github.com/payng/fee-payment-service/internal/domain/ports"
)

const requestTimeout = 10 * time.Second

// Sender implements ports.ChannelSender by posting receipt notifications to
// the notification service. One Sender per channel; the channel name picks
// the downstream template and transport.
type Sender struct {
	baseURL    string
	apiKey     string
	channel    models.DeliveryChannel
	httpClient ports.HTTPClient
	logger     ports.Logger
}

// NewSender creates a sender for one delivery channel
func NewSender(baseURL, apiKey string, channel models.DeliveryChannel, httpClient ports.HTTPClient, logger ports.Logger) *Sender {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &Sender{
		baseURL:    baseURL,
		apiKey:     apiKey,
		channel:    channel,
		httpClient: httpClient,
		logger:     logger,
	}
}

type notification struct {
	Channel   string             `json:"channel"`
	Recipient string             `json:"recipient"`
	Template  string             `json:"template"`
	Receipt   models.ReceiptData `json:"receipt"`
}

// Send posts the receipt to the notification service for delivery.
func (s *Sender) Send(ctx context.Context, recipient string, data models.ReceiptData) error {
	payload, err := json.Marshal(notification{
		Channel:   string(s.channel),
		Recipient: recipient,
		Template:  "fee_receipt",
		Receipt:   data,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/internal/notifications", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeInternalError, "notification service unreachable", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return domain.NewDomainError(domain.ErrorCodeInternalError, "notification request rejected").
			WithDetail("channel", string(s.channel)).
			WithDetail("status_code", resp.StatusCode)
	}
	return nil
}
