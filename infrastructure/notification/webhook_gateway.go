package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"sentinel/domain/core/entities"
	"sentinel/pkg/errors"

	"go.uber.org/zap"
)

// WebhookPayload is the body posted for every notification
type WebhookPayload struct {
	To       string `json:"to"`
	Name     string `json:"name"`
	Relation string `json:"relation,omitempty"`
	Message  string `json:"message"`
	SentAt   string `json:"sent_at"`
}

// WebhookGateway posts every notification to an SMS provider webhook
type WebhookGateway struct {
	url    string
	token  string
	client *http.Client
	logger *zap.Logger
}

// NewWebhookGateway creates a webhook gateway. token is sent as a bearer
// token when set.
func NewWebhookGateway(url, token string, timeout time.Duration, logger *zap.Logger) *WebhookGateway {
	return &WebhookGateway{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: timeout},
		logger: logger.Named("webhook"),
	}
}

// Send implements ports.NotificationGateway
func (g *WebhookGateway) Send(ctx context.Context, contact entities.EmergencyContact, message string) error {
	body, err := json.Marshal(WebhookPayload{
		To:       contact.Phone,
		Name:     contact.DisplayName(),
		Relation: string(contact.Relation),
		Message:  message,
		SentAt:   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return errors.NewExternalError("sms-webhook", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.NewExternalError("sms-webhook", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	g.logger.Debug("Notification delivered", zap.String("to", contact.DisplayName()))
	return nil
}
