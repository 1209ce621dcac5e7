package service

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"momogate/internal/apperr"
	"momogate/internal/domain"
	"momogate/internal/models"
	"momogate/internal/repository"
	"momogate/internal/webhook"
)

type WebhookService struct {
	recorder repository.OutcomeRecorder
}

func NewWebhookService(recorder repository.OutcomeRecorder) *WebhookService {
	if recorder == nil {
		recorder = repository.LogRecorder{}
	}
	return &WebhookService{recorder: recorder}
}

// ProcessWebhook maps a verified gateway notification to an order outcome and records it.
// Code 200 means the payment completed; any other code means it failed.
func (s *WebhookService) ProcessWebhook(ctx context.Context, body []byte) (string, error) {
	var p webhook.Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return "", apperr.Validation("Invalid webhook payload")
	}
	if p.TransactionDetails == nil || p.TransactionDetails.OrderID == "" {
		return "", apperr.Validation("Webhook payload is missing order_id")
	}
	orderID := p.TransactionDetails.OrderID

	status := domain.OutcomeFailed
	if p.Code == http.StatusOK {
		status = domain.OutcomeCompleted
	}

	logger := zerolog.Ctx(ctx)
	ev := logger.Info()
	if status == domain.OutcomeFailed {
		ev = logger.Warn()
	}
	ev.Str("order_id", orderID).
		Str("reference", p.TransactionDetails.ReferenceID).
		Int("code", p.Code).
		Str("status", status).
		Msg("payment notification")

	err := s.recorder.RecordPaymentOutcome(ctx, &models.PaymentOutcome{
		OrderID:     orderID,
		Status:      status,
		Reference:   p.TransactionDetails.ReferenceID,
		RawResponse: string(body),
	})
	if err != nil {
		return "", apperr.Internal("recording payment outcome", err)
	}
	return status, nil
}
