package handler

import (
	"context"
	"io"
	"net/http"

	"momogate/internal/apperr"
	"momogate/internal/webhook"
	"momogate/pkg/payment"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// WebhookProcessor is implemented by service.WebhookService.
type WebhookProcessor interface {
	ProcessWebhook(ctx context.Context, body []byte) (string, error)
}

type WebhookHandler struct {
	svc          WebhookProcessor
	maxBodyBytes int64
}

func NewWebhookHandler(svc WebhookProcessor, maxBodyBytes int64) *WebhookHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = payment.DefaultMaxBodyBytes
	}
	return &WebhookHandler{svc: svc, maxBodyBytes: maxBodyBytes}
}

// Handle verifies a gateway notification with strategy and processes it once verified.
// Processing errors are logged and acknowledged so the gateway does not resend.
func (h *WebhookHandler) Handle(strategy webhook.Strategy) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		logger := zerolog.Ctx(ctx).With().Str("scheme", strategy.Scheme()).Logger()

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxBodyBytes+1))
		if err == nil && int64(len(body)) > h.maxBodyBytes {
			err = apperr.Validation("webhook body exceeds maximum size")
		}
		if err != nil {
			logger.Warn().Err(err).Msg("webhook body unreadable")
			h.reject(c, strategy)
			return
		}
		logger.Info().
			Interface("headers", payment.RedactHeaders(c.Request.Header)).
			Int("bytes", len(body)).
			Msg("webhook received")

		in := webhook.Inbound{Body: body, Header: c.Request.Header, RemoteIP: c.ClientIP()}
		if err := strategy.Verify(in); err != nil {
			logger.Warn().Err(err).Str("remote_ip", in.RemoteIP).Msg("webhook signature rejected")
			h.reject(c, strategy)
			return
		}

		status, err := h.svc.ProcessWebhook(ctx, body)
		if err != nil {
			logger.Error().Err(err).Msg("webhook processing failed")
			respondSuccess(c, "Webhook received", nil)
			return
		}
		logger.Info().Str("status", status).Msg("webhook processed")
		respondSuccess(c, "Webhook processed", nil)
	}
}

func (h *WebhookHandler) reject(c *gin.Context, strategy webhook.Strategy) {
	if strategy.AckOnFailure() {
		respondSuccess(c, "Webhook received", nil)
		return
	}
	c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid webhook signature"})
}
