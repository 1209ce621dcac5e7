package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"momogate/config"
	"momogate/internal/apperr"
	"momogate/internal/middleware"
	"momogate/internal/service"
	"momogate/pkg/payment"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// PaymentOrchestrator is implemented by service.PaymentService.
type PaymentOrchestrator interface {
	InitiatePayment(ctx context.Context, in service.InitiateInput) (*service.InitiateResult, error)
	CheckStatus(ctx context.Context, orderID string) (*payment.OrderStatus, error)
}

type PaymentHandler struct {
	svc PaymentOrchestrator
	cfg *config.Config
}

func NewPaymentHandler(svc PaymentOrchestrator, cfg *config.Config) *PaymentHandler {
	return &PaymentHandler{svc: svc, cfg: cfg}
}

type initiateRequest struct {
	Amount      json.RawMessage        `json:"amount"`
	PhoneNumber string                 `json:"phoneNumber"`
	PlanName    string                 `json:"planName"`
	OrderID     string                 `json:"orderId"`
	Metadata    map[string]interface{} `json:"metadata"`
}

type initiateResponse struct {
	PaymentURL string      `json:"paymentUrl"`
	Reference  string      `json:"reference"`
	OrderID    string      `json:"orderId"`
	Amount     json.Number `json:"amount"`
	Status     string      `json:"status"`
}

// parseAmount accepts a JSON number or a numeric string. Anything else is zero, which fails validation.
func parseAmount(raw json.RawMessage) decimal.Decimal {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return decimal.Zero
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		s = strings.TrimSpace(str)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Initiate starts a mobile-money payment for one of the plans.
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req initiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("Invalid request body"))
		return
	}
	res, err := h.svc.InitiatePayment(c.Request.Context(), service.InitiateInput{
		Amount:      parseAmount(req.Amount),
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		OrderID:     req.OrderID,
		PlanName:    req.PlanName,
		Metadata:    req.Metadata,
		Caller: service.Caller{
			UserID:    middleware.GetUserID(c),
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Origin:    c.GetHeader("Origin"),
		},
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, "Payment initiated successfully", initiateResponse{
		PaymentURL: res.PaymentURL,
		Reference:  res.Reference,
		OrderID:    res.OrderID,
		Amount:     json.Number(res.Amount.String()),
		Status:     res.Status,
	})
}

type statusResponse struct {
	OrderID     string      `json:"orderId"`
	Status      string      `json:"status"`
	Amount      json.Number `json:"amount"`
	Currency    string      `json:"currency"`
	LastUpdated string      `json:"lastUpdated"`
	Reference   *string     `json:"reference"`
}

// Status reports the gateway's view of an order.
func (h *PaymentHandler) Status(c *gin.Context) {
	orderID := c.Param("orderId")
	st, err := h.svc.CheckStatus(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := statusResponse{
		OrderID:     orderID,
		Status:      st.Status,
		Amount:      json.Number(st.Amount.String()),
		Currency:    st.Currency,
		LastUpdated: st.Timestamp,
	}
	if st.Reference != "" {
		ref := st.Reference
		resp.Reference = &ref
	}
	respondSuccess(c, "Payment status retrieved", resp)
}

func configured(v string) string {
	if v == "" {
		return "MISSING"
	}
	return "***configured***"
}

// VerifyConfig reports which gateway settings are present without revealing them.
func (h *PaymentHandler) VerifyConfig(c *gin.Context) {
	apiURL := h.cfg.Swahilies.APIURL
	if apiURL == "" {
		apiURL = "MISSING"
	}
	c.JSON(http.StatusOK, gin.H{
		"apiKey":     configured(h.cfg.Swahilies.APIKey),
		"secretKey":  configured(h.cfg.Swahilies.SecretKey),
		"apiUrl":     apiURL,
		"env":        h.cfg.Server.Env,
		"live":       h.cfg.IsProduction(),
		"baseUrl":    h.cfg.Server.BaseURL,
		"webhookUrl": h.cfg.Server.BaseURL + payment.WebhookPath,
	})
}
