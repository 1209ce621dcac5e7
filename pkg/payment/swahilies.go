package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"momogate/internal/apperr"
)

const (
	DefaultTimeout      = 20 * time.Second
	DefaultMaxBodyBytes = 1_000_000
	DefaultCountryCode  = "255"
	WebhookPath         = "/api/payments/webhook"
)

var ErrMissingAPIURL = errors.New("API URL is required")

// SwahiliesConfig is validated once by NewSwahiliesClient.
type SwahiliesConfig struct {
	APIKey         string
	SecretKey      string
	APIURL         string
	WebhookBaseURL string // this service's public base URL; webhooks land on <base>/api/payments/webhook
	Live           bool
	Timeout        time.Duration
	MaxBodyBytes   int64
	CountryCode    string
}

// SwahiliesClient talks to the Swahilies mobile-money API with signed requests.
type SwahiliesClient struct {
	cfg       SwahiliesConfig
	http      *http.Client
	validator *requestValidator
	now       func() time.Time
}

func NewSwahiliesClient(cfg SwahiliesConfig) (*SwahiliesClient, error) {
	return NewSwahiliesClientWithTransport(cfg, nil)
}

// NewSwahiliesClientWithTransport signs on top of base; a nil base uses http.DefaultTransport.
func NewSwahiliesClientWithTransport(cfg SwahiliesConfig, base http.RoundTripper) (*SwahiliesClient, error) {
	var missing []string
	if cfg.APIKey == "" {
		missing = append(missing, ErrMissingAPIKey.Error())
	}
	if cfg.SecretKey == "" {
		missing = append(missing, ErrMissingSecretKey.Error())
	}
	if cfg.APIURL == "" {
		missing = append(missing, ErrMissingAPIURL.Error())
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(missing, ", "))
	}
	if _, err := url.ParseRequestURI(cfg.APIURL); err != nil {
		return nil, fmt.Errorf("invalid configuration: API URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.CountryCode == "" {
		cfg.CountryCode = DefaultCountryCode
	}
	cfg.WebhookBaseURL = strings.TrimRight(cfg.WebhookBaseURL, "/")

	signer, err := NewSigner(cfg.APIKey, cfg.SecretKey)
	if err != nil {
		return nil, err
	}
	rv, err := newRequestValidator(cfg.CountryCode)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: country code: %w", err)
	}
	return &SwahiliesClient{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &Transport{Signer: signer, Base: base},
		},
		validator: rv,
		now:       time.Now,
	}, nil
}

// WebhookURL is the callback address announced to the gateway.
func (c *SwahiliesClient) WebhookURL() string {
	return c.cfg.WebhookBaseURL + WebhookPath
}

type gatewayPayload struct {
	API  int         `json:"api"`
	Code int         `json:"code"`
	Data interface{} `json:"data"`
}

type mobileMoneyData struct {
	APIKey      string                 `json:"api_key"`
	OrderID     string                 `json:"order_id"`
	Amount      json.Number            `json:"amount"`
	PhoneNumber string                 `json:"phone_number"`
	IsLive      bool                   `json:"is_live"`
	WebhookURL  string                 `json:"webhook_url"`
	Metadata    map[string]interface{} `json:"metadata"`
}

type orderStatusData struct {
	APIKey  string `json:"api_key"`
	OrderID string `json:"order_id"`
}

type transactionDetails struct {
	OrderID     string `json:"order_id"`
	ReferenceID string `json:"reference_id"`
	PaymentURL  string `json:"payment_url"`
}

type paymentResponse struct {
	Code               int                 `json:"code"`
	Msg                string              `json:"msg"`
	Amount             decimal.Decimal     `json:"amount"`
	TransactionDetails *transactionDetails `json:"transaction_details"`
}

type statusResponse struct {
	Code        *int            `json:"code"`
	Msg         string          `json:"msg"`
	State       string          `json:"state"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Timestamp   json.RawMessage `json:"timestamp"`
	ReferenceID string          `json:"reference_id"`
}

// Validate applies the gateway's amount and phone rules without calling it.
func (c *SwahiliesClient) Validate(req PaymentRequest) error {
	return c.validator.Check(req)
}

// NewOrderID returns the time-based token used when the caller supplies none.
func NewOrderID(now time.Time) string {
	return fmt.Sprintf("order_%d", now.UnixMilli())
}

// InitiatePayment requests a mobile-money push for req and returns the gateway reference.
func (c *SwahiliesClient) InitiatePayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	logger := zerolog.Ctx(ctx)
	if err := c.validator.Check(req); err != nil {
		logger.Warn().Err(err).Str("phone", MaskPhone(req.PhoneNumber)).Msg("payment data rejected")
		return nil, err
	}
	payload := c.buildPaymentPayload(req)
	data := payload.Data.(mobileMoneyData)

	logger.Info().
		Str("order_id", data.OrderID).
		Str("amount", req.Amount.String()).
		Str("phone", MaskPhone(data.PhoneNumber)).
		Msg("initiating mobile payment")

	body, err := c.post(ctx, "mobile_money", payload)
	if err != nil {
		logger.Error().Err(err).Str("order_id", data.OrderID).Msg("payment initiation failed")
		return nil, err
	}
	result, err := parsePaymentResponse(body, data.OrderID)
	if err != nil {
		logger.Error().Err(err).Str("order_id", data.OrderID).Str("response", string(body)).Msg("payment initiation rejected")
		return nil, err
	}
	logger.Info().
		Str("order_id", result.OrderID).
		Str("reference", result.Reference).
		Str("amount", result.Amount.String()).
		Msg("payment initiated")
	return result, nil
}

func (c *SwahiliesClient) buildPaymentPayload(req PaymentRequest) gatewayPayload {
	now := c.now()
	orderID := req.OrderID
	if orderID == "" {
		orderID = NewOrderID(now)
	}
	metadata := make(map[string]interface{}, len(req.Metadata)+4)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	for _, k := range []string{"ip", "userAgent"} {
		if _, ok := metadata[k]; !ok {
			metadata[k] = "unknown"
		}
	}
	if _, ok := metadata["source"]; !ok {
		metadata["source"] = "momogate"
	}
	metadata["timestamp"] = now.UTC().Format(time.RFC3339)

	return gatewayPayload{
		API:  APIVersion,
		Code: CodeMobileMoney,
		Data: mobileMoneyData{
			APIKey:      c.cfg.APIKey,
			OrderID:     orderID,
			Amount:      json.Number(req.Amount.String()),
			PhoneNumber: req.PhoneNumber,
			IsLive:      c.cfg.Live,
			WebhookURL:  c.WebhookURL(),
			Metadata:    metadata,
		},
	}
}

func parsePaymentResponse(body []byte, orderID string) (*PaymentResult, error) {
	var resp paymentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperr.Gateway("Invalid API response structure", err)
	}
	if resp.Code != http.StatusOK {
		msg := resp.Msg
		if msg == "" {
			msg = fmt.Sprintf("Payment failed with code %d", resp.Code)
		}
		return nil, apperr.Gateway(msg, nil)
	}
	if resp.TransactionDetails == nil || resp.TransactionDetails.ReferenceID == "" {
		return nil, apperr.Gateway("Missing transaction reference in response", nil)
	}
	return &PaymentResult{
		Success:     true,
		Reference:   resp.TransactionDetails.ReferenceID,
		PaymentURL:  resp.TransactionDetails.PaymentURL,
		OrderID:     orderID,
		Amount:      resp.Amount,
		RawResponse: json.RawMessage(body),
	}, nil
}

// CheckOrderStatus asks the gateway for the state of orderID. Missing fields get defaults.
func (c *SwahiliesClient) CheckOrderStatus(ctx context.Context, orderID string) (*OrderStatus, error) {
	logger := zerolog.Ctx(ctx)
	if strings.TrimSpace(orderID) == "" {
		return nil, apperr.Validation("Invalid order ID")
	}
	logger.Debug().Str("order_id", orderID).Msg("checking order status")

	body, err := c.post(ctx, "order_status", gatewayPayload{
		API:  APIVersion,
		Code: CodeOrderStatus,
		Data: orderStatusData{APIKey: c.cfg.APIKey, OrderID: orderID},
	})
	if err != nil {
		logger.Error().Err(err).Str("order_id", orderID).Msg("order status check failed")
		return nil, err
	}

	var resp statusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperr.Gateway("Invalid status response format", err)
	}
	if resp.Code != nil && *resp.Code == http.StatusNotFound {
		return nil, apperr.NotFound("Payment status not found")
	}

	status := &OrderStatus{
		OrderID:     orderID,
		Status:      normalizeState(resp.State),
		Amount:      resp.Amount,
		Currency:    resp.Currency,
		Timestamp:   rawString(resp.Timestamp),
		Reference:   resp.ReferenceID,
		RawResponse: json.RawMessage(body),
	}
	if status.Currency == "" {
		status.Currency = DefaultCurrency
	}
	if status.Timestamp == "" {
		status.Timestamp = c.now().UTC().Format(time.RFC3339)
	}
	return status, nil
}

func normalizeState(state string) string {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "pending", "processing", "initiated":
		return StatusPending
	case "completed", "success", "successful", "paid":
		return StatusCompleted
	case "failed", "cancelled", "canceled", "expired", "rejected":
		return StatusFailed
	default:
		return StatusUnknown
	}
}

// rawString accepts a JSON string or number and returns its text.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// post sends one signed call and returns the response body of a 2xx answer.
func (c *SwahiliesClient) post(ctx context.Context, operation string, payload gatewayPayload) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperr.Internal("unable to encode gateway payload", err)
	}
	if int64(len(body)) > c.cfg.MaxBodyBytes {
		return nil, apperr.Validation("Request payload exceeds maximum size")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Internal("malformed gateway request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		normalized := normalizeTransportError(err)
		observe(operation, apperr.KindOf(normalized).String(), start)
		return nil, normalized
	}
	defer resp.Body.Close()

	respBody, err := readLimited(resp.Body, c.cfg.MaxBodyBytes)
	if err != nil {
		normalized := normalizeTransportError(err)
		observe(operation, apperr.KindOf(normalized).String(), start)
		return nil, normalized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		observe(operation, "http_error", start)
		zerolog.Ctx(ctx).Warn().
			Int("response_status", resp.StatusCode).
			Str("body", string(respBody)).
			Msg("failed gateway call")
		return nil, apperr.Gateway(errorMessage(respBody, resp.StatusCode), nil)
	}
	observe(operation, "ok", start)
	return respBody, nil
}

var errBodyTooLarge = errors.New("response exceeds maximum size")

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, errBodyTooLarge
	}
	return b, nil
}

func errorMessage(body []byte, status int) string {
	var e struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(body, &e) == nil && e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("API Error: %d", status)
}

func normalizeTransportError(err error) error {
	if errors.Is(err, errBodyTooLarge) {
		return apperr.Gateway(errBodyTooLarge.Error(), err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Timeout("payment gateway timeout", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperr.Timeout("payment gateway timeout", err)
	}
	if errors.Is(err, context.Canceled) {
		return apperr.Internal("gateway request cancelled", err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return apperr.Gateway("No response received from payment gateway", err)
	}
	return apperr.Internal("", err)
}
