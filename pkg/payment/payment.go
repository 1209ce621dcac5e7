package payment

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Operation codes understood by the Swahilies API.
const (
	APIVersion = 170

	CodeMobileMoney    = 104
	CodeCardPayment    = 107
	CodeReconciliation = 103
	CodeOrderStatus    = 105
)

// Order states reported by CheckOrderStatus.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusUnknown   = "unknown"
)

const DefaultCurrency = "TZS"

type PaymentRequest struct {
	Amount      decimal.Decimal
	PhoneNumber string // e.g. 255754808161
	OrderID     string // generated as order_<epoch ms> when empty
	PlanName    string
	Metadata    map[string]interface{}
}

// PaymentResult is only built from a gateway response that passed every check.
type PaymentResult struct {
	Success     bool            `json:"success"`
	Reference   string          `json:"reference"`
	PaymentURL  string          `json:"paymentUrl"`
	OrderID     string          `json:"orderId"`
	Amount      decimal.Decimal `json:"amount"`
	RawResponse json.RawMessage `json:"rawResponse"`
}

type OrderStatus struct {
	OrderID     string          `json:"orderId"`
	Status      string          `json:"status"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Timestamp   string          `json:"timestamp"`
	Reference   string          `json:"reference"`
	RawResponse json.RawMessage `json:"rawResponse,omitempty"`
}

// Provider is the gateway surface the payment service depends on.
type Provider interface {
	Validate(req PaymentRequest) error
	InitiatePayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error)
	CheckOrderStatus(ctx context.Context, orderID string) (*OrderStatus, error)
}
