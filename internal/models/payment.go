package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentOutcome is the last known state of an order, keyed by the order id sent to the gateway.
type PaymentOutcome struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     string          `gorm:"size:255;not null;uniqueIndex" json:"order_id"`
	Status      string          `gorm:"size:20;not null;index" json:"status"` // pending, completed, failed
	Reference   string          `gorm:"size:255;index" json:"reference"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,2)" json:"amount"`
	RawResponse string          `gorm:"type:text" json:"raw_response"` // JSON
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (PaymentOutcome) TableName() string {
	return "payment_outcomes"
}
