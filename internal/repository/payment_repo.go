package repository

import (
	"context"

	"momogate/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OutcomeRecorder persists the latest known state of an order.
type OutcomeRecorder interface {
	RecordPaymentOutcome(ctx context.Context, o *models.PaymentOutcome) error
}

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// RecordPaymentOutcome inserts the outcome or updates the row with the same order id.
// Empty reference and zero amount leave the stored values untouched.
func (r *PaymentRepository) RecordPaymentOutcome(ctx context.Context, o *models.PaymentOutcome) error {
	updates := []string{"status", "raw_response", "updated_at"}
	if o.Reference != "" {
		updates = append(updates, "reference")
	}
	if !o.Amount.IsZero() {
		updates = append(updates, "amount")
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns(updates),
	}).Create(o).Error
}

// LogRecorder writes outcomes to the request logger only. Used when no database is configured.
type LogRecorder struct{}

func (LogRecorder) RecordPaymentOutcome(ctx context.Context, o *models.PaymentOutcome) error {
	zerolog.Ctx(ctx).Info().
		Str("order_id", o.OrderID).
		Str("status", o.Status).
		Str("reference", o.Reference).
		Str("amount", o.Amount.String()).
		Msg("payment outcome")
	return nil
}
