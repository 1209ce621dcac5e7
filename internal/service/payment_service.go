package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"momogate/internal/apperr"
	"momogate/internal/domain"
	"momogate/internal/models"
	"momogate/internal/repository"
	"momogate/pkg/payment"
)

// Caller describes who asked for a payment. It is forwarded to the gateway as metadata.
type Caller struct {
	UserID    string
	IP        string
	UserAgent string
	Origin    string
}

type InitiateInput struct {
	Amount      decimal.Decimal
	PhoneNumber string
	OrderID     string
	PlanName    string
	Metadata    map[string]interface{}
	Caller      Caller
}

type InitiateResult struct {
	PaymentURL string
	Reference  string
	OrderID    string
	Amount     decimal.Decimal
	Status     string
}

type PaymentService struct {
	provider payment.Provider
	recorder repository.OutcomeRecorder
	now      func() time.Time
}

func NewPaymentService(provider payment.Provider, recorder repository.OutcomeRecorder) *PaymentService {
	if recorder == nil {
		recorder = repository.LogRecorder{}
	}
	return &PaymentService{provider: provider, recorder: recorder, now: time.Now}
}

// InitiatePayment checks the plan and the gateway rules together, then asks the gateway for a mobile-money push.
func (s *PaymentService) InitiatePayment(ctx context.Context, in InitiateInput) (*InitiateResult, error) {
	logger := zerolog.Ctx(ctx)
	start := s.now()

	orderID := strings.TrimSpace(in.OrderID)
	if orderID == "" {
		orderID = payment.NewOrderID(start)
	}
	req := payment.PaymentRequest{
		Amount:      in.Amount,
		PhoneNumber: in.PhoneNumber,
		OrderID:     orderID,
		PlanName:    in.PlanName,
		Metadata:    callerMetadata(in.Metadata, in.Caller),
	}
	if err := s.validate(req); err != nil {
		logger.Warn().Err(err).Str("phone", payment.MaskPhone(in.PhoneNumber)).Msg("payment request rejected")
		return nil, err
	}

	logger.Info().
		Str("plan", in.PlanName).
		Str("order_id", orderID).
		Str("amount", in.Amount.String()).
		Str("phone", payment.MaskPhone(in.PhoneNumber)).
		Msg("initiating payment")

	res, err := s.provider.InitiatePayment(ctx, req)
	if err != nil {
		logger.Error().Err(err).
			Str("order_id", orderID).
			Str("phone", payment.MaskPhone(in.PhoneNumber)).
			Dur("duration", s.now().Sub(start)).
			Msg("payment initiation failed")
		return nil, err
	}
	if !res.Success {
		return nil, apperr.Gateway("Payment initiation failed", nil)
	}

	if err := s.recorder.RecordPaymentOutcome(ctx, &models.PaymentOutcome{
		OrderID:     orderID,
		Status:      domain.OutcomePending,
		Reference:   res.Reference,
		Amount:      in.Amount,
		RawResponse: string(res.RawResponse),
	}); err != nil {
		// the gateway already accepted the order; a lost row must not fail the caller
		logger.Error().Err(err).Str("order_id", orderID).Msg("recording pending outcome failed")
	}

	logger.Info().
		Str("order_id", orderID).
		Str("reference", res.Reference).
		Dur("duration", s.now().Sub(start)).
		Msg("payment initiated")

	return &InitiateResult{
		PaymentURL: res.PaymentURL,
		Reference:  res.Reference,
		OrderID:    orderID,
		Amount:     in.Amount,
		Status:     domain.OutcomePending,
	}, nil
}

func (s *PaymentService) validate(req payment.PaymentRequest) error {
	var violations []string
	if !domain.IsValidPlan(req.PlanName) {
		violations = append(violations, "Plan must be one of: "+strings.Join(domain.Plans, ", "))
	}
	if err := s.provider.Validate(req); err != nil {
		var appErr *apperr.Error
		if !errors.As(err, &appErr) || appErr.Kind != apperr.KindValidation {
			return err
		}
		violations = append(violations, appErr.Violations...)
	}
	if len(violations) > 0 {
		return apperr.Validation("Invalid payment data", violations...)
	}
	return nil
}

func callerMetadata(extra map[string]interface{}, c Caller) map[string]interface{} {
	md := make(map[string]interface{}, len(extra)+4)
	for k, v := range extra {
		md[k] = v
	}
	md["userId"] = orDefault(c.UserID, domain.GuestUserID)
	md["ip"] = orDefault(c.IP, "unknown")
	md["userAgent"] = orDefault(c.UserAgent, "unknown")
	md["source"] = orDefault(c.Origin, "unknown")
	return md
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// CheckStatus returns the gateway's view of orderID.
func (s *PaymentService) CheckStatus(ctx context.Context, orderID string) (*payment.OrderStatus, error) {
	orderID = strings.TrimSpace(orderID)
	if len(orderID) < domain.MinOrderIDLength {
		return nil, apperr.Validation("Valid order ID is required")
	}
	zerolog.Ctx(ctx).Info().Str("order_id", orderID).Msg("checking payment status")

	st, err := s.provider.CheckOrderStatus(ctx, orderID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("order_id", orderID).Msg("status check failed")
		return nil, err
	}
	return st, nil
}
