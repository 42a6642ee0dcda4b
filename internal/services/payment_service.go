package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dairy-service/internal/domain"
	"dairy-service/internal/infra/payment"
)

type PaymentIntentResult struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

type PaymentStatusResult struct {
	ID       string          `json:"id"`
	Status   string          `json:"status"`
	Amount   decimal.Decimal `json:"amount"`
	Created  int64           `json:"created"`
	Currency string          `json:"currency"`
}

type PaymentService struct {
	provider payment.Provider
	orders   *OrderService
	currency string
	log      *zap.SugaredLogger
}

func NewPaymentService(provider payment.Provider, orders *OrderService, currency string, log *zap.SugaredLogger) *PaymentService {
	return &PaymentService{
		provider: provider,
		orders:   orders,
		currency: currency,
		log:      log,
	}
}

// CreatePaymentIntent opens a payment for amount dollars. When orderID names
// an order the actor may access, the intent id is stored on it.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, actor *domain.User, amount decimal.Decimal, orderID *uint64) (*PaymentIntentResult, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}
	cents, err := toCents(amount)
	if err != nil {
		return nil, err
	}

	var order *domain.Order
	if orderID != nil {
		order, err = s.orders.orders.FindByID(ctx, *orderID)
		if err != nil {
			return nil, err
		}
		if order != nil {
			if err := authorize(order, actor); err != nil {
				return nil, err
			}
		}
	}

	orderRef := payment.NoOrder
	if orderID != nil {
		orderRef = strconv.FormatUint(*orderID, 10)
	}
	intent, err := s.provider.CreateIntent(ctx, payment.IntentParams{
		AmountCents: cents,
		Currency:    s.currency,
		Metadata: map[string]string{
			payment.MetadataOrderID: orderRef,
			payment.MetadataUserID:  strconv.FormatUint(actor.ID, 10),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	if order != nil {
		if err := s.attach(ctx, order.ID, intent.ID); err != nil {
			return nil, err
		}
	}

	s.log.Infow("payment intent created", "payment_id", intent.ID, "user_id", actor.ID, "order", orderRef, "amount_cents", cents)
	return &PaymentIntentResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
	}, nil
}

func (s *PaymentService) attach(ctx context.Context, orderID uint64, paymentID string) error {
	return s.orders.withOrderLock(ctx, orderID, func(order *domain.Order) error {
		order.PaymentID = paymentID
		return s.orders.orders.Update(ctx, order)
	})
}

// HandleWebhook applies a processor notification. Nothing is read or
// written before the signature checks out. Only the payment status of the
// referenced order is ever changed.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	event, err := s.provider.ConstructEvent(body, signature)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			s.log.Warnw("rejected webhook", "error", err)
			return err
		}
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var status domain.PaymentStatus
	switch event.Type {
	case payment.EventPaymentSucceeded:
		status = domain.PaymentPaid
	case payment.EventPaymentFailed:
		status = domain.PaymentFailed
	default:
		s.log.Infow("unhandled webhook event", "event_id", event.ID, "type", event.Type)
		return nil
	}

	intent, err := event.Intent()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	orderID, ok := intent.OrderID()
	if !ok {
		s.log.Infow("webhook without order reference", "event_id", event.ID, "payment_id", intent.ID)
		return nil
	}

	paymentID := ""
	if status == domain.PaymentPaid {
		paymentID = intent.ID
	}
	return s.applyStatus(ctx, orderID, status, paymentID, event.Type)
}

func (s *PaymentService) PaymentStatus(ctx context.Context, actor *domain.User, paymentID string) (*PaymentStatusResult, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}
	intent, err := s.provider.RetrieveIntent(ctx, paymentID)
	if err != nil {
		if errors.Is(err, payment.ErrIntentNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if !actor.IsAdmin() && intent.UserID() != strconv.FormatUint(actor.ID, 10) {
		return nil, ErrForbidden
	}

	return &PaymentStatusResult{
		ID:       intent.ID,
		Status:   intent.Status,
		Amount:   decimal.New(intent.Amount, -2),
		Created:  intent.Created,
		Currency: intent.Currency,
	}, nil
}

// RefundPayment refunds amount, or everything when amount is nil, and marks
// the referenced order refunded. The intent is resolved before any money
// moves.
func (s *PaymentService) RefundPayment(ctx context.Context, paymentID string, amount *decimal.Decimal, reason string) (*payment.Refund, error) {
	params := payment.RefundParams{
		PaymentIntentID: paymentID,
		Reason:          reason,
	}
	if params.Reason == "" {
		params.Reason = payment.ReasonRequestedByCustomer
	}
	if amount != nil {
		cents, err := toCents(*amount)
		if err != nil {
			return nil, err
		}
		params.AmountCents = cents
	}

	intent, err := s.provider.RetrieveIntent(ctx, paymentID)
	if err != nil {
		if errors.Is(err, payment.ErrIntentNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("retrieve payment %s: %w", paymentID, err)
	}
	orderID, hasOrder := intent.OrderID()

	refund, err := s.provider.Refund(ctx, params)
	if err != nil {
		if errors.Is(err, payment.ErrIntentNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("refund payment %s: %w", paymentID, err)
	}

	if hasOrder {
		if err := s.applyStatus(ctx, orderID, domain.PaymentRefunded, "", "refund"); err != nil {
			return nil, err
		}
	}

	s.log.Infow("payment refunded", "payment_id", paymentID, "refund_id", refund.ID, "amount_cents", refund.Amount)
	return refund, nil
}

// applyStatus tolerates orders that are gone or already past the target
// status. Processor notifications are retried and may arrive out of order.
func (s *PaymentService) applyStatus(ctx context.Context, orderID uint64, status domain.PaymentStatus, paymentID, source string) error {
	_, err := s.orders.UpdatePaymentStatus(ctx, orderID, status, paymentID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrOrderNotFound):
		s.log.Warnw("payment references unknown order", "order_id", orderID, "source", source)
		return nil
	case errors.Is(err, ErrInvalidTransition):
		s.log.Warnw("ignored payment status change", "order_id", orderID, "source", source, "error", err)
		return nil
	default:
		return err
	}
}

func toCents(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, ErrInvalidAmount
	}
	cents := amount.Shift(2).Round(0).IntPart()
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}
