package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrIntentNotFound   = errors.New("payment intent not found")
)

const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"

	MetadataOrderID = "order_id"
	MetadataUserID  = "user_id"
	NoOrder         = "no_order"

	ReasonRequestedByCustomer = "requested_by_customer"
)

// Provider is the payment processor the service reconciles against.
type Provider interface {
	CreateIntent(ctx context.Context, params IntentParams) (*Intent, error)
	RetrieveIntent(ctx context.Context, id string) (*Intent, error)
	Refund(ctx context.Context, params RefundParams) (*Refund, error)
	ConstructEvent(payload []byte, signatureHeader string) (*Event, error)
}

type IntentParams struct {
	AmountCents int64
	Currency    string
	Metadata    map[string]string
}

type RefundParams struct {
	PaymentIntentID string
	// AmountCents of zero refunds the full amount.
	AmountCents int64
	Reason      string
}

type Intent struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	Created      int64             `json:"created"`
	Metadata     map[string]string `json:"metadata"`
}

// OrderID reports the order an intent was created for, if any.
func (i *Intent) OrderID() (uint64, bool) {
	raw := i.Metadata[MetadataOrderID]
	if raw == "" || raw == NoOrder {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (i *Intent) UserID() string {
	return i.Metadata[MetadataUserID]
}

type Refund struct {
	ID            string `json:"id"`
	PaymentIntent string `json:"payment_intent"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	Reason        string `json:"reason"`
}

type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// Intent decodes the event's object as a payment intent.
func (e *Event) Intent() (*Intent, error) {
	var intent Intent
	if err := json.Unmarshal(e.Data.Object, &intent); err != nil {
		return nil, fmt.Errorf("decode %s object: %w", e.Type, err)
	}
	return &intent, nil
}
