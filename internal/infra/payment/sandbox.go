package payment

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	StatusRequiresPaymentMethod = "requires_payment_method"
	StatusSucceeded             = "succeeded"
	StatusCanceled              = "canceled"
)

// Sandbox keeps intents in memory. It signs nothing itself; webhooks sent
// to the service still have to carry a valid signature.
type Sandbox struct {
	mu       sync.Mutex
	intents  map[string]*Intent
	refunds  []Refund
	verifier *Verifier
	now      func() time.Time
}

var _ Provider = (*Sandbox)(nil)

func NewSandbox(verifier *Verifier) *Sandbox {
	return &Sandbox{
		intents:  make(map[string]*Intent),
		verifier: verifier,
		now:      time.Now,
	}
}

func newID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (s *Sandbox) CreateIntent(_ context.Context, params IntentParams) (*Intent, error) {
	id := newID("pi_")
	metadata := make(map[string]string, len(params.Metadata))
	for k, v := range params.Metadata {
		metadata[k] = v
	}

	intent := &Intent{
		ID:           id,
		ClientSecret: id + "_secret_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		Amount:       params.AmountCents,
		Currency:     params.Currency,
		Status:       StatusRequiresPaymentMethod,
		Created:      s.now().Unix(),
		Metadata:     metadata,
	}

	s.mu.Lock()
	s.intents[id] = intent
	s.mu.Unlock()

	out := *intent
	return &out, nil
}

func (s *Sandbox) RetrieveIntent(_ context.Context, id string) (*Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.intents[id]
	if !ok {
		return nil, ErrIntentNotFound
	}
	out := *intent
	return &out, nil
}

func (s *Sandbox) Refund(_ context.Context, params RefundParams) (*Refund, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.intents[params.PaymentIntentID]
	if !ok {
		return nil, ErrIntentNotFound
	}

	amount := params.AmountCents
	if amount <= 0 || amount > intent.Amount {
		amount = intent.Amount
	}
	refund := Refund{
		ID:            newID("re_"),
		PaymentIntent: intent.ID,
		Amount:        amount,
		Currency:      intent.Currency,
		Status:        StatusSucceeded,
		Reason:        params.Reason,
	}
	s.refunds = append(s.refunds, refund)
	return &refund, nil
}

func (s *Sandbox) ConstructEvent(payload []byte, signatureHeader string) (*Event, error) {
	return s.verifier.ConstructEvent(payload, signatureHeader)
}

// Settle marks an intent as paid or declined, as the processor would after
// the customer confirms it.
func (s *Sandbox) Settle(id string, succeeded bool) (*Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.intents[id]
	if !ok {
		return nil, ErrIntentNotFound
	}
	if succeeded {
		intent.Status = StatusSucceeded
	} else {
		intent.Status = StatusRequiresPaymentMethod
	}
	out := *intent
	return &out, nil
}

func (s *Sandbox) Refunds() []Refund {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Refund(nil), s.refunds...)
}
