package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated            = "order.created"
	EventOrderStatusChanged      = "order.status_changed"
	EventPaymentStatusChanged    = "order.payment_status_changed"
	EventRecurringOrderGenerated = "order.recurring_generated"
)

type OrderCreatedEvent struct {
	OrderID      uint64          `json:"orderId"`
	UserID       uint64          `json:"userId"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	DeliveryDate Day             `json:"deliveryDate"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type OrderStatusChangedEvent struct {
	OrderID   uint64      `json:"orderId"`
	From      OrderStatus `json:"from"`
	To        OrderStatus `json:"to"`
	ChangedAt time.Time   `json:"changedAt"`
}

type PaymentStatusChangedEvent struct {
	OrderID   uint64        `json:"orderId"`
	From      PaymentStatus `json:"from"`
	To        PaymentStatus `json:"to"`
	PaymentID string        `json:"paymentId,omitempty"`
	ChangedAt time.Time     `json:"changedAt"`
}

type RecurringOrderGeneratedEvent struct {
	TemplateOrderID uint64 `json:"templateOrderId"`
	OrderID         uint64 `json:"orderId"`
	DeliveryDate    Day    `json:"deliveryDate"`
}
