package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RecurrenceType string

const (
	RecurrenceNone     RecurrenceType = "none"
	RecurrenceWeekly   RecurrenceType = "weekly"
	RecurrenceBiweekly RecurrenceType = "biweekly"
)

func (r RecurrenceType) Valid() bool {
	switch r {
	case RecurrenceNone, RecurrenceWeekly, RecurrenceBiweekly:
		return true
	}
	return false
}

// PeriodDays is 0 for RecurrenceNone.
func (r RecurrenceType) PeriodDays() int {
	switch r {
	case RecurrenceWeekly:
		return 7
	case RecurrenceBiweekly:
		return 14
	}
	return 0
}

// LineItem is a snapshot of the product at the time the order was placed.
// Later catalog edits never change it.
type LineItem struct {
	ID        uint64          `json:"-" gorm:"primaryKey;autoIncrement"`
	OrderID   uint64          `json:"-" gorm:"not null;index"`
	ProductID uint64          `json:"product_id" gorm:"not null;index"`
	Name      string          `json:"name" gorm:"size:255"`
	Size      Size            `json:"size" gorm:"size:32"`
	Category  Category        `json:"category" gorm:"size:32"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
}

func (LineItem) TableName() string {
	return "order_items"
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type Order struct {
	ID               uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID           uint64          `json:"user_id" gorm:"not null;index"`
	Items            []LineItem      `json:"products" gorm:"foreignKey:OrderID"`
	OrderDate        time.Time       `json:"order_date" gorm:"not null"`
	DeliveryDate     Day             `json:"delivery_date" gorm:"not null;index"`
	TotalAmount      decimal.Decimal `json:"total_amount" gorm:"type:decimal(10,2);not null"`
	PaymentStatus    PaymentStatus   `json:"payment_status" gorm:"type:enum('pending','paid','failed','refunded');not null;default:'pending'"`
	PaymentID        string          `json:"payment_id,omitempty" gorm:"size:255;index"`
	Status           OrderStatus     `json:"status" gorm:"type:enum('pending','processing','shipped','delivered','cancelled');not null;default:'pending';index"`
	Recurring        bool            `json:"recurring" gorm:"not null"`
	RecurringType    RecurrenceType  `json:"recurring_type" gorm:"type:enum('weekly','biweekly','none');not null;default:'none'"`
	NextDeliveryDate *Day            `json:"next_delivery_date,omitempty" gorm:"index"`
	TemplateOrderID  *uint64         `json:"template_order_id,omitempty" gorm:"index"`
	DeliveryAddress  Address         `json:"delivery_address" gorm:"embedded;embeddedPrefix:delivery_"`
	Notes            string          `json:"notes,omitempty" gorm:"type:text"`
	CreatedAt        time.Time       `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt        time.Time       `json:"updatedAt" gorm:"autoUpdateTime"`
}

// RecalculateTotal keeps TotalAmount equal to the sum of line item subtotals.
func (o *Order) RecalculateTotal() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	o.TotalAmount = total
}

// ScheduleNext derives NextDeliveryDate from DeliveryDate. It is only set
// when the order recurs.
func (o *Order) ScheduleNext() {
	period := o.RecurringType.PeriodDays()
	if !o.Recurring || period == 0 {
		o.NextDeliveryDate = nil
		return
	}
	next := o.DeliveryDate.AddDays(period)
	o.NextDeliveryDate = &next
}

// AdvanceSchedule moves NextDeliveryDate forward by one recurrence period.
func (o *Order) AdvanceSchedule() {
	period := o.RecurringType.PeriodDays()
	if !o.Recurring || period == 0 {
		return
	}
	base := o.DeliveryDate
	if o.NextDeliveryDate != nil {
		base = *o.NextDeliveryDate
	}
	next := base.AddDays(period)
	o.NextDeliveryDate = &next
}

func (o *Order) OwnedBy(userID uint64) bool {
	return o.UserID == userID
}
