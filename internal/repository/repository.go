package repository

import (
	"context"
	"errors"

	"dairy-service/internal/domain"

	"github.com/shopspring/decimal"
)

// Find methods return (nil, nil) when the record does not exist.

type ProductFilter struct {
	Category   domain.Category
	ActiveOnly bool
}

type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id uint64) error
	FindByID(ctx context.Context, id uint64) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, error)
	Count(ctx context.Context) (int64, error)
}

// AvailabilityRepository stores per-day unit counts. Every mutation must be a
// single atomic statement against one (product, day) row.
type AvailabilityRepository interface {
	Get(ctx context.Context, productID uint64, day domain.Day) (int, error)
	ForProducts(ctx context.Context, productIDs []uint64, from, to domain.Day) (map[uint64]domain.Availability, error)
	Set(ctx context.Context, productID uint64, day domain.Day, units int) error
	// TryDecrement subtracts qty only if at least qty units remain and
	// reports whether it did.
	TryDecrement(ctx context.Context, productID uint64, day domain.Day, qty int) (bool, error)
	// DecrementFloor subtracts qty, flooring the stored count at zero.
	DecrementFloor(ctx context.Context, productID uint64, day domain.Day, qty int) error
	Increment(ctx context.Context, productID uint64, day domain.Day, qty int) error
	DeleteProduct(ctx context.Context, productID uint64) error
}

type OrderFilter struct {
	UserID        uint64
	Status        domain.OrderStatus
	PaymentStatus domain.PaymentStatus
	Limit         int
}

type OrderRepository interface {
	Save(ctx context.Context, order *domain.Order) error
	Update(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uint64) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, error)
	// FindRecurringDue returns recurring, non-cancelled orders whose next
	// delivery falls on day.
	FindRecurringDue(ctx context.Context, day domain.Day) ([]domain.Order, error)
	FindForDelivery(ctx context.Context, day domain.Day, statuses []domain.OrderStatus) ([]domain.Order, error)
	Count(ctx context.Context) (int64, error)
	SumTotals(ctx context.Context, paymentStatus domain.PaymentStatus) (decimal.Decimal, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, u *domain.User) error
	FindByID(ctx context.Context, id uint64) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByIDs(ctx context.Context, ids []uint64) (map[uint64]*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Count(ctx context.Context) (int64, error)
}

// ErrDuplicate is returned when a unique constraint rejects a write.
var ErrDuplicate = errors.New("duplicate record")
