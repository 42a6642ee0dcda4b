// Package memory holds process-local repositories. They back the "memory"
// database driver for local runs and the workflow tests.
package memory

import (
	"sync"
	"time"

	"dairy-service/internal/domain"
	"dairy-service/internal/repository"
)

type availabilityKey struct {
	productID uint64
	day       domain.Day
}

type Store struct {
	mu sync.Mutex

	nextProductID uint64
	nextOrderID   uint64
	nextItemID    uint64
	nextUserID    uint64

	products     map[uint64]domain.Product
	availability map[availabilityKey]int
	orders       map[uint64]domain.Order
	users        map[uint64]domain.User

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		products:     make(map[uint64]domain.Product),
		availability: make(map[availabilityKey]int),
		orders:       make(map[uint64]domain.Order),
		users:        make(map[uint64]domain.User),
		now:          time.Now,
	}
}

func (s *Store) Products() repository.ProductRepository {
	return &productRepo{s: s}
}

func (s *Store) Availability() repository.AvailabilityRepository {
	return &availabilityRepo{s: s}
}

func (s *Store) Orders() repository.OrderRepository {
	return &orderRepo{s: s}
}

func (s *Store) Users() repository.UserRepository {
	return &userRepo{s: s}
}

func copyOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.LineItem(nil), o.Items...)
	if o.NextDeliveryDate != nil {
		next := *o.NextDeliveryDate
		o.NextDeliveryDate = &next
	}
	if o.TemplateOrderID != nil {
		id := *o.TemplateOrderID
		o.TemplateOrderID = &id
	}
	return o
}
