package memory

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"dairy-service/internal/domain"
	"dairy-service/internal/repository"
)

type orderRepo struct {
	s *Store
}

func (r *orderRepo) Save(_ context.Context, order *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextOrderID++
	order.ID = r.s.nextOrderID
	for i := range order.Items {
		r.s.nextItemID++
		order.Items[i].ID = r.s.nextItemID
		order.Items[i].OrderID = order.ID
	}
	order.CreatedAt = r.s.now()
	order.UpdatedAt = order.CreatedAt
	r.s.orders[order.ID] = copyOrder(*order)
	return nil
}

func (r *orderRepo) Update(_ context.Context, order *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.orders[order.ID]
	if !ok {
		return errors.New("order does not exist")
	}
	order.UpdatedAt = r.s.now()
	updated := copyOrder(*order)
	updated.Items = existing.Items
	r.s.orders[order.ID] = updated
	return nil
}

func (r *orderRepo) FindByID(_ context.Context, id uint64) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	o = copyOrder(o)
	return &o, nil
}

func (r *orderRepo) List(_ context.Context, filter repository.OrderFilter) ([]domain.Order, error) {
	out := r.filter(func(o domain.Order) bool {
		if filter.UserID != 0 && o.UserID != filter.UserID {
			return false
		}
		if filter.Status != "" && o.Status != filter.Status {
			return false
		}
		if filter.PaymentStatus != "" && o.PaymentStatus != filter.PaymentStatus {
			return false
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *orderRepo) FindRecurringDue(_ context.Context, day domain.Day) ([]domain.Order, error) {
	out := r.filter(func(o domain.Order) bool {
		return o.Recurring && o.NextDeliveryDate != nil && *o.NextDeliveryDate == day && o.Status != domain.StatusCancelled
	})
	sortByID(out)
	return out, nil
}

func (r *orderRepo) FindForDelivery(_ context.Context, day domain.Day, statuses []domain.OrderStatus) ([]domain.Order, error) {
	out := r.filter(func(o domain.Order) bool {
		if o.DeliveryDate != day {
			return false
		}
		for _, s := range statuses {
			if o.Status == s {
				return true
			}
		}
		return false
	})
	sortByID(out)
	return out, nil
}

func (r *orderRepo) Count(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return int64(len(r.s.orders)), nil
}

func (r *orderRepo) SumTotals(_ context.Context, paymentStatus domain.PaymentStatus) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, o := range r.filter(func(o domain.Order) bool { return o.PaymentStatus == paymentStatus }) {
		total = total.Add(o.TotalAmount)
	}
	return total, nil
}

func (r *orderRepo) filter(keep func(domain.Order) bool) []domain.Order {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.Order
	for _, o := range r.s.orders {
		if keep(o) {
			out = append(out, copyOrder(o))
		}
	}
	return out
}

func sortByID(orders []domain.Order) {
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
}
