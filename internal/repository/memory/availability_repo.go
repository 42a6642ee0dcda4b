package memory

import (
	"context"

	"dairy-service/internal/domain"
)

type availabilityRepo struct {
	s *Store
}

func (r *availabilityRepo) Get(_ context.Context, productID uint64, day domain.Day) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.s.availability[availabilityKey{productID, day}], nil
}

func (r *availabilityRepo) ForProducts(_ context.Context, productIDs []uint64, from, to domain.Day) (map[uint64]domain.Availability, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	wanted := make(map[uint64]bool, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = true
	}

	out := make(map[uint64]domain.Availability, len(productIDs))
	for key, units := range r.s.availability {
		if !wanted[key.productID] || key.day < from || key.day > to {
			continue
		}
		if out[key.productID] == nil {
			out[key.productID] = domain.Availability{}
		}
		out[key.productID][key.day] = units
	}
	return out, nil
}

func (r *availabilityRepo) Set(_ context.Context, productID uint64, day domain.Day, units int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.availability[availabilityKey{productID, day}] = units
	return nil
}

func (r *availabilityRepo) TryDecrement(_ context.Context, productID uint64, day domain.Day, qty int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := availabilityKey{productID, day}
	units, ok := r.s.availability[key]
	if !ok || units < qty {
		return false, nil
	}
	r.s.availability[key] = units - qty
	return true, nil
}

func (r *availabilityRepo) DecrementFloor(_ context.Context, productID uint64, day domain.Day, qty int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := availabilityKey{productID, day}
	units, ok := r.s.availability[key]
	if !ok {
		return nil
	}
	units -= qty
	if units < 0 {
		units = 0
	}
	r.s.availability[key] = units
	return nil
}

func (r *availabilityRepo) Increment(_ context.Context, productID uint64, day domain.Day, qty int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.availability[availabilityKey{productID, day}] += qty
	return nil
}

func (r *availabilityRepo) DeleteProduct(_ context.Context, productID uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for key := range r.s.availability {
		if key.productID == productID {
			delete(r.s.availability, key)
		}
	}
	return nil
}
