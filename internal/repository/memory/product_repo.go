package memory

import (
	"context"
	"errors"
	"sort"

	"dairy-service/internal/domain"
	"dairy-service/internal/repository"
)

type productRepo struct {
	s *Store
}

func (r *productRepo) Create(_ context.Context, p *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextProductID++
	p.ID = r.s.nextProductID
	p.CreatedAt = r.s.now()
	p.UpdatedAt = p.CreatedAt
	stored := *p
	stored.Availability = nil
	r.s.products[p.ID] = stored
	return nil
}

func (r *productRepo) Update(_ context.Context, p *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[p.ID]; !ok {
		return errors.New("product does not exist")
	}
	p.UpdatedAt = r.s.now()
	stored := *p
	stored.Availability = nil
	r.s.products[p.ID] = stored
	return nil
}

func (r *productRepo) Delete(_ context.Context, id uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.products, id)
	return nil
}

func (r *productRepo) FindByID(_ context.Context, id uint64) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *productRepo) List(_ context.Context, filter repository.ProductFilter) ([]domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.Product
	for _, p := range r.s.products {
		if filter.ActiveOnly && !p.Active {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *productRepo) Count(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return int64(len(r.s.products)), nil
}
