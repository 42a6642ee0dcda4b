package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"dairy-service/internal/domain"
	"dairy-service/internal/repository"
)

// AvailabilityHorizon is how many days of stock are attached to product
// reads.
const AvailabilityHorizon = 30

// WindowDays is the length of the public availability matrix.
const WindowDays = 7

// ProductCache holds catalog records keyed by id. Get returns (nil, nil) on
// a miss.
type ProductCache interface {
	Get(ctx context.Context, id uint64) (*domain.Product, error)
	Set(ctx context.Context, p *domain.Product) error
	Invalidate(ctx context.Context, id uint64) error
}

type CreateProductInput struct {
	Name         string
	Size         domain.Size
	Price        decimal.Decimal
	Description  string
	ImageURL     string
	Category     domain.Category
	Active       *bool
	Availability domain.Availability
}

// UpdateProductInput leaves nil fields untouched. Availability is merged
// into the stored counts day by day.
type UpdateProductInput struct {
	Name         *string
	Size         *domain.Size
	Price        *decimal.Decimal
	Description  *string
	ImageURL     *string
	Category     *domain.Category
	Active       *bool
	Availability domain.Availability
}

type ProductService struct {
	products     repository.ProductRepository
	availability *AvailabilityService
	stock        repository.AvailabilityRepository
	cache        ProductCache
	group        singleflight.Group
	log          *zap.SugaredLogger
	now          func() time.Time
}

func NewProductService(
	products repository.ProductRepository,
	stock repository.AvailabilityRepository,
	availability *AvailabilityService,
	log *zap.SugaredLogger,
) *ProductService {
	return &ProductService{
		products:     products,
		stock:        stock,
		availability: availability,
		log:          log,
		now:          time.Now,
	}
}

// SetCache enables the read-through cache for GetProduct.
func (s *ProductService) SetCache(cache ProductCache) {
	s.cache = cache
}

func (s *ProductService) ListProducts(ctx context.Context, category domain.Category) ([]domain.Product, error) {
	if category != "" && !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrValidation, category)
	}
	products, err := s.products.List(ctx, repository.ProductFilter{Category: category, ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	if err := s.attachAvailability(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id uint64) (*domain.Product, error) {
	v, err, _ := s.group.Do(fmt.Sprintf("product:%d", id), func() (interface{}, error) {
		return s.loadProduct(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	product := *v.(*domain.Product)
	one := []domain.Product{product}
	if err := s.attachAvailability(ctx, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

func (s *ProductService) loadProduct(ctx context.Context, id uint64) (*domain.Product, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		if err != nil {
			s.log.Warnw("product cache read failed", "product_id", id, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, p); err != nil {
			s.log.Warnw("product cache write failed", "product_id", id, "error", err)
		}
	}
	return p, nil
}

func (s *ProductService) CreateProduct(ctx context.Context, in CreateProductInput) (*domain.Product, error) {
	p := &domain.Product{
		Name:        strings.TrimSpace(in.Name),
		Size:        in.Size,
		Price:       in.Price.Round(2),
		Description: in.Description,
		ImageURL:    in.ImageURL,
		Category:    in.Category,
		Active:      true,
	}
	if in.Active != nil {
		p.Active = *in.Active
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if err := validateStock(in.Availability); err != nil {
		return nil, err
	}

	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	if len(in.Availability) > 0 {
		if err := s.availability.SetDays(ctx, p.ID, in.Availability); err != nil {
			return nil, err
		}
	}

	s.log.Infow("product created", "product_id", p.ID, "name", p.Name)
	return s.GetProduct(ctx, p.ID)
}

func (s *ProductService) UpdateProduct(ctx context.Context, id uint64, in UpdateProductInput) (*domain.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}

	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Size != nil {
		p.Size = *in.Size
	}
	if in.Price != nil {
		p.Price = in.Price.Round(2)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.ImageURL != nil {
		p.ImageURL = *in.ImageURL
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	if in.Active != nil {
		p.Active = *in.Active
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if err := validateStock(in.Availability); err != nil {
		return nil, err
	}

	if err := s.products.Update(ctx, p); err != nil {
		return nil, err
	}
	if len(in.Availability) > 0 {
		if err := s.availability.SetDays(ctx, id, in.Availability); err != nil {
			return nil, err
		}
	}
	s.invalidate(ctx, id)

	return s.GetProduct(ctx, id)
}

// DeleteProduct removes the product and all of its stock rows. Orders keep
// their line item snapshots.
func (s *ProductService) DeleteProduct(ctx context.Context, id uint64) error {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrProductNotFound
	}

	if err := s.stock.DeleteProduct(ctx, id); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)

	s.log.Infow("product deleted", "product_id", id)
	return nil
}

func (s *ProductService) invalidate(ctx context.Context, id uint64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.log.Warnw("product cache invalidation failed", "product_id", id, "error", err)
	}
}

func (s *ProductService) attachAvailability(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]uint64, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	from := domain.DayOf(s.now())
	stored, err := s.stock.ForProducts(ctx, ids, from, from.AddDays(AvailabilityHorizon-1))
	if err != nil {
		return err
	}
	for i := range products {
		products[i].Availability = stored[products[i].ID]
	}
	return nil
}

func validateProduct(p *domain.Product) error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", ErrValidation)
	case !p.Size.Valid():
		return fmt.Errorf("%w: unknown size %q", ErrValidation, p.Size)
	case !p.Category.Valid():
		return fmt.Errorf("%w: unknown category %q", ErrValidation, p.Category)
	case p.Price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	return nil
}

func validateStock(days domain.Availability) error {
	for day, units := range days {
		if units < 0 {
			return fmt.Errorf("%w: negative count on %s", ErrValidation, day)
		}
	}
	return nil
}
