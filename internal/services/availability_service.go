package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"dairy-service/internal/domain"
	"dairy-service/internal/repository"
)

// Reservation is a request for units of one product on one day.
type Reservation struct {
	ProductID uint64
	Quantity  int
	Name      string
}

type AvailabilityWindow struct {
	Dates        []domain.Day                   `json:"dates"`
	Availability map[uint64]domain.Availability `json:"availability"`
}

// AvailabilityService owns every read-modify-write of per-day stock. All
// mutations of a (product, day) key happen under that key's lock.
type AvailabilityService struct {
	repo     repository.AvailabilityRepository
	products repository.ProductRepository
	locker   Locker
	log      *zap.SugaredLogger
}

func NewAvailabilityService(
	repo repository.AvailabilityRepository,
	products repository.ProductRepository,
	locker Locker,
	log *zap.SugaredLogger,
) *AvailabilityService {
	return &AvailabilityService{
		repo:     repo,
		products: products,
		locker:   locker,
		log:      log,
	}
}

func (s *AvailabilityService) IsAvailable(ctx context.Context, productID uint64, day domain.Day, qty int) (bool, error) {
	count, err := s.repo.Get(ctx, productID, day)
	if err != nil {
		return false, err
	}
	return qty <= count, nil
}

func (s *AvailabilityService) Count(ctx context.Context, productID uint64, day domain.Day) (int, error) {
	return s.repo.Get(ctx, productID, day)
}

// Reserve takes qty units, never leaving the count below zero.
func (s *AvailabilityService) Reserve(ctx context.Context, productID uint64, day domain.Day, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if err := s.requireProduct(ctx, productID); err != nil {
		return err
	}
	unlock, err := s.locker.Lock(ctx, availabilityKey(productID, day))
	if err != nil {
		return err
	}
	defer unlock()

	return s.repo.DecrementFloor(ctx, productID, day, qty)
}

// Release returns qty units. The count is not capped.
func (s *AvailabilityService) Release(ctx context.Context, productID uint64, day domain.Day, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if err := s.requireProduct(ctx, productID); err != nil {
		return err
	}
	unlock, err := s.locker.Lock(ctx, availabilityKey(productID, day))
	if err != nil {
		return err
	}
	defer unlock()

	return s.repo.Increment(ctx, productID, day, qty)
}

// ReserveAll takes every reservation or none of them.
func (s *AvailabilityService) ReserveAll(ctx context.Context, day domain.Day, items []Reservation) error {
	merged, err := aggregate(items)
	if err != nil {
		return err
	}
	for _, r := range merged {
		if err := s.requireProduct(ctx, r.ProductID); err != nil {
			return err
		}
	}

	unlock, err := s.lockAll(ctx, day, merged)
	if err != nil {
		return err
	}
	defer unlock()

	for _, r := range merged {
		count, err := s.repo.Get(ctx, r.ProductID, day)
		if err != nil {
			return err
		}
		if count < r.Quantity {
			return insufficient(r, day, count)
		}
	}

	applied := make([]Reservation, 0, len(merged))
	for _, r := range merged {
		ok, err := s.repo.TryDecrement(ctx, r.ProductID, day, r.Quantity)
		if err == nil && !ok {
			count, _ := s.repo.Get(ctx, r.ProductID, day)
			err = insufficient(r, day, count)
		}
		if err != nil {
			s.compensate(ctx, day, applied)
			return err
		}
		applied = append(applied, r)
	}
	return nil
}

// ReleaseAll returns every reservation. It keeps going past failures and
// reports them together.
func (s *AvailabilityService) ReleaseAll(ctx context.Context, day domain.Day, items []Reservation) error {
	merged, err := aggregate(items)
	if err != nil {
		return err
	}

	unlock, err := s.lockAll(ctx, day, merged)
	if err != nil {
		return err
	}
	defer unlock()

	var errs []error
	for _, r := range merged {
		if err := s.repo.Increment(ctx, r.ProductID, day, r.Quantity); err != nil {
			errs = append(errs, fmt.Errorf("release product %d: %w", r.ProductID, err))
		}
	}
	return errors.Join(errs...)
}

// Window returns the counts of every active product for days consecutive
// days starting at from. Missing entries read as zero.
func (s *AvailabilityService) Window(ctx context.Context, from domain.Day, days int) (*AvailabilityWindow, error) {
	if days <= 0 {
		return nil, fmt.Errorf("%w: days must be positive", ErrValidation)
	}

	products, err := s.products.List(ctx, repository.ProductFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	to := from.AddDays(days - 1)

	stored, err := s.repo.ForProducts(ctx, ids, from, to)
	if err != nil {
		return nil, err
	}

	window := &AvailabilityWindow{
		Dates:        make([]domain.Day, 0, days),
		Availability: make(map[uint64]domain.Availability, len(ids)),
	}
	for d := from; d <= to; d++ {
		window.Dates = append(window.Dates, d)
	}
	for _, id := range ids {
		row := make(domain.Availability, days)
		for _, d := range window.Dates {
			row[d] = stored[id].Get(d)
		}
		window.Availability[id] = row
	}
	return window, nil
}

// BulkSet overwrites counts. Unknown products are skipped and the number of
// products written is returned.
func (s *AvailabilityService) BulkSet(ctx context.Context, updates map[uint64]domain.Availability) (int, error) {
	for productID, days := range updates {
		if err := validateStock(days); err != nil {
			return 0, fmt.Errorf("product %d: %w", productID, err)
		}
	}

	ids := make([]uint64, 0, len(updates))
	for id := range updates {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	updated := 0
	for _, id := range ids {
		p, err := s.products.FindByID(ctx, id)
		if err != nil {
			return updated, err
		}
		if p == nil {
			s.log.Warnw("skipping availability for unknown product", "product_id", id)
			continue
		}
		if err := s.SetDays(ctx, id, updates[id]); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// SetDays overwrites the counts of one product.
func (s *AvailabilityService) SetDays(ctx context.Context, productID uint64, days domain.Availability) error {
	if err := validateStock(days); err != nil {
		return err
	}
	for day, units := range days {
		if err := s.set(ctx, productID, day, units); err != nil {
			return err
		}
	}
	return nil
}

func (s *AvailabilityService) set(ctx context.Context, productID uint64, day domain.Day, units int) error {
	unlock, err := s.locker.Lock(ctx, availabilityKey(productID, day))
	if err != nil {
		return err
	}
	defer unlock()
	return s.repo.Set(ctx, productID, day, units)
}

// lockAll acquires keys in product order so concurrent batches cannot
// deadlock each other.
func (s *AvailabilityService) lockAll(ctx context.Context, day domain.Day, merged []Reservation) (func(), error) {
	unlocks := make([]func(), 0, len(merged))
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, r := range merged {
		unlock, err := s.locker.Lock(ctx, availabilityKey(r.ProductID, day))
		if err != nil {
			release()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}

func (s *AvailabilityService) requireProduct(ctx context.Context, productID uint64) error {
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: %d", ErrProductNotFound, productID)
	}
	return nil
}

func (s *AvailabilityService) compensate(ctx context.Context, day domain.Day, applied []Reservation) {
	for _, r := range applied {
		if err := s.repo.Increment(ctx, r.ProductID, day, r.Quantity); err != nil {
			s.log.Errorw("failed to roll back reservation",
				"product_id", r.ProductID, "day", day, "quantity", r.Quantity, "error", err)
		}
	}
}

func aggregate(items []Reservation) ([]Reservation, error) {
	index := make(map[uint64]int, len(items))
	merged := make([]Reservation, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if i, ok := index[item.ProductID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ProductID < merged[j].ProductID })
	return merged, nil
}

func insufficient(r Reservation, day domain.Day, available int) error {
	name := r.Name
	if name == "" {
		name = fmt.Sprintf("product %d", r.ProductID)
	}
	return fmt.Errorf("%w: not enough %s available for %s (requested %d, available %d)",
		ErrInsufficientAvailability, name, day, r.Quantity, available)
}
