package mysql

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dairy-service/internal/domain"
	"dairy-service/internal/repository"
)

var availabilityKey = []clause.Column{{Name: "product_id"}, {Name: "day"}}

type availabilityRepo struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewAvailabilityRepository(db *gorm.DB, log *zap.SugaredLogger) repository.AvailabilityRepository {
	return &availabilityRepo{db: db, log: log}
}

func (r *availabilityRepo) Get(ctx context.Context, productID uint64, day domain.Day) (int, error) {
	var e domain.AvailabilityEntry
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND day = ?", productID, day).
		Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return e.Units, nil
}

func (r *availabilityRepo) ForProducts(ctx context.Context, productIDs []uint64, from, to domain.Day) (map[uint64]domain.Availability, error) {
	out := make(map[uint64]domain.Availability, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	var rows []domain.AvailabilityEntry
	err := r.db.WithContext(ctx).
		Where("product_id IN ? AND day BETWEEN ? AND ?", productIDs, from, to).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if out[row.ProductID] == nil {
			out[row.ProductID] = domain.Availability{}
		}
		out[row.ProductID][row.Day] = row.Units
	}
	return out, nil
}

func (r *availabilityRepo) Set(ctx context.Context, productID uint64, day domain.Day, units int) error {
	entry := domain.AvailabilityEntry{ProductID: productID, Day: day, Units: units}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   availabilityKey,
		DoUpdates: clause.AssignmentColumns([]string{"units"}),
	}).Create(&entry).Error
}

func (r *availabilityRepo) TryDecrement(ctx context.Context, productID uint64, day domain.Day, qty int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.AvailabilityEntry{}).
		Where("product_id = ? AND day = ? AND units >= ?", productID, day, qty).
		UpdateColumn("units", gorm.Expr("units - ?", qty))
	if result.Error != nil {
		r.log.Errorw("conditional decrement failed", "product_id", productID, "day", day.String(), "err", result.Error)
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *availabilityRepo) DecrementFloor(ctx context.Context, productID uint64, day domain.Day, qty int) error {
	return r.db.WithContext(ctx).Model(&domain.AvailabilityEntry{}).
		Where("product_id = ? AND day = ?", productID, day).
		UpdateColumn("units", gorm.Expr("GREATEST(units - ?, 0)", qty)).Error
}

func (r *availabilityRepo) Increment(ctx context.Context, productID uint64, day domain.Day, qty int) error {
	entry := domain.AvailabilityEntry{ProductID: productID, Day: day, Units: qty}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   availabilityKey,
		DoUpdates: clause.Assignments(map[string]interface{}{"units": gorm.Expr("units + ?", qty)}),
	}).Create(&entry).Error
	if err != nil {
		r.log.Errorw("increment failed", "product_id", productID, "day", day.String(), "err", err)
	}
	return err
}

func (r *availabilityRepo) DeleteProduct(ctx context.Context, productID uint64) error {
	return r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Delete(&domain.AvailabilityEntry{}).Error
}
