package mysql

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dairy-service/internal/domain"
	"dairy-service/internal/repository"
)

type orderRepo struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewOrderRepository(db *gorm.DB, log *zap.SugaredLogger) repository.OrderRepository {
	return &orderRepo{db: db, log: log}
}

// Save inserts the order together with its line items.
func (r *orderRepo) Save(ctx context.Context, order *domain.Order) error {
	result := r.db.WithContext(ctx).Create(order)
	if result.Error != nil {
		r.log.Errorw("order save failed", "err", result.Error)
		return result.Error
	}

	if order.ID == 0 {
		r.log.Warnw("order saved but ID is still 0", "rows_affected", result.RowsAffected)
		return errors.New("failed to assign order ID")
	}
	return nil
}

// Update writes the order's own columns. Line items are immutable after
// placement and are never rewritten.
func (r *orderRepo) Update(ctx context.Context, order *domain.Order) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(order).Error; err != nil {
		r.log.Errorw("order update failed", "order_id", order.ID, "err", err)
		return err
	}
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, id uint64) (*domain.Order, error) {
	var o domain.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&o, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Errorw("FindByID failed", "order_id", id, "err", err)
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, error) {
	q := r.db.WithContext(ctx).Preload("Items").Order("created_at DESC").Order("id DESC")
	if filter.UserID != 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.PaymentStatus != "" {
		q = q.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var out []domain.Order
	if err := q.Find(&out).Error; err != nil {
		r.log.Errorw("List orders failed", "err", err)
		return nil, err
	}
	return out, nil
}

func (r *orderRepo) FindRecurringDue(ctx context.Context, day domain.Day) ([]domain.Order, error) {
	var out []domain.Order
	err := r.db.WithContext(ctx).Preload("Items").
		Where("recurring = ? AND next_delivery_date = ? AND status <> ?", true, day, domain.StatusCancelled).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		r.log.Errorw("FindRecurringDue failed", "day", day.String(), "err", err)
		return nil, err
	}
	return out, nil
}

func (r *orderRepo) FindForDelivery(ctx context.Context, day domain.Day, statuses []domain.OrderStatus) ([]domain.Order, error) {
	var out []domain.Order
	err := r.db.WithContext(ctx).Preload("Items").
		Where("delivery_date = ? AND status IN ?", day, statuses).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		r.log.Errorw("FindForDelivery failed", "day", day.String(), "err", err)
		return nil, err
	}
	return out, nil
}

func (r *orderRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Order{}).Count(&n).Error
	return n, err
}

func (r *orderRepo) SumTotals(ctx context.Context, paymentStatus domain.PaymentStatus) (decimal.Decimal, error) {
	var total decimal.Decimal
	row := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("payment_status = ?", paymentStatus).
		Select("COALESCE(SUM(total_amount), 0)").
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
