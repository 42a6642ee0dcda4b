package services

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"dairy-service/internal/domain"
	"dairy-service/internal/repository"
)

const recentOrdersLimit = 5

type DashboardStats struct {
	Users        int64           `json:"users"`
	Orders       int64           `json:"orders"`
	Products     int64           `json:"products"`
	Revenue      decimal.Decimal `json:"revenue"`
	RecentOrders []domain.Order  `json:"recent_orders"`
}

type StatsService struct {
	users    repository.UserRepository
	orders   repository.OrderRepository
	products repository.ProductRepository
}

func NewStatsService(users repository.UserRepository, orders repository.OrderRepository, products repository.ProductRepository) *StatsService {
	return &StatsService{users: users, orders: orders, products: products}
}

// DashboardStats counts only paid orders towards revenue.
func (s *StatsService) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		stats.Users, err = s.users.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Orders, err = s.orders.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Products, err = s.products.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Revenue, err = s.orders.SumTotals(ctx, domain.PaymentPaid)
		return err
	})
	g.Go(func() (err error) {
		stats.RecentOrders, err = s.orders.List(ctx, repository.OrderFilter{Limit: recentOrdersLimit})
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if stats.RecentOrders == nil {
		stats.RecentOrders = []domain.Order{}
	}
	return &stats, nil
}
