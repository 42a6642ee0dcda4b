package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dairy-service/internal/domain"
	"dairy-service/internal/mocks"
	"dairy-service/internal/repository"
	"dairy-service/internal/repository/memory"
)

const (
	TestDeliveryDate = "2024-01-01"
	TestProductName  = "Whole Milk"
	TestCreamName    = "Heavy Cream"
)

type fixture struct {
	store        *memory.Store
	products     repository.ProductRepository
	stock        repository.AvailabilityRepository
	orders       repository.OrderRepository
	users        repository.UserRepository
	publisher    *mocks.MockPublisher
	locker       *LocalLocker
	availability *AvailabilityService
	orderSvc     *OrderService
	customer     *domain.User
	admin        *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	f := &fixture{
		store:     store,
		products:  store.Products(),
		stock:     store.Availability(),
		orders:    store.Orders(),
		users:     store.Users(),
		publisher: &mocks.MockPublisher{},
		locker:    NewLocalLocker(),
	}
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	log := zap.NewNop().Sugar()
	f.availability = NewAvailabilityService(f.stock, f.products, f.locker, log)
	f.orderSvc = NewOrderService(f.orders, f.products, f.users, f.availability, f.locker, f.publisher, log)
	f.orderSvc.now = func() time.Time { return time.Date(2023, 12, 30, 9, 0, 0, 0, time.UTC) }

	f.customer = f.addUser(t, "jane@example.com", domain.RoleCustomer)
	f.admin = f.addUser(t, "admin@example.com", domain.RoleAdmin)
	return f
}

func (f *fixture) addUser(t *testing.T, email string, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{
		Email:        email,
		PasswordHash: "unused",
		Name:         "Jane Doe",
		Phone:        "555-0100",
		Role:         role,
		Address: domain.Address{
			Street:  "1 Farm Rd",
			City:    "Lasso",
			State:   "TX",
			ZipCode: "75001",
			Country: domain.DefaultCountry,
		},
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) addProduct(t *testing.T, name, price string, stock map[string]int) *domain.Product {
	t.Helper()
	ctx := context.Background()
	p := &domain.Product{
		Name:     name,
		Size:     domain.SizeGallon,
		Price:    decimal.RequireFromString(price),
		Category: domain.CategoryMilk,
		Active:   true,
	}
	require.NoError(t, f.products.Create(ctx, p))
	for day, units := range stock {
		require.NoError(t, f.stock.Set(ctx, p.ID, mustDay(t, day), units))
	}
	return p
}

func (f *fixture) count(t *testing.T, productID uint64, day string) int {
	t.Helper()
	n, err := f.stock.Get(context.Background(), productID, mustDay(t, day))
	require.NoError(t, err)
	return n
}

func (f *fixture) placeOrder(t *testing.T, in PlaceOrderInput) *domain.Order {
	t.Helper()
	if in.UserID == 0 {
		in.UserID = f.customer.ID
	}
	if in.DeliveryDate == 0 {
		in.DeliveryDate = mustDay(t, TestDeliveryDate)
	}
	order, err := f.orderSvc.PlaceOrder(context.Background(), in)
	require.NoError(t, err)
	return order
}

func mustDay(t *testing.T, s string) domain.Day {
	t.Helper()
	d, err := domain.ParseDay(s)
	require.NoError(t, err)
	return d
}

func dayPtr(d domain.Day) *domain.Day {
	return &d
}
