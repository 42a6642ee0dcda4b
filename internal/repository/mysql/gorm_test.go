package mysql

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"dairy-service/internal/domain"
	"dairy-service/internal/repository"
)

const testDay = domain.Day(19723) // 2024-01-01

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		sqlDB.Close()
	})
	return db, mock
}

func stmt(s string) string {
	return regexp.QuoteMeta(s)
}

func TestAvailabilityRepo_TryDecrement(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{name: "enough stock", affected: 1, want: true},
		{name: "guard rejects", affected: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewAvailabilityRepository(db, zap.NewNop().Sugar())

			mock.ExpectBegin()
			mock.ExpectExec(stmt("UPDATE `product_availability` SET `units`=units - ? WHERE product_id = ? AND day = ? AND units >= ?")).
				WithArgs(3, uint64(7), testDay, 3).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))
			mock.ExpectCommit()

			ok, err := repo.TryDecrement(context.Background(), 7, testDay, 3)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestAvailabilityRepo_TryDecrementError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAvailabilityRepository(db, zap.NewNop().Sugar())

	mock.ExpectBegin()
	mock.ExpectExec(stmt("UPDATE `product_availability` SET `units`=units - ?")).
		WillReturnError(errors.New("deadlock found"))
	mock.ExpectRollback()

	ok, err := repo.TryDecrement(context.Background(), 7, testDay, 3)
	assert.ErrorContains(t, err, "deadlock found")
	assert.False(t, ok)
}

func TestAvailabilityRepo_DecrementFloor(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAvailabilityRepository(db, zap.NewNop().Sugar())

	mock.ExpectBegin()
	mock.ExpectExec(stmt("UPDATE `product_availability` SET `units`=GREATEST(units - ?, 0) WHERE product_id = ? AND day = ?")).
		WithArgs(10, uint64(7), testDay).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DecrementFloor(context.Background(), 7, testDay, 10))
}

func TestAvailabilityRepo_Upserts(t *testing.T) {
	t.Run("set overwrites units", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewAvailabilityRepository(db, zap.NewNop().Sugar())

		mock.ExpectBegin()
		mock.ExpectExec(stmt("INSERT INTO `product_availability` (`product_id`,`day`,`units`) VALUES (?,?,?)") +
			".*" + stmt("ON DUPLICATE KEY UPDATE `units`=VALUES(`units`)")).
			WithArgs(uint64(7), testDay, 12).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.Set(context.Background(), 7, testDay, 12))
	})

	t.Run("increment adds to existing units", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewAvailabilityRepository(db, zap.NewNop().Sugar())

		mock.ExpectBegin()
		mock.ExpectExec(stmt("INSERT INTO `product_availability` (`product_id`,`day`,`units`) VALUES (?,?,?)") +
			".*" + stmt("ON DUPLICATE KEY UPDATE `units`=units + ?")).
			WithArgs(uint64(7), testDay, 2, 2).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		require.NoError(t, repo.Increment(context.Background(), 7, testDay, 2))
	})
}

func TestAvailabilityRepo_GetMissingIsZero(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAvailabilityRepository(db, zap.NewNop().Sugar())

	mock.ExpectQuery(stmt("SELECT * FROM `product_availability` WHERE product_id = ? AND day = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "day", "units"}).AddRow(7, int64(testDay), 4))
	mock.ExpectQuery(stmt("SELECT * FROM `product_availability` WHERE product_id = ? AND day = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "day", "units"}))

	n, err := repo.Get(context.Background(), 7, testDay)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = repo.Get(context.Background(), 7, testDay.AddDays(1))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOrderRepo_SaveWritesLineItems(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db, zap.NewNop().Sugar())

	order := &domain.Order{
		UserID:        3,
		OrderDate:     time.Date(2023, 12, 30, 9, 0, 0, 0, time.UTC),
		DeliveryDate:  testDay,
		TotalAmount:   decimal.RequireFromString("7.00"),
		PaymentStatus: domain.PaymentPending,
		Status:        domain.StatusPending,
		RecurringType: domain.RecurrenceNone,
		Items: []domain.LineItem{
			{ProductID: 7, Name: "Whole Milk", Quantity: 2, Price: decimal.RequireFromString("3.50")},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(stmt("INSERT INTO `orders`")).WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec(stmt("INSERT INTO `order_items`")).WillReturnResult(sqlmock.NewResult(100, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), order))
	assert.Equal(t, uint64(42), order.ID)
	assert.Equal(t, uint64(42), order.Items[0].OrderID)
}

func TestOrderRepo_UpdateLeavesLineItems(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db, zap.NewNop().Sugar())

	next := testDay.AddDays(7)
	order := &domain.Order{
		ID:               42,
		UserID:           3,
		DeliveryDate:     testDay,
		NextDeliveryDate: &next,
		PaymentStatus:    domain.PaymentPaid,
		Status:           domain.StatusProcessing,
		Recurring:        true,
		RecurringType:    domain.RecurrenceWeekly,
		Items:            []domain.LineItem{{ID: 100, OrderID: 42, ProductID: 7, Quantity: 2}},
	}

	// any statement against order_items would fail the expectations
	mock.ExpectBegin()
	mock.ExpectExec(stmt("UPDATE `orders` SET") + ".*" + stmt("`id` = ?")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Update(context.Background(), order))
}

func TestOrderRepo_FindByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db, zap.NewNop().Sugar())

	mock.ExpectQuery(stmt("SELECT * FROM `orders` WHERE `orders`.`id` = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	order, err := repo.FindByID(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, order)
}

func TestOrderRepo_SumTotals(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db, zap.NewNop().Sugar())

	mock.ExpectQuery(stmt("SELECT COALESCE(SUM(total_amount), 0) FROM `orders` WHERE payment_status = ?")).
		WithArgs(domain.PaymentPaid).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow("19.50"))

	total, err := repo.SumTotals(context.Background(), domain.PaymentPaid)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("19.50").Equal(total), total.String())
}

func TestUserRepo_CreateDuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, zap.NewNop().Sugar())

	mock.ExpectBegin()
	mock.ExpectExec(stmt("INSERT INTO `users`")).
		WillReturnError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry 'jane@example.com' for key 'email'"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &domain.User{Email: "jane@example.com", Name: "Jane", Role: domain.RoleCustomer})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}
