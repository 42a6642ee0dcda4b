package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dairy-service/internal/domain"
	"dairy-service/internal/repository"
)

func TestAvailability_Decrements(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Availability()
	day := domain.Day(19723)

	require.NoError(t, repo.Set(ctx, 1, day, 3))

	ok, err := repo.TryDecrement(ctx, 1, day, 4)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.TryDecrement(ctx, 1, day, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.Increment(ctx, 1, day, 2))
	require.NoError(t, repo.DecrementFloor(ctx, 1, day, 10))
	units, err := repo.Get(ctx, 1, day)
	require.NoError(t, err)
	assert.Equal(t, 0, units)

	units, err = repo.Get(ctx, 2, day)
	require.NoError(t, err)
	assert.Equal(t, 0, units, "missing entry reads as zero")
}

func TestOrders_UpdateKeepsLineItemsAndCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Orders()

	order := &domain.Order{UserID: 7, Status: domain.StatusPending, Items: []domain.LineItem{{ProductID: 1, Quantity: 2}}}
	require.NoError(t, repo.Save(ctx, order))
	require.NotZero(t, order.ID)
	assert.Equal(t, order.ID, order.Items[0].OrderID)

	order.Items = nil
	order.Status = domain.StatusProcessing
	require.NoError(t, repo.Update(ctx, order))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, found.Status)
	assert.Len(t, found.Items, 1)

	found.Items[0].Quantity = 99
	again, _ := repo.FindByID(ctx, order.ID)
	assert.Equal(t, 2, again.Items[0].Quantity)

	mine, err := repo.List(ctx, repository.OrderFilter{UserID: 7})
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestUsers_UniqueEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Users()

	require.NoError(t, repo.Create(ctx, &domain.User{Email: "a@example.com"}))
	err := repo.Create(ctx, &domain.User{Email: "a@example.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}
