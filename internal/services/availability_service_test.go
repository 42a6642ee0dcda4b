package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dairy-service/internal/domain"
	"dairy-service/internal/repository"
)

func TestAvailabilityService_ReserveReleaseRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct(t, TestProductName, "3.50", map[string]int{TestDeliveryDate: 5})
	day := mustDay(t, TestDeliveryDate)

	require.NoError(t, f.availability.Reserve(ctx, p.ID, day, 3))
	assert.Equal(t, 2, f.count(t, p.ID, TestDeliveryDate))

	require.NoError(t, f.availability.Release(ctx, p.ID, day, 3))
	assert.Equal(t, 5, f.count(t, p.ID, TestDeliveryDate))
}

func TestAvailabilityService_ReserveFloorsAtZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct(t, TestProductName, "3.50", map[string]int{TestDeliveryDate: 5})
	day := mustDay(t, TestDeliveryDate)

	require.NoError(t, f.availability.Reserve(ctx, p.ID, day, 10))
	assert.Equal(t, 0, f.count(t, p.ID, TestDeliveryDate))

	require.NoError(t, f.availability.Release(ctx, p.ID, day, 10))
	assert.Equal(t, 10, f.count(t, p.ID, TestDeliveryDate), "release is not capped at the original count")
}

func TestAvailabilityService_UnknownProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	day := mustDay(t, TestDeliveryDate)

	assert.ErrorIs(t, f.availability.Reserve(ctx, 404, day, 1), ErrProductNotFound)
	assert.ErrorIs(t, f.availability.Release(ctx, 404, day, 1), ErrProductNotFound)
	assert.Equal(t, 0, f.count(t, 404, TestDeliveryDate))

	stored, err := f.stock.ForProducts(ctx, []uint64{404}, day, day)
	require.NoError(t, err)
	assert.Empty(t, stored[404], "no row written for an unknown product")
}

func TestAvailabilityService_IsAvailable(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, TestProductName, "3.50", map[string]int{TestDeliveryDate: 5})

	tests := []struct {
		name string
		day  string
		qty  int
		want bool
	}{
		{name: "below count", day: TestDeliveryDate, qty: 4, want: true},
		{name: "exact count", day: TestDeliveryDate, qty: 5, want: true},
		{name: "above count", day: TestDeliveryDate, qty: 6, want: false},
		{name: "missing day reads as zero", day: "2024-01-02", qty: 1, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.availability.IsAvailable(context.Background(), p.ID, mustDay(t, tt.day), tt.qty)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAvailabilityService_ReserveAll(t *testing.T) {
	tests := []struct {
		name      string
		items     func(milk, cream uint64) []Reservation
		wantErr   error
		wantMilk  int
		wantCream int
	}{
		{
			name: "all reserved",
			items: func(milk, cream uint64) []Reservation {
				return []Reservation{{ProductID: milk, Quantity: 2}, {ProductID: cream, Quantity: 1}}
			},
			wantMilk:  3,
			wantCream: 0,
		},
		{
			name: "second item short leaves first untouched",
			items: func(milk, cream uint64) []Reservation {
				return []Reservation{{ProductID: milk, Quantity: 2}, {ProductID: cream, Quantity: 3}}
			},
			wantErr:   ErrInsufficientAvailability,
			wantMilk:  5,
			wantCream: 1,
		},
		{
			name: "duplicate lines are summed",
			items: func(milk, cream uint64) []Reservation {
				return []Reservation{{ProductID: milk, Quantity: 3}, {ProductID: milk, Quantity: 3}}
			},
			wantErr:   ErrInsufficientAvailability,
			wantMilk:  5,
			wantCream: 1,
		},
		{
			name: "unknown product rejected before any reservation",
			items: func(milk, cream uint64) []Reservation {
				return []Reservation{{ProductID: milk, Quantity: 2}, {ProductID: cream + 100, Quantity: 1}}
			},
			wantErr:   ErrProductNotFound,
			wantMilk:  5,
			wantCream: 1,
		},
		{
			name: "zero quantity rejected",
			items: func(milk, cream uint64) []Reservation {
				return []Reservation{{ProductID: milk, Quantity: 0}}
			},
			wantErr:   ErrInvalidQuantity,
			wantMilk:  5,
			wantCream: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			milk := f.addProduct(t, TestProductName, "3.50", map[string]int{TestDeliveryDate: 5})
			cream := f.addProduct(t, TestCreamName, "5.00", map[string]int{TestDeliveryDate: 1})

			err := f.availability.ReserveAll(context.Background(), mustDay(t, TestDeliveryDate), tt.items(milk.ID, cream.ID))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantMilk, f.count(t, milk.ID, TestDeliveryDate))
			assert.Equal(t, tt.wantCream, f.count(t, cream.ID, TestDeliveryDate))
		})
	}
}

// racingStock simulates another writer draining a key between the check and
// the decrement.
type racingStock struct {
	repository.AvailabilityRepository
	drained uint64
}

func (r *racingStock) TryDecrement(ctx context.Context, productID uint64, day domain.Day, qty int) (bool, error) {
	if productID == r.drained {
		return false, nil
	}
	return r.AvailabilityRepository.TryDecrement(ctx, productID, day, qty)
}

func TestAvailabilityService_ReserveAllCompensates(t *testing.T) {
	f := newFixture(t)
	milk := f.addProduct(t, TestProductName, "3.50", map[string]int{TestDeliveryDate: 5})
	cream := f.addProduct(t, TestCreamName, "5.00", map[string]int{TestDeliveryDate: 5})

	svc := NewAvailabilityService(&racingStock{AvailabilityRepository: f.stock, drained: cream.ID}, f.products, f.locker, zap.NewNop().Sugar())
	err := svc.ReserveAll(context.Background(), mustDay(t, TestDeliveryDate), []Reservation{
		{ProductID: milk.ID, Quantity: 2, Name: milk.Name},
		{ProductID: cream.ID, Quantity: 2, Name: cream.Name},
	})

	assert.ErrorIs(t, err, ErrInsufficientAvailability)
	assert.Contains(t, err.Error(), TestCreamName)
	assert.Equal(t, 5, f.count(t, milk.ID, TestDeliveryDate), "applied reservation rolled back")
	assert.Equal(t, 5, f.count(t, cream.ID, TestDeliveryDate))
}

func TestAvailabilityService_ReleaseAll(t *testing.T) {
	f := newFixture(t)
	milk := f.addProduct(t, TestProductName, "3.50", map[string]int{TestDeliveryDate: 1})

	err := f.availability.ReleaseAll(context.Background(), mustDay(t, TestDeliveryDate), []Reservation{
		{ProductID: milk.ID, Quantity: 2},
		{ProductID: milk.ID, Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, f.count(t, milk.ID, TestDeliveryDate))
}

func TestAvailabilityService_Window(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	milk := f.addProduct(t, TestProductName, "3.50", map[string]int{"2024-01-01": 5, "2024-01-03": 2, "2024-01-09": 9})
	retired := f.addProduct(t, "Skim", "2.00", map[string]int{"2024-01-01": 4})
	retired.Active = false
	require.NoError(t, f.products.Update(ctx, retired))

	window, err := f.availability.Window(ctx, mustDay(t, "2024-01-01"), 7)
	require.NoError(t, err)

	require.Len(t, window.Dates, 7)
	assert.Equal(t, "2024-01-01", window.Dates[0].String())
	assert.Equal(t, "2024-01-07", window.Dates[6].String())

	require.Contains(t, window.Availability, milk.ID)
	assert.NotContains(t, window.Availability, retired.ID)
	row := window.Availability[milk.ID]
	assert.Len(t, row, 7)
	assert.Equal(t, 5, row[mustDay(t, "2024-01-01")])
	assert.Equal(t, 0, row[mustDay(t, "2024-01-02")])
	assert.Equal(t, 2, row[mustDay(t, "2024-01-03")])

	_, err = f.availability.Window(ctx, mustDay(t, "2024-01-01"), 0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAvailabilityService_BulkSet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	milk := f.addProduct(t, TestProductName, "3.50", map[string]int{TestDeliveryDate: 5})
	day := mustDay(t, TestDeliveryDate)

	updated, err := f.availability.BulkSet(ctx, map[uint64]domain.Availability{
		milk.ID: {day: 12, day.AddDays(1): 3},
		999:     {day: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	assert.Equal(t, 12, f.count(t, milk.ID, TestDeliveryDate))
	assert.Equal(t, 3, f.count(t, milk.ID, "2024-01-02"))

	_, err = f.availability.BulkSet(ctx, map[uint64]domain.Availability{milk.ID: {day: -1}})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 12, f.count(t, milk.ID, TestDeliveryDate))
}

func TestLocalLocker_Exclusive(t *testing.T) {
	locker := NewLocalLocker()
	var (
		inside  int32
		maxSeen int32
		wg      sync.WaitGroup
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "k")
			require.NoError(t, err)
			n := atomic.AddInt32(&inside, 1)
			if n > atomic.LoadInt32(&maxSeen) {
				atomic.StoreInt32(&maxSeen, n)
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen)
	assert.Empty(t, locker.slots, "released keys are dropped")
}

func TestLocalLocker_ContextCancelled(t *testing.T) {
	locker := NewLocalLocker()
	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()

	again, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)
	again()
}
