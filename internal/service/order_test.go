package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

type orderFixture struct {
	env    *testEnv
	rider  *domain.User
	driver *domain.User
	cab    *domain.CabView
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	env := newTestEnv(t)
	driver := env.register(t, "dave", domain.RoleDriver)
	return &orderFixture{
		env:    env,
		rider:  env.register(t, "rita", domain.RoleUser),
		driver: driver,
		cab:    env.createCab(t, driver, "KA01", bangalore),
	}
}

func (f *orderFixture) cabAvailable(t *testing.T) bool {
	t.Helper()
	cab, err := f.env.cabs.GetCab(f.env.ctx, f.cab.ID)
	require.NoError(t, err)
	return cab.IsAvailable
}

func TestOrderService_CreateOrder(t *testing.T) {
	t.Parallel()
	f := newOrderFixture(t)

	order := f.env.book(t, f.rider, f.cab)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, 60.0, order.Price)
	assert.Equal(t, f.rider.Summary(), order.Rider)
	assert.Equal(t, f.driver.Summary(), order.Cab.Driver)
	assert.Equal(t, "KA01", order.Cab.VehicleNumber)
	assert.False(t, f.cabAvailable(t))
}

func TestOrderService_CreateOrderUnavailableCab(t *testing.T) {
	t.Parallel()
	f := newOrderFixture(t)
	f.env.book(t, f.rider, f.cab)

	_, err := f.env.orders.CreateOrder(f.env.ctx, CreateOrderRequest{
		RiderID: f.rider.ID,
		CabID:   f.cab.ID,
		Pickup:  bangalore,
		Drop:    nearby,
	})
	assert.ErrorIs(t, err, ErrCabUnavailable)
}

func TestOrderService_CreateOrderMissingCab(t *testing.T) {
	t.Parallel()
	f := newOrderFixture(t)

	_, err := f.env.orders.CreateOrder(f.env.ctx, CreateOrderRequest{
		RiderID: f.rider.ID,
		CabID:   "550e8400-e29b-41d4-a716-446655440000",
		Pickup:  bangalore,
		Drop:    nearby,
	})
	assert.ErrorIs(t, err, ErrCabNotFound)
}

func TestOrderService_CreateOrderRollsBack(t *testing.T) {
	t.Parallel()
	f := newOrderFixture(t)
	f.env.store.CreateOrderError = errors.New("insert failed")

	_, err := f.env.orders.CreateOrder(f.env.ctx, CreateOrderRequest{
		RiderID: f.rider.ID,
		CabID:   f.cab.ID,
		Pickup:  bangalore,
		Drop:    nearby,
	})
	require.Error(t, err)
	assert.True(t, f.cabAvailable(t))
}

func TestOrderService_CreateOrderSingleWinner(t *testing.T) {
	t.Parallel()
	f := newOrderFixture(t)

	const riders = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < riders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.env.orders.CreateOrder(f.env.ctx, CreateOrderRequest{
				RiderID: f.rider.ID,
				CabID:   f.cab.ID,
				Pickup:  bangalore,
				Drop:    nearby,
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if errors.Is(err, ErrCabUnavailable) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, riders-1, rejected)
}

func TestOrderService_CreateOrderValidation(t *testing.T) {
	t.Parallel()
	f := newOrderFixture(t)

	_, err := f.env.orders.CreateOrder(f.env.ctx, CreateOrderRequest{
		RiderID:  f.rider.ID,
		Pickup:   domain.GeoPoint{Lng: 190, Lat: 0},
		Drop:     bangalore,
		Distance: -1,
	})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Len(t, validation.Messages, 3)
	assert.True(t, f.cabAvailable(t))
}

func TestOrderService_ListOrders(t *testing.T) {
	t.Parallel()
	f := newOrderFixture(t)
	order := f.env.book(t, f.rider, f.cab)

	other := f.env.register(t, "olga", domain.RoleUser)
	cabless := f.env.register(t, "carl", domain.RoleDriver)

	tests := []struct {
		name   string
		caller *domain.User
		status domain.OrderStatus
		want   int
	}{
		{name: "rider sees own orders", caller: f.rider, want: 1},
		{name: "driver sees orders on their cab", caller: f.driver, want: 1},
		{name: "other rider sees nothing", caller: other, want: 0},
		{name: "driver without cab sees nothing", caller: cabless, want: 0},
		{name: "status filter", caller: f.rider, status: domain.OrderStatusDelivered, want: 0},
		{name: "matching status filter", caller: f.driver, status: domain.OrderStatusPending, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders, err := f.env.orders.ListOrders(f.env.ctx, tt.caller, tt.status)
			require.NoError(t, err)
			require.Len(t, orders, tt.want)
			if tt.want == 1 {
				assert.Equal(t, order.ID, orders[0].ID)
			}
		})
	}

	_, err := f.env.orders.ListOrders(f.env.ctx, f.rider, "lost")
	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestOrderService_GetOrder(t *testing.T) {
	t.Parallel()
	f := newOrderFixture(t)
	order := f.env.book(t, f.rider, f.cab)
	stranger := f.env.register(t, "sam", domain.RoleUser)

	_, err := f.env.orders.GetOrder(f.env.ctx, order.ID, f.rider.ID)
	assert.NoError(t, err)
	_, err = f.env.orders.GetOrder(f.env.ctx, order.ID, f.driver.ID)
	assert.NoError(t, err)
	_, err = f.env.orders.GetOrder(f.env.ctx, order.ID, stranger.ID)
	assert.ErrorIs(t, err, ErrOrderAccessDenied)
	_, err = f.env.orders.GetOrder(f.env.ctx, "550e8400-e29b-41d4-a716-446655440000", f.rider.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = f.env.orders.GetOrder(f.env.ctx, "nope", f.rider.ID)
	assert.ErrorIs(t, err, repository.ErrInvalidID)
}

func TestOrderService_UpdateStatusLifecycle(t *testing.T) {
	t.Parallel()
	f := newOrderFixture(t)
	order := f.env.book(t, f.rider, f.cab)

	for _, status := range []domain.OrderStatus{domain.OrderStatusAccepted, domain.OrderStatusPicked} {
		updated, err := f.env.orders.UpdateStatus(f.env.ctx, order.ID, f.driver.ID, status)
		require.NoError(t, err)
		assert.Equal(t, status, updated.Status)
		assert.True(t, updated.CompletedAt.IsZero())
		assert.False(t, f.cabAvailable(t))
	}

	delivered, err := f.env.orders.UpdateStatus(f.env.ctx, order.ID, f.driver.ID, domain.OrderStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusDelivered, delivered.Status)
	assert.False(t, delivered.CompletedAt.IsZero())
	assert.Equal(t, order.Price, delivered.Price)
	assert.True(t, f.cabAvailable(t))

	_, err = f.env.orders.UpdateStatus(f.env.ctx, order.ID, f.driver.ID, domain.OrderStatusCancelled)
	var transition *TransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, "Invalid status transition from delivered to cancelled", transition.Error())
}

func TestOrderService_UpdateStatusCancelReleasesCab(t *testing.T) {
	t.Parallel()
	f := newOrderFixture(t)
	order := f.env.book(t, f.rider, f.cab)

	cancelled, err := f.env.orders.UpdateStatus(f.env.ctx, order.ID, f.driver.ID, domain.OrderStatusCancelled)
	require.NoError(t, err)
	assert.True(t, cancelled.CompletedAt.IsZero())
	assert.True(t, f.cabAvailable(t))

	again := f.env.book(t, f.rider, f.cab)
	assert.NotEqual(t, order.ID, again.ID)
}

func TestOrderService_UpdateStatusRejections(t *testing.T) {
	t.Parallel()
	f := newOrderFixture(t)
	order := f.env.book(t, f.rider, f.cab)

	tests := []struct {
		name     string
		driverID string
		status   domain.OrderStatus
		check    func(t *testing.T, err error)
	}{
		{
			name:     "not the cab's driver",
			driverID: f.rider.ID,
			status:   domain.OrderStatusAccepted,
			check:    func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrOrderUpdateDenied) },
		},
		{
			name:     "missing status",
			driverID: f.driver.ID,
			check:    func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrMissingStatus) },
		},
		{
			name:     "unknown status",
			driverID: f.driver.ID,
			status:   "teleported",
			check: func(t *testing.T, err error) {
				var validation *ValidationError
				assert.ErrorAs(t, err, &validation)
			},
		},
		{
			name:     "skipping ahead",
			driverID: f.driver.ID,
			status:   domain.OrderStatusDelivered,
			check: func(t *testing.T, err error) {
				var transition *TransitionError
				assert.ErrorAs(t, err, &transition)
			},
		},
		{
			name:     "same status",
			driverID: f.driver.ID,
			status:   domain.OrderStatusPending,
			check: func(t *testing.T, err error) {
				var transition *TransitionError
				assert.ErrorAs(t, err, &transition)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.env.orders.UpdateStatus(f.env.ctx, order.ID, tt.driverID, tt.status)
			tt.check(t, err)
		})
	}

	unchanged, err := f.env.orders.GetOrder(f.env.ctx, order.ID, f.rider.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, unchanged.Status)
}

func TestOrderService_UpdateStatusRollsBack(t *testing.T) {
	t.Parallel()
	f := newOrderFixture(t)
	order := f.env.book(t, f.rider, f.cab)
	f.env.store.UpdateStatusError = errors.New("write failed")

	_, err := f.env.orders.UpdateStatus(f.env.ctx, order.ID, f.driver.ID, domain.OrderStatusCancelled)
	require.Error(t, err)
	assert.False(t, f.cabAvailable(t))
}

func TestOrderService_UpdateLocation(t *testing.T) {
	t.Parallel()
	f := newOrderFixture(t)
	order := f.env.book(t, f.rider, f.cab)

	updated, err := f.env.orders.UpdateLocation(f.env.ctx, order.ID, f.driver.ID, []float64{77.61, 12.95})
	require.NoError(t, err)
	require.NotNil(t, updated.CurrentLocation)
	assert.Equal(t, domain.GeoPoint{Lng: 77.61, Lat: 12.95}, updated.CurrentLocation.Point)
	assert.False(t, updated.CurrentLocation.LastUpdated.IsZero())

	_, err = f.env.orders.UpdateLocation(f.env.ctx, order.ID, f.rider.ID, []float64{77.61, 12.95})
	assert.ErrorIs(t, err, ErrLocationUpdateDenied)

	for _, coords := range [][]float64{nil, {77.61}, {77.61, 12.95, 3}, {181, 0}, {0, -91}} {
		_, err = f.env.orders.UpdateLocation(f.env.ctx, order.ID, f.driver.ID, coords)
		assert.ErrorIs(t, err, ErrInvalidCoordinates, "coordinates %v", coords)
	}

	_, err = f.env.orders.UpdateStatus(f.env.ctx, order.ID, f.driver.ID, domain.OrderStatusCancelled)
	require.NoError(t, err)
	_, err = f.env.orders.UpdateLocation(f.env.ctx, order.ID, f.driver.ID, []float64{77.62, 12.96})
	assert.ErrorIs(t, err, ErrOrderClosed)
}

func TestOrderService_Track(t *testing.T) {
	t.Parallel()
	f := newOrderFixture(t)
	order := f.env.book(t, f.rider, f.cab)
	stranger := f.env.register(t, "sam", domain.RoleUser)

	tracking, err := f.env.orders.Track(f.env.ctx, order.ID, f.rider.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, tracking.OrderID)
	assert.Equal(t, "dave", tracking.Driver.Name)
	assert.Equal(t, "KA01", tracking.VehicleNumber)
	assert.Nil(t, tracking.CurrentLocation)

	_, err = f.env.orders.Track(f.env.ctx, order.ID, stranger.ID)
	assert.ErrorIs(t, err, ErrTrackingDenied)
}
