package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"ridehail/internal/auth"
	"ridehail/internal/domain"
	"ridehail/internal/redis"
	"ridehail/internal/repository/memory"
)

type testEnv struct {
	store  *memory.Store
	redis  *miniredis.Miniredis
	cache  *redis.CacheStore
	tokens *auth.TokenIssuer
	users  *UserService
	cabs   *CabService
	orders *OrderService
	ctx    context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := memory.NewStore()
	cache := redis.NewCacheStore(client, time.Minute)
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)

	return &testEnv{
		store:  store,
		redis:  mr,
		cache:  cache,
		tokens: tokens,
		users:  NewUserService(store.Users(), cache, tokens, hasher, logger),
		cabs:   NewCabService(store.Cabs(), redis.NewLocationStore(client), logger),
		orders: NewOrderService(store, store.Orders(), store.Cabs(), NewNotificationService(logger), logger),
		ctx:    context.Background(),
	}
}

func (e *testEnv) register(t *testing.T, name string, role domain.Role) *domain.User {
	t.Helper()
	session, err := e.users.Register(e.ctx, RegisterRequest{
		Name:     name,
		Email:    name + "@example.com",
		Password: "secret123",
		Role:     role,
	})
	require.NoError(t, err)
	return session.User
}

func (e *testEnv) createCab(t *testing.T, driver *domain.User, number string, at domain.GeoPoint) *domain.CabView {
	t.Helper()
	cab, err := e.cabs.CreateCab(e.ctx, CreateCabRequest{
		DriverID:      driver.ID,
		VehicleType:   domain.VehicleTypeCar,
		VehicleModel:  "Swift",
		VehicleNumber: number,
		Capacity:      4,
		PricePerKm:    12,
		Location:      at,
	})
	require.NoError(t, err)
	return cab
}

func (e *testEnv) book(t *testing.T, rider *domain.User, cab *domain.CabView) *domain.OrderView {
	t.Helper()
	order, err := e.orders.CreateOrder(e.ctx, CreateOrderRequest{
		RiderID:  rider.ID,
		CabID:    cab.ID,
		Pickup:   domain.GeoPoint{Lng: 77.59, Lat: 12.97},
		Drop:     domain.GeoPoint{Lng: 77.64, Lat: 12.93},
		Distance: 5,
	})
	require.NoError(t, err)
	return order
}
