// Package memory provides an in-memory implementation of the repositories.
// It is used by service and handler tests and for running without PostgreSQL.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// Store holds users, cabs and orders in maps guarded by a mutex.
type Store struct {
	mu     sync.RWMutex
	txMu   sync.Mutex
	users  map[string]domain.User
	cabs   map[string]domain.Cab
	orders map[string]domain.Order

	// Error injection for tests.
	CreateOrderError  error
	UpdateStatusError error
	ReserveError      error
}

var (
	_ repository.Transactor = (*Store)(nil)
	_ repository.Tx         = (*Store)(nil)
)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:  make(map[string]domain.User),
		cabs:   make(map[string]domain.Cab),
		orders: make(map[string]domain.Order),
	}
}

// Users returns the store as a repository.UserRepository.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Cabs returns the store as a repository.CabRepository.
func (s *Store) Cabs() repository.CabRepository { return cabRepo{s} }

// Orders returns the store as a repository.OrderRepository.
func (s *Store) Orders() repository.OrderRepository { return orderRepo{s} }

// WithinTx runs fn against the store, restoring the previous contents if fn fails.
// Transactions are serialized.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	cabs := cloneMap(s.cabs)
	orders := cloneMap(s.orders)
	s.mu.RUnlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.cabs = cabs
		s.orders = orders
		s.mu.Unlock()
		return err
	}
	return nil
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func checkID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", repository.ErrInvalidID
	}
	return parsed.String(), nil
}

// userRepo implements repository.UserRepository.
type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email := strings.ToLower(user.Email)
	for _, existing := range r.s.users {
		if existing.Email == email {
			return repository.ErrDuplicate
		}
	}
	stored := *user
	stored.Email = email
	r.s.users[user.ID] = stored
	return nil
}

func (r userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	id, err := checkID(id)
	if err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	email = strings.ToLower(email)
	for _, user := range r.s.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

// cabRepo implements repository.CabRepository.
type cabRepo struct{ s *Store }

func (r cabRepo) Create(ctx context.Context, cab *domain.Cab) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.cabs {
		if existing.VehicleNumber == cab.VehicleNumber || existing.DriverID == cab.DriverID {
			return repository.ErrDuplicate
		}
	}
	r.s.cabs[cab.ID] = *cab
	return nil
}

func (r cabRepo) GetByID(ctx context.Context, id string) (*domain.CabView, error) {
	id, err := checkID(id)
	if err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	cab, ok := r.s.cabs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.s.cabView(cab), nil
}

func (r cabRepo) GetByDriverID(ctx context.Context, driverID string) (*domain.Cab, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, cab := range r.s.cabs {
		if cab.DriverID == driverID {
			c := cab
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r cabRepo) List(ctx context.Context, filter domain.CabFilter) ([]*domain.CabView, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	cabs := []*domain.CabView{}
	if filter.IDs != nil {
		for _, id := range filter.IDs {
			if cab, ok := r.s.cabs[id]; ok && matchesCab(cab, filter) {
				cabs = append(cabs, r.s.cabView(cab))
			}
		}
		return cabs, nil
	}

	for _, cab := range r.s.cabs {
		if matchesCab(cab, filter) {
			cabs = append(cabs, r.s.cabView(cab))
		}
	}
	sort.Slice(cabs, func(i, j int) bool {
		return cabs[i].CreatedAt.Before(cabs[j].CreatedAt)
	})
	return cabs, nil
}

func matchesCab(cab domain.Cab, filter domain.CabFilter) bool {
	if filter.Available != nil && cab.IsAvailable != *filter.Available {
		return false
	}
	if filter.VehicleType != "" && cab.VehicleType != filter.VehicleType {
		return false
	}
	return true
}

func (r cabRepo) Update(ctx context.Context, cab *domain.Cab) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.cabs[cab.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, other := range r.s.cabs {
		if id != cab.ID && other.VehicleNumber == cab.VehicleNumber {
			return repository.ErrDuplicate
		}
	}

	existing.VehicleType = cab.VehicleType
	existing.VehicleModel = cab.VehicleModel
	existing.VehicleNumber = cab.VehicleNumber
	existing.Capacity = cab.Capacity
	existing.PricePerKm = cab.PricePerKm
	existing.Location = cab.Location
	r.s.cabs[cab.ID] = existing
	return nil
}

func (r cabRepo) Reserve(ctx context.Context, id string) (*domain.Cab, error) {
	if r.s.ReserveError != nil {
		return nil, r.s.ReserveError
	}

	id, err := checkID(id)
	if err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cab, ok := r.s.cabs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !cab.IsAvailable {
		return nil, repository.ErrConflict
	}
	cab.IsAvailable = false
	r.s.cabs[id] = cab
	return &cab, nil
}

func (r cabRepo) SetAvailability(ctx context.Context, id string, available bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cab, ok := r.s.cabs[id]
	if !ok {
		return repository.ErrNotFound
	}
	cab.IsAvailable = available
	r.s.cabs[id] = cab
	return nil
}

// orderRepo implements repository.OrderRepository.
type orderRepo struct{ s *Store }

func (r orderRepo) Create(ctx context.Context, order *domain.Order) error {
	if r.s.CreateOrderError != nil {
		return r.s.CreateOrderError
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.orders[order.ID] = *order
	return nil
}

func (r orderRepo) GetByID(ctx context.Context, id string) (*domain.OrderView, error) {
	id, err := checkID(id)
	if err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	order, ok := r.s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.s.orderView(order), nil
}

func (r orderRepo) List(ctx context.Context, filter domain.OrderFilter) ([]*domain.OrderView, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	orders := []*domain.OrderView{}
	for _, order := range r.s.orders {
		if filter.UserID != "" && order.UserID != filter.UserID {
			continue
		}
		if filter.CabID != "" && order.CabID != filter.CabID {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		orders = append(orders, r.s.orderView(order))
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (r orderRepo) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, completedAt time.Time) error {
	if r.s.UpdateStatusError != nil {
		return r.s.UpdateStatusError
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	order, ok := r.s.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	if order.Status != from {
		return repository.ErrConflict
	}
	order.Status = to
	order.CompletedAt = completedAt
	r.s.orders[id] = order
	return nil
}

func (r orderRepo) UpdateLocation(ctx context.Context, id string, location domain.TrackedLocation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	order, ok := r.s.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	loc := location
	order.CurrentLocation = &loc
	r.s.orders[id] = order
	return nil
}

// cabView joins a cab with its driver. Callers hold s.mu.
func (s *Store) cabView(cab domain.Cab) *domain.CabView {
	view := &domain.CabView{Cab: cab}
	if driver, ok := s.users[cab.DriverID]; ok {
		view.Driver = driver.Summary()
	}
	return view
}

// orderView joins an order with its rider and cab. Callers hold s.mu.
func (s *Store) orderView(order domain.Order) *domain.OrderView {
	if order.CurrentLocation != nil {
		loc := *order.CurrentLocation
		order.CurrentLocation = &loc
	}

	view := &domain.OrderView{Order: order}
	if rider, ok := s.users[order.UserID]; ok {
		view.Rider = rider.Summary()
	}
	if cab, ok := s.cabs[order.CabID]; ok {
		view.Cab = domain.CabSummary{
			ID:            cab.ID,
			VehicleType:   cab.VehicleType,
			VehicleModel:  cab.VehicleModel,
			VehicleNumber: cab.VehicleNumber,
		}
		if driver, ok := s.users[cab.DriverID]; ok {
			view.Cab.Driver = driver.Summary()
		}
	}
	return view
}
