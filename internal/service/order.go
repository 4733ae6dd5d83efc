package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// OrderService handles the order lifecycle and the availability of the booked cab.
type OrderService struct {
	transactor          repository.Transactor
	orderRepo           repository.OrderRepository
	cabRepo             repository.CabRepository
	notificationService *NotificationService
	logger              logrus.FieldLogger
	now                 func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(
	transactor repository.Transactor,
	orderRepo repository.OrderRepository,
	cabRepo repository.CabRepository,
	notificationService *NotificationService,
	logger logrus.FieldLogger,
) *OrderService {
	return &OrderService{
		transactor:          transactor,
		orderRepo:           orderRepo,
		cabRepo:             cabRepo,
		notificationService: notificationService,
		logger:              logger,
		now:                 time.Now,
	}
}

// CreateOrderRequest contains the parameters for booking a cab.
type CreateOrderRequest struct {
	RiderID  string
	CabID    string
	Pickup   domain.GeoPoint
	Drop     domain.GeoPoint
	Distance float64
}

// CreateOrder books an available cab. The cab is reserved and the order
// inserted in one transaction.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.OrderView, error) {
	var problems fieldErrors
	if req.CabID == "" {
		problems.add("Please provide a cab")
	}
	if !req.Pickup.Valid() {
		problems.add("Please add pickup coordinates")
	}
	if !req.Drop.Valid() {
		problems.add("Please add drop coordinates")
	}
	if req.Distance < 0 {
		problems.add("distance must not be negative")
	}
	if err := problems.err(); err != nil {
		return nil, err
	}

	order := &domain.Order{
		ID:             uuid.New().String(),
		UserID:         req.RiderID,
		CabID:          req.CabID,
		PickupLocation: req.Pickup,
		DropLocation:   req.Drop,
		Distance:       req.Distance,
		Status:         domain.OrderStatusPending,
		CreatedAt:      s.now(),
	}

	err := s.transactor.WithinTx(ctx, func(tx repository.Tx) error {
		cab, err := tx.Cabs().Reserve(ctx, req.CabID)
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrNotFound):
				return ErrCabNotFound
			case errors.Is(err, repository.ErrConflict):
				return ErrCabUnavailable
			}
			return err
		}

		order.CabID = cab.ID
		order.Price = order.Distance * cab.PricePerKm
		return tx.Orders().Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	view, err := s.orderRepo.GetByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	if err := s.notificationService.NotifyOrderCreated(ctx, view); err != nil {
		s.logger.WithError(err).WithField("order_id", view.ID).Warn("failed to notify driver")
	}

	return view, nil
}

// ListOrders returns the caller's orders, newest first. Riders see the orders
// they booked, drivers the orders on their cab. A driver without a cab sees none.
func (s *OrderService) ListOrders(ctx context.Context, caller *domain.User, status domain.OrderStatus) ([]*domain.OrderView, error) {
	if status != "" && !status.Valid() {
		return nil, &ValidationError{Messages: []string{"status must be one of: pending, accepted, picked, delivered, cancelled"}}
	}

	filter := domain.OrderFilter{Status: status}
	if caller.Role == domain.RoleDriver {
		cab, err := s.cabRepo.GetByDriverID(ctx, caller.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return []*domain.OrderView{}, nil
			}
			return nil, err
		}
		filter.CabID = cab.ID
	} else {
		filter.UserID = caller.ID
	}

	return s.orderRepo.List(ctx, filter)
}

// GetOrder returns an order visible to callerID.
func (s *OrderService) GetOrder(ctx context.Context, id, callerID string) (*domain.OrderView, error) {
	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if !isParticipant(order, callerID) {
		return nil, ErrOrderAccessDenied
	}
	return order, nil
}

// UpdateStatus moves an order along the status graph on behalf of its cab's driver.
// Reaching a terminal status releases the cab in the same transaction.
func (s *OrderService) UpdateStatus(ctx context.Context, id, driverID string, status domain.OrderStatus) (*domain.OrderView, error) {
	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.Cab.Driver.ID != driverID {
		return nil, ErrOrderUpdateDenied
	}

	if status == "" {
		return nil, ErrMissingStatus
	}
	if !status.Valid() {
		return nil, &ValidationError{Messages: []string{"status must be one of: pending, accepted, picked, delivered, cancelled"}}
	}
	if !order.Status.CanTransitionTo(status) {
		return nil, &TransitionError{From: order.Status, To: status}
	}

	var completedAt time.Time
	if status == domain.OrderStatusDelivered {
		completedAt = s.now()
	}

	err = s.transactor.WithinTx(ctx, func(tx repository.Tx) error {
		if err := tx.Orders().UpdateStatus(ctx, order.ID, order.Status, status, completedAt); err != nil {
			return err
		}
		if status.IsTerminal() {
			return tx.Cabs().SetAvailability(ctx, order.CabID, true)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// Another update won; report the transition against the current status.
			if latest, loadErr := s.loadOrder(ctx, id); loadErr == nil {
				return nil, &TransitionError{From: latest.Status, To: status}
			}
		}
		return nil, err
	}

	updated, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.notificationService.NotifyOrderStatusChanged(ctx, updated, order.Status); err != nil {
		s.logger.WithError(err).WithField("order_id", updated.ID).Warn("failed to notify rider")
	}

	return updated, nil
}

// UpdateLocation records the live [longitude, latitude] position of an open order.
func (s *OrderService) UpdateLocation(ctx context.Context, id, driverID string, coordinates []float64) (*domain.OrderView, error) {
	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.Cab.Driver.ID != driverID {
		return nil, ErrLocationUpdateDenied
	}

	if len(coordinates) != 2 {
		return nil, ErrInvalidCoordinates
	}
	point := domain.GeoPoint{Lng: coordinates[0], Lat: coordinates[1]}
	if !point.Valid() {
		return nil, ErrInvalidCoordinates
	}

	if order.Status.IsTerminal() {
		return nil, ErrOrderClosed
	}

	location := domain.TrackedLocation{Point: point, LastUpdated: s.now()}
	if err := s.orderRepo.UpdateLocation(ctx, order.ID, location); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	return s.loadOrder(ctx, id)
}

// Track returns the tracking projection of an order visible to callerID.
func (s *OrderService) Track(ctx context.Context, id, callerID string) (*domain.Tracking, error) {
	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if !isParticipant(order, callerID) {
		return nil, ErrTrackingDenied
	}
	return order.Tracking(), nil
}

func (s *OrderService) loadOrder(ctx context.Context, id string) (*domain.OrderView, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// isParticipant reports whether userID is the order's rider or its cab's driver.
func isParticipant(order *domain.OrderView, userID string) bool {
	return order.UserID == userID || order.Cab.Driver.ID == userID
}
