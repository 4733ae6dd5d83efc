package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

const orderViewQuery = `
	SELECT o.id, o.user_id, o.cab_id, o.pickup_lng, o.pickup_lat, o.drop_lng, o.drop_lat,
	       o.distance, o.price, o.status, o.current_lng, o.current_lat, o.location_updated_at,
	       o.created_at, o.completed_at,
	       r.name, r.email,
	       c.vehicle_type, c.vehicle_model, c.vehicle_number, c.driver_id,
	       d.name, d.email
	FROM orders o
	JOIN users r ON r.id = o.user_id
	JOIN cabs c ON c.id = o.cab_id
	JOIN users d ON d.id = c.driver_id
`

// OrderRepository is a PostgreSQL implementation of repository.OrderRepository.
type OrderRepository struct {
	q Querier
}

// NewOrderRepository creates a new PostgreSQL order repository.
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{q: db}
}

// NewOrderRepositoryWithTx creates an order repository using a transaction.
func NewOrderRepositoryWithTx(tx *sql.Tx) *OrderRepository {
	return &OrderRepository{q: tx}
}

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (id, user_id, cab_id, pickup_lng, pickup_lat, drop_lng, drop_lat, distance, price, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.q.ExecContext(ctx, query,
		order.ID,
		order.UserID,
		order.CabID,
		order.PickupLocation.Lng,
		order.PickupLocation.Lat,
		order.DropLocation.Lng,
		order.DropLocation.Lat,
		order.Distance,
		order.Price,
		order.Status,
		order.CreatedAt,
	)
	return mapWriteError(err)
}

// GetByID retrieves an order with its rider and cab.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.OrderView, error) {
	id, err := parseID(id)
	if err != nil {
		return nil, err
	}

	view, err := scanOrderView(r.q.QueryRowContext(ctx, orderViewQuery+` WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return view, nil
}

// List retrieves orders matching the filter, newest first.
func (r *OrderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]*domain.OrderView, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("o.user_id = $%d", len(args)))
	}
	if filter.CabID != "" {
		args = append(args, filter.CabID)
		conditions = append(conditions, fmt.Sprintf("o.cab_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("o.status = $%d", len(args)))
	}

	query := orderViewQuery
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY o.created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []*domain.OrderView{}
	for rows.Next() {
		view, err := scanOrderView(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, view)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus moves an order from one status to another only if it is still in status from.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, completedAt time.Time) error {
	id, err := parseID(id)
	if err != nil {
		return err
	}

	var completed sql.NullTime
	if !completedAt.IsZero() {
		completed = sql.NullTime{Time: completedAt, Valid: true}
	}

	query := `UPDATE orders SET status = $1, completed_at = $2 WHERE id = $3 AND status = $4`
	result, err := r.q.ExecContext(ctx, query, to, completed, id, from)
	if err != nil {
		return err
	}
	return requireAffected(result, repository.ErrConflict)
}

// UpdateLocation stores the live location of an order.
func (r *OrderRepository) UpdateLocation(ctx context.Context, id string, location domain.TrackedLocation) error {
	id, err := parseID(id)
	if err != nil {
		return err
	}

	query := `
		UPDATE orders SET current_lng = $1, current_lat = $2, location_updated_at = $3
		WHERE id = $4
	`
	result, err := r.q.ExecContext(ctx, query,
		location.Point.Lng,
		location.Point.Lat,
		location.LastUpdated,
		id,
	)
	if err != nil {
		return err
	}
	return requireAffected(result, repository.ErrNotFound)
}

func scanOrderView(row scanner) (*domain.OrderView, error) {
	var view domain.OrderView
	var currentLng, currentLat sql.NullFloat64
	var locationUpdatedAt, completedAt sql.NullTime

	err := row.Scan(
		&view.ID,
		&view.UserID,
		&view.CabID,
		&view.PickupLocation.Lng,
		&view.PickupLocation.Lat,
		&view.DropLocation.Lng,
		&view.DropLocation.Lat,
		&view.Distance,
		&view.Price,
		&view.Status,
		&currentLng,
		&currentLat,
		&locationUpdatedAt,
		&view.CreatedAt,
		&completedAt,
		&view.Rider.Name,
		&view.Rider.Email,
		&view.Cab.VehicleType,
		&view.Cab.VehicleModel,
		&view.Cab.VehicleNumber,
		&view.Cab.Driver.ID,
		&view.Cab.Driver.Name,
		&view.Cab.Driver.Email,
	)
	if err != nil {
		return nil, err
	}

	view.Rider.ID = view.UserID
	view.Cab.ID = view.CabID
	if currentLng.Valid && currentLat.Valid {
		view.CurrentLocation = &domain.TrackedLocation{
			Point: domain.GeoPoint{Lng: currentLng.Float64, Lat: currentLat.Float64},
		}
		if locationUpdatedAt.Valid {
			view.CurrentLocation.LastUpdated = locationUpdatedAt.Time
		}
	}
	if completedAt.Valid {
		view.CompletedAt = completedAt.Time
	}
	return &view, nil
}
