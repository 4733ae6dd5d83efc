package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

const cabViewColumns = `
	c.id, c.driver_id, c.vehicle_type, c.vehicle_model, c.vehicle_number, c.capacity,
	c.price_per_km, c.is_available, c.location_lng, c.location_lat, c.created_at,
	u.name, u.email
`

const cabColumns = `
	id, driver_id, vehicle_type, vehicle_model, vehicle_number, capacity,
	price_per_km, is_available, location_lng, location_lat, created_at
`

// CabRepository is a PostgreSQL implementation of repository.CabRepository.
type CabRepository struct {
	q Querier
}

// NewCabRepository creates a new PostgreSQL cab repository.
func NewCabRepository(db *sql.DB) *CabRepository {
	return &CabRepository{q: db}
}

// NewCabRepositoryWithTx creates a cab repository using a transaction.
func NewCabRepositoryWithTx(tx *sql.Tx) *CabRepository {
	return &CabRepository{q: tx}
}

// Create persists a new cab.
func (r *CabRepository) Create(ctx context.Context, cab *domain.Cab) error {
	query := `
		INSERT INTO cabs (id, driver_id, vehicle_type, vehicle_model, vehicle_number, capacity, price_per_km, is_available, location_lng, location_lat, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.q.ExecContext(ctx, query,
		cab.ID,
		cab.DriverID,
		cab.VehicleType,
		cab.VehicleModel,
		cab.VehicleNumber,
		cab.Capacity,
		cab.PricePerKm,
		cab.IsAvailable,
		cab.Location.Lng,
		cab.Location.Lat,
		cab.CreatedAt,
	)
	return mapWriteError(err)
}

// GetByID retrieves a cab with its driver.
func (r *CabRepository) GetByID(ctx context.Context, id string) (*domain.CabView, error) {
	id, err := parseID(id)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + cabViewColumns + `
		FROM cabs c JOIN users u ON u.id = c.driver_id
		WHERE c.id = $1
	`
	view, err := scanCabView(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return view, nil
}

// GetByDriverID retrieves the cab owned by a driver.
func (r *CabRepository) GetByDriverID(ctx context.Context, driverID string) (*domain.Cab, error) {
	driverID, err := parseID(driverID)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + cabColumns + ` FROM cabs WHERE driver_id = $1`
	cab, err := scanCab(r.q.QueryRowContext(ctx, query, driverID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return cab, nil
}

// List retrieves all cabs matching the filter, oldest first.
// A non-nil empty IDs slice matches nothing.
func (r *CabRepository) List(ctx context.Context, filter domain.CabFilter) ([]*domain.CabView, error) {
	if filter.IDs != nil && len(filter.IDs) == 0 {
		return []*domain.CabView{}, nil
	}

	var (
		conditions []string
		args       []any
	)
	if filter.Available != nil {
		args = append(args, *filter.Available)
		conditions = append(conditions, fmt.Sprintf("c.is_available = $%d", len(args)))
	}
	if filter.VehicleType != "" {
		args = append(args, filter.VehicleType)
		conditions = append(conditions, fmt.Sprintf("c.vehicle_type = $%d", len(args)))
	}
	if filter.IDs != nil {
		args = append(args, pq.Array(filter.IDs))
		conditions = append(conditions, fmt.Sprintf("c.id = ANY($%d::uuid[])", len(args)))
	}

	query := `SELECT ` + cabViewColumns + ` FROM cabs c JOIN users u ON u.id = c.driver_id`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY c.created_at ASC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cabs := []*domain.CabView{}
	for rows.Next() {
		view, err := scanCabView(rows)
		if err != nil {
			return nil, err
		}
		cabs = append(cabs, view)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if filter.IDs != nil {
		cabs = orderByIDs(cabs, filter.IDs)
	}
	return cabs, nil
}

// Update writes the editable attributes of a cab.
func (r *CabRepository) Update(ctx context.Context, cab *domain.Cab) error {
	query := `
		UPDATE cabs
		SET vehicle_type = $1, vehicle_model = $2, vehicle_number = $3, capacity = $4,
		    price_per_km = $5, location_lng = $6, location_lat = $7
		WHERE id = $8
	`

	result, err := r.q.ExecContext(ctx, query,
		cab.VehicleType,
		cab.VehicleModel,
		cab.VehicleNumber,
		cab.Capacity,
		cab.PricePerKm,
		cab.Location.Lng,
		cab.Location.Lat,
		cab.ID,
	)
	if err != nil {
		return mapWriteError(err)
	}
	return requireAffected(result, repository.ErrNotFound)
}

// Reserve marks an available cab unavailable in a single conditional update.
func (r *CabRepository) Reserve(ctx context.Context, id string) (*domain.Cab, error) {
	id, err := parseID(id)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE cabs SET is_available = FALSE
		WHERE id = $1 AND is_available = TRUE
		RETURNING ` + cabColumns

	cab, err := scanCab(r.q.QueryRowContext(ctx, query, id))
	if err == nil {
		return cab, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	var exists bool
	if err := r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM cabs WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, repository.ErrNotFound
	}
	return nil, repository.ErrConflict
}

// SetAvailability sets the availability flag of a cab.
func (r *CabRepository) SetAvailability(ctx context.Context, id string, available bool) error {
	id, err := parseID(id)
	if err != nil {
		return err
	}

	result, err := r.q.ExecContext(ctx, `UPDATE cabs SET is_available = $1 WHERE id = $2`, available, id)
	if err != nil {
		return err
	}
	return requireAffected(result, repository.ErrNotFound)
}

func scanCab(row scanner) (*domain.Cab, error) {
	var cab domain.Cab
	err := row.Scan(
		&cab.ID,
		&cab.DriverID,
		&cab.VehicleType,
		&cab.VehicleModel,
		&cab.VehicleNumber,
		&cab.Capacity,
		&cab.PricePerKm,
		&cab.IsAvailable,
		&cab.Location.Lng,
		&cab.Location.Lat,
		&cab.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cab, nil
}

func scanCabView(row scanner) (*domain.CabView, error) {
	var view domain.CabView
	err := row.Scan(
		&view.ID,
		&view.DriverID,
		&view.VehicleType,
		&view.VehicleModel,
		&view.VehicleNumber,
		&view.Capacity,
		&view.PricePerKm,
		&view.IsAvailable,
		&view.Location.Lng,
		&view.Location.Lat,
		&view.CreatedAt,
		&view.Driver.Name,
		&view.Driver.Email,
	)
	if err != nil {
		return nil, err
	}
	view.Driver.ID = view.DriverID
	return &view, nil
}

// orderByIDs arranges cabs in the order of ids, e.g. nearest first.
func orderByIDs(cabs []*domain.CabView, ids []string) []*domain.CabView {
	byID := make(map[string]*domain.CabView, len(cabs))
	for _, cab := range cabs {
		byID[cab.ID] = cab
	}

	ordered := make([]*domain.CabView, 0, len(cabs))
	for _, id := range ids {
		if cab, ok := byID[id]; ok {
			ordered = append(ordered, cab)
			delete(byID, id)
		}
	}
	return ordered
}
