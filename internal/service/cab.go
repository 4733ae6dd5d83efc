package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ridehail/internal/domain"
	"ridehail/internal/redis"
	"ridehail/internal/repository"
)

// CabService handles the cab directory.
type CabService struct {
	cabRepo   repository.CabRepository
	locations redis.LocationIndex
	logger    logrus.FieldLogger
}

// NewCabService creates a new CabService.
func NewCabService(cabRepo repository.CabRepository, locations redis.LocationIndex, logger logrus.FieldLogger) *CabService {
	return &CabService{
		cabRepo:   cabRepo,
		locations: locations,
		logger:    logger,
	}
}

// CabQuery narrows a cab listing. Near and MaxDistanceKm apply together.
type CabQuery struct {
	Available     *bool
	VehicleType   domain.VehicleType
	Near          *domain.GeoPoint
	MaxDistanceKm float64
}

// ListCabs returns the cabs matching q. Proximity queries are ordered nearest first.
func (s *CabService) ListCabs(ctx context.Context, q CabQuery) ([]*domain.CabView, error) {
	var problems fieldErrors
	if q.VehicleType != "" && !q.VehicleType.Valid() {
		problems.add("vehicleType must be one of: car, bike, auto")
	}
	if q.Near != nil {
		if !q.Near.Valid() {
			problems.add("lat must be within [-90, 90] and lng within [-180, 180]")
		} else if !q.Near.Indexable() {
			problems.add(latitudeOutOfIndexRange)
		}
		if !(q.MaxDistanceKm > 0) || math.IsInf(q.MaxDistanceKm, 1) {
			problems.add("maxDistance must be a positive number of kilometers")
		}
	}
	if err := problems.err(); err != nil {
		return nil, err
	}

	filter := domain.CabFilter{
		Available:   q.Available,
		VehicleType: q.VehicleType,
	}

	if q.Near != nil {
		nearby, err := s.locations.FindNearby(ctx, *q.Near, q.MaxDistanceKm)
		if err != nil {
			return nil, err
		}
		filter.IDs = make([]string, 0, len(nearby))
		for _, loc := range nearby {
			filter.IDs = append(filter.IDs, loc.CabID)
		}
	}

	return s.cabRepo.List(ctx, filter)
}

// GetCab returns a cab with its driver.
func (s *CabService) GetCab(ctx context.Context, id string) (*domain.CabView, error) {
	cab, err := s.cabRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCabNotFound
		}
		return nil, err
	}
	return cab, nil
}

// CreateCabRequest contains the parameters for registering a cab.
type CreateCabRequest struct {
	DriverID      string
	VehicleType   domain.VehicleType
	VehicleModel  string
	VehicleNumber string
	Capacity      int
	PricePerKm    float64
	Location      domain.GeoPoint
}

// CreateCab registers a cab for a driver. New cabs are available.
func (s *CabService) CreateCab(ctx context.Context, req CreateCabRequest) (*domain.CabView, error) {
	cab := &domain.Cab{
		ID:            uuid.New().String(),
		DriverID:      req.DriverID,
		VehicleType:   req.VehicleType,
		VehicleModel:  strings.TrimSpace(req.VehicleModel),
		VehicleNumber: strings.TrimSpace(req.VehicleNumber),
		Capacity:      req.Capacity,
		PricePerKm:    req.PricePerKm,
		IsAvailable:   true,
		Location:      req.Location,
		CreatedAt:     time.Now(),
	}
	if err := validateCab(cab); err != nil {
		return nil, err
	}

	if err := s.cabRepo.Create(ctx, cab); err != nil {
		return nil, err
	}
	s.indexLocation(ctx, cab)

	return s.GetCab(ctx, cab.ID)
}

// CabPatch holds the cab attributes a driver may change. Nil fields are left as is.
type CabPatch struct {
	VehicleType   *domain.VehicleType
	VehicleModel  *string
	VehicleNumber *string
	Capacity      *int
	PricePerKm    *float64
	Location      *domain.GeoPoint
}

// UpdateCab applies patch to a cab owned by driverID.
func (s *CabService) UpdateCab(ctx context.Context, id, driverID string, patch CabPatch) (*domain.CabView, error) {
	current, err := s.GetCab(ctx, id)
	if err != nil {
		return nil, err
	}

	if current.DriverID != driverID {
		return nil, ErrNotCabOwner
	}

	cab := current.Cab
	if patch.VehicleType != nil {
		cab.VehicleType = *patch.VehicleType
	}
	if patch.VehicleModel != nil {
		cab.VehicleModel = strings.TrimSpace(*patch.VehicleModel)
	}
	if patch.VehicleNumber != nil {
		cab.VehicleNumber = strings.TrimSpace(*patch.VehicleNumber)
	}
	if patch.Capacity != nil {
		cab.Capacity = *patch.Capacity
	}
	if patch.PricePerKm != nil {
		cab.PricePerKm = *patch.PricePerKm
	}
	if patch.Location != nil {
		cab.Location = *patch.Location
	}
	if err := validateCab(&cab); err != nil {
		return nil, err
	}

	if err := s.cabRepo.Update(ctx, &cab); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCabNotFound
		}
		return nil, err
	}
	if cab.Location != current.Location {
		s.indexLocation(ctx, &cab)
	}

	return s.GetCab(ctx, id)
}

// RebuildLocationIndex reloads the geo index from the cab table.
func (s *CabService) RebuildLocationIndex(ctx context.Context) (int, error) {
	cabs, err := s.cabRepo.List(ctx, domain.CabFilter{})
	if err != nil {
		return 0, err
	}

	locations := make([]redis.CabLocation, 0, len(cabs))
	for _, cab := range cabs {
		locations = append(locations, redis.CabLocation{CabID: cab.ID, Point: cab.Location})
	}

	if err := s.locations.Rebuild(ctx, locations); err != nil {
		return 0, err
	}
	return len(locations), nil
}

// indexLocation updates the geo index. Failures are logged; the next rebuild repairs the index.
func (s *CabService) indexLocation(ctx context.Context, cab *domain.Cab) {
	if err := s.locations.UpdateLocation(ctx, cab.ID, cab.Location); err != nil {
		s.logger.WithError(err).WithField("cab_id", cab.ID).Error("failed to index cab location")
	}
}

var latitudeOutOfIndexRange = fmt.Sprintf("latitude must be within [-%v, %v]", domain.MaxIndexableLat, domain.MaxIndexableLat)

func validateCab(cab *domain.Cab) error {
	var problems fieldErrors
	if cab.VehicleType == "" {
		problems.add("Please specify vehicle type")
	} else if !cab.VehicleType.Valid() {
		problems.add("vehicleType must be one of: car, bike, auto")
	}
	if cab.VehicleModel == "" {
		problems.add("Please add vehicle model")
	}
	if cab.VehicleNumber == "" {
		problems.add("Please add vehicle number")
	}
	if cab.Capacity <= 0 {
		problems.add("capacity must be greater than 0")
	}
	if cab.PricePerKm <= 0 {
		problems.add("pricePerKm must be greater than 0")
	}
	if !cab.Location.Valid() {
		problems.add("Please provide valid coordinates [longitude, latitude]")
	} else if !cab.Location.Indexable() {
		problems.add(latitudeOutOfIndexRange)
	}
	return problems.err()
}
