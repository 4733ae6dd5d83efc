package domain

import "time"

// VehicleType represents the kind of vehicle a cab is.
type VehicleType string

const (
	VehicleTypeCar  VehicleType = "car"
	VehicleTypeBike VehicleType = "bike"
	VehicleTypeAuto VehicleType = "auto"
)

// Valid reports whether t is a known vehicle type.
func (t VehicleType) Valid() bool {
	switch t {
	case VehicleTypeCar, VehicleTypeBike, VehicleTypeAuto:
		return true
	}
	return false
}

// Cab represents a vehicle owned by a driver.
type Cab struct {
	ID            string
	DriverID      string
	VehicleType   VehicleType
	VehicleModel  string
	VehicleNumber string
	Capacity      int
	PricePerKm    float64
	IsAvailable   bool
	Location      GeoPoint
	CreatedAt     time.Time
}

// CabView is a cab joined with its driver's public identity.
type CabView struct {
	Cab
	Driver UserSummary
}

// CabFilter narrows a cab listing. Nil or empty fields impose no constraint.
type CabFilter struct {
	Available   *bool
	VehicleType VehicleType
	// IDs restricts the result to the given cabs, e.g. from a proximity search.
	IDs []string
}
