package handler

import (
	"time"

	"ridehail/internal/domain"
)

// PointJSON is a GeoJSON point in [longitude, latitude] order.
type PointJSON struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

func newPoint(p domain.GeoPoint) PointJSON {
	return PointJSON{Type: "Point", Coordinates: p.Coordinates()}
}

// TrackedPointJSON is a live location with the time it was reported.
type TrackedPointJSON struct {
	PointJSON
	LastUpdated time.Time `json:"lastUpdated"`
}

func newTrackedPoint(loc *domain.TrackedLocation) *TrackedPointJSON {
	if loc == nil {
		return nil
	}
	return &TrackedPointJSON{PointJSON: newPoint(loc.Point), LastUpdated: loc.LastUpdated}
}

// PersonJSON is the public identity of a rider or driver.
type PersonJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func newPerson(u domain.UserSummary) PersonJSON {
	return PersonJSON{ID: u.ID, Name: u.Name, Email: u.Email}
}

// UserJSON is the profile returned on register and login.
type UserJSON struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// CabJSON is the response body for a cab.
type CabJSON struct {
	ID              string             `json:"id"`
	Driver          PersonJSON         `json:"driver"`
	VehicleType     domain.VehicleType `json:"vehicleType"`
	VehicleModel    string             `json:"vehicleModel"`
	VehicleNumber   string             `json:"vehicleNumber"`
	Capacity        int                `json:"capacity"`
	PricePerKm      float64            `json:"pricePerKm"`
	IsAvailable     bool               `json:"isAvailable"`
	CurrentLocation PointJSON          `json:"currentLocation"`
	CreatedAt       time.Time          `json:"createdAt"`
}

func newCab(c *domain.CabView) CabJSON {
	return CabJSON{
		ID:              c.ID,
		Driver:          newPerson(c.Driver),
		VehicleType:     c.VehicleType,
		VehicleModel:    c.VehicleModel,
		VehicleNumber:   c.VehicleNumber,
		Capacity:        c.Capacity,
		PricePerKm:      c.PricePerKm,
		IsAvailable:     c.IsAvailable,
		CurrentLocation: newPoint(c.Location),
		CreatedAt:       c.CreatedAt,
	}
}

func newCabs(cabs []*domain.CabView) []CabJSON {
	out := make([]CabJSON, 0, len(cabs))
	for _, c := range cabs {
		out = append(out, newCab(c))
	}
	return out
}

// OrderCabJSON is the cab summary embedded in an order.
type OrderCabJSON struct {
	ID            string             `json:"id"`
	VehicleType   domain.VehicleType `json:"vehicleType"`
	VehicleModel  string             `json:"vehicleModel"`
	VehicleNumber string             `json:"vehicleNumber"`
	Driver        PersonJSON         `json:"driver"`
}

// OrderJSON is the response body for an order.
type OrderJSON struct {
	ID              string             `json:"id"`
	User            PersonJSON         `json:"user"`
	Cab             OrderCabJSON       `json:"cab"`
	PickupLocation  PointJSON          `json:"pickupLocation"`
	DropLocation    PointJSON          `json:"dropLocation"`
	Distance        float64            `json:"distance"`
	Price           float64            `json:"price"`
	Status          domain.OrderStatus `json:"status"`
	CurrentLocation *TrackedPointJSON  `json:"currentLocation,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	CompletedAt     *time.Time         `json:"completedAt,omitempty"`
}

func newOrder(o *domain.OrderView) OrderJSON {
	out := OrderJSON{
		ID:   o.ID,
		User: newPerson(o.Rider),
		Cab: OrderCabJSON{
			ID:            o.Cab.ID,
			VehicleType:   o.Cab.VehicleType,
			VehicleModel:  o.Cab.VehicleModel,
			VehicleNumber: o.Cab.VehicleNumber,
			Driver:        newPerson(o.Cab.Driver),
		},
		PickupLocation:  newPoint(o.PickupLocation),
		DropLocation:    newPoint(o.DropLocation),
		Distance:        o.Distance,
		Price:           o.Price,
		Status:          o.Status,
		CurrentLocation: newTrackedPoint(o.CurrentLocation),
		CreatedAt:       o.CreatedAt,
	}
	if !o.CompletedAt.IsZero() {
		completed := o.CompletedAt
		out.CompletedAt = &completed
	}
	return out
}

func newOrders(orders []*domain.OrderView) []OrderJSON {
	out := make([]OrderJSON, 0, len(orders))
	for _, o := range orders {
		out = append(out, newOrder(o))
	}
	return out
}

// TrackingJSON is the response body for order tracking.
type TrackingJSON struct {
	OrderID         string             `json:"orderId"`
	Status          domain.OrderStatus `json:"status"`
	PickupLocation  PointJSON          `json:"pickupLocation"`
	DropLocation    PointJSON          `json:"dropLocation"`
	CurrentLocation *TrackedPointJSON  `json:"currentLocation"`
	Driver          struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"driver"`
	Vehicle struct {
		Type   domain.VehicleType `json:"type"`
		Number string             `json:"number"`
	} `json:"vehicle"`
}

func newTracking(t *domain.Tracking) TrackingJSON {
	out := TrackingJSON{
		OrderID:         t.OrderID,
		Status:          t.Status,
		PickupLocation:  newPoint(t.PickupLocation),
		DropLocation:    newPoint(t.DropLocation),
		CurrentLocation: newTrackedPoint(t.CurrentLocation),
	}
	out.Driver.Name = t.Driver.Name
	out.Driver.Email = t.Driver.Email
	out.Vehicle.Type = t.VehicleType
	out.Vehicle.Number = t.VehicleNumber
	return out
}

// PointRequest is a GeoJSON point in a request body.
type PointRequest struct {
	Type        string    `json:"type" binding:"omitempty,eq=Point"`
	Coordinates []float64 `json:"coordinates" binding:"required,len=2"`
}

func (p *PointRequest) point() domain.GeoPoint {
	return domain.GeoPoint{Lng: p.Coordinates[0], Lat: p.Coordinates[1]}
}
