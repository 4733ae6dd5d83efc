package domain

import "time"

// OrderStatus represents the current status of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusPicked    OrderStatus = "picked"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// orderTransitions lists the statuses reachable from each non-terminal status.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:  {OrderStatusAccepted, OrderStatusCancelled},
	OrderStatusAccepted: {OrderStatusPicked, OrderStatusCancelled},
	OrderStatusPicked:   {OrderStatusDelivered, OrderStatusCancelled},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusAccepted, OrderStatusPicked,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether the order is finished. Terminal orders release their cab.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo reports whether an order may move from s to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TrackedLocation is the last reported live position of an order.
type TrackedLocation struct {
	Point       GeoPoint
	LastUpdated time.Time
}

// Order represents a ride booked by a rider on a cab.
type Order struct {
	ID              string
	UserID          string
	CabID           string
	PickupLocation  GeoPoint
	DropLocation    GeoPoint
	Distance        float64 // In kilometers
	Price           float64 // Distance * cab price per km, fixed at creation
	Status          OrderStatus
	CurrentLocation *TrackedLocation
	CreatedAt       time.Time
	CompletedAt     time.Time
}

// CabSummary is the part of a cab shown alongside an order.
type CabSummary struct {
	ID            string
	VehicleType   VehicleType
	VehicleModel  string
	VehicleNumber string
	Driver        UserSummary
}

// OrderView is an order joined with its rider and cab.
type OrderView struct {
	Order
	Rider UserSummary
	Cab   CabSummary
}

// OrderFilter narrows an order listing. Empty fields impose no constraint.
type OrderFilter struct {
	UserID string
	CabID  string
	Status OrderStatus
}

// Tracking is the reduced projection of an order used for live tracking.
type Tracking struct {
	OrderID         string
	Status          OrderStatus
	PickupLocation  GeoPoint
	DropLocation    GeoPoint
	CurrentLocation *TrackedLocation
	Driver          UserSummary
	VehicleType     VehicleType
	VehicleNumber   string
}

// Tracking projects the order view for live tracking.
func (v *OrderView) Tracking() *Tracking {
	return &Tracking{
		OrderID:         v.ID,
		Status:          v.Status,
		PickupLocation:  v.PickupLocation,
		DropLocation:    v.DropLocation,
		CurrentLocation: v.CurrentLocation,
		Driver:          v.Cab.Driver,
		VehicleType:     v.Cab.VehicleType,
		VehicleNumber:   v.Cab.VehicleNumber,
	}
}
