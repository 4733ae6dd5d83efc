package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/middleware"
	"ridehail/internal/service"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	orderService *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// CreateOrderRequest is the HTTP request body for booking a cab.
type CreateOrderRequest struct {
	Cab            string        `json:"cab" binding:"required"`
	PickupLocation *PointRequest `json:"pickupLocation" binding:"required"`
	DropLocation   *PointRequest `json:"dropLocation" binding:"required"`
	Distance       *float64      `json:"distance" binding:"omitempty,gte=0"`
}

// UpdateStatusRequest is the HTTP request body for a status change.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateLocationRequest is the HTTP request body for a live location report.
type UpdateLocationRequest struct {
	Coordinates []float64 `json:"coordinates"`
}

// Create handles POST /orders
func (h *OrderHandler) Create(c *gin.Context) {
	var req CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	var distance float64
	if req.Distance != nil {
		distance = *req.Distance
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), service.CreateOrderRequest{
		RiderID:  middleware.CurrentUser(c).ID,
		CabID:    req.Cab,
		Pickup:   req.PickupLocation.point(),
		Drop:     req.DropLocation.point(),
		Distance: distance,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	respondJSON(c, http.StatusCreated, newOrder(order))
}

// List handles GET /orders
func (h *OrderHandler) List(c *gin.Context) {
	status := domain.OrderStatus(c.Query("status"))

	orders, err := h.orderService.ListOrders(c.Request.Context(), middleware.CurrentUser(c), status)
	if err != nil {
		_ = c.Error(err)
		return
	}

	respondList(c, newOrders(orders), len(orders))
}

// Get handles GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c).ID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	respondJSON(c, http.StatusOK, newOrder(order))
}

// UpdateStatus handles PUT /orders/:id
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// An undecodable status is reported as missing, after the access checks.
		req.Status = ""
	}

	status := domain.OrderStatus(req.Status)
	order, err := h.orderService.UpdateStatus(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c).ID, status)
	if err != nil {
		_ = c.Error(err)
		return
	}

	respondJSON(c, http.StatusOK, newOrder(order))
}

// UpdateLocation handles PUT /orders/:id/track
func (h *OrderHandler) UpdateLocation(c *gin.Context) {
	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Undecodable coordinates are rejected by the service after the access checks.
		req.Coordinates = nil
	}

	order, err := h.orderService.UpdateLocation(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c).ID, req.Coordinates)
	if err != nil {
		_ = c.Error(err)
		return
	}

	respondJSON(c, http.StatusOK, newOrder(order))
}

// Track handles GET /orders/:id/track
func (h *OrderHandler) Track(c *gin.Context) {
	tracking, err := h.orderService.Track(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c).ID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	respondJSON(c, http.StatusOK, newTracking(tracking))
}

// Health handles GET /health
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
