package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/middleware"
	"ridehail/internal/service"
)

// CabHandler handles HTTP requests for cabs.
type CabHandler struct {
	cabService *service.CabService
}

// NewCabHandler creates a new CabHandler.
func NewCabHandler(cabService *service.CabService) *CabHandler {
	return &CabHandler{cabService: cabService}
}

// CreateCabRequest is the HTTP request body for registering a cab.
type CreateCabRequest struct {
	VehicleType     string        `json:"vehicleType" binding:"required,oneof=car bike auto"`
	VehicleModel    string        `json:"vehicleModel" binding:"required"`
	VehicleNumber   string        `json:"vehicleNumber" binding:"required"`
	Capacity        int           `json:"capacity" binding:"required,gt=0"`
	PricePerKm      float64       `json:"pricePerKm" binding:"required,gt=0"`
	CurrentLocation *PointRequest `json:"currentLocation" binding:"required"`
}

// UpdateCabRequest is the HTTP request body for editing a cab.
// Availability is managed by orders and cannot be set here.
type UpdateCabRequest struct {
	VehicleType     *string       `json:"vehicleType" binding:"omitempty,oneof=car bike auto"`
	VehicleModel    *string       `json:"vehicleModel" binding:"omitempty,min=1"`
	VehicleNumber   *string       `json:"vehicleNumber" binding:"omitempty,min=1"`
	Capacity        *int          `json:"capacity" binding:"omitempty,gt=0"`
	PricePerKm      *float64      `json:"pricePerKm" binding:"omitempty,gt=0"`
	CurrentLocation *PointRequest `json:"currentLocation"`
}

// List handles GET /cabs
func (h *CabHandler) List(c *gin.Context) {
	query, err := parseCabQuery(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	cabs, err := h.cabService.ListCabs(c.Request.Context(), query)
	if err != nil {
		_ = c.Error(err)
		return
	}

	respondList(c, newCabs(cabs), len(cabs))
}

// Get handles GET /cabs/:id
func (h *CabHandler) Get(c *gin.Context) {
	cab, err := h.cabService.GetCab(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	respondJSON(c, http.StatusOK, newCab(cab))
}

// Create handles POST /cabs
func (h *CabHandler) Create(c *gin.Context) {
	var req CreateCabRequest
	if !bindJSON(c, &req) {
		return
	}

	cab, err := h.cabService.CreateCab(c.Request.Context(), service.CreateCabRequest{
		DriverID:      middleware.CurrentUser(c).ID,
		VehicleType:   domain.VehicleType(req.VehicleType),
		VehicleModel:  req.VehicleModel,
		VehicleNumber: req.VehicleNumber,
		Capacity:      req.Capacity,
		PricePerKm:    req.PricePerKm,
		Location:      req.CurrentLocation.point(),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	respondJSON(c, http.StatusCreated, newCab(cab))
}

// Update handles PUT /cabs/:id
func (h *CabHandler) Update(c *gin.Context) {
	var req UpdateCabRequest
	if !bindJSON(c, &req) {
		return
	}

	patch := service.CabPatch{
		VehicleModel:  req.VehicleModel,
		VehicleNumber: req.VehicleNumber,
		Capacity:      req.Capacity,
		PricePerKm:    req.PricePerKm,
	}
	if req.VehicleType != nil {
		vt := domain.VehicleType(*req.VehicleType)
		patch.VehicleType = &vt
	}
	if req.CurrentLocation != nil {
		p := req.CurrentLocation.point()
		patch.Location = &p
	}

	cab, err := h.cabService.UpdateCab(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c).ID, patch)
	if err != nil {
		_ = c.Error(err)
		return
	}

	respondJSON(c, http.StatusOK, newCab(cab))
}

// parseCabQuery reads ?available&vehicleType&lat&lng&maxDistance.
// The proximity filter applies only when lat, lng and maxDistance are all given.
func parseCabQuery(c *gin.Context) (service.CabQuery, error) {
	var (
		query    service.CabQuery
		problems []string
	)

	if raw, ok := c.GetQuery("available"); ok && raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			problems = append(problems, "available must be true or false")
		} else {
			query.Available = &available
		}
	}

	query.VehicleType = domain.VehicleType(c.Query("vehicleType"))

	geo := make(map[string]float64, 3)
	for _, key := range []string{"lat", "lng", "maxDistance"} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			problems = append(problems, key+" must be a number")
			continue
		}
		geo[key] = v
	}

	if len(problems) > 0 {
		return query, &service.ValidationError{Messages: problems}
	}

	if len(geo) == 3 {
		query.Near = &domain.GeoPoint{Lng: geo["lng"], Lat: geo["lat"]}
		query.MaxDistanceKm = geo["maxDistance"]
	}
	return query, nil
}
