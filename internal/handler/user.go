package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

// UserHandler handles HTTP requests for accounts.
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// RegisterRequest is the HTTP request body for registration.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"omitempty,oneof=user driver"`
	Address  string `json:"address"`
}

// LoginRequest is the HTTP request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned on register and login.
type SessionResponse struct {
	Success bool     `json:"success"`
	Token   string   `json:"token"`
	User    UserJSON `json:"user"`
}

// Register handles POST /users/register
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.userService.Register(c.Request.Context(), service.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.Role(req.Role),
		Address:  req.Address,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	respondSession(c, http.StatusCreated, session)
}

// Login handles POST /users/login
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.userService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	respondSession(c, http.StatusOK, session)
}

func respondSession(c *gin.Context, code int, session *service.Session) {
	c.JSON(code, SessionResponse{
		Success: true,
		Token:   session.Token,
		User: UserJSON{
			ID:    session.User.ID,
			Name:  session.User.Name,
			Email: session.User.Email,
			Role:  session.User.Role,
		},
	})
}
