package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"ridehail/internal/auth"
	"ridehail/internal/middleware"
	"ridehail/internal/repository"
	"ridehail/internal/service"
)

// Response is the envelope of every response body.
type Response struct {
	Success bool `json:"success"`
	Count   *int `json:"count,omitempty"`
	Data    any  `json:"data,omitempty"`
	// Error is a message or, for validation failures, a list of messages.
	Error any `json:"error,omitempty"`
}

// errInvalidBody is returned when a request body cannot be decoded.
var errInvalidBody = errors.New("invalid request body")

// respondJSON sends a successful response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, Response{Success: true, Data: data})
}

// respondList sends a successful list response with its length.
func respondList(c *gin.Context, data any, count int) {
	c.JSON(http.StatusOK, Response{Success: true, Count: &count, Data: data})
}

// bindJSON decodes the body into req. Failures are recorded on the context
// for ErrorHandler and reported as false.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			_ = c.Error(verrs)
		} else {
			_ = c.Error(fmt.Errorf("%w: %v", errInvalidBody, err))
		}
		return false
	}
	return true
}

var sentinelResponses = []struct {
	err     error
	status  int
	message string
}{
	{repository.ErrInvalidID, http.StatusNotFound, "Resource not found"},
	{repository.ErrDuplicate, http.StatusBadRequest, "Duplicate field value entered"},
	{auth.ErrInvalidToken, http.StatusUnauthorized, "Invalid token"},
	{auth.ErrTokenExpired, http.StatusUnauthorized, "Token expired"},
	{auth.ErrMissingToken, http.StatusUnauthorized, "Not authorized to access this route"},
	{service.ErrUserNotFound, http.StatusUnauthorized, "Not authorized to access this route"},
	{service.ErrUserExists, http.StatusBadRequest, "User already exists"},
	{service.ErrMissingCredentials, http.StatusBadRequest, "Please provide email and password"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
	{service.ErrCabNotFound, http.StatusNotFound, "Cab not found"},
	{service.ErrCabUnavailable, http.StatusBadRequest, "Cab is not available at the moment"},
	{service.ErrNotCabOwner, http.StatusUnauthorized, "Not authorized to update this cab"},
	{service.ErrOrderNotFound, http.StatusNotFound, "Order not found"},
	{service.ErrOrderAccessDenied, http.StatusUnauthorized, "Not authorized to access this order"},
	{service.ErrOrderUpdateDenied, http.StatusUnauthorized, "Not authorized to update this order"},
	{service.ErrLocationUpdateDenied, http.StatusUnauthorized, "Not authorized to update this order location"},
	{service.ErrTrackingDenied, http.StatusUnauthorized, "Not authorized to track this order"},
	{service.ErrMissingStatus, http.StatusBadRequest, "Please provide status to update"},
	{service.ErrInvalidCoordinates, http.StatusBadRequest, "Please provide valid coordinates [longitude, latitude]"},
	{service.ErrOrderClosed, http.StatusBadRequest, "Cannot update the location of a completed or cancelled order"},
	{errInvalidBody, http.StatusBadRequest, "Invalid request body"},
}

// translateError maps an error to a status code and a message or message list.
func translateError(err error) (int, any) {
	var (
		fieldErrs  validator.ValidationErrors
		validation *service.ValidationError
		transition *service.TransitionError
		roleErr    *auth.RoleError
	)

	switch {
	case errors.As(err, &fieldErrs):
		return http.StatusBadRequest, fieldMessages(fieldErrs)
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Messages
	case errors.As(err, &transition):
		return http.StatusBadRequest, transition.Error()
	case errors.As(err, &roleErr):
		return http.StatusForbidden, roleErr.Error()
	}

	for _, r := range sentinelResponses {
		if errors.Is(err, r.err) {
			return r.status, r.message
		}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.EOF) {
		return http.StatusBadRequest, "Invalid request body"
	}

	return http.StatusInternalServerError, "Server Error"
}

// ErrorHandler renders the last error recorded on the context, if the handler
// has not written a response. Server errors are logged with the request fields.
func ErrorHandler(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status, message := translateError(err)
		if status == http.StatusInternalServerError {
			status, message = presetStatus(c, status, message, err)
		}
		if status >= http.StatusInternalServerError {
			logger.WithFields(logrus.Fields{
				"method":     c.Request.Method,
				"path":       c.Request.URL.Path,
				"request_id": middleware.GetRequestID(c),
			}).WithError(err).Error("request failed")
		}

		c.JSON(status, Response{Success: false, Error: message})
	}
}

// presetStatus keeps an error status the handler chose with c.Status for an
// error the table does not classify.
func presetStatus(c *gin.Context, status int, message any, err error) (int, any) {
	preset := c.Writer.Status()
	if preset < http.StatusBadRequest {
		return status, message
	}
	if preset >= http.StatusInternalServerError {
		return preset, message
	}
	return preset, err.Error()
}

// Recovery converts panics into the standard 500 response.
func Recovery(logger logrus.FieldLogger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"request_id": middleware.GetRequestID(c),
			"panic":      recovered,
		}).Error("panic recovered")
		c.AbortWithStatusJSON(http.StatusInternalServerError, Response{Success: false, Error: "Server Error"})
	})
}

// NotFound answers unknown routes.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, Response{Success: false, Error: "Route not found"})
}

// fieldMessages renders one message per failed field, named by its JSON path.
func fieldMessages(errs validator.ValidationErrors) []string {
	messages := make([]string, 0, len(errs))
	for _, fe := range errs {
		messages = append(messages, fieldMessage(fe))
	}
	return messages
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Please add %s", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(strings.Fields(fe.Param()), ", "))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must not be less than %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must contain exactly %s values", field, fe.Param())
	case "eq":
		return fmt.Sprintf("%s must be %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
