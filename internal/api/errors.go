package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"taskpulse/internal/service"
)

// requestError is a client error raised by the HTTP layer itself.
type requestError struct {
	status  int
	code    string
	message string
}

func (e *requestError) Error() string {
	return e.message
}

func badRequest(format string, args ...interface{}) error {
	return &requestError{status: http.StatusBadRequest, code: "BAD_REQUEST", message: fmt.Sprintf(format, args...)}
}

type errorBody struct {
	Success   bool   `json:"success"`
	ErrorID   string `json:"errorId"`
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

// ErrorHandler renders the last error a handler attached with c.Error.
// Store and driver error text is logged, never returned.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status, code, message := classify(err)
		errorID := "ERR-" + uuid.NewString()

		userID := "guest"
		if user := currentUser(c); user != nil {
			userID = user.ID
		}
		log.Printf("[error] %s %s %s user=%s status=%d: %v", errorID, c.Request.Method, c.Request.URL.Path, userID, status, err)

		c.JSON(status, errorBody{
			Success:   false,
			ErrorID:   errorID,
			ErrorCode: code,
			Message:   message,
		})
	}
}

func classify(err error) (int, string, string) {
	var reqErr *requestError
	var valErr *service.ValidationError
	switch {
	case errors.As(err, &reqErr):
		return reqErr.status, reqErr.code, reqErr.message
	case errors.As(err, &valErr):
		return http.StatusBadRequest, "VALIDATION_ERROR", valErr.Error()
	case errors.Is(err, service.ErrInvalidRange):
		return http.StatusBadRequest, "INVALID_RANGE", "dateFrom must not be after dateTo"
	case errors.Is(err, service.ErrInvalidLength):
		return http.StatusBadRequest, "INVALID_LENGTH", "Series length must be positive"
	case errors.Is(err, service.ErrInvalidUser):
		return http.StatusBadRequest, "INVALID_USER", "Invalid user id"
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Invalid credentials"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Resource not found"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "CONFLICT", "User already exists"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT", "Request timed out"
	case errors.Is(err, service.ErrAggregationFailed):
		return http.StatusInternalServerError, "AGGREGATION_FAILED", "Server error computing analytics"
	default:
		return http.StatusInternalServerError, "SERVER_ERROR", "Internal server error"
	}
}
