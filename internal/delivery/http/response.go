package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"papertrade/internal/domain"
)

// Response represents a standardized API response
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

// SuccessResponse sends a success response
func SuccessResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		Status: "success",
		Data:   data,
	})
}

// SuccessMessageResponse sends a success response with a message
func SuccessMessageResponse(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

// CreatedResponse sends a 201 Created response
func CreatedResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{
		Status: "success",
		Data:   data,
	})
}

// ErrorResponse sends an error response
func ErrorResponse(c echo.Context, statusCode int, message string, err interface{}) error {
	return c.JSON(statusCode, Response{
		Status:  "error",
		Message: message,
		Error:   err,
	})
}

// BadRequestResponse sends a 400 Bad Request response
func BadRequestResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusBadRequest, message, nil)
}

// UnauthorizedResponse sends a 401 Unauthorized response
func UnauthorizedResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusUnauthorized, message, nil)
}

// InternalServerErrorResponse sends a 500 Internal Server Error response
func InternalServerErrorResponse(c echo.Context, message string, err error) error {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	return ErrorResponse(c, http.StatusInternalServerError, message, errMsg)
}

// UnprocessableResponse sends a 422 Unprocessable Entity response
func UnprocessableResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusUnprocessableEntity, message, nil)
}

// ServiceUnavailableResponse sends a 503 Service Unavailable response
func ServiceUnavailableResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusServiceUnavailable, message, nil)
}

// DomainErrorResponse maps a ledger error to a status code and a
// user-facing message
func DomainErrorResponse(c echo.Context, err error) error {
	msg := domain.UserMessage(err)
	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrInvalidSide),
		errors.Is(err, domain.ErrInvalidRequest):
		return BadRequestResponse(c, msg)
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrNoSuchHolding),
		errors.Is(err, domain.ErrInsufficientHoldings):
		return UnprocessableResponse(c, msg)
	case errors.Is(err, domain.ErrPriceUnavailable),
		errors.Is(err, domain.ErrPersistence):
		return ServiceUnavailableResponse(c, msg)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrorResponse(c, http.StatusGatewayTimeout, "Request timed out, please retry", nil)
	default:
		return InternalServerErrorResponse(c, msg, err)
	}
}
