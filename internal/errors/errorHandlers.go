package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeBadRequest          ErrorType = "BAD_REQUEST"
	ErrorTypeUnauthorized        ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden           ErrorType = "FORBIDDEN"
	ErrorTypeNotFound            ErrorType = "NOT_FOUND"
	ErrorTypeNotConfigured       ErrorType = "NOT_CONFIGURED"
	ErrorTypeInternalServerError ErrorType = "INTERNAL_SERVER_ERROR"
)

// Sentinel errors returned by the service layer. HandleError maps them to
// HTTP responses so services stay free of status codes.
var (
	ErrValidation    = stderrors.New("validation failed")
	ErrNotFound      = stderrors.New("resource not found")
	ErrForbidden     = stderrors.New("access forbidden")
	ErrUnauthorized  = stderrors.New("unauthorized")
	ErrNotConfigured = stderrors.New("backend is not configured")
)

// CustomError represents a custom error with associated HTTP status code and type
type CustomError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Internal   error
}

// Error implements the error interface
func (e *CustomError) Error() string {
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Internal
}

func newError(errType ErrorType, message string, statusCode int, internal error) *CustomError {
	return &CustomError{
		Type:       errType,
		Message:    message,
		StatusCode: statusCode,
		Internal:   internal,
	}
}

// New400Error creates a new bad request error
func New400Error(message string) *CustomError {
	return newError(ErrorTypeBadRequest, message, http.StatusBadRequest, ErrValidation)
}

// New401Error creates a new unauthorized error
func New401Error() *CustomError {
	return newError(ErrorTypeUnauthorized, "Unauthorized access", http.StatusUnauthorized, ErrUnauthorized)
}

// New403Error creates a new forbidden error
func New403Error() *CustomError {
	return newError(ErrorTypeForbidden, "Access forbidden", http.StatusForbidden, ErrForbidden)
}

// New404Error creates a new not found error
func New404Error(message string) *CustomError {
	return newError(ErrorTypeNotFound, message, http.StatusNotFound, ErrNotFound)
}

// New503Error reports that a backend the request depends on has no configuration.
func New503Error(message string) *CustomError {
	return newError(ErrorTypeNotConfigured, message, http.StatusServiceUnavailable, ErrNotConfigured)
}

// New500Error creates a new internal server error
func New500Error(internal error) *CustomError {
	return newError(ErrorTypeInternalServerError, "An unexpected error occurred", http.StatusInternalServerError, internal)
}

// Validationf builds a 400 error from a formatted message.
func Validationf(format string, args ...interface{}) *CustomError {
	return New400Error(fmt.Sprintf(format, args...))
}

// FromError converts any error into a CustomError, recognising the sentinels.
func FromError(err error) *CustomError {
	var customErr *CustomError
	if stderrors.As(err, &customErr) {
		return customErr
	}
	switch {
	case stderrors.Is(err, ErrValidation):
		return New400Error(err.Error())
	case stderrors.Is(err, ErrNotFound):
		return New404Error("Resource not found")
	case stderrors.Is(err, ErrForbidden):
		return New403Error()
	case stderrors.Is(err, ErrUnauthorized):
		return New401Error()
	case stderrors.Is(err, ErrNotConfigured):
		return New503Error("Backend is not configured")
	}
	return New500Error(err)
}

// HandleError handles the custom error and sends an appropriate JSON response
func HandleError(c *gin.Context, err error) {
	customErr := FromError(err)

	if customErr.Type == ErrorTypeInternalServerError {
		logger := zerolog.Ctx(c.Request.Context())
		if logger.GetLevel() == zerolog.Disabled {
			logger = &log.Logger
		}
		logger.Error().
			Err(customErr.Internal).
			Str("url", c.Request.URL.String()).
			Msg("Internal Server Error")
	}

	c.AbortWithStatusJSON(customErr.StatusCode, gin.H{
		"error": gin.H{
			"type":    customErr.Type,
			"message": customErr.Message,
		},
	})
}

// LogAndReturn500 logs an internal error and returns a 500 error
func LogAndReturn500(internal error) *CustomError {
	log.Error().Err(internal).Msg("Internal Server Error")
	return New500Error(internal)
}
