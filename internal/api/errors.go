package api

import (
	"errors"
	"net/http"
)

type AppError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	ErrBadRequest   = &AppError{Code: http.StatusBadRequest, Message: "bad request"}
	ErrUnauthorized = &AppError{Code: http.StatusUnauthorized, Message: "unauthorized"}
	ErrForbidden    = &AppError{Code: http.StatusForbidden, Message: "forbidden"}
	ErrNotFound     = &AppError{Code: http.StatusNotFound, Message: "not found"}

	// Deliberately uniform: callers must not be able to tell why a
	// credential was rejected.
	ErrUnauthenticated = &AppError{Code: http.StatusUnauthorized, Message: "unauthorized"}

	ErrInternalServer      = &AppError{Code: http.StatusInternalServerError, Message: "internal server error"}
	ErrServerMisconfigured = &AppError{Code: http.StatusInternalServerError, Message: "service is not configured"}

	ErrQuotaExceeded = &AppError{Code: http.StatusForbidden, Message: "generation limit reached, upgrade to pro to continue"}

	ErrGenerationFailed        = &AppError{Code: http.StatusInternalServerError, Message: "image generation failed"}
	ErrPaymentValidationFailed = &AppError{Code: http.StatusBadRequest, Message: "payment validation failed"}
	ErrPaymentAlreadyUsed      = &AppError{Code: http.StatusConflict, Message: "payment reference already used"}
)

func NewBadRequestError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

func NewValidationError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

// NewUpstreamError surfaces an upstream rejection with its status.
func NewUpstreamError(status int, msg string) *AppError {
	if status < 400 || status > 599 {
		status = http.StatusBadGateway
	}
	return &AppError{Code: status, Message: msg}
}

func HandleError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		JSONErrorMessage(w, appErr.Code, appErr.Message)
		return
	}
	JSONErrorMessage(w, http.StatusInternalServerError, "internal server error")
}
