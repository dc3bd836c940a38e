package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingCredentials = &AppError{http.StatusUnauthorized, "MISSING_CREDENTIALS", "Basic authorization required"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed   = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInvalidCardNumber     = &AppError{http.StatusBadRequest, "INVALID_CARD_NUMBER", "Card number is malformed"}
	ErrAccountNotFound       = &AppError{http.StatusNotFound, "ACCOUNT_NOT_FOUND", "Account not found"}
	ErrAccountDeleted        = &AppError{http.StatusConflict, "ACCOUNT_DELETED", "Account is deleted"}
	ErrNotEnoughFunds        = &AppError{http.StatusUnprocessableEntity, "NOT_ENOUGH_FUNDS", "Not enough funds"}
	ErrBadTransaction        = &AppError{http.StatusUnprocessableEntity, "BAD_TRANSACTION", "Transaction is not allowed"}
	ErrTokenMismatch         = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Request token does not match"}
	ErrSessionNotFound       = &AppError{http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found or already used"}
	ErrLedgerUnavailable     = &AppError{http.StatusServiceUnavailable, "LEDGER_UNAVAILABLE", "Ledger is busy, please retry"}
	ErrIdempotencyConflict   = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
	ErrIdempotencyInProgress = &AppError{http.StatusConflict, "IDEMPOTENCY_IN_PROGRESS", "A request with this idempotency key is still being processed"}
)
