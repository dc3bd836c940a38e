package domain

import "errors"

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountDeleted    = errors.New("account was deleted")
	ErrNotEnoughFunds    = errors.New("not enough funds for operation")
	ErrNotAuthorized     = errors.New("account is not authorized")
	ErrBadTransaction    = errors.New("can't perform transaction")
	ErrLockUnavailable   = errors.New("ledger lock unavailable")
	ErrInvalidCardNumber = errors.New("invalid card number")
	ErrSessionNotFound   = errors.New("session not found")
	ErrTokenMismatch     = errors.New("token mismatch")
	ErrWrongStoreAccount = errors.New("session bound to a different store account")
	ErrInvalidRequest    = errors.New("invalid request")
)
