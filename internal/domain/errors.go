package domain

import (
	"errors"
	"fmt"
)

// Business and infrastructure error kinds. Match them with errors.Is.
var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidPrice         = errors.New("invalid price")
	ErrInvalidSide          = errors.New("invalid trade side")
	ErrInvalidRequest       = errors.New("invalid trade request")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrNoSuchHolding        = errors.New("no such holding")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	ErrLedgerNotFound       = errors.New("ledger not found")
	ErrPersistence          = errors.New("persistence failure")
	ErrPriceUnavailable     = errors.New("price unavailable")
)

// PersistenceError wraps a store failure. The ledger was left unchanged.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistence, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrPersistence) true for any PersistenceError.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// UserMessage returns a human-readable explanation suitable for end users.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidAmount):
		return "Amount must be a positive number"
	case errors.Is(err, ErrInvalidPrice):
		return "Price must be a non-negative number"
	case errors.Is(err, ErrInvalidSide):
		return "Trade side must be 'buy' or 'sell'"
	case errors.Is(err, ErrInvalidRequest):
		return "Trade request is missing required fields"
	case errors.Is(err, ErrInsufficientBalance):
		return "Insufficient balance for this purchase"
	case errors.Is(err, ErrNoSuchHolding):
		return "You do not hold this token"
	case errors.Is(err, ErrInsufficientHoldings):
		return "You cannot sell more tokens than you hold"
	case errors.Is(err, ErrPriceUnavailable):
		return "Price is currently unavailable for this token, please try again"
	case errors.Is(err, ErrPersistence):
		return "Could not save your trade, nothing was changed. Please retry"
	default:
		return "Unexpected error"
	}
}
