// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrTradeNotFound    = errors.New("trade not found")
	ErrSymbolNotFound   = errors.New("symbol not found")
	ErrChainUnavailable = errors.New("option chain unavailable")
	ErrRateLimited      = errors.New("rate limited")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrDatabaseError    = errors.New("database error")
	ErrStoreUnavailable = errors.New("store not initialized")
	ErrInputValidation  = errors.New("input validation failed")
)

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// MarketDataError represents an error from a market-data provider.
type MarketDataError struct {
	Provider string
	Symbol   string
	Message  string
	Err      error
}

func (e *MarketDataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("market data error [%s] %s: %s: %v", e.Provider, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("market data error [%s] %s: %s", e.Provider, e.Symbol, e.Message)
}

func (e *MarketDataError) Unwrap() error {
	return e.Err
}

// NewMarketDataError creates a new MarketDataError.
func NewMarketDataError(provider, symbol, message string, err error) *MarketDataError {
	return &MarketDataError{
		Provider: provider,
		Symbol:   symbol,
		Message:  message,
		Err:      err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
