// Package models defines the core data types for the trade journal.
package models

import (
	"strings"
	"time"

	apperrors "option-journal/internal/errors"
)

// TradeType identifies the option side and direction of a position.
// The "short" prefix marks credit (seller) positions; "call"/"put"
// marks the side. These string values are the wire and storage format.
type TradeType string

const (
	TypeCall      TradeType = "call"
	TypePut       TradeType = "put"
	TypeShortCall TradeType = "short-call"
	TypeShortPut  TradeType = "short-put"
)

// Valid reports whether t is one of the known trade types.
func (t TradeType) Valid() bool {
	switch t {
	case TypeCall, TypePut, TypeShortCall, TypeShortPut:
		return true
	}
	return false
}

// Trade represents a user-entered option position.
//
// ExitPrice carries the journal's open/closed convention: zero means
// the position is still open, any other value is the premium it was
// closed at. A zero-cost close is deliberately not representable; an
// exit price submitted as 0 is stored and read back as "open".
type Trade struct {
	ID             int64     `json:"id"`
	Symbol         string    `json:"symbol"`
	Type           TradeType `json:"type"`
	Strike         float64   `json:"strike"`
	StockPrice     float64   `json:"stockPrice"`
	Price          float64   `json:"price"`
	Contracts      int       `json:"contracts"`
	ExpirationDate time.Time `json:"expirationDate"`
	ExitPrice      float64   `json:"exitPrice,omitempty"`
	CreatedAt      time.Time `json:"createdAt,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt,omitempty"`
}

// Closed reports whether the position has been exited.
func (t *Trade) Closed() bool {
	return t.ExitPrice != 0
}

// Normalize trims and upper-cases the symbol.
func (t *Trade) Normalize() {
	t.Symbol = strings.ToUpper(strings.TrimSpace(t.Symbol))
}

// Validate checks the schema invariants of a trade record.
func (t *Trade) Validate() error {
	if strings.TrimSpace(t.Symbol) == "" {
		return apperrors.NewValidationError("symbol", t.Symbol, "symbol is required")
	}
	if !t.Type.Valid() {
		return apperrors.NewValidationError("type", t.Type, "unknown trade type")
	}
	if t.Strike <= 0 {
		return apperrors.NewValidationError("strike", t.Strike, "strike must be greater than 0")
	}
	if t.StockPrice <= 0 {
		return apperrors.NewValidationError("stockPrice", t.StockPrice, "stock price must be greater than 0")
	}
	if t.Price <= 0 {
		return apperrors.NewValidationError("price", t.Price, "price must be greater than 0")
	}
	if t.Contracts <= 0 {
		return apperrors.NewValidationError("contracts", t.Contracts, "number of contracts must be greater than 0")
	}
	if t.ExpirationDate.IsZero() {
		return apperrors.NewValidationError("expirationDate", t.ExpirationDate, "expiration date is required")
	}
	if t.ExitPrice < 0 {
		return apperrors.NewValidationError("exitPrice", t.ExitPrice, "exit price must be 0 or greater")
	}
	return nil
}
