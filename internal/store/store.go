// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"option-journal/internal/models"
)

// DataStore defines the persistence surface for the trade journal.
type DataStore interface {
	// CreateTrade inserts a new trade and returns its assigned ID.
	CreateTrade(ctx context.Context, trade *models.Trade) (int64, error)
	// UpdateTrade replaces all fields of an existing trade; the ID is
	// preserved.
	UpdateTrade(ctx context.Context, trade *models.Trade) error
	// CloseTrade records the exit price of a trade. An exit price of 0
	// reopens the position, per the journal's open/closed convention.
	CloseTrade(ctx context.Context, id int64, exitPrice float64) error
	DeleteTrade(ctx context.Context, id int64) error
	GetTrade(ctx context.Context, id int64) (*models.Trade, error)
	// ListTrades returns trades matching the filter, newest first.
	ListTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error)

	Close() error
}

// TradeStatus filters trades by their open/closed state.
type TradeStatus string

const (
	StatusAny    TradeStatus = ""
	StatusOpen   TradeStatus = "open"
	StatusClosed TradeStatus = "closed"
)

// TradeFilter represents filters for querying trades.
type TradeFilter struct {
	Symbol    string
	Type      models.TradeType
	Status    TradeStatus
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}
