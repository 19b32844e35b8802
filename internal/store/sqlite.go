package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "option-journal/internal/errors"
	"option-journal/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Trades table for journal positions. exit_price is NULL while the
	-- position is open; the 64-bit rowid is the trade ID.
	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		type TEXT NOT NULL,
		strike REAL NOT NULL,
		stock_price REAL NOT NULL,
		price REAL NOT NULL,
		contracts INTEGER NOT NULL,
		expiration_date DATETIME NOT NULL,
		exit_price REAL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
	CREATE INDEX IF NOT EXISTS idx_trades_created_at ON trades(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// exitPriceValue maps the zero-means-open convention onto a NULL
// column, so a trade saved with exit price 0 reloads as open rather
// than closed at $0.
func exitPriceValue(price float64) interface{} {
	if price == 0 {
		return nil
	}
	return price
}

// CreateTrade inserts a new trade and returns the assigned ID.
func (s *SQLiteStore) CreateTrade(ctx context.Context, trade *models.Trade) (int64, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (symbol, type, strike, stock_price, price, contracts, expiration_date, exit_price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, trade.Symbol, string(trade.Type), trade.Strike, trade.StockPrice, trade.Price, trade.Contracts, trade.ExpirationDate, exitPriceValue(trade.ExitPrice), now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to insert trade: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read trade id: %w", err)
	}

	trade.ID = id
	trade.CreatedAt = now
	trade.UpdatedAt = now
	return id, nil
}

// UpdateTrade replaces all fields of an existing trade.
func (s *SQLiteStore) UpdateTrade(ctx context.Context, trade *models.Trade) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE trades
		SET symbol = ?, type = ?, strike = ?, stock_price = ?, price = ?, contracts = ?, expiration_date = ?, exit_price = ?, updated_at = ?
		WHERE id = ?
	`, trade.Symbol, string(trade.Type), trade.Strike, trade.StockPrice, trade.Price, trade.Contracts, trade.ExpirationDate, exitPriceValue(trade.ExitPrice), now, trade.ID)
	if err != nil {
		return fmt.Errorf("failed to update trade: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrTradeNotFound
	}

	trade.UpdatedAt = now
	return nil
}

// CloseTrade records the exit price of a trade.
func (s *SQLiteStore) CloseTrade(ctx context.Context, id int64, exitPrice float64) error {
	if exitPrice < 0 {
		return apperrors.NewValidationError("exitPrice", exitPrice, "exit price must be 0 or greater")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE trades SET exit_price = ?, updated_at = ? WHERE id = ?
	`, exitPriceValue(exitPrice), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to close trade: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check close result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrTradeNotFound
	}
	return nil
}

// DeleteTrade removes a trade from the journal.
func (s *SQLiteStore) DeleteTrade(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM trades WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrTradeNotFound
	}
	return nil
}

const tradeColumns = "id, symbol, type, strike, stock_price, price, contracts, expiration_date, exit_price, created_at, updated_at"

// GetTrade retrieves a single trade by ID.
func (s *SQLiteStore) GetTrade(ctx context.Context, id int64) (*models.Trade, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+tradeColumns+" FROM trades WHERE id = ?", id)

	trade, err := scanTrade(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrTradeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	return trade, nil
}

// ListTrades retrieves trades matching the filter, newest first.
func (s *SQLiteStore) ListTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error) {
	query := "SELECT " + tradeColumns + " FROM trades WHERE 1=1"
	args := []interface{}{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if filter.Type != "" {
		query += " AND type = ?"
		args = append(args, string(filter.Type))
	}
	switch filter.Status {
	case StatusOpen:
		query += " AND exit_price IS NULL"
	case StatusClosed:
		query += " AND exit_price IS NOT NULL"
	}
	if !filter.StartDate.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query += " AND created_at <= ?"
		args = append(args, filter.EndDate)
	}

	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, *trade)
	}

	return trades, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(row rowScanner) (*models.Trade, error) {
	var t models.Trade
	var tradeType string
	var exitPrice sql.NullFloat64

	if err := row.Scan(&t.ID, &t.Symbol, &tradeType, &t.Strike, &t.StockPrice, &t.Price, &t.Contracts, &t.ExpirationDate, &exitPrice, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}

	t.Type = models.TradeType(tradeType)
	if exitPrice.Valid {
		t.ExitPrice = exitPrice.Float64
	}
	return &t, nil
}
