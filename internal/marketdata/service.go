package marketdata

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	apperrors "option-journal/internal/errors"
	"option-journal/internal/models"
)

// ChainProvider supplies spot quotes and option-chain snapshots.
type ChainProvider interface {
	Quote(ctx context.Context, symbol string) (float64, error)
	OptionChain(ctx context.Context, symbol string) (*models.OptionChain, error)
}

// QuoteBatcher supplies batched price and earnings lookups.
type QuoteBatcher interface {
	Quotes(ctx context.Context, symbols []string) ([]models.BatchQuote, error)
}

// Service resolves symbols against the market-data providers.
type Service struct {
	chains ChainProvider
	quotes QuoteBatcher
	logger zerolog.Logger
}

// NewService creates a new market-data service.
func NewService(chains ChainProvider, quotes QuoteBatcher, logger zerolog.Logger) *Service {
	return &Service{
		chains: chains,
		quotes: quotes,
		logger: logger,
	}
}

// ValidateSymbol resolves a ticker to its spot price and option chain.
// The two lookups run concurrently. Expirations already in the past are
// dropped and the remainder sorted ascending, so the first entry is the
// default expiration for a new trade.
func (s *Service) ValidateSymbol(ctx context.Context, symbol string) (*models.SymbolData, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, apperrors.NewValidationError("symbol", symbol, "symbol is required")
	}

	var (
		spot  float64
		chain *models.OptionChain
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		spot, err = s.chains.Quote(gctx, symbol)
		return err
	})
	g.Go(func() error {
		var err error
		chain, err = s.chains.OptionChain(gctx, symbol)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("symbol validation failed")
		return nil, err
	}

	if chain.SpotPrice == 0 {
		chain.SpotPrice = spot
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var dates []time.Time
	for _, entry := range chain.Expirations {
		if !entry.ExpirationDate.Before(today) {
			dates = append(dates, entry.ExpirationDate)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	s.logger.Debug().
		Str("symbol", symbol).
		Float64("spot", spot).
		Int("expirations", len(dates)).
		Msg("symbol validated")

	return &models.SymbolData{
		Symbol:          symbol,
		SpotPrice:       spot,
		Chain:           chain,
		ExpirationDates: dates,
	}, nil
}

// BatchQuotes returns current prices and earnings dates for a set of
// symbols.
func (s *Service) BatchQuotes(ctx context.Context, symbols []string) ([]models.BatchQuote, error) {
	cleaned := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym != "" {
			cleaned = append(cleaned, sym)
		}
	}
	if len(cleaned) == 0 {
		return nil, apperrors.NewValidationError("symbols", symbols, "at least one symbol is required")
	}
	return s.quotes.Quotes(ctx, cleaned)
}
