// Package marketdata provides clients for third-party finance APIs and
// the symbol validation service built on top of them.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	apperrors "option-journal/internal/errors"
	"option-journal/internal/models"
)

const chainDateFormat = "2006-01-02"

// FinnhubConfig holds Finnhub client configuration.
type FinnhubConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// FinnhubClient fetches spot quotes and option-chain snapshots from the
// Finnhub REST API.
type FinnhubClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewFinnhubClient creates a new Finnhub client.
func NewFinnhubClient(cfg FinnhubConfig) *FinnhubClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://finnhub.io/api/v1"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &FinnhubClient{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Quote returns the current price for a symbol.
func (c *FinnhubClient) Quote(ctx context.Context, symbol string) (float64, error) {
	var resp struct {
		Current float64 `json:"c"`
	}
	if err := c.getJSON(ctx, "/quote", symbol, &resp); err != nil {
		return 0, err
	}
	// Finnhub reports 0 for unknown tickers instead of an error status.
	if resp.Current == 0 {
		return 0, apperrors.NewMarketDataError("finnhub", symbol, "no quote data", apperrors.ErrSymbolNotFound)
	}
	return resp.Current, nil
}

type finnhubContract struct {
	ContractName      string  `json:"contractName"`
	ExpirationDate    string  `json:"expirationDate"`
	Strike            float64 `json:"strike"`
	LastPrice         float64 `json:"lastPrice"`
	Bid               float64 `json:"bid"`
	Ask               float64 `json:"ask"`
	Volume            int64   `json:"volume"`
	OpenInterest      int64   `json:"openInterest"`
	ImpliedVolatility float64 `json:"impliedVolatility"`
	Delta             float64 `json:"delta"`
	Gamma             float64 `json:"gamma"`
	Theta             float64 `json:"theta"`
	Vega              float64 `json:"vega"`
	Rho               float64 `json:"rho"`
}

type finnhubChainResponse struct {
	Code           string  `json:"code"`
	Exchange       string  `json:"exchange"`
	LastTradePrice float64 `json:"lastTradePrice"`
	Data           []struct {
		ExpirationDate string `json:"expirationDate"`
		Options        struct {
			Call []finnhubContract `json:"CALL"`
			Put  []finnhubContract `json:"PUT"`
		} `json:"options"`
	} `json:"data"`
}

// OptionChain returns the full option chain for a symbol.
func (c *FinnhubClient) OptionChain(ctx context.Context, symbol string) (*models.OptionChain, error) {
	var resp finnhubChainResponse
	if err := c.getJSON(ctx, "/stock/option-chain", symbol, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, apperrors.NewMarketDataError("finnhub", symbol, "empty option chain", apperrors.ErrChainUnavailable)
	}

	chain := &models.OptionChain{
		Symbol:    symbol,
		SpotPrice: resp.LastTradePrice,
	}
	for _, entry := range resp.Data {
		expiry, err := time.Parse(chainDateFormat, entry.ExpirationDate)
		if err != nil {
			return nil, apperrors.NewMarketDataError("finnhub", symbol, "malformed expiration date "+entry.ExpirationDate, err)
		}
		chain.Expirations = append(chain.Expirations, models.ExpirationQuotes{
			ExpirationDate: expiry,
			Calls:          mapContracts(entry.Options.Call, expiry),
			Puts:           mapContracts(entry.Options.Put, expiry),
		})
	}
	return chain, nil
}

func mapContracts(contracts []finnhubContract, entryExpiry time.Time) []models.OptionQuote {
	quotes := make([]models.OptionQuote, 0, len(contracts))
	for _, c := range contracts {
		expiry := entryExpiry
		if parsed, err := time.Parse(chainDateFormat, c.ExpirationDate); err == nil {
			expiry = parsed
		}
		quotes = append(quotes, models.OptionQuote{
			ContractName:      c.ContractName,
			ExpirationDate:    expiry,
			Strike:            c.Strike,
			LastPrice:         c.LastPrice,
			Bid:               c.Bid,
			Ask:               c.Ask,
			Volume:            c.Volume,
			OpenInterest:      c.OpenInterest,
			ImpliedVolatility: c.ImpliedVolatility,
			Greeks: models.OptionGreeks{
				Delta: c.Delta,
				Gamma: c.Gamma,
				Theta: c.Theta,
				Vega:  c.Vega,
				Rho:   c.Rho,
			},
		})
	}
	return quotes
}

func (c *FinnhubClient) getJSON(ctx context.Context, path, symbol string, out interface{}) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("token", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return apperrors.NewMarketDataError("finnhub", symbol, "building request", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.NewMarketDataError("finnhub", symbol, "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.NewMarketDataError("finnhub", symbol, "too many requests", apperrors.ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return apperrors.NewMarketDataError("finnhub", symbol, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewMarketDataError("finnhub", symbol, "decoding response", err)
	}
	return nil
}
