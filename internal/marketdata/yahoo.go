package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "option-journal/internal/errors"
	"option-journal/internal/models"
)

// YahooConfig holds Yahoo Finance client configuration.
type YahooConfig struct {
	BaseURL string
	Timeout time.Duration
}

// YahooClient fetches batched price and earnings data from the Yahoo
// Finance quote API.
type YahooClient struct {
	baseURL string
	client  *http.Client
}

// NewYahooClient creates a new Yahoo Finance client.
func NewYahooClient(cfg YahooConfig) *YahooClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &YahooClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Quotes returns the current price and next earnings date for a batch
// of symbols in a single request.
func (c *YahooClient) Quotes(ctx context.Context, symbols []string) ([]models.BatchQuote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("symbols", strings.Join(symbols, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v7/finance/quote?"+params.Encode(), nil)
	if err != nil {
		return nil, apperrors.NewMarketDataError("yahoo", strings.Join(symbols, ","), "building request", err)
	}
	req.Header.Set("User-Agent", "option-journal")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.NewMarketDataError("yahoo", strings.Join(symbols, ","), "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewMarketDataError("yahoo", strings.Join(symbols, ","), fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var payload struct {
		QuoteResponse struct {
			Result []struct {
				Symbol                 string  `json:"symbol"`
				RegularMarketPrice     float64 `json:"regularMarketPrice"`
				EarningsTimestampStart int64   `json:"earningsTimestampStart"`
			} `json:"result"`
			Error *struct {
				Description string `json:"description"`
			} `json:"error"`
		} `json:"quoteResponse"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperrors.NewMarketDataError("yahoo", strings.Join(symbols, ","), "decoding response", err)
	}
	if payload.QuoteResponse.Error != nil {
		return nil, apperrors.NewMarketDataError("yahoo", strings.Join(symbols, ","), payload.QuoteResponse.Error.Description, nil)
	}

	quotes := make([]models.BatchQuote, 0, len(payload.QuoteResponse.Result))
	for _, r := range payload.QuoteResponse.Result {
		q := models.BatchQuote{Symbol: r.Symbol, Price: r.RegularMarketPrice}
		if r.EarningsTimestampStart > 0 {
			earnings := time.Unix(r.EarningsTimestampStart, 0).UTC()
			q.Earnings = &earnings
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}
