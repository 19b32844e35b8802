package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "option-journal/internal/errors"
)

const chainFixture = `{
	"code": "AAPL",
	"exchange": "NASDAQ",
	"lastTradePrice": 230.50,
	"data": [
		{
			"expirationDate": "2026-09-18",
			"options": {
				"CALL": [
					{"contractName": "AAPL260918C00230000", "expirationDate": "2026-09-18", "strike": 230, "bid": 5.00, "ask": 5.20, "delta": 0.51, "volume": 120, "openInterest": 4000, "impliedVolatility": 0.29}
				],
				"PUT": [
					{"contractName": "AAPL260918P00225000", "expirationDate": "2026-09-18", "strike": 225, "bid": 2.40, "ask": 2.60, "delta": -0.30, "volume": 95, "openInterest": 3100, "impliedVolatility": 0.31}
				]
			}
		},
		{
			"expirationDate": "2026-10-16",
			"options": {
				"CALL": [],
				"PUT": [
					{"contractName": "AAPL261016P00220000", "expirationDate": "2026-10-16", "strike": 220, "bid": 3.10, "ask": 3.30, "delta": -0.27}
				]
			}
		}
	]
}`

func newFixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/quote", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") != "AAPL" {
			w.Write([]byte(`{"c": 0}`))
			return
		}
		w.Write([]byte(`{"c": 230.50, "h": 232.10, "l": 228.00}`))
	})
	mux.HandleFunc("/stock/option-chain", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") != "AAPL" {
			w.Write([]byte(`{"data": []}`))
			return
		}
		w.Write([]byte(chainFixture))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newFixtureClient(t *testing.T) *FinnhubClient {
	return NewFinnhubClient(FinnhubConfig{
		APIKey:  "test-key",
		BaseURL: newFixtureServer(t).URL,
		Timeout: 5 * time.Second,
	})
}

func TestFinnhubQuote(t *testing.T) {
	c := newFixtureClient(t)

	price, err := c.Quote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}
	if price != 230.50 {
		t.Errorf("price = %v, want 230.50", price)
	}
}

func TestFinnhubQuoteUnknownSymbol(t *testing.T) {
	c := newFixtureClient(t)

	_, err := c.Quote(context.Background(), "NOPE")
	if !apperrors.Is(err, apperrors.ErrSymbolNotFound) {
		t.Errorf("expected ErrSymbolNotFound, got %v", err)
	}
}

func TestFinnhubOptionChain(t *testing.T) {
	c := newFixtureClient(t)

	chain, err := c.OptionChain(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("OptionChain failed: %v", err)
	}

	if chain.Symbol != "AAPL" || chain.SpotPrice != 230.50 {
		t.Errorf("unexpected chain header: %+v", chain)
	}
	if len(chain.Expirations) != 2 {
		t.Fatalf("expected 2 expirations, got %d", len(chain.Expirations))
	}

	first := chain.Expirations[0]
	want := time.Date(2026, 9, 18, 0, 0, 0, 0, time.UTC)
	if !first.ExpirationDate.Equal(want) {
		t.Errorf("expiration = %v, want %v", first.ExpirationDate, want)
	}
	if len(first.Calls) != 1 || len(first.Puts) != 1 {
		t.Fatalf("expected 1 call and 1 put, got %d/%d", len(first.Calls), len(first.Puts))
	}

	put := first.Puts[0]
	if put.Strike != 225 || put.Bid != 2.40 || put.Ask != 2.60 {
		t.Errorf("unexpected put contract: %+v", put)
	}
	if put.Greeks.Delta != -0.30 {
		t.Errorf("put delta = %v, want -0.30", put.Greeks.Delta)
	}
}

func TestFinnhubOptionChainEmpty(t *testing.T) {
	c := newFixtureClient(t)

	_, err := c.OptionChain(context.Background(), "NOPE")
	if !apperrors.Is(err, apperrors.ErrChainUnavailable) {
		t.Errorf("expected ErrChainUnavailable, got %v", err)
	}
}

func TestFinnhubRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	c := NewFinnhubClient(FinnhubConfig{APIKey: "test-key", BaseURL: srv.URL})
	if _, err := c.Quote(context.Background(), "AAPL"); !apperrors.Is(err, apperrors.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}
