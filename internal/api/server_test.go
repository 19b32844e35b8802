package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	apperrors "option-journal/internal/errors"
	"option-journal/internal/marketdata"
	"option-journal/internal/models"
	"option-journal/internal/store"
)

// memStore is an in-memory DataStore for handler tests.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	trades map[int64]models.Trade
}

func newMemStore() *memStore {
	return &memStore{nextID: 1, trades: make(map[int64]models.Trade)}
}

func (m *memStore) CreateTrade(ctx context.Context, trade *models.Trade) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trade.ID = m.nextID
	trade.CreatedAt = time.Now().UTC()
	trade.UpdatedAt = trade.CreatedAt
	m.nextID++
	m.trades[trade.ID] = *trade
	return trade.ID, nil
}

func (m *memStore) UpdateTrade(ctx context.Context, trade *models.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trades[trade.ID]; !ok {
		return apperrors.ErrTradeNotFound
	}
	m.trades[trade.ID] = *trade
	return nil
}

func (m *memStore) CloseTrade(ctx context.Context, id int64, exitPrice float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trades[id]
	if !ok {
		return apperrors.ErrTradeNotFound
	}
	t.ExitPrice = exitPrice
	m.trades[id] = t
	return nil
}

func (m *memStore) DeleteTrade(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trades[id]; !ok {
		return apperrors.ErrTradeNotFound
	}
	delete(m.trades, id)
	return nil
}

func (m *memStore) GetTrade(ctx context.Context, id int64) (*models.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trades[id]
	if !ok {
		return nil, apperrors.ErrTradeNotFound
	}
	return &t, nil
}

func (m *memStore) ListTrades(ctx context.Context, filter store.TradeFilter) ([]models.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Trade
	for _, t := range m.trades {
		if filter.Symbol != "" && t.Symbol != filter.Symbol {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) Close() error { return nil }

type stubChainProvider struct {
	chain *models.OptionChain
}

func (p *stubChainProvider) Quote(ctx context.Context, symbol string) (float64, error) {
	if symbol != "AAPL" {
		return 0, apperrors.NewMarketDataError("stub", symbol, "no quote data", apperrors.ErrSymbolNotFound)
	}
	return 230.50, nil
}

func (p *stubChainProvider) OptionChain(ctx context.Context, symbol string) (*models.OptionChain, error) {
	if symbol != "AAPL" {
		return nil, apperrors.NewMarketDataError("stub", symbol, "no chain", apperrors.ErrSymbolNotFound)
	}
	return p.chain, nil
}

type stubBatcher struct{}

func (stubBatcher) Quotes(ctx context.Context, symbols []string) ([]models.BatchQuote, error) {
	out := make([]models.BatchQuote, len(symbols))
	for i, s := range symbols {
		out[i] = models.BatchQuote{Symbol: s, Price: 42}
	}
	return out, nil
}

func futureExpiry() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 14)
}

func newTestServer(t *testing.T) (*Server, *memStore) {
	t.Helper()
	expiry := futureExpiry()
	chain := &models.OptionChain{
		Symbol:    "AAPL",
		SpotPrice: 230.50,
		Expirations: []models.ExpirationQuotes{
			{
				ExpirationDate: expiry,
				Calls: []models.OptionQuote{
					{ExpirationDate: expiry, Strike: 230, Bid: 5.00, Ask: 5.20, Greeks: models.OptionGreeks{Delta: 0.51}},
				},
				Puts: []models.OptionQuote{
					{ExpirationDate: expiry, Strike: 225, Bid: 2.40, Ask: 2.60, Greeks: models.OptionGreeks{Delta: -0.30}},
					{ExpirationDate: expiry, Strike: 230, Bid: 4.30, Ask: 4.50, Greeks: models.OptionGreeks{Delta: -0.48}},
				},
			},
		},
	}
	ms := newMemStore()
	market := marketdata.NewService(&stubChainProvider{chain: chain}, stubBatcher{}, zerolog.Nop())
	return NewServer(ms, market, zerolog.Nop()), ms
}

func doRequest(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func validTradeBody() map[string]interface{} {
	return map[string]interface{}{
		"symbol":         "aapl",
		"type":           "short-put",
		"strike":         225,
		"stockPrice":     230.50,
		"price":          2.50,
		"contracts":      2,
		"expirationDate": futureExpiry().Format(time.RFC3339),
	}
}

func TestCreateTrade(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/trades", validTradeBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body: %s)", rec.Code, rec.Body.String())
	}

	var row struct {
		ID     int64  `json:"id"`
		Symbol string `json:"symbol"`
		Status string `json:"status"`
	}
	decodeBody(t, rec, &row)
	if row.ID == 0 {
		t.Error("expected an assigned trade ID")
	}
	if row.Symbol != "AAPL" {
		t.Errorf("symbol not upper-cased: %q", row.Symbol)
	}
	if row.Status != "open" {
		t.Errorf("status = %q, want open", row.Status)
	}
}

func TestCreateTradeValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	body := validTradeBody()
	body["strike"] = 0
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/trades", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCreateTradeZeroExitPriceIsOpen(t *testing.T) {
	srv, ms := newTestServer(t)

	body := validTradeBody()
	body["exitPrice"] = 0
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/trades", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	trade, err := ms.GetTrade(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetTrade failed: %v", err)
	}
	if trade.Closed() {
		t.Error("exit price 0 must be stored as open")
	}
}

func TestListTradesIncludesDerivedEconomics(t *testing.T) {
	srv, ms := newTestServer(t)

	trade := models.Trade{
		Symbol: "AAPL", Type: models.TypeShortPut, Strike: 100, StockPrice: 105,
		Price: 3.00, ExitPrice: 1.00, Contracts: 2, ExpirationDate: futureExpiry(),
	}
	if _, err := ms.CreateTrade(context.Background(), &trade); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/trades", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Trades []struct {
			Status            string  `json:"status"`
			ProfitLoss        float64 `json:"profitLoss"`
			ProfitLossPercent float64 `json:"profitLossPercent"`
			CreditOrDebit     float64 `json:"creditOrDebit"`
			Breakeven         float64 `json:"breakeven"`
			MinExitPrice      float64 `json:"minExitPrice"`
		} `json:"trades"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(resp.Trades))
	}

	row := resp.Trades[0]
	if row.Status != "closed" {
		t.Errorf("status = %q, want closed", row.Status)
	}
	if row.ProfitLoss != 400.00 {
		t.Errorf("profitLoss = %v, want 400.00", row.ProfitLoss)
	}
	if row.CreditOrDebit != 600.00 {
		t.Errorf("creditOrDebit = %v, want 600.00", row.CreditOrDebit)
	}
	if row.Breakeven != 97.00 {
		t.Errorf("breakeven = %v, want 97.00", row.Breakeven)
	}
	if row.MinExitPrice != 1.50 {
		t.Errorf("minExitPrice = %v, want 1.50", row.MinExitPrice)
	}
}

func TestUpdateTradePreservesID(t *testing.T) {
	srv, ms := newTestServer(t)

	trade := models.Trade{
		Symbol: "AAPL", Type: models.TypeShortPut, Strike: 225, StockPrice: 230,
		Price: 2.50, Contracts: 2, ExpirationDate: futureExpiry(),
	}
	id, _ := ms.CreateTrade(context.Background(), &trade)

	body := validTradeBody()
	body["symbol"] = "msft"
	body["id"] = 999 // body id must be ignored in favor of the path
	rec := doRequest(t, srv, http.MethodPut, fmt.Sprintf("/api/v1/trades/%d", id), body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	got, err := ms.GetTrade(context.Background(), id)
	if err != nil {
		t.Fatalf("trade lost after update: %v", err)
	}
	if got.Symbol != "MSFT" {
		t.Errorf("symbol = %q, want MSFT", got.Symbol)
	}
}

func TestCloseAndDeleteTrade(t *testing.T) {
	srv, ms := newTestServer(t)

	trade := models.Trade{
		Symbol: "AAPL", Type: models.TypeCall, Strike: 230, StockPrice: 230,
		Price: 2.00, Contracts: 1, ExpirationDate: futureExpiry(),
	}
	id, _ := ms.CreateTrade(context.Background(), &trade)

	rec := doRequest(t, srv, http.MethodPost, fmt.Sprintf("/api/v1/trades/%d/close", id), map[string]float64{"exitPrice": 5.00})
	if rec.Code != http.StatusOK {
		t.Fatalf("close status = %d, want 200", rec.Code)
	}
	var row struct {
		Status     string  `json:"status"`
		ProfitLoss float64 `json:"profitLoss"`
	}
	decodeBody(t, rec, &row)
	if row.Status != "closed" || row.ProfitLoss != 300.00 {
		t.Errorf("unexpected close response: %+v", row)
	}

	rec = doRequest(t, srv, http.MethodDelete, fmt.Sprintf("/api/v1/trades/%d", id), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodDelete, fmt.Sprintf("/api/v1/trades/%d", id), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestValidateSymbolEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/symbols/aapl", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Valid           bool     `json:"valid"`
		Symbol          string   `json:"symbol"`
		Price           float64  `json:"price"`
		ExpirationDates []string `json:"expirationDates"`
	}
	decodeBody(t, rec, &resp)
	if !resp.Valid || resp.Symbol != "AAPL" || resp.Price != 230.50 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if len(resp.ExpirationDates) != 1 {
		t.Errorf("expected 1 expiration date, got %v", resp.ExpirationDates)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/symbols/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown symbol status = %d, want 404", rec.Code)
	}
}

func TestListStrikesEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	path := fmt.Sprintf("/api/v1/symbols/aapl/strikes?expiration=%s&type=short-put", futureExpiry().Format("2006-01-02"))
	rec := doRequest(t, srv, http.MethodGet, path, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Strikes []models.StrikeDelta `json:"strikes"`
		Nearest *models.StrikeDelta  `json:"nearest"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Strikes) != 2 {
		t.Fatalf("expected 2 put strikes, got %d", len(resp.Strikes))
	}
	if resp.Nearest == nil || resp.Nearest.Strike != 230 {
		t.Errorf("nearest = %+v, want strike 230 (spot 230.50)", resp.Nearest)
	}
}

func TestMatchOptionEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	expiration := futureExpiry().Format("2006-01-02")

	t.Run("matched contract proposes midpoint", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/symbols/aapl/match?expiration=%s&type=short-put&strike=225&contracts=2", expiration)
		rec := doRequest(t, srv, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
		}

		var resp struct {
			Matched             bool    `json:"matched"`
			ProposedPrice       float64 `json:"proposedPrice"`
			ProbabilityOfProfit float64 `json:"probabilityOfProfit"`
			CreditOrDebit       float64 `json:"creditOrDebit"`
		}
		decodeBody(t, rec, &resp)
		if !resp.Matched {
			t.Fatal("expected a matched contract")
		}
		if resp.ProposedPrice != 2.50 {
			t.Errorf("proposedPrice = %v, want 2.50", resp.ProposedPrice)
		}
		if resp.ProbabilityOfProfit != 70 {
			t.Errorf("probabilityOfProfit = %v, want 70", resp.ProbabilityOfProfit)
		}
		if resp.CreditOrDebit != 500.00 {
			t.Errorf("creditOrDebit = %v, want 500.00", resp.CreditOrDebit)
		}
	})

	t.Run("explicit price override wins", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/symbols/aapl/match?expiration=%s&type=short-put&strike=225&price=3.1234", expiration)
		rec := doRequest(t, srv, http.MethodGet, path, nil)
		var resp struct {
			ProposedPrice float64 `json:"proposedPrice"`
		}
		decodeBody(t, rec, &resp)
		if resp.ProposedPrice != 3.1234 {
			t.Errorf("proposedPrice = %v, want the override 3.1234", resp.ProposedPrice)
		}
	})

	t.Run("near-miss strike does not match", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/symbols/aapl/match?expiration=%s&type=short-put&strike=225.01", expiration)
		rec := doRequest(t, srv, http.MethodGet, path, nil)
		var resp struct {
			Matched             bool    `json:"matched"`
			ProbabilityOfProfit float64 `json:"probabilityOfProfit"`
		}
		decodeBody(t, rec, &resp)
		if resp.Matched {
			t.Error("strike 225.01 must not match 225")
		}
		if resp.ProbabilityOfProfit != 0 {
			t.Errorf("probability without a match = %v, want 0", resp.ProbabilityOfProfit)
		}
	})
}

func TestBatchQuotesEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/quotes?symbols=aapl,msft", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Quotes []models.BatchQuote `json:"quotes"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Quotes) != 2 || resp.Quotes[0].Symbol != "AAPL" {
		t.Errorf("unexpected quotes: %+v", resp.Quotes)
	}
}
