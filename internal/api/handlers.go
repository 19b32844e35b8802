package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"option-journal/internal/economics"
	apperrors "option-journal/internal/errors"
	"option-journal/internal/models"
	"option-journal/internal/store"
)

const expirationParamFormat = "2006-01-02"

// tradeRow is a trade plus the derived economics the journal table
// renders per row.
type tradeRow struct {
	models.Trade
	Status            string  `json:"status"`
	CreditOrDebit     float64 `json:"creditOrDebit"`
	Breakeven         float64 `json:"breakeven,omitempty"`
	MinExitPrice      float64 `json:"minExitPrice"`
	ProfitLoss        float64 `json:"profitLoss"`
	ProfitLossPercent float64 `json:"profitLossPercent"`
}

func newTradeRow(t models.Trade) tradeRow {
	status := "open"
	if t.Closed() {
		status = "closed"
	}
	return tradeRow{
		Trade:             t,
		Status:            status,
		CreditOrDebit:     economics.CreditOrDebit(t.Price, t.Contracts),
		Breakeven:         economics.Breakeven(&t),
		MinExitPrice:      economics.MinExitPrice(&t),
		ProfitLoss:        economics.ProfitLoss(&t),
		ProfitLossPercent: economics.ProfitLossPercent(&t),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	filter := store.TradeFilter{
		Symbol: strings.ToUpper(r.URL.Query().Get("symbol")),
		Status: store.TradeStatus(r.URL.Query().Get("status")),
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}

	trades, err := s.store.ListTrades(r.Context(), filter)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	rows := make([]tradeRow, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, newTradeRow(t))
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"trades": rows})
}

func (s *Server) handleCreateTrade(w http.ResponseWriter, r *http.Request) {
	var trade models.Trade
	if err := json.NewDecoder(r.Body).Decode(&trade); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	trade.ID = 0
	trade.Normalize()
	if err := trade.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := s.store.CreateTrade(r.Context(), &trade); err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.logger.Info().Int64("trade_id", trade.ID).Str("symbol", trade.Symbol).Msg("trade created")
	s.respondJSON(w, http.StatusCreated, newTradeRow(trade))
}

func (s *Server) handleGetTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := s.tradeID(w, r)
	if !ok {
		return
	}

	trade, err := s.store.GetTrade(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, newTradeRow(*trade))
}

func (s *Server) handleUpdateTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := s.tradeID(w, r)
	if !ok {
		return
	}

	var trade models.Trade
	if err := json.NewDecoder(r.Body).Decode(&trade); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	trade.ID = id
	trade.Normalize()
	if err := trade.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.UpdateTrade(r.Context(), &trade); err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, newTradeRow(trade))
}

func (s *Server) handleCloseTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := s.tradeID(w, r)
	if !ok {
		return
	}

	var body struct {
		ExitPrice float64 `json:"exitPrice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.ExitPrice < 0 {
		s.respondError(w, http.StatusBadRequest, "exit price must be 0 or greater")
		return
	}

	if err := s.store.CloseTrade(r.Context(), id, body.ExitPrice); err != nil {
		s.respondStoreError(w, err)
		return
	}

	trade, err := s.store.GetTrade(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, newTradeRow(*trade))
}

func (s *Server) handleDeleteTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := s.tradeID(w, r)
	if !ok {
		return
	}

	if err := s.store.DeleteTrade(r.Context(), id); err != nil {
		s.respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleValidateSymbol(w http.ResponseWriter, r *http.Request) {
	data, ok := s.symbolData(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"valid":           true,
		"symbol":          data.Symbol,
		"price":           data.SpotPrice,
		"expirationDates": formatDates(data.ExpirationDates),
	})
}

func (s *Server) handleListStrikes(w http.ResponseWriter, r *http.Request) {
	expiration, ok := s.expirationParam(w, r)
	if !ok {
		return
	}
	tradeType := models.TradeType(r.URL.Query().Get("type"))
	if !tradeType.Valid() {
		s.respondError(w, http.StatusBadRequest, "unknown trade type")
		return
	}

	data, ok := s.symbolData(w, r)
	if !ok {
		return
	}

	strikes := economics.ListStrikesForExpiration(data.Chain, expiration, tradeType)
	// The default strike is picked on chain order, before display sorting.
	nearest := economics.FindNearestStrike(strikes, data.SpotPrice)
	sort.Slice(strikes, func(i, j int) bool { return strikes[i].Strike < strikes[j].Strike })

	resp := map[string]interface{}{
		"symbol":  data.Symbol,
		"price":   data.SpotPrice,
		"strikes": strikes,
	}
	if nearest != nil {
		resp["nearest"] = nearest
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMatchOption(w http.ResponseWriter, r *http.Request) {
	expiration, ok := s.expirationParam(w, r)
	if !ok {
		return
	}
	tradeType := models.TradeType(r.URL.Query().Get("type"))
	if !tradeType.Valid() {
		s.respondError(w, http.StatusBadRequest, "unknown trade type")
		return
	}
	strike, err := strconv.ParseFloat(r.URL.Query().Get("strike"), 64)
	if err != nil || strike <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid strike")
		return
	}

	var priceOverride float64
	if p := r.URL.Query().Get("price"); p != "" {
		priceOverride, err = strconv.ParseFloat(p, 64)
		if err != nil || priceOverride < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid price")
			return
		}
	}
	contracts := 1
	if c := r.URL.Query().Get("contracts"); c != "" {
		contracts, err = strconv.Atoi(c)
		if err != nil || contracts <= 0 {
			s.respondError(w, http.StatusBadRequest, "invalid contracts")
			return
		}
	}

	data, ok := s.symbolData(w, r)
	if !ok {
		return
	}

	quote := economics.SelectMatchedOption(data.Chain, expiration, strike, tradeType)
	proposed := economics.ProposedEntryPrice(quote, priceOverride)

	resp := map[string]interface{}{
		"matched":             quote != nil,
		"proposedPrice":       proposed,
		"probabilityOfProfit": economics.ProbabilityOfProfit(quote, economics.IsShort(tradeType)),
		"creditOrDebit":       economics.CreditOrDebit(proposed, contracts),
	}
	if quote != nil {
		resp["option"] = quote
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBatchQuotes(w http.ResponseWriter, r *http.Request) {
	symbols := strings.Split(r.URL.Query().Get("symbols"), ",")
	quotes, err := s.market.BatchQuotes(r.Context(), symbols)
	if err != nil {
		s.respondMarketError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"quotes": quotes})
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func (s *Server) tradeID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid trade id")
		return 0, false
	}
	return id, true
}

func (s *Server) expirationParam(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("expiration")
	expiration, err := time.Parse(expirationParamFormat, raw)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid expiration date, want YYYY-MM-DD")
		return time.Time{}, false
	}
	return expiration, true
}

func (s *Server) symbolData(w http.ResponseWriter, r *http.Request) (*models.SymbolData, bool) {
	symbol := chi.URLParam(r, "symbol")
	data, err := s.market.ValidateSymbol(r.Context(), symbol)
	if err != nil {
		s.respondMarketError(w, err)
		return nil, false
	}
	return data, true
}

func formatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(expirationParamFormat)
	}
	return out
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) respondStoreError(w http.ResponseWriter, err error) {
	var validation *apperrors.ValidationError
	switch {
	case apperrors.Is(err, apperrors.ErrTradeNotFound):
		s.respondError(w, http.StatusNotFound, "trade not found")
	case apperrors.As(err, &validation):
		s.respondError(w, http.StatusBadRequest, validation.Error())
	default:
		s.logger.Error().Err(err).Msg("store error")
		s.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) respondMarketError(w http.ResponseWriter, err error) {
	var validation *apperrors.ValidationError
	switch {
	case apperrors.As(err, &validation):
		s.respondError(w, http.StatusBadRequest, validation.Error())
	case apperrors.Is(err, apperrors.ErrSymbolNotFound):
		s.respondJSON(w, http.StatusNotFound, map[string]interface{}{"valid": false, "error": "invalid symbol"})
	case apperrors.Is(err, apperrors.ErrRateLimited):
		s.respondError(w, http.StatusTooManyRequests, "market data rate limited")
	default:
		s.logger.Error().Err(err).Msg("market data error")
		s.respondError(w, http.StatusBadGateway, "market data unavailable")
	}
}
