package handlers

import (
	"net/http"
	"strings"

	"github.com/quantlog/trade-ledger-backend/internal/api/request"
	"github.com/quantlog/trade-ledger-backend/internal/model"
	"github.com/quantlog/trade-ledger-backend/internal/repository"
	"github.com/quantlog/trade-ledger-backend/internal/service"
	"github.com/quantlog/trade-ledger-backend/internal/validation"
)

// defaultPageSize applies when the listing is paginated without an explicit
// page size.
const defaultPageSize = 20

// TradeHandler handles trade-related HTTP requests
type TradeHandler struct {
	tradeService    *service.TradeService
	defaultStrategy string
}

// NewTradeHandler creates a new TradeHandler. Buys that name no strategy
// fall back to defaultStrategy.
func NewTradeHandler(tradeService *service.TradeService, defaultStrategy string) *TradeHandler {
	return &TradeHandler{tradeService: tradeService, defaultStrategy: defaultStrategy}
}

// CreatedResponse carries the ID of a newly created resource.
type CreatedResponse struct {
	ID int64 `json:"id"`
}

// ListTradesResponse is the paginated trade listing payload.
type ListTradesResponse struct {
	Items []model.Trade `json:"items"`
	Total int           `json:"total"`
}

// ConfirmationResponse carries a confirmation code for a destructive
// operation.
type ConfirmationResponse struct {
	Code string `json:"code"`
}

// Buy handles POST /api/trades/buy
func (h *TradeHandler) Buy(w http.ResponseWriter, r *http.Request) {
	var req request.BuyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.StrategyID == 0 && strings.TrimSpace(req.StrategyName) == "" {
		req.StrategyName = h.defaultStrategy
	}

	id, err := h.tradeService.OpenOrAugmentBuy(r.Context(), service.BuyInput{
		StrategyID:   req.StrategyID,
		StrategyName: req.StrategyName,
		SymbolCode:   req.SymbolCode,
		SymbolName:   req.SymbolName,
		Price:        req.Price,
		Quantity:     req.Quantity,
		Date:         req.Date,
		Fee:          req.Fee,
		Reason:       req.Reason,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, CreatedResponse{ID: id})
}

// Sell handles POST /api/trades/{id}/sell
func (h *TradeHandler) Sell(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req request.SellRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.tradeService.AddSell(r.Context(), id, service.SellInput{
		Price:    req.Price,
		Quantity: req.Quantity,
		Date:     req.Date,
		Fee:      req.Fee,
		Reason:   req.Reason,
		TradeLog: req.TradeLog,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	trade, err := h.tradeService.GetTrade(id, false)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, trade)
}

// Update handles PUT /api/trades/{id}
func (h *TradeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req request.UpdateTradeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updates := make([]service.DetailUpdate, 0, len(req.Updates))
	for _, u := range req.Updates {
		updates = append(updates, service.DetailUpdate{
			DetailID:       u.DetailID,
			Price:          u.Price,
			Quantity:       u.Quantity,
			TransactionFee: u.TransactionFee,
			BuyReason:      u.BuyReason,
			SellReason:     u.SellReason,
		})
	}

	if err := h.tradeService.UpdateTradeRecord(r.Context(), id, updates, req.Reason); err != nil {
		respondServiceError(w, err)
		return
	}

	trade, err := h.tradeService.GetTrade(id, false)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, trade)
}

// Get handles GET /api/trades/{id}
func (h *TradeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	includeDeleted := r.URL.Query().Get("include_deleted") == "true"
	trade, err := h.tradeService.GetTrade(id, includeDeleted)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, trade)
}

// List handles GET /api/trades
func (h *TradeHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := repository.TradeFilter{
		Status:     q.Get("status"),
		StrategyID: queryInt64(q, "strategy_id"),
		DateFrom:   q.Get("date_from"),
		DateTo:     q.Get("date_to"),
	}
	if symbols := strings.TrimSpace(q.Get("symbol")); symbols != "" {
		filter.Symbols = strings.Split(symbols, ",")
	}
	if names := strings.TrimSpace(q.Get("symbol_name")); names != "" {
		filter.SymbolNames = strings.Split(names, ",")
	}

	if err := validation.ValidateDateRange(filter.DateFrom, filter.DateTo); err != nil {
		respondServiceError(w, err)
		return
	}

	page := int(queryInt64(q, "page"))
	pageSize := int(queryInt64(q, "page_size"))
	if page > 0 && pageSize == 0 {
		pageSize = defaultPageSize
	}
	if pageSize > 0 {
		filter.Limit = pageSize
		if page > 1 {
			filter.Offset = (page - 1) * pageSize
		}
	}

	trades, total, err := h.tradeService.ListTrades(filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if trades == nil {
		trades = []model.Trade{}
	}
	respondJSON(w, http.StatusOK, ListTradesResponse{Items: trades, Total: total})
}

// Deleted handles GET /api/trades/deleted
func (h *TradeHandler) Deleted(w http.ResponseWriter, r *http.Request) {
	trades, err := h.tradeService.ListDeletedTrades()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if trades == nil {
		trades = []model.Trade{}
	}
	respondJSON(w, http.StatusOK, trades)
}

// Details handles GET /api/trades/{id}/details
func (h *TradeHandler) Details(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	includeDeleted := r.URL.Query().Get("include_deleted") == "true"
	details, err := h.tradeService.GetTradeDetails(id, includeDeleted)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, details)
}

// Overview handles GET /api/trades/{id}/overview
func (h *TradeHandler) Overview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	overview, err := h.tradeService.GetTradeOverviewMetrics(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, overview)
}

// Lots handles GET /api/trades/{id}/lots
func (h *TradeHandler) Lots(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	lots, err := h.tradeService.BuyLotRemainingMap(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lots)
}

// Modifications handles GET /api/trades/{id}/modifications
func (h *TradeHandler) Modifications(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	mods, err := h.tradeService.GetModificationHistory(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if mods == nil {
		mods = []model.Modification{}
	}
	respondJSON(w, http.StatusOK, mods)
}

// Confirmation handles POST /api/trades/{id}/confirm
func (h *TradeHandler) Confirmation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	code, err := h.tradeService.IssueConfirmation(id, r.URL.Query().Get("intent"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ConfirmationResponse{Code: code})
}

// Delete handles POST /api/trades/{id}/delete
func (h *TradeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req request.DeleteTradeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.tradeService.SoftDelete(r.Context(), id, req.ConfirmationCode, req.Reason, req.Note); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Restore handles POST /api/trades/{id}/restore
func (h *TradeHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req request.RestoreTradeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.tradeService.Restore(r.Context(), id, req.ConfirmationCode, req.Note); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Purge handles POST /api/trades/{id}/purge
func (h *TradeHandler) Purge(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req request.PurgeTradeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.tradeService.PermanentlyDelete(r.Context(), id, req.ConfirmationCode, req.ConfirmationText, req.Reason, req.Note)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
