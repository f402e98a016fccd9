package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quantlog/trade-ledger-backend/internal/api/request"
	"github.com/quantlog/trade-ledger-backend/internal/service"
)

// ReconcileHandler handles data consistency HTTP requests
type ReconcileHandler struct {
	reconcileService *service.ReconcileService
}

// NewReconcileHandler creates a new ReconcileHandler with the given service
func NewReconcileHandler(reconcileService *service.ReconcileService) *ReconcileHandler {
	return &ReconcileHandler{reconcileService: reconcileService}
}

// Validate handles GET /api/reconcile/validate
func (h *ReconcileHandler) Validate(w http.ResponseWriter, r *http.Request) {
	tradeID := queryInt64(r.URL.Query(), "trade_id")

	report, err := h.reconcileService.Validate(tradeID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// AutoFix handles POST /api/reconcile/fix
func (h *ReconcileHandler) AutoFix(w http.ResponseWriter, r *http.Request) {
	var req request.AutoFixRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	report, err := h.reconcileService.AutoFix(r.Context(), req.TradeIDs)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// UpdateRawRow handles PUT /api/reconcile/raw/{table}/{id}
func (h *ReconcileHandler) UpdateRawRow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var updates map[string]any
	if !decodeJSON(w, r, &updates) {
		return
	}

	if err := h.reconcileService.UpdateRawRow(r.Context(), chi.URLParam(r, "table"), id, updates); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
