package handlers

import (
	"net/http"

	"github.com/quantlog/trade-ledger-backend/internal/api/request"
	"github.com/quantlog/trade-ledger-backend/internal/model"
	"github.com/quantlog/trade-ledger-backend/internal/service"
)

// StrategyHandler handles strategy and tag HTTP requests
type StrategyHandler struct {
	strategyService *service.StrategyService
}

// NewStrategyHandler creates a new StrategyHandler with the given service
func NewStrategyHandler(strategyService *service.StrategyService) *StrategyHandler {
	return &StrategyHandler{strategyService: strategyService}
}

// List handles GET /api/strategies
func (h *StrategyHandler) List(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	strategies, err := h.strategyService.ListStrategies(includeInactive)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if strategies == nil {
		strategies = []model.Strategy{}
	}
	respondJSON(w, http.StatusOK, strategies)
}

// Get handles GET /api/strategies/{id}
func (h *StrategyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	strategy, err := h.strategyService.GetStrategy(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, strategy)
}

// Create handles POST /api/strategies
func (h *StrategyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.StrategyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id, err := h.strategyService.CreateStrategy(r.Context(), req.Name, req.Description, req.Tags)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, CreatedResponse{ID: id})
}

// Update handles PUT /api/strategies/{id}
func (h *StrategyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req request.StrategyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.strategyService.UpdateStrategy(r.Context(), id, req.Name, req.Description, req.Tags); err != nil {
		respondServiceError(w, err)
		return
	}

	strategy, err := h.strategyService.GetStrategy(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, strategy)
}

// Disable handles DELETE /api/strategies/{id}
func (h *StrategyHandler) Disable(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.strategyService.DisableStrategy(r.Context(), id, ""); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Tags handles GET /api/tags
func (h *StrategyHandler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.strategyService.ListTagsWithUsage()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if tags == nil {
		tags = []model.TagUsage{}
	}
	respondJSON(w, http.StatusOK, tags)
}

// CreateTag handles POST /api/tags
func (h *StrategyHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req request.TagRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id, err := h.strategyService.CreateTag(r.Context(), req.Name)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, CreatedResponse{ID: id})
}

// RenameTag handles PUT /api/tags/{id}
func (h *StrategyHandler) RenameTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req request.TagRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.strategyService.RenameTag(r.Context(), id, req.Name); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// DeleteTag handles DELETE /api/tags/{id}
func (h *StrategyHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.strategyService.DeleteTag(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
