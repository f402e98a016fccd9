package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quantlog/trade-ledger-backend/internal/apperrors"
	"github.com/quantlog/trade-ledger-backend/internal/model"
	"github.com/quantlog/trade-ledger-backend/internal/repository"
	"github.com/quantlog/trade-ledger-backend/internal/service"
	"github.com/quantlog/trade-ledger-backend/internal/validation"
)

// AnalysisHandler handles performance analysis HTTP requests
type AnalysisHandler struct {
	analysisService *service.AnalysisService
}

// NewAnalysisHandler creates a new AnalysisHandler with the given service
func NewAnalysisHandler(analysisService *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysisService: analysisService}
}

// Score handles GET /api/analysis/score
func (h *AnalysisHandler) Score(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := service.ScoreFilter{
		StrategyID:   queryInt64(q, "strategy_id"),
		StrategyName: q.Get("strategy"),
		Symbol:       q.Get("symbol"),
		StartDate:    q.Get("start_date"),
		EndDate:      q.Get("end_date"),
	}
	if err := validation.ValidateDateRange(filter.StartDate, filter.EndDate); err != nil {
		respondServiceError(w, err)
		return
	}

	score, err := h.analysisService.CalculateScore(r.Context(), filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, score)
}

// StrategyScores handles GET /api/analysis/strategies
func (h *AnalysisHandler) StrategyScores(w http.ResponseWriter, r *http.Request) {
	scores, err := h.analysisService.GetStrategyScores(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if scores == nil {
		scores = []model.Score{}
	}
	respondJSON(w, http.StatusOK, scores)
}

// SymbolScoresByStrategy handles GET /api/analysis/strategies/{id}/symbols
func (h *AnalysisHandler) SymbolScoresByStrategy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	scores, err := h.analysisService.GetSymbolScoresByStrategy(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if scores == nil {
		scores = []model.Score{}
	}
	respondJSON(w, http.StatusOK, scores)
}

// StrategyScoresBySymbol handles GET /api/analysis/symbols/{code}/strategies
func (h *AnalysisHandler) StrategyScoresBySymbol(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	scores, err := h.analysisService.GetStrategiesScoresBySymbol(r.Context(), code)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if scores == nil {
		scores = []model.Score{}
	}
	respondJSON(w, http.StatusOK, scores)
}

// TradedSymbols handles GET /api/analysis/symbols
func (h *AnalysisHandler) TradedSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.analysisService.ListTradedSymbols(queryInt64(r.URL.Query(), "strategy_id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if symbols == nil {
		symbols = []repository.SymbolRef{}
	}
	respondJSON(w, http.StatusOK, symbols)
}

// TimePeriods handles GET /api/analysis/periods
func (h *AnalysisHandler) TimePeriods(w http.ResponseWriter, r *http.Request) {
	periodType := r.URL.Query().Get("type")
	if periodType == "" {
		periodType = "month"
	}

	periods, err := h.analysisService.GetTimePeriods(periodType)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, periods)
}

// PeriodScores handles GET /api/analysis/periods/scores
func (h *AnalysisHandler) PeriodScores(w http.ResponseWriter, r *http.Request) {
	period, periodType, ok := periodParams(w, r)
	if !ok {
		return
	}

	scores, err := h.analysisService.GetStrategiesScoresByTimePeriod(r.Context(), period, periodType)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if scores == nil {
		scores = []model.Score{}
	}
	respondJSON(w, http.StatusOK, scores)
}

// PeriodSummary handles GET /api/analysis/periods/summary
func (h *AnalysisHandler) PeriodSummary(w http.ResponseWriter, r *http.Request) {
	period, periodType, ok := periodParams(w, r)
	if !ok {
		return
	}

	summary, err := h.analysisService.GetPeriodSummary(r.Context(), period, periodType)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// periodParams extracts the required period and type query parameters. On
// failure it writes a 400 response and returns false.
func periodParams(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	q := r.URL.Query()
	period := q.Get("period")
	periodType := q.Get("type")
	if period == "" || periodType == "" {
		respondServiceError(w, fmt.Errorf("%w: period and type are required", apperrors.ErrMissingRequiredField))
		return "", "", false
	}
	return period, periodType, true
}
