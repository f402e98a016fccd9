package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/quantlog/trade-ledger-backend/internal/api/handlers"
	custommiddleware "github.com/quantlog/trade-ledger-backend/internal/api/middleware"
	"github.com/quantlog/trade-ledger-backend/internal/config"
	"github.com/quantlog/trade-ledger-backend/internal/database"
	"github.com/quantlog/trade-ledger-backend/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	db *database.SafeDB,
	tradeService *service.TradeService,
	strategyService *service.StrategyService,
	analysisService *service.AnalysisService,
	reconcileService *service.ReconcileService,
	cfg *config.Config,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(db)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Route("/trades", func(r chi.Router) {
			tradeHandler := handlers.NewTradeHandler(tradeService, cfg.Ledger.DefaultStrategy)
			r.Get("/", tradeHandler.List)
			r.Post("/buy", tradeHandler.Buy)
			r.Get("/deleted", tradeHandler.Deleted)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", tradeHandler.Get)
				r.Put("/", tradeHandler.Update)
				r.Post("/sell", tradeHandler.Sell)
				r.Get("/details", tradeHandler.Details)
				r.Get("/overview", tradeHandler.Overview)
				r.Get("/lots", tradeHandler.Lots)
				r.Get("/modifications", tradeHandler.Modifications)
				r.Post("/confirm", tradeHandler.Confirmation)
				r.Post("/delete", tradeHandler.Delete)
				r.Post("/restore", tradeHandler.Restore)
				r.Post("/purge", tradeHandler.Purge)
			})
		})

		r.Route("/strategies", func(r chi.Router) {
			strategyHandler := handlers.NewStrategyHandler(strategyService)
			r.Get("/", strategyHandler.List)
			r.Post("/", strategyHandler.Create)
			r.Get("/{id}", strategyHandler.Get)
			r.Put("/{id}", strategyHandler.Update)
			r.Delete("/{id}", strategyHandler.Disable)
		})

		r.Route("/tags", func(r chi.Router) {
			strategyHandler := handlers.NewStrategyHandler(strategyService)
			r.Get("/", strategyHandler.Tags)
			r.Post("/", strategyHandler.CreateTag)
			r.Put("/{id}", strategyHandler.RenameTag)
			r.Delete("/{id}", strategyHandler.DeleteTag)
		})

		r.Route("/analysis", func(r chi.Router) {
			analysisHandler := handlers.NewAnalysisHandler(analysisService)
			r.Get("/score", analysisHandler.Score)
			r.Get("/strategies", analysisHandler.StrategyScores)
			r.Get("/strategies/{id}/symbols", analysisHandler.SymbolScoresByStrategy)
			r.Get("/symbols", analysisHandler.TradedSymbols)
			r.Get("/symbols/{code}/strategies", analysisHandler.StrategyScoresBySymbol)
			r.Get("/periods", analysisHandler.TimePeriods)
			r.Get("/periods/scores", analysisHandler.PeriodScores)
			r.Get("/periods/summary", analysisHandler.PeriodSummary)
		})

		r.Route("/reconcile", func(r chi.Router) {
			reconcileHandler := handlers.NewReconcileHandler(reconcileService)
			r.Get("/validate", reconcileHandler.Validate)
			r.Post("/fix", reconcileHandler.AutoFix)
			r.Put("/raw/{table}/{id}", reconcileHandler.UpdateRawRow)
		})
	})

	return r
}
