package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/quantlog/trade-ledger-backend/internal/api"
	"github.com/quantlog/trade-ledger-backend/internal/config"
	"github.com/quantlog/trade-ledger-backend/internal/confirm"
	"github.com/quantlog/trade-ledger-backend/internal/database"
	"github.com/quantlog/trade-ledger-backend/internal/repository"
	"github.com/quantlog/trade-ledger-backend/internal/risk"
	"github.com/quantlog/trade-ledger-backend/internal/service"
)

// reconcileSchedule runs the nightly aggregate reconciliation sweep.
const reconcileSchedule = "0 3 * * *"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database: %s", cfg.Database.Path)

	// Apply pending schema migrations
	if err := database.Migrate(db.DB()); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Create repositories
	ledgerRepo := repository.NewLedgerRepository(db)
	strategyRepo := repository.NewStrategyRepository(db)
	tagRepo := repository.NewTagRepository(db)
	modRepo := repository.NewModificationRepository(db)

	signer, err := confirm.NewSigner(cfg.Confirm.Key, cfg.Confirm.TTL)
	if err != nil {
		log.Fatalf("Failed to initialize confirmation signer: %v", err)
	}

	// Create services
	tradeService := service.NewTradeService(
		db,
		ledgerRepo,
		strategyRepo,
		modRepo,
		signer,
	)
	strategyService := service.NewStrategyService(
		db,
		strategyRepo,
		tagRepo,
	)
	analysisService := service.NewAnalysisService(
		ledgerRepo,
		strategyRepo,
		risk.NewCalculator(),
	)
	reconcileService := service.NewReconcileService(
		db,
		ledgerRepo,
		modRepo,
		tradeService,
	)

	// Nightly reconciliation sweep over all non-deleted trades
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(reconcileSchedule, func() {
		report, err := reconcileService.AutoFix(context.Background(), nil)
		if err != nil {
			log.Printf("Nightly reconciliation failed: %v", err)
			return
		}
		log.Printf("Nightly reconciliation: %d fixed, %d failed", len(report.Fixed), len(report.Failed))
	}); err != nil {
		log.Fatalf("Failed to schedule reconciliation sweep: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Create router
	router := api.NewRouter(db, tradeService, strategyService, analysisService, reconcileService, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
