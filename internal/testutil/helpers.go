package testutil

import (
	"math/rand"
	"testing"
	"time"

	"github.com/quantlog/trade-ledger-backend/internal/confirm"
	"github.com/quantlog/trade-ledger-backend/internal/database"
	"github.com/quantlog/trade-ledger-backend/internal/repository"
	"github.com/quantlog/trade-ledger-backend/internal/risk"
	"github.com/quantlog/trade-ledger-backend/internal/service"
)

// NewTestSigner creates a confirmation signer with a process-local key.
func NewTestSigner(t *testing.T) *confirm.Signer {
	t.Helper()

	signer, err := confirm.NewSigner("", time.Minute)
	if err != nil {
		t.Fatalf("Failed to create test signer: %v", err)
	}
	return signer
}

func NewTestTradeService(t *testing.T, db *database.SafeDB) *service.TradeService {
	t.Helper()

	ledgerRepo := repository.NewLedgerRepository(db)
	strategyRepo := repository.NewStrategyRepository(db)
	modRepo := repository.NewModificationRepository(db)

	return service.NewTradeService(
		db,
		ledgerRepo,
		strategyRepo,
		modRepo,
		NewTestSigner(t),
	)
}

func NewTestStrategyService(t *testing.T, db *database.SafeDB) *service.StrategyService {
	t.Helper()

	strategyRepo := repository.NewStrategyRepository(db)
	tagRepo := repository.NewTagRepository(db)

	return service.NewStrategyService(
		db,
		strategyRepo,
		tagRepo,
	)
}

func NewTestAnalysisService(t *testing.T, db *database.SafeDB) *service.AnalysisService {
	t.Helper()

	ledgerRepo := repository.NewLedgerRepository(db)
	strategyRepo := repository.NewStrategyRepository(db)

	return service.NewAnalysisService(
		ledgerRepo,
		strategyRepo,
		risk.NewCalculator(),
	)
}

func NewTestReconcileService(t *testing.T, db *database.SafeDB) *service.ReconcileService {
	t.Helper()

	ledgerRepo := repository.NewLedgerRepository(db)
	modRepo := repository.NewModificationRepository(db)

	return service.NewReconcileService(
		db,
		ledgerRepo,
		modRepo,
		NewTestTradeService(t, db),
	)
}

// MakeSymbol generates a unique ticker symbol for testing.
//
// Example usage:
//
//	symbol := testutil.MakeSymbol("AAPL")
//	// Returns: "AAPL1A2B"
func MakeSymbol(base string) string {
	if base == "" {
		base = "TEST"
	}
	return base + randomAlphanumeric(4)
}

// MakeStrategyName generates a unique strategy name for testing.
//
// Example usage:
//
//	name := testutil.MakeStrategyName("Trend")
//	// Returns: "Trend ABC123"
func MakeStrategyName(base string) string {
	if base == "" {
		base = "Strategy"
	}
	return base + " " + randomAlphanumeric(6)
}

// randomAlphanumeric generates a random alphanumeric string of specified length.
func randomAlphanumeric(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		//nolint:gosec // G404: Using math/rand for test data generation is acceptable
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
