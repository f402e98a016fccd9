package service_test

import (
	"context"
	"math"
	"testing"

	"github.com/quantlog/trade-ledger-backend/internal/database"
	"github.com/quantlog/trade-ledger-backend/internal/model"
	"github.com/quantlog/trade-ledger-backend/internal/service"
	"github.com/quantlog/trade-ledger-backend/internal/testutil"
)

func approx(got, want, tol float64) bool {
	return math.Abs(got-want) <= tol
}

// closeRoundTrip books a full buy/sell round trip through the trade service so
// the analysis tests run over production-written rows.
func closeRoundTrip(t *testing.T, db *database.SafeDB, strategyID int64, symbol, buyPrice string, qty int64, buyDate, sellPrice, sellDate string) int64 {
	t.Helper()
	svc := testutil.NewTestTradeService(t, db)

	tradeID, err := svc.OpenOrAugmentBuy(context.Background(), buyInput(strategyID, symbol, buyPrice, qty, buyDate, "0"))
	if err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if err := svc.AddSell(context.Background(), tradeID, sellInput(sellPrice, qty, sellDate, "0")); err != nil {
		t.Fatalf("sell failed: %v", err)
	}
	return tradeID
}

// TestAnalysisService_CalculateScore tests the statistics block.
//
// WHY: Scores drive strategy comparison pages; win rate, profit factor and
// turnover have exact expected values for hand-checkable datasets, including
// the no-loss sentinel and the no-trade zero.
func TestAnalysisService_CalculateScore(t *testing.T) {
	t.Run("empty scope yields zeroed stats and rating D", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAnalysisService(t, db)

		// Execute
		score, err := svc.CalculateScore(context.Background(), service.ScoreFilter{})

		// Assert
		if err != nil {
			t.Fatalf("CalculateScore() returned unexpected error: %v", err)
		}
		if score.Stats.TotalTrades != 0 || score.Stats.AvgProfitLossRatio != 0 {
			t.Errorf("Expected zeroed stats, got %+v", score.Stats)
		}
		if score.TotalScore != 0 || score.Rating != "D" {
			t.Errorf("Expected total score 0 rating D, got %v %s", score.TotalScore, score.Rating)
		}
	})

	t.Run("winner and loser produce profit factor 2.0", func(t *testing.T) {
		// Setup: +200 winner, -100 loser
		db := testutil.SetupTestDB(t)
		strategy := testutil.CreateStrategy(t, db, "Trend")
		closeRoundTrip(t, db, strategy.ID, "WIN1", "10.00", 100, "2025-01-01", "12.00", "2025-01-05")
		closeRoundTrip(t, db, strategy.ID, "LOSE1", "10.00", 100, "2025-01-02", "9.00", "2025-01-06")
		svc := testutil.NewTestAnalysisService(t, db)

		// Execute
		score, err := svc.CalculateScore(context.Background(), service.ScoreFilter{StrategyID: strategy.ID})

		// Assert
		if err != nil {
			t.Fatalf("CalculateScore() returned unexpected error: %v", err)
		}
		stats := score.Stats
		if stats.TotalTrades != 2 || stats.WinningTrades != 1 || stats.LosingTrades != 1 {
			t.Errorf("Unexpected trade counts: %+v", stats)
		}
		if stats.WinRate != 50 {
			t.Errorf("Expected win rate 50, got %v", stats.WinRate)
		}
		if !approx(stats.AvgProfitLossRatio, 2.0, 1e-9) {
			t.Errorf("Expected profit factor 2.0, got %v", stats.AvgProfitLossRatio)
		}
		if !approx(stats.TotalInvestment, 2000, 1e-9) {
			t.Errorf("Expected investment 2000, got %v", stats.TotalInvestment)
		}
		if !approx(stats.TotalGrossReturn, 100, 1e-9) {
			t.Errorf("Expected gross return 100, got %v", stats.TotalGrossReturn)
		}
		// turnover = (2000 + 2100) / 2000 * 100
		if !approx(stats.TurnoverRate, 205, 1e-6) {
			t.Errorf("Expected turnover 205, got %v", stats.TurnoverRate)
		}
	})

	t.Run("only winners yield the sentinel, only losers zero", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		winners := testutil.CreateStrategy(t, db, "Winners")
		losers := testutil.CreateStrategy(t, db, "Losers")
		closeRoundTrip(t, db, winners.ID, "WIN1", "10.00", 100, "2025-01-01", "12.00", "2025-01-05")
		closeRoundTrip(t, db, losers.ID, "LOSE1", "10.00", 100, "2025-01-02", "9.00", "2025-01-06")
		svc := testutil.NewTestAnalysisService(t, db)

		// Execute / Assert
		winScore, err := svc.CalculateScore(context.Background(), service.ScoreFilter{StrategyID: winners.ID})
		if err != nil {
			t.Fatalf("CalculateScore() returned unexpected error: %v", err)
		}
		if winScore.Stats.AvgProfitLossRatio != model.ProfitFactorSentinel {
			t.Errorf("Expected sentinel %v, got %v", model.ProfitFactorSentinel, winScore.Stats.AvgProfitLossRatio)
		}
		if winScore.ProfitLossRatioScore != 10 {
			t.Errorf("Expected sentinel to score 10, got %v", winScore.ProfitLossRatioScore)
		}

		loseScore, err := svc.CalculateScore(context.Background(), service.ScoreFilter{StrategyName: "Losers"})
		if err != nil {
			t.Fatalf("CalculateScore() returned unexpected error: %v", err)
		}
		if loseScore.Stats.AvgProfitLossRatio != 0 {
			t.Errorf("Expected 0 profit factor for losers only, got %v", loseScore.Stats.AvgProfitLossRatio)
		}
	})

	t.Run("soft-deleted trades are excluded", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		strategy := testutil.CreateStrategy(t, db, "Trend")
		closeRoundTrip(t, db, strategy.ID, "WIN1", "10.00", 100, "2025-01-01", "12.00", "2025-01-05")
		testutil.NewTrade(strategy.ID).WithSymbol("GHOST", "已删").Closed("2025-01-09").Deleted().Build(t, db)
		svc := testutil.NewTestAnalysisService(t, db)

		// Execute
		score, err := svc.CalculateScore(context.Background(), service.ScoreFilter{})

		// Assert
		if err != nil {
			t.Fatalf("CalculateScore() returned unexpected error: %v", err)
		}
		if score.Stats.TotalTrades != 1 {
			t.Errorf("Expected deleted trade excluded, got %d trades", score.Stats.TotalTrades)
		}
	})

	t.Run("risk metrics populate from the sell return series", func(t *testing.T) {
		// Setup: two sells on different dates give a 2+ point series
		db := testutil.SetupTestDB(t)
		strategy := testutil.CreateStrategy(t, db, "Trend")
		closeRoundTrip(t, db, strategy.ID, "AAA1", "10.00", 100, "2025-01-01", "12.00", "2025-01-05")
		closeRoundTrip(t, db, strategy.ID, "BBB1", "10.00", 100, "2025-01-02", "11.00", "2025-01-08")
		svc := testutil.NewTestAnalysisService(t, db)

		// Execute
		score, err := svc.CalculateScore(context.Background(), service.ScoreFilter{})

		// Assert: non-constant daily series means positive volatility
		if err != nil {
			t.Fatalf("CalculateScore() returned unexpected error: %v", err)
		}
		if score.Stats.AnnualVolatility <= 0 {
			t.Errorf("Expected positive annual volatility, got %v", score.Stats.AnnualVolatility)
		}
		if score.Stats.AnnualReturn <= 0 {
			t.Errorf("Expected positive annual return, got %v", score.Stats.AnnualReturn)
		}
	})
}

// TestAnalysisService_ScoreFields tests the derived score buckets.
//
// WHY: Ratings are threshold-driven; the holding-day buckets and the win-rate
// cap decide which letter a strategy page shows.
func TestAnalysisService_ScoreFields(t *testing.T) {
	// Setup: one-day round trip, all winners -> win rate 100 (capped at 10),
	// sentinel profit factor (10), holding <= 1 day (8) = 26 = A+
	db := testutil.SetupTestDB(t)
	strategy := testutil.CreateStrategy(t, db, "Scalp")
	closeRoundTrip(t, db, strategy.ID, "FAST1", "10.00", 100, "2025-01-01", "11.00", "2025-01-01")
	svc := testutil.NewTestAnalysisService(t, db)

	// Execute
	score, err := svc.CalculateScore(context.Background(), service.ScoreFilter{StrategyID: strategy.ID})

	// Assert
	if err != nil {
		t.Fatalf("CalculateScore() returned unexpected error: %v", err)
	}
	if score.WinRateScore != 10 {
		t.Errorf("Expected capped win rate score 10, got %v", score.WinRateScore)
	}
	if score.ProfitLossRatioScore != 10 {
		t.Errorf("Expected profit factor score 10, got %v", score.ProfitLossRatioScore)
	}
	if score.FrequencyScore != 8 {
		t.Errorf("Expected frequency score 8 for same-day close, got %v", score.FrequencyScore)
	}
	if score.TotalScore != 28 || score.Rating != "A+" {
		t.Errorf("Expected 28/A+, got %v/%s", score.TotalScore, score.Rating)
	}
}

// TestAnalysisService_Listings tests the aggregated score listings.
//
// WHY: Listing pages rank scopes by return rate; ordering and scope filtering
// are the whole point of these endpoints.
func TestAnalysisService_Listings(t *testing.T) {
	setup := func(t *testing.T) (*service.AnalysisService, *database.SafeDB) {
		t.Helper()
		db := testutil.SetupTestDB(t)
		better := testutil.CreateStrategy(t, db, "Better")
		worse := testutil.CreateStrategy(t, db, "Worse")
		closeRoundTrip(t, db, better.ID, "AAA1", "10.00", 100, "2025-01-01", "13.00", "2025-01-05")
		closeRoundTrip(t, db, worse.ID, "AAA1", "10.00", 100, "2025-02-01", "11.00", "2025-02-05")
		return testutil.NewTestAnalysisService(t, db), db
	}

	t.Run("strategy scores sort by return rate descending", func(t *testing.T) {
		// Setup
		svc, _ := setup(t)

		// Execute
		scores, err := svc.GetStrategyScores(context.Background())

		// Assert
		if err != nil {
			t.Fatalf("GetStrategyScores() returned unexpected error: %v", err)
		}
		if len(scores) != 2 {
			t.Fatalf("Expected 2 strategy scores, got %d", len(scores))
		}
		if scores[0].Strategy != "Better" || scores[1].Strategy != "Worse" {
			t.Errorf("Expected Better before Worse, got %s then %s", scores[0].Strategy, scores[1].Strategy)
		}
	})

	t.Run("symbol scopes cross strategies", func(t *testing.T) {
		// Setup
		svc, _ := setup(t)

		// Execute
		scores, err := svc.GetStrategiesScoresBySymbol(context.Background(), "AAA1")

		// Assert
		if err != nil {
			t.Fatalf("GetStrategiesScoresBySymbol() returned unexpected error: %v", err)
		}
		if len(scores) != 2 {
			t.Fatalf("Expected both strategies for AAA1, got %d", len(scores))
		}
		for _, s := range scores {
			if s.Symbol != "AAA1" {
				t.Errorf("Expected symbol AAA1 on score, got %s", s.Symbol)
			}
		}
	})

	t.Run("time periods restrict the scope", func(t *testing.T) {
		// Setup
		svc, _ := setup(t)

		// Execute
		scores, err := svc.GetStrategiesScoresByTimePeriod(context.Background(), "2025-01", "month")

		// Assert: only Better closed in January
		if err != nil {
			t.Fatalf("GetStrategiesScoresByTimePeriod() returned unexpected error: %v", err)
		}
		if len(scores) != 1 || scores[0].Strategy != "Better" {
			t.Errorf("Expected only Better in 2025-01, got %+v", scores)
		}

		summary, err := svc.GetPeriodSummary(context.Background(), "2025-Q1", "quarter")
		if err != nil {
			t.Fatalf("GetPeriodSummary() returned unexpected error: %v", err)
		}
		if summary.Stats.TotalTrades != 2 {
			t.Errorf("Expected both trades inside 2025-Q1, got %d", summary.Stats.TotalTrades)
		}
	})

	t.Run("period enumeration derives labels from open dates", func(t *testing.T) {
		// Setup
		svc, _ := setup(t)

		// Execute / Assert
		months, err := svc.GetTimePeriods("month")
		if err != nil {
			t.Fatalf("GetTimePeriods(month) returned unexpected error: %v", err)
		}
		if len(months) != 2 || months[0] != "2025-02" || months[1] != "2025-01" {
			t.Errorf("Expected [2025-02 2025-01], got %v", months)
		}

		quarters, err := svc.GetTimePeriods("quarter")
		if err != nil {
			t.Fatalf("GetTimePeriods(quarter) returned unexpected error: %v", err)
		}
		if len(quarters) != 1 || quarters[0] != "2025-Q1" {
			t.Errorf("Expected [2025-Q1], got %v", quarters)
		}

		years, err := svc.GetTimePeriods("year")
		if err != nil {
			t.Fatalf("GetTimePeriods(year) returned unexpected error: %v", err)
		}
		if len(years) != 1 || years[0] != "2025" {
			t.Errorf("Expected [2025], got %v", years)
		}
	})
}
