package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/quantlog/trade-ledger-backend/internal/apperrors"
	"github.com/quantlog/trade-ledger-backend/internal/model"
	"github.com/quantlog/trade-ledger-backend/internal/repository"
	"github.com/quantlog/trade-ledger-backend/internal/risk"
)

// scoreFanOutLimit caps concurrent score computations in aggregated listings.
const scoreFanOutLimit = 4

// ScoreFilter narrows a score computation to a strategy, symbol and date
// range. All fields are optional; the zero value scores everything.
type ScoreFilter struct {
	StrategyID   int64
	StrategyName string
	Symbol       string
	StartDate    string // inclusive, YYYY-MM-DD
	EndDate      string // inclusive, YYYY-MM-DD
}

// AnalysisService computes performance statistics and ratings over closed
// trades. Only closed, non-deleted trades enter a score; risk metrics degrade
// to zeros when the return series is unusable rather than failing the score.
type AnalysisService struct {
	ledgerRepo   *repository.LedgerRepository
	strategyRepo *repository.StrategyRepository
	riskCalc     risk.Calculator
}

// NewAnalysisService creates a new AnalysisService. A nil riskCalc disables
// risk metrics (they compute as zeros).
func NewAnalysisService(
	ledgerRepo *repository.LedgerRepository,
	strategyRepo *repository.StrategyRepository,
	riskCalc risk.Calculator,
) *AnalysisService {
	return &AnalysisService{
		ledgerRepo:   ledgerRepo,
		strategyRepo: strategyRepo,
		riskCalc:     riskCalc,
	}
}

// CalculateScore computes the full Score for the filtered scope.
func (s *AnalysisService) CalculateScore(ctx context.Context, f ScoreFilter) (model.Score, error) {
	strategyID := f.StrategyID
	strategyName := f.StrategyName

	if strategyID == 0 && strings.TrimSpace(f.StrategyName) != "" {
		strategy, err := s.strategyRepo.GetByName(strings.TrimSpace(f.StrategyName))
		if err == sql.ErrNoRows {
			return model.Score{}, fmt.Errorf("%w: %s", apperrors.ErrStrategyNotFound, f.StrategyName)
		}
		if err != nil {
			return model.Score{}, err
		}
		strategyID = strategy.ID
		strategyName = strategy.Name
	} else if strategyID > 0 && strategyName == "" {
		strategy, err := s.strategyRepo.GetByID(strategyID)
		if err == sql.ErrNoRows {
			return model.Score{}, fmt.Errorf("%w: strategy %d", apperrors.ErrStrategyNotFound, strategyID)
		}
		if err != nil {
			return model.Score{}, err
		}
		strategyName = strategy.Name
	}

	filter := repository.TradeFilter{
		Status:     model.StatusClosed,
		StrategyID: strategyID,
		DateFrom:   f.StartDate,
		DateTo:     f.EndDate,
	}
	if f.Symbol != "" {
		filter.Symbols = []string{f.Symbol}
	}

	trades, err := s.ledgerRepo.FetchTrades(filter)
	if err != nil {
		return model.Score{}, err
	}

	stats, err := s.buildStats(ctx, trades, f.StartDate, f.EndDate)
	if err != nil {
		return model.Score{}, err
	}

	score := model.Score{
		Strategy:  strategyName,
		Symbol:    strings.ToUpper(f.Symbol),
		StartDate: f.StartDate,
		EndDate:   f.EndDate,
		Stats:     stats,
	}
	computeScoreFields(&score)
	return score, nil
}

// buildStats derives the raw statistics block from the closed trades in
// scope.
func (s *AnalysisService) buildStats(ctx context.Context, trades []model.Trade, startDate, endDate string) (model.ScoreStats, error) {
	var stats model.ScoreStats
	stats.TotalTrades = len(trades)
	if stats.TotalTrades == 0 {
		return stats, nil
	}

	var (
		investment   = decimal.Zero
		grossReturn  = decimal.Zero
		netReturn    = decimal.Zero
		fees         = decimal.Zero
		sellGross    = decimal.Zero
		grossWinSum  = decimal.Zero
		grossLossSum = decimal.Zero
		holdingSum   int
	)

	for i := range trades {
		t := &trades[i]
		investment = investment.Add(t.TotalBuyAmount)
		grossReturn = grossReturn.Add(t.TotalProfitLoss)
		netReturn = netReturn.Add(t.TotalNetProfit)
		fees = fees.Add(t.TotalFees)
		sellGross = sellGross.Add(t.TotalSellAmount)
		holdingSum += t.HoldingDays

		switch t.TotalProfitLoss.Sign() {
		case 1:
			stats.WinningTrades++
			grossWinSum = grossWinSum.Add(t.TotalProfitLoss)
		case -1:
			stats.LosingTrades++
			grossLossSum = grossLossSum.Add(t.TotalProfitLoss)
		}
	}

	n := float64(stats.TotalTrades)
	stats.WinRate = float64(stats.WinningTrades) / n * 100

	stats.TotalInvestment = investment.InexactFloat64()
	stats.TotalGrossReturn = grossReturn.InexactFloat64()
	stats.TotalReturn = stats.TotalGrossReturn
	stats.TotalNetReturn = netReturn.InexactFloat64()
	stats.TotalFees = fees.InexactFloat64()

	if investment.Sign() > 0 {
		stats.TotalGrossRate = grossReturn.Div(investment).InexactFloat64() * 100
		stats.TotalNetReturnRate = netReturn.Div(investment).InexactFloat64() * 100
		stats.TurnoverRate = investment.Add(sellGross).Div(investment).InexactFloat64() * 100
	}
	stats.TotalReturnRate = stats.TotalGrossRate

	stats.AvgReturnPerTrade = stats.TotalGrossReturn / n
	stats.AvgNetReturnPerTrade = stats.TotalNetReturn / n
	stats.AvgHoldingDays = float64(holdingSum) / n

	stats.AvgProfitLossRatio = profitFactor(stats.WinningTrades, stats.LosingTrades, grossWinSum, grossLossSum)

	returns, err := s.buildDailyReturns(ctx, trades, startDate, endDate)
	if err != nil {
		return model.ScoreStats{}, err
	}
	m := risk.Compute(s.riskCalc, returns)
	stats.AnnualVolatility = m.AnnualVolatility
	stats.AnnualReturn = m.AnnualReturn
	stats.MaxDrawdown = m.MaxDrawdown
	stats.SharpeRatio = m.SharpeRatio
	stats.CalmarRatio = m.CalmarRatio

	return stats, nil
}

// profitFactor computes gross wins over absolute gross losses. Wins with no
// losses yield the sentinel so scoring can tell "no losses" from "no trades".
func profitFactor(winners, losers int, grossWinSum, grossLossSum decimal.Decimal) float64 {
	switch {
	case winners == 0:
		return 0
	case losers == 0:
		return model.ProfitFactorSentinel
	default:
		return grossWinSum.Div(grossLossSum.Abs()).InexactFloat64()
	}
}

// buildDailyReturns constructs the calendar-day return series over the scoped
// trades: each sell contributes its per-share return against the trade's
// weighted-average buy cost, aggregated per date weighted by sold quantity,
// then resampled daily with zeros for days without sells.
func (s *AnalysisService) buildDailyReturns(ctx context.Context, trades []model.Trade, startDate, endDate string) ([]float64, error) {
	type bucket struct {
		weighted float64 // sum of return * qty
		qty      float64
	}
	byDate := map[string]*bucket{}

	for i := range trades {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		details, err := s.ledgerRepo.GetDetails(trades[i].ID, false)
		if err != nil {
			return nil, err
		}

		agg := repository.Aggregate(details)
		if agg.BuyQty == 0 || agg.GrossBuy.Sign() <= 0 {
			continue
		}
		avgBuy := agg.GrossBuy.Div(decimal.NewFromInt(agg.BuyQty))

		for j := range details {
			d := &details[j]
			if !d.IsSell() {
				continue
			}
			if startDate != "" && d.TransactionDate < startDate {
				continue
			}
			if endDate != "" && d.TransactionDate > endDate {
				continue
			}

			ret := d.Price.Sub(avgBuy).Div(avgBuy).InexactFloat64()
			b := byDate[d.TransactionDate]
			if b == nil {
				b = &bucket{}
				byDate[d.TransactionDate] = b
			}
			b.weighted += ret * float64(d.Quantity)
			b.qty += float64(d.Quantity)
		}
	}

	if len(byDate) == 0 {
		return nil, nil
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	first, err := repository.ParseTime(dates[0])
	if err != nil {
		return nil, err
	}
	last, err := repository.ParseTime(dates[len(dates)-1])
	if err != nil {
		return nil, err
	}

	var series []float64
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if b, ok := byDate[day.Format("2006-01-02")]; ok && b.qty > 0 {
			series = append(series, b.weighted/b.qty)
		} else {
			series = append(series, 0)
		}
	}
	return series, nil
}

// computeScoreFields fills the derived score fields and letter rating from
// the raw statistics.
func computeScoreFields(score *model.Score) {
	stats := score.Stats

	score.WinRateScore = stats.WinRate / 10
	if score.WinRateScore > 10 {
		score.WinRateScore = 10
	}

	switch pf := stats.AvgProfitLossRatio; {
	case pf == 0:
		score.ProfitLossRatioScore = 0
	case pf == model.ProfitFactorSentinel:
		score.ProfitLossRatioScore = 10
	case pf > 10:
		score.ProfitLossRatioScore = 10
	default:
		score.ProfitLossRatioScore = pf
	}

	switch days := stats.AvgHoldingDays; {
	case stats.TotalTrades == 0:
		score.FrequencyScore = 0
	case days <= 1:
		score.FrequencyScore = 8
	case days <= 7:
		score.FrequencyScore = 7
	case days <= 30:
		score.FrequencyScore = 6
	default:
		score.FrequencyScore = 6 - (days-30)/30
		if score.FrequencyScore < 0 {
			score.FrequencyScore = 0
		}
	}

	score.TotalScore = score.WinRateScore + score.ProfitLossRatioScore + score.FrequencyScore

	switch {
	case score.TotalScore >= 26:
		score.Rating = "A+"
	case score.TotalScore >= 23:
		score.Rating = "A"
	case score.TotalScore >= 20:
		score.Rating = "B"
	case score.TotalScore >= 18:
		score.Rating = "C"
	default:
		score.Rating = "D"
	}
}

// GetStrategyScores computes one score per strategy owning trades, sorted by
// total return rate descending.
func (s *AnalysisService) GetStrategyScores(ctx context.Context) ([]model.Score, error) {
	refs, err := s.ledgerRepo.ListTradingStrategies("")
	if err != nil {
		return nil, err
	}
	return s.fanOutScores(ctx, len(refs), func(i int) ScoreFilter {
		return ScoreFilter{StrategyID: refs[i].ID, StrategyName: refs[i].Name}
	})
}

// GetSymbolScoresByStrategy computes one score per symbol traded under the
// strategy, sorted by total return rate descending.
func (s *AnalysisService) GetSymbolScoresByStrategy(ctx context.Context, strategyID int64) ([]model.Score, error) {
	strategy, err := s.strategyRepo.GetByID(strategyID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: strategy %d", apperrors.ErrStrategyNotFound, strategyID)
	}
	if err != nil {
		return nil, err
	}

	symbols, err := s.ledgerRepo.ListTradedSymbols(strategyID)
	if err != nil {
		return nil, err
	}
	return s.fanOutScores(ctx, len(symbols), func(i int) ScoreFilter {
		return ScoreFilter{StrategyID: strategy.ID, StrategyName: strategy.Name, Symbol: symbols[i].Code}
	})
}

// GetStrategiesScoresBySymbol computes one score per strategy that traded the
// symbol, sorted by total return rate descending.
func (s *AnalysisService) GetStrategiesScoresBySymbol(ctx context.Context, symbolCode string) ([]model.Score, error) {
	refs, err := s.ledgerRepo.ListTradingStrategies(symbolCode)
	if err != nil {
		return nil, err
	}
	return s.fanOutScores(ctx, len(refs), func(i int) ScoreFilter {
		return ScoreFilter{StrategyID: refs[i].ID, StrategyName: refs[i].Name, Symbol: symbolCode}
	})
}

// GetStrategiesScoresByTimePeriod computes one score per strategy inside the
// period's date range, sorted by total return rate descending.
func (s *AnalysisService) GetStrategiesScoresByTimePeriod(ctx context.Context, period, periodType string) ([]model.Score, error) {
	start, end := periodDateRange(period, periodType)

	refs, err := s.ledgerRepo.ListTradingStrategies("")
	if err != nil {
		return nil, err
	}
	return s.fanOutScores(ctx, len(refs), func(i int) ScoreFilter {
		return ScoreFilter{StrategyID: refs[i].ID, StrategyName: refs[i].Name, StartDate: start, EndDate: end}
	})
}

// GetPeriodSummary computes the overall score for one period across all
// strategies and symbols.
func (s *AnalysisService) GetPeriodSummary(ctx context.Context, period, periodType string) (model.Score, error) {
	start, end := periodDateRange(period, periodType)
	return s.CalculateScore(ctx, ScoreFilter{StartDate: start, EndDate: end})
}

// GetTimePeriods enumerates the distinct period labels covered by non-deleted
// trades' open dates, newest first. periodType is "year", "quarter" or
// "month".
func (s *AnalysisService) GetTimePeriods(periodType string) ([]string, error) {
	months, err := s.ledgerRepo.ListOpenMonths()
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	periods := []string{}
	for _, m := range months {
		if len(m) < 7 {
			continue
		}

		var label string
		switch periodType {
		case "year":
			label = m[:4]
		case "quarter":
			month, err := strconv.Atoi(m[5:7])
			if err != nil || month < 1 || month > 12 {
				continue
			}
			label = fmt.Sprintf("%s-Q%d", m[:4], (month-1)/3+1)
		default:
			label = m
		}

		if !seen[label] {
			seen[label] = true
			periods = append(periods, label)
		}
	}

	return periods, nil
}

// ListTradedSymbols enumerates the distinct symbols with non-deleted trades,
// optionally scoped to one strategy.
func (s *AnalysisService) ListTradedSymbols(strategyID int64) ([]repository.SymbolRef, error) {
	return s.ledgerRepo.ListTradedSymbols(strategyID)
}

// fanOutScores computes n scores concurrently and sorts them by total return
// rate descending. Empty scopes (zero closed trades) are dropped.
func (s *AnalysisService) fanOutScores(ctx context.Context, n int, filterAt func(int) ScoreFilter) ([]model.Score, error) {
	results := make([]model.Score, n)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(scoreFanOutLimit)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			score, err := s.CalculateScore(ctx, filterAt(i))
			if err != nil {
				return err
			}
			results[i] = score
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scores := make([]model.Score, 0, n)
	for _, sc := range results {
		if sc.Stats.TotalTrades > 0 {
			scores = append(scores, sc)
		}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Stats.TotalReturnRate > scores[j].Stats.TotalReturnRate
	})
	return scores, nil
}

// periodDateRange maps a period label to its inclusive [start, end] bounds.
// Unrecognized labels or period types fall back to a range wide enough to
// cover everything.
func periodDateRange(period, periodType string) (string, string) {
	const wideStart, wideEnd = "1970-01-01", "9999-12-31"

	switch periodType {
	case "year":
		year, err := strconv.Atoi(period)
		if err != nil {
			return wideStart, wideEnd
		}
		return fmt.Sprintf("%04d-01-01", year), fmt.Sprintf("%04d-12-31", year)

	case "quarter":
		parts := strings.SplitN(period, "-Q", 2)
		if len(parts) != 2 {
			return wideStart, wideEnd
		}
		year, yerr := strconv.Atoi(parts[0])
		quarter, qerr := strconv.Atoi(parts[1])
		if yerr != nil || qerr != nil || quarter < 1 || quarter > 4 {
			return wideStart, wideEnd
		}
		startMonth := time.Month((quarter-1)*3 + 1)
		start := time.Date(year, startMonth, 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 3, -1)
		return start.Format("2006-01-02"), end.Format("2006-01-02")

	case "month":
		start, err := time.Parse("2006-01", period)
		if err != nil {
			return wideStart, wideEnd
		}
		end := start.AddDate(0, 1, -1)
		return start.Format("2006-01-02"), end.Format("2006-01-02")

	default:
		return wideStart, wideEnd
	}
}
