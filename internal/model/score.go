package model

// ProfitFactorSentinel is returned as the profit factor when closed winners
// exist but there are no losers, so downstream scoring can distinguish
// "no losses" from "no trades" (which yields 0).
const ProfitFactorSentinel = 9999.0

// ScoreStats holds the performance statistics of a set of closed trades.
// All monetary values are float64: they leave the exact-decimal domain at this
// DTO boundary only.
type ScoreStats struct {
	TotalTrades   int     `json:"totalTrades"`
	WinningTrades int     `json:"winningTrades"`
	LosingTrades  int     `json:"losingTrades"`
	WinRate       float64 `json:"winRate"` // percent

	TotalInvestment    float64 `json:"totalInvestment"`
	TotalReturn        float64 `json:"totalReturn"` // gross, same as TotalGrossReturn
	TotalGrossReturn   float64 `json:"totalGrossReturn"`
	TotalGrossRate     float64 `json:"totalGrossRate"`
	TotalNetReturn     float64 `json:"totalNetReturn"`
	TotalNetReturnRate float64 `json:"totalNetReturnRate"`
	TotalReturnRate    float64 `json:"totalReturnRate"`

	AvgReturnPerTrade    float64 `json:"avgReturnPerTrade"`
	AvgNetReturnPerTrade float64 `json:"avgNetReturnPerTrade"`
	AvgHoldingDays       float64 `json:"avgHoldingDays"`
	TotalFees            float64 `json:"totalFees"`
	AvgProfitLossRatio   float64 `json:"avgProfitLossRatio"` // profit factor
	TurnoverRate         float64 `json:"turnoverRate"`       // percent

	AnnualVolatility float64 `json:"annualVolatility"`
	AnnualReturn     float64 `json:"annualReturn"`
	MaxDrawdown      float64 `json:"maxDrawdown"`
	SharpeRatio      float64 `json:"sharpeRatio"`
	CalmarRatio      float64 `json:"calmarRatio"`
}

// Score is the full evaluation of a strategy/symbol/period scope: raw
// statistics plus the derived score fields and letter rating.
type Score struct {
	Strategy  string `json:"strategy,omitempty"`
	Symbol    string `json:"symbol,omitempty"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`

	Stats ScoreStats `json:"stats"`

	WinRateScore         float64 `json:"winRateScore"`
	ProfitLossRatioScore float64 `json:"profitLossRatioScore"`
	FrequencyScore       float64 `json:"frequencyScore"`
	TotalScore           float64 `json:"totalScore"`
	Rating               string  `json:"rating"`
}
