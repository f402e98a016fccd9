package model

import "github.com/shopspring/decimal"

// Trade status values.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Trade represents one position: the container for all executions of a
// (strategy, symbol) lifecycle from first buy to full close.
//
// All aggregate fields are derived from the trade's non-deleted details and
// recomputed on every mutation; the details are the source of truth.
// Monetary fields use decimal arithmetic internally and are converted to
// float64 only at the API boundary.
type Trade struct {
	ID                 int64           `json:"id"`
	StrategyID         int64           `json:"strategyId"`
	StrategyName       string          `json:"strategyName,omitempty"`
	SymbolCode         string          `json:"symbolCode"`
	SymbolName         string          `json:"symbolName"`
	OpenDate           string          `json:"openDate"`
	CloseDate          string          `json:"closeDate,omitempty"`
	Status             string          `json:"status"`
	HoldingDays        int             `json:"holdingDays"`
	TotalBuyAmount     decimal.Decimal `json:"totalBuyAmount"`
	TotalBuyQuantity   int64           `json:"totalBuyQuantity"`
	TotalSellAmount    decimal.Decimal `json:"totalSellAmount"`
	TotalSellQuantity  int64           `json:"totalSellQuantity"`
	RemainingQuantity  int64           `json:"remainingQuantity"`
	TotalProfitLoss    decimal.Decimal `json:"totalProfitLoss"` // gross, fee-exclusive
	TotalProfitLossPct decimal.Decimal `json:"totalProfitLossPct"`
	TotalNetProfit     decimal.Decimal `json:"totalNetProfit"`
	TotalNetProfitPct  decimal.Decimal `json:"totalNetProfitPct"`
	TotalFees          decimal.Decimal `json:"totalFees"`
	TradeLog           string          `json:"tradeLog,omitempty"`
	IsDeleted          bool            `json:"isDeleted"`
	DeleteDate         string          `json:"deleteDate,omitempty"`
	DeleteReason       string          `json:"deleteReason,omitempty"`
	OperatorNote       string          `json:"operatorNote,omitempty"`
	CreatedAt          string          `json:"createdAt,omitempty"`
	UpdatedAt          string          `json:"updatedAt,omitempty"`
}

// DetailAggregate holds the exact-decimal sums of a trade's non-deleted
// details, split by side. It is the input to the cost calculator.
type DetailAggregate struct {
	GrossBuy  decimal.Decimal // sum of buy price*quantity, fee-exclusive
	BuyFees   decimal.Decimal
	GrossSell decimal.Decimal // sum of sell price*quantity, fee-exclusive
	SellFees  decimal.Decimal
	SoldQty   int64
	BuyQty    int64
}

// TradeOverview is the read-side summary returned for a single position.
// HoldingDays is computed at read time for open positions (today - open date)
// and taken from the stored value for closed ones.
type TradeOverview struct {
	Trade        Trade           `json:"trade"`
	HoldingDays  int             `json:"holdingDays"`
	AvgBuyPrice  decimal.Decimal `json:"avgBuyPrice"` // fee-exclusive weighted average
	DetailCount  int             `json:"detailCount"`
	LotRemaining map[int64]int64 `json:"lotRemaining"`
}
