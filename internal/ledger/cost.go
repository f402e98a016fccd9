// Package ledger holds the pure trade-accounting math: weighted-average cost
// and profit calculation, and FIFO lot tracking. Nothing here touches the
// database; all arithmetic is exact decimal, with float conversion left to the
// caller's DTO boundary.
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/quantlog/trade-ledger-backend/internal/model"
)

var hundred = decimal.NewFromInt(100)

// CostMetrics is the result of a cost calculation over one trade's aggregated
// buy and sell totals.
type CostMetrics struct {
	AvgBuyPriceExFee        decimal.Decimal // weighted average buy price, fee-exclusive
	BuyCostForSold          decimal.Decimal // avg buy price * sold quantity
	AllocatedBuyFeesForSold decimal.Decimal // buy fees * sold/bought share
	GrossProfitForSold      decimal.Decimal
	NetProfit               decimal.Decimal
	NetProfitPct            decimal.Decimal
	TotalBuyAmountInclFee   decimal.Decimal
	TotalSellAmountNet      decimal.Decimal
	TotalFees               decimal.Decimal
	TotalFeeRatioPct        decimal.Decimal
}

// ComputeCost derives all cost and profit figures from a trade's detail
// aggregate.
//
// The cost basis for sold shares is the fee-exclusive weighted average buy
// price. Buy fees are allocated to sold shares by sold-quantity share, which
// keeps the allocation independent of FIFO ordering.
func ComputeCost(agg model.DetailAggregate) CostMetrics {
	soldQty := decimal.NewFromInt(agg.SoldQty)
	buyQty := decimal.NewFromInt(agg.BuyQty)

	var m CostMetrics
	if agg.BuyQty > 0 {
		m.AvgBuyPriceExFee = agg.GrossBuy.Div(buyQty)
		m.AllocatedBuyFeesForSold = agg.BuyFees.Mul(soldQty).Div(buyQty)
	}
	m.BuyCostForSold = m.AvgBuyPriceExFee.Mul(soldQty)
	m.GrossProfitForSold = agg.GrossSell.Sub(m.BuyCostForSold)
	m.NetProfit = m.GrossProfitForSold.Sub(agg.SellFees).Sub(m.AllocatedBuyFeesForSold)
	if m.BuyCostForSold.IsPositive() {
		m.NetProfitPct = m.NetProfit.Div(m.BuyCostForSold).Mul(hundred)
	}

	m.TotalBuyAmountInclFee = agg.GrossBuy.Add(agg.BuyFees)
	m.TotalSellAmountNet = agg.GrossSell.Sub(agg.SellFees)
	m.TotalFees = agg.BuyFees.Add(agg.SellFees)
	if agg.GrossBuy.IsPositive() {
		m.TotalFeeRatioPct = m.TotalFees.Div(agg.GrossBuy).Mul(hundred)
	}

	return m
}

// GrossProfitPct returns the gross profit as a percentage of the buy cost for
// the sold shares, or zero when nothing was bought.
func (m CostMetrics) GrossProfitPct() decimal.Decimal {
	if !m.BuyCostForSold.IsPositive() {
		return decimal.Zero
	}
	return m.GrossProfitForSold.Div(m.BuyCostForSold).Mul(hundred)
}
