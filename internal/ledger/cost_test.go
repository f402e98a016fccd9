package ledger_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/quantlog/trade-ledger-backend/internal/ledger"
	"github.com/quantlog/trade-ledger-backend/internal/model"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func assertDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Errorf("%s = %s, want %s", name, got.String(), want)
	}
}

// TestComputeCost_PartialClose tests the weighted-average cost calculation.
//
// WHY: Profit attribution is the heart of the ledger. This covers the
// canonical scenario: two buys at different prices, one partial sell, with
// fees on every leg.
func TestComputeCost_PartialClose(t *testing.T) {
	// Buy 100 @ 10.00 (fee 1.00), buy 100 @ 12.00 (fee 1.00), sell 150 @ 13.00 (fee 3.00).
	agg := model.DetailAggregate{
		GrossBuy:  dec("2200"), // 100*10 + 100*12
		BuyFees:   dec("2"),
		GrossSell: dec("1950"), // 150*13
		SellFees:  dec("3"),
		SoldQty:   150,
		BuyQty:    200,
	}

	m := ledger.ComputeCost(agg)

	assertDecimal(t, "AvgBuyPriceExFee", m.AvgBuyPriceExFee, "11")
	assertDecimal(t, "BuyCostForSold", m.BuyCostForSold, "1650")
	assertDecimal(t, "AllocatedBuyFeesForSold", m.AllocatedBuyFeesForSold, "1.5")
	assertDecimal(t, "GrossProfitForSold", m.GrossProfitForSold, "300")
	assertDecimal(t, "NetProfit", m.NetProfit, "295.5")
	assertDecimal(t, "TotalBuyAmountInclFee", m.TotalBuyAmountInclFee, "2202")
	assertDecimal(t, "TotalSellAmountNet", m.TotalSellAmountNet, "1947")
	assertDecimal(t, "TotalFees", m.TotalFees, "5")

	// net profit pct = 295.5 / 1650 * 100
	wantPct := dec("295.5").Div(dec("1650")).Mul(dec("100"))
	if !m.NetProfitPct.Equal(wantPct) {
		t.Errorf("NetProfitPct = %s, want %s", m.NetProfitPct, wantPct)
	}
}

// TestComputeCost_EdgeCases tests zero-quantity inputs.
//
// WHY: Fresh positions have no sells and deleted data can leave empty
// aggregates; division by zero must never occur.
func TestComputeCost_EdgeCases(t *testing.T) {
	t.Run("no buys yields zero metrics", func(t *testing.T) {
		m := ledger.ComputeCost(model.DetailAggregate{})

		if !m.AvgBuyPriceExFee.IsZero() {
			t.Errorf("AvgBuyPriceExFee = %s, want 0", m.AvgBuyPriceExFee)
		}
		if !m.NetProfitPct.IsZero() {
			t.Errorf("NetProfitPct = %s, want 0", m.NetProfitPct)
		}
		if !m.TotalFeeRatioPct.IsZero() {
			t.Errorf("TotalFeeRatioPct = %s, want 0", m.TotalFeeRatioPct)
		}
	})

	t.Run("buys without sells", func(t *testing.T) {
		agg := model.DetailAggregate{
			GrossBuy: dec("1000"),
			BuyFees:  dec("1"),
			BuyQty:   100,
		}

		m := ledger.ComputeCost(agg)

		assertDecimal(t, "AvgBuyPriceExFee", m.AvgBuyPriceExFee, "10")
		if !m.GrossProfitForSold.IsZero() {
			t.Errorf("GrossProfitForSold = %s, want 0", m.GrossProfitForSold)
		}
		assertDecimal(t, "NetProfit", m.NetProfit, "-1")
		if !m.GrossProfitPct().IsZero() {
			t.Errorf("GrossProfitPct = %s, want 0", m.GrossProfitPct())
		}
	})

	t.Run("fee ratio relative to gross buy", func(t *testing.T) {
		agg := model.DetailAggregate{
			GrossBuy: dec("2000"),
			BuyFees:  dec("2"),
			SellFees: dec("3"),
			BuyQty:   200,
		}

		m := ledger.ComputeCost(agg)

		assertDecimal(t, "TotalFeeRatioPct", m.TotalFeeRatioPct, "0.25")
	})
}
