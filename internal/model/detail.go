package model

import "github.com/shopspring/decimal"

// Transaction type values for trade details.
const (
	TypeBuy  = "buy"
	TypeSell = "sell"
)

// TradeDetail represents a single buy or sell fill belonging to exactly one
// trade. Amount is fee-inclusive on the buy side (price*quantity + fee) and
// fee-net on the sell side (price*quantity - fee).
//
// The four profit fields are recomputed from the trade's full detail set and
// are meaningful only on sell rows; they are NULL on buys.
type TradeDetail struct {
	ID              int64               `json:"id"`
	TradeID         int64               `json:"tradeId"`
	TransactionType string              `json:"transactionType"`
	Price           decimal.Decimal     `json:"price"`
	Quantity        int64               `json:"quantity"`
	Amount          decimal.Decimal     `json:"amount"`
	TransactionDate string              `json:"transactionDate"`
	TransactionFee  decimal.Decimal     `json:"transactionFee"`
	BuyReason       string              `json:"buyReason,omitempty"`
	SellReason      string              `json:"sellReason,omitempty"`
	GrossProfit     decimal.NullDecimal `json:"grossProfit,omitempty"`
	GrossProfitPct  decimal.NullDecimal `json:"grossProfitPct,omitempty"`
	NetProfit       decimal.NullDecimal `json:"netProfit,omitempty"`
	NetProfitPct    decimal.NullDecimal `json:"netProfitPct,omitempty"`
	IsDeleted       bool                `json:"isDeleted"`
	DeleteDate      string              `json:"deleteDate,omitempty"`
	DeleteReason    string              `json:"deleteReason,omitempty"`
	OperatorNote    string              `json:"operatorNote,omitempty"`
	CreatedAt       string              `json:"createdAt,omitempty"`
}

// IsBuy reports whether the detail is a buy fill.
func (d *TradeDetail) IsBuy() bool {
	return d.TransactionType == TypeBuy
}

// IsSell reports whether the detail is a sell fill.
func (d *TradeDetail) IsSell() bool {
	return d.TransactionType == TypeSell
}

// Gross returns the fee-exclusive value of the fill (price * quantity).
func (d *TradeDetail) Gross() decimal.Decimal {
	return d.Price.Mul(decimal.NewFromInt(d.Quantity))
}
