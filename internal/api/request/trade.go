// Package request defines the JSON request payloads accepted by the API.
package request

import "github.com/shopspring/decimal"

// BuyRequest is the payload for recording a buy fill. Exactly one of
// StrategyID and StrategyName selects the strategy.
type BuyRequest struct {
	StrategyID   int64           `json:"strategyId"`
	StrategyName string          `json:"strategyName"`
	SymbolCode   string          `json:"symbolCode"`
	SymbolName   string          `json:"symbolName"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int64           `json:"quantity"`
	Date         string          `json:"date"` // YYYY-MM-DD
	Fee          decimal.Decimal `json:"fee"`
	Reason       string          `json:"reason"`
}

// SellRequest is the payload for recording a sell fill on an open position.
type SellRequest struct {
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
	Date     string          `json:"date"` // YYYY-MM-DD
	Fee      decimal.Decimal `json:"fee"`
	Reason   string          `json:"reason"`
	TradeLog string          `json:"tradeLog"`
}

// DetailUpdateRequest describes an edit of one execution detail. Absent
// fields are left unchanged.
type DetailUpdateRequest struct {
	DetailID       int64            `json:"detailId"`
	Price          *decimal.Decimal `json:"price"`
	Quantity       *int64           `json:"quantity"`
	TransactionFee *decimal.Decimal `json:"transactionFee"`
	BuyReason      *string          `json:"buyReason"`
	SellReason     *string          `json:"sellReason"`
}

// UpdateTradeRequest is the payload for a batch of detail edits. The reason
// is recorded on every audit row the batch produces.
type UpdateTradeRequest struct {
	Updates []DetailUpdateRequest `json:"updates"`
	Reason  string                `json:"reason"`
}

// DeleteTradeRequest is the payload for soft-deleting a trade.
type DeleteTradeRequest struct {
	ConfirmationCode string `json:"confirmationCode"`
	Reason           string `json:"reason"`
	Note             string `json:"note"`
}

// RestoreTradeRequest is the payload for restoring a soft-deleted trade.
type RestoreTradeRequest struct {
	ConfirmationCode string `json:"confirmationCode"`
	Note             string `json:"note"`
}

// PurgeTradeRequest is the payload for permanently deleting a trade. The
// confirmation text must be typed verbatim in addition to the code.
type PurgeTradeRequest struct {
	ConfirmationCode string `json:"confirmationCode"`
	ConfirmationText string `json:"confirmationText"`
	Reason           string `json:"reason"`
	Note             string `json:"note"`
}
