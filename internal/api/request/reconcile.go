package request

// AutoFixRequest is the payload for the reconciliation repair endpoint. An
// empty trade ID list fixes every non-deleted trade.
type AutoFixRequest struct {
	TradeIDs []int64 `json:"tradeIds"`
}
