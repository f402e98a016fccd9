package model

// Modification types recorded in the audit trail.
const (
	ModTypeTradeUpdate  = "trade_update"
	ModTypeDetailUpdate = "detail_update"
	ModTypeSoftDelete   = "soft_delete"
	ModTypeRestore      = "restore"
	ModTypeRawEdit      = "raw_edit"
)

// Modification is an append-only audit row recording a single field-level
// change on a trade or one of its details. BatchID groups all rows written by
// one logical operation.
type Modification struct {
	ID               int64  `json:"id"`
	BatchID          string `json:"batchId,omitempty"`
	TradeID          int64  `json:"tradeId"`
	DetailID         int64  `json:"detailId,omitempty"` // 0 for trade-level changes
	ModificationType string `json:"modificationType"`
	FieldName        string `json:"fieldName"`
	OldValue         string `json:"oldValue"`
	NewValue         string `json:"newValue"`
	Reason           string `json:"reason,omitempty"`
	CreatedAt        string `json:"createdAt,omitempty"`
}
