package model

import "github.com/shopspring/decimal"

func init() {
	// Monetary fields marshal as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}
