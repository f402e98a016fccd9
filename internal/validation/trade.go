package validation

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ValidateBuy validates the inputs for opening or augmenting a position.
//
// Required:
//   - symbolCode, symbolName: non-empty
//   - price: positive
//   - quantity: positive integer
//   - date: YYYY-MM-DD
//   - fee: non-negative
//
// Returns a validation Error with field-specific messages if validation fails.
func ValidateBuy(symbolCode, symbolName string, price decimal.Decimal, quantity int64, date string, fee decimal.Decimal) error {
	errors := make(map[string]string)

	if strings.TrimSpace(symbolCode) == "" {
		errors["symbolCode"] = "证券代码不能为空"
	}
	if strings.TrimSpace(symbolName) == "" {
		errors["symbolName"] = "证券名称不能为空"
	}
	validateExecution(errors, price, quantity, date, fee)

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

// ValidateSell validates the inputs for a sell execution. The remaining
// quantity check happens in the service, where the position is loaded.
func ValidateSell(price decimal.Decimal, quantity int64, date string, fee decimal.Decimal) error {
	errors := make(map[string]string)

	validateExecution(errors, price, quantity, date, fee)

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

func validateExecution(errors map[string]string, price decimal.Decimal, quantity int64, date string, fee decimal.Decimal) {
	if !price.IsPositive() {
		errors["price"] = "价格必须大于0"
	}
	if quantity <= 0 {
		errors["quantity"] = "数量必须大于0"
	}
	if fee.IsNegative() {
		errors["fee"] = "手续费不能为负"
	}
	if strings.TrimSpace(date) == "" {
		errors["date"] = "日期不能为空"
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		errors["date"] = "日期格式必须为YYYY-MM-DD"
	}
}
