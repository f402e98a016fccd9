package testutil

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/quantlog/trade-ledger-backend/internal/database"
	"github.com/quantlog/trade-ledger-backend/internal/model"
)

// StrategyBuilder provides a fluent interface for creating test strategies.
//
// Example usage:
//
//	// Simple creation with defaults
//	strategy := testutil.NewStrategy().Build(t, db)
//
//	// Customized strategy
//	strategy := testutil.NewStrategy().
//	    WithName("Trend").
//	    Inactive().
//	    Build(t, db)
type StrategyBuilder struct {
	Name        string
	Description string
	IsActive    bool
}

// NewStrategy creates a StrategyBuilder with sensible defaults.
func NewStrategy() *StrategyBuilder {
	return &StrategyBuilder{
		Name:        MakeStrategyName("Test Strategy"),
		Description: "Test description",
		IsActive:    true,
	}
}

// WithName sets a custom name.
func (b *StrategyBuilder) WithName(name string) *StrategyBuilder {
	b.Name = name
	return b
}

// WithDescription sets a custom description.
func (b *StrategyBuilder) WithDescription(desc string) *StrategyBuilder {
	b.Description = desc
	return b
}

// Inactive marks the strategy as soft-disabled.
func (b *StrategyBuilder) Inactive() *StrategyBuilder {
	b.IsActive = false
	return b
}

// Build creates the strategy in the database and returns it.
func (b *StrategyBuilder) Build(t *testing.T, db *database.SafeDB) model.Strategy {
	t.Helper()

	res, err := db.Exec(
		"INSERT INTO strategies (name, description, is_active) VALUES (?, ?, ?)",
		b.Name, b.Description, b.IsActive,
	)
	if err != nil {
		t.Fatalf("Failed to create test strategy: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to read test strategy id: %v", err)
	}

	return model.Strategy{
		ID:          id,
		Name:        b.Name,
		Description: b.Description,
		IsActive:    b.IsActive,
	}
}

// TradeBuilder provides a fluent interface for creating raw trade rows.
// Builders bypass the service layer so tests can stage arbitrary states,
// including inconsistent aggregates for reconciliation tests.
type TradeBuilder struct {
	StrategyID int64
	SymbolCode string
	SymbolName string
	OpenDate   string
	CloseDate  string
	Status     string
	IsDeleted  bool
}

// NewTrade creates a TradeBuilder for the given strategy with sensible
// defaults.
func NewTrade(strategyID int64) *TradeBuilder {
	return &TradeBuilder{
		StrategyID: strategyID,
		SymbolCode: MakeSymbol("TST"),
		SymbolName: "测试标的",
		OpenDate:   "2025-01-01",
		Status:     model.StatusOpen,
	}
}

// WithSymbol sets the symbol code and name.
func (b *TradeBuilder) WithSymbol(code, name string) *TradeBuilder {
	b.SymbolCode = code
	b.SymbolName = name
	return b
}

// WithOpenDate sets the open date.
func (b *TradeBuilder) WithOpenDate(date string) *TradeBuilder {
	b.OpenDate = date
	return b
}

// Closed marks the trade closed on the given date.
func (b *TradeBuilder) Closed(closeDate string) *TradeBuilder {
	b.Status = model.StatusClosed
	b.CloseDate = closeDate
	return b
}

// Deleted marks the trade soft-deleted.
func (b *TradeBuilder) Deleted() *TradeBuilder {
	b.IsDeleted = true
	return b
}

// Build creates the trade row and returns its ID.
func (b *TradeBuilder) Build(t *testing.T, db *database.SafeDB) int64 {
	t.Helper()

	var closeDate any
	if b.CloseDate != "" {
		closeDate = b.CloseDate
	}

	res, err := db.Exec(
		`INSERT INTO trades (strategy_id, symbol_code, symbol_name, open_date, close_date, status, is_deleted)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.StrategyID, b.SymbolCode, b.SymbolName, b.OpenDate, closeDate, b.Status, b.IsDeleted,
	)
	if err != nil {
		t.Fatalf("Failed to create test trade: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to read test trade id: %v", err)
	}
	return id
}

// DetailBuilder provides a fluent interface for creating raw detail rows.
type DetailBuilder struct {
	TradeID         int64
	TransactionType string
	Price           decimal.Decimal
	Quantity        int64
	Amount          decimal.Decimal
	TransactionDate string
	TransactionFee  decimal.Decimal
	IsDeleted       bool
}

// NewBuyDetail creates a buy DetailBuilder; amount defaults to
// price*quantity + fee.
func NewBuyDetail(tradeID int64, price string, quantity int64) *DetailBuilder {
	p := decimal.RequireFromString(price)
	return &DetailBuilder{
		TradeID:         tradeID,
		TransactionType: model.TypeBuy,
		Price:           p,
		Quantity:        quantity,
		Amount:          p.Mul(decimal.NewFromInt(quantity)),
		TransactionDate: "2025-01-01",
	}
}

// NewSellDetail creates a sell DetailBuilder; amount defaults to
// price*quantity - fee.
func NewSellDetail(tradeID int64, price string, quantity int64) *DetailBuilder {
	p := decimal.RequireFromString(price)
	return &DetailBuilder{
		TradeID:         tradeID,
		TransactionType: model.TypeSell,
		Price:           p,
		Quantity:        quantity,
		Amount:          p.Mul(decimal.NewFromInt(quantity)),
		TransactionDate: "2025-01-10",
	}
}

// WithFee sets the transaction fee and re-derives the amount for the side.
func (b *DetailBuilder) WithFee(fee string) *DetailBuilder {
	b.TransactionFee = decimal.RequireFromString(fee)
	gross := b.Price.Mul(decimal.NewFromInt(b.Quantity))
	if b.TransactionType == model.TypeBuy {
		b.Amount = gross.Add(b.TransactionFee)
	} else {
		b.Amount = gross.Sub(b.TransactionFee)
	}
	return b
}

// WithDate sets the transaction date.
func (b *DetailBuilder) WithDate(date string) *DetailBuilder {
	b.TransactionDate = date
	return b
}

// WithAmount overrides the stored amount, e.g. to stage an amount_mismatch.
func (b *DetailBuilder) WithAmount(amount string) *DetailBuilder {
	b.Amount = decimal.RequireFromString(amount)
	return b
}

// Deleted marks the detail soft-deleted.
func (b *DetailBuilder) Deleted() *DetailBuilder {
	b.IsDeleted = true
	return b
}

// Build creates the detail row and returns its ID.
func (b *DetailBuilder) Build(t *testing.T, db *database.SafeDB) int64 {
	t.Helper()

	res, err := db.Exec(
		`INSERT INTO trade_details (trade_id, transaction_type, price, quantity, amount, transaction_date, transaction_fee, is_deleted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.TradeID, b.TransactionType, b.Price, b.Quantity, b.Amount, b.TransactionDate, b.TransactionFee, b.IsDeleted,
	)
	if err != nil {
		t.Fatalf("Failed to create test detail: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to read test detail id: %v", err)
	}
	return id
}

// Convenience functions

// CreateStrategy creates an active strategy with the given name.
//
// Example usage:
//
//	strategy := testutil.CreateStrategy(t, db, "Trend")
func CreateStrategy(t *testing.T, db *database.SafeDB, name string) model.Strategy {
	t.Helper()
	return NewStrategy().WithName(name).Build(t, db)
}

// CreateTag creates a user-defined tag and returns its ID.
func CreateTag(t *testing.T, db *database.SafeDB, name string) int64 {
	t.Helper()

	res, err := db.Exec("INSERT INTO tags (name, is_predefined) VALUES (?, 0)", name)
	if err != nil {
		t.Fatalf("Failed to create test tag: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to read test tag id: %v", err)
	}
	return id
}
