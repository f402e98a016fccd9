package repository

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/quantlog/trade-ledger-backend/internal/database"
	"github.com/quantlog/trade-ledger-backend/internal/model"
)

// tradeColumns is the canonical select list for trade rows, joined with the
// strategy name.
const tradeColumns = `
	t.id, t.strategy_id, s.name, t.symbol_code, t.symbol_name,
	t.open_date, t.close_date, t.status, t.holding_days,
	t.total_buy_amount, t.total_buy_quantity, t.total_sell_amount, t.total_sell_quantity,
	t.remaining_quantity, t.total_profit_loss, t.total_profit_loss_pct,
	t.total_net_profit, t.total_net_profit_pct, t.total_fees,
	t.trade_log, t.is_deleted, t.delete_date, t.delete_reason, t.operator_note,
	t.created_at, t.updated_at`

const detailColumns = `
	id, trade_id, transaction_type, price, quantity, amount,
	transaction_date, transaction_fee, buy_reason, sell_reason,
	gross_profit, gross_profit_pct, net_profit, net_profit_pct,
	is_deleted, delete_date, delete_reason, operator_note, created_at`

// TradeFilter describes the predicates, ordering and pagination of a trade
// listing. The zero value lists all non-deleted trades, newest first.
type TradeFilter struct {
	Status         string   // "open", "closed" or empty
	StrategyID     int64    // 0 = all strategies
	IncludeDeleted bool     // include soft-deleted rows
	OnlyDeleted    bool     // list soft-deleted rows exclusively
	OrderBy        string   // whitelisted, see SanitizeOrderBy
	Limit          int      // 0 = no limit
	Offset         int      // applied only with Limit
	Symbols        []string // case-insensitive symbol_code filter
	SymbolNames    []string // case-insensitive symbol_name filter
	DateFrom       string   // inclusive; matches open_date or close_date
	DateTo         string   // inclusive; matches open_date or close_date
}

// LedgerRepository provides data access for trades and their execution
// details. Reads run against the guarded database handle; write methods take
// an explicit Queryer so the service layer can compose them inside one
// transaction.
type LedgerRepository struct {
	db *database.SafeDB
}

// NewLedgerRepository creates a new LedgerRepository with the provided
// database handle.
func NewLedgerRepository(db *database.SafeDB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func buildTradePredicates(f TradeFilter) (string, []any) {
	var conds []string
	var args []any

	switch {
	case f.OnlyDeleted:
		conds = append(conds, "t.is_deleted = 1")
	case !f.IncludeDeleted:
		conds = append(conds, "t.is_deleted = 0")
	}

	if f.Status != "" {
		conds = append(conds, "t.status = ?")
		args = append(args, f.Status)
	}
	if f.StrategyID > 0 {
		conds = append(conds, "t.strategy_id = ?")
		args = append(args, f.StrategyID)
	}
	if len(f.Symbols) > 0 {
		conds = append(conds, "UPPER(t.symbol_code) IN ("+placeholders(len(f.Symbols))+")")
		for _, s := range f.Symbols {
			args = append(args, strings.ToUpper(s))
		}
	}
	if len(f.SymbolNames) > 0 {
		conds = append(conds, "UPPER(t.symbol_name) IN ("+placeholders(len(f.SymbolNames))+")")
		for _, s := range f.SymbolNames {
			args = append(args, strings.ToUpper(s))
		}
	}

	// A trade matches a date range when its open or close date falls inside it.
	switch {
	case f.DateFrom != "" && f.DateTo != "":
		conds = append(conds, "((t.open_date >= ? AND t.open_date <= ?) OR (t.close_date >= ? AND t.close_date <= ?))")
		args = append(args, f.DateFrom, f.DateTo, f.DateFrom, f.DateTo)
	case f.DateFrom != "":
		conds = append(conds, "(t.open_date >= ? OR t.close_date >= ?)")
		args = append(args, f.DateFrom, f.DateFrom)
	case f.DateTo != "":
		conds = append(conds, "(t.open_date <= ? OR t.close_date <= ?)")
		args = append(args, f.DateTo, f.DateTo)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// FetchTrades retrieves trades matching the filter, joined with their
// strategy name.
func (r *LedgerRepository) FetchTrades(f TradeFilter) ([]model.Trade, error) {
	query := "SELECT" + tradeColumns + `
		FROM trades t
		JOIN strategies s ON t.strategy_id = s.id`

	where, args := buildTradePredicates(f)
	query += where
	query += " ORDER BY " + SanitizeOrderBy(f.OrderBy)
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	trades := []model.Trade{}
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade row: %w", err)
		}
		trades = append(trades, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, nil
}

// CountTrades returns the number of trades matching the filter's predicates.
func (r *LedgerRepository) CountTrades(f TradeFilter) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM trades t
		JOIN strategies s ON t.strategy_id = s.id`

	where, args := buildTradePredicates(f)
	query += where

	var count int
	if err := r.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return count, nil
}

// GetTrade retrieves a single trade by ID. Soft-deleted trades are only
// visible with includeDeleted.
func (r *LedgerRepository) GetTrade(id int64, includeDeleted bool) (model.Trade, error) {
	return r.getTrade(r.db, id, includeDeleted)
}

// GetTradeTx is GetTrade running on the caller's transaction.
func (r *LedgerRepository) GetTradeTx(q database.Queryer, id int64, includeDeleted bool) (model.Trade, error) {
	return r.getTrade(q, id, includeDeleted)
}

func (r *LedgerRepository) getTrade(q database.Queryer, id int64, includeDeleted bool) (model.Trade, error) {
	query := "SELECT" + tradeColumns + `
		FROM trades t
		JOIN strategies s ON t.strategy_id = s.id
		WHERE t.id = ?`
	if !includeDeleted {
		query += " AND t.is_deleted = 0"
	}

	t, err := scanTrade(q.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return model.Trade{}, sql.ErrNoRows
	}
	if err != nil {
		return model.Trade{}, fmt.Errorf("failed to scan trade row: %w", err)
	}
	return t, nil
}

// FindOpenTrade looks up the open, non-deleted trade for a (strategy, symbol)
// pair. The boolean result reports whether one exists.
func (r *LedgerRepository) FindOpenTrade(q database.Queryer, strategyID int64, symbolCode string) (model.Trade, bool, error) {
	query := "SELECT" + tradeColumns + `
		FROM trades t
		JOIN strategies s ON t.strategy_id = s.id
		WHERE t.strategy_id = ? AND UPPER(t.symbol_code) = ? AND t.status = ? AND t.is_deleted = 0`

	t, err := scanTrade(q.QueryRow(query, strategyID, strings.ToUpper(symbolCode), model.StatusOpen))
	if err == sql.ErrNoRows {
		return model.Trade{}, false, nil
	}
	if err != nil {
		return model.Trade{}, false, fmt.Errorf("failed to scan trade row: %w", err)
	}
	return t, true, nil
}

// GetDetails retrieves a trade's execution details in chronological order
// (transaction_date, then created_at, then id).
func (r *LedgerRepository) GetDetails(tradeID int64, includeDeleted bool) ([]model.TradeDetail, error) {
	return r.getDetails(r.db, tradeID, includeDeleted)
}

// GetDetailsTx is GetDetails running on the caller's transaction.
func (r *LedgerRepository) GetDetailsTx(q database.Queryer, tradeID int64, includeDeleted bool) ([]model.TradeDetail, error) {
	return r.getDetails(q, tradeID, includeDeleted)
}

func (r *LedgerRepository) getDetails(q database.Queryer, tradeID int64, includeDeleted bool) ([]model.TradeDetail, error) {
	query := "SELECT" + detailColumns + `
		FROM trade_details
		WHERE trade_id = ?`
	if !includeDeleted {
		query += " AND is_deleted = 0"
	}
	query += " ORDER BY transaction_date, created_at, id"

	rows, err := q.Query(query, tradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade details: %w", err)
	}
	defer rows.Close()

	details := []model.TradeDetail{}
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade detail row: %w", err)
		}
		details = append(details, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade details: %w", err)
	}

	return details, nil
}

// GetDetail retrieves a single non-deleted execution detail by ID.
func (r *LedgerRepository) GetDetail(q database.Queryer, detailID int64) (model.TradeDetail, error) {
	query := "SELECT" + detailColumns + `
		FROM trade_details
		WHERE id = ? AND is_deleted = 0`

	d, err := scanDetail(q.QueryRow(query, detailID))
	if err == sql.ErrNoRows {
		return model.TradeDetail{}, sql.ErrNoRows
	}
	if err != nil {
		return model.TradeDetail{}, fmt.Errorf("failed to scan trade detail row: %w", err)
	}
	return d, nil
}

// AggregateDetails sums a trade's details by side with exact decimal
// arithmetic. The sums are computed in Go rather than SQL so that no value
// passes through floating point.
func (r *LedgerRepository) AggregateDetails(tradeID int64, includeDeleted bool) (model.DetailAggregate, error) {
	return r.aggregateDetails(r.db, tradeID, includeDeleted)
}

// AggregateDetailsTx is AggregateDetails running on the caller's transaction.
func (r *LedgerRepository) AggregateDetailsTx(q database.Queryer, tradeID int64, includeDeleted bool) (model.DetailAggregate, error) {
	return r.aggregateDetails(q, tradeID, includeDeleted)
}

func (r *LedgerRepository) aggregateDetails(q database.Queryer, tradeID int64, includeDeleted bool) (model.DetailAggregate, error) {
	details, err := r.getDetails(q, tradeID, includeDeleted)
	if err != nil {
		return model.DetailAggregate{}, err
	}
	return Aggregate(details), nil
}

// Aggregate sums a detail slice into the per-side totals used by the cost
// calculator.
func Aggregate(details []model.TradeDetail) model.DetailAggregate {
	var agg model.DetailAggregate
	for _, d := range details {
		switch {
		case d.IsBuy():
			agg.GrossBuy = agg.GrossBuy.Add(d.Gross())
			agg.BuyFees = agg.BuyFees.Add(d.TransactionFee)
			agg.BuyQty += d.Quantity
		case d.IsSell():
			agg.GrossSell = agg.GrossSell.Add(d.Gross())
			agg.SellFees = agg.SellFees.Add(d.TransactionFee)
			agg.SoldQty += d.Quantity
		}
	}
	return agg
}

// InsertTrade creates a new trade row and returns its ID.
func (r *LedgerRepository) InsertTrade(q database.Queryer, t *model.Trade) (int64, error) {
	query := `
		INSERT INTO trades (
			strategy_id, symbol_code, symbol_name, open_date, status,
			total_buy_amount, total_buy_quantity, remaining_quantity, total_fees, trade_log
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := q.Exec(query,
		t.StrategyID,
		strings.ToUpper(t.SymbolCode),
		t.SymbolName,
		t.OpenDate,
		model.StatusOpen,
		t.TotalBuyAmount,
		t.TotalBuyQuantity,
		t.RemainingQuantity,
		t.TotalFees,
		t.TradeLog,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert trade: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted trade id: %w", err)
	}
	return id, nil
}

// UpdateTradeAggregates rewrites a trade's derived columns from the values on
// t: aggregates, profit figures, status, close date and holding days.
func (r *LedgerRepository) UpdateTradeAggregates(q database.Queryer, t *model.Trade) error {
	query := `
		UPDATE trades
		SET total_buy_amount = ?, total_buy_quantity = ?,
			total_sell_amount = ?, total_sell_quantity = ?,
			remaining_quantity = ?,
			total_profit_loss = ?, total_profit_loss_pct = ?,
			total_net_profit = ?, total_net_profit_pct = ?,
			total_fees = ?,
			status = ?, close_date = ?, holding_days = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`

	_, err := q.Exec(query,
		t.TotalBuyAmount, t.TotalBuyQuantity,
		t.TotalSellAmount, t.TotalSellQuantity,
		t.RemainingQuantity,
		t.TotalProfitLoss, t.TotalProfitLossPct,
		t.TotalNetProfit, t.TotalNetProfitPct,
		t.TotalFees,
		t.Status, nullify(t.CloseDate), t.HoldingDays,
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update trade aggregates: %w", err)
	}
	return nil
}

// SetTradeLog replaces the trade's free-form log.
func (r *LedgerRepository) SetTradeLog(q database.Queryer, tradeID int64, tradeLog string) error {
	_, err := q.Exec("UPDATE trades SET trade_log = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", tradeLog, tradeID)
	if err != nil {
		return fmt.Errorf("failed to update trade log: %w", err)
	}
	return nil
}

// InsertDetail creates a new execution detail row and returns its ID.
func (r *LedgerRepository) InsertDetail(q database.Queryer, d *model.TradeDetail) (int64, error) {
	query := `
		INSERT INTO trade_details (
			trade_id, transaction_type, price, quantity, amount,
			transaction_date, transaction_fee, buy_reason, sell_reason
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := q.Exec(query,
		d.TradeID,
		d.TransactionType,
		d.Price,
		d.Quantity,
		d.Amount,
		d.TransactionDate,
		d.TransactionFee,
		nullify(d.BuyReason),
		nullify(d.SellReason),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert trade detail: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted detail id: %w", err)
	}
	return id, nil
}

// UpdateDetailRow rewrites the editable business fields of a detail.
func (r *LedgerRepository) UpdateDetailRow(q database.Queryer, d *model.TradeDetail) error {
	query := `
		UPDATE trade_details
		SET price = ?, quantity = ?, amount = ?, transaction_fee = ?,
			buy_reason = ?, sell_reason = ?
		WHERE id = ?`

	_, err := q.Exec(query,
		d.Price, d.Quantity, d.Amount, d.TransactionFee,
		nullify(d.BuyReason), nullify(d.SellReason),
		d.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update trade detail: %w", err)
	}
	return nil
}

// UpdateDetailProfits rewrites the recomputed profit columns of a sell detail.
// Invalid (null) values clear the columns, which is how buy rows are kept
// profit-free.
func (r *LedgerRepository) UpdateDetailProfits(q database.Queryer, detailID int64, gross, grossPct, net, netPct decimal.NullDecimal) error {
	query := `
		UPDATE trade_details
		SET gross_profit = ?, gross_profit_pct = ?, net_profit = ?, net_profit_pct = ?
		WHERE id = ?`

	_, err := q.Exec(query, gross, grossPct, net, netPct, detailID)
	if err != nil {
		return fmt.Errorf("failed to update detail profits: %w", err)
	}
	return nil
}

// SetTradeDeleted flips the soft-delete flag on a trade row.
func (r *LedgerRepository) SetTradeDeleted(q database.Queryer, tradeID int64, deleted bool, deleteDate, reason, note string) error {
	query := `
		UPDATE trades
		SET is_deleted = ?, delete_date = ?, delete_reason = ?, operator_note = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`

	_, err := q.Exec(query, deleted, nullify(deleteDate), nullify(reason), nullify(note), tradeID)
	if err != nil {
		return fmt.Errorf("failed to update trade delete flag: %w", err)
	}
	return nil
}

// SetDetailsDeleted flips the soft-delete flag on all of a trade's details.
func (r *LedgerRepository) SetDetailsDeleted(q database.Queryer, tradeID int64, deleted bool, deleteDate, reason string) error {
	query := `
		UPDATE trade_details
		SET is_deleted = ?, delete_date = ?, delete_reason = ?
		WHERE trade_id = ?`

	_, err := q.Exec(query, deleted, nullify(deleteDate), nullify(reason), tradeID)
	if err != nil {
		return fmt.Errorf("failed to update detail delete flags: %w", err)
	}
	return nil
}

// DeleteModifications hard-deletes a trade's audit rows.
func (r *LedgerRepository) DeleteModifications(q database.Queryer, tradeID int64) error {
	if _, err := q.Exec("DELETE FROM trade_modifications WHERE trade_id = ?", tradeID); err != nil {
		return fmt.Errorf("failed to delete modifications: %w", err)
	}
	return nil
}

// DeleteDetails hard-deletes a trade's detail rows.
func (r *LedgerRepository) DeleteDetails(q database.Queryer, tradeID int64) error {
	if _, err := q.Exec("DELETE FROM trade_details WHERE trade_id = ?", tradeID); err != nil {
		return fmt.Errorf("failed to delete details: %w", err)
	}
	return nil
}

// DeleteTrade hard-deletes the trade row itself.
func (r *LedgerRepository) DeleteTrade(q database.Queryer, tradeID int64) error {
	if _, err := q.Exec("DELETE FROM trades WHERE id = ?", tradeID); err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}
	return nil
}

// FieldUpdate is a single column assignment for a controlled raw-row edit.
// Column names are checked against a conservative identifier pattern here in
// addition to the service-level allow-list.
type FieldUpdate struct {
	Column string
	Value  any
}

var columnNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// UpdateTradeFields applies raw column assignments to a trade row.
func (r *LedgerRepository) UpdateTradeFields(q database.Queryer, tradeID int64, updates []FieldUpdate) error {
	return applyFieldUpdates(q, "trades", tradeID, updates)
}

// UpdateDetailFields applies raw column assignments to a detail row.
func (r *LedgerRepository) UpdateDetailFields(q database.Queryer, detailID int64, updates []FieldUpdate) error {
	return applyFieldUpdates(q, "trade_details", detailID, updates)
}

func applyFieldUpdates(q database.Queryer, table string, id int64, updates []FieldUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	assignments := make([]string, 0, len(updates))
	args := make([]any, 0, len(updates)+1)
	for _, u := range updates {
		if !columnNameRe.MatchString(u.Column) {
			return fmt.Errorf("invalid column name %q", u.Column)
		}
		assignments = append(assignments, u.Column+" = ?")
		args = append(args, u.Value)
	}
	args = append(args, id)

	//nolint:gosec // G202: table is a hardcoded constant and columns match a strict identifier pattern.
	query := "UPDATE " + table + " SET " + strings.Join(assignments, ", ") + " WHERE id = ?"
	if _, err := q.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to apply raw field updates: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (model.Trade, error) {
	var t model.Trade
	var closeDate, tradeLog, deleteDate, deleteReason, operatorNote, createdAt, updatedAt sql.NullString

	err := s.Scan(
		&t.ID, &t.StrategyID, &t.StrategyName, &t.SymbolCode, &t.SymbolName,
		&t.OpenDate, &closeDate, &t.Status, &t.HoldingDays,
		&t.TotalBuyAmount, &t.TotalBuyQuantity, &t.TotalSellAmount, &t.TotalSellQuantity,
		&t.RemainingQuantity, &t.TotalProfitLoss, &t.TotalProfitLossPct,
		&t.TotalNetProfit, &t.TotalNetProfitPct, &t.TotalFees,
		&tradeLog, &t.IsDeleted, &deleteDate, &deleteReason, &operatorNote,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return model.Trade{}, err
	}

	t.CloseDate = closeDate.String
	t.TradeLog = tradeLog.String
	t.DeleteDate = deleteDate.String
	t.DeleteReason = deleteReason.String
	t.OperatorNote = operatorNote.String
	t.CreatedAt = createdAt.String
	t.UpdatedAt = updatedAt.String
	return t, nil
}

func scanDetail(s scanner) (model.TradeDetail, error) {
	var d model.TradeDetail
	var buyReason, sellReason, deleteDate, deleteReason, operatorNote, createdAt sql.NullString

	err := s.Scan(
		&d.ID, &d.TradeID, &d.TransactionType, &d.Price, &d.Quantity, &d.Amount,
		&d.TransactionDate, &d.TransactionFee, &buyReason, &sellReason,
		&d.GrossProfit, &d.GrossProfitPct, &d.NetProfit, &d.NetProfitPct,
		&d.IsDeleted, &deleteDate, &deleteReason, &operatorNote, &createdAt,
	)
	if err != nil {
		return model.TradeDetail{}, err
	}

	d.BuyReason = buyReason.String
	d.SellReason = sellReason.String
	d.DeleteDate = deleteDate.String
	d.DeleteReason = deleteReason.String
	d.OperatorNote = operatorNote.String
	d.CreatedAt = createdAt.String
	return d, nil
}

// nullify maps an empty string to NULL so optional text columns stay NULL
// instead of collecting empty strings.
func nullify(s string) any {
	if s == "" {
		return nil
	}
	return s
}
