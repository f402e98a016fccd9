package repository

import "fmt"

// SymbolRef identifies a traded instrument as stored on trade rows.
type SymbolRef struct {
	Code string `json:"symbolCode"`
	Name string `json:"symbolName"`
}

// StrategyRef is the (id, name) pair of a strategy that owns trades.
type StrategyRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ListTradedSymbols retrieves the distinct symbols of non-deleted trades,
// optionally restricted to one strategy.
func (r *LedgerRepository) ListTradedSymbols(strategyID int64) ([]SymbolRef, error) {
	query := `
		SELECT DISTINCT symbol_code, symbol_name
		FROM trades
		WHERE is_deleted = 0`
	args := []any{}
	if strategyID > 0 {
		query += " AND strategy_id = ?"
		args = append(args, strategyID)
	}
	query += " ORDER BY symbol_code"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query traded symbols: %w", err)
	}
	defer rows.Close()

	symbols := []SymbolRef{}
	for rows.Next() {
		var s SymbolRef
		if err := rows.Scan(&s.Code, &s.Name); err != nil {
			return nil, fmt.Errorf("failed to scan symbol row: %w", err)
		}
		symbols = append(symbols, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbols: %w", err)
	}

	return symbols, nil
}

// ListTradingStrategies retrieves the distinct strategies owning non-deleted
// trades, optionally restricted to one symbol code.
func (r *LedgerRepository) ListTradingStrategies(symbolCode string) ([]StrategyRef, error) {
	query := `
		SELECT DISTINCT t.strategy_id, s.name
		FROM trades t
		JOIN strategies s ON t.strategy_id = s.id
		WHERE t.is_deleted = 0`
	args := []any{}
	if symbolCode != "" {
		query += " AND UPPER(t.symbol_code) = UPPER(?)"
		args = append(args, symbolCode)
	}
	query += " ORDER BY s.name"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trading strategies: %w", err)
	}
	defer rows.Close()

	strategies := []StrategyRef{}
	for rows.Next() {
		var s StrategyRef
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("failed to scan strategy ref row: %w", err)
		}
		strategies = append(strategies, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating strategy refs: %w", err)
	}

	return strategies, nil
}

// ListOpenMonths retrieves the distinct YYYY-MM prefixes of open dates over
// non-deleted trades, newest first. Years and quarters are derived from these
// by the analysis service.
func (r *LedgerRepository) ListOpenMonths() ([]string, error) {
	query := `
		SELECT DISTINCT substr(open_date, 1, 7)
		FROM trades
		WHERE is_deleted = 0 AND open_date IS NOT NULL
		ORDER BY 1 DESC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query open months: %w", err)
	}
	defer rows.Close()

	months := []string{}
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("failed to scan month row: %w", err)
		}
		months = append(months, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating open months: %w", err)
	}

	return months, nil
}
