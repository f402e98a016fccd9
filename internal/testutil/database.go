package testutil

import (
	"database/sql"
	"testing"

	"github.com/quantlog/trade-ledger-backend/internal/database"
	_ "modernc.org/sqlite" // Test Package
)

// SetupTestDB creates an in-memory SQLite database for testing, wrapped in
// the statement guard. The database is automatically cleaned up when the test
// completes.
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    db := testutil.SetupTestDB(t)
//	    // db is ready to use with schema created
//	}
func SetupTestDB(t *testing.T) *database.SafeDB {
	t.Helper()

	// In-memory database (destroyed when connection closes)
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = MEMORY", // Faster for tests
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			t.Fatalf("Failed to set pragma: %v", err)
		}
	}

	// Schema DDL is multi-statement, so it runs on the raw handle before the
	// guard wraps it.
	if err := createTestSchema(db); err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return database.Wrap(db)
}

// createTestSchema creates all database tables for testing.
// Schema is synchronized with the goose migrations.
//
//nolint:funlen // Database schema DDL
func createTestSchema(db *sql.DB) error {
	schema := `
		-- Strategy table
		CREATE TABLE IF NOT EXISTS strategies (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name VARCHAR(100) NOT NULL UNIQUE,
			description TEXT,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		-- Tag table
		CREATE TABLE IF NOT EXISTS tags (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name VARCHAR(50) NOT NULL UNIQUE,
			is_predefined INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		-- Strategy-Tag junction table
		CREATE TABLE IF NOT EXISTS strategy_tags (
			strategy_id INTEGER NOT NULL,
			tag_id INTEGER NOT NULL,
			PRIMARY KEY (strategy_id, tag_id),
			FOREIGN KEY(strategy_id) REFERENCES strategies(id) ON DELETE CASCADE,
			FOREIGN KEY(tag_id) REFERENCES tags(id)
		);

		-- Trade (position) table
		CREATE TABLE IF NOT EXISTS trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			strategy_id INTEGER NOT NULL,
			symbol_code VARCHAR(20) NOT NULL,
			symbol_name VARCHAR(100) NOT NULL,
			open_date DATE NOT NULL,
			close_date DATE,
			status VARCHAR(10) NOT NULL DEFAULT 'open',
			holding_days INTEGER NOT NULL DEFAULT 0,
			total_buy_amount DECIMAL(15,3) NOT NULL DEFAULT 0,
			total_buy_quantity INTEGER NOT NULL DEFAULT 0,
			total_sell_amount DECIMAL(15,3) NOT NULL DEFAULT 0,
			total_sell_quantity INTEGER NOT NULL DEFAULT 0,
			remaining_quantity INTEGER NOT NULL DEFAULT 0,
			total_profit_loss DECIMAL(15,3) NOT NULL DEFAULT 0,
			total_profit_loss_pct DECIMAL(8,4) NOT NULL DEFAULT 0,
			total_net_profit DECIMAL(15,3) NOT NULL DEFAULT 0,
			total_net_profit_pct DECIMAL(8,4) NOT NULL DEFAULT 0,
			total_fees DECIMAL(15,3) NOT NULL DEFAULT 0,
			trade_log TEXT,
			is_deleted INTEGER NOT NULL DEFAULT 0,
			delete_date DATETIME,
			delete_reason TEXT,
			operator_note TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(strategy_id) REFERENCES strategies(id)
		);

		-- Trade detail table
		CREATE TABLE IF NOT EXISTS trade_details (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			trade_id INTEGER NOT NULL,
			transaction_type VARCHAR(4) NOT NULL,
			price DECIMAL(10,3) NOT NULL,
			quantity INTEGER NOT NULL,
			amount DECIMAL(15,3) NOT NULL,
			transaction_date DATE NOT NULL,
			transaction_fee DECIMAL(15,3) NOT NULL DEFAULT 0,
			buy_reason TEXT,
			sell_reason TEXT,
			gross_profit DECIMAL(15,3),
			gross_profit_pct DECIMAL(8,4),
			net_profit DECIMAL(15,3),
			net_profit_pct DECIMAL(8,4),
			is_deleted INTEGER NOT NULL DEFAULT 0,
			delete_date DATETIME,
			delete_reason TEXT,
			operator_note TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(trade_id) REFERENCES trades(id) ON DELETE CASCADE
		);

		-- Modification audit table
		CREATE TABLE IF NOT EXISTS trade_modifications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			batch_id VARCHAR(36),
			trade_id INTEGER NOT NULL,
			detail_id INTEGER,
			modification_type VARCHAR(20) NOT NULL,
			field_name VARCHAR(50) NOT NULL,
			old_value TEXT,
			new_value TEXT,
			reason TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(trade_id) REFERENCES trades(id) ON DELETE CASCADE
		);

		-- Predefined tags
		INSERT INTO tags (name, is_predefined) VALUES ('趋势', 1);
		INSERT INTO tags (name, is_predefined) VALUES ('震荡', 1);
		INSERT INTO tags (name, is_predefined) VALUES ('短线', 1);
		INSERT INTO tags (name, is_predefined) VALUES ('长线', 1);

		-- Indexes for performance
		CREATE INDEX IF NOT EXISTS ix_trades_strategy_id ON trades(strategy_id);
		CREATE INDEX IF NOT EXISTS ix_trades_symbol_code ON trades(symbol_code);
		CREATE INDEX IF NOT EXISTS ix_trades_status ON trades(status);
		CREATE INDEX IF NOT EXISTS ix_trades_is_deleted ON trades(is_deleted);
		CREATE INDEX IF NOT EXISTS ix_trade_details_trade_id ON trade_details(trade_id);
		CREATE INDEX IF NOT EXISTS ix_trade_details_type_deleted ON trade_details(transaction_type, is_deleted);
		CREATE INDEX IF NOT EXISTS ix_trade_modifications_trade_id ON trade_modifications(trade_id);
	`

	_, err := db.Exec(schema)
	return err
}

// CleanDatabase truncates all tables in dependency order.
// Useful for reusing the same database across multiple tests. Predefined tags
// are reseeded afterwards so the taxonomy invariant holds.
func CleanDatabase(t *testing.T, db *database.SafeDB) {
	t.Helper()

	// Order matters: delete children before parents due to foreign keys
	tables := []string{
		"trade_modifications",
		"trade_details",
		"trades",
		"strategy_tags",
		"tags",
		"strategies",
	}

	for _, table := range tables {
		//nolint:gosec // G202: Table names are from hardcoded slice, no SQL injection risk
		query := "DELETE FROM " + table
		if _, err := db.Exec(query); err != nil {
			t.Fatalf("Failed to clean table %s: %v", table, err)
		}
	}

	for _, name := range []string{"趋势", "震荡", "短线", "长线"} {
		if _, err := db.Exec("INSERT INTO tags (name, is_predefined) VALUES (?, 1)", name); err != nil {
			t.Fatalf("Failed to reseed predefined tag %s: %v", name, err)
		}
	}
}

// CountRows returns the number of rows in a table.
// Useful for assertions in tests.
//
// Example usage:
//
//	count := testutil.CountRows(t, db, "trades")
func CountRows(t *testing.T, db *database.SafeDB, table string) int {
	t.Helper()

	var count int
	query := "SELECT COUNT(*) FROM " + table
	if err := db.QueryRow(query).Scan(&count); err != nil {
		t.Fatalf("Failed to count rows in %s: %v", table, err)
	}

	return count
}

// AssertRowCount asserts that a table has the expected number of rows.
//
// Example usage:
//
//	testutil.AssertRowCount(t, db, "trades", 2)
func AssertRowCount(t *testing.T, db *database.SafeDB, table string, expected int) {
	t.Helper()

	actual := CountRows(t, db, table)
	if actual != expected {
		t.Errorf("Expected %d rows in %s, got %d", expected, table, actual)
	}
}
