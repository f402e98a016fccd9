package database_test

import (
	"errors"
	"testing"

	"github.com/quantlog/trade-ledger-backend/internal/apperrors"
	"github.com/quantlog/trade-ledger-backend/internal/database"
	"github.com/quantlog/trade-ledger-backend/internal/testutil"
)

// TestCheckStatement tests the statement safety policy.
//
// WHY: Every repository query passes this guard. A hole lets multi-statement
// scripts or unparameterized SQL through; a false positive breaks legitimate
// queries that carry semicolons inside comments or string literals.
func TestCheckStatement(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		args    []any
		wantErr bool
	}{
		{"plain select", "SELECT 1", nil, false},
		{"parameterized select", "SELECT * FROM trades WHERE id = ?", []any{1}, false},
		{"named placeholder", "SELECT * FROM trades WHERE id = :id", []any{1}, false},
		{"two statements", "SELECT 1; SELECT 2", nil, true},
		{"trailing semicolon", "SELECT 1;", nil, true},
		{"args without placeholders", "SELECT 1", []any{1}, true},
		{"union select", "SELECT id FROM trades UNION SELECT id FROM tags", nil, true},
		{"or 1=1", "SELECT * FROM trades WHERE id = 1 OR 1=1", nil, true},
		{"attach database", "ATTACH DATABASE 'other.db' AS other", nil, true},
		{"semicolon in line comment", "SELECT 1 -- one; two", nil, false},
		{"semicolon in block comment", "SELECT 1 /* one; two */", nil, false},
		{"semicolon in string literal", "SELECT * FROM tags WHERE name = 'a;b'", nil, false},
		{"escaped quote in literal", "SELECT * FROM tags WHERE name = 'it''s; fine'", nil, false},
		{"placeholder only inside literal", "SELECT * FROM tags WHERE name = '?'", []any{"x"}, true},
		{"injection pattern inside literal", "SELECT * FROM tags WHERE name = 'union select'", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := database.CheckStatement(tt.query, tt.args)

			if tt.wantErr {
				if !errors.Is(err, apperrors.ErrInvalidStatement) {
					t.Errorf("CheckStatement(%q) = %v, want ErrInvalidStatement", tt.query, err)
				}
				return
			}
			if err != nil {
				t.Errorf("CheckStatement(%q) returned unexpected error: %v", tt.query, err)
			}
		})
	}
}

// TestSafeDB_Guard tests that the guard applies on every access path.
//
// WHY: QueryRow has no error return, so a guard trip there must surface on
// Scan instead of being swallowed, and Exec/Query must refuse the statement
// before it reaches the driver.
func TestSafeDB_Guard(t *testing.T) {
	// Setup
	db := testutil.SetupTestDB(t)

	// Execute / Assert
	if _, err := db.Exec("DELETE FROM tags; DELETE FROM strategies"); !errors.Is(err, apperrors.ErrInvalidStatement) {
		t.Errorf("Exec() error = %v, want ErrInvalidStatement", err)
	}

	if _, err := db.Query("SELECT id FROM tags UNION SELECT id FROM strategies"); !errors.Is(err, apperrors.ErrInvalidStatement) {
		t.Errorf("Query() error = %v, want ErrInvalidStatement", err)
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM tags WHERE id = 1 OR 1=1").Scan(&n); !errors.Is(err, apperrors.ErrInvalidStatement) {
		t.Errorf("QueryRow().Scan() error = %v, want ErrInvalidStatement", err)
	}

	// A clean statement still flows through the same paths.
	if err := db.QueryRow("SELECT COUNT(*) FROM tags WHERE is_predefined = ?", true).Scan(&n); err != nil {
		t.Fatalf("Scan() returned unexpected error: %v", err)
	}
	if n != 4 {
		t.Errorf("Expected 4 predefined tags, got %d", n)
	}
}
