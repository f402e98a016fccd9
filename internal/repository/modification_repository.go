package repository

import (
	"database/sql"
	"fmt"

	"github.com/quantlog/trade-ledger-backend/internal/database"
	"github.com/quantlog/trade-ledger-backend/internal/model"
)

// ModificationRepository provides access to the append-only audit trail.
type ModificationRepository struct {
	db *database.SafeDB
}

// NewModificationRepository creates a new ModificationRepository with the
// provided database handle.
func NewModificationRepository(db *database.SafeDB) *ModificationRepository {
	return &ModificationRepository{db: db}
}

// Insert appends one audit row. Runs on the caller's Queryer so audit rows
// commit atomically with the mutation they describe.
func (r *ModificationRepository) Insert(q database.Queryer, m *model.Modification) error {
	query := `
		INSERT INTO trade_modifications (
			batch_id, trade_id, detail_id, modification_type,
			field_name, old_value, new_value, reason
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	var detailID any
	if m.DetailID > 0 {
		detailID = m.DetailID
	}

	_, err := q.Exec(query,
		nullify(m.BatchID), m.TradeID, detailID, m.ModificationType,
		m.FieldName, m.OldValue, m.NewValue, nullify(m.Reason),
	)
	if err != nil {
		return fmt.Errorf("failed to insert modification record: %w", err)
	}
	return nil
}

// ListByTrade retrieves a trade's audit rows, newest first.
func (r *ModificationRepository) ListByTrade(tradeID int64) ([]model.Modification, error) {
	query := `
		SELECT id, batch_id, trade_id, detail_id, modification_type,
			field_name, old_value, new_value, reason, created_at
		FROM trade_modifications
		WHERE trade_id = ?
		ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(query, tradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query modifications: %w", err)
	}
	defer rows.Close()

	mods := []model.Modification{}
	for rows.Next() {
		var m model.Modification
		var batchID, oldValue, newValue, reason, createdAt sql.NullString
		var detailID sql.NullInt64

		err := rows.Scan(
			&m.ID, &batchID, &m.TradeID, &detailID, &m.ModificationType,
			&m.FieldName, &oldValue, &newValue, &reason, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan modification row: %w", err)
		}

		m.BatchID = batchID.String
		m.DetailID = detailID.Int64
		m.OldValue = oldValue.String
		m.NewValue = newValue.String
		m.Reason = reason.String
		m.CreatedAt = createdAt.String
		mods = append(mods, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating modifications: %w", err)
	}

	return mods, nil
}
