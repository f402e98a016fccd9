package repository

import (
	"database/sql"
	"fmt"

	"github.com/quantlog/trade-ledger-backend/internal/database"
	"github.com/quantlog/trade-ledger-backend/internal/model"
)

// StrategyRepository provides data access for strategies and their tag
// associations.
type StrategyRepository struct {
	db *database.SafeDB
}

// NewStrategyRepository creates a new StrategyRepository with the provided
// database handle.
func NewStrategyRepository(db *database.SafeDB) *StrategyRepository {
	return &StrategyRepository{db: db}
}

const strategyColumns = "id, name, description, is_active, created_at, updated_at"

// GetAll retrieves strategies ordered by name. Inactive (soft-disabled)
// strategies are included only on request.
func (r *StrategyRepository) GetAll(includeInactive bool) ([]model.Strategy, error) {
	query := "SELECT " + strategyColumns + " FROM strategies"
	if !includeInactive {
		query += " WHERE is_active = 1"
	}
	query += " ORDER BY name"

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategies: %w", err)
	}
	defer rows.Close()

	strategies := []model.Strategy{}
	for rows.Next() {
		s, err := scanStrategy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan strategy row: %w", err)
		}
		strategies = append(strategies, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating strategies: %w", err)
	}

	return strategies, nil
}

// GetByID retrieves a strategy by ID, active or not.
func (r *StrategyRepository) GetByID(id int64) (model.Strategy, error) {
	s, err := scanStrategy(r.db.QueryRow(
		"SELECT "+strategyColumns+" FROM strategies WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return model.Strategy{}, sql.ErrNoRows
	}
	if err != nil {
		return model.Strategy{}, fmt.Errorf("failed to scan strategy row: %w", err)
	}
	return s, nil
}

// GetByName retrieves a strategy by exact name match.
func (r *StrategyRepository) GetByName(name string) (model.Strategy, error) {
	s, err := scanStrategy(r.db.QueryRow(
		"SELECT "+strategyColumns+" FROM strategies WHERE name = ?", name))
	if err == sql.ErrNoRows {
		return model.Strategy{}, sql.ErrNoRows
	}
	if err != nil {
		return model.Strategy{}, fmt.Errorf("failed to scan strategy row: %w", err)
	}
	return s, nil
}

// Insert creates a new strategy and returns its ID.
func (r *StrategyRepository) Insert(q database.Queryer, name, description string) (int64, error) {
	res, err := q.Exec(
		"INSERT INTO strategies (name, description) VALUES (?, ?)", name, description)
	if err != nil {
		return 0, fmt.Errorf("failed to insert strategy: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted strategy id: %w", err)
	}
	return id, nil
}

// Update rewrites a strategy's name and description.
func (r *StrategyRepository) Update(q database.Queryer, id int64, name, description string) error {
	_, err := q.Exec(
		"UPDATE strategies SET name = ?, description = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		name, description, id)
	if err != nil {
		return fmt.Errorf("failed to update strategy: %w", err)
	}
	return nil
}

// SetActive flips the soft-disable flag.
func (r *StrategyRepository) SetActive(q database.Queryer, id int64, active bool) error {
	_, err := q.Exec(
		"UPDATE strategies SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", active, id)
	if err != nil {
		return fmt.Errorf("failed to update strategy active flag: %w", err)
	}
	return nil
}

// CountTrades returns the number of non-deleted trades referencing the
// strategy. Used as the referential guard before disabling.
func (r *StrategyRepository) CountTrades(strategyID int64) (int, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM trades WHERE strategy_id = ? AND is_deleted = 0", strategyID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count strategy trades: %w", err)
	}
	return count, nil
}

// GetTags retrieves the tags associated with a strategy, predefined first
// then alphabetical.
func (r *StrategyRepository) GetTags(strategyID int64) ([]model.Tag, error) {
	query := `
		SELECT g.id, g.name, g.is_predefined, g.created_at
		FROM tags g
		JOIN strategy_tags st ON st.tag_id = g.id
		WHERE st.strategy_id = ?
		ORDER BY g.is_predefined DESC, g.name`

	rows, err := r.db.Query(query, strategyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategy tags: %w", err)
	}
	defer rows.Close()

	tags := []model.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag row: %w", err)
		}
		tags = append(tags, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating strategy tags: %w", err)
	}

	return tags, nil
}

// ReplaceTags rewrites a strategy's tag association set.
func (r *StrategyRepository) ReplaceTags(q database.Queryer, strategyID int64, tagIDs []int64) error {
	if _, err := q.Exec("DELETE FROM strategy_tags WHERE strategy_id = ?", strategyID); err != nil {
		return fmt.Errorf("failed to clear strategy tags: %w", err)
	}

	for _, tagID := range tagIDs {
		_, err := q.Exec(
			"INSERT INTO strategy_tags (strategy_id, tag_id) VALUES (?, ?)", strategyID, tagID)
		if err != nil {
			return fmt.Errorf("failed to insert strategy tag: %w", err)
		}
	}
	return nil
}

func scanStrategy(s scanner) (model.Strategy, error) {
	var st model.Strategy
	var description, createdAt, updatedAt sql.NullString

	if err := s.Scan(&st.ID, &st.Name, &description, &st.IsActive, &createdAt, &updatedAt); err != nil {
		return model.Strategy{}, err
	}

	st.Description = description.String
	st.CreatedAt = createdAt.String
	st.UpdatedAt = updatedAt.String
	return st, nil
}
