package repository

import (
	"database/sql"
	"fmt"

	"github.com/quantlog/trade-ledger-backend/internal/database"
	"github.com/quantlog/trade-ledger-backend/internal/model"
)

// TagRepository provides data access for tags and their usage by strategies.
type TagRepository struct {
	db *database.SafeDB
}

// NewTagRepository creates a new TagRepository with the provided database
// handle.
func NewTagRepository(db *database.SafeDB) *TagRepository {
	return &TagRepository{db: db}
}

const tagColumns = "id, name, is_predefined, created_at"

// GetByID retrieves a tag by ID.
func (r *TagRepository) GetByID(id int64) (model.Tag, error) {
	t, err := scanTag(r.db.QueryRow("SELECT "+tagColumns+" FROM tags WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return model.Tag{}, sql.ErrNoRows
	}
	if err != nil {
		return model.Tag{}, fmt.Errorf("failed to scan tag row: %w", err)
	}
	return t, nil
}

// GetByName retrieves a tag by exact name match.
func (r *TagRepository) GetByName(name string) (model.Tag, error) {
	t, err := scanTag(r.db.QueryRow("SELECT "+tagColumns+" FROM tags WHERE name = ?", name))
	if err == sql.ErrNoRows {
		return model.Tag{}, sql.ErrNoRows
	}
	if err != nil {
		return model.Tag{}, fmt.Errorf("failed to scan tag row: %w", err)
	}
	return t, nil
}

// ListWithUsage retrieves all tags with the number of strategies referencing
// each, predefined tags first and then alphabetical.
func (r *TagRepository) ListWithUsage() ([]model.TagUsage, error) {
	query := `
		SELECT g.id, g.name, g.is_predefined, g.created_at, COUNT(st.strategy_id)
		FROM tags g
		LEFT JOIN strategy_tags st ON st.tag_id = g.id
		GROUP BY g.id, g.name, g.is_predefined, g.created_at
		ORDER BY g.is_predefined DESC, g.name`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tag usage: %w", err)
	}
	defer rows.Close()

	usages := []model.TagUsage{}
	for rows.Next() {
		var u model.TagUsage
		var createdAt sql.NullString
		if err := rows.Scan(&u.ID, &u.Name, &u.IsPredefined, &createdAt, &u.UsageCount); err != nil {
			return nil, fmt.Errorf("failed to scan tag usage row: %w", err)
		}
		u.CreatedAt = createdAt.String
		usages = append(usages, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tag usage: %w", err)
	}

	return usages, nil
}

// Insert creates a new user-defined tag and returns its ID.
func (r *TagRepository) Insert(q database.Queryer, name string) (int64, error) {
	res, err := q.Exec("INSERT INTO tags (name, is_predefined) VALUES (?, 0)", name)
	if err != nil {
		return 0, fmt.Errorf("failed to insert tag: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted tag id: %w", err)
	}
	return id, nil
}

// Rename changes a tag's name.
func (r *TagRepository) Rename(q database.Queryer, id int64, name string) error {
	if _, err := q.Exec("UPDATE tags SET name = ? WHERE id = ?", name, id); err != nil {
		return fmt.Errorf("failed to rename tag: %w", err)
	}
	return nil
}

// Delete removes a tag row.
func (r *TagRepository) Delete(q database.Queryer, id int64) error {
	if _, err := q.Exec("DELETE FROM tags WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	return nil
}

// UsageCount returns the number of strategies referencing the tag.
func (r *TagRepository) UsageCount(tagID int64) (int, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM strategy_tags WHERE tag_id = ?", tagID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tag usage: %w", err)
	}
	return count, nil
}

func scanTag(s scanner) (model.Tag, error) {
	var t model.Tag
	var createdAt sql.NullString

	if err := s.Scan(&t.ID, &t.Name, &t.IsPredefined, &createdAt); err != nil {
		return model.Tag{}, err
	}

	t.CreatedAt = createdAt.String
	return t, nil
}
