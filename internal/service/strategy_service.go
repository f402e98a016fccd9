package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/quantlog/trade-ledger-backend/internal/apperrors"
	"github.com/quantlog/trade-ledger-backend/internal/database"
	"github.com/quantlog/trade-ledger-backend/internal/model"
	"github.com/quantlog/trade-ledger-backend/internal/repository"
	"github.com/quantlog/trade-ledger-backend/internal/validation"
)

// StrategyService handles strategy and tag management. Strategy deletion is
// soft (is_active = 0) and guarded: a strategy with non-deleted trades cannot
// be disabled. The predefined tags seeded by migration are immutable.
type StrategyService struct {
	db           *database.SafeDB
	strategyRepo *repository.StrategyRepository
	tagRepo      *repository.TagRepository
}

// NewStrategyService creates a new StrategyService with the provided
// dependencies.
func NewStrategyService(
	db *database.SafeDB,
	strategyRepo *repository.StrategyRepository,
	tagRepo *repository.TagRepository,
) *StrategyService {
	return &StrategyService{
		db:           db,
		strategyRepo: strategyRepo,
		tagRepo:      tagRepo,
	}
}

// ListStrategies retrieves strategies with their tags, active only by
// default.
func (s *StrategyService) ListStrategies(includeInactive bool) ([]model.Strategy, error) {
	strategies, err := s.strategyRepo.GetAll(includeInactive)
	if err != nil {
		return nil, err
	}

	for i := range strategies {
		tags, err := s.strategyRepo.GetTags(strategies[i].ID)
		if err != nil {
			return nil, err
		}
		strategies[i].Tags = tags
	}
	return strategies, nil
}

// GetStrategy retrieves one strategy with its tags.
func (s *StrategyService) GetStrategy(id int64) (model.Strategy, error) {
	strategy, err := s.strategyRepo.GetByID(id)
	if err == sql.ErrNoRows {
		return model.Strategy{}, fmt.Errorf("%w: strategy %d", apperrors.ErrStrategyNotFound, id)
	}
	if err != nil {
		return model.Strategy{}, err
	}

	tags, err := s.strategyRepo.GetTags(id)
	if err != nil {
		return model.Strategy{}, err
	}
	strategy.Tags = tags
	return strategy, nil
}

// CreateStrategy creates a strategy with a unique name and associates the
// named tags. Unknown tag names are created as user-defined tags.
func (s *StrategyService) CreateStrategy(ctx context.Context, name, description string, tagNames []string) (int64, error) {
	name = strings.TrimSpace(name)
	if err := validation.ValidateStrategyName(name); err != nil {
		return 0, err
	}

	if _, err := s.strategyRepo.GetByName(name); err == nil {
		return 0, fmt.Errorf("%w: %s", apperrors.ErrStrategyDuplicate, name)
	} else if err != sql.ErrNoRows {
		return 0, err
	}

	tagIDs, err := s.resolveTagNames(ctx, tagNames)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.db.ExecTx(ctx, func(tx *database.Tx) error {
		id, err = s.strategyRepo.Insert(tx, name, description)
		if err != nil {
			return err
		}
		return s.strategyRepo.ReplaceTags(tx, id, tagIDs)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateStrategy rewrites a strategy's name, description and tag set.
func (s *StrategyService) UpdateStrategy(ctx context.Context, id int64, name, description string, tagNames []string) error {
	name = strings.TrimSpace(name)
	if err := validation.ValidateStrategyName(name); err != nil {
		return err
	}

	if _, err := s.GetStrategy(id); err != nil {
		return err
	}

	if existing, err := s.strategyRepo.GetByName(name); err == nil && existing.ID != id {
		return fmt.Errorf("%w: %s", apperrors.ErrStrategyDuplicate, name)
	} else if err != nil && err != sql.ErrNoRows {
		return err
	}

	tagIDs, err := s.resolveTagNames(ctx, tagNames)
	if err != nil {
		return err
	}

	return s.db.ExecTx(ctx, func(tx *database.Tx) error {
		if err := s.strategyRepo.Update(tx, id, name, description); err != nil {
			return err
		}
		return s.strategyRepo.ReplaceTags(tx, id, tagIDs)
	})
}

// DisableStrategy soft-disables a strategy by ID or exact name. Refuses when
// non-deleted trades still reference it.
func (s *StrategyService) DisableStrategy(ctx context.Context, id int64, name string) error {
	var strategy model.Strategy
	var err error

	switch {
	case id > 0:
		strategy, err = s.strategyRepo.GetByID(id)
	case strings.TrimSpace(name) != "":
		strategy, err = s.strategyRepo.GetByName(strings.TrimSpace(name))
	default:
		return fmt.Errorf("%w: strategy reference is required", apperrors.ErrStrategyNotFound)
	}
	if err == sql.ErrNoRows {
		return apperrors.ErrStrategyNotFound
	}
	if err != nil {
		return err
	}

	count, err := s.strategyRepo.CountTrades(strategy.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %d trades", apperrors.ErrStrategyHasTrades, count)
	}

	return s.db.ExecTx(ctx, func(tx *database.Tx) error {
		return s.strategyRepo.SetActive(tx, strategy.ID, false)
	})
}

// ListTagsWithUsage retrieves all tags with usage counts, predefined first
// then alphabetical.
func (s *StrategyService) ListTagsWithUsage() ([]model.TagUsage, error) {
	return s.tagRepo.ListWithUsage()
}

// CreateTag creates a user-defined tag with a unique name.
func (s *StrategyService) CreateTag(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if err := validation.ValidateTagName(name); err != nil {
		return 0, err
	}

	if _, err := s.tagRepo.GetByName(name); err == nil {
		return 0, fmt.Errorf("%w: %s", apperrors.ErrTagDuplicate, name)
	} else if err != sql.ErrNoRows {
		return 0, err
	}

	var id int64
	err := s.db.ExecTx(ctx, func(tx *database.Tx) error {
		var err error
		id, err = s.tagRepo.Insert(tx, name)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// RenameTag renames a user-defined tag. Predefined tags are immutable.
func (s *StrategyService) RenameTag(ctx context.Context, id int64, newName string) error {
	newName = strings.TrimSpace(newName)
	if err := validation.ValidateTagName(newName); err != nil {
		return err
	}

	tag, err := s.tagRepo.GetByID(id)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: tag %d", apperrors.ErrTagNotFound, id)
	}
	if err != nil {
		return err
	}
	if tag.IsPredefined {
		return fmt.Errorf("%w: %s", apperrors.ErrTagPredefined, tag.Name)
	}

	if existing, err := s.tagRepo.GetByName(newName); err == nil && existing.ID != id {
		return fmt.Errorf("%w: %s", apperrors.ErrTagDuplicate, newName)
	} else if err != nil && err != sql.ErrNoRows {
		return err
	}

	return s.db.ExecTx(ctx, func(tx *database.Tx) error {
		return s.tagRepo.Rename(tx, id, newName)
	})
}

// DeleteTag removes a user-defined tag that no strategy references.
func (s *StrategyService) DeleteTag(ctx context.Context, id int64) error {
	tag, err := s.tagRepo.GetByID(id)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: tag %d", apperrors.ErrTagNotFound, id)
	}
	if err != nil {
		return err
	}
	if tag.IsPredefined {
		return fmt.Errorf("%w: %s", apperrors.ErrTagPredefined, tag.Name)
	}

	usage, err := s.tagRepo.UsageCount(id)
	if err != nil {
		return err
	}
	if usage > 0 {
		return fmt.Errorf("%w: %d strategies", apperrors.ErrTagInUse, usage)
	}

	return s.db.ExecTx(ctx, func(tx *database.Tx) error {
		return s.tagRepo.Delete(tx, id)
	})
}

// resolveTagNames maps tag names to IDs, creating user-defined tags for
// unknown names.
func (s *StrategyService) resolveTagNames(ctx context.Context, tagNames []string) ([]int64, error) {
	ids := make([]int64, 0, len(tagNames))
	seen := make(map[string]bool)

	for _, raw := range tagNames {
		name := strings.TrimSpace(raw)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		tag, err := s.tagRepo.GetByName(name)
		if err == sql.ErrNoRows {
			if err := validation.ValidateTagName(name); err != nil {
				return nil, err
			}
			var id int64
			err = s.db.ExecTx(ctx, func(tx *database.Tx) error {
				var err error
				id, err = s.tagRepo.Insert(tx, name)
				return err
			})
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, tag.ID)
	}

	return ids, nil
}
