package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/quantlog/trade-ledger-backend/internal/apperrors"
	"github.com/quantlog/trade-ledger-backend/internal/testutil"
)

// TestStrategyService_CRUD tests strategy creation, update and listing.
//
// WHY: Strategies are the ledger's partitioning axis. Names must be unique,
// tag sets must follow the strategy, and unknown tag names must be created on
// the fly.
func TestStrategyService_CRUD(t *testing.T) {
	t.Run("creates a strategy with predefined and new tags", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestStrategyService(t, db)

		// Execute: 趋势 is predefined, 网格 is new
		id, err := svc.CreateStrategy(context.Background(), "Trend", "动量跟随", []string{"趋势", "网格"})

		// Assert
		if err != nil {
			t.Fatalf("CreateStrategy() returned unexpected error: %v", err)
		}

		strategy, err := svc.GetStrategy(id)
		if err != nil {
			t.Fatalf("GetStrategy() returned unexpected error: %v", err)
		}
		if strategy.Name != "Trend" || !strategy.IsActive {
			t.Errorf("Unexpected strategy: %+v", strategy)
		}
		if len(strategy.Tags) != 2 {
			t.Fatalf("Expected 2 tags, got %d", len(strategy.Tags))
		}
		// Predefined sorts first
		if strategy.Tags[0].Name != "趋势" || !strategy.Tags[0].IsPredefined {
			t.Errorf("Expected predefined 趋势 first, got %+v", strategy.Tags[0])
		}
		if strategy.Tags[1].Name != "网格" || strategy.Tags[1].IsPredefined {
			t.Errorf("Expected user-defined 网格 second, got %+v", strategy.Tags[1])
		}
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestStrategyService(t, db)
		testutil.CreateStrategy(t, db, "Trend")

		// Execute / Assert
		if _, err := svc.CreateStrategy(context.Background(), "Trend", "", nil); !errors.Is(err, apperrors.ErrStrategyDuplicate) {
			t.Errorf("Expected ErrStrategyDuplicate, got %v", err)
		}
	})

	t.Run("update rewrites name, description and tag set", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestStrategyService(t, db)

		id, err := svc.CreateStrategy(context.Background(), "Trend", "", []string{"趋势"})
		if err != nil {
			t.Fatalf("CreateStrategy() returned unexpected error: %v", err)
		}

		// Execute
		if err := svc.UpdateStrategy(context.Background(), id, "Trend v2", "改良版", []string{"短线"}); err != nil {
			t.Fatalf("UpdateStrategy() returned unexpected error: %v", err)
		}

		// Assert
		strategy, err := svc.GetStrategy(id)
		if err != nil {
			t.Fatalf("GetStrategy() returned unexpected error: %v", err)
		}
		if strategy.Name != "Trend v2" || strategy.Description != "改良版" {
			t.Errorf("Unexpected strategy after update: %+v", strategy)
		}
		if len(strategy.Tags) != 1 || strategy.Tags[0].Name != "短线" {
			t.Errorf("Expected tag set replaced with 短线, got %+v", strategy.Tags)
		}
	})

	t.Run("listing hides inactive strategies by default", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestStrategyService(t, db)
		testutil.CreateStrategy(t, db, "Active")
		testutil.NewStrategy().WithName("Paused").Inactive().Build(t, db)

		// Execute / Assert
		active, err := svc.ListStrategies(false)
		if err != nil {
			t.Fatalf("ListStrategies(false) returned unexpected error: %v", err)
		}
		if len(active) != 1 || active[0].Name != "Active" {
			t.Errorf("Expected only the active strategy, got %+v", active)
		}

		all, err := svc.ListStrategies(true)
		if err != nil {
			t.Fatalf("ListStrategies(true) returned unexpected error: %v", err)
		}
		if len(all) != 2 {
			t.Errorf("Expected 2 strategies with includeInactive, got %d", len(all))
		}
	})
}

// TestStrategyService_DisableStrategy tests the referential guard on disable.
//
// WHY: Disabling a strategy with live trades would orphan them from every
// listing joined on active strategies.
func TestStrategyService_DisableStrategy(t *testing.T) {
	t.Run("refuses while non-deleted trades reference it", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestStrategyService(t, db)
		strategy := testutil.CreateStrategy(t, db, "Trend")
		testutil.NewTrade(strategy.ID).Build(t, db)

		// Execute / Assert
		if err := svc.DisableStrategy(context.Background(), strategy.ID, ""); !errors.Is(err, apperrors.ErrStrategyHasTrades) {
			t.Errorf("Expected ErrStrategyHasTrades, got %v", err)
		}
	})

	t.Run("disables once its trades are soft-deleted", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestStrategyService(t, db)
		strategy := testutil.CreateStrategy(t, db, "Trend")
		testutil.NewTrade(strategy.ID).Deleted().Build(t, db)

		// Execute: by name this time
		if err := svc.DisableStrategy(context.Background(), 0, "Trend"); err != nil {
			t.Fatalf("DisableStrategy() returned unexpected error: %v", err)
		}

		// Assert
		got, err := svc.GetStrategy(strategy.ID)
		if err != nil {
			t.Fatalf("GetStrategy() returned unexpected error: %v", err)
		}
		if got.IsActive {
			t.Error("Expected strategy to be inactive after disable")
		}
	})
}

// TestStrategyService_Tags tests tag CRUD and its guards.
//
// WHY: The four predefined tags are immutable fixtures, and deleting a tag in
// use would silently detach it from strategies.
func TestStrategyService_Tags(t *testing.T) {
	t.Run("lists tags with usage counts, predefined first", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestStrategyService(t, db)
		if _, err := svc.CreateStrategy(context.Background(), "Trend", "", []string{"趋势"}); err != nil {
			t.Fatalf("CreateStrategy() returned unexpected error: %v", err)
		}

		// Execute
		tags, err := svc.ListTagsWithUsage()

		// Assert
		if err != nil {
			t.Fatalf("ListTagsWithUsage() returned unexpected error: %v", err)
		}
		if len(tags) != 4 {
			t.Fatalf("Expected the 4 predefined tags, got %d", len(tags))
		}
		used := 0
		for _, tag := range tags {
			if !tag.IsPredefined {
				t.Errorf("Expected only predefined tags, got %+v", tag)
			}
			if tag.Name == "趋势" && tag.UsageCount == 1 {
				used++
			}
		}
		if used != 1 {
			t.Error("Expected 趋势 to show usage count 1")
		}
	})

	t.Run("predefined tags cannot be renamed or deleted", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestStrategyService(t, db)

		tags, err := svc.ListTagsWithUsage()
		if err != nil {
			t.Fatalf("ListTagsWithUsage() returned unexpected error: %v", err)
		}
		predefined := tags[0].ID

		// Execute / Assert
		if err := svc.RenameTag(context.Background(), predefined, "新名字"); !errors.Is(err, apperrors.ErrTagPredefined) {
			t.Errorf("Expected ErrTagPredefined on rename, got %v", err)
		}
		if err := svc.DeleteTag(context.Background(), predefined); !errors.Is(err, apperrors.ErrTagPredefined) {
			t.Errorf("Expected ErrTagPredefined on delete, got %v", err)
		}
	})

	t.Run("user tags are guarded by usage", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestStrategyService(t, db)

		tagID, err := svc.CreateTag(context.Background(), "网格")
		if err != nil {
			t.Fatalf("CreateTag() returned unexpected error: %v", err)
		}
		if _, err := svc.CreateTag(context.Background(), "网格"); !errors.Is(err, apperrors.ErrTagDuplicate) {
			t.Errorf("Expected ErrTagDuplicate, got %v", err)
		}

		gridID, err := svc.CreateStrategy(context.Background(), "Grid", "", []string{"网格"})
		if err != nil {
			t.Fatalf("CreateStrategy() returned unexpected error: %v", err)
		}

		// Execute / Assert: in use, delete refused
		if err := svc.DeleteTag(context.Background(), tagID); !errors.Is(err, apperrors.ErrTagInUse) {
			t.Errorf("Expected ErrTagInUse, got %v", err)
		}

		// Rename works while in use
		if err := svc.RenameTag(context.Background(), tagID, "网格v2"); err != nil {
			t.Fatalf("RenameTag() returned unexpected error: %v", err)
		}

		// Detach then delete
		if err := svc.UpdateStrategy(context.Background(), gridID, "Grid", "", nil); err != nil {
			t.Fatalf("UpdateStrategy() returned unexpected error: %v", err)
		}
		if err := svc.DeleteTag(context.Background(), tagID); err != nil {
			t.Errorf("Expected delete to succeed after detach, got %v", err)
		}
	})
}
