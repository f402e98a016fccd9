package apperrors

import "errors"

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrTradeNotFound indicates that a trade with the given ID does not exist.
	ErrTradeNotFound = errors.New("trade not found")

	// ErrTradeDeleted indicates that the trade exists but has been soft-deleted.
	ErrTradeDeleted = errors.New("trade has been deleted")

	// ErrTradeClosed indicates that the trade is already fully closed.
	ErrTradeClosed = errors.New("trade is already closed")

	// ErrDetailNotFound indicates that a trade detail with the given ID does not exist.
	ErrDetailNotFound = errors.New("trade detail not found")

	// ErrDetailIDMissing indicates that a detail update was submitted without a detail ID.
	ErrDetailIDMissing = errors.New("detail ID is missing")

	// ErrStrategyNotFound indicates that a strategy lookup by ID or name returned nothing.
	ErrStrategyNotFound = errors.New("strategy not found")

	// ErrTagNotFound indicates that a tag with the given ID does not exist.
	ErrTagNotFound = errors.New("tag not found")
)

// Business logic errors represent validation failures or constraint violations.
// These errors indicate that an operation cannot be completed due to business rules.
var (
	// ErrStrategyInactive indicates that the referenced strategy has been disabled.
	ErrStrategyInactive = errors.New("strategy is inactive")

	// ErrStrategyHasTrades indicates that a strategy cannot be disabled because
	// non-deleted trades still reference it.
	ErrStrategyHasTrades = errors.New("strategy still has trades")

	// ErrStrategyDuplicate indicates that a strategy with the same name already exists.
	ErrStrategyDuplicate = errors.New("strategy name already exists")

	// ErrTagPredefined indicates an attempt to rename or delete a predefined tag.
	ErrTagPredefined = errors.New("predefined tags cannot be modified")

	// ErrTagInUse indicates that a tag cannot be deleted while strategies reference it.
	ErrTagInUse = errors.New("tag is in use")

	// ErrTagDuplicate indicates that a tag with the same name already exists.
	ErrTagDuplicate = errors.New("tag name already exists")

	// ErrQuantityExceedsRemaining indicates that a sell quantity is larger than
	// the open position's remaining quantity.
	ErrQuantityExceedsRemaining = errors.New("quantity exceeds remaining position")

	// ErrInvalidDate indicates that a date is not in YYYY-MM-DD format.
	ErrInvalidDate = errors.New("invalid date format")

	// ErrInvalidConfirmation indicates that a destructive operation carried a
	// missing, expired, or mismatched confirmation code.
	ErrInvalidConfirmation = errors.New("invalid confirmation code")

	// ErrMissingRequiredField indicates that a required field is missing or empty.
	ErrMissingRequiredField = errors.New("missing required field")
)

// Data integrity errors represent inconsistencies or unsafe operations detected
// below the service layer.
var (
	// ErrInvalidStatement indicates that the SQL safety guard rejected a statement.
	// This is a programmer error: statements are authored in-repo and must always
	// pass the guard.
	ErrInvalidStatement = errors.New("invalid SQL statement")

	// ErrFieldNotAllowed indicates a raw-row edit targeting a field outside the
	// reconciliation allow-list.
	ErrFieldNotAllowed = errors.New("field is not editable")

	// ErrUnknownTable indicates a raw-row edit targeting an unknown table.
	ErrUnknownTable = errors.New("unknown table")

	// ErrDataInconsistency indicates that stored aggregates diverge from the
	// trade's execution details.
	ErrDataInconsistency = errors.New("data inconsistency detected")
)
