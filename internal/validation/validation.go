package validation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/quantlog/trade-ledger-backend/internal/apperrors"
)

// Error aggregates field-specific validation messages for one request.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ValidateDate checks that a date string is in YYYY-MM-DD format.
func ValidateDate(date string) error {
	if strings.TrimSpace(date) == "" {
		return fmt.Errorf("%w: date is required", apperrors.ErrMissingRequiredField)
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidDate, date)
	}
	return nil
}

// ValidateDateRange checks optional range bounds: each must be a valid date
// when present, and from must not exceed to when both are set.
func ValidateDateRange(from, to string) error {
	if from != "" {
		if err := ValidateDate(from); err != nil {
			return err
		}
	}
	if to != "" {
		if err := ValidateDate(to); err != nil {
			return err
		}
	}
	if from != "" && to != "" && from > to {
		return fmt.Errorf("%w: %s > %s", apperrors.ErrInvalidDate, from, to)
	}
	return nil
}
