package repository

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ParseTime parses a date string in "2006-01-02" or RFC3339 format.
func ParseTime(str string) (time.Time, error) {
	returnTime, err := time.Parse("2006-01-02", str)
	if err != nil {
		returnTime, err = time.Parse(time.RFC3339, str)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse date: %w", err)
		}
	}
	return returnTime.UTC(), nil
}

// DefaultTradeOrder is the ordering applied when a caller-supplied ORDER BY
// clause fails the whitelist.
const DefaultTradeOrder = "t.created_at DESC"

var orderTermRe = regexp.MustCompile(`^[ts]\.[A-Za-z0-9_]+(\s+(?i:ASC|DESC))?$`)

// SanitizeOrderBy whitelists a caller-supplied ORDER BY clause. Each
// comma-separated term must reference the trade (t.) or strategy (s.) alias
// with an optional direction; anything else falls back to DefaultTradeOrder.
func SanitizeOrderBy(orderBy string) string {
	orderBy = strings.TrimSpace(orderBy)
	if orderBy == "" || strings.Contains(orderBy, ";") {
		return DefaultTradeOrder
	}

	terms := strings.Split(orderBy, ",")
	for _, term := range terms {
		if !orderTermRe.MatchString(strings.TrimSpace(term)) {
			return DefaultTradeOrder
		}
	}
	return orderBy
}

// placeholders returns n comma-joined "?" markers for an IN clause.
func placeholders(n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = "?"
	}
	return strings.Join(marks, ",")
}
