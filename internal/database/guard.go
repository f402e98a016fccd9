package database

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/quantlog/trade-ledger-backend/internal/apperrors"
)

// Statement patterns that are never legitimate in this codebase. Checked
// case-insensitively against the comment- and literal-stripped statement.
var suspiciousPatterns = []string{
	"union select",
	"or 1=1",
	"attach database",
}

var namedPlaceholderRe = regexp.MustCompile(`:[a-zA-Z_][a-zA-Z0-9_]*`)

// CheckStatement enforces the SQL safety policy on a single statement:
//
//   - no semicolons outside comments and string literals (multi-statement
//     scripts are disabled entirely)
//   - placeholders (? or :name) are required whenever parameters are supplied
//   - known injection patterns are rejected
//
// Comments are stripped before analysis so that commented DDL remains legal.
// A guard trip is a programmer error, not user input gone wrong: every
// statement in this repository is authored here and must pass.
func CheckStatement(query string, args []any) error {
	stripped := stripCommentsAndLiterals(query)

	if strings.Contains(stripped, ";") {
		return fmt.Errorf("%w: statement contains a semicolon", apperrors.ErrInvalidStatement)
	}

	lower := strings.ToLower(stripped)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("%w: suspicious pattern %q", apperrors.ErrInvalidStatement, pattern)
		}
	}

	if len(args) > 0 && !strings.Contains(stripped, "?") && !namedPlaceholderRe.MatchString(stripped) {
		return fmt.Errorf("%w: parameters supplied but no placeholders found", apperrors.ErrInvalidStatement)
	}

	return nil
}

// stripCommentsAndLiterals removes -- line comments, /* */ block comments and
// single-quoted string literals so the guard analyses structure only.
func stripCommentsAndLiterals(query string) string {
	var b strings.Builder
	b.Grow(len(query))

	for i := 0; i < len(query); {
		switch {
		case query[i] == '-' && i+1 < len(query) && query[i+1] == '-':
			for i < len(query) && query[i] != '\n' {
				i++
			}
		case query[i] == '/' && i+1 < len(query) && query[i+1] == '*':
			i += 2
			for i+1 < len(query) && !(query[i] == '*' && query[i+1] == '/') {
				i++
			}
			i += 2
		case query[i] == '\'':
			i++
			for i < len(query) {
				if query[i] == '\'' {
					// Escaped quote inside a literal.
					if i+1 < len(query) && query[i+1] == '\'' {
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}
		default:
			b.WriteByte(query[i])
			i++
		}
	}

	return b.String()
}
