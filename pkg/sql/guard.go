// Package sql provides the safety guard and cleanup passes every candidate
// query must clear before it may execute.
package sql

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DefaultRowLimit is appended to accepted queries that carry no LIMIT.
const DefaultRowLimit = 1000

var (
	// ErrEmptyQuery indicates the candidate contained no SQL after cleanup.
	ErrEmptyQuery = errors.New("empty query")

	// ErrMultipleStatements indicates the candidate contains more than one
	// SQL statement.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")

	// ErrNotReadOnly indicates the candidate is not a SELECT or WITH statement.
	ErrNotReadOnly = errors.New("only SELECT statements are permitted")

	// ErrDangerousKeyword indicates the candidate contains a denylisted keyword.
	ErrDangerousKeyword = errors.New("dangerous SQL keyword")

	// ErrInjectionDetected indicates a quoted literal inside the candidate
	// matched a SQL injection fingerprint.
	ErrInjectionDetected = errors.New("injection pattern in quoted literal")
)

// dangerousKeywords is the fixed denylist. Matching is plain substring on
// the upper-cased text, so identifiers that merely contain a keyword
// (updates_count, created_at) are rejected too; callers recover through the
// template fallback rather than executing a doubtful statement.
var dangerousKeywords = []string{
	"DROP",
	"DELETE",
	"INSERT",
	"UPDATE",
	"CREATE",
	"ALTER",
	"EXEC",
	"EXECUTE",
	"TRUNCATE",
	"MERGE",
	"CALL",
}

var limitToken = regexp.MustCompile(`\bLIMIT\b`)

// Guard validates candidate SQL before execution. It fails closed: anything
// it cannot positively accept is rejected.
type Guard struct {
	maxRows int
}

// NewGuard creates a guard that enforces the given row limit on accepted
// queries. Non-positive limits fall back to DefaultRowLimit.
func NewGuard(maxRows int) *Guard {
	if maxRows <= 0 {
		maxRows = DefaultRowLimit
	}
	return &Guard{maxRows: maxRows}
}

// MaxRows returns the row limit the guard enforces.
func (g *Guard) MaxRows() int {
	return g.maxRows
}

// Check validates one candidate statement. On acceptance it returns the
// statement normalized for execution: single statement, LIMIT guaranteed
// present, terminated with a semicolon. On rejection it returns a nil-string
// and one of the sentinel errors above.
func (g *Guard) Check(candidate string) (string, error) {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return "", ErrEmptyQuery
	}

	// Normalize away the trailing terminator, then any remaining semicolon
	// outside a string literal means a second statement rides along.
	normalized := stripTrailingSemicolon(trimmed)
	if normalized == "" {
		return "", ErrEmptyQuery
	}
	if semicolonOutsideLiterals(normalized) {
		return "", ErrMultipleStatements
	}

	upper := strings.ToUpper(normalized)

	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return "", ErrNotReadOnly
	}

	for _, keyword := range dangerousKeywords {
		if strings.Contains(upper, keyword) {
			return "", fmt.Errorf("%w: %s", ErrDangerousKeyword, keyword)
		}
	}

	if violations := CheckFilterLiterals(extractSingleQuotedLiterals(normalized)); len(violations) > 0 {
		return "", fmt.Errorf("%w: fingerprint %s", ErrInjectionDetected, violations[0].Fingerprint)
	}

	if !limitToken.MatchString(upper) {
		normalized = fmt.Sprintf("%s LIMIT %d", normalized, g.maxRows)
	}

	return normalized + ";", nil
}

// stripTrailingSemicolon removes one trailing semicolon and surrounding
// whitespace.
func stripTrailingSemicolon(sqlText string) string {
	sqlText = strings.TrimRight(sqlText, " \t\n\r")
	if strings.HasSuffix(sqlText, ";") {
		sqlText = strings.TrimSuffix(sqlText, ";")
		sqlText = strings.TrimRight(sqlText, " \t\n\r")
	}
	return sqlText
}

// extractSingleQuotedLiterals returns the unescaped contents of every
// single-quoted literal in the statement, skipping double-quoted
// identifiers. Doubled quotes ('') and backslash escapes are folded into
// the literal body.
func extractSingleQuotedLiterals(sqlText string) []string {
	var literals []string
	var current strings.Builder
	inLiteral := false
	inIdentifier := false
	runes := []rune(sqlText)

	for i := 0; i < len(runes); i++ {
		char := runes[i]

		if !inLiteral {
			if inIdentifier {
				if char == '"' {
					inIdentifier = false
				}
				continue
			}
			switch char {
			case '\'':
				inLiteral = true
				current.Reset()
			case '"':
				inIdentifier = true
			}
			continue
		}

		switch char {
		case '\\':
			if i+1 < len(runes) {
				i++
				current.WriteRune(runes[i])
			}
		case '\'':
			if i+1 < len(runes) && runes[i+1] == '\'' {
				current.WriteRune('\'')
				i++
				continue
			}
			literals = append(literals, current.String())
			inLiteral = false
		default:
			current.WriteRune(char)
		}
	}

	return literals
}

// semicolonOutsideLiterals reports whether the text contains a semicolon
// outside of single- or double-quoted literals. Handles both backslash
// escapes (\') and SQL doubled quotes ('').
func semicolonOutsideLiterals(sqlText string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	prevChar := rune(0)

	for _, char := range sqlText {
		switch state {
		case stateNormal:
			switch char {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			// A doubled quote ('') exits here and immediately re-enters on
			// the next character, which keeps the scan inside the literal.
			if char == '\'' && prevChar != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		}
		prevChar = char
	}

	return false
}
