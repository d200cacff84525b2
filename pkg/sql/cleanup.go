package sql

import (
	"strings"
)

// sqlLinePrefixes are the statement starters that identify a line as SQL.
// A line starting with any of these is always kept by ExtractSQL.
var sqlLinePrefixes = []string{
	"SELECT",
	"WITH",
	"FROM",
	"WHERE",
	"GROUP BY",
	"ORDER BY",
	"HAVING",
	"LIMIT",
	"OFFSET",
	"JOIN",
	"INNER",
	"LEFT",
	"RIGHT",
	"FULL",
	"CROSS",
	"OUTER",
	"UNION",
	"AND",
	"OR",
	"ON",
}

// proseStarters mark continuation lines that are commentary rather than SQL.
// Generation output often trails off into sentences like "This query..." or
// "Note that..." after the statement.
var proseStarters = []string{
	"THE",
	"THIS",
	"HERE",
	"ABOVE",
	"NOTE",
}

// ExtractSQL recovers a bare SQL statement from raw generation output. It
// strips markdown fences, then keeps only lines that start with a SQL
// keyword or that continue a kept line without reading like prose. Pure and
// deterministic so it can be tested apart from any provider call.
func ExtractSQL(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```sql", "")
	cleaned = strings.ReplaceAll(cleaned, "```SQL", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")

	var kept []string
	keeping := false

	for _, line := range strings.Split(cleaned, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		upper := strings.ToUpper(trimmed)

		if startsWithSQLKeyword(upper) {
			kept = append(kept, trimmed)
			keeping = true
			continue
		}

		// Continuation of a kept statement: indented column lists, closing
		// parens, expressions. Prose sentences end the statement.
		if keeping && !startsWithProse(upper) {
			kept = append(kept, trimmed)
			continue
		}

		keeping = false
	}

	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func startsWithSQLKeyword(upperLine string) bool {
	for _, prefix := range sqlLinePrefixes {
		if strings.HasPrefix(upperLine, prefix) {
			return true
		}
	}
	return false
}

func startsWithProse(upperLine string) bool {
	first := upperLine
	if idx := strings.IndexAny(upperLine, " \t"); idx >= 0 {
		first = upperLine[:idx]
	}
	first = strings.TrimRight(first, ".,:;!")
	for _, starter := range proseStarters {
		if first == starter {
			return true
		}
	}
	return false
}
