package datasource

import "context"

// QueryExecutor runs guarded statements against a dataset's backing store.
// Each implementation owns (or borrows from the connection manager) its
// connection and must be closed when done.
type QueryExecutor interface {
	// Execute runs one statement and returns the results. Row bounds come
	// from the guard's LIMIT clause; an adapter may respell that clause for
	// its dialect but never re-limits.
	Execute(ctx context.Context, sqlQuery string) (*QueryExecutionResult, error)

	// QuoteIdentifier safely quotes a SQL identifier (table, column name)
	// using the dialect's quoting rules.
	QuoteIdentifier(name string) string

	// Close releases any resources held by the executor.
	Close() error
}

// ColumnInfo describes a result column with database-agnostic type information.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"` // Database type name (e.g., "TEXT", "INT4", "VARCHAR")
}

// QueryExecutionResult holds raw driver output. Rows are ordered value
// slices aligned with Columns, so duplicate column names in generated SQL
// stay distinct.
type QueryExecutionResult struct {
	Columns  []ColumnInfo `json:"columns"`
	Rows     [][]any      `json:"rows"`
	RowCount int          `json:"row_count"`
}
