package datasource

import (
	"context"
	"strings"
)

// MockQueryExecutor implements QueryExecutor for tests using function
// fields. Tests set ExecuteFunc to control behavior and inspect call
// tracking afterwards.
type MockQueryExecutor struct {
	ExecuteFunc func(ctx context.Context, sqlQuery string) (*QueryExecutionResult, error)

	// Call tracking
	ExecuteCalls int
	LastSQL      string
	Closed       bool
}

// NewMockQueryExecutor creates a mock that returns an empty result by
// default.
func NewMockQueryExecutor() *MockQueryExecutor {
	return &MockQueryExecutor{}
}

func (m *MockQueryExecutor) Execute(ctx context.Context, sqlQuery string) (*QueryExecutionResult, error) {
	m.ExecuteCalls++
	m.LastSQL = sqlQuery

	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, sqlQuery)
	}

	return &QueryExecutionResult{
		Columns:  []ColumnInfo{},
		Rows:     [][]any{},
		RowCount: 0,
	}, nil
}

func (m *MockQueryExecutor) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (m *MockQueryExecutor) Close() error {
	m.Closed = true
	return nil
}

// Reset clears call tracking between test cases.
func (m *MockQueryExecutor) Reset() {
	m.ExecuteCalls = 0
	m.LastSQL = ""
	m.Closed = false
}

// Ensure MockQueryExecutor implements QueryExecutor at compile time.
var _ QueryExecutor = (*MockQueryExecutor)(nil)
