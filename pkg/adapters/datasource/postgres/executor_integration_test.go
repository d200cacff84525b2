//go:build integration

package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/insightloop/insight-engine/pkg/adapters/datasource"
	"github.com/insightloop/insight-engine/pkg/testhelpers"
)

func TestQueryExecutor_Execute(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := context.Background()

	executor, err := NewQueryExecutor(ctx, uuid.New(), testDB.ConnStr, nil)
	require.NoError(t, err)
	defer executor.Close()

	result, err := executor.Execute(ctx, "SELECT 42 AS answer, 'hello'::text AS greeting, 1.5::float8 AS ratio LIMIT 10;")
	require.NoError(t, err)

	require.Len(t, result.Columns, 3)
	assert.Equal(t, "answer", result.Columns[0].Name)
	assert.Equal(t, "INT4", result.Columns[0].Type)
	assert.Equal(t, "greeting", result.Columns[1].Name)
	assert.Equal(t, "TEXT", result.Columns[1].Type)
	assert.Equal(t, "ratio", result.Columns[2].Name)
	assert.Equal(t, "FLOAT8", result.Columns[2].Type)

	require.Equal(t, 1, result.RowCount)
	assert.EqualValues(t, 42, result.Rows[0][0])
	assert.Equal(t, "hello", result.Rows[0][1])
	assert.Equal(t, 1.5, result.Rows[0][2])
}

func TestQueryExecutor_Execute_Aggregation(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := context.Background()

	executor, err := NewQueryExecutor(ctx, uuid.New(), testDB.ConnStr, nil)
	require.NoError(t, err)
	defer executor.Close()

	result, err := executor.Execute(ctx,
		`SELECT region, SUM(amount) AS total FROM sales GROUP BY region ORDER BY total DESC LIMIT 1000;`)
	require.NoError(t, err)

	require.Len(t, result.Columns, 2)
	assert.Equal(t, "region", result.Columns[0].Name)
	assert.Equal(t, "total", result.Columns[1].Name)
	assert.Equal(t, "NUMERIC", result.Columns[1].Type)

	require.Equal(t, 4, result.RowCount)
	assert.Equal(t, "South", result.Rows[0][0], "South has the largest total")
}

func TestQueryExecutor_Execute_DuplicateColumnNames(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := context.Background()

	executor, err := NewQueryExecutor(ctx, uuid.New(), testDB.ConnStr, nil)
	require.NoError(t, err)
	defer executor.Close()

	// Generated SQL can alias two expressions to the same name; ordered
	// rows keep both values.
	result, err := executor.Execute(ctx, "SELECT 1 AS v, 2 AS v LIMIT 1;")
	require.NoError(t, err)

	require.Len(t, result.Columns, 2)
	assert.Equal(t, "v", result.Columns[0].Name)
	assert.Equal(t, "v", result.Columns[1].Name)

	require.Equal(t, 1, result.RowCount)
	assert.EqualValues(t, 1, result.Rows[0][0])
	assert.EqualValues(t, 2, result.Rows[0][1])
}

func TestQueryExecutor_Execute_QueryError(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := context.Background()

	executor, err := NewQueryExecutor(ctx, uuid.New(), testDB.ConnStr, nil)
	require.NoError(t, err)
	defer executor.Close()

	_, err = executor.Execute(ctx, "SELECT * FROM table_that_does_not_exist LIMIT 10;")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to execute query")
}

func TestQueryExecutor_ManagedPool(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	logger := zaptest.NewLogger(t)

	connMgr := datasource.NewConnectionManager(datasource.ConnectionManagerConfig{}, logger)
	defer connMgr.Close()

	ctx := context.Background()
	datasetID := uuid.New()

	exec1, err := NewQueryExecutor(ctx, datasetID, testDB.ConnStr, connMgr)
	require.NoError(t, err)
	defer exec1.Close()

	exec2, err := NewQueryExecutor(ctx, datasetID, testDB.ConnStr, connMgr)
	require.NoError(t, err)
	defer exec2.Close()

	stats := connMgr.GetStats()
	assert.Equal(t, 1, stats.TotalPools, "same dataset should share one pool")
	assert.Equal(t, 1, stats.PoolsByType["postgres"])

	// Closing one managed executor must not tear down the shared pool
	require.NoError(t, exec1.Close())

	result, err := exec2.Execute(ctx, "SELECT 1 AS ok LIMIT 1;")
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowCount)
}
