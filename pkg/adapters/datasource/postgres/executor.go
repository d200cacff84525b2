package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/insightloop/insight-engine/pkg/adapters/datasource"
)

// QueryExecutor provides PostgreSQL query execution over a pooled
// connection.
type QueryExecutor struct {
	pool      *pgxpool.Pool
	ownedPool bool // true if we created the pool (tests or direct instantiation)
}

// NewQueryExecutor creates a PostgreSQL query executor. With a connection
// manager the dataset's pool is shared and health-checked; with a nil
// manager the executor owns an unmanaged pool.
func NewQueryExecutor(ctx context.Context, datasetID uuid.UUID, dsn string, connMgr *datasource.ConnectionManager) (*QueryExecutor, error) {
	if connMgr == nil {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		return &QueryExecutor{
			pool:      pool,
			ownedPool: true,
		}, nil
	}

	connector, err := connMgr.GetOrCreate(ctx, datasetID, func(ctx context.Context, settings datasource.PoolSettings) (datasource.PoolConnector, error) {
		return datasource.CreatePostgresPool(ctx, dsn, settings)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get pooled connection: %w", err)
	}

	pool, err := datasource.GetPostgresPool(connector)
	if err != nil {
		return nil, err
	}

	return &QueryExecutor{
		pool:      pool,
		ownedPool: false,
	}, nil
}

// Execute runs one statement as given and returns ordered columns and rows.
// The guard has already bounded the statement; no re-limiting happens here.
func (e *QueryExecutor) Execute(ctx context.Context, sqlQuery string) (*datasource.QueryExecutionResult, error) {
	rows, err := e.pool.Query(ctx, sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]datasource.ColumnInfo, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = datasource.ColumnInfo{
			Name: string(fd.Name),
			Type: pgTypeNameFromOID(fd.DataTypeOID),
		}
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}
		row := make([]any, len(values))
		for i, v := range values {
			row[i] = convertPgValue(v)
		}
		resultRows = append(resultRows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &datasource.QueryExecutionResult{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
	}, nil
}

// convertPgValue replaces pgx's driver-native representations with plain Go
// values. NUMERIC columns come back as pgtype.Numeric and UUID columns as
// [16]byte; aggregate results land on both paths constantly, so they are
// decoded here rather than leaking driver types out of the adapter.
func convertPgValue(v any) any {
	switch tv := v.(type) {
	case pgtype.Numeric:
		if !tv.Valid {
			return nil
		}
		if f, err := tv.Float64Value(); err == nil && f.Valid {
			return f.Float64
		}
		return v
	case [16]byte:
		return uuid.UUID(tv).String()
	default:
		return v
	}
}

// QuoteIdentifier safely quotes a SQL identifier using PostgreSQL's standard
// double-quote quoting.
func (e *QueryExecutor) QuoteIdentifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// Close releases the executor (but NOT the pool if managed).
func (e *QueryExecutor) Close() error {
	if e.ownedPool && e.pool != nil {
		e.pool.Close()
	}
	return nil
}

// pgTypeNameFromOID maps PostgreSQL type OIDs to human-readable type names.
// Covers the types the pipeline renders; unknown types return "UNKNOWN".
func pgTypeNameFromOID(oid uint32) string {
	switch oid {
	case 16:
		return "BOOL"
	case 17:
		return "BYTEA"
	case 20:
		return "INT8"
	case 21:
		return "INT2"
	case 23:
		return "INT4"
	case 25:
		return "TEXT"
	case 114:
		return "JSON"
	case 700:
		return "FLOAT4"
	case 701:
		return "FLOAT8"
	case 790:
		return "MONEY"
	case 1042:
		return "BPCHAR"
	case 1043:
		return "VARCHAR"
	case 1082:
		return "DATE"
	case 1083:
		return "TIME"
	case 1114:
		return "TIMESTAMP"
	case 1184:
		return "TIMESTAMPTZ"
	case 1186:
		return "INTERVAL"
	case 1700:
		return "NUMERIC"
	case 2950:
		return "UUID"
	case 3802:
		return "JSONB"
	case 1009:
		return "TEXT[]"
	case 1007:
		return "INT4[]"
	case 1016:
		return "INT8[]"
	default:
		return "UNKNOWN"
	}
}

// Ensure QueryExecutor implements datasource.QueryExecutor at compile time.
var _ datasource.QueryExecutor = (*QueryExecutor)(nil)
