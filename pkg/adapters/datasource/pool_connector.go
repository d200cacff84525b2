package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConnector abstracts connection pool operations across database kinds
// so the connection manager can hold PostgreSQL and SQL Server pools in the
// same table.
type PoolConnector interface {
	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error

	// Close closes all connections in the pool.
	Close() error

	// GetType returns the database type for logging and stats.
	GetType() string
}

// PoolSettings carries the sizing the manager applies to every pool it
// creates.
type PoolSettings struct {
	MaxConns int32
	MinConns int32
	IdleTTL  time.Duration
}

// PostgresPoolWrapper wraps *pgxpool.Pool to implement PoolConnector.
type PostgresPoolWrapper struct {
	pool *pgxpool.Pool
}

// NewPostgresPoolWrapper creates a new PostgreSQL pool wrapper.
func NewPostgresPoolWrapper(pool *pgxpool.Pool) *PostgresPoolWrapper {
	return &PostgresPoolWrapper{pool: pool}
}

func (w *PostgresPoolWrapper) Ping(ctx context.Context) error {
	return w.pool.Ping(ctx)
}

func (w *PostgresPoolWrapper) Close() error {
	w.pool.Close()
	return nil
}

func (w *PostgresPoolWrapper) GetType() string {
	return "postgres"
}

// GetPool returns the underlying *pgxpool.Pool.
func (w *PostgresPoolWrapper) GetPool() *pgxpool.Pool {
	return w.pool
}

// MSSQLPoolWrapper wraps *sql.DB to implement PoolConnector.
type MSSQLPoolWrapper struct {
	db *sql.DB
}

// NewMSSQLPoolWrapper creates a new SQL Server pool wrapper.
func NewMSSQLPoolWrapper(db *sql.DB) *MSSQLPoolWrapper {
	return &MSSQLPoolWrapper{db: db}
}

func (w *MSSQLPoolWrapper) Ping(ctx context.Context) error {
	return w.db.PingContext(ctx)
}

func (w *MSSQLPoolWrapper) Close() error {
	return w.db.Close()
}

func (w *MSSQLPoolWrapper) GetType() string {
	return "mssql"
}

// GetDB returns the underlying *sql.DB.
func (w *MSSQLPoolWrapper) GetDB() *sql.DB {
	return w.db
}

// CreatePostgresPool creates a PostgreSQL connection pool with the given
// sizing applied.
func CreatePostgresPool(ctx context.Context, connString string, settings PoolSettings) (PoolConnector, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = settings.MaxConns
	poolConfig.MinConns = settings.MinConns
	poolConfig.MaxConnIdleTime = settings.IdleTTL

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	return NewPostgresPoolWrapper(pool), nil
}

// GetPostgresPool extracts the underlying *pgxpool.Pool from a PoolConnector.
func GetPostgresPool(connector PoolConnector) (*pgxpool.Pool, error) {
	wrapper, ok := connector.(*PostgresPoolWrapper)
	if !ok {
		return nil, fmt.Errorf("connector is not a PostgreSQL pool wrapper")
	}
	return wrapper.GetPool(), nil
}

// GetMSSQLDB extracts the underlying *sql.DB from a PoolConnector.
func GetMSSQLDB(connector PoolConnector) (*sql.DB, error) {
	wrapper, ok := connector.(*MSSQLPoolWrapper)
	if !ok {
		return nil, fmt.Errorf("connector is not an MSSQL pool wrapper")
	}
	return wrapper.GetDB(), nil
}
