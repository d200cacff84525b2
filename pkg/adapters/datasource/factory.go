package datasource

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ExecutorFactory creates query executors from the registry.
type ExecutorFactory interface {
	// NewQueryExecutor creates an executor for the given source type and DSN.
	NewQueryExecutor(ctx context.Context, sourceType string, datasetID uuid.UUID, dsn string) (QueryExecutor, error)

	// ListSources returns info for all registered adapter types.
	ListSources() []AdapterInfo
}

type registryFactory struct {
	connMgr *ConnectionManager
}

// NewExecutorFactory returns a factory that uses the global registry. The
// connection manager may be nil; executors then own their connections.
func NewExecutorFactory(connMgr *ConnectionManager) ExecutorFactory {
	return &registryFactory{
		connMgr: connMgr,
	}
}

func (f *registryFactory) NewQueryExecutor(ctx context.Context, sourceType string, datasetID uuid.UUID, dsn string) (QueryExecutor, error) {
	factory := GetExecutorFactory(sourceType)
	if factory == nil {
		return nil, fmt.Errorf("unsupported source type: %s", sourceType)
	}
	return factory(ctx, datasetID, dsn, f.connMgr)
}

func (f *registryFactory) ListSources() []AdapterInfo {
	return RegisteredSources()
}

// Ensure registryFactory implements ExecutorFactory at compile time.
var _ ExecutorFactory = (*registryFactory)(nil)
