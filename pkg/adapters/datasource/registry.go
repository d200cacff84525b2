package datasource

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// AdapterInfo describes a registered source adapter.
type AdapterInfo struct {
	Type        string `json:"type"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
}

// ExecutorFactoryFunc creates a query executor for one dataset. The DSN is
// the dataset's stored connection string; connMgr may be nil, in which case
// the executor owns its connection directly.
type ExecutorFactoryFunc func(ctx context.Context, datasetID uuid.UUID, dsn string, connMgr *ConnectionManager) (QueryExecutor, error)

// Registration contains info plus the executor factory for one source type.
type Registration struct {
	Info            AdapterInfo
	ExecutorFactory ExecutorFactoryFunc
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Registration)
)

// Register is called by each adapter's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredSources returns info for all registered adapters.
func RegisteredSources() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	return result
}

// GetExecutorFactory returns the executor factory for a source type, or nil
// if the type is not registered.
func GetExecutorFactory(sourceType string) ExecutorFactoryFunc {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if reg, ok := registry[sourceType]; ok {
		return reg.ExecutorFactory
	}
	return nil
}

// IsRegistered checks whether an adapter for the source type is available.
func IsRegistered(sourceType string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[sourceType]
	return ok
}
