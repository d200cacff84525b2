package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/insightloop/insight-engine/pkg/logging"
	"github.com/insightloop/insight-engine/pkg/retry"
)

const (
	DefaultPoolTTLMinutes  = 5
	DefaultCleanupInterval = 1 * time.Minute
	DefaultMaxPools        = 20
	DefaultPoolMaxConns    = 10
	DefaultPoolMinConns    = 1
)

// ConnectionManagerConfig holds configuration for the connection manager.
type ConnectionManagerConfig struct {
	TTLMinutes   int
	MaxPools     int
	PoolMaxConns int32
	PoolMinConns int32
}

// ConnectionManager keeps one connection pool per dataset so repeated
// questions against the same dataset reuse connections instead of dialing
// per query. Pools idle past the TTL are closed by a background cleanup.
type ConnectionManager struct {
	mu           sync.RWMutex
	pools        map[uuid.UUID]*managedPool
	ttl          time.Duration
	maxPools     int
	poolMaxConns int32
	poolMinConns int32
	stopped      bool
	stopChan     chan struct{}
	logger       *zap.Logger
}

type managedPool struct {
	connector PoolConnector
	lastUsed  time.Time
	mu        sync.Mutex
}

// CreateConnectorFunc builds the pool for a dataset on first use. Each
// adapter supplies its own (pgx pool or sql.DB wrapper).
type CreateConnectorFunc func(ctx context.Context, settings PoolSettings) (PoolConnector, error)

// NewConnectionManager creates a connection manager with the given
// configuration. Starts a background cleanup goroutine that runs until
// Close() is called.
func NewConnectionManager(cfg ConnectionManagerConfig, logger *zap.Logger) *ConnectionManager {
	if cfg.TTLMinutes <= 0 {
		cfg.TTLMinutes = DefaultPoolTTLMinutes
	}
	if cfg.MaxPools <= 0 {
		cfg.MaxPools = DefaultMaxPools
	}
	if cfg.PoolMaxConns <= 0 {
		cfg.PoolMaxConns = DefaultPoolMaxConns
	}
	if cfg.PoolMinConns <= 0 {
		cfg.PoolMinConns = DefaultPoolMinConns
	}

	manager := &ConnectionManager{
		pools:        make(map[uuid.UUID]*managedPool),
		ttl:          time.Duration(cfg.TTLMinutes) * time.Minute,
		maxPools:     cfg.MaxPools,
		poolMaxConns: cfg.PoolMaxConns,
		poolMinConns: cfg.PoolMinConns,
		stopChan:     make(chan struct{}),
		logger:       logger,
	}

	go manager.cleanupExpiredPools()
	return manager
}

// Settings returns the sizing applied to pools this manager creates.
func (m *ConnectionManager) Settings() PoolSettings {
	return PoolSettings{
		MaxConns: m.poolMaxConns,
		MinConns: m.poolMinConns,
		IdleTTL:  m.ttl,
	}
}

// GetOrCreate returns the pool for a dataset, creating it on first use via
// the supplied connector factory. An existing pool is health-checked before
// reuse and recreated when unhealthy.
func (m *ConnectionManager) GetOrCreate(ctx context.Context, datasetID uuid.UUID, create CreateConnectorFunc) (PoolConnector, error) {
	m.mu.RLock()
	managed, exists := m.pools[datasetID]
	m.mu.RUnlock()

	if exists {
		managed.mu.Lock()

		healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		err := retry.Do(healthCtx, retry.DefaultConfig(), func() error {
			return managed.connector.Ping(healthCtx)
		})

		if err != nil {
			m.logger.Warn("dataset pool unhealthy, recreating",
				zap.String("datasetID", datasetID.String()),
				zap.String("error", logging.SanitizeError(err)),
			)
			managed.mu.Unlock()
			m.removePool(datasetID)
			return m.createNewPool(ctx, datasetID, create)
		}

		managed.lastUsed = time.Now()
		managed.mu.Unlock()
		return managed.connector, nil
	}

	return m.createNewPool(ctx, datasetID, create)
}

// createNewPool creates a pool with retry logic.
// Caller must NOT hold any locks (this method acquires the write lock).
func (m *ConnectionManager) createNewPool(ctx context.Context, datasetID uuid.UUID, create CreateConnectorFunc) (PoolConnector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring the write lock (another goroutine may
	// have created it).
	if managed, exists := m.pools[datasetID]; exists && managed != nil {
		managed.mu.Lock()
		defer managed.mu.Unlock()
		managed.lastUsed = time.Now()
		return managed.connector, nil
	}

	if len(m.pools) >= m.maxPools {
		m.logger.Warn("dataset pool capacity reached",
			zap.Int("current", len(m.pools)),
			zap.Int("max", m.maxPools),
		)
		return nil, fmt.Errorf("dataset pool capacity reached (%d)", m.maxPools)
	}

	connector, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (PoolConnector, error) {
		return create(ctx, m.Settings())
	})
	if err != nil {
		m.logger.Error("failed to create dataset pool after retries",
			zap.String("datasetID", datasetID.String()),
			zap.String("error", logging.SanitizeError(err)),
		)
		return nil, fmt.Errorf("failed to create pool for dataset %s after retries: %w", datasetID, err)
	}

	m.pools[datasetID] = &managedPool{
		connector: connector,
		lastUsed:  time.Now(),
	}

	m.logger.Info("created dataset pool",
		zap.String("datasetID", datasetID.String()),
		zap.String("type", connector.GetType()),
		zap.Int("totalPools", len(m.pools)),
	)

	return connector, nil
}

// removePool removes a dataset's pool and closes it.
// Caller must NOT hold m.mu (this method acquires the write lock).
func (m *ConnectionManager) removePool(datasetID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if managed, exists := m.pools[datasetID]; exists && managed != nil {
		if managed.connector != nil {
			managed.connector.Close()
		}
		delete(m.pools, datasetID)
		m.logger.Debug("removed dataset pool",
			zap.String("datasetID", datasetID.String()),
		)
	}
}

// cleanupExpiredPools runs periodically until stopChan is closed.
func (m *ConnectionManager) cleanupExpiredPools() {
	ticker := time.NewTicker(DefaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.performCleanup()
		case <-m.stopChan:
			return
		}
	}
}

// performCleanup removes pools that have not been used within the TTL.
// Lock ordering: manager lock, then pool lock.
func (m *ConnectionManager) performCleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return
	}

	now := time.Now()
	var expired []uuid.UUID

	for datasetID, managed := range m.pools {
		if managed == nil {
			continue
		}
		managed.mu.Lock()
		idle := now.Sub(managed.lastUsed)
		managed.mu.Unlock()

		if idle > m.ttl {
			expired = append(expired, datasetID)
			m.logger.Debug("marking dataset pool for cleanup",
				zap.String("datasetID", datasetID.String()),
				zap.Duration("idleTime", idle),
				zap.Duration("ttl", m.ttl),
			)
		}
	}

	for _, datasetID := range expired {
		if managed, exists := m.pools[datasetID]; exists && managed != nil {
			if managed.connector != nil {
				managed.connector.Close()
			}
			delete(m.pools, datasetID)
		}
	}

	if len(expired) > 0 {
		m.logger.Info("cleaned up idle dataset pools",
			zap.Int("count", len(expired)),
			zap.Int("remaining", len(m.pools)),
		)
	}
}

// Close closes all pools and stops the cleanup goroutine. Idempotent.
func (m *ConnectionManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return nil
	}

	m.stopped = true
	close(m.stopChan)

	for _, managed := range m.pools {
		if managed != nil && managed.connector != nil {
			managed.connector.Close()
		}
	}

	m.pools = make(map[uuid.UUID]*managedPool)
	m.logger.Info("connection manager closed")
	return nil
}

// GetStats returns statistics about the connection manager.
// Safe to call concurrently.
func (m *ConnectionManager) GetStats() ConnectionStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	stats := ConnectionStats{
		TotalPools:        len(m.pools),
		MaxPools:          m.maxPools,
		TTLMinutes:        int(m.ttl.Minutes()),
		PoolsByType:       make(map[string]int),
		OldestIdleSeconds: 0,
	}

	for _, managed := range m.pools {
		if managed == nil {
			continue
		}
		managed.mu.Lock()
		idleSeconds := int(now.Sub(managed.lastUsed).Seconds())
		managed.mu.Unlock()

		stats.PoolsByType[managed.connector.GetType()]++
		if idleSeconds > stats.OldestIdleSeconds {
			stats.OldestIdleSeconds = idleSeconds
		}
	}

	return stats
}

// ConnectionStats contains statistics about the connection manager state.
type ConnectionStats struct {
	TotalPools        int            `json:"total_pools"`
	MaxPools          int            `json:"max_pools"`
	TTLMinutes        int            `json:"ttl_minutes"`
	PoolsByType       map[string]int `json:"pools_by_type"`
	OldestIdleSeconds int            `json:"oldest_idle_seconds"`
}
