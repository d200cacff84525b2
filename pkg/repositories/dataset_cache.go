package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/insightloop/insight-engine/pkg/models"
)

// schemaCacheKey namespaces cached profiles so the engine can share a Redis
// instance with other services.
func schemaCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("engine:schema:%s", id)
}

type cachedDatasetRepository struct {
	inner  DatasetRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedDatasetRepository fronts a DatasetRepository with a read-through
// Redis cache of schema profiles. Profiles are the only cached value;
// dataset rows carry connection material and always come from Postgres.
// A nil client returns the inner repository unchanged.
func NewCachedDatasetRepository(inner DatasetRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) DatasetRepository {
	if client == nil {
		return inner
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &cachedDatasetRepository{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

var _ DatasetRepository = (*cachedDatasetRepository)(nil)

func (r *cachedDatasetRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dataset, error) {
	return r.inner.GetByID(ctx, id)
}

func (r *cachedDatasetRepository) GetByName(ctx context.Context, name string) (*models.Dataset, error) {
	return r.inner.GetByName(ctx, name)
}

func (r *cachedDatasetRepository) List(ctx context.Context) ([]*models.Dataset, error) {
	return r.inner.List(ctx)
}

func (r *cachedDatasetRepository) GetSchema(ctx context.Context, id uuid.UUID) (*models.DatasetSchema, error) {
	key := schemaCacheKey(id)

	data, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		var schema models.DatasetSchema
		if err := json.Unmarshal(data, &schema); err == nil {
			return &schema, nil
		}
		// A corrupt entry falls through to the store and gets rewritten.
		r.logger.Warn("discarding unreadable cached schema", zap.String("dataset_id", id.String()))
	} else if !errors.Is(err, redis.Nil) {
		// Redis being down must not take schema reads with it.
		r.logger.Debug("schema cache read failed", zap.Error(err))
	}

	schema, err := r.inner.GetSchema(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(schema); err == nil {
		if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
			r.logger.Debug("schema cache write failed", zap.Error(err))
		}
	}

	return schema, nil
}
