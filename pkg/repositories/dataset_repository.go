package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/insightloop/insight-engine/pkg/apperrors"
	"github.com/insightloop/insight-engine/pkg/database"
	"github.com/insightloop/insight-engine/pkg/models"
)

// DatasetRepository reads registered datasets. Datasets are provisioned by
// the profiling jobs outside this service, so there is no write surface here.
type DatasetRepository interface {
	// GetByID fetches one dataset, profile included.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dataset, error)

	// GetByName fetches one dataset by its unique name.
	GetByName(ctx context.Context, name string) (*models.Dataset, error)

	// List returns all datasets ordered by name.
	List(ctx context.Context) ([]*models.Dataset, error)

	// GetSchema returns the stored column profile for a dataset.
	GetSchema(ctx context.Context, id uuid.UUID) (*models.DatasetSchema, error)
}

type datasetRepository struct {
	db *database.DB
}

// NewDatasetRepository creates a repository backed by the engine store.
func NewDatasetRepository(db *database.DB) DatasetRepository {
	return &datasetRepository{db: db}
}

var _ DatasetRepository = (*datasetRepository)(nil)

const datasetColumns = `id, name, display_name, source_type, dsn, table_name, row_count, profile, sample_questions, created_at, updated_at`

func (r *datasetRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dataset, error) {
	query := `SELECT ` + datasetColumns + ` FROM engine_datasets WHERE id = $1`
	return scanDataset(r.db.QueryRow(ctx, query, id))
}

func (r *datasetRepository) GetByName(ctx context.Context, name string) (*models.Dataset, error) {
	query := `SELECT ` + datasetColumns + ` FROM engine_datasets WHERE name = $1`
	return scanDataset(r.db.QueryRow(ctx, query, name))
}

func (r *datasetRepository) List(ctx context.Context) ([]*models.Dataset, error) {
	query := `SELECT ` + datasetColumns + ` FROM engine_datasets ORDER BY name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	var datasets []*models.Dataset
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate datasets: %w", err)
	}

	return datasets, nil
}

func (r *datasetRepository) GetSchema(ctx context.Context, id uuid.UUID) (*models.DatasetSchema, error) {
	var profileJSON []byte
	err := r.db.QueryRow(ctx, `SELECT profile FROM engine_datasets WHERE id = $1`, id).Scan(&profileJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSchemaNotFound
		}
		return nil, fmt.Errorf("failed to get dataset schema: %w", err)
	}

	schema, err := unmarshalProfile(profileJSON)
	if err != nil {
		return nil, err
	}
	if schema == nil {
		// The dataset row exists but profiling has not run yet.
		return nil, apperrors.ErrSchemaNotFound
	}
	return schema, nil
}

// scanDataset reads one dataset row. Works for both QueryRow and rows.Next
// iteration since pgx.Rows satisfies pgx.Row.
func scanDataset(row pgx.Row) (*models.Dataset, error) {
	var ds models.Dataset
	var profileJSON []byte

	err := row.Scan(
		&ds.ID,
		&ds.Name,
		&ds.DisplayName,
		&ds.SourceType,
		&ds.DSN,
		&ds.TableName,
		&ds.RowCount,
		&profileJSON,
		&ds.SampleQuestions,
		&ds.CreatedAt,
		&ds.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan dataset: %w", err)
	}

	ds.Profile, err = unmarshalProfile(profileJSON)
	if err != nil {
		return nil, err
	}

	return &ds, nil
}

func unmarshalProfile(data []byte) (*models.DatasetSchema, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var schema models.DatasetSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dataset profile: %w", err)
	}
	return &schema, nil
}
