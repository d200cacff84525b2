package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/insightloop/insight-engine/pkg/adapters/datasource"
	"github.com/insightloop/insight-engine/pkg/models"
)

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.AdapterInfo{
			Type:        models.SourceTypePostgres,
			DisplayName: "PostgreSQL",
			Description: "Connect to PostgreSQL 12+, Aurora PostgreSQL, Supabase",
		},
		ExecutorFactory: func(ctx context.Context, datasetID uuid.UUID, dsn string, connMgr *datasource.ConnectionManager) (datasource.QueryExecutor, error) {
			return NewQueryExecutor(ctx, datasetID, dsn, connMgr)
		},
	})
}
