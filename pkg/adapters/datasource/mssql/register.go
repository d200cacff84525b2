package mssql

import (
	"context"

	"github.com/google/uuid"

	"github.com/insightloop/insight-engine/pkg/adapters/datasource"
	"github.com/insightloop/insight-engine/pkg/models"
)

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.AdapterInfo{
			Type:        models.SourceTypeMSSQL,
			DisplayName: "Microsoft SQL Server",
			Description: "Connect to SQL Server 2016+, Azure SQL Database",
		},
		ExecutorFactory: func(ctx context.Context, datasetID uuid.UUID, dsn string, connMgr *datasource.ConnectionManager) (datasource.QueryExecutor, error) {
			return NewQueryExecutor(ctx, datasetID, dsn, connMgr)
		},
	})
}
