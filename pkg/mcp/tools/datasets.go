package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/insightloop/insight-engine/pkg/apperrors"
	"github.com/insightloop/insight-engine/pkg/repositories"
)

// DatasetToolDeps contains dependencies for the dataset discovery tools.
type DatasetToolDeps struct {
	Datasets repositories.DatasetRepository
	Logger   *zap.Logger
}

// RegisterDatasetTools registers the dataset discovery MCP tools.
func RegisterDatasetTools(s *server.MCPServer, deps *DatasetToolDeps) {
	registerListDatasetsTool(s, deps)
	registerGetDatasetSchemaTool(s, deps)
}

// registerListDatasetsTool adds the list_datasets tool for discovering
// what can be queried.
func registerListDatasetsTool(s *server.MCPServer, deps *DatasetToolDeps) {
	tool := mcp.NewTool(
		"list_datasets",
		mcp.WithDescription(
			"List the datasets available for questioning. "+
				"Each entry carries the dataset's id, unique name, display name, source type, backing table, row count, "+
				"and curated sample questions that are known to resolve well. "+
				"Use the name or id with ask_question, suggest_questions, and get_dataset_schema.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		datasets, err := deps.Datasets.List(ctx)
		if err != nil {
			deps.Logger.Error("Failed to list datasets", zap.Error(err))
			return nil, fmt.Errorf("failed to list datasets: %w", err)
		}

		entries := make([]map[string]any, 0, len(datasets))
		for _, ds := range datasets {
			entry := map[string]any{
				"id":           ds.ID.String(),
				"name":         ds.Name,
				"display_name": ds.DisplayName,
				"source_type":  string(ds.SourceType),
				"table":        ds.TableName,
				"row_count":    ds.RowCount,
			}
			if len(ds.SampleQuestions) > 0 {
				entry["sample_questions"] = ds.SampleQuestions
			}
			entries = append(entries, entry)
		}

		response := map[string]any{
			"datasets": entries,
			"count":    len(entries),
		}

		jsonResult, err := json.Marshal(response)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}

		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

// registerGetDatasetSchemaTool adds the get_dataset_schema tool exposing
// a dataset's stored column profile.
func registerGetDatasetSchemaTool(s *server.MCPServer, deps *DatasetToolDeps) {
	tool := mcp.NewTool(
		"get_dataset_schema",
		mcp.WithDescription(
			"Get a dataset's stored schema profile: every column with its data type, business type "+
				"(numeric/currency/percentage/category/date/boolean/identifier/text), nullability, cardinality, "+
				"and sample values, plus per-column statistics where profiled. "+
				"Use this to ground question phrasing in columns that actually exist. "+
				"Example: get_dataset_schema(dataset_id='orders').",
		),
		mcp.WithString(
			"dataset_id",
			mcp.Required(),
			mcp.Description("Required - Dataset UUID or unique dataset name (see list_datasets)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		datasetRef := getOptionalString(req, "dataset_id")
		if datasetRef == "" {
			return nil, fmt.Errorf("dataset_id is required")
		}

		dataset, err := resolveDataset(ctx, deps.Datasets, datasetRef)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf("dataset not found: %s", datasetRef)
			}
			deps.Logger.Error("Failed to resolve dataset",
				zap.String("dataset", datasetRef),
				zap.Error(err))
			return nil, fmt.Errorf("failed to resolve dataset: %w", err)
		}

		schema, err := deps.Datasets.GetSchema(ctx, dataset.ID)
		if err != nil {
			if errors.Is(err, apperrors.ErrSchemaNotFound) {
				return nil, fmt.Errorf("dataset %s has no stored schema profile", dataset.Name)
			}
			deps.Logger.Error("Failed to load schema",
				zap.String("dataset_id", dataset.ID.String()),
				zap.Error(err))
			return nil, fmt.Errorf("failed to load schema: %w", err)
		}

		jsonResult, err := json.Marshal(schema)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}

		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}
