package tools

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/insightloop/insight-engine/pkg/models"
	"github.com/insightloop/insight-engine/pkg/repositories"
)

// getOptionalString extracts an optional string argument from the request.
func getOptionalString(req mcp.CallToolRequest, key string) string {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return ""
	}
	val, ok := args[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(val)
}

// resolveDataset accepts either a dataset UUID or the dataset's unique
// name, so agents can pass names straight from list_datasets.
func resolveDataset(ctx context.Context, repo repositories.DatasetRepository, ref string) (*models.Dataset, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return repo.GetByID(ctx, id)
	}
	return repo.GetByName(ctx, ref)
}
