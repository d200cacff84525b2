// Package tools provides MCP tool implementations for insight-engine.
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
	"github.com/insightloop/insight-engine/pkg/models"
	"github.com/insightloop/insight-engine/pkg/repositories"
	"github.com/insightloop/insight-engine/pkg/services"
)

// QuestionToolDeps contains dependencies for the question tools.
type QuestionToolDeps struct {
	Resolution  services.ResolutionService
	Suggestions services.SuggestionService
	Datasets    repositories.DatasetRepository
	Logger      *zap.Logger
}

// RegisterQuestionTools registers the question resolution MCP tools.
func RegisterQuestionTools(s *server.MCPServer, deps *QuestionToolDeps) {
	registerAskQuestionTool(s, deps)
	registerSuggestQuestionsTool(s, deps)
}

// registerAskQuestionTool adds the ask_question tool that runs the full
// resolution pipeline against one dataset.
func registerAskQuestionTool(s *server.MCPServer, deps *QuestionToolDeps) {
	tool := mcp.NewTool(
		"ask_question",
		mcp.WithDescription(
			"Ask a natural-language business question against a dataset and receive the complete resolution: "+
				"a text answer, the read-only SQL that produced it, the result rows, a visualization suggestion, and rule-based insights. "+
				"The pipeline classifies the question's intent (aggregation/trend/comparison/ranking/lookup), extracts referenced columns, "+
				"filters and date ranges, plans a guarded SELECT, executes it, and summarizes the outcome. "+
				"A failed run is returned inside the response with success=false and an error message, not as a tool error. "+
				"Example: ask_question(dataset_id='orders', question='total revenue by region last quarter').",
		),
		mcp.WithString(
			"dataset_id",
			mcp.Required(),
			mcp.Description("Required - Dataset UUID or unique dataset name (see list_datasets)"),
		),
		mcp.WithString(
			"question",
			mcp.Required(),
			mcp.Description("Required - The business question in plain language"),
		),
		mcp.WithString(
			"prior_context",
			mcp.Description("Optional - Prior conversation context appended verbatim to the planning prompt"),
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

		question := getOptionalString(req, "question")
		if question == "" {
			return nil, fmt.Errorf("question is required")
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

		response := deps.Resolution.ResolveQuestion(ctx, dataset.ID, models.QuestionRequest{
			Question:     question,
			PriorContext: getOptionalString(req, "prior_context"),
		})

		jsonResult, err := json.Marshal(response)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}

		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

// registerSuggestQuestionsTool adds the suggest_questions tool for
// completing a partial question against a dataset's vocabulary.
func registerSuggestQuestionsTool(s *server.MCPServer, deps *QuestionToolDeps) {
	tool := mcp.NewTool(
		"suggest_questions",
		mcp.WithDescription(
			"Suggest answerable business questions for a dataset. "+
				"With a partial question, returns completions matching it; with no partial, returns the dataset's "+
				"curated sample questions plus suggestions generated from its column profile. "+
				"Use this before ask_question to discover what the dataset can answer. "+
				"Example: suggest_questions(dataset_id='orders', partial='total sales').",
		),
		mcp.WithString(
			"dataset_id",
			mcp.Required(),
			mcp.Description("Required - Dataset UUID or unique dataset name (see list_datasets)"),
		),
		mcp.WithString(
			"partial",
			mcp.Description("Optional - Partial question text to complete"),
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

		partial := getOptionalString(req, "partial")

		suggestions, err := deps.Suggestions.Suggest(ctx, dataset.ID, partial)
		if err != nil {
			deps.Logger.Error("Failed to build suggestions",
				zap.String("dataset_id", dataset.ID.String()),
				zap.Error(err))
			return nil, fmt.Errorf("failed to build suggestions: %w", err)
		}

		response := map[string]any{
			"dataset_id":  dataset.ID.String(),
			"dataset":     dataset.Name,
			"suggestions": suggestions,
		}

		jsonResult, err := json.Marshal(response)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}

		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}
