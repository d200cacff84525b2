package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/insightloop/insight-engine/pkg/models"
)

// rpcToolResponse is the wire shape of a tools/call outcome: either a
// result with content or a protocol-level error.
type rpcToolResponse struct {
	Result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func callTool(t *testing.T, s *server.MCPServer, body string) rpcToolResponse {
	t.Helper()
	raw := s.HandleMessage(context.Background(), []byte(body))
	resultBytes, err := json.Marshal(raw)
	require.NoError(t, err)
	var response rpcToolResponse
	require.NoError(t, json.Unmarshal(resultBytes, &response))
	return response
}

func ordersDataset() *models.Dataset {
	return &models.Dataset{
		ID:          uuid.New(),
		Name:        "orders",
		DisplayName: "Monthly Orders",
		SourceType:  models.SourceTypePostgres,
		TableName:   "orders",
		RowCount:    1200,
		SampleQuestions: []string{
			"What were total sales last month?",
		},
		CreatedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newQuestionToolServer(resolution *mockResolutionService, suggestions *mockSuggestionService, repo *mockDatasetRepository) *server.MCPServer {
	mcpServer := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
	RegisterQuestionTools(mcpServer, &QuestionToolDeps{
		Resolution:  resolution,
		Suggestions: suggestions,
		Datasets:    repo,
		Logger:      zap.NewNop(),
	})
	return mcpServer
}

func TestRegisterQuestionTools(t *testing.T) {
	mcpServer := newQuestionToolServer(&mockResolutionService{}, &mockSuggestionService{}, &mockDatasetRepository{})

	raw := mcpServer.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"tools/list","id":1}`))
	resultBytes, err := json.Marshal(raw)
	require.NoError(t, err)

	var response struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(resultBytes, &response))

	toolNames := make(map[string]bool)
	for _, tool := range response.Result.Tools {
		toolNames[tool.Name] = true
	}

	assert.True(t, toolNames["ask_question"], "ask_question tool should be registered")
	assert.True(t, toolNames["suggest_questions"], "suggest_questions tool should be registered")
}

func TestAskQuestionTool_Execute(t *testing.T) {
	dataset := ordersDataset()
	resolution := &mockResolutionService{}
	mcpServer := newQuestionToolServer(resolution, &mockSuggestionService{}, &mockDatasetRepository{datasets: []*models.Dataset{dataset}})

	request := `{"jsonrpc":"2.0","method":"tools/call","params":{"name":"ask_question","arguments":{"dataset_id":"orders","question":"What were total sales last month?"}},"id":1}`
	response := callTool(t, mcpServer, request)

	require.Nil(t, response.Error)
	require.NotEmpty(t, response.Result.Content)
	assert.Equal(t, "text", response.Result.Content[0].Type)

	assert.Equal(t, 1, resolution.calls)
	assert.Equal(t, dataset.ID, resolution.lastDatasetID, "dataset name should resolve to its UUID")
	assert.Equal(t, "What were total sales last month?", resolution.lastRequest.Question)

	var envelope models.QuestionResponse
	require.NoError(t, json.Unmarshal([]byte(response.Result.Content[0].Text), &envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, "42 rows matched", envelope.Answer)
}

func TestAskQuestionTool_DatasetByUUID(t *testing.T) {
	dataset := ordersDataset()
	resolution := &mockResolutionService{}
	mcpServer := newQuestionToolServer(resolution, &mockSuggestionService{}, &mockDatasetRepository{datasets: []*models.Dataset{dataset}})

	request := fmt.Sprintf(`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"ask_question","arguments":{"dataset_id":"%s","question":"row count?"}},"id":1}`, dataset.ID)
	response := callTool(t, mcpServer, request)

	require.Nil(t, response.Error)
	assert.Equal(t, dataset.ID, resolution.lastDatasetID)
}

func TestAskQuestionTool_PriorContext(t *testing.T) {
	dataset := ordersDataset()
	resolution := &mockResolutionService{}
	mcpServer := newQuestionToolServer(resolution, &mockSuggestionService{}, &mockDatasetRepository{datasets: []*models.Dataset{dataset}})

	request := `{"jsonrpc":"2.0","method":"tools/call","params":{"name":"ask_question","arguments":{"dataset_id":"orders","question":"and by region?","prior_context":"Previously asked about total sales."}},"id":1}`
	response := callTool(t, mcpServer, request)

	require.Nil(t, response.Error)
	assert.Equal(t, "Previously asked about total sales.", resolution.lastRequest.PriorContext)
}

func TestAskQuestionTool_DatasetNotFound(t *testing.T) {
	mcpServer := newQuestionToolServer(&mockResolutionService{}, &mockSuggestionService{}, &mockDatasetRepository{})

	request := `{"jsonrpc":"2.0","method":"tools/call","params":{"name":"ask_question","arguments":{"dataset_id":"missing","question":"anything"}},"id":1}`
	response := callTool(t, mcpServer, request)

	require.NotNil(t, response.Error)
	assert.Contains(t, response.Error.Message, "dataset not found")
}

func TestAskQuestionTool_MissingQuestion(t *testing.T) {
	dataset := ordersDataset()
	resolution := &mockResolutionService{}
	mcpServer := newQuestionToolServer(resolution, &mockSuggestionService{}, &mockDatasetRepository{datasets: []*models.Dataset{dataset}})

	request := `{"jsonrpc":"2.0","method":"tools/call","params":{"name":"ask_question","arguments":{"dataset_id":"orders"}},"id":1}`
	response := callTool(t, mcpServer, request)

	require.NotNil(t, response.Error)
	assert.Contains(t, response.Error.Message, "question is required")
	assert.Equal(t, 0, resolution.calls)
}

func TestAskQuestionTool_FailedRunStaysInEnvelope(t *testing.T) {
	dataset := ordersDataset()
	resolution := &mockResolutionService{
		response: &models.QuestionResponse{
			Success:    false,
			QuestionID: uuid.New(),
			Question:   "what is the vibe?",
			Error:      "could not map the question to any dataset column",
		},
	}
	mcpServer := newQuestionToolServer(resolution, &mockSuggestionService{}, &mockDatasetRepository{datasets: []*models.Dataset{dataset}})

	request := `{"jsonrpc":"2.0","method":"tools/call","params":{"name":"ask_question","arguments":{"dataset_id":"orders","question":"what is the vibe?"}},"id":1}`
	response := callTool(t, mcpServer, request)

	// A failed pipeline run is still a successful tool call.
	require.Nil(t, response.Error)
	require.NotEmpty(t, response.Result.Content)

	var envelope models.QuestionResponse
	require.NoError(t, json.Unmarshal([]byte(response.Result.Content[0].Text), &envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, "could not map the question to any dataset column", envelope.Error)
}

func TestSuggestQuestionsTool_Execute(t *testing.T) {
	dataset := ordersDataset()
	suggestions := &mockSuggestionService{
		suggestions: []string{
			"What were total sales by region?",
			"What were total sales last quarter?",
		},
	}
	mcpServer := newQuestionToolServer(&mockResolutionService{}, suggestions, &mockDatasetRepository{datasets: []*models.Dataset{dataset}})

	request := `{"jsonrpc":"2.0","method":"tools/call","params":{"name":"suggest_questions","arguments":{"dataset_id":"orders","partial":"total sales"}},"id":1}`
	response := callTool(t, mcpServer, request)

	require.Nil(t, response.Error)
	require.NotEmpty(t, response.Result.Content)

	assert.Equal(t, dataset.ID, suggestions.lastDatasetID)
	assert.Equal(t, "total sales", suggestions.lastPartial)

	var payload struct {
		DatasetID   string   `json:"dataset_id"`
		Dataset     string   `json:"dataset"`
		Suggestions []string `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal([]byte(response.Result.Content[0].Text), &payload))
	assert.Equal(t, dataset.ID.String(), payload.DatasetID)
	assert.Equal(t, "orders", payload.Dataset)
	assert.Len(t, payload.Suggestions, 2)
}

func TestSuggestQuestionsTool_ServiceError(t *testing.T) {
	dataset := ordersDataset()
	suggestions := &mockSuggestionService{err: errors.New("vocabulary not loaded")}
	mcpServer := newQuestionToolServer(&mockResolutionService{}, suggestions, &mockDatasetRepository{datasets: []*models.Dataset{dataset}})

	request := `{"jsonrpc":"2.0","method":"tools/call","params":{"name":"suggest_questions","arguments":{"dataset_id":"orders"}},"id":1}`
	response := callTool(t, mcpServer, request)

	require.NotNil(t, response.Error)
	assert.Contains(t, response.Error.Message, "failed to build suggestions")
}
