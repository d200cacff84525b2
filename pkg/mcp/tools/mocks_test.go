package tools

import (
	"context"

	"github.com/google/uuid"

	"github.com/insightloop/insight-engine/pkg/apperrors"
	"github.com/insightloop/insight-engine/pkg/models"
)

// mockDatasetRepository implements repositories.DatasetRepository.
type mockDatasetRepository struct {
	datasets []*models.Dataset
	schema   *models.DatasetSchema
	err      error
}

func (m *mockDatasetRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dataset, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, ds := range m.datasets {
		if ds.ID == id {
			return ds, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockDatasetRepository) GetByName(ctx context.Context, name string) (*models.Dataset, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, ds := range m.datasets {
		if ds.Name == name {
			return ds, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockDatasetRepository) List(ctx context.Context) ([]*models.Dataset, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.datasets, nil
}

func (m *mockDatasetRepository) GetSchema(ctx context.Context, id uuid.UUID) (*models.DatasetSchema, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.schema == nil {
		return nil, apperrors.ErrSchemaNotFound
	}
	return m.schema, nil
}

// mockResolutionService implements services.ResolutionService.
type mockResolutionService struct {
	response      *models.QuestionResponse
	lastDatasetID uuid.UUID
	lastRequest   models.QuestionRequest
	calls         int
}

func (m *mockResolutionService) ResolveQuestion(ctx context.Context, datasetID uuid.UUID, req models.QuestionRequest) *models.QuestionResponse {
	m.calls++
	m.lastDatasetID = datasetID
	m.lastRequest = req
	if m.response != nil {
		return m.response
	}
	return &models.QuestionResponse{
		Success:    true,
		QuestionID: uuid.New(),
		Question:   req.Question,
		Answer:     "42 rows matched",
	}
}

// mockSuggestionService implements services.SuggestionService.
type mockSuggestionService struct {
	suggestions   []string
	err           error
	lastDatasetID uuid.UUID
	lastPartial   string
}

func (m *mockSuggestionService) Suggest(ctx context.Context, datasetID uuid.UUID, partial string) ([]string, error) {
	m.lastDatasetID = datasetID
	m.lastPartial = partial
	if m.err != nil {
		return nil, m.err
	}
	return m.suggestions, nil
}
